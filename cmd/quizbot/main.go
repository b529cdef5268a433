package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/avoronkov/quizbot/internal/bot"
	appI18n "github.com/avoronkov/quizbot/internal/i18n"
	"github.com/avoronkov/quizbot/internal/importer"
	"github.com/avoronkov/quizbot/internal/model"
	"github.com/avoronkov/quizbot/internal/session"
	"github.com/avoronkov/quizbot/internal/store"
	"github.com/avoronkov/quizbot/internal/transport"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quizbot",
		Short: "Chat-based quiz platform",
	}

	serve := serveCmd()
	root.AddCommand(serve)

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "quizbot.db", "SQLite database path")
	f.StringP("lang", "l", "en", "Chat language (en, ru)")
	f.String("outbound-url", "http://localhost:8081/messages", "Messenger bridge URL for outbound messages")
	f.Duration("idle-timeout", 30*time.Minute, "Abandon conversations idle longer than this (0 disables)")
	f.String("admin-password", "", "Seed an admin account when the user table is empty (or set QUIZBOT_ADMIN_PASSWORD)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("QUIZBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("quizbot")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/quizbot")
	v.AddConfigPath("/etc/quizbot")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	idle := v.GetDuration("idle-timeout")
	sessions := session.New(idle)
	if idle > 0 {
		go sweepLoop(sessions, idle)
	}

	sender := transport.NewHTTPSender(v.GetString("outbound-url"))
	files := transport.NewHTTPRetriever(importer.MaxFileSize)
	engine := bot.New(db, sessions, sender, files, lang)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	transport.Routes(r, engine.HandleUpdate)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"db", v.GetString("db"),
		"lang", lang,
		"outbound_url", v.GetString("outbound-url"),
		"idle_timeout", idle,
	)
	return http.ListenAndServe(addr, r)
}

// sweepLoop periodically expires abandoned conversations.
func sweepLoop(sessions *session.Registry, idle time.Duration) {
	interval := idle / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		if n := sessions.Sweep(); n > 0 {
			slog.Info("expired idle conversations", "count", n)
		}
	}
}

// seedAdmin creates an initial account when the user table is empty, so a
// fresh deployment is usable without the registration flow.
func seedAdmin(db *store.Store, password string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 || password == "" {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	id, err := db.CreateUser(model.User{
		Username:     "admin",
		FullName:     "Administrator",
		PasswordHash: string(hash),
	})
	if err != nil {
		return err
	}
	slog.Info("seeded admin user", "id", id)
	return nil
}
