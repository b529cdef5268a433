package bot

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/avoronkov/quizbot/internal/i18n"
	"github.com/avoronkov/quizbot/internal/model"
	"github.com/avoronkov/quizbot/internal/session"
	"github.com/avoronkov/quizbot/internal/transport"
)

const minPasswordLen = 6

type loginStage int

const (
	loginUsername loginStage = iota
	loginPassword
)

type loginFlow struct {
	b        *Bot
	chatID   int64
	stage    loginStage
	username string
}

func (f *loginFlow) Handle(ctx context.Context, in transport.Inbound) session.Outcome {
	handlers := map[loginStage]func(context.Context, string) session.Outcome{
		loginUsername: f.handleUsername,
		loginPassword: f.handlePassword,
	}
	return handlers[f.stage](ctx, strings.TrimSpace(in.Text))
}

func (f *loginFlow) handleUsername(ctx context.Context, text string) session.Outcome {
	if text == "" {
		return f.reply(ctx, i18n.T(ctx, "LoginUsername"))
	}
	f.username = text
	f.stage = loginPassword
	return f.reply(ctx, i18n.T(ctx, "LoginPassword"))
}

func (f *loginFlow) handlePassword(ctx context.Context, text string) session.Outcome {
	u, err := f.b.store.GetUserByUsername(f.username)
	if err != nil {
		return f.b.fail(ctx, f.chatID, "login lookup", err)
	}
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(text)) != nil {
		f.stage = loginUsername
		f.username = ""
		return f.reply(ctx, i18n.T(ctx, "LoginFailed")+"\n"+i18n.T(ctx, "LoginUsername"))
	}
	if err := f.b.store.BindChat(u.ID, f.chatID); err != nil {
		return f.b.fail(ctx, f.chatID, "bind chat", err)
	}
	u.ChatID = &f.chatID
	f.b.sessions.SetUser(f.chatID, u)
	greeting := i18n.Td(ctx, "LoginSuccess", map[string]any{"Name": u.DisplayName()})
	return session.Outcome{
		Replies: []transport.Outbound{f.b.mainMenu(ctx, f.chatID, greeting)},
		Exit:    true,
	}
}

func (f *loginFlow) reply(ctx context.Context, text string) session.Outcome {
	return session.Outcome{Replies: []transport.Outbound{f.b.message(ctx, f.chatID, text)}}
}

type registerStage int

const (
	registerUsername registerStage = iota
	registerPassword
	registerFullName
)

type registerFlow struct {
	b        *Bot
	chatID   int64
	stage    registerStage
	username string
	password string
}

func (f *registerFlow) Handle(ctx context.Context, in transport.Inbound) session.Outcome {
	handlers := map[registerStage]func(context.Context, string) session.Outcome{
		registerUsername: f.handleUsername,
		registerPassword: f.handlePassword,
		registerFullName: f.handleFullName,
	}
	return handlers[f.stage](ctx, strings.TrimSpace(in.Text))
}

func (f *registerFlow) handleUsername(ctx context.Context, text string) session.Outcome {
	if text == "" {
		return f.reply(ctx, i18n.T(ctx, "RegisterUsername"))
	}
	existing, err := f.b.store.GetUserByUsername(text)
	if err != nil {
		return f.b.fail(ctx, f.chatID, "register lookup", err)
	}
	if existing != nil {
		return f.reply(ctx, i18n.T(ctx, "RegisterUsernameTaken"))
	}
	f.username = text
	f.stage = registerPassword
	return f.reply(ctx, i18n.Td(ctx, "RegisterPassword", map[string]any{"Min": minPasswordLen}))
}

func (f *registerFlow) handlePassword(ctx context.Context, text string) session.Outcome {
	if len([]rune(text)) < minPasswordLen {
		return f.reply(ctx, i18n.Td(ctx, "RegisterPasswordShort", map[string]any{"Min": minPasswordLen}))
	}
	f.password = text
	f.stage = registerFullName
	return f.reply(ctx, i18n.T(ctx, "RegisterFullName"))
}

func (f *registerFlow) handleFullName(ctx context.Context, text string) session.Outcome {
	fullName := text
	if fullName == "-" {
		fullName = ""
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(f.password), bcrypt.DefaultCost)
	if err != nil {
		return f.b.fail(ctx, f.chatID, "hash password", err)
	}
	u := model.User{Username: f.username, FullName: fullName, PasswordHash: string(hash)}
	id, err := f.b.store.CreateUser(u)
	if err != nil {
		return f.b.fail(ctx, f.chatID, "create user", err)
	}
	u.ID = id
	if err := f.b.store.BindChat(id, f.chatID); err != nil {
		return f.b.fail(ctx, f.chatID, "bind chat", err)
	}
	u.ChatID = &f.chatID
	f.b.sessions.SetUser(f.chatID, &u)
	greeting := i18n.Td(ctx, "RegisterSuccess", map[string]any{"Name": u.DisplayName()})
	return session.Outcome{
		Replies: []transport.Outbound{f.b.mainMenu(ctx, f.chatID, greeting)},
		Exit:    true,
	}
}

func (f *registerFlow) reply(ctx context.Context, text string) session.Outcome {
	return session.Outcome{Replies: []transport.Outbound{f.b.message(ctx, f.chatID, text)}}
}
