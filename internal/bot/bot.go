// Package bot drives the chat conversations: a dispatcher routes each
// inbound message either to the chat's active flow or to the menu that
// matches its authentication state. Button labels are localized text, so
// command matching goes through the same translation IDs as rendering.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/avoronkov/quizbot/internal/i18n"
	"github.com/avoronkov/quizbot/internal/model"
	"github.com/avoronkov/quizbot/internal/session"
	"github.com/avoronkov/quizbot/internal/store"
	"github.com/avoronkov/quizbot/internal/transport"
)

// Bot wires the conversation engine to its collaborators.
type Bot struct {
	store    *store.Store
	sessions *session.Registry
	sender   transport.Sender
	files    transport.FileRetriever
	lang     string
}

func New(st *store.Store, reg *session.Registry, sender transport.Sender, files transport.FileRetriever, lang string) *Bot {
	return &Bot{store: st, sessions: reg, sender: sender, files: files, lang: lang}
}

// HandleUpdate processes one inbound message. A panic anywhere below is
// contained to this update: it is logged and answered with a generic
// failure, and other chats keep working.
func (b *Bot) HandleUpdate(ctx context.Context, in transport.Inbound) {
	ctx = i18n.WithLocalizer(ctx, i18n.NewLocalizer(b.lang))
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while handling update", "chat_id", in.ChatID, "panic", r)
			b.send(ctx, transport.Outbound{ChatID: in.ChatID, Text: i18n.T(ctx, "GenericError")})
		}
	}()

	b.sessions.Do(in.ChatID, func() {
		out := b.dispatch(ctx, in)
		for _, reply := range out.Replies {
			b.send(ctx, reply)
		}
		switch {
		case out.Next != nil:
			b.sessions.Enter(in.ChatID, out.Next)
		case out.Exit:
			b.sessions.Exit(in.ChatID)
		}
	})
}

func (b *Bot) dispatch(ctx context.Context, in transport.Inbound) session.Outcome {
	chatID := in.ChatID

	// Cancel aborts whatever is going on, from any state of any flow.
	if in.Document == nil && is(ctx, in.Text, "BtnCancel") {
		b.sessions.Exit(chatID)
		if b.user(ctx, chatID) != nil {
			return session.Outcome{
				Replies: []transport.Outbound{b.mainMenu(ctx, chatID, i18n.T(ctx, "Cancelled"))},
				Exit:    true,
			}
		}
		return session.Outcome{Replies: []transport.Outbound{b.welcome(ctx, chatID)}, Exit: true}
	}

	if f := b.sessions.Resolve(chatID); f != nil {
		return f.Handle(ctx, in)
	}

	u := b.user(ctx, chatID)
	if u == nil {
		return b.handleGuest(ctx, in)
	}
	return b.handleMenu(ctx, u, in)
}

// user returns the chat's signed-in user, restoring the binding from the
// store after a restart.
func (b *Bot) user(ctx context.Context, chatID int64) *model.User {
	if u := b.sessions.User(chatID); u != nil {
		return u
	}
	u, err := b.store.GetUserByChatID(chatID)
	if err != nil {
		slog.Error("restore chat binding", "chat_id", chatID, "error", err)
		return nil
	}
	if u != nil {
		b.sessions.SetUser(chatID, u)
	}
	return u
}

func (b *Bot) handleGuest(ctx context.Context, in transport.Inbound) session.Outcome {
	chatID := in.ChatID
	switch {
	case is(ctx, in.Text, "BtnLogin"):
		return session.Outcome{
			Replies: []transport.Outbound{b.message(ctx, chatID, i18n.T(ctx, "LoginUsername"))},
			Next:    &loginFlow{b: b, chatID: chatID},
		}
	case is(ctx, in.Text, "BtnRegister"):
		return session.Outcome{
			Replies: []transport.Outbound{b.message(ctx, chatID, i18n.T(ctx, "RegisterUsername"))},
			Next:    &registerFlow{b: b, chatID: chatID},
		}
	}
	return session.Outcome{Replies: []transport.Outbound{b.welcome(ctx, chatID)}}
}

func (b *Bot) handleMenu(ctx context.Context, u *model.User, in transport.Inbound) session.Outcome {
	chatID := in.ChatID
	switch {
	case is(ctx, in.Text, "BtnCreateTest"):
		return session.Outcome{
			Replies: []transport.Outbound{b.message(ctx, chatID, i18n.T(ctx, "CreateTitlePrompt"))},
			Next:    &createFlow{b: b, chatID: chatID, user: u},
		}
	case is(ctx, in.Text, "BtnTakeTest"):
		return b.startTaking(ctx, u, chatID)
	case is(ctx, in.Text, "BtnMyTests"):
		return b.startManage(ctx, u, chatID)
	case is(ctx, in.Text, "BtnProfile"):
		return startProfile(ctx, b, u, chatID)
	case is(ctx, in.Text, "BtnLogout"):
		return b.logout(ctx, chatID)
	}
	return session.Outcome{Replies: []transport.Outbound{
		b.mainMenu(ctx, chatID, i18n.T(ctx, "UnknownCommand")),
	}}
}

func (b *Bot) logout(ctx context.Context, chatID int64) session.Outcome {
	if err := b.store.UnbindChat(chatID); err != nil {
		return b.fail(ctx, chatID, "unbind chat", err)
	}
	b.sessions.SetUser(chatID, nil)
	return session.Outcome{
		Replies: []transport.Outbound{
			b.message(ctx, chatID, i18n.T(ctx, "LoggedOut")),
			b.welcome(ctx, chatID),
		},
		Exit: true,
	}
}

// fail logs a persistence error and answers with a generic message. The
// current flow is discarded so the chat is never left stuck.
func (b *Bot) fail(ctx context.Context, chatID int64, op string, err error) session.Outcome {
	slog.Error("operation failed", "op", op, "chat_id", chatID, "error", err)
	return session.Outcome{
		Replies: []transport.Outbound{b.message(ctx, chatID, i18n.T(ctx, "GenericError"))},
		Exit:    true,
	}
}

func (b *Bot) send(ctx context.Context, out transport.Outbound) {
	if err := b.sender.Send(ctx, out); err != nil {
		slog.Error("send reply", "chat_id", out.ChatID, "error", err)
	}
}

func (b *Bot) message(ctx context.Context, chatID int64, text string) transport.Outbound {
	return transport.Outbound{ChatID: chatID, Text: text, Keyboard: rows(ctx, []string{"BtnCancel"})}
}

func (b *Bot) welcome(ctx context.Context, chatID int64) transport.Outbound {
	return transport.Outbound{
		ChatID:   chatID,
		Text:     i18n.T(ctx, "Welcome"),
		Keyboard: rows(ctx, []string{"BtnLogin", "BtnRegister"}),
	}
}

// mainMenu renders the signed-in menu, optionally prefixed with a
// confirmation line.
func (b *Bot) mainMenu(ctx context.Context, chatID int64, prefix string) transport.Outbound {
	text := i18n.T(ctx, "MainMenu")
	if prefix != "" {
		text = prefix + "\n\n" + text
	}
	return transport.Outbound{
		ChatID: chatID,
		Text:   text,
		Keyboard: rows(ctx,
			[]string{"BtnCreateTest", "BtnTakeTest"},
			[]string{"BtnMyTests", "BtnProfile"},
			[]string{"BtnLogout"},
		),
	}
}

func isValidationErr(err error) bool {
	return errors.Is(err, model.ErrBlankTitle) || errors.Is(err, model.ErrTitleTooLong)
}

// validationMessage maps a title validation error to its localized text.
func validationMessage(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, model.ErrBlankTitle):
		return i18n.T(ctx, "TitleBlank")
	case errors.Is(err, model.ErrTitleTooLong):
		return i18n.Td(ctx, "TitleTooLong", map[string]any{"Max": model.MaxTitleLength})
	}
	return ""
}

// is reports whether the inbound text matches a localized button label.
func is(ctx context.Context, text, msgID string) bool {
	return strings.EqualFold(strings.TrimSpace(text), i18n.T(ctx, msgID))
}

// rows translates button IDs into keyboard rows.
func rows(ctx context.Context, ids ...[]string) [][]string {
	kb := make([][]string, 0, len(ids))
	for _, r := range ids {
		row := make([]string, 0, len(r))
		for _, id := range r {
			row = append(row, i18n.T(ctx, id))
		}
		kb = append(kb, row)
	}
	return kb
}

const captionWidth = 40

// captions renders items as a numbered selection list.
func captions(items []string) []string {
	out := make([]string, 0, len(items))
	for i, it := range items {
		out = append(out, fmt.Sprintf("%d) %s", i+1, truncate(it, captionWidth)))
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// parseSelection reads the leading numeral of a selection reply and maps
// it to a zero-based index. ok is false for non-numeric input and for
// numbers outside [1, n].
func parseSelection(text string, n int) (int, bool) {
	text = strings.TrimSpace(text)
	v := 0
	digits := 0
	for _, c := range text {
		if c < '0' || c > '9' {
			break
		}
		v = v*10 + int(c-'0')
		digits++
	}
	if digits == 0 || v < 1 || v > n {
		return 0, false
	}
	return v - 1, true
}

// selectionKeyboard turns captions into one keyboard row per item, with a
// back/cancel row at the bottom.
func selectionKeyboard(ctx context.Context, caps []string) [][]string {
	kb := make([][]string, 0, len(caps)+1)
	for _, c := range caps {
		kb = append(kb, []string{c})
	}
	kb = append(kb, []string{i18n.T(ctx, "BtnBack"), i18n.T(ctx, "BtnCancel")})
	return kb
}
