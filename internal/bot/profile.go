package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/avoronkov/quizbot/internal/i18n"
	"github.com/avoronkov/quizbot/internal/model"
	"github.com/avoronkov/quizbot/internal/session"
	"github.com/avoronkov/quizbot/internal/transport"
)

type profileStage int

const (
	profileMenu profileStage = iota
	profileName
	profileUsername
	profileOldPassword
	profileNewPassword
	profileDeleteConfirm
)

type profileFlow struct {
	b      *Bot
	chatID int64
	user   *model.User
	stage  profileStage
}

func startProfile(ctx context.Context, b *Bot, u *model.User, chatID int64) session.Outcome {
	f := &profileFlow{b: b, chatID: chatID, user: u}
	out := f.showMenu(ctx)
	out.Next = f
	return out
}

func (f *profileFlow) showMenu(ctx context.Context) session.Outcome {
	f.stage = profileMenu
	return session.Outcome{Replies: []transport.Outbound{{
		ChatID: f.chatID,
		Text: i18n.Td(ctx, "ProfileInfo", map[string]any{
			"Username": f.user.Username,
			"Name":     f.user.DisplayName(),
		}),
		Keyboard: rows(ctx,
			[]string{"BtnEditName", "BtnEditUsername", "BtnChangePassword"},
			[]string{"BtnMyResults", "BtnDeleteProfile"},
			[]string{"BtnBack", "BtnCancel"},
		),
	}}}
}

func (f *profileFlow) Handle(ctx context.Context, in transport.Inbound) session.Outcome {
	text := strings.TrimSpace(in.Text)
	if is(ctx, text, "BtnBack") {
		return session.Outcome{
			Replies: []transport.Outbound{f.b.mainMenu(ctx, f.chatID, "")},
			Exit:    true,
		}
	}
	handlers := map[profileStage]func(context.Context, string) session.Outcome{
		profileMenu:          f.handleMenu,
		profileName:          f.handleName,
		profileUsername:      f.handleUsername,
		profileOldPassword:   f.handleOldPassword,
		profileNewPassword:   f.handleNewPassword,
		profileDeleteConfirm: f.handleDeleteConfirm,
	}
	return handlers[f.stage](ctx, text)
}

func (f *profileFlow) handleMenu(ctx context.Context, text string) session.Outcome {
	switch {
	case is(ctx, text, "BtnEditName"):
		f.stage = profileName
		return f.reply(ctx, i18n.T(ctx, "ProfileNamePrompt"))
	case is(ctx, text, "BtnChangePassword"):
		f.stage = profileOldPassword
		return f.reply(ctx, i18n.T(ctx, "ProfileOldPassword"))
	case is(ctx, text, "BtnEditUsername"):
		f.stage = profileUsername
		return f.reply(ctx, i18n.T(ctx, "ProfileUsernamePrompt"))
	case is(ctx, text, "BtnMyResults"):
		return f.showResults(ctx)
	case is(ctx, text, "BtnDeleteProfile"):
		f.stage = profileDeleteConfirm
		return session.Outcome{Replies: []transport.Outbound{{
			ChatID:   f.chatID,
			Text:     i18n.T(ctx, "ProfileDeleteConfirm"),
			Keyboard: rows(ctx, []string{"BtnYes", "BtnNo"}, []string{"BtnCancel"}),
		}}}
	}
	return f.showMenu(ctx)
}

// showResults lists every attempt the user has completed, oldest first,
// one line per attempt with the test title.
func (f *profileFlow) showResults(ctx context.Context) session.Outcome {
	attempts, err := f.b.store.ListAttemptsByUser(f.user.ID)
	if err != nil {
		return f.b.fail(ctx, f.chatID, "list own attempts", err)
	}
	var sb strings.Builder
	if len(attempts) == 0 {
		sb.WriteString(i18n.T(ctx, "ProfileResultsEmpty"))
	} else {
		sb.WriteString(i18n.T(ctx, "ProfileResultsHeader"))
		titles := make(map[int64]string)
		for _, a := range attempts {
			title, ok := titles[a.TestID]
			if !ok {
				test, err := f.b.store.GetTest(a.TestID)
				if err != nil {
					return f.b.fail(ctx, f.chatID, "load test", err)
				}
				if test != nil {
					title = test.Title
				}
				titles[a.TestID] = title
			}
			sb.WriteString("\n" + i18n.Td(ctx, "ProfileResultRow", map[string]any{
				"Title":   title,
				"Score":   a.Score,
				"Max":     a.MaxScore,
				"Percent": fmt.Sprintf("%.0f", a.Percentage()),
			}))
		}
	}
	out := f.showMenu(ctx)
	out.Replies = append([]transport.Outbound{{ChatID: f.chatID, Text: sb.String()}}, out.Replies...)
	return out
}

func (f *profileFlow) handleUsername(ctx context.Context, text string) session.Outcome {
	if text == "" {
		return f.reply(ctx, i18n.T(ctx, "TextBlank")+"\n"+i18n.T(ctx, "ProfileUsernamePrompt"))
	}
	if text != f.user.Username {
		existing, err := f.b.store.GetUserByUsername(text)
		if err != nil {
			return f.b.fail(ctx, f.chatID, "check username", err)
		}
		if existing != nil {
			return f.reply(ctx, i18n.T(ctx, "RegisterUsernameTaken")+"\n"+i18n.T(ctx, "ProfileUsernamePrompt"))
		}
	}
	u := *f.user
	u.Username = text
	if err := f.b.store.UpdateUser(u); err != nil {
		return f.b.fail(ctx, f.chatID, "update username", err)
	}
	*f.user = u
	f.b.sessions.SetUser(f.chatID, f.user)
	return session.Outcome{
		Replies: []transport.Outbound{f.b.mainMenu(ctx, f.chatID, i18n.T(ctx, "ProfileUsernameUpdated"))},
		Exit:    true,
	}
}

// handleDeleteConfirm retires the account the soft way: the row stays so
// recorded attempts keep their author, but the credentials are scrambled
// and the chat binding is dropped.
func (f *profileFlow) handleDeleteConfirm(ctx context.Context, text string) session.Outcome {
	switch {
	case is(ctx, text, "BtnYes"):
		hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
		if err != nil {
			return f.b.fail(ctx, f.chatID, "scramble password", err)
		}
		u := *f.user
		u.Username = fmt.Sprintf("deleted_%d", u.ID)
		u.FullName = ""
		u.PasswordHash = string(hash)
		u.ChatID = nil
		if err := f.b.store.UpdateUser(u); err != nil {
			return f.b.fail(ctx, f.chatID, "retire account", err)
		}
		f.b.sessions.SetUser(f.chatID, nil)
		return session.Outcome{
			Replies: []transport.Outbound{
				f.b.message(ctx, f.chatID, i18n.T(ctx, "ProfileDeleted")),
				f.b.welcome(ctx, f.chatID),
			},
			Exit: true,
		}
	case is(ctx, text, "BtnNo"):
		return f.showMenu(ctx)
	}
	return session.Outcome{Replies: []transport.Outbound{{
		ChatID:   f.chatID,
		Text:     i18n.T(ctx, "ProfileDeleteConfirm"),
		Keyboard: rows(ctx, []string{"BtnYes", "BtnNo"}, []string{"BtnCancel"}),
	}}}
}

func (f *profileFlow) handleOldPassword(ctx context.Context, text string) session.Outcome {
	if bcrypt.CompareHashAndPassword([]byte(f.user.PasswordHash), []byte(text)) != nil {
		return f.reply(ctx, i18n.T(ctx, "ProfileOldPasswordWrong")+"\n"+i18n.T(ctx, "ProfileOldPassword"))
	}
	f.stage = profileNewPassword
	return f.reply(ctx, i18n.Td(ctx, "ProfilePasswordPrompt", map[string]any{"Min": minPasswordLen}))
}

func (f *profileFlow) handleName(ctx context.Context, text string) session.Outcome {
	if text == "" {
		return f.reply(ctx, i18n.T(ctx, "TextBlank")+"\n"+i18n.T(ctx, "ProfileNamePrompt"))
	}
	u := *f.user
	u.FullName = text
	if err := f.b.store.UpdateUser(u); err != nil {
		return f.b.fail(ctx, f.chatID, "update name", err)
	}
	*f.user = u
	f.b.sessions.SetUser(f.chatID, f.user)
	return session.Outcome{
		Replies: []transport.Outbound{f.b.mainMenu(ctx, f.chatID, i18n.T(ctx, "ProfileNameUpdated"))},
		Exit:    true,
	}
}

func (f *profileFlow) handleNewPassword(ctx context.Context, text string) session.Outcome {
	if len([]rune(text)) < minPasswordLen {
		return f.reply(ctx, i18n.Td(ctx, "RegisterPasswordShort", map[string]any{"Min": minPasswordLen}))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(text), bcrypt.DefaultCost)
	if err != nil {
		return f.b.fail(ctx, f.chatID, "hash password", err)
	}
	u := *f.user
	u.PasswordHash = string(hash)
	if err := f.b.store.UpdateUser(u); err != nil {
		return f.b.fail(ctx, f.chatID, "update password", err)
	}
	*f.user = u
	f.b.sessions.SetUser(f.chatID, f.user)
	return session.Outcome{
		Replies: []transport.Outbound{f.b.mainMenu(ctx, f.chatID, i18n.T(ctx, "ProfilePasswordUpdated"))},
		Exit:    true,
	}
}

func (f *profileFlow) reply(ctx context.Context, text string) session.Outcome {
	return session.Outcome{Replies: []transport.Outbound{f.b.message(ctx, f.chatID, text)}}
}
