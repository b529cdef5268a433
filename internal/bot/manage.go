package bot

import (
	"context"
	"strings"

	"github.com/avoronkov/quizbot/internal/i18n"
	"github.com/avoronkov/quizbot/internal/model"
	"github.com/avoronkov/quizbot/internal/session"
	"github.com/avoronkov/quizbot/internal/transport"
)

// manageFlow lets a creator pick one of their own tests; the picked test
// is handed over to the editing flow.
type manageFlow struct {
	b      *Bot
	chatID int64
	tests  []model.Test
}

func (b *Bot) startManage(ctx context.Context, u *model.User, chatID int64) session.Outcome {
	tests, err := b.store.ListTestsByCreator(u.ID)
	if err != nil {
		return b.fail(ctx, chatID, "list own tests", err)
	}
	if len(tests) == 0 {
		return session.Outcome{Replies: []transport.Outbound{
			b.mainMenu(ctx, chatID, i18n.T(ctx, "MyTestsNone")),
		}}
	}
	titles := make([]string, 0, len(tests))
	for _, t := range tests {
		n, err := b.store.QuestionCount(t.ID)
		if err != nil {
			return b.fail(ctx, chatID, "count questions", err)
		}
		titles = append(titles, t.Title+" ("+i18n.Tp(ctx, "QuestionsCount", n)+")")
	}
	caps := captions(titles)
	return session.Outcome{
		Replies: []transport.Outbound{{
			ChatID:   chatID,
			Text:     i18n.T(ctx, "MyTestsChoose") + "\n" + strings.Join(caps, "\n"),
			Keyboard: selectionKeyboard(ctx, caps),
		}},
		Next: &manageFlow{b: b, chatID: chatID, tests: tests},
	}
}

func (f *manageFlow) Handle(ctx context.Context, in transport.Inbound) session.Outcome {
	text := strings.TrimSpace(in.Text)
	if is(ctx, text, "BtnBack") {
		return session.Outcome{
			Replies: []transport.Outbound{f.b.mainMenu(ctx, f.chatID, "")},
			Exit:    true,
		}
	}
	idx, ok := parseSelection(text, len(f.tests))
	if !ok {
		return session.Outcome{Replies: []transport.Outbound{
			f.b.message(ctx, f.chatID, i18n.T(ctx, "InvalidSelection")),
		}}
	}
	ef := &editFlow{b: f.b, chatID: f.chatID, test: f.tests[idx]}
	out := ef.menu(ctx, "")
	out.Next = ef
	return out
}
