package bot

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/avoronkov/quizbot/internal/i18n"
	"github.com/avoronkov/quizbot/internal/model"
	"github.com/avoronkov/quizbot/internal/session"
	"github.com/avoronkov/quizbot/internal/transport"
)

type takeStage int

const (
	takeChoose takeStage = iota
	takeAnswer
)

// takeFlow runs one attempt: questions are shuffled once at the start and
// presented in that fixed order until the attempt completes.
type takeFlow struct {
	b      *Bot
	chatID int64
	user   *model.User

	stage     takeStage
	tests     []model.Test
	test      model.Test
	questions []model.Question
	answers   []int
}

func (b *Bot) startTaking(ctx context.Context, u *model.User, chatID int64) session.Outcome {
	tests, err := b.store.ListTests()
	if err != nil {
		return b.fail(ctx, chatID, "list tests", err)
	}
	if len(tests) == 0 {
		return session.Outcome{Replies: []transport.Outbound{
			b.mainMenu(ctx, chatID, i18n.T(ctx, "TakeNoTests")),
		}}
	}
	titles := make([]string, 0, len(tests))
	for _, t := range tests {
		titles = append(titles, t.Title)
	}
	caps := captions(titles)
	text := i18n.Tp(ctx, "TestsAvailable", len(tests)) + "\n" +
		i18n.T(ctx, "TakeChooseTest") + "\n" + strings.Join(caps, "\n")
	return session.Outcome{
		Replies: []transport.Outbound{{
			ChatID:   chatID,
			Text:     text,
			Keyboard: selectionKeyboard(ctx, caps),
		}},
		Next: &takeFlow{b: b, chatID: chatID, user: u, tests: tests},
	}
}

func (f *takeFlow) Handle(ctx context.Context, in transport.Inbound) session.Outcome {
	handlers := map[takeStage]func(context.Context, string) session.Outcome{
		takeChoose: f.handleChoose,
		takeAnswer: f.handleAnswer,
	}
	return handlers[f.stage](ctx, strings.TrimSpace(in.Text))
}

func (f *takeFlow) handleChoose(ctx context.Context, text string) session.Outcome {
	if is(ctx, text, "BtnBack") {
		return session.Outcome{
			Replies: []transport.Outbound{f.b.mainMenu(ctx, f.chatID, "")},
			Exit:    true,
		}
	}
	idx, ok := parseSelection(text, len(f.tests))
	if !ok {
		return f.reply(ctx, i18n.T(ctx, "InvalidSelection"))
	}
	f.test = f.tests[idx]

	loaded, err := f.b.store.QuestionsForTest(f.test.ID)
	if err != nil {
		return f.b.fail(ctx, f.chatID, "load questions", err)
	}
	// A question left without options cannot be answered; skip it.
	questions := loaded[:0]
	for _, q := range loaded {
		if len(q.Options) > 0 {
			questions = append(questions, q)
		}
	}
	if len(questions) == 0 {
		return session.Outcome{
			Replies: []transport.Outbound{f.b.mainMenu(ctx, f.chatID, i18n.T(ctx, "TakeNoQuestions"))},
			Exit:    true,
		}
	}
	rand.Shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})
	f.questions = questions
	f.answers = make([]int, 0, len(questions))
	f.stage = takeAnswer
	return session.Outcome{Replies: []transport.Outbound{f.questionMessage(ctx)}}
}

func (f *takeFlow) questionMessage(ctx context.Context) transport.Outbound {
	q := f.questions[len(f.answers)]
	var sb strings.Builder
	sb.WriteString(i18n.Td(ctx, "TakeQuestion", map[string]any{
		"Index": len(f.answers) + 1,
		"Total": len(f.questions),
		"Text":  q.Text,
	}))
	kb := make([][]string, 0, 2)
	numbers := make([]string, 0, len(q.Options))
	for _, o := range q.Options {
		sb.WriteString(fmt.Sprintf("\n%d) %s", o.OptionNumber, o.Text))
		numbers = append(numbers, strconv.Itoa(o.OptionNumber))
	}
	kb = append(kb, numbers, []string{i18n.T(ctx, "BtnCancel")})
	return transport.Outbound{ChatID: f.chatID, Text: sb.String(), Keyboard: kb}
}

func (f *takeFlow) handleAnswer(ctx context.Context, text string) session.Outcome {
	q := f.questions[len(f.answers)]
	n, err := strconv.Atoi(text)
	if err != nil || n < 1 || n > len(q.Options) {
		return f.reply(ctx, i18n.Td(ctx, "TakeInvalidAnswer", map[string]any{"Max": len(q.Options)}))
	}
	f.answers = append(f.answers, n)
	if len(f.answers) < len(f.questions) {
		return session.Outcome{Replies: []transport.Outbound{f.questionMessage(ctx)}}
	}
	return f.finish(ctx)
}

func (f *takeFlow) finish(ctx context.Context) session.Outcome {
	res, err := f.b.store.RecordAttempt(f.user.ID, f.test.ID, f.questions, f.answers)
	if err != nil {
		return f.b.fail(ctx, f.chatID, "record attempt", err)
	}

	var sb strings.Builder
	sb.WriteString(i18n.Td(ctx, "TakeFinished", map[string]any{
		"Score":   res.Score,
		"Max":     res.MaxScore,
		"Percent": fmt.Sprintf("%.0f", res.Percentage()),
	}))
	sb.WriteString("\n\n")
	sb.WriteString(i18n.T(ctx, "ReportHeader"))
	for i, q := range f.questions {
		sb.WriteString("\n" + truncate(q.Text, captionWidth) + "\n  ")
		sb.WriteString(reportLine(ctx, f.test.ShowAnswers, i+1, f.answers[i], q.CorrectOption()))
	}

	entries, err := f.b.store.Leaderboard(f.test.ID)
	if err != nil {
		return f.b.fail(ctx, f.chatID, "leaderboard", err)
	}
	sb.WriteString("\n\n")
	sb.WriteString(formatLeaderboard(ctx, f.test.Title, entries))

	return session.Outcome{
		Replies: []transport.Outbound{
			{ChatID: f.chatID, Text: sb.String()},
			f.b.mainMenu(ctx, f.chatID, ""),
		},
		Exit: true,
	}
}

// reportLine renders one per-question verdict. Correct option numbers are
// withheld when the test hides answers; the verdict itself always shows.
func reportLine(ctx context.Context, showAnswers bool, index, answer, correct int) string {
	right := answer == correct
	if !showAnswers {
		if right {
			return i18n.Td(ctx, "ReportRight", map[string]any{"Index": index})
		}
		return i18n.Td(ctx, "ReportWrong", map[string]any{"Index": index})
	}
	if right {
		return i18n.Td(ctx, "ReportDetailRight", map[string]any{"Index": index, "Answer": answer})
	}
	return i18n.Td(ctx, "ReportDetailWrong", map[string]any{
		"Index": index, "Answer": answer, "Correct": correct,
	})
}

func formatLeaderboard(ctx context.Context, title string, entries []model.LeaderboardEntry) string {
	if len(entries) == 0 {
		return i18n.T(ctx, "LeaderboardEmpty")
	}
	var sb strings.Builder
	sb.WriteString(i18n.Td(ctx, "LeaderboardHeader", map[string]any{"Title": title}))
	for i, e := range entries {
		sb.WriteString(fmt.Sprintf("\n%d. %s: %d/%d (%.0f%%)",
			i+1, e.DisplayName, e.Score, e.MaxScore, e.Percentage))
		if e.IsCreator {
			sb.WriteString(" " + i18n.T(ctx, "CreatorTag"))
		}
	}
	return sb.String()
}

func (f *takeFlow) reply(ctx context.Context, text string) session.Outcome {
	return session.Outcome{Replies: []transport.Outbound{f.b.message(ctx, f.chatID, text)}}
}
