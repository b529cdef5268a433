package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/avoronkov/quizbot/internal/i18n"
	"github.com/avoronkov/quizbot/internal/model"
	"github.com/avoronkov/quizbot/internal/session"
	"github.com/avoronkov/quizbot/internal/transport"
)

type editStage int

const (
	editMenu editStage = iota
	editRename
	editNewQuestionText
	editPickQuestion
	editQuestionText
	editOptionText
	editPickOption
	editPickStatsUser
)

// editOp tags which menu operation a question/option selection belongs to,
// so one selection stage serves all of them.
type editOp int

const (
	opEditQuestion editOp = iota
	opDeleteQuestion
	opAddOption
	opDeleteOption
	opSetCorrect
)

// editFlow mutates an existing test. Every operation commits immediately
// and returns to the menu; "Back" inside a sub-step abandons just that
// sub-step.
type editFlow struct {
	b      *Bot
	chatID int64
	test   model.Test

	stage     editStage
	op        editOp
	questions []model.Question
	q         model.Question
	board     []model.LeaderboardEntry
}

func (f *editFlow) Handle(ctx context.Context, in transport.Inbound) session.Outcome {
	text := strings.TrimSpace(in.Text)
	if f.stage != editMenu && is(ctx, text, "BtnBack") {
		return f.menu(ctx, "")
	}
	handlers := map[editStage]func(context.Context, string) session.Outcome{
		editMenu:            f.handleMenu,
		editRename:          f.handleRename,
		editNewQuestionText: f.handleNewQuestionText,
		editPickQuestion:    f.handlePickQuestion,
		editQuestionText:    f.handleQuestionText,
		editOptionText:      f.handleOptionText,
		editPickOption:      f.handlePickOption,
		editPickStatsUser:   f.handlePickStatsUser,
	}
	return handlers[f.stage](ctx, text)
}

func (f *editFlow) menu(ctx context.Context, prefix string) session.Outcome {
	f.stage = editMenu
	text := i18n.Td(ctx, "EditMenu", map[string]any{"Title": f.test.Title})
	if prefix != "" {
		text = prefix + "\n\n" + text
	}
	return session.Outcome{Replies: []transport.Outbound{{
		ChatID: f.chatID,
		Text:   text,
		Keyboard: rows(ctx,
			[]string{"BtnRename", "BtnToggleAnswers"},
			[]string{"BtnAddQuestion", "BtnEditQuestion", "BtnDeleteQuestion"},
			[]string{"BtnAddOption", "BtnDeleteOption", "BtnSetCorrect"},
			[]string{"BtnStats", "BtnDeleteTest"},
			[]string{"BtnBack", "BtnCancel"},
		),
	}}}
}

func (f *editFlow) handleMenu(ctx context.Context, text string) session.Outcome {
	switch {
	case is(ctx, text, "BtnBack"):
		return session.Outcome{
			Replies: []transport.Outbound{f.b.mainMenu(ctx, f.chatID, "")},
			Exit:    true,
		}
	case is(ctx, text, "BtnRename"):
		f.stage = editRename
		return f.reply(ctx, i18n.T(ctx, "EditRenamePrompt"))
	case is(ctx, text, "BtnAddQuestion"):
		f.stage = editNewQuestionText
		return f.reply(ctx, i18n.T(ctx, "EditQuestionTextPrompt"))
	case is(ctx, text, "BtnEditQuestion"):
		return f.startPick(ctx, opEditQuestion)
	case is(ctx, text, "BtnDeleteQuestion"):
		return f.startPick(ctx, opDeleteQuestion)
	case is(ctx, text, "BtnAddOption"):
		return f.startPick(ctx, opAddOption)
	case is(ctx, text, "BtnDeleteOption"):
		return f.startPick(ctx, opDeleteOption)
	case is(ctx, text, "BtnSetCorrect"):
		return f.startPick(ctx, opSetCorrect)
	case is(ctx, text, "BtnToggleAnswers"):
		return f.toggleAnswers(ctx)
	case is(ctx, text, "BtnDeleteTest"):
		return f.deleteTest(ctx)
	case is(ctx, text, "BtnStats"):
		return f.showStats(ctx)
	}
	return f.menu(ctx, i18n.T(ctx, "UnknownCommand"))
}

func (f *editFlow) handleRename(ctx context.Context, text string) session.Outcome {
	if err := f.b.store.RenameTest(f.test.ID, text); err != nil {
		switch {
		case isValidationErr(err):
			return f.reply(ctx, validationMessage(ctx, err)+"\n"+i18n.T(ctx, "EditRenamePrompt"))
		default:
			return f.b.fail(ctx, f.chatID, "rename test", err)
		}
	}
	f.test.Title = strings.TrimSpace(text)
	return f.menu(ctx, i18n.T(ctx, "EditRenamed"))
}

func (f *editFlow) handleNewQuestionText(ctx context.Context, text string) session.Outcome {
	if text == "" {
		return f.reply(ctx, i18n.T(ctx, "TextBlank")+"\n"+i18n.T(ctx, "EditQuestionTextPrompt"))
	}
	if _, err := f.b.store.AddQuestion(f.test.ID, text); err != nil {
		return f.b.fail(ctx, f.chatID, "add question", err)
	}
	return f.menu(ctx, i18n.T(ctx, "EditQuestionAdded"))
}

func (f *editFlow) startPick(ctx context.Context, op editOp) session.Outcome {
	questions, err := f.b.store.QuestionsForTest(f.test.ID)
	if err != nil {
		return f.b.fail(ctx, f.chatID, "load questions", err)
	}
	if len(questions) == 0 {
		return f.menu(ctx, i18n.T(ctx, "EditNoQuestions"))
	}
	f.op = op
	f.questions = questions
	f.stage = editPickQuestion
	texts := make([]string, 0, len(questions))
	for _, q := range questions {
		texts = append(texts, q.Text)
	}
	caps := captions(texts)
	return session.Outcome{Replies: []transport.Outbound{{
		ChatID:   f.chatID,
		Text:     i18n.T(ctx, "EditChooseQuestion") + "\n" + strings.Join(caps, "\n"),
		Keyboard: selectionKeyboard(ctx, caps),
	}}}
}

func (f *editFlow) handlePickQuestion(ctx context.Context, text string) session.Outcome {
	idx, ok := parseSelection(text, len(f.questions))
	if !ok {
		return f.reply(ctx, i18n.T(ctx, "InvalidSelection"))
	}
	f.q = f.questions[idx]

	switch f.op {
	case opEditQuestion:
		f.stage = editQuestionText
		return f.reply(ctx, i18n.T(ctx, "EditQuestionTextPrompt"))
	case opDeleteQuestion:
		if err := f.b.store.DeleteQuestion(f.q.ID); err != nil {
			return f.b.fail(ctx, f.chatID, "delete question", err)
		}
		return f.menu(ctx, i18n.T(ctx, "EditQuestionDeleted"))
	case opAddOption:
		f.stage = editOptionText
		return f.reply(ctx, i18n.T(ctx, "EditOptionTextPrompt"))
	case opDeleteOption, opSetCorrect:
		if len(f.q.Options) == 0 {
			return f.menu(ctx, i18n.T(ctx, "EditNoOptions"))
		}
		f.stage = editPickOption
		texts := make([]string, 0, len(f.q.Options))
		for _, o := range f.q.Options {
			texts = append(texts, o.Text)
		}
		caps := captions(texts)
		return session.Outcome{Replies: []transport.Outbound{{
			ChatID:   f.chatID,
			Text:     i18n.T(ctx, "EditChooseOption") + "\n" + strings.Join(caps, "\n"),
			Keyboard: selectionKeyboard(ctx, caps),
		}}}
	}
	return f.menu(ctx, "")
}

func (f *editFlow) handleQuestionText(ctx context.Context, text string) session.Outcome {
	if text == "" {
		return f.reply(ctx, i18n.T(ctx, "TextBlank")+"\n"+i18n.T(ctx, "EditQuestionTextPrompt"))
	}
	if err := f.b.store.UpdateQuestionText(f.q.ID, text); err != nil {
		return f.b.fail(ctx, f.chatID, "update question", err)
	}
	return f.menu(ctx, i18n.T(ctx, "EditQuestionUpdated"))
}

func (f *editFlow) handleOptionText(ctx context.Context, text string) session.Outcome {
	if text == "" {
		return f.reply(ctx, i18n.T(ctx, "TextBlank")+"\n"+i18n.T(ctx, "EditOptionTextPrompt"))
	}
	// New options start out non-correct; use "set correct option" after.
	if _, err := f.b.store.AddOption(f.q.ID, text, false); err != nil {
		return f.b.fail(ctx, f.chatID, "add option", err)
	}
	return f.menu(ctx, i18n.T(ctx, "EditOptionAdded"))
}

func (f *editFlow) handlePickOption(ctx context.Context, text string) session.Outcome {
	idx, ok := parseSelection(text, len(f.q.Options))
	if !ok {
		return f.reply(ctx, i18n.T(ctx, "InvalidSelection"))
	}
	number := f.q.Options[idx].OptionNumber

	switch f.op {
	case opDeleteOption:
		if err := f.b.store.DeleteOption(f.q.ID, number); err != nil {
			return f.b.fail(ctx, f.chatID, "delete option", err)
		}
		return f.menu(ctx, i18n.T(ctx, "EditOptionDeleted"))
	case opSetCorrect:
		if err := f.b.store.SetCorrectOption(f.q.ID, number); err != nil {
			return f.b.fail(ctx, f.chatID, "set correct option", err)
		}
		return f.menu(ctx, i18n.T(ctx, "EditCorrectSet"))
	}
	return f.menu(ctx, "")
}

func (f *editFlow) toggleAnswers(ctx context.Context) session.Outcome {
	if err := f.b.store.ToggleShowAnswers(f.test.ID); err != nil {
		return f.b.fail(ctx, f.chatID, "toggle answers", err)
	}
	f.test.ShowAnswers = !f.test.ShowAnswers
	if f.test.ShowAnswers {
		return f.menu(ctx, i18n.T(ctx, "EditAnswersNowShown"))
	}
	return f.menu(ctx, i18n.T(ctx, "EditAnswersNowHidden"))
}

func (f *editFlow) deleteTest(ctx context.Context) session.Outcome {
	if err := f.b.store.DeleteTest(f.test.ID); err != nil {
		return f.b.fail(ctx, f.chatID, "delete test", err)
	}
	return session.Outcome{
		Replies: []transport.Outbound{f.b.mainMenu(ctx, f.chatID, i18n.T(ctx, "EditTestDeleted"))},
		Exit:    true,
	}
}

func (f *editFlow) showStats(ctx context.Context) session.Outcome {
	board, err := f.b.store.Leaderboard(f.test.ID)
	if err != nil {
		return f.b.fail(ctx, f.chatID, "leaderboard", err)
	}
	if len(board) == 0 {
		return f.menu(ctx, i18n.T(ctx, "StatsEmpty"))
	}
	attempts, err := f.b.store.ListAttemptsByTest(f.test.ID)
	if err != nil {
		return f.b.fail(ctx, f.chatID, "list attempts", err)
	}
	perUser := make(map[int64]int)
	for _, a := range attempts {
		perUser[a.UserID]++
	}

	var sb strings.Builder
	sb.WriteString(i18n.Td(ctx, "StatsHeader", map[string]any{"Title": f.test.Title}))
	names := make([]string, 0, len(board))
	for _, e := range board {
		sb.WriteString("\n")
		sb.WriteString(i18n.Td(ctx, "StatsRow", map[string]any{
			"Name":     e.DisplayName,
			"Score":    e.Score,
			"Max":      e.MaxScore,
			"Percent":  fmt.Sprintf("%.0f", e.Percentage),
			"Attempts": perUser[e.UserID],
		}))
		names = append(names, e.DisplayName)
	}
	sb.WriteString("\n\n")
	sb.WriteString(i18n.T(ctx, "StatsChooseUser"))
	caps := captions(names)
	sb.WriteString("\n" + strings.Join(caps, "\n"))

	f.board = board
	f.stage = editPickStatsUser
	return session.Outcome{Replies: []transport.Outbound{{
		ChatID:   f.chatID,
		Text:     sb.String(),
		Keyboard: selectionKeyboard(ctx, caps),
	}}}
}

func (f *editFlow) handlePickStatsUser(ctx context.Context, text string) session.Outcome {
	idx, ok := parseSelection(text, len(f.board))
	if !ok {
		return f.reply(ctx, i18n.T(ctx, "InvalidSelection"))
	}
	entry := f.board[idx]

	attempts, err := f.b.store.ListAttemptsByTestAndUser(f.test.ID, entry.UserID)
	if err != nil {
		return f.b.fail(ctx, f.chatID, "list user attempts", err)
	}
	best := bestAttempt(attempts)
	if best == nil {
		return f.menu(ctx, i18n.T(ctx, "StatsEmpty"))
	}
	details, err := f.b.store.DetailedResultsForAttempt(best.ID)
	if err != nil {
		return f.b.fail(ctx, f.chatID, "attempt details", err)
	}

	var sb strings.Builder
	sb.WriteString(i18n.Td(ctx, "StatsUserHeader", map[string]any{"Name": entry.DisplayName}))
	for _, d := range details {
		sb.WriteString("\n" + d.QuestionText + "\n  ")
		sb.WriteString(reportLine(ctx, true, d.QuestionIndex, d.UserAnswer, d.CorrectAnswer))
	}
	out := f.menu(ctx, "")
	out.Replies = append([]transport.Outbound{{ChatID: f.chatID, Text: sb.String()}}, out.Replies...)
	return out
}

// bestAttempt picks the highest score; ties keep the earliest attempt,
// which is first in store order.
func bestAttempt(attempts []model.TestResult) *model.TestResult {
	var best *model.TestResult
	for i := range attempts {
		if best == nil || attempts[i].Score > best.Score {
			best = &attempts[i]
		}
	}
	return best
}

func (f *editFlow) reply(ctx context.Context, text string) session.Outcome {
	return session.Outcome{Replies: []transport.Outbound{f.b.message(ctx, f.chatID, text)}}
}
