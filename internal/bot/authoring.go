package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/avoronkov/quizbot/internal/i18n"
	"github.com/avoronkov/quizbot/internal/importer"
	"github.com/avoronkov/quizbot/internal/model"
	"github.com/avoronkov/quizbot/internal/session"
	"github.com/avoronkov/quizbot/internal/transport"
)

const (
	minQuestions = 1
	maxQuestions = 50
	minOptions   = 2
	maxOptions   = 10
)

type createStage int

const (
	createTitle createStage = iota
	createVisibility
	createMode
	createAwaitDoc
	createQuestionCount
	createQuestionText
	createOptionCount
	createOptionText
	createChooseCorrect
)

// createFlow collects a complete test before a single commit. Nothing is
// persisted until the last question is finished or a document parses.
type createFlow struct {
	b      *Bot
	chatID int64
	user   *model.User

	stage createStage
	title string
	show  bool

	qty       int
	optQty    int
	current   model.Question
	questions []model.Question
}

func (f *createFlow) Handle(ctx context.Context, in transport.Inbound) session.Outcome {
	if f.stage == createAwaitDoc {
		return f.handleDocument(ctx, in)
	}
	handlers := map[createStage]func(context.Context, string) session.Outcome{
		createTitle:         f.handleTitle,
		createVisibility:    f.handleVisibility,
		createMode:          f.handleMode,
		createQuestionCount: f.handleQuestionCount,
		createQuestionText:  f.handleQuestionText,
		createOptionCount:   f.handleOptionCount,
		createOptionText:    f.handleOptionText,
		createChooseCorrect: f.handleChooseCorrect,
	}
	return handlers[f.stage](ctx, strings.TrimSpace(in.Text))
}

func (f *createFlow) handleTitle(ctx context.Context, text string) session.Outcome {
	switch err := model.ValidateTitle(text); {
	case errors.Is(err, model.ErrBlankTitle):
		return f.reply(ctx, i18n.T(ctx, "TitleBlank")+"\n"+i18n.T(ctx, "CreateTitlePrompt"))
	case errors.Is(err, model.ErrTitleTooLong):
		return f.reply(ctx, i18n.Td(ctx, "TitleTooLong", map[string]any{"Max": model.MaxTitleLength}))
	}
	f.title = strings.TrimSpace(text)
	f.stage = createVisibility
	return session.Outcome{Replies: []transport.Outbound{{
		ChatID:   f.chatID,
		Text:     i18n.T(ctx, "CreateVisibilityPrompt"),
		Keyboard: rows(ctx, []string{"BtnYes", "BtnNo"}, []string{"BtnCancel"}),
	}}}
}

func (f *createFlow) handleVisibility(ctx context.Context, text string) session.Outcome {
	switch {
	case is(ctx, text, "BtnYes"):
		f.show = true
	case is(ctx, text, "BtnNo"):
		f.show = false
	default:
		return session.Outcome{Replies: []transport.Outbound{{
			ChatID:   f.chatID,
			Text:     i18n.T(ctx, "CreateVisibilityPrompt"),
			Keyboard: rows(ctx, []string{"BtnYes", "BtnNo"}, []string{"BtnCancel"}),
		}}}
	}
	f.stage = createMode
	return session.Outcome{Replies: []transport.Outbound{{
		ChatID:   f.chatID,
		Text:     i18n.T(ctx, "CreateModePrompt"),
		Keyboard: rows(ctx, []string{"BtnModeManual", "BtnModeUpload"}, []string{"BtnCancel"}),
	}}}
}

func (f *createFlow) handleMode(ctx context.Context, text string) session.Outcome {
	switch {
	case is(ctx, text, "BtnModeManual"):
		f.stage = createQuestionCount
		return f.reply(ctx, i18n.Td(ctx, "CreateQuestionCount",
			map[string]any{"Min": minQuestions, "Max": maxQuestions}))
	case is(ctx, text, "BtnModeUpload"):
		f.stage = createAwaitDoc
		return f.reply(ctx, i18n.T(ctx, "UploadPrompt"))
	}
	return session.Outcome{Replies: []transport.Outbound{{
		ChatID:   f.chatID,
		Text:     i18n.T(ctx, "CreateModePrompt"),
		Keyboard: rows(ctx, []string{"BtnModeManual", "BtnModeUpload"}, []string{"BtnCancel"}),
	}}}
}

func (f *createFlow) handleQuestionCount(ctx context.Context, text string) session.Outcome {
	n, out := f.number(ctx, text, minQuestions, maxQuestions)
	if out != nil {
		return *out
	}
	f.qty = n
	f.stage = createQuestionText
	return f.promptQuestionText(ctx)
}

func (f *createFlow) promptQuestionText(ctx context.Context) session.Outcome {
	return f.reply(ctx, i18n.Td(ctx, "CreateQuestionText",
		map[string]any{"Index": len(f.questions) + 1}))
}

func (f *createFlow) handleQuestionText(ctx context.Context, text string) session.Outcome {
	if text == "" {
		return f.reply(ctx, i18n.T(ctx, "TextBlank") + "\n" +
			i18n.Td(ctx, "CreateQuestionText", map[string]any{"Index": len(f.questions) + 1}))
	}
	f.current = model.Question{Text: text}
	f.stage = createOptionCount
	return f.reply(ctx, i18n.Td(ctx, "CreateOptionCount",
		map[string]any{"Min": minOptions, "Max": maxOptions}))
}

func (f *createFlow) handleOptionCount(ctx context.Context, text string) session.Outcome {
	n, out := f.number(ctx, text, minOptions, maxOptions)
	if out != nil {
		return *out
	}
	f.optQty = n
	f.stage = createOptionText
	return f.reply(ctx, i18n.Td(ctx, "CreateOptionText", map[string]any{"Index": 1}))
}

func (f *createFlow) handleOptionText(ctx context.Context, text string) session.Outcome {
	idx := len(f.current.Options) + 1
	if text == "" {
		return f.reply(ctx, i18n.T(ctx, "TextBlank") + "\n" +
			i18n.Td(ctx, "CreateOptionText", map[string]any{"Index": idx}))
	}
	f.current.Options = append(f.current.Options, model.AnswerOption{
		Text:         text,
		OptionNumber: idx,
	})
	if len(f.current.Options) < f.optQty {
		return f.reply(ctx, i18n.Td(ctx, "CreateOptionText",
			map[string]any{"Index": len(f.current.Options) + 1}))
	}
	f.stage = createChooseCorrect
	return f.reply(ctx, i18n.Td(ctx, "CreateChooseCorrect", map[string]any{"Max": f.optQty}))
}

func (f *createFlow) handleChooseCorrect(ctx context.Context, text string) session.Outcome {
	n, out := f.number(ctx, text, 1, f.optQty)
	if out != nil {
		return *out
	}
	f.current.Options[n-1].IsCorrect = true
	f.questions = append(f.questions, f.current)
	f.current = model.Question{}

	if len(f.questions) < f.qty {
		f.stage = createQuestionText
		return f.promptQuestionText(ctx)
	}
	return f.commit(ctx, f.questions)
}

func (f *createFlow) handleDocument(ctx context.Context, in transport.Inbound) session.Outcome {
	if in.Document == nil {
		return f.reply(ctx, i18n.T(ctx, "UploadNotADocument"))
	}
	ext, err := importer.Validate(in.Document.Name, in.Document.Size)
	switch {
	case errors.Is(err, importer.ErrUnsupportedType):
		return f.reply(ctx, i18n.T(ctx, "UploadUnsupportedType"))
	case errors.Is(err, importer.ErrFileTooLarge):
		return f.reply(ctx, i18n.Td(ctx, "UploadTooLarge",
			map[string]any{"Max": importer.MaxFileSize >> 20}))
	}

	data, err := f.b.files.Retrieve(ctx, *in.Document)
	if err != nil {
		return f.reply(ctx, i18n.T(ctx, "UploadFailed"))
	}
	lines, err := importer.ExtractLines(data, ext)
	if err != nil {
		return f.reply(ctx, i18n.T(ctx, "UploadFailed"))
	}
	questions, err := importer.Parse(lines)
	if errors.Is(err, importer.ErrNoQuestions) {
		return f.reply(ctx, i18n.T(ctx, "UploadNoQuestions"))
	}
	if err != nil {
		return f.reply(ctx, i18n.T(ctx, "UploadFailed"))
	}
	return f.commit(ctx, questions)
}

func (f *createFlow) commit(ctx context.Context, questions []model.Question) session.Outcome {
	test := model.Test{
		Title:       f.title,
		Description: "by " + f.user.DisplayName(),
		Status:      model.StatusPublished,
		ShowAnswers: f.show,
	}
	if _, err := f.b.store.CreateTestWithQuestions(f.user.ID, test, questions); err != nil {
		return f.b.fail(ctx, f.chatID, "create test", err)
	}
	done := i18n.Td(ctx, "CreateSuccess",
		map[string]any{"Title": f.title, "Count": len(questions)})
	return session.Outcome{
		Replies: []transport.Outbound{f.b.mainMenu(ctx, f.chatID, done)},
		Exit:    true,
	}
}

// number parses a bounded integer reply. The second return value, when
// non-nil, is the re-prompt outcome to return as is.
func (f *createFlow) number(ctx context.Context, text string, min, max int) (int, *session.Outcome) {
	n, err := strconv.Atoi(text)
	if err != nil {
		out := f.reply(ctx, i18n.T(ctx, "NotANumber"))
		return 0, &out
	}
	if n < min || n > max {
		out := f.reply(ctx, i18n.Td(ctx, "NumberRange", map[string]any{"Min": min, "Max": max}))
		return 0, &out
	}
	return n, nil
}

func (f *createFlow) reply(ctx context.Context, text string) session.Outcome {
	return session.Outcome{Replies: []transport.Outbound{f.b.message(ctx, f.chatID, text)}}
}
