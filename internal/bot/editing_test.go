package bot

import (
	"strings"
	"testing"
)

func openEditMenu(t *testing.T, b *Bot, sender *fakeSender, chatID int64) {
	t.Helper()
	say(b, chatID, "My tests")
	say(b, chatID, "1")
	if !strings.Contains(sender.lastText(t), "What do you want to change?") {
		t.Fatalf("edit menu: %q", sender.lastText(t))
	}
}

func TestEditRenameAndToggle(t *testing.T) {
	b, sender, _ := newTestBot(t)
	u := register(t, b, 1, "editor")
	seedThreeQuestionTest(t, b, u.ID, true)
	openEditMenu(t, b, sender, 1)

	say(b, 1, "Rename")
	say(b, 1, "Algebra")
	last := sender.lastText(t)
	if !strings.Contains(last, "Title updated.") || !strings.Contains(last, `"Algebra"`) {
		t.Errorf("after rename: %q", last)
	}
	test, err := b.store.FindTestByTitleAndCreator("Algebra", u.ID)
	if err != nil || test == nil {
		t.Fatalf("renamed test not found: %v, %v", test, err)
	}

	say(b, 1, "Toggle answer visibility")
	if !strings.Contains(sender.lastText(t), "now hidden") {
		t.Errorf("after toggle: %q", sender.lastText(t))
	}
	test, err = b.store.GetTest(test.ID)
	if err != nil || test == nil || test.ShowAnswers {
		t.Errorf("ShowAnswers not persisted: %+v, %v", test, err)
	}
}

func TestEditMenuRepromptsUnknownInput(t *testing.T) {
	b, sender, _ := newTestBot(t)
	u := register(t, b, 1, "editor")
	seedThreeQuestionTest(t, b, u.ID, true)
	openEditMenu(t, b, sender, 1)

	say(b, 1, "frobnicate")
	last := sender.lastText(t)
	if !strings.Contains(last, "I did not understand that.") {
		t.Errorf("no notice on unknown input: %q", last)
	}
	if !strings.Contains(last, "What do you want to change?") {
		t.Errorf("edit menu not re-shown: %q", last)
	}
}

func TestEditQuestionLifecycle(t *testing.T) {
	b, sender, _ := newTestBot(t)
	u := register(t, b, 1, "editor")
	testID := seedThreeQuestionTest(t, b, u.ID, true)
	openEditMenu(t, b, sender, 1)

	say(b, 1, "Add question")
	say(b, 1, "Q4?")
	if !strings.Contains(sender.lastText(t), "Question added.") {
		t.Fatalf("add question: %q", sender.lastText(t))
	}

	say(b, 1, "Edit question")
	say(b, 1, "4")
	say(b, 1, "Q4 revised?")
	if !strings.Contains(sender.lastText(t), "Question updated.") {
		t.Fatalf("edit question: %q", sender.lastText(t))
	}

	say(b, 1, "Delete question")
	say(b, 1, "1")
	if !strings.Contains(sender.lastText(t), "Question deleted.") {
		t.Fatalf("delete question: %q", sender.lastText(t))
	}

	questions, err := b.store.QuestionsForTest(testID)
	if err != nil {
		t.Fatalf("load questions: %v", err)
	}
	if len(questions) != 3 {
		t.Fatalf("questions = %d, want 3", len(questions))
	}
	texts := make([]string, 0, 3)
	for _, q := range questions {
		texts = append(texts, q.Text)
	}
	joined := strings.Join(texts, " ")
	if strings.Contains(joined, "Q1?") || !strings.Contains(joined, "Q4 revised?") {
		t.Errorf("questions after edits: %v", texts)
	}
}

func TestEditOptionLifecycle(t *testing.T) {
	b, sender, _ := newTestBot(t)
	u := register(t, b, 1, "editor")
	testID := seedThreeQuestionTest(t, b, u.ID, true)
	openEditMenu(t, b, sender, 1)

	say(b, 1, "Add option")
	say(b, 1, "1")
	say(b, 1, "c")
	if !strings.Contains(sender.lastText(t), "Option added.") {
		t.Fatalf("add option: %q", sender.lastText(t))
	}

	say(b, 1, "Set correct option")
	say(b, 1, "1")
	say(b, 1, "3")
	if !strings.Contains(sender.lastText(t), "Correct option updated.") {
		t.Fatalf("set correct: %q", sender.lastText(t))
	}

	questions, err := b.store.QuestionsForTest(testID)
	if err != nil {
		t.Fatalf("load questions: %v", err)
	}
	q1 := questions[0]
	if len(q1.Options) != 3 || q1.CorrectOption() != 3 {
		t.Fatalf("after add+set: options=%d correct=%d", len(q1.Options), q1.CorrectOption())
	}

	// Deleting the first option renumbers the rest densely.
	say(b, 1, "Delete option")
	say(b, 1, "1")
	say(b, 1, "1")
	if !strings.Contains(sender.lastText(t), "Option deleted.") {
		t.Fatalf("delete option: %q", sender.lastText(t))
	}
	questions, err = b.store.QuestionsForTest(testID)
	if err != nil {
		t.Fatalf("reload questions: %v", err)
	}
	q1 = questions[0]
	if len(q1.Options) != 2 {
		t.Fatalf("options = %d, want 2", len(q1.Options))
	}
	for i, o := range q1.Options {
		if o.OptionNumber != i+1 {
			t.Errorf("option %d number = %d", i, o.OptionNumber)
		}
	}
	if q1.CorrectOption() != 2 {
		t.Errorf("correct after renumber = %d, want 2", q1.CorrectOption())
	}
}

func TestEditSelectionReprompts(t *testing.T) {
	b, sender, _ := newTestBot(t)
	u := register(t, b, 1, "editor")
	seedThreeQuestionTest(t, b, u.ID, true)
	openEditMenu(t, b, sender, 1)

	say(b, 1, "Delete question")
	say(b, 1, "nope")
	if !strings.Contains(sender.lastText(t), "No such item") {
		t.Errorf("invalid selection: %q", sender.lastText(t))
	}
	say(b, 1, "9")
	if !strings.Contains(sender.lastText(t), "No such item") {
		t.Errorf("out-of-range selection: %q", sender.lastText(t))
	}

	// Back abandons just the sub-operation.
	say(b, 1, "Back")
	if !strings.Contains(sender.lastText(t), "What do you want to change?") {
		t.Errorf("after back: %q", sender.lastText(t))
	}
	count, err := b.store.QuestionCount(seedTestID(t, b, u.ID))
	if err != nil {
		t.Fatalf("question count: %v", err)
	}
	if count != 3 {
		t.Errorf("questions = %d, want 3 (nothing deleted)", count)
	}
}

func seedTestID(t *testing.T, b *Bot, creatorID int64) int64 {
	t.Helper()
	tests, err := b.store.ListTestsByCreator(creatorID)
	if err != nil || len(tests) == 0 {
		t.Fatalf("list tests: %v, %v", tests, err)
	}
	return tests[0].ID
}

func TestEditDeleteTest(t *testing.T) {
	b, sender, _ := newTestBot(t)
	u := register(t, b, 1, "editor")
	seedThreeQuestionTest(t, b, u.ID, true)
	openEditMenu(t, b, sender, 1)

	say(b, 1, "Delete test")
	if !strings.Contains(sender.lastText(t), "Test deleted.") {
		t.Fatalf("delete test: %q", sender.lastText(t))
	}
	tests, err := b.store.ListTestsByCreator(u.ID)
	if err != nil {
		t.Fatalf("list tests: %v", err)
	}
	if len(tests) != 0 {
		t.Errorf("tests = %d, want 0", len(tests))
	}
}

func TestEditStats(t *testing.T) {
	b, sender, _ := newTestBot(t)
	u := register(t, b, 1, "editor")
	seedThreeQuestionTest(t, b, u.ID, true)

	register(t, b, 2, "taker")
	say(b, 2, "Take a test")
	say(b, 2, "1")
	answerByText(t, b, sender, 2, map[string]string{
		"Q1?": "1",
		"Q2?": "2",
		"Q3?": "1",
	})

	openEditMenu(t, b, sender, 1)
	say(b, 1, "Results")
	last := sender.lastText(t)
	if !strings.Contains(last, "taker: best 2 of 3 (67%), attempts: 1") {
		t.Fatalf("stats: %q", last)
	}

	say(b, 1, "1")
	detail := sender.textFromEnd(t, 1)
	if !strings.Contains(detail, "Answers of taker:") {
		t.Fatalf("details: %q", detail)
	}
	if !strings.Contains(detail, "wrong (your answer: 1, correct: 2)") {
		t.Errorf("detail lines: %q", detail)
	}
}
