package bot

import (
	"strings"
	"testing"

	"github.com/avoronkov/quizbot/internal/model"
)

// seedThreeQuestionTest stores a test whose correct options are 1, 2, 2
// for questions Q1, Q2, Q3.
func seedThreeQuestionTest(t *testing.T, b *Bot, creatorID int64, show bool) int64 {
	t.Helper()
	questions := []model.Question{
		{Text: "Q1?", Options: []model.AnswerOption{
			{Text: "a", OptionNumber: 1, IsCorrect: true},
			{Text: "b", OptionNumber: 2},
		}},
		{Text: "Q2?", Options: []model.AnswerOption{
			{Text: "a", OptionNumber: 1},
			{Text: "b", OptionNumber: 2, IsCorrect: true},
		}},
		{Text: "Q3?", Options: []model.AnswerOption{
			{Text: "a", OptionNumber: 1},
			{Text: "b", OptionNumber: 2, IsCorrect: true},
		}},
	}
	test := model.Test{Title: "Quiz", Status: model.StatusPublished, ShowAnswers: show}
	id, err := b.store.CreateTestWithQuestions(creatorID, test, questions)
	if err != nil {
		t.Fatalf("seed test: %v", err)
	}
	return id
}

// answerByText replies to the currently shown question, looking its
// intended answer up by question text. Questions arrive shuffled.
func answerByText(t *testing.T, b *Bot, sender *fakeSender, chatID int64, answers map[string]string) string {
	t.Helper()
	seen := make(map[string]bool)
	for range answers {
		prompt := sender.lastText(t)
		var matched string
		for q := range answers {
			if strings.Contains(prompt, q) {
				matched = q
				break
			}
		}
		if matched == "" {
			t.Fatalf("prompt matches no known question: %q", prompt)
		}
		if seen[matched] {
			t.Fatalf("question %q presented twice", matched)
		}
		seen[matched] = true
		say(b, chatID, answers[matched])
	}
	if len(seen) != len(answers) {
		t.Fatalf("presented %d questions, want %d", len(seen), len(answers))
	}
	// The attempt report is the second-to-last message, before the menu.
	return sender.textFromEnd(t, 1)
}

func TestTakingScoresAndReports(t *testing.T) {
	b, sender, _ := newTestBot(t)
	creator := register(t, b, 1, "creator")
	seedThreeQuestionTest(t, b, creator.ID, true)
	register(t, b, 2, "taker")

	say(b, 2, "Take a test")
	if !strings.Contains(sender.lastText(t), "1) Quiz") {
		t.Fatalf("test list: %q", sender.lastText(t))
	}
	say(b, 2, "1")

	// Answers 1, 2, 1 against correct options 1, 2, 2.
	report := answerByText(t, b, sender, 2, map[string]string{
		"Q1?": "1",
		"Q2?": "2",
		"Q3?": "1",
	})
	if !strings.Contains(report, "Your score: 2 of 3 (67%)") {
		t.Errorf("report: %q", report)
	}
	if strings.Count(report, "correct (your answer:") != 2 {
		t.Errorf("want 2 detailed correct lines, got: %q", report)
	}
	if !strings.Contains(report, "wrong (your answer: 1, correct: 2)") {
		t.Errorf("missing detailed wrong line: %q", report)
	}
	for _, q := range []string{"Q1?", "Q2?", "Q3?"} {
		if !strings.Contains(report, "\n"+q+"\n") {
			t.Fatalf("report misses question text %s: %q", q, report)
		}
	}
	// The verdict sits on the line right below its question text.
	q3 := report[strings.Index(report, "Q3?"):]
	if !strings.Contains(strings.SplitN(q3, "\n", 3)[1], "wrong") {
		t.Errorf("wrong verdict not under its question: %q", report)
	}
	if !strings.Contains(report, `Leaderboard for "Quiz"`) {
		t.Errorf("missing leaderboard: %q", report)
	}
}

func TestTakingHidesAnswersWhenDisabled(t *testing.T) {
	b, sender, _ := newTestBot(t)
	creator := register(t, b, 1, "creator")
	seedThreeQuestionTest(t, b, creator.ID, false)
	register(t, b, 2, "taker")

	say(b, 2, "Take a test")
	say(b, 2, "1")
	report := answerByText(t, b, sender, 2, map[string]string{
		"Q1?": "1",
		"Q2?": "1",
		"Q3?": "1",
	})
	// Verdicts show, option numbers do not.
	if !strings.Contains(report, ". correct") || !strings.Contains(report, ". wrong") {
		t.Errorf("missing verdicts: %q", report)
	}
	if strings.Contains(report, "your answer") || strings.Contains(report, "correct:") {
		t.Errorf("answers leaked: %q", report)
	}
}

func TestTakingRepromptsInvalidAnswer(t *testing.T) {
	b, sender, _ := newTestBot(t)
	creator := register(t, b, 1, "creator")
	seedThreeQuestionTest(t, b, creator.ID, true)
	register(t, b, 2, "taker")

	say(b, 2, "Take a test")
	say(b, 2, "1")
	first := sender.lastText(t)

	say(b, 2, "nine")
	if !strings.Contains(sender.lastText(t), "between 1 and 2") {
		t.Errorf("invalid answer: %q", sender.lastText(t))
	}
	say(b, 2, "3")
	if !strings.Contains(sender.lastText(t), "between 1 and 2") {
		t.Errorf("out-of-range answer: %q", sender.lastText(t))
	}

	// Still on the same question.
	say(b, 2, "1")
	next := sender.lastText(t)
	if next == first {
		t.Errorf("question did not advance after a valid answer")
	}
	if !strings.Contains(next, "Question 2 of 3") {
		t.Errorf("expected second question, got %q", next)
	}
}

func TestLeaderboardTagsCreator(t *testing.T) {
	b, sender, _ := newTestBot(t)
	creator := register(t, b, 1, "creator")
	seedThreeQuestionTest(t, b, creator.ID, true)

	say(b, 1, "Take a test")
	say(b, 1, "1")
	report := answerByText(t, b, sender, 1, map[string]string{
		"Q1?": "1",
		"Q2?": "2",
		"Q3?": "2",
	})
	if !strings.Contains(report, "Your score: 3 of 3 (100%)") {
		t.Errorf("perfect run: %q", report)
	}
	if !strings.Contains(report, "(author)") {
		t.Errorf("creator tag missing: %q", report)
	}
}
