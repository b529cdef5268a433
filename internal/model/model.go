package model

import (
	"strings"
	"time"
)

// MaxTitleLength is the upper bound on a test title.
const MaxTitleLength = 100

// TestStatus represents the lifecycle state of a test.
type TestStatus string

const (
	StatusDraft     TestStatus = "draft"
	StatusPublished TestStatus = "published"
	StatusClosed    TestStatus = "closed"
)

// User represents a registered account. ChatID is non-nil while the user
// is bound to a chat.
type User struct {
	ID           int64
	Username     string
	FullName     string
	PasswordHash string
	ChatID       *int64
	CreatedAt    time.Time
}

// DisplayName returns the full name, falling back to the username.
func (u User) DisplayName() string {
	if strings.TrimSpace(u.FullName) != "" {
		return u.FullName
	}
	return u.Username
}

// Test is an authored quiz owned by its creator.
type Test struct {
	ID          int64
	Title       string
	Description string
	Status      TestStatus
	ShowAnswers bool
	CreatorID   int64
}

// Question belongs to a test and carries its options in option-number order.
type Question struct {
	ID      int64
	TestID  int64
	Text    string
	Options []AnswerOption
}

// CorrectOption returns the 1-based number of the option flagged correct,
// or 0 if none is flagged.
func (q Question) CorrectOption() int {
	for _, o := range q.Options {
		if o.IsCorrect {
			return o.OptionNumber
		}
	}
	return 0
}

// AnswerOption is one choice of a question. OptionNumber is 1-based and
// kept dense within the question.
type AnswerOption struct {
	ID           int64
	QuestionID   int64
	Text         string
	OptionNumber int
	IsCorrect    bool
}

// TestResult is one completed attempt. Never mutated after creation.
type TestResult struct {
	ID          int64
	UserID      int64
	TestID      int64
	Score       int
	MaxScore    int
	CompletedAt time.Time
}

// Percentage returns the attempt's score as a percentage of its maximum.
func (r TestResult) Percentage() float64 {
	if r.MaxScore == 0 {
		return 0
	}
	return float64(r.Score) * 100 / float64(r.MaxScore)
}

// DetailedResult records one question of an attempt, in the order the
// question was presented during that attempt.
type DetailedResult struct {
	ID            int64
	ResultID      int64
	QuestionID    int64
	QuestionIndex int
	QuestionText  string
	UserAnswer    int
	CorrectAnswer int
	Points        int
}

// LeaderboardEntry is one user's best attempt at a test.
type LeaderboardEntry struct {
	UserID      int64
	DisplayName string
	Score       int
	MaxScore    int
	Percentage  float64
	IsCreator   bool
}
