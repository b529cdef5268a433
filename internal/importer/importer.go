// Package importer turns an uploaded document into the same question
// aggregate that manual authoring produces. Lines are classified one by
// one into question starts, answer options, and correct-answer markers.
package importer

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/avoronkov/quizbot/internal/model"
)

// MaxFileSize is the upper bound on an uploaded document.
const MaxFileSize = 20 << 20

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
	ErrNoQuestions     = errors.New("no questions found")
)

var supportedExts = map[string]bool{"txt": true, "docx": true, "pdf": true}

// Ext returns the lower-cased extension of a file name, without the dot.
func Ext(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// Validate checks the file name and declared size before any retrieval or
// extraction is attempted.
func Validate(name string, size int64) (string, error) {
	ext := Ext(name)
	if !supportedExts[ext] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	if size > MaxFileSize {
		return "", ErrFileTooLarge
	}
	return ext, nil
}

var (
	// A line that names the correct option of the open question, e.g.
	// "Answer: 2" or "Правильный 3".
	answerMarkerRe = regexp.MustCompile(`(?i)^(ответ|правильн|answer|correct).*\d`)
	digitRe        = regexp.MustCompile(`\d+`)
	// Leading enumeration such as "1)", "a.", "б -".
	enumRe = regexp.MustCompile(`^[\p{L}\p{N}]+[).\s-]+`)
	// Inline correctness words and the "+" marker, stripped from option text.
	correctWordRe = regexp.MustCompile(`(?i)(правильн.*|ответ.*|answer.*|correct.*)|\+`)
)

func isCorrectMarker(line string) bool {
	l := strings.ToLower(line)
	return strings.Contains(l, "+") ||
		strings.Contains(l, "правильн") ||
		strings.HasPrefix(l, "ответ") ||
		strings.HasPrefix(l, "answer") ||
		strings.HasPrefix(l, "correct")
}

// Parse classifies trimmed, non-empty lines into questions with options.
// It returns ErrNoQuestions when the stream yields nothing usable.
func Parse(lines []string) ([]model.Question, error) {
	var result []model.Question
	var current *model.Question
	var opts []model.AnswerOption

	finalize := func() {
		if current == nil {
			return
		}
		if len(opts) > 0 && noneCorrect(opts) {
			opts[0].IsCorrect = true
		}
		current.Options = opts
		result = append(result, *current)
		current = nil
		opts = nil
	}

	for _, ln := range lines {
		if strings.HasSuffix(ln, "?") {
			finalize()
			current = &model.Question{Text: ln}
			continue
		}

		if current == nil {
			// Not inside a question block yet.
			continue
		}

		if answerMarkerRe.MatchString(ln) {
			if m := digitRe.FindString(ln); m != "" {
				n, _ := strconv.Atoi(m)
				if n >= 1 && n <= len(opts) {
					opts[n-1].IsCorrect = true
				}
			}
			finalize()
			continue
		}

		clean := enumRe.ReplaceAllString(ln, "")
		clean = strings.TrimSpace(correctWordRe.ReplaceAllString(clean, ""))
		if clean == "" {
			continue
		}

		// The first explicitly marked option wins; later markers in the
		// same block are treated as plain options.
		opts = append(opts, model.AnswerOption{
			Text:         clean,
			OptionNumber: len(opts) + 1,
			IsCorrect:    isCorrectMarker(ln) && noneCorrect(opts),
		})
	}
	finalize()

	if len(result) == 0 {
		return nil, ErrNoQuestions
	}
	return result, nil
}

func noneCorrect(opts []model.AnswerOption) bool {
	for _, o := range opts {
		if o.IsCorrect {
			return false
		}
	}
	return true
}
