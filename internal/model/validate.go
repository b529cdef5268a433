package model

import (
	"errors"
	"strings"
)

var (
	// ErrBlankTitle is returned for an empty or whitespace-only title.
	ErrBlankTitle = errors.New("title is blank")
	// ErrTitleTooLong is returned when a title exceeds MaxTitleLength runes.
	ErrTitleTooLong = errors.New("title too long")
)

// ValidateTitle checks a test title before any question is attached.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrBlankTitle
	}
	if len([]rune(title)) > MaxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}
