// Package validators normalizes raw task fields and rejects malformed ones.
//
// Title, description, due date and tag rules are shared by every caller. Priority,
// recurrence and query enums differ per surface: Strict rejects unknown values,
// Lenient replaces them with the default.
package validators

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"todo-service.com/todo-service/internal/constants"
	apperrors "todo-service.com/todo-service/internal/errors"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
)

type Mode int

const (
	ModeStrict Mode = iota
	ModeLenient
)

type Validator struct {
	mode Mode
}

var (
	Strict  = Validator{mode: ModeStrict}
	Lenient = Validator{mode: ModeLenient}
)

func Title(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", apperrors.ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", apperrors.ErrTitleTooLong
	}
	return title, nil
}

func Description(raw string) (string, error) {
	description := strings.TrimSpace(raw)
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return "", apperrors.ErrDescriptionTooLong
	}
	return description, nil
}

// Priority returns the default for an empty value.
func (v Validator) Priority(raw string) (constants.Priority, error) {
	if raw == "" {
		return constants.DefaultPriority, nil
	}
	p := constants.Priority(raw)
	if p.Valid() {
		return p, nil
	}
	if v.mode == ModeLenient {
		return constants.DefaultPriority, nil
	}
	return "", apperrors.Invalid("priority", raw)
}

// Recurrence treats the empty string as "no recurrence".
func (v Validator) Recurrence(raw string) (constants.Recurrence, error) {
	r := constants.Recurrence(raw)
	if r == constants.RecurrenceNone || r.Valid() {
		return r, nil
	}
	if v.mode == ModeLenient {
		return constants.RecurrenceNone, nil
	}
	return "", apperrors.Invalid("recurring", raw)
}

var dueDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// DueDate parses an ISO-8601 timestamp. Values without a zone are read as UTC.
func DueDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperrors.NewInvalidDueDate(raw)
}

func Tag(raw string) (string, error) {
	tag := strings.TrimSpace(raw)
	if tag == "" {
		return "", apperrors.ErrEmptyTag
	}
	return tag, nil
}

// Tags trims every tag, drops blanks and duplicates, and keeps the first-seen order.
func Tags(raw []string) []string {
	tags := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		tag := strings.TrimSpace(r)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// SplitTags parses the comma separated tags query parameter.
func SplitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return Tags(strings.Split(raw, ","))
}

// TaskID canonicalizes an identifier. Anything that cannot be a task id is reported
// as not found so callers cannot tell malformed ids from foreign ones.
func TaskID(raw string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", apperrors.ErrTaskNotFound
	}
	return id.String(), nil
}
