package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO 8601 calendar-date layout used on the wire.
const DateLayout = "2006-01-02"

// Kind classifies a deliverable.
type Kind string

// Known kinds. Anything else is rejected by ParseKind.
const (
	KindHomework Kind = "homework"
	KindExam     Kind = "exam"
	KindQuiz     Kind = "quiz"
	KindLab      Kind = "lab"
	KindOther    Kind = "other"
)

// Kinds lists the known kinds in display order.
var Kinds = []Kind{KindHomework, KindExam, KindQuiz, KindLab, KindOther}

// Validation errors.
var (
	ErrEmptyTitle  = errors.New("title is required")
	ErrInvalidDate = errors.New("date must be a valid YYYY-MM-DD calendar date")
	ErrInvalidKind = errors.New("type must be one of homework, exam, quiz, lab, other")
)

// ParseKind returns the Kind for s. Matching is case-insensitive and ignores
// surrounding whitespace.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time.
// Impossible dates such as 2025-02-30 are rejected.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// Event is a single calendar deliverable. Values are never mutated after
// construction; use New to build one from raw fields.
type Event struct {
	Title       string
	Date        time.Time // UTC midnight, no time-of-day component
	Kind        Kind
	Description string
}

// New validates the raw fields and returns an Event.
func New(title, date, kind, description string) (Event, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Event{}, ErrEmptyTitle
	}

	d, err := ParseDate(date)
	if err != nil {
		return Event{}, err
	}

	k, err := ParseKind(kind)
	if err != nil {
		return Event{}, err
	}

	return Event{
		Title:       title,
		Date:        d,
		Kind:        k,
		Description: description,
	}, nil
}

// DateString returns the event date formatted as YYYY-MM-DD.
func (e Event) DateString() string {
	return e.Date.Format(DateLayout)
}

// wireEvent is the JSON shape shared with the mobile clients.
type wireEvent struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// MarshalJSON implements json.Marshaler.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEvent{
		Title:       e.Title,
		Date:        e.DateString(),
		Type:        string(e.Kind),
		Description: e.Description,
	})
}

// UnmarshalJSON implements json.Unmarshaler and validates the payload.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	ev, err := New(w.Title, w.Date, w.Type, w.Description)
	if err != nil {
		return err
	}
	*e = ev
	return nil
}
