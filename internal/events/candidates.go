package events

import (
	"context"
	"encoding/json"
	"fmt"
)

// Candidate is an unvalidated event as produced by the extraction
// collaborator. Every field may be missing or malformed.
type Candidate struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Extractor turns free text (usually a syllabus) into candidate events.
// Implementations are external, best-effort and may return zero candidates.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]Candidate, error)
}

// Rejected describes a candidate that failed validation.
type Rejected struct {
	Index     int       `json:"index"`
	Candidate Candidate `json:"candidate"`
	Reason    string    `json:"reason"`
}

// FromCandidates validates candidates in order. Valid ones are returned as
// events in their original relative order; the rest are reported as rejected.
func FromCandidates(candidates []Candidate) ([]Event, []Rejected) {
	valid := make([]Event, 0, len(candidates))
	var rejected []Rejected

	for i, c := range candidates {
		ev, err := New(c.Title, c.Date, c.Type, c.Description)
		if err != nil {
			rejected = append(rejected, Rejected{Index: i, Candidate: c, Reason: err.Error()})
			continue
		}
		valid = append(valid, ev)
	}

	return valid, rejected
}

// DecodeList decodes a JSON array of events, failing on the first invalid
// entry. It is used for payloads that must already be well-formed, such as
// client requests and stored caches.
func DecodeList(data []byte) ([]Event, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}

	list := make([]Event, 0, len(raw))
	for i, r := range raw {
		var ev Event
		if err := json.Unmarshal(r, &ev); err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		list = append(list, ev)
	}
	return list, nil
}
