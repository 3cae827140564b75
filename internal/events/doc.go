// Package events defines the calendar deliverable shared by the export and
// sync paths, together with the validation that turns untrusted candidate
// events into well-formed values.
//
// An Event is a plain value: a title, an all-day date, a kind and an
// optional description. Lists of events are ordered and that order is
// preserved by every consumer in this module.
//
// Candidate events come from the extraction collaborator (see Extractor),
// which is best-effort and non-deterministic. FromCandidates is the single
// gate between that output and the rest of the system:
//
//	valid, rejected := events.FromCandidates(candidates)
//	for _, r := range rejected {
//	    logger.Warn("dropping candidate event", "index", r.Index, "reason", r.Reason)
//	}
package events
