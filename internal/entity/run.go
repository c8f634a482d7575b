package entity

import (
	"fmt"
	"time"
)

// Mode selects what a run scrapes.
type Mode string

const (
	ModeNew    Mode = "new"
	ModeUpdate Mode = "update"
)

// ParseMode accepts "new" or "update"; the empty string means ModeNew.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeNew:
		return ModeNew, nil
	case ModeUpdate:
		return ModeUpdate, nil
	}
	return "", fmt.Errorf("unknown mode %q (want %q or %q)", s, ModeNew, ModeUpdate)
}

// State is a stage of a run.
type State string

const (
	StateIdle        State = "idle"
	StateDiscovering State = "discovering"
	StateCollecting  State = "collecting"
	StateExtracting  State = "extracting"
	StatePersisting  State = "persisting"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// FailedItem is a URL that did not make it into the store.
type FailedItem struct {
	URL    string    `json:"url"`
	Kind   ErrorKind `json:"kind"`
	Reason string    `json:"reason"`
}

// RunReport summarises a single run.
type RunReport struct {
	RunID       string       `json:"run_id"`
	Mode        Mode         `json:"mode"`
	State       State        `json:"state"`
	SearchURL   string       `json:"search_url,omitempty"`
	Pages       int          `json:"pages"`
	FailedPages []FailedItem `json:"failed_pages,omitempty"`
	Discovered  int          `json:"discovered"`
	Skipped     int          `json:"skipped"`
	Attempted   int          `json:"attempted"`
	Added       int          `json:"added"`
	Updated     int          `json:"updated"`
	Failed      int          `json:"failed"`
	FailedURLs  []FailedItem `json:"failed_urls,omitempty"`
	Error       string       `json:"error,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  time.Time    `json:"finished_at"`
}
