package entity

import "time"

// OutcomeKind tags a FetchOutcome.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeRetryableFailure
	OutcomeFatalFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryableFailure:
		return "retryable_failure"
	case OutcomeFatalFailure:
		return "fatal_failure"
	default:
		return "unknown"
	}
}

// FetchOutcome is the result of fetching one URL, retries included.
// A RetryableFailure returned to a caller means the retry budget is spent.
type FetchOutcome struct {
	Kind       OutcomeKind
	Content    string
	Err        error
	Attempts   int
	StatusCode int
}

func (o FetchOutcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

// Attempt describes a single underlying request made by the fetcher.
// Delay is the backoff scheduled after this attempt, zero when no retry follows.
type Attempt struct {
	URL        string
	Number     int
	StatusCode int
	Err        error
	Delay      time.Duration
}
