package entity

import "time"

// FailedURL is a row of the failure ledger.
type FailedURL struct {
	URL            string    `json:"url"`
	Kind           ErrorKind `json:"kind"`
	Reason         string    `json:"reason"`
	HTTPStatusCode int       `json:"http_status_code,omitempty"`
	Attempts       int       `json:"attempts"`
	FailureCount   int       `json:"failure_count"`
	LastAttemptAt  time.Time `json:"last_attempt_at"`
}
