package resty_fetcher

import "strings"

// ChallengeDetector recognises CAPTCHA and bot-challenge pages served with a 2xx status.
type ChallengeDetector struct {
	markers []string
}

func NewChallengeDetector(markers []string) ChallengeDetector {
	lowered := make([]string, 0, len(markers))
	for _, m := range markers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			lowered = append(lowered, m)
		}
	}
	return ChallengeDetector{markers: lowered}
}

// Detect returns the first marker found in body.
func (d ChallengeDetector) Detect(body string) (string, bool) {
	if len(d.markers) == 0 {
		return "", false
	}
	lower := strings.ToLower(body)
	for _, m := range d.markers {
		if strings.Contains(lower, m) {
			return m, true
		}
	}
	return "", false
}
