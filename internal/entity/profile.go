package entity

import "time"

// ProfileSummary is a profile card discovered on a listing page.
type ProfileSummary struct {
	Name       string `json:"name"`
	ProfileURL string `json:"profile_url"`
}

// ProfileFields holds the values a parser pulls out of a profile page.
type ProfileFields struct {
	Name         string
	Specialty    *string
	PhoneNumbers []string
	Addresses    []string
}

// ProfileRecord mirrors the `profiles` table. ProfileURL is the primary key.
type ProfileRecord struct {
	ProfileURL    string    `json:"profile_url"`
	Name          string    `json:"name"`
	Specialty     *string   `json:"specialty,omitempty"`
	PhoneNumbers  []string  `json:"phone_numbers"`
	Addresses     []string  `json:"addresses"`
	LastScrapedAt time.Time `json:"last_scraped_at"`
}

// NewProfileRecord builds a record for url from parsed fields. Missing
// multi-valued sections become empty sequences.
func NewProfileRecord(url string, fields ProfileFields, scrapedAt time.Time) *ProfileRecord {
	rec := &ProfileRecord{
		ProfileURL:    url,
		Name:          fields.Name,
		Specialty:     fields.Specialty,
		PhoneNumbers:  fields.PhoneNumbers,
		Addresses:     fields.Addresses,
		LastScrapedAt: scrapedAt.UTC(),
	}
	rec.Normalize()
	return rec
}

// Normalize replaces nil slices with empty ones.
func (r *ProfileRecord) Normalize() {
	if r.PhoneNumbers == nil {
		r.PhoneNumbers = []string{}
	}
	if r.Addresses == nil {
		r.Addresses = []string{}
	}
}
