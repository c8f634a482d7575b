package repository

import (
	"context"

	"github.com/user/profile-scraper/internal/entity"
)

// PageFetcher issues a GET with retries and reports a classified outcome.
type PageFetcher interface {
	Get(ctx context.Context, url string) entity.FetchOutcome
}

// PageParser turns raw markup into profile data for one site layout.
type PageParser interface {
	// ParseListing returns the profile cards on a listing page and the last
	// page number advertised by its pagination control, 0 when there is none.
	ParseListing(html, pageURL string) ([]entity.ProfileSummary, int, error)
	// ParseProfile extracts the detail fields of a profile page. Errors wrap ErrParse.
	ParseProfile(html string) (entity.ProfileFields, error)
}
