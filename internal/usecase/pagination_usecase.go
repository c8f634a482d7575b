package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/user/profile-scraper/internal/entity"
	"github.com/user/profile-scraper/internal/repository"
	"github.com/user/profile-scraper/pkg/utils"
)

// ErrDiscovery means page 1 of the search could not be fetched; the run cannot start.
var ErrDiscovery = errors.New("pagination discovery failed")

// Discovery is what a run learns from the first listing page.
type Discovery struct {
	Pages        int
	FirstPageURL string
	FirstPage    []entity.ProfileSummary
}

// PaginationDiscoverer walks the listing pages of a search.
type PaginationDiscoverer struct {
	fetcher repository.PageFetcher
	parser  repository.PageParser
	logger  *zap.Logger
}

func NewPaginationDiscoverer(fetcher repository.PageFetcher, parser repository.PageParser, logger *zap.Logger) *PaginationDiscoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaginationDiscoverer{fetcher: fetcher, parser: parser, logger: logger}
}

// Discover fetches page 1 once and returns the total page count, never less
// than 1. A missing or malformed pagination control counts as a single page.
func (d *PaginationDiscoverer) Discover(ctx context.Context, searchURL string) (*Discovery, error) {
	pageURL, summaries, hint, err := d.fetchListing(ctx, searchURL, 1)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}

	pages := max(1, hint)
	d.logger.Info("pagination discovered",
		zap.String("url", pageURL),
		zap.Int("pages", pages),
		zap.Int("first_page_profiles", len(summaries)),
	)
	return &Discovery{Pages: pages, FirstPageURL: pageURL, FirstPage: summaries}, nil
}

// FetchPage returns the profile cards listed on one page of the search.
func (d *PaginationDiscoverer) FetchPage(ctx context.Context, searchURL string, page int) (string, []entity.ProfileSummary, error) {
	pageURL, summaries, _, err := d.fetchListing(ctx, searchURL, page)
	return pageURL, summaries, err
}

func (d *PaginationDiscoverer) fetchListing(ctx context.Context, searchURL string, page int) (string, []entity.ProfileSummary, int, error) {
	pageURL, err := utils.PageURL(searchURL, page)
	if err != nil {
		return searchURL, nil, 0, fmt.Errorf("%w: %q: %v", repository.ErrInvalidURL, searchURL, err)
	}

	out := d.fetcher.Get(ctx, pageURL)
	if !out.OK() {
		return pageURL, nil, 0, fmt.Errorf("listing page %d: %w", page, out.Err)
	}

	summaries, hint, err := d.parser.ParseListing(out.Content, pageURL)
	if err != nil {
		// an unreadable listing still counts as one page with no cards
		d.logger.Warn("listing page did not parse", zap.String("url", pageURL), zap.Error(err))
		return pageURL, nil, 0, nil
	}
	return pageURL, summaries, hint, nil
}
