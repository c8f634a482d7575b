package goquery_parser

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/profile-scraper/internal/entity"
	"github.com/user/profile-scraper/internal/repository"
	"github.com/user/profile-scraper/pkg/utils"
)

var phonePattern = regexp.MustCompile(`\(?\b\d{2}\b\)?\s?\d{4,5}-?\d{4}`)

// DirectoryParser understands the listing and profile pages of the doctor directory.
type DirectoryParser struct{}

func NewDirectoryParser() *DirectoryParser {
	return &DirectoryParser{}
}

// ParseListing extracts the profile cards and the highest page number shown
// by the pagination control.
func (p *DirectoryParser) ParseListing(html, pageURL string) ([]entity.ProfileSummary, int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", repository.ErrParse, err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: bad page url %q: %v", repository.ErrParse, pageURL, err)
	}

	var summaries []entity.ProfileSummary
	doc.Find("calendar-availability-app").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("url")
		if strings.TrimSpace(href) == "" {
			return
		}
		abs, err := utils.ToAbsoluteURL(base, href)
		if err != nil {
			return
		}
		name := strings.TrimSpace(s.AttrOr("result-name", ""))
		if name == "" {
			name = "N/A"
		}
		summaries = append(summaries, entity.ProfileSummary{Name: name, ProfileURL: abs})
	})

	return summaries, lastPage(doc), nil
}

// lastPage returns 0 when the pagination control is missing or has no numeric links.
func lastPage(doc *goquery.Document) int {
	last := 0
	doc.Find(`aside[data-test-id="listing-pagination"] a.page-link`).Each(func(i int, s *goquery.Selection) {
		n, err := strconv.Atoi(strings.TrimSpace(s.Text()))
		if err == nil && n > last {
			last = n
		}
	})
	return last
}

// ParseProfile extracts name, specialty, phone numbers and addresses.
// Missing specialty, phone or address sections are not errors.
func (p *DirectoryParser) ParseProfile(html string) (entity.ProfileFields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return entity.ProfileFields{}, fmt.Errorf("%w: %v", repository.ErrParse, err)
	}

	name := profileName(doc)
	if name == "" {
		return entity.ProfileFields{}, fmt.Errorf("%w: profile name heading not found", repository.ErrParse)
	}

	fields := entity.ProfileFields{
		Name:         name,
		PhoneNumbers: []string{},
		Addresses:    []string{},
	}

	if spec := strings.TrimSpace(doc.Find(`span[data-test-id="doctor-specializations"] a`).First().Text()); spec != "" {
		fields.Specialty = &spec
	}

	doc.Find(`span[itemprop="streetAddress"]`).Each(func(i int, s *goquery.Selection) {
		if addr := collapseSpace(s.Text()); addr != "" {
			fields.Addresses = append(fields.Addresses, addr)
		}
	})

	// Phones are matched against visible text only.
	doc.Find("script, style, noscript").Remove()
	fields.PhoneNumbers = uniqueSorted(phonePattern.FindAllString(doc.Find("body").Text(), -1))

	return fields, nil
}

func profileName(doc *goquery.Document) string {
	for _, sel := range []string{
		`[data-test-id="doctor-header-fullname"]`,
		`h1 [itemprop="name"]`,
		`h1`,
	} {
		if name := collapseSpace(doc.Find(sel).First().Text()); name != "" {
			return name
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

var _ repository.PageParser = (*DirectoryParser)(nil)
