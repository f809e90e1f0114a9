package domain

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Source tags the board a listing came from.
type Source string

const (
	SourceGreenhouseStripe Source = "Greenhouse-Stripe"
	SourceLinkedIn         Source = "LinkedIn"
	SourceInternshala      Source = "Internshala"
	SourceWeWorkRemotely   Source = "WeWorkRemotely"
	SourceSimplyHired      Source = "SimplyHired"
	SourceNaukri           Source = "Naukri"
)

// Sources lists every known board in pipeline order.
var Sources = []Source{
	SourceGreenhouseStripe,
	SourceLinkedIn,
	SourceInternshala,
	SourceWeWorkRemotely,
	SourceSimplyHired,
	SourceNaukri,
}

func (s Source) Valid() bool {
	for _, k := range Sources {
		if s == k {
			return true
		}
	}
	return false
}

const (
	UnknownCompany = "Unknown Company"
	NotSpecified   = "Not specified"

	internToken = "intern"
)

var (
	ErrNotInternship = errors.New("role is not an internship")
	ErrNoLink        = errors.New("no resolvable link")
	ErrUnknownSource = errors.New("unknown source")
)

// Listing is one normalized internship posting. Treat as a value; nothing
// mutates a Listing after NewListing returns it.
type Listing struct {
	Company   string    `json:"company"`
	Role      string    `json:"role"`
	Location  string    `json:"location"`
	Link      string    `json:"link"`
	Source    Source    `json:"source"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// ListingInput carries raw extracted fields before validation. Link must
// already be resolved against the board origin.
type ListingInput struct {
	Company         string
	Role            string
	Location        string
	Link            string
	Source          Source
	DefaultLocation string
}

// IsInternship reports whether s contains the internship token, ignoring case.
func IsInternship(s string) bool {
	return strings.Contains(strings.ToLower(s), internToken)
}

// NewListing validates raw fields and builds a Listing.
func NewListing(in ListingInput, now time.Time) (Listing, error) {
	if !in.Source.Valid() {
		return Listing{}, ErrUnknownSource
	}

	role := clean(in.Role)
	if !IsInternship(role) {
		return Listing{}, ErrNotInternship
	}

	link := strings.TrimSpace(in.Link)
	if !IsAbsoluteWebURL(link) {
		return Listing{}, ErrNoLink
	}

	company := clean(in.Company)
	if company == "" {
		company = UnknownCompany
	}

	loc := clean(in.Location)
	if loc == "" {
		loc = clean(in.DefaultLocation)
	}
	if loc == "" {
		loc = NotSpecified
	}

	return Listing{
		Company:   company,
		Role:      role,
		Location:  loc,
		Link:      link,
		Source:    in.Source,
		ScrapedAt: now.Truncate(time.Second),
	}, nil
}

// IsAbsoluteWebURL reports whether s is a scheme-qualified http(s) URL with a host.
func IsAbsoluteWebURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func clean(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}
