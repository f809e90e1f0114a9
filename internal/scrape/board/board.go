// Package board scrapes HTML job boards through an ordered strategy chain:
// an optional JSON search endpoint, a structured card scrape over candidate
// search pages, then a best-effort text scan of the homepage. Each tier runs
// only when every earlier tier yielded nothing.
package board

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"internwatch/internal/domain"
	"internwatch/internal/scrape/extract"
	"internwatch/internal/scrape/types"
	"internwatch/internal/scrape/util"
)

// Spec is everything board-specific. The control flow is shared.
type Spec struct {
	Source          domain.Source `yaml:"source"`
	Homepage        string        `yaml:"homepage"`
	SearchURLs      []string      `yaml:"search_urls"` // broad to narrow
	Cards           []string      `yaml:"cards"`
	Title           extract.Rule  `yaml:"title"`
	Company         extract.Rule  `yaml:"company"`
	Location        extract.Rule  `yaml:"location"`
	Link            extract.Rule  `yaml:"link"`
	DefaultLocation string        `yaml:"default_location"`
	// FallbackLocation is stamped on text-scan listings; empty means
	// DefaultLocation.
	FallbackLocation string `yaml:"fallback_location"`
	GenericCompany   string `yaml:"generic_company"`
	CompanyPattern   string `yaml:"company_pattern"`
	Limit            int    `yaml:"limit"`

	// API, when set, is tried before the card scrape.
	API *APISpec `yaml:"api,omitempty"`
}

// APISpec describes a JSON search endpoint. Paths use gjson syntax; the
// field paths are relative to one element of Items.
type APISpec struct {
	URL             string `yaml:"url"`
	Items           string `yaml:"items"`
	Title           string `yaml:"title"`
	Company         string `yaml:"company"`
	Location        string `yaml:"location"`
	Link            string `yaml:"link,omitempty"`
	ID              string `yaml:"id,omitempty"`
	LinkTemplate    string `yaml:"link_template,omitempty"` // "{id}" is replaced
	DefaultLocation string `yaml:"default_location"`
	Limit           int    `yaml:"limit"`
}

func (a APISpec) validate() error {
	switch {
	case a.URL == "":
		return errors.New("api.url is required")
	case a.Items == "" || a.Title == "":
		return errors.New("api.items and api.title are required")
	case a.Link == "" && (a.ID == "" || !strings.Contains(a.LinkTemplate, extract.IDPlaceholder)):
		return fmt.Errorf("api needs link, or id with a link_template containing %s", extract.IDPlaceholder)
	}
	return nil
}

// CardSpec is the primary-tier view of s.
func (s Spec) CardSpec() extract.CardSpec {
	return extract.CardSpec{
		Source:          s.Source,
		Cards:           s.Cards,
		Title:           s.Title,
		Company:         s.Company,
		Location:        s.Location,
		Link:            s.Link,
		DefaultLocation: s.DefaultLocation,
		Limit:           s.Limit,
	}
}

// ScanLocation is the location stamped on text-scan listings.
func (s Spec) ScanLocation() string {
	if s.FallbackLocation != "" {
		return s.FallbackLocation
	}
	return s.DefaultLocation
}

// Validate reports the first problem that would make the spec unusable.
func (s Spec) Validate() error {
	switch {
	case !s.Source.Valid():
		return fmt.Errorf("board %q: %w", s.Source, domain.ErrUnknownSource)
	case s.Source == domain.SourceGreenhouseStripe:
		return fmt.Errorf("board %q is served by the API fetcher", s.Source)
	case len(s.SearchURLs) == 0 && s.Homepage == "":
		return fmt.Errorf("board %q: needs search_urls or homepage", s.Source)
	case len(s.SearchURLs) > 0 && (len(s.Cards) == 0 || s.Title.Empty() || s.Link.Empty()):
		return fmt.Errorf("board %q: cards, title and link rules are required with search_urls", s.Source)
	}
	if s.CompanyPattern != "" {
		if _, err := regexp.Compile(s.CompanyPattern); err != nil {
			return fmt.Errorf("board %q: company_pattern: %w", s.Source, err)
		}
	}
	if s.API != nil {
		if err := s.API.validate(); err != nil {
			return fmt.Errorf("board %q: %w", s.Source, err)
		}
	}
	return nil
}

type strategy struct {
	tier types.Tier
	run  func(ctx context.Context) ([]domain.Listing, error)
}

type Scraper struct {
	spec    Spec
	hc      *http.Client
	limiter *util.HostLimiter
	now     func() time.Time
	tag     string
	pattern *regexp.Regexp
}

func New(spec Spec, hc *http.Client, limiter *util.HostLimiter) (*Scraper, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if hc == nil {
		hc = &http.Client{Timeout: 20 * time.Second}
	}
	if spec.Homepage == "" && len(spec.SearchURLs) > 0 {
		spec.Homepage = util.Origin(spec.SearchURLs[0])
	}

	s := &Scraper{
		spec:    spec,
		hc:      hc,
		limiter: limiter,
		now:     time.Now,
		tag:     "board:" + strings.ToLower(string(spec.Source)),
	}
	if spec.CompanyPattern != "" {
		s.pattern = regexp.MustCompile(spec.CompanyPattern)
	}
	return s, nil
}

func (s *Scraper) Name() domain.Source { return s.spec.Source }

func (s *Scraper) strategies() []strategy {
	var chain []strategy
	if s.spec.API != nil {
		chain = append(chain, strategy{tier: types.TierAPI, run: s.api})
	}
	return append(chain,
		strategy{tier: types.TierPrimary, run: s.primary},
		strategy{tier: types.TierFallback, run: s.fallback},
	)
}

// Fetch walks the strategy chain and stops at the first tier that yields
// at least one listing.
func (s *Scraper) Fetch(ctx context.Context) (types.ScrapeResult, error) {
	res := types.ScrapeResult{Source: s.Name(), Tier: types.TierNone}

	var errs []error
	for _, st := range s.strategies() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		listings, err := st.run(ctx)
		if len(listings) > 0 {
			log.Printf("[%s] tier=%s listings=%d", s.tag, st.tier, len(listings))
			res.Listings = listings
			res.Tier = st.tier
			return res, nil
		}
		if err != nil {
			errs = append(errs, err)
		}
		log.Printf("[%s] tier=%s yielded nothing, falling through", s.tag, st.tier)
	}

	if len(errs) == 0 {
		errs = append(errs, types.ErrEmpty)
	}
	return res, fmt.Errorf("%s: %w", s.Name(), errors.Join(errs...))
}

func (s *Scraper) api(ctx context.Context) ([]domain.Listing, error) {
	a := s.spec.API
	body, err := util.GetJSONBody(ctx, s.hc, s.limiter, a.URL)
	if err != nil {
		log.Printf("[%s] api=%s err=%v", s.tag, a.URL, err)
		return nil, s.tagged(err, types.TierAPI)
	}

	listings, err := extract.JSONPostings(body, extract.JSONSpec{
		Source:          s.spec.Source,
		Items:           a.Items,
		Title:           a.Title,
		Company:         a.Company,
		Location:        a.Location,
		Link:            a.Link,
		ID:              a.ID,
		LinkTemplate:    a.LinkTemplate,
		DefaultLocation: a.DefaultLocation,
		Limit:           a.Limit,
	}, a.URL, s.now())
	if err != nil {
		log.Printf("[%s] api=%s parse err=%v", s.tag, a.URL, err)
		return nil, &types.FetchError{Source: s.Name(), Tier: types.TierAPI, URL: a.URL, Kind: types.KindParse, Err: err}
	}
	log.Printf("[%s] api=%s accepted=%d", s.tag, a.URL, len(listings))
	return listings, nil
}

func (s *Scraper) primary(ctx context.Context) ([]domain.Listing, error) {
	if len(s.spec.SearchURLs) == 0 {
		return nil, nil
	}

	spec := s.spec.CardSpec()

	var errs []error
	for _, u := range s.spec.SearchURLs {
		doc, err := util.GetDocument(ctx, s.hc, s.limiter, u)
		if err != nil {
			log.Printf("[%s] url=%s err=%v", s.tag, u, err)
			errs = append(errs, s.tagged(err, types.TierPrimary))
			continue
		}

		listings := extract.Cards(doc, spec, u, s.now())
		log.Printf("[%s] url=%s accepted=%d", s.tag, u, len(listings))
		if len(listings) > 0 {
			return listings, nil
		}
	}
	return nil, errors.Join(errs...)
}

func (s *Scraper) fallback(ctx context.Context) ([]domain.Listing, error) {
	if s.spec.Homepage == "" {
		return nil, nil
	}

	doc, err := util.GetDocument(ctx, s.hc, s.limiter, s.spec.Homepage)
	if err != nil {
		log.Printf("[%s] homepage=%s err=%v", s.tag, s.spec.Homepage, err)
		return nil, s.tagged(err, types.TierFallback)
	}

	listings := extract.TextScan(doc, extract.ScanSpec{
		Source:          s.spec.Source,
		CompanyPattern:  s.pattern,
		GenericCompany:  s.spec.GenericCompany,
		DefaultLocation: s.spec.ScanLocation(),
	}, s.spec.Homepage, s.now())
	log.Printf("[%s] homepage=%s scanned=%d", s.tag, s.spec.Homepage, len(listings))
	return listings, nil
}

func (s *Scraper) tagged(err error, tier types.Tier) error {
	var fe *types.FetchError
	if errors.As(err, &fe) {
		fe.Source = s.Name()
		fe.Tier = tier
	}
	return err
}
