package greenhouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"internwatch/internal/domain"
	"internwatch/internal/scrape/types"
	"internwatch/internal/scrape/util"
)

const (
	DefaultAPIBase  = "https://boards-api.greenhouse.io/v1/boards/stripe"
	DefaultCompany  = "Stripe"
	DefaultLocation = domain.NotSpecified
)

type Config struct {
	APIBase  string // jobs live at <APIBase>/jobs
	Company  string // display name
	Location string // used when a posting has no location
}

type Scraper struct {
	cfg     Config
	hc      *http.Client
	limiter *util.HostLimiter
	now     func() time.Time
}

func New(cfg Config, hc *http.Client, limiter *util.HostLimiter) *Scraper {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.Company == "" {
		cfg.Company = DefaultCompany
	}
	if cfg.Location == "" {
		cfg.Location = DefaultLocation
	}
	if hc == nil {
		hc = &http.Client{Timeout: 20 * time.Second}
	}
	return &Scraper{
		cfg:     cfg,
		hc:      hc,
		limiter: limiter,
		now:     time.Now,
	}
}

func (s *Scraper) Name() domain.Source { return domain.SourceGreenhouseStripe }

type envelope struct {
	Jobs []json.RawMessage `json:"jobs"`
}

type posting struct {
	ID       int64   `json:"id"`
	Title    *string `json:"title"`
	Location *struct {
		Name string `json:"name"`
	} `json:"location"`
	AbsoluteURL string `json:"absolute_url"`
	UpdatedAt   string `json:"updated_at"`
}

var errNoTitle = errors.New("posting has no title")

func (s *Scraper) Fetch(ctx context.Context) (types.ScrapeResult, error) {
	res := types.ScrapeResult{Source: s.Name(), Tier: types.TierNone}

	apiURL := strings.TrimRight(s.cfg.APIBase, "/") + "/jobs"

	var env envelope
	if err := util.GetJSON(ctx, s.hc, s.limiter, apiURL, &env); err != nil {
		return res, s.wrap(err)
	}
	if env.Jobs == nil {
		return res, &types.FetchError{
			Source: s.Name(), Tier: types.TierAPI, URL: apiURL,
			Kind: types.KindParse, Err: errors.New("envelope has no jobs list"),
		}
	}

	now := s.now()
	skipped := 0
	for i, raw := range env.Jobs {
		l, err := s.listing(raw, now)
		if err != nil {
			if !errors.Is(err, domain.ErrNotInternship) {
				skipped++
				log.Printf("[greenhouse] skip posting=%d err=%v", i, err)
			}
			continue
		}
		res.Listings = append(res.Listings, l)
	}

	log.Printf("[greenhouse] postings=%d internships=%d malformed=%d", len(env.Jobs), len(res.Listings), skipped)
	if len(res.Listings) == 0 {
		return res, &types.FetchError{Source: s.Name(), Tier: types.TierAPI, URL: apiURL, Kind: types.KindEmpty, Err: types.ErrEmpty}
	}
	res.Tier = types.TierAPI
	return res, nil
}

func (s *Scraper) listing(raw json.RawMessage, now time.Time) (domain.Listing, error) {
	var p posting
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.Listing{}, fmt.Errorf("decode posting: %w", err)
	}
	if p.Title == nil {
		return domain.Listing{}, errNoTitle
	}

	loc := ""
	if p.Location != nil {
		loc = util.NormalizeLocation(p.Location.Name)
	}

	return domain.NewListing(domain.ListingInput{
		Company:         s.cfg.Company,
		Role:            *p.Title,
		Location:        loc,
		Link:            util.ResolveURL(s.cfg.APIBase, p.AbsoluteURL),
		Source:          s.Name(),
		DefaultLocation: s.cfg.Location,
	}, now)
}

func (s *Scraper) wrap(err error) error {
	var fe *types.FetchError
	if errors.As(err, &fe) {
		fe.Source = s.Name()
		fe.Tier = types.TierAPI
		return fe
	}
	return &types.FetchError{Source: s.Name(), Tier: types.TierAPI, Kind: types.KindUnknown, Err: err}
}
