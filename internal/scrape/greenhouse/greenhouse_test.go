package greenhouse

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"internwatch/internal/domain"
	"internwatch/internal/scrape/types"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/boards/stripe/jobs", r.URL.Path)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newScraper(srv *httptest.Server) *Scraper {
	return New(Config{APIBase: srv.URL + "/v1/boards/stripe"}, srv.Client(), nil)
}

func TestFetch_SkipsMalformedPostingKeepsSiblings(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"jobs": [
		{"id": 1, "title": "Software Engineering Intern", "location": {"name": "San Francisco, CA"}, "absolute_url": "https://boards.greenhouse.io/stripe/jobs/1"},
		{"id": 2, "location": {"name": "Dublin"}, "absolute_url": "https://boards.greenhouse.io/stripe/jobs/2"},
		{"id": 3, "title": "Data Science Intern", "absolute_url": "https://boards.greenhouse.io/stripe/jobs/3"},
		{"id": 4, "title": "PhD Machine Learning Intern", "location": {"name": ""}, "absolute_url": "https://boards.greenhouse.io/stripe/jobs/4"},
		{"id": 5, "title": "Finance Intern", "location": {"name": "Toronto"}, "absolute_url": "https://boards.greenhouse.io/stripe/jobs/5"}
	]}`)

	res, err := newScraper(srv).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.TierAPI, res.Tier)
	require.Len(t, res.Listings, 4)

	first := res.Listings[0]
	assert.Equal(t, "Stripe", first.Company)
	assert.Equal(t, "Software Engineering Intern", first.Role)
	assert.Equal(t, "San Francisco, CA", first.Location)
	assert.Equal(t, "https://boards.greenhouse.io/stripe/jobs/1", first.Link)
	assert.Equal(t, domain.SourceGreenhouseStripe, first.Source)

	assert.Equal(t, domain.NotSpecified, res.Listings[1].Location)
	assert.Equal(t, domain.NotSpecified, res.Listings[2].Location)
	assert.Equal(t, "Finance Intern", res.Listings[3].Role)
}

func TestFetch_FiltersNonInternships(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"jobs": [
		{"title": "Staff Engineer", "absolute_url": "https://boards.greenhouse.io/stripe/jobs/10"},
		{"title": "Legal Intern", "absolute_url": "https://boards.greenhouse.io/stripe/jobs/11"},
		{"title": "Recruiting Intern", "absolute_url": ""},
		"not an object"
	]}`)

	res, err := newScraper(srv).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Listings, 1)
	assert.Equal(t, "Legal Intern", res.Listings[0].Role)
}

func TestFetch_TransportFailuresDegradeToEmpty(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   string
	}{
		{"non-2xx", http.StatusServiceUnavailable, "down", types.KindStatus},
		{"malformed envelope", http.StatusOK, "<html>", types.KindParse},
		{"missing jobs list", http.StatusOK, `{"meta": {}}`, types.KindParse},
		{"no internships", http.StatusOK, `{"jobs": []}`, types.KindEmpty},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := serve(t, tc.status, tc.body)
			res, err := newScraper(srv).Fetch(context.Background())
			require.Error(t, err)
			assert.Empty(t, res.Listings)
			assert.Equal(t, domain.SourceGreenhouseStripe, res.Source)

			var fe *types.FetchError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tc.kind, fe.Kind)
			assert.Equal(t, domain.SourceGreenhouseStripe, fe.Source)
			assert.True(t, strings.HasSuffix(fe.URL, "/jobs"))
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	s := New(Config{}, nil, nil)
	assert.Equal(t, DefaultAPIBase, s.cfg.APIBase)
	assert.Equal(t, "Stripe", s.cfg.Company)
	assert.Equal(t, "Not specified", s.cfg.Location)
	assert.NotNil(t, s.hc)
}
