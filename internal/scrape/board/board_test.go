package board

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"internwatch/internal/domain"
	"internwatch/internal/scrape/extract"
	"internwatch/internal/scrape/types"
)

const cardsPage = `<html><body>
<div class="card"><h3>Frontend Intern</h3><h4>Acme</h4><span class="loc">Pune</span><a href="/jobs/1">go</a></div>
<div class="card"><h3>Backend Intern</h3><h4>Beta</h4><a href="/jobs/2">go</a></div>
</body></html>`

const emptyPage = `<html><body><div class="other">No results</div></body></html>`

const homePage = `<html><body>
<section><a href="/featured/9">Mobile Intern at Zeta Works</a></section>
</body></html>`

type fakeBoard struct {
	mu    sync.Mutex
	hits  map[string]int
	pages map[string]string
	codes map[string]int
}

func newFakeBoard(t *testing.T, pages map[string]string, codes map[string]int) (*fakeBoard, *httptest.Server) {
	t.Helper()
	fb := &fakeBoard{hits: map[string]int{}, pages: pages, codes: codes}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		fb.hits[r.URL.Path]++
		fb.mu.Unlock()
		if code, ok := fb.codes[r.URL.Path]; ok {
			w.WriteHeader(code)
			return
		}
		body, ok := fb.pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBoard) count(path string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.hits[path]
}

func testSpec(base string) Spec {
	return Spec{
		Source:          domain.SourceNaukri,
		Homepage:        base + "/",
		SearchURLs:      []string{base + "/search/broad", base + "/search/narrow"},
		Cards:           []string{".card"},
		Title:           extract.Rule{Selectors: []string{"h3"}},
		Company:         extract.Rule{Selectors: []string{"h4"}},
		Location:        extract.Rule{Selectors: []string{".loc"}},
		Link:            extract.Rule{Selectors: []string{"a"}, Attr: "href"},
		DefaultLocation: "India",
		GenericCompany:  "Tech Company",
	}
}

func newTestScraper(t *testing.T, srv *httptest.Server) *Scraper {
	t.Helper()
	s, err := New(testSpec(srv.URL), srv.Client(), nil)
	require.NoError(t, err)
	return s
}

func TestFetch_PrimaryShortCircuitsFallback(t *testing.T) {
	fb, srv := newFakeBoard(t, map[string]string{
		"/search/broad":  cardsPage,
		"/search/narrow": cardsPage,
		"/":              homePage,
	}, nil)

	res, err := newTestScraper(t, srv).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.TierPrimary, res.Tier)
	require.Len(t, res.Listings, 2)

	assert.Equal(t, "Frontend Intern", res.Listings[0].Role)
	assert.Equal(t, "Pune", res.Listings[0].Location)
	assert.Equal(t, srv.URL+"/jobs/1", res.Listings[0].Link)
	assert.Equal(t, "India", res.Listings[1].Location)

	assert.Equal(t, 1, fb.count("/search/broad"))
	assert.Equal(t, 0, fb.count("/search/narrow"), "later candidate URLs must not be fetched")
	assert.Equal(t, 0, fb.count("/"), "fallback must not run when primary yields listings")
}

func TestFetch_AdvancesCandidateURLs(t *testing.T) {
	fb, srv := newFakeBoard(t, map[string]string{
		"/search/narrow": cardsPage,
		"/":              homePage,
	}, map[string]int{"/search/broad": http.StatusInternalServerError})

	res, err := newTestScraper(t, srv).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.TierPrimary, res.Tier)
	assert.Len(t, res.Listings, 2)
	assert.Equal(t, 1, fb.count("/search/broad"))
	assert.Equal(t, 1, fb.count("/search/narrow"))
	assert.Equal(t, 0, fb.count("/"))
}

func TestFetch_FallsThroughToTextScan(t *testing.T) {
	fb, srv := newFakeBoard(t, map[string]string{
		"/search/broad":  emptyPage,
		"/search/narrow": emptyPage,
		"/":              homePage,
	}, nil)

	res, err := newTestScraper(t, srv).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.TierFallback, res.Tier)
	require.Len(t, res.Listings, 1)

	l := res.Listings[0]
	assert.Equal(t, "Mobile Intern", l.Role)
	assert.Equal(t, "Zeta Works", l.Company)
	assert.Equal(t, "India", l.Location)
	assert.Equal(t, srv.URL+"/featured/9", l.Link)
	assert.Equal(t, domain.SourceNaukri, l.Source)
	assert.Equal(t, 1, fb.count("/"))
}

func TestFetch_EverythingFailsDegradesToEmpty(t *testing.T) {
	_, srv := newFakeBoard(t, nil, map[string]int{
		"/search/broad":  http.StatusForbidden,
		"/search/narrow": http.StatusForbidden,
		"/":              http.StatusForbidden,
	})

	res, err := newTestScraper(t, srv).Fetch(context.Background())
	require.Error(t, err)
	assert.Empty(t, res.Listings)
	assert.Equal(t, types.TierNone, res.Tier)
	assert.Equal(t, types.KindStatus, types.Classify(err))
	assert.True(t, strings.HasPrefix(err.Error(), "Naukri: "))
}

func TestFetch_CleanButEmpty(t *testing.T) {
	_, srv := newFakeBoard(t, map[string]string{
		"/search/broad":  emptyPage,
		"/search/narrow": emptyPage,
		"/":              emptyPage,
	}, nil)

	res, err := newTestScraper(t, srv).Fetch(context.Background())
	require.Error(t, err)
	assert.Empty(t, res.Listings)
	assert.Equal(t, types.KindEmpty, types.Classify(err))
}

func TestFetch_CanceledContext(t *testing.T) {
	_, srv := newFakeBoard(t, map[string]string{"/search/broad": cardsPage}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newTestScraper(t, srv).Fetch(ctx)
	require.Error(t, err)
	assert.Empty(t, res.Listings)
}

func TestDefaults_AreValid(t *testing.T) {
	specs := Defaults()
	require.Len(t, specs, 5)

	// Pipeline order minus the API-only Greenhouse board.
	assert.Equal(t, domain.Sources[0], domain.SourceGreenhouseStripe)
	for i, s := range specs {
		assert.Equal(t, domain.Sources[i+1], s.Source)
		assert.NoError(t, s.Validate(), s.Source)
		assert.NotEmpty(t, s.DefaultLocation)
		assert.NotEmpty(t, s.ScanLocation())
		assert.NotEmpty(t, s.GenericCompany)
		assert.True(t, s.Limit >= 8 && s.Limit <= 10, "limit for %s", s.Source)
	}
}

func TestSpecValidate(t *testing.T) {
	assert.Error(t, Spec{Source: "Monster", Homepage: "https://x.io"}.Validate())
	assert.Error(t, Spec{Source: domain.SourceGreenhouseStripe, Homepage: "https://x.io"}.Validate())
	assert.Error(t, Spec{Source: domain.SourceSimplyHired}.Validate())
	assert.Error(t, Spec{Source: domain.SourceSimplyHired, SearchURLs: []string{"https://x.io"}}.Validate())
	assert.Error(t, Spec{Source: domain.SourceSimplyHired, Homepage: "https://x.io", CompanyPattern: "("}.Validate())
	assert.NoError(t, Spec{Source: domain.SourceSimplyHired, Homepage: "https://x.io"}.Validate())
}

func TestMerge(t *testing.T) {
	base := Defaults()[1]
	merged := Merge(base, Spec{
		SearchURLs:       []string{"https://internshala.com/internships/python-internship/"},
		FallbackLocation: "Bangalore",
		Limit:            9,
	})
	assert.Equal(t, []string{"https://internshala.com/internships/python-internship/"}, merged.SearchURLs)
	assert.Equal(t, 9, merged.Limit)
	assert.Equal(t, base.Cards, merged.Cards)
	assert.Equal(t, base.DefaultLocation, merged.DefaultLocation)
	assert.Equal(t, "Bangalore", merged.ScanLocation())
	assert.Nil(t, merged.API)

	li := Merge(Defaults()[0], Spec{API: &APISpec{URL: "https://x.io/api", Items: "data", Title: "name", Link: "url"}})
	assert.Equal(t, "https://x.io/api", li.API.URL)
	assert.NoError(t, li.Validate())
}

func TestNew_DerivesHomepage(t *testing.T) {
	spec := testSpec("https://www.naukri.com")
	spec.Homepage = ""
	s, err := New(spec, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://www.naukri.com", s.spec.Homepage)
}

func TestFetch_FallbackUsesScanLocation(t *testing.T) {
	_, srv := newFakeBoard(t, map[string]string{
		"/search/broad":  emptyPage,
		"/search/narrow": emptyPage,
		"/":              homePage,
	}, nil)

	spec := testSpec(srv.URL)
	spec.DefaultLocation = domain.NotSpecified
	spec.FallbackLocation = "India"
	s, err := New(spec, srv.Client(), nil)
	require.NoError(t, err)

	res, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Listings, 1)
	assert.Equal(t, "India", res.Listings[0].Location)
}

const guestJSON = `{"elements":[
 {"job":{"title":"Data Science Intern","companyName":"Acme AI","formattedLocation":"Pune","id":101}},
 {"job":{"title":"Staff Engineer","companyName":"Acme AI","id":102}}
]}`

func apiSpec(base string) Spec {
	spec := testSpec(base)
	spec.Source = domain.SourceLinkedIn
	spec.API = &APISpec{
		URL:          base + "/api/search",
		Items:        "elements",
		Title:        "job.title",
		Company:      "job.companyName",
		Location:     "job.formattedLocation",
		ID:           "job.id",
		LinkTemplate: base + "/jobs/view/{id}",
	}
	return spec
}

func TestFetch_APITierShortCircuits(t *testing.T) {
	fb, srv := newFakeBoard(t, map[string]string{
		"/api/search":   guestJSON,
		"/search/broad": cardsPage,
	}, nil)

	s, err := New(apiSpec(srv.URL), srv.Client(), nil)
	require.NoError(t, err)

	res, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.TierAPI, res.Tier)
	require.Len(t, res.Listings, 1)
	assert.Equal(t, "Data Science Intern", res.Listings[0].Role)
	assert.Equal(t, srv.URL+"/jobs/view/101", res.Listings[0].Link)
	assert.Equal(t, domain.SourceLinkedIn, res.Listings[0].Source)
	assert.Equal(t, 0, fb.count("/search/broad"))
}

func TestFetch_APIFailureFallsToCards(t *testing.T) {
	fb, srv := newFakeBoard(t, map[string]string{
		"/api/search":   `<html>sign in</html>`,
		"/search/broad": cardsPage,
	}, nil)

	s, err := New(apiSpec(srv.URL), srv.Client(), nil)
	require.NoError(t, err)

	res, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.TierPrimary, res.Tier)
	assert.Len(t, res.Listings, 2)
	assert.Equal(t, 1, fb.count("/api/search"))
}

func TestFetch_APIErrorsJoinWhenAllTiersFail(t *testing.T) {
	_, srv := newFakeBoard(t, map[string]string{
		"/search/broad":  emptyPage,
		"/search/narrow": emptyPage,
		"/":              emptyPage,
	}, map[string]int{"/api/search": http.StatusTooManyRequests})

	s, err := New(apiSpec(srv.URL), srv.Client(), nil)
	require.NoError(t, err)

	res, err := s.Fetch(context.Background())
	require.Error(t, err)
	assert.Empty(t, res.Listings)
	assert.Contains(t, err.Error(), "tier=api status=429")
}

func TestSpecValidate_API(t *testing.T) {
	spec := Spec{Source: domain.SourceLinkedIn, Homepage: "https://x.io"}

	spec.API = &APISpec{Items: "elements", Title: "t", Link: "l"}
	assert.Error(t, spec.Validate(), "missing url")

	spec.API = &APISpec{URL: "https://x.io/api", Title: "t", Link: "l"}
	assert.Error(t, spec.Validate(), "missing items")

	spec.API = &APISpec{URL: "https://x.io/api", Items: "e", Title: "t", ID: "id", LinkTemplate: "https://x.io/jobs"}
	assert.Error(t, spec.Validate(), "template without placeholder")

	spec.API = &APISpec{URL: "https://x.io/api", Items: "e", Title: "t", ID: "id", LinkTemplate: "https://x.io/jobs/{id}"}
	assert.NoError(t, spec.Validate())
}
