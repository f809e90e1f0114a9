package extract

import (
	"log"
	"time"

	"internwatch/internal/domain"
	"internwatch/internal/scrape/util"

	"github.com/PuerkitoBio/goquery"
)

const DefaultLimit = 8

// CardSpec describes the structured listing cards of one board page.
type CardSpec struct {
	Source          domain.Source
	Cards           []string // candidate card selectors, tried in order
	Title           Rule
	Company         Rule
	Location        Rule
	Link            Rule
	DefaultLocation string
	Limit           int
}

// Cards runs the primary structured scrape over doc. The first card selector
// that matches any element decides the card set; later candidates are only
// consulted when earlier ones match nothing at all.
func Cards(doc *goquery.Document, spec CardSpec, pageURL string, now time.Time) []domain.Listing {
	limit := spec.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	var cards *goquery.Selection
	for _, sel := range spec.Cards {
		if found := doc.Find(sel); found.Length() > 0 {
			cards = found
			break
		}
	}
	if cards == nil {
		return nil
	}

	var out []domain.Listing
	cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
		if l, ok := cardListing(card, spec, pageURL, now, i); ok {
			out = append(out, l)
		}
		return len(out) < limit
	})
	return out
}

func cardListing(card *goquery.Selection, spec CardSpec, pageURL string, now time.Time, idx int) (l domain.Listing, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[extract:%s] card=%d panic=%v", spec.Source, idx, rec)
			l, ok = domain.Listing{}, false
		}
	}()

	company := spec.Company.First(card)
	if company == "" || company == domain.UnknownCompany {
		return domain.Listing{}, false
	}

	role := spec.Title.First(card)
	if short := util.Truncate(role, maxRoleLen); domain.IsInternship(short) {
		role = short
	}

	l, err := domain.NewListing(domain.ListingInput{
		Company:         company,
		Role:            role,
		Location:        util.NormalizeLocation(spec.Location.First(card)),
		Link:            util.ResolveURL(pageURL, spec.Link.First(card)),
		Source:          spec.Source,
		DefaultLocation: spec.DefaultLocation,
	}, now)
	if err != nil {
		return domain.Listing{}, false
	}
	return l, true
}
