package extract

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"internwatch/internal/domain"
	"internwatch/internal/scrape/util"

	"github.com/tidwall/gjson"
)

const DefaultJSONLimit = 10

// IDPlaceholder is replaced by the posting id in JSONSpec.LinkTemplate.
const IDPlaceholder = "{id}"

var ErrBadJSON = errors.New("response is not valid JSON")

// JSONSpec maps a JSON search response onto listings. Paths use gjson
// syntax and, except for Items, are relative to one posting.
type JSONSpec struct {
	Source          domain.Source
	Items           string
	Title           string
	Company         string
	Location        string
	Link            string // absolute or relative posting URL
	ID              string // used with LinkTemplate when Link is empty
	LinkTemplate    string
	DefaultLocation string
	Limit           int // postings inspected, before filtering
}

// JSONPostings extracts listings from body. Postings without an intern role
// or a usable link are skipped; a missing Items array is an error.
func JSONPostings(body []byte, spec JSONSpec, pageURL string, now time.Time) ([]domain.Listing, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrBadJSON
	}
	items := gjson.GetBytes(body, spec.Items)
	if !items.IsArray() {
		return nil, fmt.Errorf("no %q array in response", spec.Items)
	}

	limit := spec.Limit
	if limit <= 0 {
		limit = DefaultJSONLimit
	}

	var out []domain.Listing
	for i, item := range items.Array() {
		if i >= limit {
			break
		}
		role := str(item, spec.Title)
		if short := util.Truncate(role, maxRoleLen); domain.IsInternship(short) {
			role = short
		}
		l, err := domain.NewListing(domain.ListingInput{
			Company:         str(item, spec.Company),
			Role:            role,
			Location:        util.NormalizeLocation(str(item, spec.Location)),
			Link:            jsonLink(item, spec, pageURL),
			Source:          spec.Source,
			DefaultLocation: spec.DefaultLocation,
		}, now)
		if err != nil {
			if !errors.Is(err, domain.ErrNotInternship) {
				log.Printf("[extract:%s] posting=%d err=%v", spec.Source, i, err)
			}
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func str(item gjson.Result, path string) string {
	if path == "" {
		return ""
	}
	return util.CleanText(item.Get(path).String())
}

func jsonLink(item gjson.Result, spec JSONSpec, pageURL string) string {
	if href := str(item, spec.Link); href != "" {
		return util.ResolveURL(pageURL, href)
	}
	id := str(item, spec.ID)
	if id == "" || spec.LinkTemplate == "" {
		return ""
	}
	return util.ResolveURL(pageURL, strings.ReplaceAll(spec.LinkTemplate, IDPlaceholder, url.PathEscape(id)))
}
