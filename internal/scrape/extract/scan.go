package extract

import (
	"regexp"
	"strings"
	"time"

	"internwatch/internal/domain"
	"internwatch/internal/scrape/util"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	DefaultScanMatches = 5

	maxRoleLen = 140
)

// DefaultCompanyPattern captures the capitalized words after "at", as in
// "Software Intern at Acme Labs".
var DefaultCompanyPattern = regexp.MustCompile(`\b(?:at|At|AT)\s+([A-Z0-9][\w&.'-]*(?:\s+[A-Z0-9][\w&.'-]*){0,4})`)

// ScanSpec drives the best-effort text scan used when no cards matched.
type ScanSpec struct {
	Source          domain.Source
	MaxMatches      int
	CompanyPattern  *regexp.Regexp
	GenericCompany  string
	DefaultLocation string
}

// TextScan looks for text nodes mentioning an internship and pairs each of
// the first MaxMatches hits with its enclosing or adjacent link.
func TextScan(doc *goquery.Document, spec ScanSpec, pageURL string, now time.Time) []domain.Listing {
	limit := spec.MaxMatches
	if limit <= 0 {
		limit = DefaultScanMatches
	}
	re := spec.CompanyPattern
	if re == nil {
		re = DefaultCompanyPattern
	}

	var out []domain.Listing
	matches := 0
	seen := map[*html.Node]bool{}

	doc.Find("body").Find("*").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		switch goquery.NodeName(el) {
		case "script", "style", "noscript", "template":
			return true
		}

		el.Contents().EachWithBreak(func(_ int, c *goquery.Selection) bool {
			if goquery.NodeName(c) != "#text" {
				return true
			}
			text := util.CleanText(c.Text())
			if !domain.IsInternship(text) {
				return true
			}

			anchor := el.Closest("a[href]")
			if anchor.Length() > 0 {
				n := anchor.Get(0)
				if seen[n] {
					return true
				}
				seen[n] = true
				text = util.CleanText(anchor.Text())
			} else {
				anchor = adjacentLink(el)
			}

			matches++
			if l, ok := scanListing(text, anchor, spec, re, pageURL, now); ok {
				out = append(out, l)
			}
			return matches < limit
		})
		return matches < limit
	})
	return out
}

func adjacentLink(el *goquery.Selection) *goquery.Selection {
	if a := el.Find("a[href]").First(); a.Length() > 0 {
		return a
	}
	if a := el.NextAllFiltered("a[href]").First(); a.Length() > 0 {
		return a
	}
	parent := el.Parent()
	if a := parent.Find("a[href]").First(); a.Length() > 0 {
		return a
	}
	return parent.NextAll().Find("a[href]").First()
}

func scanListing(text string, anchor *goquery.Selection, spec ScanSpec, re *regexp.Regexp, pageURL string, now time.Time) (domain.Listing, bool) {
	if anchor.Length() == 0 {
		return domain.Listing{}, false
	}
	href, _ := anchor.Attr("href")

	role := text
	company := spec.GenericCompany
	if m := re.FindStringSubmatchIndex(text); m != nil {
		company = strings.TrimSpace(text[m[2]:m[3]])
		if head := strings.TrimSpace(text[:m[0]]); domain.IsInternship(head) {
			role = strings.TrimRight(head, " -|,")
		}
	}

	if short := util.Truncate(role, maxRoleLen); domain.IsInternship(short) {
		role = short
	}

	l, err := domain.NewListing(domain.ListingInput{
		Company:         company,
		Role:            role,
		Link:            util.ResolveURL(pageURL, href),
		Source:          spec.Source,
		DefaultLocation: spec.DefaultLocation,
	}, now)
	if err != nil {
		return domain.Listing{}, false
	}
	return l, true
}
