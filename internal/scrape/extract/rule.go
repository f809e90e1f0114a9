// Package extract turns parsed board pages into listings. Everything here is
// a pure function over a goquery document so it can be driven by fixtures.
package extract

import (
	"strings"

	"internwatch/internal/scrape/util"

	"github.com/PuerkitoBio/goquery"
)

// Self selects the matched element itself instead of a descendant.
const Self = "."

// Rule is an ordered list of candidate selectors for one field. The first
// candidate that yields a non-empty value wins.
type Rule struct {
	Selectors []string `yaml:"selectors"`
	Attr      string   `yaml:"attr,omitempty"` // empty reads text
}

func (r Rule) Empty() bool { return len(r.Selectors) == 0 }

// First evaluates the rule inside s.
func (r Rule) First(s *goquery.Selection) string {
	for _, sel := range r.Selectors {
		sel = strings.TrimSpace(sel)
		if sel == "" {
			continue
		}

		var found *goquery.Selection
		if sel == Self {
			found = s
		} else {
			found = s.Find(sel)
		}

		var v string
		found.EachWithBreak(func(_ int, el *goquery.Selection) bool {
			v = read(el, r.Attr)
			return v == ""
		})
		if v != "" {
			return v
		}
	}
	return ""
}

func read(el *goquery.Selection, attr string) string {
	if attr == "" {
		return util.CleanText(el.Text())
	}
	v, _ := el.Attr(attr)
	return strings.TrimSpace(v)
}
