// Package report renders collected listings into the Telegram summary.
package report

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"internwatch/internal/domain"
)

// MaxMessageLen is Telegram's sendMessage text limit.
const MaxMessageLen = 4096

const blockSep = "\n\n"

// NoResults is the message sent when a run collected nothing.
func NoResults(at time.Time) string {
	return fmt.Sprintf("🔍 <b>Internship update</b> (%s)\n\nNo internships found in this run. Will check again next time.",
		at.Format("2006-01-02 15:04"))
}

// Group splits listings by source, keeping first-appearance order of
// sources and emission order within each source.
func Group(listings []domain.Listing) (order []domain.Source, bySource map[domain.Source][]domain.Listing) {
	bySource = make(map[domain.Source][]domain.Listing)
	for _, l := range listings {
		if _, ok := bySource[l.Source]; !ok {
			order = append(order, l.Source)
		}
		bySource[l.Source] = append(bySource[l.Source], l)
	}
	return order, bySource
}

// Build renders the populated report: a summary with total and per-source
// counts, then one itemized section per source. All free text is escaped
// for Telegram's HTML parse mode.
func Build(listings []domain.Listing, at time.Time) string {
	order, bySource := Group(listings)

	var b strings.Builder
	fmt.Fprintf(&b, "🎯 <b>Internship update</b> (%s)\n", at.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "📊 <b>Summary</b>\nTotal internships: %d", len(listings))
	for _, src := range order {
		fmt.Fprintf(&b, "\n• %s: %d", esc(string(src)), len(bySource[src]))
	}

	for _, src := range order {
		b.WriteString(blockSep)
		fmt.Fprintf(&b, "🏢 <b>%s</b>", esc(string(src)))
		for i, l := range bySource[src] {
			b.WriteString(blockSep)
			b.WriteString(item(i+1, l))
		}
	}
	return b.String()
}

func item(n int, l domain.Listing) string {
	return fmt.Sprintf("%d. <b>%s</b>\n🏢 Company: %s\n📍 Location: %s\n🔗 <a href=\"%s\">Apply</a>",
		n, esc(l.Role), esc(l.Company), esc(l.Location), esc(l.Link))
}

func esc(s string) string { return html.EscapeString(s) }

var (
	anchorRe = regexp.MustCompile(`<a href="([^"]*)">[^<]*</a>`)
	tagRe    = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
)

// plain drops markup from a block so it can be cut anywhere. Links keep
// their target as visible text. Entities are left escaped.
func plain(block string) string {
	block = anchorRe.ReplaceAllString(block, "$1")
	return tagRe.ReplaceAllString(block, "")
}

// Split breaks text into chunks of at most limit bytes, cutting only at
// block boundaries. A single block longer than limit loses its markup and
// is hard-cut, never inside a rune or an entity.
func Split(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageLen
	}
	if len(text) <= limit {
		return []string{text}
	}

	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}

	for _, block := range strings.Split(text, blockSep) {
		if len(block) > limit {
			block = plain(block)
		}
		for len(block) > limit {
			flush()
			cut := safeCut(block, limit)
			if cut == 0 {
				cut = headLen(block)
			}
			out = append(out, block[:cut])
			block = block[cut:]
		}
		if cur.Len() > 0 && cur.Len()+len(blockSep)+len(block) > limit {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString(blockSep)
		}
		cur.WriteString(block)
	}
	flush()
	return out
}

// maxEntityLen covers every entity html.EscapeString emits.
const maxEntityLen = 6

// safeCut backs off so neither a UTF-8 sequence nor an entity is split.
func safeCut(s string, n int) int {
	for n > 0 && n < len(s) && s[n]&0xC0 == 0x80 {
		n--
	}
	lo := n - maxEntityLen
	if lo < 0 {
		lo = 0
	}
	if i := strings.LastIndexByte(s[lo:n], '&'); i >= 0 && !strings.Contains(s[lo+i:n], ";") {
		n = lo + i
	}
	return n
}

// headLen is the length of the leading entity or rune of s.
func headLen(s string) int {
	if strings.HasPrefix(s, "&") {
		if end := strings.IndexByte(s, ';'); end > 0 && end < maxEntityLen {
			return end + 1
		}
	}
	_, n := utf8.DecodeRuneInString(s)
	return n
}
