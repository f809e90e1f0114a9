package types

import (
	"context"
	"errors"
	"fmt"

	"internwatch/internal/domain"
)

// Tier names the extraction strategy that produced a result.
type Tier string

const (
	TierNone     Tier = "none"
	TierAPI      Tier = "api"
	TierPrimary  Tier = "primary"
	TierFallback Tier = "fallback"
)

type ScrapeResult struct {
	Source   domain.Source
	Listings []domain.Listing
	Tier     Tier
}

// Fetcher is one board. Fetch returns whatever it could recover; a non-nil
// error explains why the result is empty or partial and is never fatal.
type Fetcher interface {
	Name() domain.Source
	Fetch(ctx context.Context) (ScrapeResult, error)
}

// Error kinds used in logs and the run journal.
const (
	KindTransport = "transport"
	KindStatus    = "status"
	KindParse     = "parse"
	KindEmpty     = "empty"
	KindPanic     = "panic"
	KindUnknown   = "unknown"
)

// ErrEmpty marks a strategy that ran cleanly but matched nothing.
var ErrEmpty = errors.New("no listings extracted")

type FetchError struct {
	Source domain.Source
	Tier   Tier
	URL    string
	Status int
	Kind   string
	Err    error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Source, e.Kind)
	if e.Tier != "" {
		msg += " tier=" + string(e.Tier)
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" status=%d", e.Status)
	}
	if e.URL != "" {
		msg += " url=" + e.URL
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// Classify maps an error returned by a fetcher to one of the Kind constants.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	var fe *FetchError
	if errors.As(err, &fe) && fe.Kind != "" {
		return fe.Kind
	}
	if errors.Is(err, ErrEmpty) {
		return KindEmpty
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransport
	}
	return KindUnknown
}
