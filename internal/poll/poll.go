// Package poll runs one collection pass: every fetcher in fixed order, then
// a single report handed to the notifier.
package poll

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"internwatch/internal/domain"
	"internwatch/internal/notify"
	"internwatch/internal/report"
	"internwatch/internal/scrape/types"

	"golang.org/x/sync/errgroup"
)

const DefaultDelay = 2 * time.Second

// Status values recorded for a run.
const (
	StatusDelivered      = "delivered"
	StatusDeliveryFailed = "delivery_failed"
	StatusNoResults      = "no_results"
	StatusNoResultsLost  = "no_results_undelivered"
	StatusAborted        = "aborted"
)

type SourceResult struct {
	Source  domain.Source
	Count   int
	Tier    types.Tier
	ErrKind string
	Err     error
}

// Outcome is what one run produced. Found and Delivered are independent so
// callers can tell "nothing to report" from "report not delivered".
type Outcome struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Listings   []domain.Listing
	Sources    []SourceResult
	Found      bool
	Delivered  bool
	Err        error
}

// OK reports overall success, which is delivery success.
func (o Outcome) OK() bool { return o.Delivered }

func (o Outcome) Status() string {
	switch {
	case o.Err != nil && !o.Found && o.Sources == nil:
		return StatusAborted
	case o.Found && o.Delivered:
		return StatusDelivered
	case o.Found:
		return StatusDeliveryFailed
	case o.Delivered:
		return StatusNoResults
	default:
		return StatusNoResultsLost
	}
}

// Journal records finished runs. Failures are logged, never fatal.
type Journal interface {
	RecordRun(ctx context.Context, o Outcome) error
}

type Runner struct {
	Fetchers   []types.Fetcher
	Notifier   notify.Notifier
	Delay      time.Duration // pause between fetchers
	Concurrent bool
	Journal    Journal

	// Hooks, defaulted when nil.
	Sleep  func(ctx context.Context, d time.Duration) error
	Now    func() time.Time
	Format func(listings []domain.Listing, at time.Time) string
}

// Run executes one pass. It never panics; an unexpected failure comes back
// as an undelivered Outcome with Err set.
func (r *Runner) Run(ctx context.Context) (out Outcome) {
	now := r.Now
	if now == nil {
		now = time.Now
	}
	out.StartedAt = now()

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[poll] panic=%v", rec)
			out.Delivered = false
			out.Err = fmt.Errorf("run panicked: %v", rec)
		}
		out.FinishedAt = now()
		r.record(out)
	}()

	if r.Notifier == nil {
		out.Err = errors.New("no notifier configured")
		return out
	}

	results := r.collect(ctx)

	for _, res := range results {
		out.Listings = append(out.Listings, res.listings...)
		out.Sources = append(out.Sources, res.summary)
	}
	out.Found = len(out.Listings) > 0
	log.Printf("[poll] collected total=%d sources=%d", len(out.Listings), len(out.Sources))

	var text string
	if out.Found {
		format := r.Format
		if format == nil {
			format = report.Build
		}
		text = format(out.Listings, now())
	} else {
		text = report.NoResults(now())
	}

	if err := r.Notifier.Send(ctx, text); err != nil {
		log.Printf("[poll] delivery failed found=%v err=%v", out.Found, err)
		out.Err = err
		return out
	}
	out.Delivered = true
	log.Printf("[poll] delivered found=%v total=%d", out.Found, len(out.Listings))
	return out
}

type fetched struct {
	listings []domain.Listing
	summary  SourceResult
}

// collect returns one slot per fetcher, in fetcher order regardless of mode.
func (r *Runner) collect(ctx context.Context) []fetched {
	slots := make([]fetched, len(r.Fetchers))

	if !r.Concurrent {
		for i, f := range r.Fetchers {
			if i > 0 && r.Delay > 0 {
				if err := r.sleep(ctx, r.Delay); err != nil {
					log.Printf("[poll] delay interrupted: %v", err)
				}
			}
			slots[i] = fetchOne(ctx, f)
		}
		return slots
	}

	var g errgroup.Group
	for i, f := range r.Fetchers {
		g.Go(func() error {
			if stagger := time.Duration(i) * r.Delay; stagger > 0 {
				if err := r.sleep(ctx, stagger); err != nil {
					log.Printf("[poll] stagger interrupted source=%s: %v", f.Name(), err)
				}
			}
			slots[i] = fetchOne(ctx, f)
			return nil
		})
	}
	_ = g.Wait()
	return slots
}

func (r *Runner) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// fetchOne isolates a single fetcher: errors and panics degrade to an empty
// slot for that source.
func fetchOne(ctx context.Context, f types.Fetcher) (out fetched) {
	src := f.Name()
	out.summary = SourceResult{Source: src, Tier: types.TierNone}

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[ats:%s] panic=%v", src, rec)
			out.listings = nil
			out.summary = SourceResult{
				Source:  src,
				Tier:    types.TierNone,
				ErrKind: types.KindPanic,
				Err:     fmt.Errorf("%s panicked: %v", src, rec),
			}
		}
	}()

	log.Printf("[%s] Running...", src)
	res, err := f.Fetch(ctx)

	var kept []domain.Listing
	for _, l := range res.Listings {
		if l.Source != src || !domain.IsInternship(l.Role) || !domain.IsAbsoluteWebURL(l.Link) {
			log.Printf("[ats:%s] dropping invalid listing role=%q link=%q", src, l.Role, l.Link)
			continue
		}
		kept = append(kept, l)
	}

	out.listings = kept
	out.summary.Count = len(kept)
	if res.Tier != "" {
		out.summary.Tier = res.Tier
	}
	if err != nil {
		out.summary.Err = err
		out.summary.ErrKind = types.Classify(err)
		log.Printf("[ats:%s] kind=%s err=%v", src, out.summary.ErrKind, err)
	}
	log.Printf("[ats:%s] tier=%s listings=%d", src, out.summary.Tier, len(kept))
	return out
}

func (r *Runner) record(o Outcome) {
	if r.Journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Journal.RecordRun(ctx, o); err != nil {
		log.Printf("[journal] record failed: %v", err)
	}
}
