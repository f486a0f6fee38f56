// Package engine composes price extraction, catalog matching, margin policy
// evaluation, and deduplication into the per-cycle evaluation pipeline.
//
// A cycle has three phases. Fetching runs first and is the only concurrent,
// failure-prone phase: every (source, keyword) pair is queried through a
// bounded worker pool with a per-fetch timeout, and a failed source simply
// contributes zero listings. Evaluation then runs sequentially over every
// fetched listing, short-circuiting on the first stage that disqualifies it.
// Finally the surviving candidates are committed to the dedup store and
// grouped into one alert batch. Dedup commits happen only in the final
// phase, after evaluation has fully completed, so an interrupted cycle never
// leaves partial state in the store.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/UsmanKarim08/flipping-lead-gen/internal/catalog"
	"github.com/UsmanKarim08/flipping-lead-gen/internal/dedup"
	"github.com/UsmanKarim08/flipping-lead-gen/internal/logger"
	"github.com/UsmanKarim08/flipping-lead-gen/internal/models"
	"github.com/UsmanKarim08/flipping-lead-gen/internal/pricing"
	"github.com/UsmanKarim08/flipping-lead-gen/internal/source"
)

// Engine evaluates listings fetched from all configured sources against the
// catalog and the dedup store. One Engine serves the whole process lifetime;
// cycles are strictly sequential.
type Engine struct {
	catalog       *catalog.Catalog
	store         dedup.Store
	sources       []source.Source
	fetchTimeout  time.Duration
	maxConcurrent int

	now func() time.Time
}

// CycleStats counts per-cycle pipeline outcomes. Extraction failures are
// tracked here for observability instead of being silently absorbed.
type CycleStats struct {
	SourcesQueried int // (source, keyword) fetches attempted
	SourceErrors   int // fetches that failed or timed out
	Fetched        int // raw listings seen
	NoPrice        int // listings with no extractable price
	NoMatch        int // listings matching no catalog entry
	Rejected       int // listings rejected by the margin policy
	Duplicate      int // listings suppressed by the dedup store
	Deals          int // listings that became deals
}

// New creates an Engine. maxConcurrent bounds parallel fetches;
// fetchTimeout bounds each individual fetch.
func New(cat *catalog.Catalog, store dedup.Store, sources []source.Source, fetchTimeout time.Duration, maxConcurrent int) *Engine {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Engine{
		catalog:       cat,
		store:         store,
		sources:       sources,
		fetchTimeout:  fetchTimeout,
		maxConcurrent: maxConcurrent,
		now:           time.Now,
	}
}

// candidate is a listing that passed every pipeline stage except the dedup
// commit, which is deferred to the end of the cycle.
type candidate struct {
	deal models.Deal
	key  string
}

type fetchResult struct {
	sourceID string
	keyword  string
	listings []models.RawListing
	err      error
}

// RunCycle runs one full poll cycle: fetch every (source, keyword) pair,
// evaluate all listings, commit survivors to the dedup store, and aggregate
// the resulting deals into a single alert batch. The returned stats cover
// the whole cycle. A cancelled context aborts the cycle with an error before
// anything is committed to the dedup store.
func (e *Engine) RunCycle(ctx context.Context) (models.AlertBatch, CycleStats, error) {
	cycleAt := e.now()
	keywords := e.catalog.Keywords()
	stats := CycleStats{}

	results := e.fetchAll(ctx, keywords)
	if err := ctx.Err(); err != nil {
		return models.AlertBatch{}, stats, fmt.Errorf("cycle aborted during fetch: %w", err)
	}

	// Evaluation phase: sequential, no store mutation yet.
	var candidates []candidate
	for _, res := range results {
		stats.SourcesQueried++
		if res.err != nil {
			stats.SourceErrors++
			logger.Warn("source fetch failed for %s/%q: %v", res.sourceID, res.keyword, res.err)
			continue
		}
		for i := range res.listings {
			stats.Fetched++
			if cand, outcome := e.evaluate(&res.listings[i], cycleAt); outcome == outcomeDeal {
				candidates = append(candidates, *cand)
			} else {
				stats.count(outcome)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		// Partial results are discarded; the store still reflects only
		// fully-evaluated cycles.
		return models.AlertBatch{}, stats, fmt.Errorf("cycle aborted during evaluation: %w", err)
	}

	// Commit phase: atomic check-and-set per key, in arrival order.
	var deals []models.Deal
	for _, cand := range candidates {
		fresh, err := e.store.CheckAndSet(cand.key)
		if err != nil {
			return models.AlertBatch{}, stats, fmt.Errorf("dedup store failed: %w", err)
		}
		if !fresh {
			stats.Duplicate++
			continue
		}
		stats.Deals++
		deals = append(deals, cand.deal)
	}

	return BuildBatch(deals, cycleAt), stats, nil
}

// fetchAll queries every (source, keyword) pair through a bounded worker
// pool. Results keep task order so evaluation, and therefore batch order,
// is deterministic regardless of fetch completion order.
func (e *Engine) fetchAll(ctx context.Context, keywords []string) []fetchResult {
	type task struct {
		src     source.Source
		keyword string
	}
	var tasks []task
	for _, src := range e.sources {
		for _, kw := range keywords {
			tasks = append(tasks, task{src: src, keyword: kw})
		}
	}

	results := make([]fetchResult, len(tasks))

	g := new(errgroup.Group)
	g.SetLimit(e.maxConcurrent)
	for i, tk := range tasks {
		i, tk := i, tk
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
			defer cancel()

			listings, err := tk.src.Fetch(fctx, tk.keyword)
			results[i] = fetchResult{
				sourceID: tk.src.ID(),
				keyword:  tk.keyword,
				listings: listings,
				err:      err,
			}
			// Fetch failures are absorbed per source; they never abort the
			// cycle or the remaining fetches.
			return nil
		})
	}
	_ = g.Wait()

	return results
}

type outcome int

const (
	outcomeDeal outcome = iota
	outcomeNoPrice
	outcomeNoMatch
	outcomeRejected
)

func (s *CycleStats) count(o outcome) {
	switch o {
	case outcomeNoPrice:
		s.NoPrice++
	case outcomeNoMatch:
		s.NoMatch++
	case outcomeRejected:
		s.Rejected++
	}
}

// evaluate runs one raw listing through extraction, matching, and the margin
// policy. It returns a candidate only when every stage passes; the dedup
// check happens later, in the cycle's commit phase.
func (e *Engine) evaluate(raw *models.RawListing, cycleAt time.Time) (*candidate, outcome) {
	price, err := pricing.ExtractPrice(raw.Title, raw.Summary)
	if err != nil {
		logger.Debug("no price extracted from %s listing %q", raw.Source, raw.Title)
		return nil, outcomeNoPrice
	}

	item := e.catalog.Match(raw.Title)
	if item == nil {
		return nil, outcomeNoMatch
	}

	policy, err := e.catalog.Policy(item.ID)
	if err != nil {
		// Unreachable for a validated catalog; treat as no match.
		logger.Warn("no policy for matched item %s: %v", item.ID, err)
		return nil, outcomeNoMatch
	}

	decision := policy.Evaluate(price)
	if !decision.Accept {
		return nil, outcomeRejected
	}

	parsed := models.ParsedListing{
		RawListing: *raw,
		Price:      price,
		HasPrice:   true,
		Item:       item,
	}

	return &candidate{
		key: dedup.Key(&parsed),
		deal: models.Deal{
			ID:         uuid.New().String(),
			Source:     raw.Source,
			ItemID:     item.ID,
			Keyword:    item.SearchKeyword(),
			Title:      raw.Title,
			URL:        raw.URL,
			Location:   raw.Location,
			Price:      price,
			MaxBuy:     decision.MaxBuy,
			Resale:     item.Resale,
			Profit:     decision.Profit,
			Margin:     decision.Margin,
			DetectedAt: cycleAt,
		},
	}, outcomeDeal
}
