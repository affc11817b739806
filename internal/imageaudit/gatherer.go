// internal/imageaudit/gatherer.go
package imageaudit

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagelens/api/schemas"
	"github.com/xkilldash9x/pagelens/internal/config"
)

// passBudget is the two-state machine gating enrichment work: Enriching
// until the deadline timer fires, then BudgetExceeded for the remainder of
// the pass. The transition is irreversible; an in-flight call is never
// cancelled, only the next element is gated.
type passBudget struct {
	expired atomic.Bool
	timer   *time.Timer
}

func armBudget(horizon time.Duration) *passBudget {
	b := &passBudget{}
	b.timer = time.AfterFunc(horizon, func() { b.expired.Store(true) })
	return b
}

// Exceeded reports whether the pass has entered BudgetExceeded.
func (b *passBudget) Exceeded() bool { return b.expired.Load() }

func (b *passBudget) Stop() { b.timer.Stop() }

// Gatherer drives one gathering pass over one already-loaded page: extract,
// index, sort, then enrich sequentially under the wall-clock budget.
type Gatherer struct {
	drv    Driver
	cfg    config.AuditConfig
	logger *zap.Logger
}

func NewGatherer(drv Driver, cfg config.AuditConfig, logger *zap.Logger) *Gatherer {
	return &Gatherer{drv: drv, cfg: cfg, logger: logger.Named("gatherer")}
}

// Result is the artifact of a pass before the report envelope is applied.
type Result struct {
	Elements []schemas.ImageElement
	Skipped  int
}

// Gather runs the pass. Elements past the budget keep their transfer
// metadata but lose CSS-sizing and natural-size enrichment; a fatal protocol
// failure aborts the whole pass rather than returning partial data.
func (g *Gatherer) Gather(ctx context.Context, records []schemas.NetworkRecord) (*Result, error) {
	index := BuildRecordIndex(records)

	elements, err := ExtractElements(ctx, g.drv, g.logger)
	if err != nil {
		return nil, err
	}

	// Transfer metadata costs no protocol call, so every element gets it
	// regardless of budget state.
	for i := range elements {
		if record, ok := index.Lookup(elements[i].Src); ok {
			mime := record.MimeType
			elements[i].MimeType = &mime
		}
	}

	// Largest transfers first, so budget truncation drops the least
	// impactful images.
	sort.SliceStable(elements, func(i, j int) bool {
		return index.SizeOf(elements[i].Src) > index.SizeOf(elements[j].Src)
	})

	if err := g.drv.EnableDomains(ctx); err != nil {
		return nil, fmt.Errorf("enabling DOM/CSS domains: %w", err)
	}
	defer func() {
		// Scoped release: runs on the budget path and the abort path alike.
		if derr := g.drv.DisableDomains(context.WithoutCancel(ctx)); derr != nil {
			g.logger.Debug("Failed to disable DOM/CSS domains.", zap.Error(derr))
		}
	}()

	sizing := NewSizingResolver(g.drv, g.logger)
	natural := NewNaturalSizeResolver(g.drv, g.cfg.ProbeTimeout, g.logger)

	budget := armBudget(g.cfg.EnrichmentBudget)
	defer budget.Stop()

	skipped := 0
	for i := range elements {
		if budget.Exceeded() {
			skipped++
			continue
		}
		el := &elements[i]

		if sizing.Eligible(el) {
			if err := sizing.Resolve(ctx, el); err != nil {
				return nil, err
			}
		}
		if natural.Eligible(el, index) {
			if err := natural.Resolve(ctx, el); err != nil {
				return nil, err
			}
		}
	}

	if skipped > 0 {
		g.logger.Warn("Enrichment budget expired before all image elements were processed.",
			zap.Int("skipped", skipped), zap.Int("total", len(elements)))
	}

	return &Result{Elements: elements, Skipped: skipped}, nil
}
