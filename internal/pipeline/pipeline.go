package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/everstacklabs/modelsync/internal/catalog"
	"github.com/everstacklabs/modelsync/internal/config"
	"github.com/everstacklabs/modelsync/internal/diff"
	"github.com/everstacklabs/modelsync/internal/reconcile"
)

// ExitCode constants for CLI.
const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitChanges = 2 // Changes detected (diff mode)
)

// Risk gate thresholds; exceeding any opens the PR as draft.
const (
	maxChangedModels = 25
	maxDeletions     = 3
)

var maxPriceDelta = decimal.RequireFromString("0.35")

// Pipeline runs a reconcile and optionally publishes the result.
type Pipeline struct {
	cfg       *config.Config
	rec       *reconcile.Reconciler
	publisher *Publisher
}

// New creates a new Pipeline. A nil publisher disables publishing.
func New(cfg *config.Config, rec *reconcile.Reconciler, publisher *Publisher) *Pipeline {
	return &Pipeline{cfg: cfg, rec: rec, publisher: publisher}
}

// SyncResult holds the outcome of a sync.
type SyncResult struct {
	Reconcile  *reconcile.Result
	PRNumber   int
	PRURL      string
	PRDraft    bool
	DraftNotes []string
	Skipped    bool
	SkipReason string
}

// Sync reconciles the catalog directory and, when publishing is enabled and
// something changed, opens a pull request.
func (p *Pipeline) Sync(ctx context.Context) (*SyncResult, error) {
	res, err := p.rec.Run(ctx)
	if err != nil {
		return nil, err
	}
	result := &SyncResult{Reconcile: res}
	cs := res.ChangeSet

	switch {
	case p.cfg.DryRun:
		result.Skipped, result.SkipReason = true, "dry run"
	case !cs.HasChanges():
		result.Skipped, result.SkipReason = true, "no changes"
	case p.publisher == nil:
		result.Skipped, result.SkipReason = true, "publishing disabled"
	}
	if result.Skipped {
		slog.Info("not publishing", "reason", result.SkipReason)
		return result, nil
	}

	result.PRDraft, result.DraftNotes = assessRisk(cs)
	pr, err := p.publisher.Publish(ctx, cs, result.PRDraft, result.DraftNotes)
	if err != nil {
		return result, fmt.Errorf("publishing: %w", err)
	}
	result.PRNumber = pr.GetNumber()
	result.PRURL = pr.GetHTMLURL()
	return result, nil
}

// Diff computes the change set without writing anything.
func (p *Pipeline) Diff(ctx context.Context) (*diff.ChangeSet, error) {
	cs, _, err := p.rec.Plan(ctx)
	return cs, err
}

// assessRisk evaluates the changeset against the risk gates and returns
// whether the PR should be a draft, with one note per tripped gate.
func assessRisk(cs *diff.ChangeSet) (bool, []string) {
	var notes []string

	if n := cs.TotalChanged(); n > maxChangedModels {
		notes = append(notes, fmt.Sprintf("%d models created or updated (limit %d)", n, maxChangedModels))
	}
	if n := len(cs.Deleted); n > maxDeletions {
		notes = append(notes, fmt.Sprintf("%d models deleted (limit %d)", n, maxDeletions))
	}

	for _, u := range cs.Updated {
		for _, c := range u.Changes {
			if c.Field != diff.FieldInputPrice && c.Field != diff.FieldOutputPrice {
				continue
			}
			if delta, ok := priceDelta(c.OldValue, c.NewValue); ok && delta.Abs().GreaterThan(maxPriceDelta) {
				notes = append(notes, fmt.Sprintf("%s %s moved %s%%", u.ID, c.Field,
					delta.Mul(decimal.NewFromInt(100)).Round(1).String()))
			}
		}
	}

	return len(notes) > 0, notes
}

// priceDelta returns the relative change between two price strings. It is
// undefined when either side does not parse or the old price is zero.
func priceDelta(oldValue, newValue any) (decimal.Decimal, bool) {
	oldStr, okOld := oldValue.(string)
	newStr, okNew := newValue.(string)
	if !okOld || !okNew {
		return decimal.Zero, false
	}
	oldPrice, err := catalog.ParsePrice(oldStr)
	if err != nil || !oldPrice.IsPositive() {
		return decimal.Zero, false
	}
	newPrice, err := catalog.ParsePrice(newStr)
	if err != nil {
		return decimal.Zero, false
	}
	return newPrice.Sub(oldPrice).Div(oldPrice), true
}
