package pipeline

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everstacklabs/modelsync/internal/config"
	"github.com/everstacklabs/modelsync/internal/diff"
	"github.com/everstacklabs/modelsync/internal/reconcile"
	"github.com/everstacklabs/modelsync/internal/source"
)

func TestAssessRisk_LargeChangeset(t *testing.T) {
	cs := &diff.ChangeSet{}
	// 26 new models → draft
	for i := 0; i < 26; i++ {
		cs.New = append(cs.New, diff.ModelChange{ID: fmt.Sprintf("acme/m%d", i)})
	}

	draft, notes := assessRisk(cs)
	assert.True(t, draft, "expected draft for >25 changes")
	assert.Len(t, notes, 1)
}

func TestAssessRisk_ManyDeletions(t *testing.T) {
	cs := &diff.ChangeSet{
		Deleted: []diff.ModelChange{
			{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"},
		},
	}

	draft, _ := assessRisk(cs)
	assert.True(t, draft, "expected draft for >3 deletions")
}

func TestAssessRisk_NormalChangeset(t *testing.T) {
	cs := &diff.ChangeSet{
		New:     []diff.ModelChange{{ID: "a"}},
		Updated: []diff.ModelUpdate{{ID: "b"}},
		Deleted: []diff.ModelChange{{ID: "c"}, {ID: "d"}, {ID: "e"}},
	}

	draft, notes := assessRisk(cs)
	assert.False(t, draft, "expected non-draft for small changeset, got %v", notes)
}

func TestAssessRisk_PriceDelta(t *testing.T) {
	tests := []struct {
		name      string
		old, new  string
		wantDraft bool
	}{
		{"doubled", "0.005", "0.01", true},
		{"halved", "0.01", "0.005", true},
		{"20 percent", "0.005", "0.006", false},
		{"exactly 35 percent", "0.002", "0.0027", false},
		{"from zero", "0", "0.01", false},
		{"unparsable", "n/a", "0.01", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := &diff.ChangeSet{
				Updated: []diff.ModelUpdate{{
					ID: "acme/model",
					Changes: []diff.FieldChange{
						{Field: diff.FieldInputPrice, OldValue: tt.old, NewValue: tt.new},
					},
				}},
			}
			draft, notes := assessRisk(cs)
			assert.Equal(t, tt.wantDraft, draft, "notes %v", notes)
		})
	}
}

func TestAssessRisk_IgnoresNonPriceFields(t *testing.T) {
	cs := &diff.ChangeSet{
		Updated: []diff.ModelUpdate{{
			ID: "acme/model",
			Changes: []diff.FieldChange{
				{Field: diff.FieldContextSize, OldValue: int64(1000), NewValue: int64(100000)},
			},
		}},
	}
	draft, _ := assessRisk(cs)
	assert.False(t, draft, "context size changes must not trip the price gate")
}

type staticSource []source.Record

func (s staticSource) Name() string { return "static" }

func (s staticSource) Fetch(context.Context) ([]source.Record, error) { return s, nil }

func TestSyncSkipsPublishing(t *testing.T) {
	contextSize := int64(4096)
	price := int64(100)
	records := staticSource{{
		ID:                   "acme/model",
		DisplayName:          "Model",
		ContextSize:          &contextSize,
		InputTokenPricePerM:  &price,
		OutputTokenPricePerM: &price,
	}}

	tests := []struct {
		name   string
		dryRun bool
		runs   int
		want   string
	}{
		{"dry run", true, 1, "dry run"},
		{"publisher missing", false, 1, "publishing disabled"},
		{"nothing changed", false, 2, "no changes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{CatalogDir: t.TempDir(), DryRun: tt.dryRun}
			rec := reconcile.New(records, reconcile.Options{Dir: cfg.CatalogDir, DryRun: tt.dryRun}, nil)
			p := New(cfg, rec, nil)

			var res *SyncResult
			var err error
			for i := 0; i < tt.runs; i++ {
				res, err = p.Sync(context.Background())
				require.NoError(t, err)
			}
			assert.True(t, res.Skipped)
			assert.Equal(t, tt.want, res.SkipReason)
		})
	}
}

func TestDiffDoesNotWrite(t *testing.T) {
	contextSize := int64(4096)
	price := int64(100)
	dir := t.TempDir()
	rec := reconcile.New(staticSource{{
		ID: "acme/model", DisplayName: "Model",
		ContextSize: &contextSize, InputTokenPricePerM: &price, OutputTokenPricePerM: &price,
	}}, reconcile.Options{Dir: dir}, nil)

	cs, err := New(&config.Config{CatalogDir: dir}, rec, nil).Diff(context.Background())
	require.NoError(t, err)
	assert.Len(t, cs.New, 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "diff must not write")
}
