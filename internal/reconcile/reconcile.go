// Package reconcile brings a directory of model definition files in line with
// the remote catalog.
package reconcile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/everstacklabs/modelsync/internal/catalog"
	"github.com/everstacklabs/modelsync/internal/diff"
	"github.com/everstacklabs/modelsync/internal/source"
	"github.com/everstacklabs/modelsync/internal/validate"
)

// Options configures a Reconciler.
type Options struct {
	Dir         string
	IndexFile   string
	Ignore      []string
	OnMalformed diff.MalformedPolicy
	DryRun      bool
}

// Reconciler fetches the remote catalog and applies the difference to Dir.
type Reconciler struct {
	src    source.Source
	opts   Options
	out    io.Writer
	writer *catalog.Writer
}

// Result is the outcome of one run.
type Result struct {
	ChangeSet *diff.ChangeSet
	// Written lists created and rewritten definition files.
	Written []string
	Removed []string
	// Index is the path of the regenerated index file, empty on dry runs.
	Index string
}

// New creates a Reconciler. Progress lines go to out.
func New(src source.Source, opts Options, out io.Writer) *Reconciler {
	if opts.IndexFile == "" {
		opts.IndexFile = catalog.DefaultIndex
	}
	if opts.OnMalformed == "" {
		opts.OnMalformed = diff.MalformedSkip
	}
	if out == nil {
		out = io.Discard
	}
	return &Reconciler{
		src:    src,
		opts:   opts,
		out:    out,
		writer: catalog.NewWriter(opts.Dir),
	}
}

// Plan fetches the catalog, loads the directory and computes the change set
// without touching any file.
func (r *Reconciler) Plan(ctx context.Context) (*diff.ChangeSet, *catalog.Directory, error) {
	records, err := r.src.Fetch(ctx)
	if err != nil {
		return nil, nil, err
	}

	dir, err := catalog.LoadDir(r.opts.Dir, catalog.LoadOptions{
		IndexFile: r.opts.IndexFile,
		Ignore:    r.opts.Ignore,
	})
	if err != nil {
		return nil, nil, err
	}

	cs := diff.Compute(records, dir, diff.Options{
		OnMalformed: r.opts.OnMalformed,
		Reserved:    append([]string{r.opts.IndexFile}, r.opts.Ignore...),
	})
	screen(cs)
	return cs, dir, nil
}

// Run plans and, unless DryRun is set, applies the change set and rewrites
// the index file. Updates go first, then deletions, then creations, so a
// file freed by a deleted model can be reused in the same run.
func (r *Reconciler) Run(ctx context.Context) (*Result, error) {
	cs, dir, err := r.Plan(ctx)
	if err != nil {
		return nil, err
	}
	res := &Result{ChangeSet: cs}

	r.warnDirectory(dir)

	if r.opts.DryRun {
		r.println(diff.RenderSummary(cs))
		slog.Info("dry run, no files written", "dir", r.opts.Dir)
		return res, nil
	}

	for _, u := range cs.Updated {
		if err := r.writer.Update(u.FileName, u.Synced); err != nil {
			return res, err
		}
		res.Written = append(res.Written, u.FileName)
		r.println(diff.UpdatedLine(u))
	}
	for _, m := range cs.Unchanged {
		r.println(diff.UnchangedLine(m))
	}
	for _, m := range cs.Deleted {
		if err := r.writer.Delete(m.FileName); err != nil {
			return res, err
		}
		res.Removed = append(res.Removed, m.FileName)
		r.println(diff.DeletedLine(m))
	}
	for _, m := range cs.New {
		if err := r.writer.Create(m.FileName, m.Definition); err != nil {
			return res, err
		}
		res.Written = append(res.Written, m.FileName)
		r.println(diff.CreatedLine(m))
	}
	for _, s := range cs.Skipped {
		r.println(diff.SkippedLine(s))
	}

	if err := catalog.WriteIndex(r.opts.Dir, r.opts.IndexFile, cs.IDs); err != nil {
		return res, err
	}
	res.Index = filepath.Join(r.opts.Dir, r.opts.IndexFile)

	slog.Info("reconcile complete",
		"written", len(res.Written),
		"removed", len(res.Removed),
		"skipped", len(cs.Skipped),
		"index_entries", len(cs.IDs))
	return res, nil
}

// screen validates every definition the change set would write. Models that
// fail are moved to Skipped so one bad record never aborts the run.
func screen(cs *diff.ChangeSet) {
	kept := cs.New[:0]
	for _, m := range cs.New {
		if reason := invalid(m.Definition, m.FileName); reason != "" {
			cs.Skipped = append(cs.Skipped, diff.Skip{ID: m.ID, Reason: reason})
			continue
		}
		kept = append(kept, m)
	}
	cs.New = kept

	updated := cs.Updated[:0]
	for _, u := range cs.Updated {
		if reason := invalid(catalog.NewDefinition(u.ID, u.Synced), u.FileName); reason != "" {
			cs.Skipped = append(cs.Skipped, diff.Skip{ID: u.ID, Reason: reason})
			continue
		}
		updated = append(updated, u)
	}
	cs.Updated = updated
}

func invalid(def *catalog.Definition, fileName string) string {
	res := validate.ValidateDefinition(def, fileName)
	if !res.HasErrors() {
		return ""
	}
	first := res.Errors()[0]
	slog.Warn("synthesized definition failed validation",
		"model", def.Model, "errors", len(res.Errors()), "first", first.String())
	return fmt.Sprintf("invalid definition: %s: %s", first.Field, first.Message)
}

func (r *Reconciler) warnDirectory(dir *catalog.Directory) {
	for _, m := range dir.Malformed {
		r.println(fmt.Sprintf("⚠️ Could not parse %s: %v", m.FileName, m.Err))
	}
	for _, e := range dir.Duplicates {
		kept := dir.Entries[e.Definition.Model]
		r.println(fmt.Sprintf("⚠️ %s defines %s again, keeping %s", e.FileName, e.Definition.Model, kept.FileName))
	}
}

func (r *Reconciler) println(s string) {
	fmt.Fprintln(r.out, s)
}
