package diff

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/everstacklabs/modelsync/internal/catalog"
	"github.com/everstacklabs/modelsync/internal/feature"
	"github.com/everstacklabs/modelsync/internal/source"
)

// MalformedPolicy decides what happens when a new model's file name is taken
// by a definition file that could not be parsed.
type MalformedPolicy string

const (
	// MalformedSkip leaves the unparsable file alone and skips the new model.
	MalformedSkip MalformedPolicy = "skip"
	// MalformedRecreate overwrites the unparsable file with a fresh definition.
	MalformedRecreate MalformedPolicy = "recreate"
)

// ParseMalformedPolicy validates a policy name. Empty means MalformedSkip.
func ParseMalformedPolicy(s string) (MalformedPolicy, error) {
	switch MalformedPolicy(s) {
	case "", MalformedSkip:
		return MalformedSkip, nil
	case MalformedRecreate:
		return MalformedRecreate, nil
	}
	return "", fmt.Errorf("unknown on_malformed policy %q (want %s or %s)", s, MalformedSkip, MalformedRecreate)
}

// Options controls diff behavior.
type Options struct {
	OnMalformed MalformedPolicy
	// Reserved names files in the directory that are not definitions, such
	// as the index. New models never get one of these names.
	Reserved []string
}

// Derive computes the synced fields a definition should hold for r.
// r must have no Missing fields.
func Derive(r *source.Record) catalog.Synced {
	return catalog.Synced{
		Label:       r.Label(),
		Features:    feature.Infer(r.ID, r.Description, r.Features).Strings(),
		ContextSize: *r.ContextSize,
		Input:       catalog.ConvertPrice(*r.InputTokenPricePerM),
		Output:      catalog.ConvertPrice(*r.OutputTokenPricePerM),
	}
}

// Compute compares the remote catalog against the loaded directory.
func Compute(records []source.Record, dir *catalog.Directory, opts Options) *ChangeSet {
	cs := &ChangeSet{}

	remote := make(map[string]bool, len(records))
	for i := range records {
		remote[records[i].ID] = true
	}

	// owners maps every parsed file to the model it defines.
	owners := make(map[string]string, len(dir.Entries)+len(dir.Duplicates))
	for id, e := range dir.Entries {
		owners[e.FileName] = id
	}
	for _, e := range dir.Duplicates {
		owners[e.FileName] = e.Definition.Model
	}
	malformed := make(map[string]bool, len(dir.Malformed))
	for _, m := range dir.Malformed {
		malformed[m.FileName] = true
	}
	claimed := make(map[string]string)
	reserved := make(map[string]bool, len(opts.Reserved))
	for _, name := range opts.Reserved {
		reserved[name] = true
	}

	for i := range records {
		r := &records[i]
		cs.IDs = append(cs.IDs, r.ID)

		if missing := r.Missing(); len(missing) > 0 {
			cs.Skipped = append(cs.Skipped, Skip{ID: r.ID, Reason: "missing " + strings.Join(missing, ", ")})
			continue
		}
		synced := Derive(r)

		if e, ok := dir.Entries[r.ID]; ok {
			changes := computeFieldChanges(e, synced)
			if len(changes) == 0 {
				cs.Unchanged = append(cs.Unchanged, ModelChange{ID: r.ID, FileName: e.FileName, Definition: e.Definition})
				continue
			}
			cs.Updated = append(cs.Updated, ModelUpdate{ID: r.ID, FileName: e.FileName, Synced: synced, Changes: changes})
			continue
		}

		name := catalog.FileName(r.ID)
		if reason := collision(name, owners, malformed, claimed, reserved, remote, opts); reason != "" {
			cs.Skipped = append(cs.Skipped, Skip{ID: r.ID, Reason: reason})
			continue
		}
		claimed[name] = r.ID
		cs.New = append(cs.New, ModelChange{ID: r.ID, FileName: name, Definition: catalog.NewDefinition(r.ID, synced)})
	}

	for id, e := range dir.Entries {
		if !remote[id] {
			cs.Deleted = append(cs.Deleted, ModelChange{ID: id, FileName: e.FileName, Definition: e.Definition})
		}
	}
	sort.Slice(cs.Deleted, func(i, j int) bool { return cs.Deleted[i].FileName < cs.Deleted[j].FileName })

	slog.Info("diff computed",
		"new", len(cs.New),
		"updated", len(cs.Updated),
		"deleted", len(cs.Deleted),
		"unchanged", len(cs.Unchanged),
		"skipped", len(cs.Skipped))

	return cs
}

// collision explains why name cannot be used for a new definition, or
// returns "" when it is free. A file owned by a model that is about to be
// deleted counts as free.
func collision(name string, owners map[string]string, malformed map[string]bool, claimed map[string]string, reserved, remote map[string]bool, opts Options) string {
	if reserved[name] {
		return fmt.Sprintf("file name %s is reserved", name)
	}
	if other, ok := claimed[name]; ok {
		return fmt.Sprintf("file name %s is already used by new model %s", name, other)
	}
	if owner, ok := owners[name]; ok && remote[owner] {
		return fmt.Sprintf("file name %s is used by model %s", name, owner)
	}
	if malformed[name] && opts.OnMalformed != MalformedRecreate {
		return fmt.Sprintf("file name %s is taken by an unparsable definition", name)
	}
	return ""
}

func computeFieldChanges(e *catalog.Entry, want catalog.Synced) []FieldChange {
	existing := e.Definition
	// Fields holding a value of the wrong type always need a rewrite.
	bad := make(map[string]bool, len(e.Unreadable))
	for _, path := range e.Unreadable {
		bad[path] = true
	}

	var changes []FieldChange

	if bad[catalog.PathContextSize] || existing.ModelProperties.ContextSize != want.ContextSize {
		changes = append(changes, FieldChange{Field: FieldContextSize, OldValue: oldValue(bad[catalog.PathContextSize], existing.ModelProperties.ContextSize), NewValue: want.ContextSize})
	}
	if bad[catalog.PathPricingInput] || existing.Pricing.Input != want.Input {
		changes = append(changes, FieldChange{Field: FieldInputPrice, OldValue: oldValue(bad[catalog.PathPricingInput], existing.Pricing.Input), NewValue: want.Input})
	}
	if bad[catalog.PathPricingOutput] || existing.Pricing.Output != want.Output {
		changes = append(changes, FieldChange{Field: FieldOutputPrice, OldValue: oldValue(bad[catalog.PathPricingOutput], existing.Pricing.Output), NewValue: want.Output})
	}
	badLabel := bad[catalog.PathLabelZh] || bad[catalog.PathLabelEn]
	if badLabel || existing.Label.ZhHans != want.Label || existing.Label.EnUS != want.Label {
		old := oldValue(badLabel, fmt.Sprintf("zh_Hans: %s, en_US: %s", existing.Label.ZhHans, existing.Label.EnUS))
		changes = append(changes, FieldChange{Field: FieldLabels, OldValue: old, NewValue: want.Label})
	}
	// Features compare as sets; order in the file never matters.
	if bad[catalog.PathFeatures] || !feature.SetFromStrings(existing.Features).Equal(feature.SetFromStrings(want.Features)) {
		changes = append(changes, FieldChange{Field: FieldFeatures, OldValue: oldValue(bad[catalog.PathFeatures], existing.Features), NewValue: want.Features})
	}

	return changes
}

func oldValue(unreadable bool, v any) any {
	if unreadable {
		return "(unreadable)"
	}
	return v
}
