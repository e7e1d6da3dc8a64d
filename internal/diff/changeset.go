package diff

import (
	"fmt"

	"github.com/everstacklabs/modelsync/internal/catalog"
)

// Field names used in FieldChange.
const (
	FieldContextSize = "context_size"
	FieldInputPrice  = "input_price"
	FieldOutputPrice = "output_price"
	FieldLabels      = "labels"
	FieldFeatures    = "features"
)

// FieldChange records one drifted field group of an existing definition.
type FieldChange struct {
	Field    string
	OldValue any
	NewValue any
}

func (c FieldChange) String() string {
	return fmt.Sprintf("%s: %v -> %v", c.Field, c.OldValue, c.NewValue)
}

// ChangeSet is the three-way diff between the remote catalog and the
// definition files on disk.
type ChangeSet struct {
	// IDs lists every usable remote id in catalog order; it feeds the index file.
	IDs       []string
	New       []ModelChange
	Updated   []ModelUpdate
	Deleted   []ModelChange
	Unchanged []ModelChange
	Skipped   []Skip
}

// ModelChange is a model that is created, deleted or left alone.
type ModelChange struct {
	ID       string
	FileName string
	// Definition is the synthesized definition for new models and the
	// on-disk definition otherwise.
	Definition *catalog.Definition
}

// ModelUpdate is an existing definition whose synced fields drifted.
type ModelUpdate struct {
	ID       string
	FileName string
	Synced   catalog.Synced
	Changes  []FieldChange
}

// Skip is a remote record that could not be reconciled this run.
type Skip struct {
	ID     string
	Reason string
}

// HasChanges reports whether applying the changeset would touch any definition file.
func (cs *ChangeSet) HasChanges() bool {
	return len(cs.New) > 0 || len(cs.Updated) > 0 || len(cs.Deleted) > 0
}

// TotalChanged returns the count of new + updated models.
func (cs *ChangeSet) TotalChanged() int {
	return len(cs.New) + len(cs.Updated)
}
