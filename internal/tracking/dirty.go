// Package tracking finds the items a rename pass actually changes.
// It keeps each item as it was read next to its rewritten form so the
// writer can guard on the original values.
package tracking

import (
	"reflect"
	"sort"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/conduit-lang/dynarename/internal/rewrite"
)

// FieldChange represents a change to a single top-level attribute
type FieldChange struct {
	Field    string
	OldValue types.AttributeValue
	NewValue types.AttributeValue
}

// Change pairs an item as read with its rewritten form
type Change struct {
	Original rewrite.Item
	Mutated  rewrite.Item
}

// ChangedFields returns the top-level attributes that differ, sorted by name.
// Attributes that were removed have a nil NewValue and added ones a nil OldValue.
func (c Change) ChangedFields() []FieldChange {
	var changes []FieldChange
	for field, newValue := range c.Mutated {
		oldValue, had := c.Original[field]
		if !had || !reflect.DeepEqual(oldValue, newValue) {
			changes = append(changes, FieldChange{Field: field, OldValue: oldValue, NewValue: newValue})
		}
	}
	for field, oldValue := range c.Original {
		if _, ok := c.Mutated[field]; !ok {
			changes = append(changes, FieldChange{Field: field, OldValue: oldValue})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Field < changes[j].Field })
	return changes
}

// DirtySet holds the changed items of one run, in scan order
type DirtySet struct {
	changes []Change
}

// NewDirtySet creates an empty dirty set
func NewDirtySet() *DirtySet {
	return &DirtySet{}
}

// Add records the pair if mutated differs from original and reports whether it did
func (d *DirtySet) Add(original, mutated rewrite.Item) bool {
	if reflect.DeepEqual(original, mutated) {
		return false
	}
	d.changes = append(d.changes, Change{Original: original, Mutated: mutated})
	return true
}

// Changes returns the changed items in the order they were added
func (d *DirtySet) Changes() []Change {
	return d.changes
}

// Build rewrites every item and collects the ones that changed, along with
// the counts summed over all items. The input items are not modified.
func Build(items []rewrite.Item, rules []rewrite.Replace) (*DirtySet, rewrite.Result) {
	set := NewDirtySet()
	var total rewrite.Result
	for _, item := range items {
		mutated, res := rewrite.Rewrite(item, rules)
		total.Add(res)
		set.Add(item, mutated)
	}
	return set, total
}
