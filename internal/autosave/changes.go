package autosave

import "sort"

// ChangeTracker records which wire fields changed since the last confirmed
// synchronization. Every mark is stamped with a generation so that a
// successful transmission clears exactly the marks it carried; fields marked
// again while the transmission was in flight stay dirty.
//
// ChangeTracker is not safe for concurrent use; the Engine guards it.
type ChangeTracker struct {
	gen         uint64
	dirtyFields map[string]uint64
}

// NewChangeTracker creates an empty ChangeTracker.
func NewChangeTracker() *ChangeTracker {
	return &ChangeTracker{dirtyFields: make(map[string]uint64)}
}

// MarkDirty marks fields as modified.
func (ct *ChangeTracker) MarkDirty(fields ...string) {
	for _, f := range fields {
		ct.gen++
		ct.dirtyFields[f] = ct.gen
	}
}

// Dirty reports whether field is marked.
func (ct *ChangeTracker) Dirty(field string) bool {
	_, ok := ct.dirtyFields[field]
	return ok
}

// HasChanges reports whether any field is marked.
func (ct *ChangeTracker) HasChanges() bool {
	return len(ct.dirtyFields) > 0
}

// DirtyFields returns the marked fields in sorted order.
func (ct *ChangeTracker) DirtyFields() []string {
	fields := make([]string, 0, len(ct.dirtyFields))
	for f := range ct.dirtyFields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Count returns the number of marked fields.
func (ct *ChangeTracker) Count() int {
	return len(ct.dirtyFields)
}

// Generation returns the stamp of the most recent mark.
func (ct *ChangeTracker) Generation() uint64 {
	return ct.gen
}

// ClearThrough removes every mark stamped at or before gen.
func (ct *ChangeTracker) ClearThrough(gen uint64) {
	for f, g := range ct.dirtyFields {
		if g <= gen {
			delete(ct.dirtyFields, f)
		}
	}
}

// Clear removes all marks.
func (ct *ChangeTracker) Clear() {
	ct.dirtyFields = make(map[string]uint64)
}
