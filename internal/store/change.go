package store

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change describes one committed row mutation. Old is nil for inserts and
// New is nil for deletes.
type Change struct {
	Table string `json:"table"`
	Op    Op     `json:"op"`
	Old   Row    `json:"old,omitempty"`
	New   Row    `json:"new,omitempty"`
}

// Current returns the row as it exists after the change, or the removed row
// for deletes.
func (c Change) Current() Row {
	if c.Op == OpDelete {
		return c.Old
	}
	return c.New
}
