package core

import (
	"sort"
	"strings"
)

// IDColumn is the name of the identifier column injected into every table.
const IDColumn = "ID"

type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

func (column Column) String() string {
	return column.Name + ":" + string(column.Type)
}

// Metadata maps table names to their ordered column definitions.
type Metadata map[string][]Column

// Columns returns the schema of table and whether it exists.
func (metadata Metadata) Columns(table string) ([]Column, bool) {
	columns, ok := metadata[table]
	return columns, ok
}

// Column looks up a single column of table by name.
func (metadata Metadata) Column(table, name string) (Column, bool) {
	for _, column := range metadata[table] {
		if column.Name == name {
			return column, true
		}
	}
	return Column{}, false
}

// TableNames returns the table names in lexical order.
func (metadata Metadata) TableNames() []string {
	names := make([]string, 0, len(metadata))
	for name := range metadata {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Record maps column names to typed values (int64, bool or string).
type Record map[string]any

// ID returns the identifier of the record, or 0 if it has none.
func (record Record) ID() int64 {
	switch id := record[IDColumn].(type) {
	case int64:
		return id
	case int:
		return int64(id)
	case float64:
		return int64(id)
	default:
		return 0
	}
}

// Predicate is a conjunction of column = value equalities.
type Predicate map[string]string

// IsEmpty reports whether the predicate matches everything.
func (predicate Predicate) IsEmpty() bool {
	return len(predicate) == 0
}

// String renders the predicate deterministically, e.g. "age=30 AND name=Bob".
func (predicate Predicate) String() string {
	keys := make([]string, 0, len(predicate))
	for key := range predicate {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = key + "=" + predicate[key]
	}
	return strings.Join(parts, " AND ")
}
