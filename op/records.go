package op

import (
	"fmt"
	"maps"
	"slices"

	"github.com/nickyhof/PrimitiveDB/core"
)

// Insert casts rawValues positionally against the user columns of table,
// assigns the next identifier and appends the record to *records.
func Insert(metadata core.Metadata, table string, records *[]core.Record, rawValues []string) (core.Record, error) {
	columns, exists := metadata.Columns(table)
	if !exists {
		return nil, fmt.Errorf("%w: %s", core.ErrTableNotFound, table)
	}

	expected := UserColumns(columns)
	if len(rawValues) != len(expected) {
		return nil, fmt.Errorf("%w: expected %d, got %d", core.ErrArityMismatch, len(expected), len(rawValues))
	}

	record := core.Record{core.IDColumn: nextID(*records)}

	for i, column := range expected {
		value, err := core.Cast(rawValues[i], column.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: column %s: %w", core.ErrInvalidValue, column.Name, err)
		}
		record[column.Name] = value
	}

	*records = append(*records, record)
	return record, nil
}

// Select returns the records matching predicate in their original order.
// An empty predicate returns records itself, not a copy.
func Select(records []core.Record, predicate core.Predicate) []core.Record {
	if predicate.IsEmpty() {
		return records
	}

	var selected []core.Record
	for _, record := range records {
		if Matches(record, predicate) {
			selected = append(selected, record)
		}
	}
	return selected
}

// Delete returns a new slice without the records matching predicate.
func Delete(records []core.Record, predicate core.Predicate) ([]core.Record, error) {
	if predicate.IsEmpty() {
		return records, core.ErrEmptyPredicate
	}

	remaining := make([]core.Record, 0, len(records))
	for _, record := range records {
		if !Matches(record, predicate) {
			remaining = append(remaining, record)
		}
	}

	if len(remaining) == len(records) {
		return records, fmt.Errorf("%w: %s", core.ErrNoMatch, predicate)
	}

	return remaining, nil
}

// Update applies set to every record matching predicate, in place, and
// returns records together with the number of records changed. All
// assignments are validated and cast before the first record is touched.
func Update(metadata core.Metadata, table string, records []core.Record, set map[string]string, predicate core.Predicate) ([]core.Record, int, error) {
	if _, exists := metadata.Columns(table); !exists {
		return records, 0, fmt.Errorf("%w: %s", core.ErrTableNotFound, table)
	}
	if predicate.IsEmpty() {
		return records, 0, core.ErrEmptyPredicate
	}
	if len(set) == 0 {
		return records, 0, core.ErrEmptySet
	}

	var matched []core.Record
	for _, record := range records {
		if Matches(record, predicate) {
			matched = append(matched, record)
		}
	}
	if len(matched) == 0 {
		return records, 0, fmt.Errorf("%w: %s", core.ErrNoMatch, predicate)
	}

	values, err := castAssignments(metadata, table, set)
	if err != nil {
		return records, 0, err
	}

	for _, record := range matched {
		for column, value := range values {
			record[column] = value
		}
	}

	return records, len(matched), nil
}

func castAssignments(metadata core.Metadata, table string, set map[string]string) (map[string]any, error) {
	values := make(map[string]any, len(set))

	// Checked in name order; the first bad column is the one reported.
	for _, name := range slices.Sorted(maps.Keys(set)) {
		raw := set[name]
		column, exists := metadata.Column(table, name)
		if !exists {
			return nil, fmt.Errorf("%w: %s", core.ErrUnknownColumn, name)
		}
		if column.Name == core.IDColumn {
			return nil, fmt.Errorf("%w: %s", core.ErrImmutableField, name)
		}

		value, err := core.Cast(raw, column.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: column %s: %w", core.ErrInvalidValue, name, err)
		}
		values[name] = value
	}

	return values, nil
}

// UserColumns returns the columns a caller supplies values for: all but ID.
func UserColumns(columns []core.Column) []core.Column {
	if len(columns) > 0 && columns[0].Name == core.IDColumn {
		return columns[1:]
	}
	return columns
}

func nextID(records []core.Record) int64 {
	var highest int64
	for _, record := range records {
		if id := record.ID(); id > highest {
			highest = id
		}
	}
	return highest + 1
}
