package core

import (
	"fmt"
	"strconv"
	"strings"
)

type ColumnType string

const (
	IntType    ColumnType = "int"
	BoolType   ColumnType = "bool"
	StringType ColumnType = "str"
)

// SupportedTypes lists the column types in the order they are documented.
var SupportedTypes = []ColumnType{IntType, StringType, BoolType}

// ParseColumnType validates a type name from a column definition.
func ParseColumnType(name string) (ColumnType, error) {
	for _, t := range SupportedTypes {
		if string(t) == name {
			return t, nil
		}
	}

	names := make([]string, len(SupportedTypes))
	for i, t := range SupportedTypes {
		names[i] = string(t)
	}
	return "", fmt.Errorf("%w: %s (supported: %s)", ErrUnknownType, name, strings.Join(names, ", "))
}

// Cast converts raw command input into a value of type t.
func Cast(value string, t ColumnType) (any, error) {
	switch t {
	case IntType:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrCast, value)
		}
		return n, nil
	case BoolType:
		// Anything other than "true" is false; there is no validity check.
		return strings.EqualFold(value, "true"), nil
	case StringType:
		return value, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
}

// Display renders a value in the form used for printing and matching.
// Absent values render as "null".
func Display(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
