package op

import "github.com/nickyhof/PrimitiveDB/core"

// Matcher decides whether a record satisfies a predicate.
type Matcher func(record core.Record, predicate core.Predicate) bool

// Matches is the Matcher used by Select, Delete and Update. Values are
// compared by their display strings, so "1" and "01" differ while a bool
// true and the string "true" do not.
var Matches Matcher = matchDisplayStrings

func matchDisplayStrings(record core.Record, predicate core.Predicate) bool {
	for column, expected := range predicate {
		if core.Display(record[column]) != expected {
			return false
		}
	}
	return true
}
