package sql

import (
	"fmt"
	"strings"

	"github.com/nickyhof/PrimitiveDB/core"
)

// indexOfKeyword returns the position of the first bare-word keyword in
// tokens, or -1.
func indexOfKeyword(tokens []Token, keyword string) int {
	for i, token := range tokens {
		if isKeyword(token, keyword) {
			return i
		}
	}
	return -1
}

// ParseWhereClause extracts the single "column = value" condition that
// follows the WHERE keyword. Without a WHERE keyword the predicate is empty.
func ParseWhereClause(tokens []Token) (core.Predicate, error) {
	start := indexOfKeyword(tokens, "where")
	if start < 0 {
		return core.Predicate{}, nil
	}

	rest := tokens[start+1:]
	if len(rest) < 3 || !isValue(rest[0]) {
		return nil, fmt.Errorf("%w: expected <column> = <value> after WHERE", ErrSyntax)
	}
	if rest[1].Type != Equals {
		return nil, fmt.Errorf("%w: only = is supported in WHERE, got %q", ErrSyntax, rest[1].Value)
	}
	if !isValue(rest[2]) {
		return nil, fmt.Errorf("%w: missing value for %s in WHERE", ErrSyntax, rest[0].Value)
	}
	if len(rest) > 3 && rest[3].Type != EOF {
		return nil, fmt.Errorf("%w: unexpected %q after WHERE condition (only one condition is supported)", ErrSyntax, rest[3].Value)
	}

	return core.Predicate{rest[0].Value: rest[2].Value}, nil
}

// ParseSetClause extracts "column = value" assignments between SET and
// WHERE (or the end of the command). Assignments may be separated by commas.
// A column named where is still an assignment when "=" follows it.
func ParseSetClause(tokens []Token) (map[string]string, error) {
	updates, _, err := scanSetClause(tokens)
	return updates, err
}

// scanSetClause walks the SET assignments and returns them together with
// the index where the clause ended.
func scanSetClause(tokens []Token) (map[string]string, int, error) {
	start := indexOfKeyword(tokens, "set")
	if start < 0 {
		return map[string]string{}, 0, nil
	}

	updates := make(map[string]string)

	i := start + 1
	for i < len(tokens) {
		token := tokens[i]
		switch {
		case token.Type == EOF:
			return updates, i, nil
		case token.Type == Comma:
			i++
		case isKeyword(token, "where") && !(i+1 < len(tokens) && tokens[i+1].Type == Equals):
			return updates, i, nil
		case i+2 < len(tokens) && isValue(token) && tokens[i+1].Type == Equals && isValue(tokens[i+2]):
			updates[token.Value] = tokens[i+2].Value
			i += 3
		default:
			return nil, i, fmt.Errorf("%w: expected <column> = <value> in SET near %q", ErrSyntax, token.Value)
		}
	}

	return updates, i, nil
}

// ParseInsertValues extracts the comma-separated value list after VALUES.
// Parentheses are ignored, quoted strings are taken as-is and adjacent bare
// words within one slot are joined by a single space.
func ParseInsertValues(tokens []Token) ([]string, error) {
	start := indexOfKeyword(tokens, "values")
	if start < 0 {
		return nil, fmt.Errorf("%w: missing VALUES", ErrSyntax)
	}

	var values []string
	var slot []string
	seen := false

	for _, token := range tokens[start+1:] {
		switch token.Type {
		case ParenOpen, ParenClose, EOF:
			continue
		case Comma:
			values = append(values, strings.Join(slot, " "))
			slot = nil
		default:
			slot = append(slot, token.Value)
		}
		seen = true
	}

	if !seen {
		return []string{}, nil
	}

	return append(values, strings.Join(slot, " ")), nil
}
