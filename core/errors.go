package core

import "errors"

var (
	ErrDuplicateTable  = errors.New("table already exists")
	ErrTableNotFound   = errors.New("table does not exist")
	ErrMalformedColumn = errors.New("malformed column definition")
	ErrUnknownType     = errors.New("unknown column type")
	ErrArityMismatch   = errors.New("value count does not match column count")
	ErrCast            = errors.New("cannot cast value")
	ErrInvalidValue    = errors.New("invalid value")
	ErrEmptyPredicate  = errors.New("a WHERE condition is required")
	ErrEmptySet        = errors.New("a SET clause is required")
	ErrUnknownColumn   = errors.New("unknown column")
	ErrImmutableField  = errors.New("field cannot be modified")
	ErrNoMatch         = errors.New("no matching records")
)
