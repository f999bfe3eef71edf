// Package core provides core types used throughout PrimitiveDB.
//
// The package defines the data model (Metadata, Column, Record, Predicate),
// the Identity stamped on persisted changes, the type system used to cast
// raw command input into typed values, and the error taxonomy shared by
// every layer.
//
// # Identity
//
// Identity identifies the author of changes (Git commit author):
//
//	identity := core.Identity{
//	    Name:  "John Doe",
//	    Email: "john@example.com",
//	}
//
// # Column Types
//
// Supported column types:
//   - IntType ("int"): base-10 integers stored as int64
//   - BoolType ("bool"): true when the input equals "true" ignoring case
//   - StringType ("str"): the input unchanged
//
// # Metadata
//
// Metadata maps a table name to its ordered columns. The first column of
// every table is always the identifier column:
//
//	metadata := core.Metadata{
//	    "users": {
//	        {Name: "ID", Type: core.IntType},
//	        {Name: "name", Type: core.StringType},
//	        {Name: "active", Type: core.BoolType},
//	    },
//	}
package core
