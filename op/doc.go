// Package op provides the schema and record operations of PrimitiveDB.
//
// The op package sits between the command engine (db/) and the data model
// (core/). Every function works on state supplied by the caller and holds
// nothing between calls; loading and saving that state is the engine's job.
//
// # Schema
//
//	metadata, err := op.CreateTable(metadata, "users", []string{"name:str", "age:int"})
//	fmt.Println(op.SchemaDescription(metadata, "users")) // ID:int, name:str, age:int
//	metadata, err = op.DropTable(metadata, "users")
//
// # Records
//
// Insert and Update mutate the caller's slice and also return it:
//
//	record, err := op.Insert(metadata, "users", &records, []string{"Alice", "30"})
//	rows := op.Select(records, core.Predicate{"name": "Alice"})
//	records, n, err := op.Update(metadata, "users", records,
//	    map[string]string{"age": "31"}, core.Predicate{"name": "Alice"})
//	records, err = op.Delete(records, core.Predicate{"ID": "1"})
//
// # Architecture
//
// The layering is:
//
//	Command Parser (sql/)
//	     ↓
//	Command Engine (db/)
//	     ↓
//	Operations (op/)     ← This package
//	     ↓
//	Persistence (ps/)
//	     ↓
//	Git Storage (go-git)
package op
