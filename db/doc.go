// Package db provides the command engine for PrimitiveDB.
//
// The Engine type is the main entry point. Every command follows the same
// cycle: parse the line, load metadata and table data from the persistence
// layer, run the op function, save what changed and return a Result.
//
// # Engine Usage
//
//	engine := db.NewEngine(persistence, identity)
//	result, err := engine.Execute("select from users where name = Alice")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result.Display(os.Stdout)
//
// # Result Types
//
// There are two result types:
//   - QueryResult: returned by select, list_tables, info, history and list_remotes
//   - CommitResult: returned by everything that writes or moves data
//
// QueryResult carries display columns and rows. CommitResult carries counts
// of affected tables and records and the transaction that recorded them.
//
// # Import and Export
//
// export and import move a table's JSON document to and from a local path,
// a file:// URL, an http(s):// URL (read only) or an s3://bucket/key URL.
// Paths ending in .xz are compressed with xz. Export reports the BLAKE3
// checksum of the bytes it wrote.
package db
