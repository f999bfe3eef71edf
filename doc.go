// Package PrimitiveDB provides a small file-persisted table store driven by
// a line-oriented command language.
//
// Tables have typed columns (int, bool, str) and an automatically assigned
// integer ID. Schema and row data are kept as JSON documents in a Git
// repository, so every change is a commit and any earlier state can be
// listed and restored.
//
// # Quick Start
//
// Create an in-memory store:
//
//	persistence, _ := ps.NewMemoryPersistence()
//	store := PrimitiveDB.Open(persistence)
//	engine := store.Engine(core.Identity{Name: "App", Email: "app@example.com"})
//
//	engine.Execute("create_table users name:str age:int")
//	engine.Execute("insert into users values (Alice, 30)")
//
//	result, _ := engine.Execute("select from users where name = Alice")
//	result.Display(os.Stdout)
//
// # Commands
//
//   - create_table, drop_table, list_tables, info
//   - insert, select, update, delete with a single equality WHERE
//   - history, snapshot, restore
//   - export, import (local files, HTTP, S3, optional xz)
//   - add_remote, list_remotes, push, pull
package PrimitiveDB
