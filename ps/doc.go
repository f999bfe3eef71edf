// Package ps provides the persistence layer for PrimitiveDB.
//
// The persistence layer is backed by Git, using go-git for storage.
// PrimitiveDB keeps two kinds of JSON documents in the repository:
//
//	metadata.json        table name -> ordered column list
//	tables/<name>.json   array of records for one table
//
// Every save is a commit. A document is replaced as a whole, so a failed
// write never leaves a truncated file behind, and every earlier state stays
// reachable through History and Restore.
//
// # Memory Persistence
//
// For testing or ephemeral stores:
//
//	persistence, err := ps.NewMemoryPersistence()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # File Persistence
//
// For persistent storage. The worktree is kept in sync with HEAD, so the
// JSON documents can be read directly from the directory:
//
//	persistence, err := ps.NewFilePersistence("/path/to/data", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Transaction Batching
//
// Commands that touch more than one document batch them into one commit:
//
//	txn, _ := persistence.BeginTransaction()
//	txn.AddWrite(ps.MetadataPath, metadataJSON)
//	txn.AddDelete(ps.TablePath("users"))
//	result, _ := txn.Commit(identity, "drop_table users")
package ps
