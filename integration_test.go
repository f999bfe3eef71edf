package PrimitiveDB

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nickyhof/PrimitiveDB/core"
	"github.com/nickyhof/PrimitiveDB/db"
	"github.com/nickyhof/PrimitiveDB/ps"
)

// TestFunc is the signature for test functions that work with any persistence
type TestFunc func(t *testing.T, engine *db.Engine)

var testIdentity = core.Identity{Name: "test", Email: "test@test.com"}

// runWithBothPersistence runs a test function with both memory and file persistence
func runWithBothPersistence(t *testing.T, testFunc TestFunc) {
	t.Run("Memory", func(t *testing.T) {
		persistence, err := ps.NewMemoryPersistence()
		if err != nil {
			t.Fatalf("Failed to initialize memory persistence: %v", err)
		}
		testFunc(t, Open(persistence).Engine(testIdentity))
	})

	t.Run("File", func(t *testing.T) {
		persistence, err := ps.NewFilePersistence(t.TempDir(), nil)
		if err != nil {
			t.Fatalf("Failed to initialize file persistence: %v", err)
		}
		testFunc(t, Open(persistence).Engine(testIdentity))
	})
}

func execute(t *testing.T, engine *db.Engine, command string) db.Result {
	t.Helper()

	result, err := engine.Execute(command)
	if err != nil {
		t.Fatalf("Failed to execute %q: %v", command, err)
	}
	return result
}

// TestIntegrationWorkflow walks a table through its whole life
func TestIntegrationWorkflow(t *testing.T) {
	runWithBothPersistence(t, func(t *testing.T, engine *db.Engine) {
		result := execute(t, engine, "create_table users name:str age:int")
		if result.(db.CommitResult).TablesCreated != 1 {
			t.Error("Expected 1 table created")
		}

		columns, _ := engine.LoadMetadata().Columns("users")
		expected := []core.Column{{Name: "ID", Type: "int"}, {Name: "name", Type: "str"}, {Name: "age", Type: "int"}}
		if len(columns) != len(expected) {
			t.Fatalf("Expected %v, got %v", expected, columns)
		}
		for i := range expected {
			if columns[i] != expected[i] {
				t.Errorf("Column %d: expected %v, got %v", i, expected[i], columns[i])
			}
		}

		execute(t, engine, "insert into users values (Alice, 30)")
		execute(t, engine, "insert into users values (Bob, 25)")

		records := engine.LoadTableData("users")
		if len(records) != 2 || records[0].ID() != 1 || records[1].ID() != 2 {
			t.Fatalf("Expected IDs 1 and 2, got %v", records)
		}
		if records[0]["age"] != int64(30) || records[1]["name"] != "Bob" {
			t.Errorf("Unexpected records %v", records)
		}

		if _, err := engine.Execute("delete from users"); !errors.Is(err, core.ErrEmptyPredicate) {
			t.Errorf("Expected ErrEmptyPredicate, got %v", err)
		}
		if len(engine.LoadTableData("users")) != 2 {
			t.Error("Expected records unchanged after rejected delete")
		}

		updated := execute(t, engine, "update users set age = 31 where name = Alice").(db.CommitResult)
		if updated.RecordsUpdated != 1 {
			t.Errorf("Expected 1 record updated, got %d", updated.RecordsUpdated)
		}

		alice := execute(t, engine, "select from users where name = Alice").(db.QueryResult)
		if alice.RecordsRead != 1 || alice.Data[0][0] != "1" || alice.Data[0][2] != "31" {
			t.Errorf("Expected Alice with ID 1 and age 31, got %v", alice.Data)
		}

		if _, err := engine.Execute("update users set age = 1 where name = Nobody"); !errors.Is(err, core.ErrNoMatch) {
			t.Errorf("Expected ErrNoMatch, got %v", err)
		}

		execute(t, engine, "delete from users where ID = 2")
		execute(t, engine, "drop_table users")

		if tables := execute(t, engine, "list_tables").(db.QueryResult); tables.RecordsRead != 0 {
			t.Errorf("Expected no tables, got %v", tables.Data)
		}

		history := execute(t, engine, "history").(db.QueryResult)
		if history.RecordsRead != 6 {
			t.Errorf("Expected 6 transactions, got %d", history.RecordsRead)
		}
	})
}

// TestIntegrationRestore brings a dropped table back from history
func TestIntegrationRestore(t *testing.T) {
	runWithBothPersistence(t, func(t *testing.T, engine *db.Engine) {
		execute(t, engine, "create_table users name:str")
		execute(t, engine, "insert into users values (Alice)")
		execute(t, engine, "snapshot with-alice")
		execute(t, engine, "drop_table users")

		if _, err := engine.Execute("select from users"); !errors.Is(err, core.ErrTableNotFound) {
			t.Fatalf("Expected ErrTableNotFound after drop, got %v", err)
		}

		execute(t, engine, "restore with-alice")

		qr := execute(t, engine, "select from users").(db.QueryResult)
		if qr.RecordsRead != 1 || qr.Data[0][1] != "Alice" {
			t.Errorf("Expected Alice back, got %v", qr.Data)
		}
	})
}

// TestIntegrationReopen checks that file persistence survives a restart
func TestIntegrationReopen(t *testing.T) {
	dir := t.TempDir()

	persistence, err := ps.NewFilePersistence(dir, nil)
	if err != nil {
		t.Fatalf("Failed to initialize file persistence: %v", err)
	}
	engine := Open(persistence).Engine(testIdentity)
	execute(t, engine, "create_table flags name:str on:bool")
	execute(t, engine, "insert into flags values (beta, TRUE)")

	for _, name := range []string{"metadata.json", filepath.Join("tables", "flags.json")} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Expected %s on disk: %v", name, err)
		}
	}

	reopened, err := ps.NewFilePersistence(dir, nil)
	if err != nil {
		t.Fatalf("Failed to reopen: %v", err)
	}
	engine = Open(reopened).Engine(testIdentity)

	qr := execute(t, engine, "select from flags where on = true").(db.QueryResult)
	if qr.RecordsRead != 1 {
		t.Errorf("Expected 1 record after reopen, got %d", qr.RecordsRead)
	}
	execute(t, engine, "insert into flags values (gamma, no)")
	if records := engine.LoadTableData("flags"); records[1].ID() != 2 || records[1]["on"] != false {
		t.Errorf("Unexpected record after reopen %v", records[1])
	}
}
