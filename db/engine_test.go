package db

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/nickyhof/PrimitiveDB/core"
	"github.com/nickyhof/PrimitiveDB/ps"
	"github.com/nickyhof/PrimitiveDB/sql"
)

func setupTestEngine(t *testing.T) *Engine {
	t.Helper()

	persistence, err := ps.NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}

	identity := core.Identity{Name: "test", Email: "test@test.com"}
	engine := NewEngine(persistence, identity)

	mustExecute(t, engine, "create_table users name:str age:int active:bool")

	return engine
}

func mustExecute(t *testing.T, engine *Engine, command string) Result {
	t.Helper()

	result, err := engine.Execute(command)
	if err != nil {
		t.Fatalf("Failed to execute %q: %v", command, err)
	}
	return result
}

func insertTestData(t *testing.T, engine *Engine) {
	t.Helper()

	mustExecute(t, engine, "insert into users values (Alice, 30, true)")
	mustExecute(t, engine, "insert into users values (Bob, 25, false)")
	mustExecute(t, engine, `insert into users values ("Charlie Brown", 35, true)`)
}

func selectAll(t *testing.T, engine *Engine, command string) QueryResult {
	t.Helper()
	return mustExecute(t, engine, command).(QueryResult)
}

func TestEngineCreateTable(t *testing.T) {
	engine := setupTestEngine(t)

	columns, ok := engine.LoadMetadata().Columns("users")
	if !ok {
		t.Fatal("Expected users in metadata")
	}

	expected := []core.Column{
		{Name: "ID", Type: core.IntType},
		{Name: "name", Type: core.StringType},
		{Name: "age", Type: core.IntType},
		{Name: "active", Type: core.BoolType},
	}
	for i, column := range expected {
		if columns[i] != column {
			t.Errorf("Column %d: expected %v, got %v", i, column, columns[i])
		}
	}

	if records := engine.LoadTableData("users"); len(records) != 0 {
		t.Errorf("Expected empty table, got %v", records)
	}
}

func TestEngineCreateTableErrors(t *testing.T) {
	engine := setupTestEngine(t)

	tests := []struct {
		command  string
		expected error
	}{
		{"create_table users name:str", core.ErrDuplicateTable},
		{"create_table pets name", core.ErrMalformedColumn},
		{"create_table pets weight:float", core.ErrUnknownType},
	}

	for _, tt := range tests {
		if _, err := engine.Execute(tt.command); !errors.Is(err, tt.expected) {
			t.Errorf("%q: expected %v, got %v", tt.command, tt.expected, err)
		}
	}

	if _, ok := engine.LoadMetadata()["pets"]; ok {
		t.Error("Expected failed create_table to leave metadata untouched")
	}
}

func TestEngineInsertAssignsIDs(t *testing.T) {
	engine := setupTestEngine(t)
	insertTestData(t, engine)

	records := engine.LoadTableData("users")
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}

	first := records[0]
	if first.ID() != 1 || first["name"] != "Alice" || first["age"] != int64(30) || first["active"] != true {
		t.Errorf("Unexpected first record %v", first)
	}
	if records[2]["name"] != "Charlie Brown" || records[2].ID() != 3 {
		t.Errorf("Unexpected third record %v", records[2])
	}
}

func TestEngineInsertErrors(t *testing.T) {
	engine := setupTestEngine(t)

	tests := []struct {
		command  string
		expected error
	}{
		{"insert into pets values (Rex)", core.ErrTableNotFound},
		{"insert into users values (Alice, 30)", core.ErrArityMismatch},
		{"insert into users values (Alice, thirty, true)", core.ErrInvalidValue},
		{"insert users values (Alice)", sql.ErrSyntax},
	}

	for _, tt := range tests {
		if _, err := engine.Execute(tt.command); !errors.Is(err, tt.expected) {
			t.Errorf("%q: expected %v, got %v", tt.command, tt.expected, err)
		}
	}

	_, castErr := engine.Execute("insert into users values (Alice, thirty, true)")
	if !errors.Is(castErr, core.ErrCast) {
		t.Errorf("Expected cast error to wrap ErrCast, got %v", castErr)
	}
}

func TestEngineIDsFollowHighest(t *testing.T) {
	engine := setupTestEngine(t)
	insertTestData(t, engine)

	mustExecute(t, engine, "delete from users where ID = 3")
	result := mustExecute(t, engine, "insert into users values (Dana, 41, false)").(CommitResult)

	if result.Message != "ID 3" {
		t.Errorf("Expected highest remaining ID + 1, got %q", result.Message)
	}

	mustExecute(t, engine, "delete from users where ID = 1")
	mustExecute(t, engine, "insert into users values (Eve, 22, true)")

	records := engine.LoadTableData("users")
	if last := records[len(records)-1]; last.ID() != 4 {
		t.Errorf("Expected ID 4, got %d", last.ID())
	}
}

func TestEngineSelect(t *testing.T) {
	engine := setupTestEngine(t)
	insertTestData(t, engine)

	qr := selectAll(t, engine, "select from users")
	if qr.RecordsRead != 3 {
		t.Errorf("Expected 3 records, got %d", qr.RecordsRead)
	}
	if strings.Join(qr.Columns, ",") != "ID,name,age,active" {
		t.Errorf("Unexpected columns %v", qr.Columns)
	}
	if strings.Join(qr.Data[1], ",") != "2,Bob,25,false" {
		t.Errorf("Unexpected row %v", qr.Data[1])
	}
}

func TestEngineSelectWithWhere(t *testing.T) {
	engine := setupTestEngine(t)
	insertTestData(t, engine)

	tests := []struct {
		command  string
		expected int
	}{
		{"select from users where name = Alice", 1},
		{`select from users where name = "Charlie Brown"`, 1},
		{"select from users where active = true", 2},
		{"select from users where age = 030", 0},
		{"select from users where missing = null", 3},
		{"select from users where name = alice", 0},
	}

	for _, tt := range tests {
		qr := selectAll(t, engine, tt.command)
		if qr.RecordsRead != tt.expected {
			t.Errorf("%q: expected %d records, got %d", tt.command, tt.expected, qr.RecordsRead)
		}
	}
}

func TestEngineSelectUnknownTable(t *testing.T) {
	engine := setupTestEngine(t)

	if _, err := engine.Execute("select from pets"); !errors.Is(err, core.ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound, got %v", err)
	}
}

func TestEngineSelectCache(t *testing.T) {
	engine := setupTestEngine(t)
	insertTestData(t, engine)

	first := selectAll(t, engine, "select from users where active = true")
	if first.Cached {
		t.Error("Expected first select to miss the cache")
	}

	second := selectAll(t, engine, "select from users where active = true")
	if !second.Cached || second.RecordsRead != 2 {
		t.Errorf("Expected cached result with 2 records, got cached=%v records=%d", second.Cached, second.RecordsRead)
	}

	mustExecute(t, engine, "insert into users values (Dana, 41, true)")

	third := selectAll(t, engine, "select from users where active = true")
	if third.Cached || third.RecordsRead != 3 {
		t.Errorf("Expected fresh result with 3 records after a write, got cached=%v records=%d", third.Cached, third.RecordsRead)
	}
}

func TestEngineUpdateColumnNamedWhere(t *testing.T) {
	engine := setupTestEngine(t)
	mustExecute(t, engine, "create_table notes where:str x:int")
	mustExecute(t, engine, "insert into notes values (a, 1)")

	result := mustExecute(t, engine, "update notes set where = b where x = 1").(CommitResult)
	if result.RecordsUpdated != 1 {
		t.Fatalf("Expected 1 record updated, got %d", result.RecordsUpdated)
	}

	qr := selectAll(t, engine, "select from notes where where = b")
	if qr.RecordsRead != 1 || strings.Join(qr.Data[0], ",") != "1,b,1" {
		t.Errorf("Unexpected rows after update %v", qr.Data)
	}
}

func TestEngineSelectResultsDoNotShareCache(t *testing.T) {
	engine := setupTestEngine(t)
	insertTestData(t, engine)

	first := selectAll(t, engine, "select from users where name = Alice")
	first.Records[0]["age"] = int64(99)

	second := selectAll(t, engine, "select from users where name = Alice")
	if !second.Cached {
		t.Fatal("Expected second select to hit the cache")
	}
	if age := second.Records[0]["age"]; age != int64(30) {
		t.Errorf("Expected cached age 30, got %v", age)
	}
	second.Records[0]["age"] = int64(77)

	third := selectAll(t, engine, "select from users where name = Alice")
	if age := third.Records[0]["age"]; age != int64(30) {
		t.Errorf("Expected cached age 30 after editing a hit, got %v", age)
	}
	if persisted := engine.LoadTableData("users")[0]["age"]; persisted != int64(30) {
		t.Errorf("Expected persisted age 30, got %v", persisted)
	}
}

func TestEngineUpdate(t *testing.T) {
	engine := setupTestEngine(t)
	insertTestData(t, engine)

	result := mustExecute(t, engine, "update users set age = 31, active = false where name = Alice").(CommitResult)
	if result.RecordsUpdated != 1 {
		t.Errorf("Expected 1 record updated, got %d", result.RecordsUpdated)
	}

	qr := selectAll(t, engine, "select from users where name = Alice")
	if strings.Join(qr.Data[0], ",") != "1,Alice,31,false" {
		t.Errorf("Unexpected row after update %v", qr.Data[0])
	}
}

func TestEngineUpdateErrors(t *testing.T) {
	engine := setupTestEngine(t)
	insertTestData(t, engine)

	tests := []struct {
		command  string
		expected error
	}{
		{"update pets set age = 1 where name = Alice", core.ErrTableNotFound},
		{"update users set age = 1", core.ErrEmptyPredicate},
		{"update users where name = Alice", core.ErrEmptySet},
		{"update users set age = 1 where name = Nobody", core.ErrNoMatch},
		{"update users set height = 1 where name = Alice", core.ErrUnknownColumn},
		{"update users set ID = 9 where name = Alice", core.ErrImmutableField},
		{"update users set age = old where name = Alice", core.ErrInvalidValue},
	}

	for _, tt := range tests {
		if _, err := engine.Execute(tt.command); !errors.Is(err, tt.expected) {
			t.Errorf("%q: expected %v, got %v", tt.command, tt.expected, err)
		}
	}
}

func TestEngineUpdateIsAtomic(t *testing.T) {
	engine := setupTestEngine(t)
	insertTestData(t, engine)

	before := engine.LatestTransaction()

	_, err := engine.Execute("update users set name = Zed, age = old where active = true")
	if !errors.Is(err, core.ErrInvalidValue) {
		t.Fatalf("Expected ErrInvalidValue, got %v", err)
	}

	if after := engine.LatestTransaction(); after.Id != before.Id {
		t.Error("Expected failed update not to commit")
	}
	if qr := selectAll(t, engine, "select from users where name = Zed"); qr.RecordsRead != 0 {
		t.Errorf("Expected no partial update, found %d records", qr.RecordsRead)
	}
}

func TestEngineDelete(t *testing.T) {
	engine := setupTestEngine(t)
	insertTestData(t, engine)

	result := mustExecute(t, engine, "delete from users where active = true").(CommitResult)
	if result.RecordsDeleted != 2 {
		t.Errorf("Expected 2 records deleted, got %d", result.RecordsDeleted)
	}

	if qr := selectAll(t, engine, "select from users"); qr.RecordsRead != 1 || qr.Data[0][1] != "Bob" {
		t.Errorf("Expected only Bob to remain, got %v", qr.Data)
	}
}

func TestEngineDeleteErrors(t *testing.T) {
	engine := setupTestEngine(t)
	insertTestData(t, engine)

	tests := []struct {
		command  string
		expected error
	}{
		{"delete from users", core.ErrEmptyPredicate},
		{"delete from users where name = Nobody", core.ErrNoMatch},
		{"delete from pets where name = Alice", core.ErrTableNotFound},
	}

	for _, tt := range tests {
		if _, err := engine.Execute(tt.command); !errors.Is(err, tt.expected) {
			t.Errorf("%q: expected %v, got %v", tt.command, tt.expected, err)
		}
	}

	if records := engine.LoadTableData("users"); len(records) != 3 {
		t.Errorf("Expected records unchanged, got %d", len(records))
	}
}

func TestEngineDropTable(t *testing.T) {
	engine := setupTestEngine(t)
	insertTestData(t, engine)

	result := mustExecute(t, engine, "drop_table users").(CommitResult)
	if result.TablesDeleted != 1 {
		t.Errorf("Expected 1 table deleted, got %d", result.TablesDeleted)
	}

	if _, err := engine.Execute("select from users"); !errors.Is(err, core.ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound after drop, got %v", err)
	}
	if _, err := engine.Execute("drop_table users"); !errors.Is(err, core.ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound for second drop, got %v", err)
	}

	names, _ := engine.TableDocuments()
	if len(names) != 0 {
		t.Errorf("Expected data document removed, got %v", names)
	}

	// Recreating starts from an empty table
	mustExecute(t, engine, "create_table users name:str")
	if records := engine.LoadTableData("users"); len(records) != 0 {
		t.Errorf("Expected recreated table to be empty, got %d", len(records))
	}
}

func TestEngineOrphanedDataIsIgnored(t *testing.T) {
	engine := setupTestEngine(t)

	orphan := []core.Record{{"ID": int64(7), "name": "Ghost"}}
	if _, err := engine.SaveTableData("ghosts", orphan, engine.Identity, "orphan"); err != nil {
		t.Fatalf("Failed to write orphan: %v", err)
	}

	if _, err := engine.Execute("select from ghosts"); !errors.Is(err, core.ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound for data without metadata, got %v", err)
	}

	mustExecute(t, engine, "create_table ghosts name:str")
	if qr := selectAll(t, engine, "select from ghosts"); qr.RecordsRead != 0 {
		t.Errorf("Expected create_table to reset orphaned data, got %d records", qr.RecordsRead)
	}
}

func TestEngineMetadataWithoutData(t *testing.T) {
	engine := setupTestEngine(t)

	if _, err := engine.DeleteTableData("users", engine.Identity, "lose data"); err != nil {
		t.Fatalf("Failed to delete data: %v", err)
	}

	if qr := selectAll(t, engine, "select from users"); qr.RecordsRead != 0 {
		t.Errorf("Expected empty table, got %d", qr.RecordsRead)
	}
	mustExecute(t, engine, "insert into users values (Alice, 30, true)")
	if records := engine.LoadTableData("users"); len(records) != 1 || records[0].ID() != 1 {
		t.Errorf("Expected insert to start at ID 1, got %v", records)
	}
}

func TestEngineListTablesAndInfo(t *testing.T) {
	engine := setupTestEngine(t)
	insertTestData(t, engine)
	mustExecute(t, engine, "create_table accounts owner:str")

	list := selectAll(t, engine, "list_tables")
	if list.RecordsRead != 2 || list.Data[0][0] != "accounts" || list.Data[1][0] != "users" {
		t.Errorf("Expected sorted tables [accounts users], got %v", list.Data)
	}
	if list.Data[1][1] != "ID:int, name:str, age:int, active:bool" {
		t.Errorf("Unexpected schema description %q", list.Data[1][1])
	}

	info := selectAll(t, engine, "info users")
	if len(info.Data) != 4 || info.Data[3][0] != "active" || info.Data[3][1] != "bool" {
		t.Errorf("Unexpected info rows %v", info.Data)
	}
	if info.Message != "users holds 3 record(s)" {
		t.Errorf("Unexpected info message %q", info.Message)
	}

	if _, err := engine.Execute("info pets"); !errors.Is(err, core.ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound, got %v", err)
	}
}

func TestEngineHistoryAndRestore(t *testing.T) {
	engine := setupTestEngine(t)
	first := mustExecute(t, engine, "insert into users values (Alice, 30, true)").(CommitResult)
	mustExecute(t, engine, "insert into users values (Bob, 25, false)")

	history := selectAll(t, engine, "history")
	if history.RecordsRead != 3 {
		t.Fatalf("Expected 3 transactions, got %d", history.RecordsRead)
	}
	if history.Data[0][3] != "insert into users" || history.Data[2][3] != "create_table users" {
		t.Errorf("Unexpected history messages %v", history.Data)
	}

	if limited := selectAll(t, engine, "history 1"); limited.RecordsRead != 1 {
		t.Errorf("Expected 1 transaction with limit, got %d", limited.RecordsRead)
	}

	mustExecute(t, engine, "restore "+first.Transaction.ShortId())

	if qr := selectAll(t, engine, "select from users"); qr.RecordsRead != 1 {
		t.Errorf("Expected 1 record after restore, got %d", qr.RecordsRead)
	}
	if history := selectAll(t, engine, "history"); history.RecordsRead != 4 {
		t.Errorf("Expected restore to append a transaction, got %d", history.RecordsRead)
	}
}

func TestEngineSnapshot(t *testing.T) {
	engine := setupTestEngine(t)
	insertTestData(t, engine)

	mustExecute(t, engine, "snapshot loaded")
	mustExecute(t, engine, "drop_table users")
	mustExecute(t, engine, "restore loaded")

	if qr := selectAll(t, engine, "select from users"); qr.RecordsRead != 3 {
		t.Errorf("Expected 3 records after restoring snapshot, got %d", qr.RecordsRead)
	}
	if _, err := engine.Execute("restore nothing-here"); !errors.Is(err, ps.ErrTransactionNotFound) {
		t.Errorf("Expected ErrTransactionNotFound, got %v", err)
	}
}

func TestEngineRemotes(t *testing.T) {
	engine := setupTestEngine(t)

	mustExecute(t, engine, "add_remote https://example.com/data.git")
	mustExecute(t, engine, "add_remote backup /srv/backup.git")

	remotes := selectAll(t, engine, "list_remotes")
	if remotes.RecordsRead != 2 {
		t.Errorf("Expected 2 remotes, got %v", remotes.Data)
	}

	if _, err := engine.Execute("push missing"); err == nil {
		t.Error("Expected push to an unknown remote to fail")
	}
}

func TestEngineUnknownCommand(t *testing.T) {
	engine := setupTestEngine(t)

	if _, err := engine.Execute("truncate users"); !errors.Is(err, sql.ErrUnknownCommand) {
		t.Errorf("Expected ErrUnknownCommand, got %v", err)
	}
}

func TestEngineLogsExecution(t *testing.T) {
	engine := setupTestEngine(t)

	var buf bytes.Buffer
	engine.Logger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	mustExecute(t, engine, "insert into users values (Alice, 30, true)")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("Expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "command executed" || entry["statement"] != "insert" {
		t.Errorf("Unexpected log entry %v", entry)
	}
	if id, _ := entry["execution_id"].(string); len(id) != 36 {
		t.Errorf("Expected a UUID execution_id, got %v", entry["execution_id"])
	}
}
