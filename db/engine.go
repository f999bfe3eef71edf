package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nickyhof/PrimitiveDB/core"
	"github.com/nickyhof/PrimitiveDB/op"
	"github.com/nickyhof/PrimitiveDB/ps"
	"github.com/nickyhof/PrimitiveDB/sql"
)

type Engine struct {
	*ps.Persistence
	Identity core.Identity
	Logger   *slog.Logger
	S3       S3Config
	GitAuth  *ps.RemoteAuth
	cache    *selectCache
}

func NewEngine(persistence *ps.Persistence, identity core.Identity) *Engine {
	return &Engine{
		Persistence: persistence,
		Identity:    identity,
		Logger:      slog.Default(),
		cache:       newSelectCache(defaultCacheEntries),
	}
}

// Execute runs a single command line.
func (engine *Engine) Execute(command string) (Result, error) {
	return engine.ExecuteContext(context.Background(), command)
}

// ExecuteContext runs a single command line. ctx bounds remote I/O for
// import and export.
func (engine *Engine) ExecuteContext(ctx context.Context, command string) (Result, error) {
	logger := engine.logger().With("execution_id", uuid.New().String())
	startTime := time.Now()

	statement, err := sql.NewParser(command).Parse()
	if err != nil {
		logger.Debug("command rejected", "command", command, "error", err)
		return nil, err
	}

	result, err := engine.executeStatement(ctx, statement)
	if err != nil {
		logger.Debug("command failed",
			"statement", statement.Type().String(),
			"duration", time.Since(startTime),
			"error", err)
		return nil, err
	}

	logger.Debug("command executed",
		"statement", statement.Type().String(),
		"duration", time.Since(startTime))
	return result, nil
}

func (engine *Engine) logger() *slog.Logger {
	if engine.Logger == nil {
		return slog.Default()
	}
	return engine.Logger
}

func (engine *Engine) executeStatement(ctx context.Context, statement sql.Statement) (Result, error) {
	switch statement := statement.(type) {
	case sql.CreateTableStatement:
		return engine.executeCreateTableStatement(statement)
	case sql.DropTableStatement:
		return engine.executeDropTableStatement(statement)
	case sql.ListTablesStatement:
		return engine.executeListTablesStatement()
	case sql.InsertStatement:
		return engine.executeInsertStatement(statement)
	case sql.SelectStatement:
		return engine.executeSelectStatement(statement)
	case sql.UpdateStatement:
		return engine.executeUpdateStatement(statement)
	case sql.DeleteStatement:
		return engine.executeDeleteStatement(statement)
	case sql.InfoStatement:
		return engine.executeInfoStatement(statement)
	case sql.HistoryStatement:
		return engine.executeHistoryStatement(statement)
	case sql.RestoreStatement:
		return engine.executeRestoreStatement(statement)
	case sql.SnapshotStatement:
		return engine.executeSnapshotStatement(statement)
	case sql.ExportStatement:
		return engine.executeExportStatement(ctx, statement)
	case sql.ImportStatement:
		return engine.executeImportStatement(ctx, statement)
	case sql.AddRemoteStatement:
		return engine.executeAddRemoteStatement(statement)
	case sql.ListRemotesStatement:
		return engine.executeListRemotesStatement()
	case sql.PushStatement:
		return engine.executePushStatement(statement)
	case sql.PullStatement:
		return engine.executePullStatement(statement)
	default:
		return nil, fmt.Errorf("unsupported statement type: %v", statement.Type())
	}
}

// tableColumns loads metadata and fails with ErrTableNotFound for unknown
// tables. Metadata is authoritative: a data document without an entry does
// not make a table.
func (engine *Engine) tableColumns(table string) (core.Metadata, []core.Column, error) {
	metadata := engine.LoadMetadata()
	columns, exists := metadata.Columns(table)
	if !exists {
		return nil, nil, fmt.Errorf("%w: %s", core.ErrTableNotFound, table)
	}
	return metadata, columns, nil
}

func (engine *Engine) executeCreateTableStatement(statement sql.CreateTableStatement) (CommitResult, error) {
	startTime := time.Now()

	metadata, err := op.CreateTable(engine.LoadMetadata(), statement.Table, statement.Columns)
	if err != nil {
		return CommitResult{}, err
	}

	// An orphaned data document from an earlier life of the table is reset
	txn, err := engine.commitDocuments(fmt.Sprintf("create_table %s", statement.Table), func(tb *ps.TransactionBuilder) error {
		if err := addMetadataWrite(tb, metadata); err != nil {
			return err
		}
		data, err := ps.MarshalRecords(nil)
		if err != nil {
			return err
		}
		return tb.AddWrite(ps.TablePath(statement.Table), data)
	})
	if err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Transaction:      txn,
		TablesCreated:    1,
		Message:          fmt.Sprintf("%s (%s)", statement.Table, op.SchemaDescription(metadata, statement.Table)),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func (engine *Engine) executeDropTableStatement(statement sql.DropTableStatement) (CommitResult, error) {
	startTime := time.Now()

	metadata, err := op.DropTable(engine.LoadMetadata(), statement.Table)
	if err != nil {
		return CommitResult{}, err
	}

	txn, err := engine.commitDocuments(fmt.Sprintf("drop_table %s", statement.Table), func(tb *ps.TransactionBuilder) error {
		if err := addMetadataWrite(tb, metadata); err != nil {
			return err
		}
		return tb.AddDelete(ps.TablePath(statement.Table))
	})
	if err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Transaction:      txn,
		TablesDeleted:    1,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func addMetadataWrite(tb *ps.TransactionBuilder, metadata core.Metadata) error {
	data, err := ps.MarshalMetadata(metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	return tb.AddWrite(ps.MetadataPath, data)
}

// commitDocuments batches the writes queued by fill into one commit.
func (engine *Engine) commitDocuments(message string, fill func(tb *ps.TransactionBuilder) error) (ps.Transaction, error) {
	tb, err := engine.BeginTransaction()
	if err != nil {
		return ps.Transaction{}, err
	}

	if err := fill(tb); err != nil {
		tb.Rollback()
		return ps.Transaction{}, err
	}

	return tb.Commit(engine.Identity, message)
}

func (engine *Engine) executeListTablesStatement() (QueryResult, error) {
	startTime := time.Now()

	metadata := engine.LoadMetadata()
	names := metadata.TableNames()

	data := make([][]string, len(names))
	for i, name := range names {
		data[i] = []string{name, op.SchemaDescription(metadata, name)}
	}

	message := ""
	if len(names) == 0 {
		message = "No tables defined"
	}

	return QueryResult{
		Transaction:      engine.LatestTransaction(),
		Columns:          []string{"Table", "Columns"},
		Data:             data,
		RecordsRead:      len(names),
		Message:          message,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func (engine *Engine) executeInsertStatement(statement sql.InsertStatement) (CommitResult, error) {
	startTime := time.Now()

	metadata, _, err := engine.tableColumns(statement.Table)
	if err != nil {
		return CommitResult{}, err
	}

	records := engine.LoadTableData(statement.Table)
	record, err := op.Insert(metadata, statement.Table, &records, statement.Values)
	if err != nil {
		return CommitResult{}, err
	}

	txn, err := engine.SaveTableData(statement.Table, records, engine.Identity, fmt.Sprintf("insert into %s", statement.Table))
	if err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Transaction:      txn,
		RecordsWritten:   1,
		Message:          fmt.Sprintf("ID %d", record.ID()),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func (engine *Engine) executeSelectStatement(statement sql.SelectStatement) (QueryResult, error) {
	startTime := time.Now()

	_, columns, err := engine.tableColumns(statement.Table)
	if err != nil {
		return QueryResult{}, err
	}

	head := engine.LatestTransaction()

	selected, cached := engine.cache.get(head.Id, statement.Table, statement.Where)
	if !cached {
		selected = op.Select(engine.LoadTableData(statement.Table), statement.Where)
		engine.cache.put(head.Id, statement.Table, statement.Where, selected)
	}

	names := make([]string, len(columns))
	for i, column := range columns {
		names[i] = column.Name
	}

	data := make([][]string, len(selected))
	for i, record := range selected {
		data[i] = recordCells(names, record)
	}

	return QueryResult{
		Transaction:      head,
		Columns:          names,
		Data:             data,
		Records:          selected,
		RecordsRead:      len(selected),
		Cached:           cached,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func (engine *Engine) executeUpdateStatement(statement sql.UpdateStatement) (CommitResult, error) {
	startTime := time.Now()

	metadata, _, err := engine.tableColumns(statement.Table)
	if err != nil {
		return CommitResult{}, err
	}

	records, updated, err := op.Update(metadata, statement.Table, engine.LoadTableData(statement.Table), statement.Set, statement.Where)
	if err != nil {
		return CommitResult{}, err
	}

	txn, err := engine.SaveTableData(statement.Table, records, engine.Identity, fmt.Sprintf("update %s where %s", statement.Table, statement.Where))
	if err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Transaction:      txn,
		RecordsUpdated:   updated,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func (engine *Engine) executeDeleteStatement(statement sql.DeleteStatement) (CommitResult, error) {
	startTime := time.Now()

	if _, _, err := engine.tableColumns(statement.Table); err != nil {
		return CommitResult{}, err
	}

	records := engine.LoadTableData(statement.Table)
	remaining, err := op.Delete(records, statement.Where)
	if err != nil {
		return CommitResult{}, err
	}

	txn, err := engine.SaveTableData(statement.Table, remaining, engine.Identity, fmt.Sprintf("delete from %s where %s", statement.Table, statement.Where))
	if err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Transaction:      txn,
		RecordsDeleted:   len(records) - len(remaining),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func (engine *Engine) executeInfoStatement(statement sql.InfoStatement) (QueryResult, error) {
	startTime := time.Now()

	_, columns, err := engine.tableColumns(statement.Table)
	if err != nil {
		return QueryResult{}, err
	}

	data := make([][]string, len(columns))
	for i, column := range columns {
		data[i] = []string{column.Name, string(column.Type)}
	}

	count := len(engine.LoadTableData(statement.Table))

	return QueryResult{
		Transaction:      engine.LatestTransaction(),
		Columns:          []string{"Column", "Type"},
		Data:             data,
		RecordsRead:      len(data),
		Message:          fmt.Sprintf("%s holds %d record(s)", statement.Table, count),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func (engine *Engine) executeHistoryStatement(statement sql.HistoryStatement) (QueryResult, error) {
	startTime := time.Now()

	transactions, err := engine.History(statement.Limit)
	if err != nil {
		return QueryResult{}, err
	}

	data := make([][]string, len(transactions))
	for i, txn := range transactions {
		data[i] = []string{txn.ShortId(), txn.When.Format(time.RFC3339), txn.Author, txn.Message}
	}

	return QueryResult{
		Transaction:      engine.LatestTransaction(),
		Columns:          []string{"Transaction", "When", "Author", "Message"},
		Data:             data,
		RecordsRead:      len(data),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func (engine *Engine) executeRestoreStatement(statement sql.RestoreStatement) (CommitResult, error) {
	startTime := time.Now()

	txn, err := engine.Restore(statement.Target, engine.Identity)
	if err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Transaction:      txn,
		Message:          fmt.Sprintf("restored %s", statement.Target),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func (engine *Engine) executeSnapshotStatement(statement sql.SnapshotStatement) (CommitResult, error) {
	startTime := time.Now()

	txn, err := engine.Snapshot(statement.Name)
	if err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Message:          fmt.Sprintf("snapshot %s at %s", statement.Name, txn.ShortId()),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func (engine *Engine) executeExportStatement(ctx context.Context, statement sql.ExportStatement) (CommitResult, error) {
	startTime := time.Now()

	if _, _, err := engine.tableColumns(statement.Table); err != nil {
		return CommitResult{}, err
	}

	records := engine.LoadTableData(statement.Table)
	data, err := ps.MarshalRecords(records)
	if err != nil {
		return CommitResult{}, fmt.Errorf("failed to encode table %s: %w", statement.Table, err)
	}

	checksum, err := writeRemote(ctx, statement.URL, data, &engine.S3)
	if err != nil {
		return CommitResult{}, err
	}

	engine.logger().Info("table exported", "table", statement.Table, "url", statement.URL, "records", len(records))

	return CommitResult{
		Message:          fmt.Sprintf("exported %d record(s) to %s", len(records), statement.URL),
		Checksum:         checksum,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

// executeImportStatement appends every object of a JSON array through
// op.Insert, so imported rows get fresh identifiers and schema-checked values.
// Nothing is saved unless every row is accepted.
func (engine *Engine) executeImportStatement(ctx context.Context, statement sql.ImportStatement) (CommitResult, error) {
	startTime := time.Now()

	metadata, columns, err := engine.tableColumns(statement.Table)
	if err != nil {
		return CommitResult{}, err
	}

	data, err := readRemote(ctx, statement.URL, &engine.S3)
	if err != nil {
		return CommitResult{}, err
	}

	incoming, err := ps.UnmarshalRecords(data)
	if err != nil {
		return CommitResult{}, fmt.Errorf("%w: %s is not a JSON array of records: %w", core.ErrInvalidValue, statement.URL, err)
	}

	userColumns := op.UserColumns(columns)
	records := engine.LoadTableData(statement.Table)

	for i, record := range incoming {
		values := make([]string, len(userColumns))
		for j, column := range userColumns {
			value, ok := record[column.Name]
			if !ok {
				return CommitResult{}, fmt.Errorf("%w: record %d has no column %s", core.ErrArityMismatch, i+1, column.Name)
			}
			values[j] = core.Display(value)
		}

		if _, err := op.Insert(metadata, statement.Table, &records, values); err != nil {
			return CommitResult{}, fmt.Errorf("record %d: %w", i+1, err)
		}
	}

	result := CommitResult{
		Message: fmt.Sprintf("imported from %s", statement.URL),
	}

	if len(incoming) > 0 {
		txn, err := engine.SaveTableData(statement.Table, records, engine.Identity, fmt.Sprintf("import into %s from %s", statement.Table, statement.URL))
		if err != nil {
			return CommitResult{}, err
		}
		result.Transaction = txn
		result.RecordsWritten = len(incoming)
	}

	engine.logger().Info("table imported", "table", statement.Table, "url", statement.URL, "records", len(incoming))

	result.ExecutionTimeSec = time.Since(startTime).Seconds()
	return result, nil
}

func (engine *Engine) executeAddRemoteStatement(statement sql.AddRemoteStatement) (CommitResult, error) {
	startTime := time.Now()

	name := statement.Name
	if name == "" {
		name = ps.DefaultRemote
	}

	if err := engine.AddRemote(name, statement.URL); err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Message:          fmt.Sprintf("remote %s -> %s", name, statement.URL),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func (engine *Engine) executeListRemotesStatement() (QueryResult, error) {
	startTime := time.Now()

	remotes, err := engine.Remotes()
	if err != nil {
		return QueryResult{}, err
	}

	var data [][]string
	for _, remote := range remotes {
		for _, url := range remote.URLs {
			data = append(data, []string{remote.Name, url})
		}
	}

	return QueryResult{
		Transaction:      engine.LatestTransaction(),
		Columns:          []string{"Remote", "URL"},
		Data:             data,
		RecordsRead:      len(data),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func (engine *Engine) executePushStatement(statement sql.PushStatement) (CommitResult, error) {
	startTime := time.Now()

	if err := engine.Push(statement.Remote, engine.GitAuth); err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Message:          "pushed",
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func (engine *Engine) executePullStatement(statement sql.PullStatement) (CommitResult, error) {
	startTime := time.Now()

	txn, err := engine.Pull(statement.Remote, engine.GitAuth)
	if err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Transaction:      txn,
		Message:          "pulled",
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}
