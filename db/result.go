package db

import (
	"fmt"
	"io"
	"strings"

	"github.com/nickyhof/PrimitiveDB/core"
	"github.com/nickyhof/PrimitiveDB/ps"
)

type ResultType int

const (
	QueryResultType ResultType = iota
	CommitResultType
)

type Result interface {
	Type() ResultType
	Display(w io.Writer)
}

// QueryResult is returned by commands that only read: select, list_tables,
// info, history and list_remotes.
type QueryResult struct {
	Transaction      ps.Transaction // HEAD the result was read from
	Columns          []string
	Data             [][]string
	Records          []core.Record // select only
	RecordsRead      int
	Message          string
	Cached           bool
	ExecutionTimeSec float64
}

// CommitResult is returned by commands that change state or move data.
// Transaction is zero when nothing was committed (export, push).
type CommitResult struct {
	Transaction      ps.Transaction
	TablesCreated    int
	TablesDeleted    int
	RecordsWritten   int
	RecordsUpdated   int
	RecordsDeleted   int
	Message          string
	Checksum         string
	ExecutionTimeSec float64
}

func (result QueryResult) Type() ResultType {
	return QueryResultType
}

func (result CommitResult) Type() ResultType {
	return CommitResultType
}

// formatDuration formats a duration in human-readable form
func formatDuration(secs float64) string {
	switch {
	case secs < 0.001:
		return "<1ms"
	case secs < 0.01:
		return fmt.Sprintf("%.1fms", secs*1000)
	case secs < 1:
		return fmt.Sprintf("%dms", int(secs*1000))
	case secs < 10:
		return fmt.Sprintf("%.1fs", secs)
	case secs < 60:
		return fmt.Sprintf("%ds", int(secs))
	default:
		mins := int(secs / 60)
		remainSecs := int(secs) % 60
		if remainSecs == 0 {
			return fmt.Sprintf("%dm", mins)
		}
		return fmt.Sprintf("%dm%ds", mins, remainSecs)
	}
}

func (result QueryResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (result CommitResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (result QueryResult) Display(w io.Writer) {
	switch {
	case len(result.Records) > 0:
		table := newGrid(result.Columns)
		for _, record := range result.Records {
			table.addRecord(result.Columns, record)
		}
		table.WriteTo(w)
	case len(result.Data) > 0:
		table := newGrid(result.Columns)
		for _, row := range result.Data {
			table.add(row)
		}
		table.WriteTo(w)
	}

	if result.Message != "" {
		fmt.Fprintln(w, result.Message)
	}

	cached := ""
	if result.Cached {
		cached = ", cached"
	}
	fmt.Fprintf(w, "%d rows (%s%s)\n", result.RecordsRead, result.ExecutionTime(), cached)
}

func (result CommitResult) Display(w io.Writer) {
	var parts []string

	if result.Message != "" {
		parts = append(parts, result.Message)
	}
	if result.TablesCreated > 0 {
		parts = append(parts, fmt.Sprintf("%d table(s) created", result.TablesCreated))
	}
	if result.TablesDeleted > 0 {
		parts = append(parts, fmt.Sprintf("%d table(s) deleted", result.TablesDeleted))
	}
	if result.RecordsWritten > 0 {
		parts = append(parts, fmt.Sprintf("%d record(s) written", result.RecordsWritten))
	}
	if result.RecordsUpdated > 0 {
		parts = append(parts, fmt.Sprintf("%d record(s) updated", result.RecordsUpdated))
	}
	if result.RecordsDeleted > 0 {
		parts = append(parts, fmt.Sprintf("%d record(s) deleted", result.RecordsDeleted))
	}

	txn := ""
	if result.Transaction.Id != "" {
		txn = ", txn " + result.Transaction.ShortId()
	}

	if len(parts) == 0 {
		fmt.Fprintf(w, "OK (%s%s)\n", result.ExecutionTime(), txn)
	} else {
		fmt.Fprintf(w, "%s (%s%s)\n", strings.Join(parts, ", "), result.ExecutionTime(), txn)
	}
	if result.Checksum != "" {
		fmt.Fprintf(w, "blake3: %s\n", result.Checksum)
	}
}
