package db

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nickyhof/PrimitiveDB/core"
	"github.com/nickyhof/PrimitiveDB/ps"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		secs     float64
		expected string
	}{
		{0.0001, "<1ms"},
		{0.005, "5.0ms"},
		{0.25, "250ms"},
		{2.5, "2.5s"},
		{42, "42s"},
		{120, "2m"},
		{125, "2m5s"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.secs); got != tt.expected {
			t.Errorf("formatDuration(%v) = %q, expected %q", tt.secs, got, tt.expected)
		}
	}
}

func TestQueryResultDisplay(t *testing.T) {
	result := QueryResult{
		Columns:     []string{"ID", "name"},
		Data:        [][]string{{"1", "Alice"}, {"2", "Zoë"}},
		RecordsRead: 2,
		Cached:      true,
	}

	var buf bytes.Buffer
	result.Display(&buf)

	expected := strings.Join([]string{
		"+----+-------+",
		"| ID | name  |",
		"+----+-------+",
		"| 1  | Alice |",
		"| 2  | Zoë   |",
		"+----+-------+",
		"2 rows (<1ms, cached)",
		"",
	}, "\n")
	if buf.String() != expected {
		t.Errorf("Unexpected output:\n%s\nexpected:\n%s", buf.String(), expected)
	}
}

func TestQueryResultDisplayEmpty(t *testing.T) {
	var buf bytes.Buffer
	QueryResult{Columns: []string{"ID"}, Message: "No tables defined"}.Display(&buf)

	if buf.String() != "No tables defined\n0 rows (<1ms)\n" {
		t.Errorf("Unexpected output %q", buf.String())
	}
}

func TestCommitResultDisplay(t *testing.T) {
	tests := []struct {
		name     string
		result   CommitResult
		expected string
	}{
		{
			"bare",
			CommitResult{},
			"OK (<1ms)\n",
		},
		{
			"counts and transaction",
			CommitResult{
				Transaction:    ps.Transaction{Id: "0123456789abcdef"},
				RecordsUpdated: 2,
			},
			"2 record(s) updated (<1ms, txn 01234567)\n",
		},
		{
			"message and checksum",
			CommitResult{Message: "exported 1 record(s) to x.json", Checksum: "abc"},
			"exported 1 record(s) to x.json (<1ms)\nblake3: abc\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.result.Display(&buf)
			if buf.String() != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, buf.String())
			}
		})
	}
}

func TestGridRaggedRows(t *testing.T) {
	var buf bytes.Buffer
	table := newGrid(nil)
	table.add([]string{"a", "bb"})
	table.add([]string{"ccc"})
	table.WriteTo(&buf)

	expected := "+-----+----+\n| a   | bb |\n| ccc |    |\n+-----+----+\n"
	if buf.String() != expected {
		t.Errorf("Expected:\n%s\ngot:\n%s", expected, buf.String())
	}
}

func TestGridEmpty(t *testing.T) {
	var buf bytes.Buffer
	if n, err := newGrid(nil).WriteTo(&buf); n != 0 || err != nil || buf.Len() != 0 {
		t.Errorf("Expected no output, got %d bytes %q (%v)", n, buf.String(), err)
	}
}

func TestQueryResultDisplayRecords(t *testing.T) {
	result := QueryResult{
		Columns: []string{"ID", "name", "active"},
		Records: []core.Record{
			{"ID": int64(1), "name": "Alice", "active": true},
			{"ID": int64(2), "active": false},
		},
		RecordsRead: 2,
	}

	var buf bytes.Buffer
	result.Display(&buf)

	expected := strings.Join([]string{
		"+----+-------+--------+",
		"| ID | name  | active |",
		"+----+-------+--------+",
		"| 1  | Alice | true   |",
		"| 2  | null  | false  |",
		"+----+-------+--------+",
		"2 rows (<1ms)",
		"",
	}, "\n")
	if buf.String() != expected {
		t.Errorf("Unexpected output:\n%s\nexpected:\n%s", buf.String(), expected)
	}
}
