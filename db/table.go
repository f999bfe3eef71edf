package db

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/nickyhof/PrimitiveDB/core"
)

// grid lays rows out as a boxed ASCII table. Widths grow as rows are added
// and are counted in runes.
type grid struct {
	headers []string
	rows    [][]string
	widths  []int
}

func newGrid(headers []string) *grid {
	g := &grid{headers: headers}
	g.fit(headers)
	return g
}

func (g *grid) fit(cells []string) {
	for len(g.widths) < len(cells) {
		g.widths = append(g.widths, 1)
	}
	for i, cell := range cells {
		g.widths[i] = max(g.widths[i], utf8.RuneCountInString(cell))
	}
}

func (g *grid) add(cells []string) {
	g.rows = append(g.rows, cells)
	g.fit(cells)
}

// addRecord appends the values of record in column order.
func (g *grid) addRecord(columns []string, record core.Record) {
	g.add(recordCells(columns, record))
}

// recordCells renders record in column order; absent values show as null.
func recordCells(columns []string, record core.Record) []string {
	cells := make([]string, len(columns))
	for i, column := range columns {
		cells[i] = core.Display(record[column])
	}
	return cells
}

func (g *grid) rule(b *strings.Builder) {
	b.WriteByte('+')
	for _, width := range g.widths {
		b.WriteString(strings.Repeat("-", width+2))
		b.WriteByte('+')
	}
	b.WriteByte('\n')
}

func (g *grid) line(b *strings.Builder, cells []string) {
	b.WriteByte('|')
	for i, width := range g.widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		b.WriteByte(' ')
		b.WriteString(cell)
		b.WriteString(strings.Repeat(" ", width-utf8.RuneCountInString(cell)+1))
		b.WriteByte('|')
	}
	b.WriteByte('\n')
}

// WriteTo writes the table to w. A grid without headers or rows writes nothing.
func (g *grid) WriteTo(w io.Writer) (int64, error) {
	if len(g.headers) == 0 && len(g.rows) == 0 {
		return 0, nil
	}

	var b strings.Builder
	g.rule(&b)
	if len(g.headers) > 0 {
		g.line(&b, g.headers)
		g.rule(&b)
	}
	for _, row := range g.rows {
		g.line(&b, row)
	}
	g.rule(&b)

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
