// Package report holds the report tree built by each tool and renders it as
// markdown.
package report

import (
	"strconv"

	"github.com/junzzhu/openshift-mcp-server/internal/quantity"
)

// Report is built once per tool invocation and not changed after Render.
type Report struct {
	Title    string
	Sections []Section
	// Notes carry data-quality and partial-data messages.
	Notes    []string
	Coverage Coverage
}

// Coverage counts the units (nodes, pods, volumes, queries) a report tried
// to collect and how many succeeded.
type Coverage struct {
	Collected int
	Total     int
	Unit      string
}

func (c Coverage) Ratio() float64 {
	if c.Total == 0 {
		return 1
	}
	return float64(c.Collected) / float64(c.Total)
}

type Section struct {
	Title string
	Body  Body
}

// Body is one of Prose, *Table, List, Code or Nested.
type Body interface{ body() }

type Prose struct{ Text string }

type List struct {
	Items   []string
	Ordered bool
	Empty   string
}

type Code struct{ Text string }

type Nested struct{ Report *Report }

// Table keeps columns in the order they were added. Empty is printed instead
// of the table when there are no rows.
type Table struct {
	Columns []string
	Rows    [][]Cell
	Empty   string
}

func (Prose) body()  {}
func (List) body()   {}
func (Code) body()   {}
func (Nested) body() {}
func (*Table) body() {}

func NewTable(empty string, columns ...string) *Table {
	return &Table{Columns: columns, Empty: empty}
}

// Add appends a row; missing cells render as "-", extra ones are dropped.
func (t *Table) Add(cells ...Cell) {
	row := make([]Cell, len(t.Columns))
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		} else {
			row[i] = Missing
		}
	}
	t.Rows = append(t.Rows, row)
}

func (r *Report) Add(title string, b Body) *Report {
	r.Sections = append(r.Sections, Section{Title: title, Body: b})
	return r
}

func (r *Report) Note(msg string) {
	r.Notes = append(r.Notes, msg)
}

// Cell is pre-formatted table text. Build cells with the helpers below so
// that bytes and percentages share one format.
type Cell string

const Missing Cell = "-"

func Text(s string) Cell {
	if s == "" {
		return Missing
	}
	return Cell(s)
}

func Mono(s string) Cell { return Cell("`" + s + "`") }

func Bold(c Cell) Cell { return "**" + c + "**" }

func Bytes(q quantity.Quantity) Cell { return Cell(q.Format()) }

// Percent renders a percentage with one decimal place.
func Percent(q quantity.Quantity) Cell { return Cell(q.Format()) }

func Int(n int64) Cell { return Cell(strconv.FormatInt(n, 10)) }

func Float(v float64, places int) Cell {
	return Cell(strconv.FormatFloat(v, 'f', places, 64))
}

// Highlight bolds a percentage at or above limit.
func Highlight(q quantity.Quantity, limit float64) Cell {
	if q.Value() >= limit {
		return Bold(Percent(q))
	}
	return Percent(q)
}
