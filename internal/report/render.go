package report

import (
	"strconv"
	"strings"
)

// DefaultEmpty is used by sections that did not set their own empty marker.
const DefaultEmpty = "No results."

// Render writes the report as markdown. The output depends only on the
// report contents.
func Render(r *Report) string {
	var b strings.Builder
	render(&b, r, 2)
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func heading(b *strings.Builder, level int, title string) {
	if level > 6 {
		level = 6
	}
	b.WriteString(strings.Repeat("#", level))
	b.WriteByte(' ')
	b.WriteString(title)
	b.WriteString("\n\n")
}

func render(b *strings.Builder, r *Report, level int) {
	if r == nil {
		return
	}
	if r.Title != "" {
		heading(b, level, r.Title)
	}
	for _, n := range r.Notes {
		b.WriteString("> **Note:** ")
		b.WriteString(oneLine(n))
		b.WriteString("\n")
	}
	if len(r.Notes) > 0 {
		b.WriteString("\n")
	}
	for _, s := range r.Sections {
		if s.Title != "" {
			heading(b, level+1, s.Title)
		}
		switch body := s.Body.(type) {
		case Prose:
			b.WriteString(body.Text)
			b.WriteString("\n\n")
		case List:
			renderList(b, body)
		case Code:
			b.WriteString("```\n")
			b.WriteString(strings.TrimRight(body.Text, "\n"))
			b.WriteString("\n```\n\n")
		case Nested:
			render(b, body.Report, level+2)
		case *Table:
			renderTable(b, body)
		}
	}
}

func emptyLine(b *strings.Builder, marker string) {
	if marker == "" {
		marker = DefaultEmpty
	}
	b.WriteString("_")
	b.WriteString(marker)
	b.WriteString("_\n\n")
}

func renderList(b *strings.Builder, l List) {
	if len(l.Items) == 0 {
		emptyLine(b, l.Empty)
		return
	}
	for i, it := range l.Items {
		if l.Ordered {
			b.WriteString(strconv.Itoa(i + 1))
			b.WriteString(". ")
		} else {
			b.WriteString("- ")
		}
		b.WriteString(it)
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func renderTable(b *strings.Builder, t *Table) {
	if t == nil || len(t.Rows) == 0 {
		marker := ""
		if t != nil {
			marker = t.Empty
		}
		emptyLine(b, marker)
		return
	}
	row := func(cells []string) {
		b.WriteString("|")
		for _, c := range cells {
			b.WriteString(" ")
			b.WriteString(c)
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}
	row(t.Columns)
	sep := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		sep[i] = strings.Repeat("-", max(3, len(c)))
	}
	row(sep)
	for _, r := range t.Rows {
		cells := make([]string, len(r))
		for i, c := range r {
			cells[i] = escapeCell(string(c))
		}
		row(cells)
	}
	b.WriteString("\n")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(oneLine(s), "|", `\|`)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
