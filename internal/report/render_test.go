package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/junzzhu/openshift-mcp-server/internal/quantity"
)

func TestRenderSectionsInOrder(t *testing.T) {
	rep := &Report{Title: "Storage Usage Report (1 node)"}
	rep.Note("data unavailable for node worker-1: exit code 1")
	tbl := NewTable("No nodes found.", "Node", "Used")
	tbl.Add(Mono("worker-0"), Bytes(quantity.FromBytes(2791728742)))
	rep.Add("Summary", tbl)
	rep.Add("Recommendations", List{Items: []string{"first", "second"}, Ordered: true})
	rep.Add("", Prose{Text: "done"})

	want := "## Storage Usage Report (1 node)\n\n" +
		"> **Note:** data unavailable for node worker-1: exit code 1\n\n" +
		"### Summary\n\n" +
		"| Node | Used |\n" +
		"| ---- | ---- |\n" +
		"| `worker-0` | 2.60 Gi |\n\n" +
		"### Recommendations\n\n" +
		"1. first\n2. second\n\n" +
		"done\n"
	assert.Equal(t, want, Render(rep))
}

func TestRenderEmptyMarkers(t *testing.T) {
	rep := &Report{}
	rep.Add("Pods", NewTable("No pods are using ephemeral storage.", "Pod"))
	rep.Add("Issues", List{Empty: "No issues detected."})
	rep.Add("Other", List{})

	out := Render(rep)
	assert.Contains(t, out, "### Pods\n\n_No pods are using ephemeral storage._\n")
	assert.Contains(t, out, "_No issues detected._")
	assert.Contains(t, out, "_"+DefaultEmpty+"_")
	assert.NotContains(t, out, "| Pod |")
}

func TestRenderNestedAndCode(t *testing.T) {
	inner := &Report{Title: "Container: `api` [PREVIOUS]"}
	inner.Add("", Code{Text: "panic: boom\n\n"})
	rep := &Report{Title: "Pod Logs"}
	rep.Add("", Nested{Report: inner})

	out := Render(rep)
	assert.Contains(t, out, "#### Container: `api` [PREVIOUS]\n\n")
	assert.Contains(t, out, "```\npanic: boom\n```\n")
}

func TestRenderEscapesCells(t *testing.T) {
	tbl := NewTable("", "Message")
	tbl.Add(Text("a | b\nc"))
	out := Render((&Report{}).Add("", tbl))
	assert.Contains(t, out, `| a \| b c |`)
}

func TestRenderIsDeterministic(t *testing.T) {
	build := func() *Report {
		rep := &Report{Title: "x"}
		rep.Note("n")
		tbl := NewTable("", "A", "B")
		tbl.Add(Text("1"))
		rep.Add("T", tbl)
		return rep
	}
	assert.Equal(t, Render(build()), Render(build()))
}

func TestTableAddPadsAndTruncates(t *testing.T) {
	tbl := NewTable("", "A", "B")
	tbl.Add(Text("1"))
	tbl.Add(Text("1"), Text("2"), Text("3"))
	assert.Equal(t, []Cell{"1", Missing}, tbl.Rows[0])
	assert.Equal(t, []Cell{"1", "2"}, tbl.Rows[1])
}

func TestCells(t *testing.T) {
	assert.Equal(t, Missing, Text(""))
	assert.Equal(t, Cell("**90.0%**"), Highlight(quantity.FromPercent(90), 80))
	assert.Equal(t, Cell("40.0%"), Highlight(quantity.FromPercent(40), 80))
	assert.Equal(t, Cell("34"), Float(34, 0))
	assert.Equal(t, Cell("-7"), Int(-7))
}

func TestCoverageRatio(t *testing.T) {
	assert.Equal(t, 1.0, Coverage{}.Ratio())
	assert.Equal(t, 0.5, Coverage{Collected: 1, Total: 2}.Ratio())
}
