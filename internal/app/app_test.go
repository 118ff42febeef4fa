package app

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junzzhu/openshift-mcp-server/internal/diagerr"
	"github.com/junzzhu/openshift-mcp-server/internal/report"
	"github.com/junzzhu/openshift-mcp-server/internal/tools"
)

type call struct {
	name string
	args map[string]any
}

type fakeInvoker struct {
	calls []call
	rep   *report.Report
	err   error
}

func (f *fakeInvoker) Invoke(_ context.Context, name string, raw json.RawMessage) (*report.Report, error) {
	var args map[string]any
	_ = json.Unmarshal(raw, &args)
	f.calls = append(f.calls, call{name: name, args: args})
	return f.rep, f.err
}

func key(t tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: t} }

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func sampleReport() *report.Report {
	rep := &report.Report{Title: "Node Storage Usage", Coverage: report.Coverage{Collected: 2, Total: 3, Unit: "nodes"}}
	rep.Add("Nodes", report.Prose{Text: "worker-0 is fine"})
	return rep
}

func TestRunToolWithoutArguments(t *testing.T) {
	inv := &fakeInvoker{rep: sampleReport()}
	m := New(inv, "prod")
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	m, cmd := update(t, m, key(tea.KeyEnter))
	require.NotNil(t, cmd)
	assert.Equal(t, ViewReport, m.view)
	assert.True(t, m.running)
	assert.Contains(t, m.View(), "running "+tools.StorageUsageTool)

	m, _ = update(t, m, cmd())
	assert.False(t, m.running)
	require.Len(t, inv.calls, 1)
	assert.Equal(t, tools.StorageUsageTool, inv.calls[0].name)
	assert.Empty(t, inv.calls[0].args)

	view := m.View()
	assert.Contains(t, view, "ctx: prod")
	assert.Contains(t, view, "2/3 nodes")
	assert.Contains(t, view, "worker-0 is fine")

	m, _ = update(t, m, key(tea.KeyEsc))
	assert.Equal(t, ViewTools, m.view)
}

func TestPromptForRequiredArguments(t *testing.T) {
	inv := &fakeInvoker{rep: sampleReport()}
	m := New(inv, "")
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	m, _ = update(t, m, key(tea.KeyDown))
	m, _ = update(t, m, key(tea.KeyEnter))
	require.Equal(t, ViewPrompt, m.view)
	assert.Equal(t, "node=", m.input.Value())
	assert.Contains(t, m.View(), tools.StorageForensicsTool)

	m.input.SetValue("node=worker-0 top_n=3")
	m, cmd := update(t, m, key(tea.KeyEnter))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())

	require.Len(t, inv.calls, 1)
	assert.Equal(t, tools.StorageForensicsTool, inv.calls[0].name)
	assert.Equal(t, map[string]any{"node": "worker-0", "top_n": float64(3)}, inv.calls[0].args)
	assert.Equal(t, "node=worker-0 top_n=3", m.args)

	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	require.NotNil(t, cmd)
	cmd()
	assert.Len(t, inv.calls, 2, "r re-runs with the same arguments")
	assert.Equal(t, inv.calls[0], inv.calls[1])
}

func TestPromptEscapeReturnsToTools(t *testing.T) {
	m := New(&fakeInvoker{}, "")
	m, _ = update(t, m, key(tea.KeyDown))
	m, _ = update(t, m, key(tea.KeyEnter))
	m, _ = update(t, m, key(tea.KeyEsc))
	assert.Equal(t, ViewTools, m.view)
	assert.Contains(t, m.View(), "[Enter] run")
}

func TestToolErrorIsShown(t *testing.T) {
	inv := &fakeInvoker{err: diagerr.Unavailable("oc", "get pod", assert.AnError)}
	m := New(inv, "")
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m, cmd := update(t, m, key(tea.KeyEnter))
	m, _ = update(t, m, cmd())

	view := m.View()
	assert.Contains(t, view, "failed")
	assert.Contains(t, view, string(diagerr.CollaboratorUnavailable))
}

func TestBadPairsNeverReachTheInvoker(t *testing.T) {
	inv := &fakeInvoker{}
	m := New(inv, "")
	msg := m.run(tools.StorageForensicsTool, "worker-0")()
	rm, ok := msg.(reportMsg)
	require.True(t, ok)
	assert.True(t, diagerr.Is(rm.err, diagerr.InvalidParameter))
	assert.Empty(t, inv.calls)
}

func TestQuit(t *testing.T) {
	m := New(&fakeInvoker{}, "")
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Error(t, m.ctx.Err(), "quitting cancels running tools")
}

func TestTableListsCatalog(t *testing.T) {
	m := New(&fakeInvoker{}, "")
	rows := m.table.Rows()
	require.Len(t, rows, len(tools.Catalog()))
	assert.Equal(t, tools.StorageUsageTool, rows[0][0])
	assert.Equal(t, "-", rows[0][1])
	assert.Equal(t, "node", rows[1][1])
	assert.True(t, strings.Contains(rows[len(rows)-1][1], "namespace"))
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, 4, clamp(1, 4, 8))
	assert.Equal(t, 8, clamp(12, 4, 8))
	assert.Equal(t, 6, clamp(6, 4, 8))

	name, req, desc := toolColWidths(120)
	assert.Equal(t, 32, name)
	assert.Equal(t, 16, req)
	assert.Equal(t, 66, desc)
	_, _, desc = toolColWidths(40)
	assert.Equal(t, 20, desc)
	_, _, desc = toolColWidths(400)
	assert.Equal(t, 140, desc)

	assert.Equal(t, "namespace= pod=", promptTemplate([]string{"namespace", "pod"}))
	assert.Empty(t, promptTemplate(nil))
}
