// Package app is the interactive report browser: pick a tool, supply its
// required arguments, read the rendered report.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/junzzhu/openshift-mcp-server/internal/diagerr"
	"github.com/junzzhu/openshift-mcp-server/internal/report"
	"github.com/junzzhu/openshift-mcp-server/internal/tools"
	"github.com/junzzhu/openshift-mcp-server/internal/ui/styles"
	"github.com/junzzhu/openshift-mcp-server/internal/ui/widgets"
)

// Invoker runs a tool by name; *tools.Toolbox implements it.
type Invoker interface {
	Invoke(ctx context.Context, name string, args json.RawMessage) (*report.Report, error)
}

type View int

const (
	ViewTools View = iota
	ViewPrompt
	ViewReport
)

type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	inv     Invoker
	catalog []tools.Entry
	context string

	view  View
	table table.Model
	input textinput.Model
	vp    viewport.Model

	// last run
	tool    string
	args    string
	running bool
	started time.Time
	elapsed time.Duration
	rep     *report.Report
	err     error

	width, height int
}

func New(inv Invoker, clusterContext string) Model {
	ctx, cancel := context.WithCancel(context.Background())

	t := table.New()
	t.SetHeight(12)
	t.SetWidth(100)

	in := textinput.New()
	in.Prompt = "args> "
	in.CharLimit = 512

	m := Model{
		ctx:     ctx,
		cancel:  cancel,
		inv:     inv,
		catalog: tools.Catalog(),
		context: clusterContext,
		view:    ViewTools,
		table:   t,
		input:   in,
		vp:      viewport.New(100, 10),
	}
	m.rebuildTable()
	m.table.Focus()
	return m
}

func (m Model) Init() tea.Cmd { return nil }

type reportMsg struct {
	tool    string
	rep     *report.Report
	err     error
	elapsed time.Duration
}

func (m Model) run(name, args string) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		raw, err := tools.ArgsFromPairs(nil, strings.Fields(args))
		if err != nil {
			return reportMsg{tool: name, err: err}
		}
		rep, err := m.inv.Invoke(m.ctx, name, raw)
		return reportMsg{tool: name, rep: rep, err: err, elapsed: time.Since(start)}
	}
}

func (m Model) selected() (tools.Entry, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.catalog) {
		return tools.Entry{}, false
	}
	return m.catalog[i], true
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		headerH := lipgloss.Height(styles.Header.Render("x"))
		footerH := lipgloss.Height(styles.Footer.Render("x"))
		base := m.height - headerH - footerH - 2
		if base < 10 {
			base = 10
		}
		m.table.SetWidth(m.width - 4)
		m.table.SetHeight(clamp(len(m.catalog)+1, 4, base))
		m.vp.Width = m.width - 4
		m.vp.Height = base - 2
		m.input.Width = m.width - 10
		m.rebuildTable()
		m.setContent()
		return m, nil

	case reportMsg:
		m.running = false
		m.rep, m.err, m.elapsed = msg.rep, msg.err, msg.elapsed
		m.setContent()
		m.vp.GotoTop()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit
		}
		switch m.view {
		case ViewPrompt:
			return m.updatePrompt(msg)
		case ViewReport:
			return m.updateReport(msg)
		}
		return m.updateTools(msg)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) updateTools(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.cancel()
		return m, tea.Quit
	case "enter":
		e, ok := m.selected()
		if !ok {
			return m, nil
		}
		if len(e.Required) > 0 {
			m.view = ViewPrompt
			m.input.SetValue(promptTemplate(e.Required))
			m.input.CursorEnd()
			m.input.Focus()
			m.table.Blur()
			return m, textinput.Blink
		}
		return m.start(e.Name, "")
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.view = ViewTools
		m.input.Blur()
		m.table.Focus()
		return m, nil
	case "enter":
		e, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.input.Blur()
		return m.start(e.Name, m.input.Value())
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateReport(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.view = ViewTools
		m.table.Focus()
		return m, nil
	case "r":
		if !m.running {
			return m.start(m.tool, m.args)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m Model) start(name, args string) (tea.Model, tea.Cmd) {
	m.view = ViewReport
	m.tool, m.args = name, args
	m.running = true
	m.started = time.Now()
	m.rep, m.err = nil, nil
	m.setContent()
	return m, m.run(name, args)
}

func promptTemplate(required []string) string {
	parts := make([]string, len(required))
	for i, r := range required {
		parts[i] = r + "="
	}
	return strings.Join(parts, " ")
}

func (m *Model) setContent() {
	switch {
	case m.running:
		m.vp.SetContent(styles.Running.Render("running " + m.tool + "..."))
	case m.err != nil:
		d := diagerr.Describe(m.err)
		m.vp.SetContent(styles.Danger.Render(fmt.Sprintf("%s (%s): %s", d.Kind, d.Subject, d.Message)))
	case m.rep != nil:
		m.vp.SetContent(report.Render(m.rep))
	default:
		m.vp.SetContent("")
	}
}

func (m *Model) rebuildTable() {
	wName, wReq, wDesc := toolColWidths(m.table.Width())
	cols := []table.Column{
		{Title: "TOOL", Width: wName},
		{Title: "REQUIRES", Width: wReq},
		{Title: "DESCRIPTION", Width: wDesc},
	}
	rows := make([]table.Row, 0, len(m.catalog))
	for _, e := range m.catalog {
		req := strings.Join(e.Required, ",")
		if req == "" {
			req = "-"
		}
		rows = append(rows, table.Row{e.Name, req, e.Description})
	}
	m.table.SetColumns(cols)
	m.table.SetRows(rows)
}

func (m Model) View() string {
	head := styles.Header.Render(m.header())
	var body string
	switch m.view {
	case ViewTools:
		body = lipgloss.NewStyle().Padding(0, 1).Render(m.table.View())
	case ViewPrompt:
		e, _ := m.selected()
		box := styles.Box.BorderForeground(lipgloss.Color("#7DCE13")).Width(clamp(m.width-4, 40, 200))
		body = box.Render(lipgloss.JoinVertical(lipgloss.Left,
			styles.Prompt.Render(" "+e.Name+" "),
			styles.Faint.Render(e.Description),
			m.input.View(),
		))
	case ViewReport:
		body = styles.Box.Width(clamp(m.width-2, 20, 400)).Render(m.vp.View())
	}
	return lipgloss.JoinVertical(lipgloss.Left, head, body, styles.Footer.Render(m.footer()))
}

func (m Model) header() string {
	ctxName := m.context
	if ctxName == "" {
		ctxName = "current"
	}
	h := fmt.Sprintf("openshift-mcp-server │ ctx: %s", ctxName)
	if m.view != ViewReport || m.tool == "" {
		return h
	}
	h += " │ " + m.tool
	switch {
	case m.running:
		h += " " + styles.Running.Render(fmt.Sprintf("running %s", time.Since(m.started).Round(time.Second)))
	case m.rep != nil:
		c := m.rep.Coverage
		h += " │ " + styles.ForCoverage(c.Ratio()).Render(widgets.Coverage(c.Collected, c.Total, c.Unit, 12))
		h += fmt.Sprintf(" │ %s", m.elapsed.Round(time.Millisecond))
	case m.err != nil:
		h += " │ " + styles.Danger.Render("failed")
	}
	return h
}

func (m Model) footer() string {
	switch m.view {
	case ViewPrompt:
		return "type key=value pairs • [Enter] run • [Esc] back"
	case ViewReport:
		return "↑/↓ pgup/pgdn scroll • [r] re-run • [Esc] back • [ctrl+c] quit"
	}
	return "↑/↓ move • [Enter] run • [q] quit"
}
