package tools

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/junzzhu/openshift-mcp-server/internal/domain"
	"github.com/junzzhu/openshift-mcp-server/internal/parser"
	"github.com/junzzhu/openshift-mcp-server/internal/report"
	"github.com/junzzhu/openshift-mcp-server/internal/signal"
)

const (
	eventLimit      = 20
	eventMessageMax = 80
	defaultLogTail  = 100
)

// PodDiagnostics reports the status, conditions, containers and recent
// warning events of one pod with the issues found.
func (t *Toolbox) PodDiagnostics(ctx context.Context, in PodDiagnosticsInput) (*report.Report, error) {
	if err := firstErr(checkNamespace("namespace", in.Namespace, true), checkName("pod", in.Pod, true)); err != nil {
		return nil, err
	}
	raw, err := t.get(ctx, "pod", in.Namespace, in.Pod)
	if err != nil {
		return nil, err
	}
	rec, _, err := parser.ParsePod(raw)
	if err != nil {
		return nil, err
	}
	sens := t.opts.Thresholds.PodRestartSensitivity
	rec.Issues = signal.PodIssues(rec, sens)

	rep := &report.Report{
		Title:    fmt.Sprintf("Pod Diagnostics: `%s/%s`", in.Namespace, in.Pod),
		Coverage: report.Coverage{Collected: 1, Total: 2, Unit: "sources"},
	}

	start := "N/A"
	if rec.StartTime != nil {
		start = rec.StartTime.Format(time.RFC3339)
	}
	node := rec.NodeName
	if node == "" {
		node = "Not assigned"
	}
	qos := rec.QoSClass
	if qos == "" {
		qos = "N/A"
	}
	rep.Add("Pod Status", report.List{Items: []string{
		"**Phase**: " + rec.Phase,
		"**Node**: " + node,
		"**QoS Class**: " + qos,
		"**Start Time**: " + start,
	}})

	conds := report.NewTable("No conditions reported.", "Condition", "Status", "Reason", "Message")
	for _, c := range rec.Conditions {
		status := report.Text(c.Status)
		if c.Status != "True" {
			status = report.Bold(status)
		}
		conds.Add(report.Text(c.Type), status, report.Text(c.Reason), report.Text(signal.Truncate(c.Message, eventMessageMax)))
	}
	rep.Add("Conditions", conds)

	ctrs := report.NewTable("No container statuses reported.", "Container", "Restarts", "State", "Reason", "Exit Code", "Ready")
	for _, c := range rec.Containers {
		name := c.Name
		if c.Init {
			name += " (init)"
		}
		exit := report.Missing
		if c.ExitCode != nil {
			exit = report.Int(int64(*c.ExitCode))
		}
		ready := report.Text("no")
		if c.Ready {
			ready = "yes"
		}
		ctrs.Add(report.Mono(name), report.Bold(report.Int(int64(c.Restarts))), report.Text(string(c.State)),
			report.Text(c.Reason), exit, ready)
	}
	rep.Add("Container Status", ctrs)

	events := report.NewTable("No warning events.", "Time", "Type", "Reason", "Message")
	if rawEvents, err := t.list(ctx, "events", in.Namespace); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		rep.Note(unavailableNote("events of pod "+in.Pod, err))
	} else if evs, err := parser.ParseEvents(rawEvents, in.Pod); err != nil {
		rep.Note(unavailableNote("events of pod "+in.Pod, err))
	} else {
		rep.Coverage.Collected++
		for _, e := range signal.WarningEvents(evs, eventLimit, eventMessageMax) {
			ts := report.Missing
			if !e.Timestamp.IsZero() {
				ts = report.Text(e.Timestamp.Format(time.RFC3339))
			}
			events.Add(ts, report.Text(e.Type), report.Text(e.Reason), report.Text(e.Message))
		}
	}
	rep.Add("Recent Events (Warnings/Errors)", events)

	rep.Add("Issues", report.List{Items: rec.Issues, Empty: "No issues detected."})
	if recs := signal.PodRecommendations(rec, sens); len(recs) > 0 {
		rep.Add("Recommendations", report.List{Items: recs})
	}
	return rep, nil
}

// PodLogs fetches logs for one or every container of a pod. A container that
// is crash looping after a restart gets its previous logs.
func (t *Toolbox) PodLogs(ctx context.Context, in PodLogsInput) (*report.Report, error) {
	tail := orInt(in.Tail, defaultLogTail)
	err := firstErr(
		checkNamespace("namespace", in.Namespace, true),
		checkName("pod", in.Pod, true),
		checkContainer("container", in.Container),
		checkAtLeastOne("tail", tail),
	)
	if err == nil && in.Since != "" {
		_, err = checkWindow("since", in.Since)
	}
	if err != nil {
		return nil, err
	}

	raw, err := t.get(ctx, "pod", in.Namespace, in.Pod)
	if err != nil {
		return nil, err
	}
	rec, names, err := parser.ParsePod(raw)
	if err != nil {
		return nil, err
	}
	rep := &report.Report{Title: fmt.Sprintf("Pod Logs: `%s/%s`", in.Namespace, in.Pod), Coverage: report.Coverage{Unit: "containers"}}

	if in.Container != "" {
		if !slices.Contains(names, in.Container) {
			rep.Add("", report.Prose{Text: fmt.Sprintf("Container `%s` not found in pod %s/%s. Available containers: %s",
				in.Container, in.Namespace, in.Pod, strings.Join(names, ", "))})
			return rep, nil
		}
		names = []string{in.Container}
	}
	if len(names) == 0 {
		rep.Add("", report.Prose{Text: fmt.Sprintf("No containers found in pod %s/%s.", in.Namespace, in.Pod)})
		return rep, nil
	}

	status := map[string]domain.ContainerDiagnostic{}
	for _, c := range rec.Containers {
		status[c.Name] = c
	}

	units := make([]domain.Unit[string], 0, len(names))
	for _, name := range names {
		previous := in.Previous
		state := ""
		if c, ok := status[name]; ok {
			state, previous = logState(c, previous)
		}
		kind := "CURRENT"
		if previous {
			kind = "PREVIOUS"
		}
		args := []string{"logs", in.Pod, "-n", in.Namespace, "-c", name, "--tail=" + strconv.Itoa(tail)}
		if previous {
			args = append(args, "--previous")
		}
		if in.Since != "" {
			args = append(args, "--since="+in.Since)
		}
		out, err := t.run(ctx, in.Namespace+"/"+in.Pod+"/"+name, args...)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		units = append(units, domain.Unit[string]{Name: name, Value: out, Err: err})

		sec := &report.Report{Title: fmt.Sprintf("Container: `%s` [%s]", name, kind)}
		if state != "" {
			sec.Add("", report.Prose{Text: "_State: " + state + "_"})
		}
		switch {
		case err != nil && noPreviousLogs(err):
			sec.Add("", report.Prose{Text: "_No previous logs available; the container has not restarted._"})
		case err != nil:
			rep.Note(unavailableNote("logs of container "+name, err))
			sec.Add("", report.Prose{Text: "_Logs unavailable._"})
		case strings.TrimSpace(out) == "":
			sec.Add("", report.Prose{Text: "_No logs available._"})
		default:
			lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
			if len(lines) > tail {
				lines = lines[len(lines)-tail:]
				sec.Add("", report.Prose{Text: fmt.Sprintf("_Showing last %d lines._", tail)})
			}
			sec.Add("", report.Code{Text: strings.Join(lines, "\n")})
		}
		rep.Add("", report.Nested{Report: sec})
	}

	rep.Coverage.Total = len(units)
	for _, u := range units {
		if u.OK() || noPreviousLogs(u.Err) {
			rep.Coverage.Collected++
		}
	}
	return rep, nil
}

// logState describes a container and decides whether previous logs are the
// useful ones.
func logState(c domain.ContainerDiagnostic, previous bool) (string, bool) {
	switch c.State {
	case domain.StateRunning:
		return fmt.Sprintf("Running (Restarts: %d)", c.Restarts), previous
	case domain.StateWaiting:
		reason := c.Reason
		if reason == "" {
			reason = "Unknown"
		}
		if reason == "CrashLoopBackOff" && c.Restarts > 0 {
			return fmt.Sprintf("Waiting (%s) - showing previous logs", reason), true
		}
		return fmt.Sprintf("Waiting (%s)", reason), previous
	case domain.StateTerminated:
		code := "N/A"
		if c.ExitCode != nil {
			code = strconv.Itoa(int(*c.ExitCode))
		}
		return fmt.Sprintf("Terminated (%s, Exit: %s)", c.Reason, code), previous
	}
	return "", previous
}

func noPreviousLogs(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "previous terminated container") && strings.Contains(msg, "not found")
}
