package tools

import (
	"context"
	"fmt"
	"math"

	"github.com/junzzhu/openshift-mcp-server/internal/parser"
	"github.com/junzzhu/openshift-mcp-server/internal/report"
	"github.com/junzzhu/openshift-mcp-server/internal/signal"
)

// ResourceBalance compares CPU and memory requests and usage per node. Node
// metrics are optional: without them the usage columns show "-" and the
// spread is computed from requests.
func (t *Toolbox) ResourceBalance(ctx context.Context, _ ResourceBalanceInput) (*report.Report, error) {
	th := t.opts.Thresholds
	rawNodes, err := t.list(ctx, "nodes", "")
	if err != nil {
		return nil, err
	}
	caps, err := parser.ParseNodeCapacities(rawNodes)
	if err != nil {
		return nil, err
	}
	if err := allFailed(ResourceBalanceTool, caps); err != nil {
		return nil, err
	}

	rep := &report.Report{
		Title:    "Cluster Resource Balance Report",
		Coverage: report.Coverage{Total: len(caps), Unit: "nodes"},
	}
	var nodes []parser.NodeCapacity
	for _, u := range caps {
		if !u.OK() {
			rep.Note(unavailableNote("node "+u.Name, u.Err))
			continue
		}
		nodes = append(nodes, u.Value)
	}
	rep.Coverage.Collected = len(nodes)

	reqs := map[string]parser.NodeRequests{}
	if rawPods, err := t.list(ctx, "pods", ""); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		rep.Note(unavailableNote("pod requests", err))
	} else if reqs, err = parser.ParsePodRequests(rawPods); err != nil {
		rep.Note(unavailableNote("pod requests", err))
		reqs = map[string]parser.NodeRequests{}
	}

	var usage map[string]parser.NodeUsage
	if rawUsage, err := t.list(ctx, "nodes.metrics.k8s.io", ""); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		rep.Note("Metrics API not available; usage columns are empty and the spread uses requests: " + err.Error())
	} else if usage, err = parser.ParseNodeMetrics(rawUsage); err != nil {
		rep.Note(unavailableNote("node metrics", err))
		usage = nil
	}

	res := signal.Balance(nodes, reqs, usage, signal.BalancePolicy{
		DeviationPercent:     th.BalanceDeviationPercent,
		PressurePercent:      th.BalancePressurePercent,
		FragmentationPercent: th.FragmentationGapPercent,
	})
	for _, n := range res.Notes {
		rep.Note(n)
	}

	tbl := report.NewTable("No nodes found.", "Node", "CPU Req", "CPU Used", "Mem Req", "Mem Used", "Pods", "Skew")
	for _, r := range res.Records {
		cpuUsed, memUsed := report.Missing, report.Missing
		if r.HasUsage {
			cpuUsed = report.Highlight(r.CPUUsedPct, th.BalancePressurePercent)
			memUsed = report.Highlight(r.MemUsedPct, th.BalancePressurePercent)
		}
		skew := report.Text("ok")
		if r.Flagged {
			skew = report.Bold(report.Cell(fmt.Sprintf("cpu %+.1f / mem %+.1f pts", r.CPUDeviation, r.MemDeviation)))
		}
		tbl.Add(report.Mono(r.NodeName),
			report.Highlight(r.CPURequestedPct, th.BalancePressurePercent), cpuUsed,
			report.Highlight(r.MemRequestedPct, th.BalancePressurePercent), memUsed,
			report.Cell(fmt.Sprintf("%d/%d", r.PodCount, r.PodCapacity)), skew)
	}
	rep.Add("Per-Node Requests and Usage", tbl)

	spread := report.NewTable("No utilization data to compare.", "Resource", "Basis", "Mean", "Min", "Max", "Range", "Std Dev")
	for _, s := range res.Spreads {
		spread.Add(report.Text(s.Resource), report.Text(s.Basis), points(s.Mean), points(s.Min), points(s.Max), points(s.Range), points(s.StdDev))
	}
	rep.Add("Balance Spread", spread)

	var insights []string
	var flagged []string
	for _, r := range res.Records {
		if r.Flagged {
			flagged = append(flagged, "`"+r.NodeName+"`")
		}
	}
	if len(flagged) > 0 {
		insights = append(insights, fmt.Sprintf("**Imbalance**: %s deviate from the cluster mean by more than %.0f points.", joinList(flagged), th.BalanceDeviationPercent))
	}
	if len(res.Pressure) > 0 {
		insights = append(insights, fmt.Sprintf("**Scheduling Pressure**: %s over %.0f%% requested; new pods may fail to schedule.", plural(len(res.Pressure), "node")+" "+isAre(len(res.Pressure)), th.BalancePressurePercent))
	}
	for _, f := range res.Fragmentation {
		insights = append(insights, fmt.Sprintf("**%s**: high %s fragmentation (%.0f%% gap between request and usage); consider lowering requests for workloads on this node.", f.NodeName, f.Resource, f.Gap))
	}
	rep.Add("Insights", report.List{Items: insights, Empty: "Requests and usage are balanced across nodes."})
	return rep, nil
}

func points(v float64) report.Cell {
	if math.IsNaN(v) {
		return report.Missing
	}
	return report.Cell(fmt.Sprintf("%.1f%%", v))
}

func isAre(n int) string {
	if n == 1 {
		return "is"
	}
	return "are"
}

func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	out := items[0]
	for _, it := range items[1 : len(items)-1] {
		out += ", " + it
	}
	return out + " and " + items[len(items)-1]
}
