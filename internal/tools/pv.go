package tools

import (
	"context"
	"fmt"

	"github.com/junzzhu/openshift-mcp-server/internal/domain"
	"github.com/junzzhu/openshift-mcp-server/internal/parser"
	"github.com/junzzhu/openshift-mcp-server/internal/report"
	"github.com/junzzhu/openshift-mcp-server/internal/signal"
)

// PvCapacity joins PVC definitions with volume usage from every node's stats
// summary.
func (t *Toolbox) PvCapacity(ctx context.Context, in PvCapacityInput) (*report.Report, error) {
	threshold := orFloat(in.Threshold, t.opts.Thresholds.PvBreachPercent)
	if err := firstErr(checkNamespace("namespace", in.Namespace, false), checkPercent("threshold", threshold)); err != nil {
		return nil, err
	}

	rawClaims, err := t.list(ctx, "persistentvolumeclaims", in.Namespace)
	if err != nil {
		return nil, err
	}
	claims, err := parser.ParseClaims(rawClaims)
	if err != nil {
		return nil, err
	}
	nodes, err := t.nodeNames(ctx)
	if err != nil {
		return nil, err
	}

	units, err := collectPerNode(ctx, t, PvCapacityTool, nodes, func(ctx context.Context, node string) ([]domain.PvCapacityRecord, error) {
		s, err := t.nodeSummary(ctx, node)
		return s.Claims, err
	})
	if err != nil {
		return nil, err
	}

	title := "Persistent Volume Capacity"
	if in.Namespace != "" {
		title += " (namespace " + in.Namespace + ")"
	}
	rep := &report.Report{Title: title, Coverage: report.Coverage{Total: len(units), Unit: "nodes"}}
	var usage []domain.PvCapacityRecord
	for _, u := range units {
		if !u.OK() {
			rep.Note(unavailableNote("volumes on node "+u.Name, u.Err))
			continue
		}
		rep.Coverage.Collected++
		for _, c := range u.Value {
			if in.Namespace == "" || c.Namespace == in.Namespace {
				usage = append(usage, c)
			}
		}
	}
	if len(claims) > 0 {
		if err := allFailed(PvCapacityTool, units); err != nil {
			return nil, err
		}
	}

	recs, noUsage, notes := signal.PvCapacity(claims, usage, threshold)
	for _, n := range notes {
		rep.Note(n)
	}

	breached := signal.Breached(recs)
	rep.Add("", report.Prose{Text: fmt.Sprintf("%d claims with usage data, %d above %s%%.", len(recs), len(breached), trimFloat(threshold))})

	tbl := report.NewTable("No mounted persistent volume claims found.", "Namespace", "Claim", "Volume", "Storage Class", "Node", "Used", "Capacity", "Used %", "Status")
	for _, r := range recs {
		pct, status := report.Percent(r.UsedPct), report.Text("OK")
		if r.Breached {
			pct, status = report.Bold(pct), report.Bold("BREACH")
		}
		tbl.Add(report.Mono(r.Namespace), report.Mono(r.ClaimName), report.Text(r.VolumeName), report.Text(r.StorageClass),
			report.Text(r.NodeName), report.Bytes(r.Used), report.Bytes(r.Capacity), pct, status)
	}
	rep.Add("Volume Usage", tbl)

	missing := report.NewTable("Every claim has usage data.", "Namespace", "Claim", "Phase", "Requested")
	for _, c := range noUsage {
		missing.Add(report.Mono(c.Namespace), report.Mono(c.Name), report.Text(c.Phase), report.Bytes(c.Requested))
	}
	rep.Add("Claims Without Usage Data", missing)

	var recsText []string
	for _, r := range breached {
		recsText = append(recsText, fmt.Sprintf("`%s/%s` is %s full (%s of %s); expand the claim or clean up data.", r.Namespace, r.ClaimName, r.UsedPct, r.Used, r.Capacity))
	}
	rep.Add("Recommendations", report.List{Items: recsText, Empty: "No claims above the threshold."})
	return rep, nil
}
