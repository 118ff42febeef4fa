package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/common/model"

	"github.com/junzzhu/openshift-mcp-server/internal/diagerr"
	"github.com/junzzhu/openshift-mcp-server/internal/domain"
	"github.com/junzzhu/openshift-mcp-server/internal/parser"
	"github.com/junzzhu/openshift-mcp-server/internal/report"
	"github.com/junzzhu/openshift-mcp-server/internal/signal"
)

func (t *Toolbox) query(ctx context.Context, q string) (model.Vector, error) {
	if t.metrics == nil {
		return nil, diagerr.Unavailable("prometheus", "query", errors.New("no metrics backend configured"))
	}
	t.log.Debug("querying metrics")
	v, err := t.metrics.Query(ctx, q, t.opts.Now())
	t.record("prometheus", err)
	return v, unavailable("prometheus", "query", err)
}

// RestartAnomalies asks Prometheus for restarts per pod over the window and
// keeps pods strictly above the threshold.
func (t *Toolbox) RestartAnomalies(ctx context.Context, in RestartAnomaliesInput) (*report.Report, error) {
	th := t.opts.Thresholds
	threshold := orFloat(in.Threshold, th.RestartCount)
	window := in.Duration
	if window == "" {
		window = th.RestartWindow
	}
	d, err := checkWindow("duration", window)
	if err := firstErr(err, checkNonNegative("threshold", threshold), checkNamespace("namespace", in.Namespace, false)); err != nil {
		return nil, err
	}

	selector := ""
	if in.Namespace != "" {
		selector = fmt.Sprintf(`{namespace=%q}`, in.Namespace)
	}
	q := fmt.Sprintf("sum(increase(kube_pod_container_status_restarts_total%s[%s])) by (namespace, pod)", selector, window)
	v, err := t.query(ctx, q)
	if err != nil {
		return nil, err
	}

	end := t.opts.Now().UTC()
	samples, skipped := parser.RestartSamples(v)
	anomalies := signal.RestartAnomalies(samples, threshold, end.Add(-d), end)

	rep := &report.Report{
		Title:    fmt.Sprintf("Pod Restart Anomalies (>%s in last %s)", trimFloat(threshold), window),
		Coverage: report.Coverage{Collected: 1, Total: 1, Unit: "queries"},
	}
	if skipped > 0 {
		rep.Note(fmt.Sprintf("%d series without namespace or pod labels were ignored", skipped))
	}
	tbl := report.NewTable(fmt.Sprintf("No pods found with >%s restarts in the last %s.", trimFloat(threshold), window),
		"Namespace", "Pod", "Restarts")
	for _, a := range anomalies {
		tbl.Add(report.Mono(a.Namespace), report.Mono(a.PodName), report.Bold(report.Float(a.Restarts, 0)))
	}
	rep.Add("Unstable Pods", tbl)
	if len(anomalies) > 0 {
		rep.Add("Recommendations", report.List{Ordered: true, Items: []string{
			"**Check Logs**: `oc logs <pod> -n <namespace> --previous` or get_pod_logs to see why it crashed.",
			"**Check Events**: `oc get events -n <namespace> --field-selector involvedObject.name=<pod>` or get_pod_diagnostics.",
			"**OOM Killed?**: check whether the memory limit is too low.",
		}})
	}
	return rep, nil
}

func trimFloat(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

// gpuQueries runs each query on its own; a failed query is a note and an
// empty sample set.
func (t *Toolbox) gpuQueries(ctx context.Context, rep *report.Report, queries ...string) ([][]parser.GpuSample, error) {
	out := make([][]parser.GpuSample, len(queries))
	rep.Coverage.Total += len(queries)
	for i, q := range queries {
		v, err := t.query(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			rep.Note(unavailableNote(q, err))
			continue
		}
		rep.Coverage.Collected++
		out[i] = parser.GpuSamples(v)
	}
	if rep.Coverage.Collected == 0 {
		return nil, diagerr.Unavailable("prometheus", "query", fmt.Errorf("all %d GPU queries failed", len(queries)))
	}
	return out, nil
}

var noGpuCauses = []string{
	"NVIDIA GPU Operator is not installed",
	"No GPU nodes in the cluster",
	"DCGM exporter is not running",
	"Prometheus is not scraping DCGM metrics",
}

// GpuUtilization joins DCGM utilization and framebuffer series per GPU.
func (t *Toolbox) GpuUtilization(ctx context.Context, in GpuUtilizationInput) (*report.Report, error) {
	th := t.opts.Thresholds
	idle := orFloat(in.IdleThreshold, th.GpuIdlePercent)
	if err := checkPercent("idle_threshold", idle); err != nil {
		return nil, err
	}
	rep := &report.Report{Title: "GPU Utilization Report", Coverage: report.Coverage{Unit: "queries"}}
	res, err := t.gpuQueries(ctx, rep, "DCGM_FI_DEV_GPU_UTIL", "DCGM_FI_DEV_FB_USED", "DCGM_FI_DEV_FB_FREE")
	if err != nil {
		return nil, err
	}
	if len(res[0]) == 0 && len(res[1]) == 0 && len(res[2]) == 0 {
		rep.Add("No GPU metrics found", report.List{Items: noGpuCauses})
		return rep, nil
	}

	recs, notes := signal.GpuUtilization(res[0], res[1], res[2], idle)
	for _, n := range notes {
		rep.Note(n)
	}
	rep.Add("", report.Prose{Text: fmt.Sprintf("**Total GPUs Found:** %d", len(recs))})

	tbl := report.NewTable("No GPUs found.", "Node", "GPU", "Device", "Utilization", "Memory Used", "Memory Free", "Status")
	var idleGpus []string
	for _, r := range recs {
		memUsed, memFree := report.Cell("N/A"), report.Cell("N/A")
		if r.HasMemory {
			memUsed = report.Percent(r.MemUsedPct)
			memFree = report.Cell(fmt.Sprintf("%.0f MiB", r.MemFreeMiB))
		}
		tbl.Add(report.Mono(r.NodeName), report.Text(r.GPU), report.Text(r.Device),
			report.Bold(report.Percent(r.Utilization)), memUsed, memFree, report.Text(string(r.Status)))
		if r.Status == domain.GpuIdle {
			idleGpus = append(idleGpus, fmt.Sprintf("`%s` GPU %s", r.NodeName, r.GPU))
		}
	}
	rep.Add("GPUs", tbl)

	var insights []string
	if len(idleGpus) > 0 {
		insights = append(insights, fmt.Sprintf("**%d Idle GPU(s)** below %s%% utilization: %s. Check whether pods use the GPU or only request it.",
			len(idleGpus), trimFloat(idle), strings.Join(idleGpus, ", ")))
	}
	if high := signal.HighUtilization(recs, th.GpuHighPercent); len(high) > 0 {
		var names []string
		for _, r := range high {
			names = append(names, fmt.Sprintf("`%s` GPU %s: %s", r.NodeName, r.GPU, r.Utilization))
		}
		insights = append(insights, fmt.Sprintf("**%d High-Utilization GPU(s)** (>%s%%): %s. Consider scaling workloads or adding GPU nodes.",
			len(high), trimFloat(th.GpuHighPercent), strings.Join(names, ", ")))
	}
	rep.Add("Insights", report.List{Items: insights, Empty: "All GPUs are operating normally."})
	return rep, nil
}

// GpuHealth reports XID errors, critical throttling and hot GPUs.
func (t *Toolbox) GpuHealth(ctx context.Context, _ GpuHealthInput) (*report.Report, error) {
	th := t.opts.Thresholds
	rep := &report.Report{Title: "GPU Health & Diagnostics", Coverage: report.Coverage{Unit: "queries"}}
	res, err := t.gpuQueries(ctx, rep, "DCGM_FI_DEV_XID_ERRORS", "DCGM_FI_DEV_CLOCK_THROTTLE_REASONS", "DCGM_FI_DEV_GPU_TEMP")
	if err != nil {
		return nil, err
	}
	if len(res[0]) == 0 && len(res[1]) == 0 && len(res[2]) == 0 {
		rep.Add("No GPU metrics found", report.List{Items: noGpuCauses})
		return rep, nil
	}

	findings := signal.GpuHealth(res[0], res[1], res[2], th.GpuTemperatureCelsius)
	byKind := map[string]*report.Table{
		"xid":         report.NewTable("No hardware (XID) errors.", "Node", "GPU", "Error"),
		"throttle":    report.NewTable("No critical throttling.", "Node", "GPU", "Reasons"),
		"temperature": report.NewTable(fmt.Sprintf("No GPU above %s°C.", trimFloat(th.GpuTemperatureCelsius)), "Node", "GPU", "Temperature"),
	}
	for _, f := range findings {
		byKind[f.Kind].Add(report.Mono(f.NodeName), report.Text(f.GPU), report.Bold(report.Text(f.Detail)))
	}
	rep.Add("Hardware Errors (XID)", byKind["xid"])
	rep.Add("Thermal/Power Throttling", byKind["throttle"])
	rep.Add(fmt.Sprintf("High Temperatures (>%s°C)", trimFloat(th.GpuTemperatureCelsius)), byKind["temperature"])
	if len(byKind["xid"].Rows) > 0 {
		rep.Add("Recommendations", report.List{Items: []string{
			"XID errors usually indicate a hardware fault; drain the node and contact the infrastructure team.",
		}})
	}
	return rep, nil
}

// GpuPod runs nvidia-smi inside a running pod.
func (t *Toolbox) GpuPod(ctx context.Context, in GpuPodInput) (*report.Report, error) {
	if err := firstErr(checkNamespace("namespace", in.Namespace, true), checkName("pod", in.Pod, true)); err != nil {
		return nil, err
	}
	raw, err := t.get(ctx, "pod", in.Namespace, in.Pod)
	if err != nil {
		return nil, err
	}
	rep := &report.Report{
		Title:    fmt.Sprintf("GPU Status for `%s/%s`", in.Namespace, in.Pod),
		Coverage: report.Coverage{Total: 1, Unit: "pods"},
	}
	if phase := parser.ParsePhase(raw); phase != "Running" {
		rep.Add("", report.Prose{Text: fmt.Sprintf("Pod %s is not in Running phase (current: %s). Cannot exec.", in.Pod, phase)})
		return rep, nil
	}

	out, err := t.run(ctx, in.Namespace+"/"+in.Pod, "exec", "-n", in.Namespace, in.Pod, "--", "nvidia-smi")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if strings.Contains(err.Error(), "executable file not found") {
			rep.Add("", report.Prose{Text: fmt.Sprintf("`nvidia-smi` not found in pod %s. The container may not have NVIDIA drivers or tools installed.", in.Pod)})
			return rep, nil
		}
		return nil, err
	}
	rep.Coverage.Collected = 1
	rep.Add("nvidia-smi", report.Code{Text: out})
	return rep, nil
}
