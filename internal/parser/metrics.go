package parser

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/prometheus/common/model"

	"github.com/junzzhu/openshift-mcp-server/internal/diagerr"
)

// ParseQueryResponse decodes a Prometheus /api/v1/query response body. Only
// vector results are accepted; an empty result is an empty vector.
func ParseQueryResponse(subject string, raw []byte) (model.Vector, error) {
	var resp struct {
		Status    string `json:"status"`
		ErrorType string `json:"errorType"`
		Error     string `json:"error"`
		Data      *struct {
			ResultType string          `json:"resultType"`
			Result     json.RawMessage `json:"result"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, diagerr.Schema(subject, "query response: %v", err)
	}
	if resp.Status != "success" {
		return nil, diagerr.Unavailable(subject, "query", &QueryError{Type: resp.ErrorType, Msg: resp.Error})
	}
	if resp.Data == nil {
		return nil, diagerr.Schema(subject, "query response has no data")
	}
	if resp.Data.ResultType != model.ValVector.String() {
		return nil, diagerr.Schema(subject, "expected vector result, got %q", resp.Data.ResultType)
	}
	var v model.Vector
	if len(resp.Data.Result) == 0 || string(resp.Data.Result) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(resp.Data.Result, &v); err != nil {
		return nil, diagerr.Schema(subject, "vector: %v", err)
	}
	return v, nil
}

type QueryError struct {
	Type string
	Msg  string
}

func (e *QueryError) Error() string {
	if e.Type == "" {
		return e.Msg
	}
	return e.Type + ": " + e.Msg
}

// GpuSample is one DCGM series reduced to its identity and value.
type GpuSample struct {
	Node   string
	GPU    string
	Device string
	Value  float64
}

func (s GpuSample) Key() string { return s.Node + "/" + s.GPU }

func firstLabel(m model.Metric, names ...model.LabelName) string {
	for _, n := range names {
		if v, ok := m[n]; ok && v != "" {
			return string(v)
		}
	}
	return ""
}

// GpuSamples maps DCGM exporter labels: the node comes from node, Hostname or
// instance, the index from gpu or GPU (default "0").
func GpuSamples(v model.Vector) []GpuSample {
	out := make([]GpuSample, 0, len(v))
	for _, s := range v {
		g := GpuSample{
			Node:   firstLabel(s.Metric, "node", "Hostname", "kubernetes_node", "instance"),
			GPU:    firstLabel(s.Metric, "gpu", "GPU"),
			Device: firstLabel(s.Metric, "device", "modelName"),
			Value:  float64(s.Value),
		}
		if g.Node == "" {
			g.Node = "unknown"
		}
		if g.GPU == "" {
			g.GPU = "0"
		}
		out = append(out, g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Node != out[j].Node {
			return out[i].Node < out[j].Node
		}
		return GpuLess(out[i].GPU, out[j].GPU)
	})
	return out
}

// GpuLess orders GPU indices numerically when both are integers, so "2"
// sorts before "10", and lexically otherwise.
func GpuLess(a, b string) bool {
	x, errA := strconv.Atoi(a)
	y, errB := strconv.Atoi(b)
	if errA == nil && errB == nil && x != y {
		return x < y
	}
	return a < b
}

type RestartSample struct {
	Namespace string
	Pod       string
	Restarts  float64
}

// RestartSamples maps a `by (namespace, pod)` aggregation. Series missing
// either label cannot be attributed and are returned as skipped.
func RestartSamples(v model.Vector) (out []RestartSample, skipped int) {
	for _, s := range v {
		ns, pod := string(s.Metric["namespace"]), string(s.Metric["pod"])
		if ns == "" || pod == "" {
			skipped++
			continue
		}
		out = append(out, RestartSample{Namespace: ns, Pod: pod, Restarts: float64(s.Value)})
	}
	return out, skipped
}
