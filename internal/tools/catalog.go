package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/junzzhu/openshift-mcp-server/internal/diagerr"
	"github.com/junzzhu/openshift-mcp-server/internal/report"
)

const (
	StorageUsageTool     = "get_storage_usage"
	StorageForensicsTool = "inspect_node_storage_forensics"
	ResourceBalanceTool  = "get_cluster_resource_balance"
	RestartAnomaliesTool = "detect_pod_restart_anomalies"
	GpuUtilizationTool   = "get_gpu_utilization"
	GpuHealthTool        = "check_gpu_health"
	PvCapacityTool       = "get_pv_capacity"
	PodDiagnosticsTool   = "get_pod_diagnostics"
	PodLogsTool          = "get_pod_logs"
	GpuPodTool           = "inspect_gpu_pod"
)

type StorageUsageInput struct {
	Node string `json:"node,omitempty" jsonschema:"Node to analyze (empty = all nodes)"`
	TopN *int   `json:"top_n,omitempty" jsonschema:"Number of top pod consumers per node (default 10)"`
}

type StorageForensicsInput struct {
	Node string `json:"node" jsonschema:"Node to inspect"`
	TopN *int   `json:"top_n,omitempty" jsonschema:"Number of top consumers per layer (default 10)"`
}

type ResourceBalanceInput struct{}

type RestartAnomaliesInput struct {
	Threshold *float64 `json:"threshold,omitempty" jsonschema:"Restarts a pod must exceed within the window (default 5)"`
	Duration  string   `json:"duration,omitempty" jsonschema:"Window to analyze, e.g. 10m, 1h, 24h (default 1h)"`
	Namespace string   `json:"namespace,omitempty" jsonschema:"Namespace to restrict to (empty = all)"`
}

type GpuUtilizationInput struct {
	IdleThreshold *float64 `json:"idle_threshold,omitempty" jsonschema:"Utilization percent below which a GPU is idle (default 1)"`
}

type GpuHealthInput struct{}

type PvCapacityInput struct {
	Namespace string   `json:"namespace,omitempty" jsonschema:"Namespace to restrict to (empty = all)"`
	Threshold *float64 `json:"threshold,omitempty" jsonschema:"Used percent above which a volume is flagged (default 80)"`
}

type PodDiagnosticsInput struct {
	Namespace string `json:"namespace" jsonschema:"Pod namespace"`
	Pod       string `json:"pod" jsonschema:"Pod name"`
}

type PodLogsInput struct {
	Namespace string `json:"namespace" jsonschema:"Pod namespace"`
	Pod       string `json:"pod" jsonschema:"Pod name"`
	Container string `json:"container,omitempty" jsonschema:"Container name (empty = every container)"`
	Previous  bool   `json:"previous,omitempty" jsonschema:"Read logs of the previous container instance"`
	Tail      *int   `json:"tail,omitempty" jsonschema:"Number of recent lines per container (default 100)"`
	Since     string `json:"since,omitempty" jsonschema:"Only logs newer than this duration, e.g. 30m"`
}

type GpuPodInput struct {
	Namespace string `json:"namespace" jsonschema:"Pod namespace"`
	Pod       string `json:"pod" jsonschema:"Pod name"`
}

// Entry describes one tool for frontends that dispatch by name.
type Entry struct {
	Name        string
	Description string
	Required    []string
	invoke      func(*Toolbox, context.Context, json.RawMessage) (*report.Report, error)
}

func entry[In any](name, desc string, fn func(*Toolbox, context.Context, In) (*report.Report, error)) Entry {
	return Entry{
		Name:        name,
		Description: desc,
		Required:    requiredFields[In](),
		invoke: func(t *Toolbox, ctx context.Context, raw json.RawMessage) (*report.Report, error) {
			var in In
			if len(bytes.TrimSpace(raw)) > 0 {
				dec := json.NewDecoder(bytes.NewReader(raw))
				dec.DisallowUnknownFields()
				if err := dec.Decode(&in); err != nil {
					return nil, diagerr.Invalid("arguments", "%v", err)
				}
			}
			return Bind(t, name, fn)(ctx, in)
		},
	}
}

// requiredFields lists json names of fields without omitempty.
func requiredFields[In any]() []string {
	var out []string
	typ := reflect.TypeOf((*In)(nil)).Elem()
	for i := 0; i < typ.NumField(); i++ {
		tag := typ.Field(i).Tag.Get("json")
		name, opts, _ := strings.Cut(tag, ",")
		if name == "" || name == "-" || strings.Contains(opts, "omitempty") {
			continue
		}
		out = append(out, name)
	}
	return out
}

// Bind returns fn as an instrumented call: logging, self metrics and an
// invocation id. Every frontend calls tools through it.
func Bind[In any](t *Toolbox, name string, fn func(*Toolbox, context.Context, In) (*report.Report, error)) func(context.Context, In) (*report.Report, error) {
	return func(ctx context.Context, in In) (*report.Report, error) {
		return t.observe(ctx, name, func(ctx context.Context) (*report.Report, error) {
			return fn(t, ctx, in)
		})
	}
}

var catalog = []Entry{
	entry(StorageUsageTool,
		"Ephemeral storage usage per node: filesystem, image filesystem, total pod ephemeral storage and the top pod consumers.",
		(*Toolbox).StorageUsage),
	entry(StorageForensicsTool,
		"Deep storage inspection of one node: df table, reclaimable image space, writable-layer vs emptyDir consumers.",
		(*Toolbox).StorageForensics),
	entry(ResourceBalanceTool,
		"CPU and memory requests vs usage per node, balance spread across nodes, scheduling pressure and fragmentation.",
		(*Toolbox).ResourceBalance),
	entry(RestartAnomaliesTool,
		"Pods whose restart count within a time window exceeds a threshold, from Prometheus.",
		(*Toolbox).RestartAnomalies),
	entry(GpuUtilizationTool,
		"GPU utilization and framebuffer memory per node from DCGM metrics, with idle and high-utilization GPUs.",
		(*Toolbox).GpuUtilization),
	entry(GpuHealthTool,
		"GPU hardware errors (XID), critical clock throttling and high temperatures from DCGM metrics.",
		(*Toolbox).GpuHealth),
	entry(PvCapacityTool,
		"Persistent volume claim usage vs capacity, flagging claims above a threshold.",
		(*Toolbox).PvCapacity),
	entry(PodDiagnosticsTool,
		"Pod health: status, conditions, container states, warning events, issues and recommendations.",
		(*Toolbox).PodDiagnostics),
	entry(PodLogsTool,
		"Container logs of a pod, switching to previous logs for crash-looping containers.",
		(*Toolbox).PodLogs),
	entry(GpuPodTool,
		"Run nvidia-smi inside a running GPU pod.",
		(*Toolbox).GpuPod),
}

// Catalog returns every tool in a stable order.
func Catalog() []Entry {
	out := make([]Entry, len(catalog))
	copy(out, catalog)
	return out
}

func Lookup(name string) (Entry, bool) {
	for _, e := range catalog {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Invoke runs a tool by name with JSON arguments.
func (t *Toolbox) Invoke(ctx context.Context, name string, args json.RawMessage) (*report.Report, error) {
	e, ok := Lookup(name)
	if !ok {
		return nil, diagerr.Invalid("tool", "unknown tool %q", name)
	}
	return e.invoke(t, ctx, args)
}

// ArgsFromPairs turns key=value pairs into a JSON object for Invoke. Values
// that parse as JSON numbers or booleans keep that type so optional numeric
// fields decode; everything else is a string.
func ArgsFromPairs(base map[string]any, pairs []string) (json.RawMessage, error) {
	obj := map[string]any{}
	for k, v := range base {
		obj[k] = v
	}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, diagerr.Invalid("arguments", "expected key=value, got %q", p)
		}
		var typed any
		if err := json.Unmarshal([]byte(v), &typed); err == nil {
			switch typed.(type) {
			case float64, bool:
				obj[k] = typed
				continue
			}
		}
		obj[k] = v
	}
	return json.Marshal(obj)
}
