// Package mock serves a fixed three-node cluster through every collaborator
// port, so the tools can run without a cluster (--mock) and in tests.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/common/model"

	"github.com/junzzhu/openshift-mcp-server/internal/domain"
)

// Now is the instant all fixtures are relative to.
var Now = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

type Cluster struct {
	fx fixtures
}

func New() *Cluster {
	return &Cluster{fx: build()}
}

func (c *Cluster) Collaborators() domain.Collaborators {
	return domain.Collaborators{Runner: c, Lister: c, Metrics: c}
}

func (c *Cluster) ListResources(ctx context.Context, kind, namespace string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch kind {
	case "nodes":
		return json.Marshal(c.fx.nodes)
	case "nodes.metrics.k8s.io":
		return json.Marshal(c.fx.nodeMetrics)
	case "pods":
		list := c.fx.pods.DeepCopy()
		list.Items = slices.DeleteFunc(list.Items, func(p podT) bool { return namespace != "" && p.Namespace != namespace })
		return json.Marshal(list)
	case "events":
		list := c.fx.events.DeepCopy()
		list.Items = slices.DeleteFunc(list.Items, func(e eventT) bool { return namespace != "" && e.Namespace != namespace })
		return json.Marshal(list)
	case "persistentvolumeclaims":
		list := c.fx.claims.DeepCopy()
		list.Items = slices.DeleteFunc(list.Items, func(p claimT) bool { return namespace != "" && p.Namespace != namespace })
		return json.Marshal(list)
	}
	return nil, fmt.Errorf("the server doesn't have a resource type %q", kind)
}

func (c *Cluster) GetResource(ctx context.Context, kind, namespace, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if kind != "pod" && kind != "pods" {
		return nil, fmt.Errorf("the server doesn't have a resource type %q", kind)
	}
	for _, p := range c.fx.pods.Items {
		if p.Namespace == namespace && p.Name == name {
			return json.Marshal(p)
		}
	}
	return nil, fmt.Errorf(`pods "%s" not found`, name)
}

func (c *Cluster) RawGet(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	node, ok := strings.CutPrefix(path, "/api/v1/nodes/")
	if ok {
		node, ok = strings.CutSuffix(node, "/proxy/stats/summary")
	}
	if !ok {
		return nil, fmt.Errorf("the server could not find the requested resource (get %s)", path)
	}
	s, found := c.fx.summaries[node]
	if !found {
		return nil, fmt.Errorf(`nodes "%s" not found`, node)
	}
	return json.Marshal(s)
}

// Query answers the restart and DCGM queries the tools issue.
func (c *Cluster) Query(ctx context.Context, q string, at time.Time) (model.Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ts := model.TimeFromUnixNano(at.UnixNano())
	var src []series
	switch {
	case strings.Contains(q, "kube_pod_container_status_restarts_total"):
		src = c.fx.restarts
	default:
		for name, s := range c.fx.dcgm {
			if strings.Contains(q, name) {
				src = s
				break
			}
		}
	}
	ns := ""
	if _, rest, ok := strings.Cut(q, `namespace="`); ok {
		ns, _, _ = strings.Cut(rest, `"`)
	}
	out := model.Vector{}
	for _, s := range src {
		if ns != "" && s.labels["namespace"] != ns {
			continue
		}
		m := model.Metric{}
		for k, v := range s.labels {
			m[model.LabelName(k)] = model.LabelValue(v)
		}
		out = append(out, &model.Sample{Metric: m, Value: model.SampleValue(s.value), Timestamp: ts})
	}
	return out, nil
}

// Run emulates the oc subcommands the tools use: debug node, logs and exec.
func (c *Cluster) Run(ctx context.Context, args ...string) (domain.CommandResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.CommandResult{}, err
	}
	if len(args) == 0 {
		return failed(1, "error: no command given"), nil
	}
	switch args[0] {
	case "debug":
		node := strings.TrimPrefix(args[1], "node/")
		out, ok := c.fx.debug[node]
		if !ok {
			return failed(1, fmt.Sprintf(`Error from server (NotFound): nodes "%s" not found`, node)), nil
		}
		return domain.CommandResult{Stdout: out}, nil
	case "logs":
		return c.logs(args[1:]), nil
	case "exec":
		return c.exec(args[1:]), nil
	}
	return failed(1, fmt.Sprintf("error: unknown command %q", args[0])), nil
}

func (c *Cluster) logs(args []string) domain.CommandResult {
	var pod, ns, container string
	previous := false
	for i := 0; i < len(args); i++ {
		switch a := args[i]; {
		case a == "-n" && i+1 < len(args):
			i++
			ns = args[i]
		case a == "-c" && i+1 < len(args):
			i++
			container = args[i]
		case a == "--previous":
			previous = true
		case !strings.HasPrefix(a, "-"):
			pod = a
		}
	}
	key := ns + "/" + pod + "/" + container
	if previous {
		if out, ok := c.fx.previousLogs[key]; ok {
			return domain.CommandResult{Stdout: out}
		}
		return failed(1, fmt.Sprintf(`Error from server (BadRequest): previous terminated container "%s" in pod "%s" not found`, container, pod))
	}
	if out, ok := c.fx.logs[key]; ok {
		return domain.CommandResult{Stdout: out}
	}
	return failed(1, fmt.Sprintf(`Error from server (NotFound): pods "%s" not found`, pod))
}

func (c *Cluster) exec(args []string) domain.CommandResult {
	var pod, ns string
	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			break
		}
		if args[i] == "-n" && i+1 < len(args) {
			i++
			ns = args[i]
			continue
		}
		pod = args[i]
	}
	if out, ok := c.fx.nvidiaSmi[ns+"/"+pod]; ok {
		return domain.CommandResult{Stdout: out}
	}
	return failed(126, `error: exec: "nvidia-smi": executable file not found in $PATH`)
}

func failed(code int, stderr string) domain.CommandResult {
	return domain.CommandResult{Stderr: stderr, ExitCode: code}
}
