package tools_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junzzhu/openshift-mcp-server/internal/diagerr"
	"github.com/junzzhu/openshift-mcp-server/internal/domain"
	"github.com/junzzhu/openshift-mcp-server/internal/infrastructure/mock"
	"github.com/junzzhu/openshift-mcp-server/internal/tools"
)

// flaky fails the stats summary of one node and, optionally, every debug
// session.
type flaky struct {
	*mock.Cluster
	node     string
	noRunner bool
}

func (f flaky) RawGet(ctx context.Context, path string) ([]byte, error) {
	if strings.Contains(path, "/nodes/"+f.node+"/") {
		return nil, errors.New("the server is currently unable to handle the request")
	}
	return f.Cluster.RawGet(ctx, path)
}

func (f flaky) Run(ctx context.Context, args ...string) (domain.CommandResult, error) {
	if f.noRunner {
		return domain.CommandResult{ExitCode: 1, Stderr: "error: unable to create debug pod"}, nil
	}
	return f.Cluster.Run(ctx, args...)
}

func flakyToolbox(node string, noRunner bool) *tools.Toolbox {
	f := flaky{Cluster: mock.New(), node: node, noRunner: noRunner}
	return newToolbox(domain.Collaborators{Runner: f, Lister: f, Metrics: f})
}

// overfull reports more usage than capacity for one node, both in its stats
// summary and in the tmpfs row of its df output.
type overfull struct {
	*mock.Cluster
	node string
}

func (o overfull) RawGet(ctx context.Context, path string) ([]byte, error) {
	if strings.Contains(path, "/nodes/"+o.node+"/") {
		return []byte(`{"node":{"nodeName":"` + o.node + `","fs":{"usedBytes":1500,"capacityBytes":1000}},"pods":[]}`), nil
	}
	return o.Cluster.RawGet(ctx, path)
}

func (o overfull) Run(ctx context.Context, args ...string) (domain.CommandResult, error) {
	res, err := o.Cluster.Run(ctx, args...)
	res.Stdout = strings.Replace(res.Stdout, "   1% /tmp", " 105% /tmp", 1)
	return res, err
}

func overfullToolbox(node string) *tools.Toolbox {
	o := overfull{Cluster: mock.New(), node: node}
	return newToolbox(domain.Collaborators{Runner: o, Lister: o, Metrics: o})
}

func TestStorageUsageNotesClampedPercent(t *testing.T) {
	rep, err := overfullToolbox(mock.Worker0).StorageUsage(context.Background(), tools.StorageUsageInput{Node: mock.Worker0})
	out := render(t, rep, err)

	assert.Contains(t, out, "| `worker-0` | 1.46 Ki | 1000 B |")
	assert.Contains(t, out, "| 100.0% |")
	assert.Contains(t, rep.Notes, "node worker-0 filesystem usage exceeds reported capacity; shown as 100.0%")
}

func TestStorageForensicsNotesClampedPercent(t *testing.T) {
	rep, err := overfullToolbox(mock.Worker0).StorageForensics(context.Background(), tools.StorageForensicsInput{Node: mock.Worker0})
	out := render(t, rep, err)

	assert.Contains(t, out, "/tmp")
	assert.Contains(t, rep.Notes, "df /tmp on node worker-0 usage exceeds reported capacity; shown as 100.0%")
	assert.Contains(t, rep.Notes, "node worker-0 filesystem usage exceeds reported capacity; shown as 100.0%")
}

func TestStorageUsageAllNodes(t *testing.T) {
	rep, err := mockToolbox().StorageUsage(context.Background(), tools.StorageUsageInput{})
	out := render(t, rep, err)

	assert.Equal(t, 3, rep.Coverage.Collected)
	assert.Equal(t, 3, rep.Coverage.Total)
	assert.Empty(t, rep.Notes)
	assert.Contains(t, out, "## Storage Usage Report (3 nodes)")
	assert.Contains(t, out, "| `worker-0` | 36.70 Gi | 99.44 Gi | 62.74 Gi | 36.9% | 34.17 Gi | 5.19 Gi |")
	assert.Contains(t, out, "### Cluster Total")
	assert.Contains(t, out, "across 3 nodes")
	assert.Contains(t, out, "| `prometheus-k8s-0` | openshift-monitoring | 2.60 Gi |")
	assert.Contains(t, out, "| `image-registry-5d9c7b7f4-xk2lp` | openshift-image-registry | 974.96 Mi |")

	first := strings.Index(out, "prometheus-k8s-0")
	second := strings.Index(out, "image-registry-5d9c7b7f4-xk2lp")
	assert.Less(t, first, second, "largest consumer first")
}

func TestStorageUsageOneNodeTopN(t *testing.T) {
	rep, err := mockToolbox().StorageUsage(context.Background(), tools.StorageUsageInput{Node: mock.Worker0, TopN: ptr(1)})
	out := render(t, rep, err)

	assert.Contains(t, out, "Storage Usage Report (1 node)")
	assert.Contains(t, out, "prometheus-k8s-0")
	assert.NotContains(t, out, "image-registry-5d9c7b7f4-xk2lp")
	assert.NotContains(t, out, "Cluster Total")
}

func TestStorageUsagePartial(t *testing.T) {
	rep, err := flakyToolbox(mock.Worker1, false).StorageUsage(context.Background(), tools.StorageUsageInput{})
	out := render(t, rep, err)

	assert.Equal(t, 2, rep.Coverage.Collected)
	assert.Equal(t, 3, rep.Coverage.Total)
	require.Len(t, rep.Notes, 1)
	assert.Contains(t, rep.Notes[0], "node worker-1")
	assert.Contains(t, out, "| `worker-1` | unavailable |")
	assert.Contains(t, out, "across 2 nodes")
}

func TestStorageUsageUnknownNode(t *testing.T) {
	_, err := mockToolbox().StorageUsage(context.Background(), tools.StorageUsageInput{Node: "worker-9"})
	require.Error(t, err)
	assert.Equal(t, diagerr.CollaboratorUnavailable, diagerr.KindOf(err))
	assert.Contains(t, err.Error(), "worker-9")
}

func TestStorageForensics(t *testing.T) {
	rep, err := mockToolbox().StorageForensics(context.Background(), tools.StorageForensicsInput{Node: mock.Worker0})
	out := render(t, rep, err)

	assert.Equal(t, 4, rep.Coverage.Collected)
	assert.Equal(t, 4, rep.Coverage.Total)
	assert.Contains(t, out, "## Storage Forensics: node worker-0")
	assert.Contains(t, out, "| /dev/nvme0n1p4 | 250.00 Gi | 206.00 Gi | 44.00 Gi | 83.0% | /sysroot |")
	assert.Contains(t, out, "**249.42 Gi** reclaimable: 3 of 5 images")
	assert.Contains(t, out, "inventory taken 2025-03-14T09:30:00Z")
	assert.Contains(t, out, "free up to 249.42 Gi")
	assert.Contains(t, out, "### Top Writable-Layer Consumers")
	assert.Contains(t, out, "| `image-registry-5d9c7b7f4-xk2lp` | openshift-image-registry | 974.96 Mi |")
	assert.Contains(t, out, "### Top Ephemeral-Volume Consumers")
}

func TestStorageForensicsWithoutDebugSession(t *testing.T) {
	rep, err := mockToolbox().StorageForensics(context.Background(), tools.StorageForensicsInput{Node: mock.GpuNode})
	out := render(t, rep, err)

	assert.Equal(t, 1, rep.Coverage.Collected)
	assert.Contains(t, out, "Unknown: the image inventory could not be read")
	assert.Contains(t, out, "### Kubelet Storage Summary")
	assert.Contains(t, out, "_No filesystems reported._")
	assert.NotContains(t, out, "crictl rmi --prune")
}

func TestStorageForensicsNothingReachable(t *testing.T) {
	_, err := flakyToolbox(mock.Worker0, true).StorageForensics(context.Background(), tools.StorageForensicsInput{Node: mock.Worker0})
	require.Error(t, err)
	assert.Equal(t, diagerr.CollaboratorUnavailable, diagerr.KindOf(err))
	assert.Contains(t, err.Error(), "unable to create debug pod")
}
