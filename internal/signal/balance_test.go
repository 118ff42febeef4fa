package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junzzhu/openshift-mcp-server/internal/parser"
	"github.com/junzzhu/openshift-mcp-server/internal/quantity"
)

const gib = int64(1) << 30

var policy = BalancePolicy{DeviationPercent: 20, PressurePercent: 85, FragmentationPercent: 50}

func twoNodes() ([]parser.NodeCapacity, map[string]parser.NodeRequests) {
	caps := []parser.NodeCapacity{
		{Name: "node-b", CPUCores: 10, Memory: quantity.FromBytes(100 * gib), PodCapacity: 250},
		{Name: "node-a", CPUCores: 10, Memory: quantity.FromBytes(100 * gib), PodCapacity: 250},
	}
	reqs := map[string]parser.NodeRequests{
		"node-a": {CPUCores: 9, Memory: quantity.FromBytes(10 * gib), Pods: 12},
		"node-b": {CPUCores: 1, Memory: quantity.FromBytes(10 * gib), Pods: 3},
	}
	return caps, reqs
}

func TestBalanceWithUsage(t *testing.T) {
	caps, reqs := twoNodes()
	usage := map[string]parser.NodeUsage{
		"node-a": {CPUCores: 2, Memory: quantity.FromBytes(50 * gib)},
		"node-b": {CPUCores: 8, Memory: quantity.FromBytes(50 * gib)},
	}
	res := Balance(caps, reqs, usage, policy)
	require.Len(t, res.Records, 2)
	assert.Empty(t, res.Notes)

	a, b := res.Records[0], res.Records[1]
	assert.Equal(t, "node-a", a.NodeName)
	assert.Equal(t, "90.0%", a.CPURequestedPct.Format())
	assert.Equal(t, "20.0%", a.CPUUsedPct.Format())
	assert.Equal(t, 12, a.PodCount)
	assert.InDelta(t, -30, a.CPUDeviation, 1e-9)
	assert.InDelta(t, 30, b.CPUDeviation, 1e-9)
	assert.InDelta(t, 0, a.MemDeviation, 1e-9)
	assert.True(t, a.Flagged)
	assert.True(t, b.Flagged)

	require.Len(t, res.Spreads, 2)
	cpu := res.Spreads[0]
	assert.Equal(t, "cpu", cpu.Resource)
	assert.Equal(t, "used", cpu.Basis)
	assert.InDelta(t, 50, cpu.Mean, 1e-9)
	assert.InDelta(t, 20, cpu.Min, 1e-9)
	assert.InDelta(t, 80, cpu.Max, 1e-9)
	assert.InDelta(t, 60, cpu.Range, 1e-9)
	assert.InDelta(t, 30, cpu.StdDev, 1e-9, "population standard deviation")
	assert.InDelta(t, 0, res.Spreads[1].StdDev, 1e-9)

	assert.Equal(t, []string{"node-a"}, res.Pressure)
	require.Len(t, res.Fragmentation, 1)
	assert.Equal(t, "node-a", res.Fragmentation[0].NodeName)
	assert.Equal(t, "cpu", res.Fragmentation[0].Resource)
	assert.InDelta(t, 70, res.Fragmentation[0].Gap, 1e-9)
}

func TestBalanceFallsBackToRequests(t *testing.T) {
	caps, reqs := twoNodes()
	res := Balance(caps, reqs, nil, policy)
	require.Len(t, res.Spreads, 2)
	assert.Equal(t, "requested", res.Spreads[0].Basis)
	assert.InDelta(t, 40, res.Records[0].CPUDeviation, 1e-9)
	assert.False(t, res.Records[0].HasUsage)
	assert.Empty(t, res.Fragmentation)
	assert.Empty(t, res.Notes)
}

func TestBalancePartialUsage(t *testing.T) {
	caps, reqs := twoNodes()
	usage := map[string]parser.NodeUsage{"node-a": {CPUCores: 2, Memory: quantity.FromBytes(50 * gib)}}
	res := Balance(caps, reqs, usage, policy)
	assert.Equal(t, []string{"no usage metrics for node node-b"}, res.Notes)
	assert.False(t, res.Records[1].Flagged)
	assert.Zero(t, res.Spreads[0].StdDev)
}

func TestBalanceZeroAllocatable(t *testing.T) {
	caps := []parser.NodeCapacity{{Name: "broken", Memory: quantity.FromBytes(gib)}}
	res := Balance(caps, map[string]parser.NodeRequests{"broken": {CPUCores: 1}}, nil, policy)
	require.Len(t, res.Notes, 1)
	assert.Contains(t, res.Notes[0], "no allocatable cpu requested capacity")
	assert.Zero(t, res.Records[0].CPURequestedPct.Value())
}

func TestBalanceClampsOvercommit(t *testing.T) {
	caps := []parser.NodeCapacity{{Name: "hot", CPUCores: 2, Memory: quantity.FromBytes(gib)}}
	usage := map[string]parser.NodeUsage{"hot": {CPUCores: 3, Memory: quantity.FromBytes(gib / 2)}}
	res := Balance(caps, nil, usage, policy)
	assert.Equal(t, "100.0%", res.Records[0].CPUUsedPct.Format())
	require.Len(t, res.Notes, 1)
	assert.Contains(t, res.Notes[0], "clamped")
}

func TestBalanceEmpty(t *testing.T) {
	res := Balance(nil, nil, nil, policy)
	assert.Empty(t, res.Records)
	assert.Empty(t, res.Spreads)
}
