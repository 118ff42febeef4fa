package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junzzhu/openshift-mcp-server/internal/domain"
	"github.com/junzzhu/openshift-mcp-server/internal/parser"
)

func gpus(v0, v1 float64) []parser.GpuSample {
	return []parser.GpuSample{
		{Node: "gpu-worker-0", GPU: "0", Device: "NVIDIA A100-SXM4-40GB", Value: v0},
		{Node: "gpu-worker-0", GPU: "1", Device: "NVIDIA A100-SXM4-40GB", Value: v1},
	}
}

func TestClassifyGpu(t *testing.T) {
	assert.Equal(t, domain.GpuIdle, ClassifyGpu(0, 0))
	assert.Equal(t, domain.GpuIdle, ClassifyGpu(0.5, 1))
	assert.Equal(t, domain.GpuActive, ClassifyGpu(1, 1))
	assert.Equal(t, domain.GpuActive, ClassifyGpu(85.2, 1))
	assert.Equal(t, domain.GpuActive, ClassifyGpu(0.1, 0))
}

func TestGpuUtilizationJoinsSeries(t *testing.T) {
	fbUsed := append(gpus(512, 30720), parser.GpuSample{Node: "gpu-worker-1", GPU: "0", Value: 100})
	recs, notes := GpuUtilization(gpus(0, 85.2), fbUsed, gpus(40448, 10240), 1)
	require.Len(t, recs, 3)

	idle := recs[0]
	assert.Equal(t, domain.GpuIdle, idle.Status)
	assert.Equal(t, "0.0%", idle.Utilization.Format())
	assert.Equal(t, "1.3%", idle.MemUsedPct.Format())
	assert.Equal(t, "NVIDIA A100-SXM4-40GB", idle.Device)

	busy := recs[1]
	assert.Equal(t, domain.GpuActive, busy.Status)
	assert.Equal(t, "85.2%", busy.Utilization.Format())
	assert.Equal(t, "75.0%", busy.MemUsedPct.Format())
	assert.Equal(t, 10240.0, busy.MemFreeMiB)
	assert.True(t, busy.HasMemory)

	assert.Equal(t, "gpu-worker-1", recs[2].NodeName)
	assert.Equal(t, domain.GpuIdle, recs[2].Status)
	assert.Equal(t, []string{"no utilization series for node gpu-worker-1 GPU 0; treated as 0%"}, notes)

	high := HighUtilization(recs, 80)
	require.Len(t, high, 1)
	assert.Equal(t, "1", high[0].GPU)
}

func TestGpuUtilizationWithoutMemory(t *testing.T) {
	recs, notes := GpuUtilization(gpus(120, 3), nil, nil, 1)
	require.Len(t, recs, 2)
	assert.False(t, recs[0].HasMemory)
	assert.Equal(t, "100.0%", recs[0].Utilization.Format())
	assert.Len(t, notes, 1)
}

func TestThrottleReasons(t *testing.T) {
	all, crit := ThrottleReasons(1)
	assert.Equal(t, []string{"GPU idle"}, all)
	assert.Empty(t, crit)

	all, crit = ThrottleReasons(2 | 4 | 8)
	assert.Equal(t, []string{"power cap", "thermal slowdown", "power supply failure"}, all)
	assert.Equal(t, []string{"thermal slowdown", "power supply failure"}, crit)
}

func TestGpuHealth(t *testing.T) {
	findings := GpuHealth(gpus(0, 79), gpus(1, 8), gpus(41, 86), 80)
	require.Len(t, findings, 3)
	assert.Equal(t, domain.GpuHealthFinding{NodeName: "gpu-worker-0", GPU: "1", Kind: "xid", Detail: "XID error code 79", Value: 79}, findings[0])
	assert.Equal(t, "throttle", findings[1].Kind)
	assert.Equal(t, "power supply failure", findings[1].Detail)
	assert.Equal(t, "temperature", findings[2].Kind)
	assert.Equal(t, "86.0°C", findings[2].Detail)

	assert.Empty(t, GpuHealth(gpus(0, 0), gpus(1, 2), gpus(80, 41), 80))
}

func TestGpuUtilizationOrdersIndicesNumerically(t *testing.T) {
	var util []parser.GpuSample
	for _, gpu := range []string{"10", "9", "2"} {
		util = append(util, parser.GpuSample{Node: "gpu-worker-0", GPU: gpu, Value: 50})
	}
	recs, _ := GpuUtilization(util, nil, nil, 1)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"2", "9", "10"}, []string{recs[0].GPU, recs[1].GPU, recs[2].GPU})
}
