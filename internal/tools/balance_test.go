package tools_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/junzzhu/openshift-mcp-server/internal/tools"
)

func TestResourceBalance(t *testing.T) {
	rep, err := mockToolbox().ResourceBalance(context.Background(), tools.ResourceBalanceInput{})
	out := render(t, rep, err)

	assert.Equal(t, 3, rep.Coverage.Collected)
	assert.Empty(t, rep.Notes)
	assert.Contains(t, out, "| `worker-1` | 68.8% | **85.0%** | 64.1% | 84.4% | 2/250 |")
	assert.Contains(t, out, "| `worker-0` | 20.0% | 26.3% | 19.5% | 28.1% | 3/250 | ok |")
	assert.Contains(t, out, "| cpu | used |")
	assert.Contains(t, out, "**Imbalance**: `gpu-worker-0` and `worker-1` deviate from the cluster mean by more than 20 points.")
	assert.NotContains(t, out, "Scheduling Pressure")
}
