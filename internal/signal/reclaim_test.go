package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/junzzhu/openshift-mcp-server/internal/parser"
	"github.com/junzzhu/openshift-mcp-server/internal/quantity"
)

func TestReclaimable(t *testing.T) {
	at := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	images := []parser.Image{
		{ID: "sha256:7a1f", Tags: []string{"quay.io/prometheus/prometheus:v2.53.1"}, Size: quantity.FromBytes(1200 << 20)},
		{ID: "sha256:2b3c", Digests: []string{"quay.io/openshift/registry@sha256:2b3c"}, Size: quantity.FromBytes(420 << 20)},
		{ID: "sha256:e901", Tags: []string{"quay.io/ml-team/cuda-train:2024-11"}, Size: quantity.FromBytes(120 * gib)},
		{ID: "sha256:e902", Size: quantity.FromBytes(100 * gib)},
		{ID: "sha256:e903", Size: quantity.FromBytes(267812685742 - 220*gib)},
	}
	containers := []parser.ContainerRef{
		{Image: "quay.io/prometheus/prometheus:v2.53.1", Running: true},
		{ImageRef: "quay.io/openshift/registry@sha256:2b3c", Running: true},
		{Image: "quay.io/ml-team/cuda-train:2024-11", ImageRef: "sha256:e901", Running: false},
	}
	rec := Reclaimable("worker-0", images, containers, at)
	assert.True(t, rec.Known)
	assert.Equal(t, "249.42 Gi", rec.Size.Format())
	assert.Equal(t, 3, rec.Unreferenced)
	assert.Equal(t, 5, rec.TotalImages)
	assert.Equal(t, at, rec.InventoryTime)
}

func TestReclaimableNothingToFree(t *testing.T) {
	rec := Reclaimable("worker-1", []parser.Image{{ID: "sha256:1d2e", Size: quantity.FromBytes(1)}},
		[]parser.ContainerRef{{ImageRef: "1d2e", Running: true}}, time.Time{})
	assert.True(t, rec.Known)
	assert.True(t, rec.Size.IsZero())
	assert.Zero(t, rec.Unreferenced)

	unknown := UnknownReclaimable("worker-2")
	assert.False(t, unknown.Known)
	assert.Equal(t, "worker-2", unknown.NodeName)
}

func TestDigestOf(t *testing.T) {
	assert.Equal(t, "abc", digestOf("quay.io/x/y@sha256:abc"))
	assert.Equal(t, "abc", digestOf("sha256:abc"))
	assert.Equal(t, "quay.io/x/y:1", digestOf("quay.io/x/y:1"))
}
