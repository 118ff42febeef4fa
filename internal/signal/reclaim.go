package signal

import (
	"strings"
	"time"

	"github.com/junzzhu/openshift-mcp-server/internal/domain"
	"github.com/junzzhu/openshift-mcp-server/internal/parser"
	"github.com/junzzhu/openshift-mcp-server/internal/quantity"
)

// Reclaimable sums the images on a node that no running container refers to.
// The two inventories are separate snapshots; a container started between
// them can make the figure overstate what a prune would free.
func Reclaimable(node string, images []parser.Image, containers []parser.ContainerRef, at time.Time) domain.ReclaimableSpaceRecord {
	inUse := map[string]bool{}
	for _, c := range containers {
		if !c.Running {
			continue
		}
		for _, ref := range []string{c.Image, c.ImageRef} {
			if ref == "" {
				continue
			}
			inUse[ref] = true
			inUse[digestOf(ref)] = true
		}
	}

	rec := domain.ReclaimableSpaceRecord{
		NodeName:      node,
		Known:         true,
		Size:          quantity.FromBytes(0),
		TotalImages:   len(images),
		InventoryTime: at,
	}
	var total int64
	for _, im := range images {
		if referenced(im, inUse) {
			continue
		}
		rec.Unreferenced++
		total += im.Size.Bytes()
	}
	rec.Size = quantity.FromBytes(total)
	return rec
}

// UnknownReclaimable marks a node whose image inventory could not be read.
func UnknownReclaimable(node string) domain.ReclaimableSpaceRecord {
	return domain.ReclaimableSpaceRecord{NodeName: node}
}

func referenced(im parser.Image, inUse map[string]bool) bool {
	for _, ref := range im.Refs() {
		if ref == "" {
			continue
		}
		if inUse[ref] || inUse[digestOf(ref)] {
			return true
		}
	}
	return false
}

// digestOf reduces "repo@sha256:abc" and "sha256:abc" to "abc"; anything else
// is returned unchanged.
func digestOf(ref string) string {
	if i := strings.LastIndexByte(ref, '@'); i >= 0 {
		ref = ref[i+1:]
	}
	return strings.TrimPrefix(ref, "sha256:")
}
