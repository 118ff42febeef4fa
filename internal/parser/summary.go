package parser

import (
	"encoding/json"
	"sort"

	"github.com/junzzhu/openshift-mcp-server/internal/diagerr"
	"github.com/junzzhu/openshift-mcp-server/internal/domain"
	"github.com/junzzhu/openshift-mcp-server/internal/quantity"
)

// kubelet /stats/summary, only the fields the reports read.
type statsSummary struct {
	Node *struct {
		NodeName string   `json:"nodeName"`
		Fs       *fsStats `json:"fs"`
		Runtime  *struct {
			ImageFs *fsStats `json:"imageFs"`
		} `json:"runtime"`
	} `json:"node"`
	Pods []podStats `json:"pods"`
}

type fsStats struct {
	AvailableBytes *int64 `json:"availableBytes"`
	CapacityBytes  *int64 `json:"capacityBytes"`
	UsedBytes      *int64 `json:"usedBytes"`
}

func (f *fsStats) used() int64 {
	if f == nil || f.UsedBytes == nil {
		return 0
	}
	return *f.UsedBytes
}

type podStats struct {
	PodRef struct {
		Name      string `json:"name"`
		Namespace string `json:"namespace"`
	} `json:"podRef"`
	Containers []struct {
		Name   string   `json:"name"`
		Rootfs *fsStats `json:"rootfs"`
	} `json:"containers"`
	Volumes []struct {
		Name   string `json:"name"`
		PVCRef *struct {
			Name      string `json:"name"`
			Namespace string `json:"namespace"`
		} `json:"pvcRef"`
		fsStats
	} `json:"volume"`
	EphemeralStorage *fsStats `json:"ephemeral-storage"`
}

// NodeSummary is everything one stats summary yields.
type NodeSummary struct {
	Storage  domain.NodeStorageRecord
	Pods     []domain.PodConsumptionRecord // total ephemeral storage, usage > 0
	Writable []domain.PodConsumptionRecord // container rootfs, summed per pod
	Volumes  []domain.PodConsumptionRecord // non-PVC volumes, summed per pod
	Claims   []domain.PvCapacityRecord     // PVC-backed volumes, usage only
	Skipped  []string
}

// ParseStatsSummary decodes the kubelet stats summary of one node.
func ParseStatsSummary(node string, raw []byte) (NodeSummary, error) {
	var out NodeSummary
	var s statsSummary
	if err := json.Unmarshal(raw, &s); err != nil {
		return out, diagerr.Schema(node, "stats summary: %v", err)
	}
	if s.Node == nil || s.Node.Fs == nil || s.Node.Fs.CapacityBytes == nil || s.Node.Fs.UsedBytes == nil {
		return out, diagerr.Schema(node, "stats summary has no node.fs capacity/usage")
	}

	fs := s.Node.Fs
	out.Storage = domain.NodeStorageRecord{
		NodeName:   node,
		FsUsed:     quantity.FromBytes(*fs.UsedBytes),
		FsCapacity: quantity.FromBytes(*fs.CapacityBytes),
	}
	if fs.AvailableBytes != nil {
		out.Storage.FsAvailable = quantity.FromBytes(*fs.AvailableBytes)
	} else {
		out.Storage.FsAvailable = quantity.FromBytes(*fs.CapacityBytes - *fs.UsedBytes)
	}
	if s.Node.Runtime != nil && s.Node.Runtime.ImageFs != nil && s.Node.Runtime.ImageFs.UsedBytes != nil {
		out.Storage.ImageFsUsed = quantity.FromBytes(*s.Node.Runtime.ImageFs.UsedBytes)
		out.Storage.HasImageFs = true
	}

	var total int64
	for _, p := range s.Pods {
		if p.PodRef.Name == "" {
			out.Skipped = append(out.Skipped, "pod entry without podRef.name")
			continue
		}
		ns := p.PodRef.Namespace
		if used := p.EphemeralStorage.used(); used > 0 {
			total += used
			out.Pods = append(out.Pods, domain.PodConsumptionRecord{
				Namespace: ns, PodName: p.PodRef.Name, Consumed: quantity.FromBytes(used),
			})
		}

		var rootfs int64
		for _, c := range p.Containers {
			rootfs += c.Rootfs.used()
		}
		if rootfs > 0 {
			out.Writable = append(out.Writable, domain.PodConsumptionRecord{
				Namespace: ns, PodName: p.PodRef.Name, Consumed: quantity.FromBytes(rootfs), Layer: domain.LayerWritable,
			})
		}

		var vols int64
		for _, v := range p.Volumes {
			if v.PVCRef != nil {
				rec := domain.PvCapacityRecord{
					Namespace: v.PVCRef.Namespace,
					ClaimName: v.PVCRef.Name,
					NodeName:  node,
					Used:      quantity.FromBytes(v.used()),
				}
				if v.CapacityBytes != nil {
					rec.Capacity = quantity.FromBytes(*v.CapacityBytes)
				}
				if rec.Namespace == "" {
					rec.Namespace = ns
				}
				out.Claims = append(out.Claims, rec)
				continue
			}
			vols += v.used()
		}
		if vols > 0 {
			out.Volumes = append(out.Volumes, domain.PodConsumptionRecord{
				Namespace: ns, PodName: p.PodRef.Name, Consumed: quantity.FromBytes(vols), Layer: domain.LayerEphemeralVol,
			})
		}
	}
	out.Storage.PodEphemeral = quantity.FromBytes(total)

	// a PVC mounted by several pods on one node shows up once per pod
	sort.SliceStable(out.Claims, func(i, j int) bool {
		if out.Claims[i].Namespace != out.Claims[j].Namespace {
			return out.Claims[i].Namespace < out.Claims[j].Namespace
		}
		return out.Claims[i].ClaimName < out.Claims[j].ClaimName
	})
	out.Claims = dedupeClaims(out.Claims)
	return out, nil
}

func dedupeClaims(in []domain.PvCapacityRecord) []domain.PvCapacityRecord {
	out := in[:0]
	for i, c := range in {
		if i > 0 && c.Namespace == in[i-1].Namespace && c.ClaimName == in[i-1].ClaimName {
			continue
		}
		out = append(out, c)
	}
	return out
}
