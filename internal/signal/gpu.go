package signal

import (
	"fmt"
	"sort"
	"strings"

	"github.com/junzzhu/openshift-mcp-server/internal/domain"
	"github.com/junzzhu/openshift-mcp-server/internal/parser"
	"github.com/junzzhu/openshift-mcp-server/internal/quantity"
)

// ClassifyGpu decides Idle or Active from utilisation alone. Zero is always
// idle, so an idle threshold of 0 still catches a GPU doing nothing.
func ClassifyGpu(util, idleBelow float64) domain.GpuStatus {
	if util <= 0 || util < idleBelow {
		return domain.GpuIdle
	}
	return domain.GpuActive
}

// GpuUtilization joins the utilisation, framebuffer-used and framebuffer-free
// series on (node, gpu). Framebuffer values are MiB.
func GpuUtilization(util, fbUsed, fbFree []parser.GpuSample, idleBelow float64) ([]domain.GpuUtilizationRecord, []string) {
	type acc struct {
		rec              domain.GpuUtilizationRecord
		hasUtil          bool
		used, free       float64
		hasUsed, hasFree bool
	}
	byKey := map[string]*acc{}
	get := func(s parser.GpuSample) *acc {
		a, ok := byKey[s.Key()]
		if !ok {
			a = &acc{rec: domain.GpuUtilizationRecord{NodeName: s.Node, GPU: s.GPU}}
			byKey[s.Key()] = a
		}
		if a.rec.Device == "" {
			a.rec.Device = s.Device
		}
		return a
	}
	for _, s := range util {
		a := get(s)
		a.rec.Utilization, a.hasUtil = quantity.FromPercent(s.Value), true
	}
	for _, s := range fbUsed {
		a := get(s)
		a.used, a.hasUsed = s.Value, true
	}
	for _, s := range fbFree {
		a := get(s)
		a.free, a.hasFree = s.Value, true
	}

	var notes []string
	out := make([]domain.GpuUtilizationRecord, 0, len(byKey))
	for _, a := range byKey {
		r := a.rec
		if !a.hasUtil {
			r.Utilization = quantity.FromPercent(0)
			notes = append(notes, fmt.Sprintf("no utilization series for node %s GPU %s; treated as 0%%", r.NodeName, r.GPU))
		}
		if r.Utilization.Clamped() {
			notes = append(notes, fmt.Sprintf("utilization for node %s GPU %s clamped to %s", r.NodeName, r.GPU, r.Utilization))
		}
		if a.hasUsed || a.hasFree {
			r.HasMemory = true
			r.MemFreeMiB = a.free
			r.MemUsedPct = quantity.FromPercent(0)
			if total := a.used + a.free; total > 0 {
				r.MemUsedPct = quantity.FromPercent(a.used / total * 100)
			}
		}
		r.Status = ClassifyGpu(r.Utilization.Value(), idleBelow)
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].NodeName != out[j].NodeName {
			return out[i].NodeName < out[j].NodeName
		}
		return parser.GpuLess(out[i].GPU, out[j].GPU)
	})
	sort.Strings(notes)
	return out, notes
}

// HighUtilization returns GPUs strictly above limit.
func HighUtilization(recs []domain.GpuUtilizationRecord, limit float64) []domain.GpuUtilizationRecord {
	var out []domain.GpuUtilizationRecord
	for _, r := range recs {
		if r.Utilization.Value() > limit {
			out = append(out, r)
		}
	}
	return out
}

// DCGM clock throttle reason bits.
const (
	throttleIdle          = 1 << 0
	throttlePowerCap      = 1 << 1
	throttleThermal       = 1 << 2
	throttlePowerSupply   = 1 << 3
	throttleUnknownReason = 1 << 4
)

// ThrottleReasons names the bits set in a DCGM throttle bitmask.
func ThrottleReasons(mask uint64) (all []string, critical []string) {
	names := []struct {
		bit      uint64
		name     string
		critical bool
	}{
		{throttleIdle, "GPU idle", false},
		{throttlePowerCap, "power cap", false},
		{throttleThermal, "thermal slowdown", true},
		{throttlePowerSupply, "power supply failure", true},
		{throttleUnknownReason, "unknown", false},
	}
	for _, n := range names {
		if mask&n.bit == 0 {
			continue
		}
		all = append(all, n.name)
		if n.critical {
			critical = append(critical, n.name)
		}
	}
	return all, critical
}

// GpuHealth turns XID, throttle and temperature samples into findings.
// Only thermal and power-supply throttling count; idle and power-cap
// throttling are normal operation.
func GpuHealth(xid, throttle, temp []parser.GpuSample, maxCelsius float64) []domain.GpuHealthFinding {
	var out []domain.GpuHealthFinding
	for _, s := range xid {
		if s.Value > 0 {
			out = append(out, domain.GpuHealthFinding{
				NodeName: s.Node, GPU: s.GPU, Kind: "xid",
				Detail: fmt.Sprintf("XID error code %d", int64(s.Value)), Value: s.Value,
			})
		}
	}
	for _, s := range throttle {
		if s.Value <= 0 {
			continue
		}
		if _, crit := ThrottleReasons(uint64(s.Value)); len(crit) > 0 {
			out = append(out, domain.GpuHealthFinding{
				NodeName: s.Node, GPU: s.GPU, Kind: "throttle",
				Detail: strings.Join(crit, ", "), Value: s.Value,
			})
		}
	}
	for _, s := range temp {
		if s.Value > maxCelsius {
			out = append(out, domain.GpuHealthFinding{
				NodeName: s.Node, GPU: s.GPU, Kind: "temperature",
				Detail: fmt.Sprintf("%.1f°C", s.Value), Value: s.Value,
			})
		}
	}
	return out
}
