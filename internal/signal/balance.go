package signal

import (
	"fmt"
	"math"
	"sort"

	"github.com/junzzhu/openshift-mcp-server/internal/domain"
	"github.com/junzzhu/openshift-mcp-server/internal/parser"
	"github.com/junzzhu/openshift-mcp-server/internal/quantity"
)

// BalancePolicy holds the balance thresholds, all in percentage points.
type BalancePolicy struct {
	DeviationPercent     float64 // flag a node this far from the cluster mean
	PressurePercent      float64 // requested share that counts as scheduling pressure
	FragmentationPercent float64 // request minus usage gap worth reporting
}

type Fragmentation struct {
	NodeName string
	Resource string
	Gap      float64
}

type BalanceResult struct {
	Records       []domain.ResourceBalanceRecord
	Spreads       []domain.BalanceSpread
	Pressure      []string
	Fragmentation []Fragmentation
	Notes         []string
}

// Balance computes per-node request and usage ratios and the spread of those
// ratios across nodes. usage is nil when the metrics API could not be read;
// the spread then falls back to requested ratios.
func Balance(caps []parser.NodeCapacity, reqs map[string]parser.NodeRequests, usage map[string]parser.NodeUsage, p BalancePolicy) BalanceResult {
	var res BalanceResult
	sorted := make([]parser.NodeCapacity, len(caps))
	copy(sorted, caps)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for _, c := range sorted {
		r := reqs[c.Name]
		rec := domain.ResourceBalanceRecord{
			NodeName:       c.Name,
			CPUAllocatable: c.CPUCores,
			CPURequested:   r.CPUCores,
			MemAllocatable: c.Memory,
			MemRequested:   r.Memory,
			PodCount:       r.Pods,
			PodCapacity:    c.PodCapacity,
		}
		rec.CPURequestedPct = res.percent(c.Name, "cpu requested", r.CPUCores, c.CPUCores)
		rec.MemRequestedPct = res.percent(c.Name, "memory requested", rec.MemRequested.Value(), c.Memory.Value())
		if u, ok := usage[c.Name]; ok {
			rec.HasUsage = true
			rec.CPUUsed = u.CPUCores
			rec.MemUsed = u.Memory
			rec.CPUUsedPct = res.percent(c.Name, "cpu used", u.CPUCores, c.CPUCores)
			rec.MemUsedPct = res.percent(c.Name, "memory used", u.Memory.Value(), c.Memory.Value())
		} else if usage != nil {
			res.Notes = append(res.Notes, fmt.Sprintf("no usage metrics for node %s", c.Name))
		}
		res.Records = append(res.Records, rec)
	}

	basis := "requested"
	if usage != nil {
		basis = "used"
	}
	cpu := ratios(res.Records, basis, func(r domain.ResourceBalanceRecord) quantity.Quantity {
		if basis == "used" {
			return r.CPUUsedPct
		}
		return r.CPURequestedPct
	})
	mem := ratios(res.Records, basis, func(r domain.ResourceBalanceRecord) quantity.Quantity {
		if basis == "used" {
			return r.MemUsedPct
		}
		return r.MemRequestedPct
	})
	cpuSpread := spread("cpu", basis, cpu)
	memSpread := spread("memory", basis, mem)
	if len(cpu) > 0 {
		res.Spreads = append(res.Spreads, cpuSpread, memSpread)
	}

	for i := range res.Records {
		rec := &res.Records[i]
		if basis == "used" && !rec.HasUsage {
			continue
		}
		if v, ok := cpu[rec.NodeName]; ok {
			rec.CPUDeviation = v - cpuSpread.Mean
		}
		if v, ok := mem[rec.NodeName]; ok {
			rec.MemDeviation = v - memSpread.Mean
		}
		rec.Flagged = math.Abs(rec.CPUDeviation) > p.DeviationPercent || math.Abs(rec.MemDeviation) > p.DeviationPercent
	}

	for _, rec := range res.Records {
		if rec.CPURequestedPct.Value() > p.PressurePercent || rec.MemRequestedPct.Value() > p.PressurePercent {
			res.Pressure = append(res.Pressure, rec.NodeName)
		}
		if !rec.HasUsage {
			continue
		}
		if gap := rec.CPURequestedPct.Value() - rec.CPUUsedPct.Value(); gap > p.FragmentationPercent {
			res.Fragmentation = append(res.Fragmentation, Fragmentation{NodeName: rec.NodeName, Resource: "cpu", Gap: gap})
		}
		if gap := rec.MemRequestedPct.Value() - rec.MemUsedPct.Value(); gap > p.FragmentationPercent {
			res.Fragmentation = append(res.Fragmentation, Fragmentation{NodeName: rec.NodeName, Resource: "memory", Gap: gap})
		}
	}
	return res
}

func (res *BalanceResult) percent(node, what string, num, den float64) quantity.Quantity {
	if den <= 0 {
		res.Notes = append(res.Notes, fmt.Sprintf("node %s reports no allocatable %s capacity", node, what))
		return quantity.FromPercent(0)
	}
	q := quantity.FromPercent(num / den * 100)
	if q.Clamped() {
		res.Notes = append(res.Notes, fmt.Sprintf("node %s %s ratio %.1f%% clamped to %s", node, what, num/den*100, q))
	}
	return q
}

func ratios(recs []domain.ResourceBalanceRecord, basis string, pick func(domain.ResourceBalanceRecord) quantity.Quantity) map[string]float64 {
	out := map[string]float64{}
	for _, r := range recs {
		if basis == "used" && !r.HasUsage {
			continue
		}
		out[r.NodeName] = pick(r).Value()
	}
	return out
}

// spread uses the population standard deviation: the node set is the whole
// population, not a sample of it.
func spread(resource, basis string, vals map[string]float64) domain.BalanceSpread {
	s := domain.BalanceSpread{Resource: resource, Basis: basis}
	if len(vals) == 0 {
		return s
	}
	s.Min, s.Max = math.Inf(1), math.Inf(-1)
	var sum float64
	for _, v := range vals {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = sum / float64(len(vals))
	var sq float64
	for _, v := range vals {
		sq += (v - s.Mean) * (v - s.Mean)
	}
	s.StdDev = math.Sqrt(sq / float64(len(vals)))
	s.Range = s.Max - s.Min
	return s
}
