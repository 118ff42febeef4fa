package signal

import (
	"fmt"
	"sort"

	"github.com/junzzhu/openshift-mcp-server/internal/domain"
	"github.com/junzzhu/openshift-mcp-server/internal/parser"
)

// PvCapacity joins claims with kubelet volume usage. A claim with no usage
// from any node comes back in noUsage. Records breach when used/capacity is
// strictly above breachPercent.
func PvCapacity(claims []parser.ClaimInfo, usage []domain.PvCapacityRecord, breachPercent float64) (recs []domain.PvCapacityRecord, noUsage []parser.ClaimInfo, notes []string) {
	seen := map[string]domain.PvCapacityRecord{}
	for _, u := range usage {
		key := u.Namespace + "/" + u.ClaimName
		if prev, ok := seen[key]; ok && prev.Used.Value() >= u.Used.Value() {
			continue
		}
		seen[key] = u
	}

	for _, c := range claims {
		key := c.Namespace + "/" + c.Name
		u, ok := seen[key]
		if !ok {
			noUsage = append(noUsage, c)
			continue
		}
		rec := domain.PvCapacityRecord{
			Namespace:    c.Namespace,
			ClaimName:    c.Name,
			VolumeName:   c.VolumeName,
			StorageClass: c.StorageClass,
			NodeName:     u.NodeName,
			Used:         u.Used,
			Capacity:     u.Capacity,
		}
		if rec.Capacity.IsZero() {
			rec.Capacity = c.Requested
		}
		pct, err := rec.Used.PercentOf(rec.Capacity)
		if err != nil {
			notes = append(notes, fmt.Sprintf("claim %s: %v", key, err))
			continue
		}
		if pct.Clamped() {
			notes = append(notes, fmt.Sprintf("claim %s usage exceeds reported capacity; shown as %s", key, pct))
		}
		if rec.Capacity.IsZero() {
			notes = append(notes, fmt.Sprintf("claim %s has no known capacity", key))
		}
		rec.UsedPct = pct
		rec.Breached = pct.Value() > breachPercent
		recs = append(recs, rec)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.UsedPct.Value() != b.UsedPct.Value() {
			return a.UsedPct.Value() > b.UsedPct.Value()
		}
		if a.Namespace != b.Namespace {
			return a.Namespace < b.Namespace
		}
		return a.ClaimName < b.ClaimName
	})
	return recs, noUsage, notes
}

// Breached filters records over the threshold.
func Breached(recs []domain.PvCapacityRecord) []domain.PvCapacityRecord {
	var out []domain.PvCapacityRecord
	for _, r := range recs {
		if r.Breached {
			out = append(out, r)
		}
	}
	return out
}
