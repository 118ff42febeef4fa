package signal

import (
	"sort"
	"time"

	"github.com/junzzhu/openshift-mcp-server/internal/domain"
	"github.com/junzzhu/openshift-mcp-server/internal/parser"
)

// RestartAnomalies keeps pods whose restart count in [start, end] is strictly
// above threshold, most restarts first.
func RestartAnomalies(samples []parser.RestartSample, threshold float64, start, end time.Time) []domain.RestartAnomalyRecord {
	var out []domain.RestartAnomalyRecord
	for _, s := range samples {
		if !(s.Restarts > threshold) {
			continue
		}
		out = append(out, domain.RestartAnomalyRecord{
			Namespace:   s.Namespace,
			PodName:     s.Pod,
			Restarts:    s.Restarts,
			WindowStart: start,
			WindowEnd:   end,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Restarts != b.Restarts {
			return a.Restarts > b.Restarts
		}
		if a.Namespace != b.Namespace {
			return a.Namespace < b.Namespace
		}
		return a.PodName < b.PodName
	})
	return out
}
