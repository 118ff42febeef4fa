// Package signal derives diagnostic signals from parsed records. Nothing here
// talks to the cluster or formats text.
package signal

import (
	"sort"

	"github.com/junzzhu/openshift-mcp-server/internal/domain"
)

// TopN returns the n largest consumers, ties ordered by namespace then pod.
// The input is not modified.
func TopN(in []domain.PodConsumptionRecord, n int) []domain.PodConsumptionRecord {
	out := make([]domain.PodConsumptionRecord, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Consumed.Value() != b.Consumed.Value() {
			return a.Consumed.Value() > b.Consumed.Value()
		}
		if a.Namespace != b.Namespace {
			return a.Namespace < b.Namespace
		}
		return a.PodName < b.PodName
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
