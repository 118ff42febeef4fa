package widgets

import (
	"fmt"
	"math"
	"strings"
)

func Bar(v float64, width int) string {
	if width <= 0 {
		return ""
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}

	fill := int(math.Round(v * float64(width)))

	if v > 0 && fill == 0 {
		fill = 1
	}
	if fill > width {
		fill = width
	}

	return strings.Repeat("█", fill) + strings.Repeat("░", width-fill)
}

// Coverage renders "collected/total unit" next to a bar of the ratio.
func Coverage(collected, total int, unit string, width int) string {
	ratio := 1.0
	if total > 0 {
		ratio = float64(collected) / float64(total)
	}
	return fmt.Sprintf("%s %d/%d %s", Bar(ratio, width), collected, total, unit)
}
