package app

// clamp clamps v into [min, max].
func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// toolColWidths splits the table width between tool name, required
// arguments and description; the description takes what is left.
func toolColWidths(total int) (wName, wReq, wDesc int) {
	wName, wReq = 32, 16
	wDesc = total - wName - wReq - 6
	wDesc = clamp(wDesc, 20, 140)
	return
}
