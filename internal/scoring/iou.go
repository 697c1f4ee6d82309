package scoring

// Box is an [x1, y1, x2, y2] rectangle in logical pixels.
type Box = [4]int

// IoU returns the intersection over union of two boxes. Degenerate or
// disjoint boxes score zero.
func IoU(a, b Box) float64 {
	x1 := max(a[0], b[0])
	y1 := max(a[1], b[1])
	x2 := min(a[2], b[2])
	y2 := min(a[3], b[3])

	inter := max(0, x2-x1) * max(0, y2-y1)
	if inter == 0 {
		return 0
	}
	union := area(a) + area(b) - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func area(b Box) int {
	return max(0, b[2]-b[0]) * max(0, b[3]-b[1])
}
