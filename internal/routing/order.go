package routing

import "tripnav/internal/geo"

// ImproveOrder applies 2-opt passes to shorten the path through points. The
// first and last positions never move. It returns a permutation of indexes.
func ImproveOrder(points []geo.Point, iterations int) []int {
	if iterations <= 0 {
		iterations = 1
	}
	n := len(points)
	best := make([]int, n)
	for i := range best {
		best[i] = i
	}
	if n < 4 {
		return best
	}
	bestDist := orderedKm(points, best)
	for it := 0; it < iterations; it++ {
		improved := false
		for i := 1; i < n-2; i++ {
			for k := i + 1; k < n-1; k++ {
				cand := twoOptSwap(best, i, k)
				d := orderedKm(points, cand)
				if d+1e-6 < bestDist {
					best = cand
					bestDist = d
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return best
}

func twoOptSwap(ord []int, i, k int) []int {
	out := make([]int, len(ord))
	copy(out, ord[:i])
	pos := i
	for j := k; j >= i; j-- {
		out[pos] = ord[j]
		pos++
	}
	copy(out[pos:], ord[k+1:])
	return out
}

func orderedKm(points []geo.Point, order []int) float64 {
	total := 0.0
	for i := 0; i+1 < len(order); i++ {
		total += geo.HaversineKm(points[order[i]], points[order[i+1]])
	}
	return total
}
