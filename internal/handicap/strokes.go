package handicap

import "sort"

// AllocateHandicapStrokes spreads a course handicap over the played holes.
// Every hole receives courseHandicap/len(holes) strokes, and the remainder
// goes to the holes with the lowest stroke index. Negative handicaps allocate
// nothing. The input slice is not modified.
func AllocateHandicapStrokes(holes []Hole, courseHandicap int) []Hole {
	out := append([]Hole(nil), holes...)
	if len(out) == 0 {
		return out
	}
	ch := max(0, courseHandicap)
	base, remainder := ch/len(out), ch%len(out)

	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return out[order[a]].HCP < out[order[b]].HCP
	})

	for i := range out {
		out[i].HcpStrokes = base
	}
	for _, idx := range order[:remainder] {
		out[idx].HcpStrokes++
	}
	return out
}
