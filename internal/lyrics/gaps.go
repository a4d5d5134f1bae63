package lyrics

import "sort"

// GapThreshold is the minimum silence between two timestamps that counts
// as a gap worth indicating to the user.
const GapThreshold = 5.0 // seconds

// Gap is a span of playback with no lyric worth displaying.
type Gap struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Contains reports whether t falls inside the gap, start inclusive.
func (g Gap) Contains(t float64) bool {
	return t >= g.Start && t < g.End
}

// DetectGaps computes silence intervals of at least GapThreshold seconds
// over the synchronized subset of lines: before the first timestamp,
// between consecutive timestamps, and between the last timestamp and the
// track duration when it is known. Pure; same input, same output.
func DetectGaps(lines []Line, duration float64) []Gap {
	synced := make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.Time > 0 {
			synced = append(synced, l)
		}
	}
	if len(synced) == 0 {
		return nil
	}
	sort.SliceStable(synced, func(i, j int) bool { return synced[i].Time < synced[j].Time })

	var gaps []Gap
	if synced[0].Time >= GapThreshold {
		gaps = append(gaps, Gap{Start: 0, End: synced[0].Time})
	}
	for i := 1; i < len(synced); i++ {
		if synced[i].Time-synced[i-1].Time >= GapThreshold {
			gaps = append(gaps, Gap{Start: synced[i-1].Time, End: synced[i].Time})
		}
	}
	last := synced[len(synced)-1].Time
	if duration > 0 && duration-last >= GapThreshold {
		gaps = append(gaps, Gap{Start: last, End: duration})
	}
	return gaps
}
