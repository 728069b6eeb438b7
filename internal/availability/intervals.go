// Package availability is the interval arithmetic behind uptime ratios,
// bucketed series and error budgets. Everything here is pure and
// synchronous; callers pre-fetch the downtime and maintenance spans.
package availability

import "sort"

// Interval is a half-open [Start, End) range in unix seconds.
type Interval struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

func (iv Interval) Seconds() int64 {
	if iv.End <= iv.Start {
		return 0
	}
	return iv.End - iv.Start
}

// MergeIntervals sorts and coalesces overlapping or adjacent ranges.
// Empty ranges are dropped. The input is not modified.
func MergeIntervals(set []Interval) []Interval {
	sorted := make([]Interval, 0, len(set))
	for _, iv := range set {
		if iv.End > iv.Start {
			sorted = append(sorted, iv)
		}
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	out := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &out[len(out)-1]
		if iv.Start <= last.End {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// ClampIntervals intersects every interval with r and drops empties.
func ClampIntervals(set []Interval, r Interval) []Interval {
	var out []Interval
	for _, iv := range set {
		s, e := max(iv.Start, r.Start), min(iv.End, r.End)
		if e > s {
			out = append(out, Interval{Start: s, End: e})
		}
	}
	return out
}

// SubtractIntervals returns a with every part covered by b removed.
// The result is normalized.
func SubtractIntervals(a, b []Interval) []Interval {
	a = MergeIntervals(a)
	b = MergeIntervals(b)
	if len(b) == 0 {
		return a
	}

	var out []Interval
	j := 0
	for _, iv := range a {
		cur := iv.Start
		for j < len(b) && b[j].End <= cur {
			j++
		}
		for k := j; k < len(b) && b[k].Start < iv.End; k++ {
			if b[k].Start > cur {
				out = append(out, Interval{Start: cur, End: b[k].Start})
			}
			if b[k].End > cur {
				cur = b[k].End
			}
			if cur >= iv.End {
				break
			}
		}
		if cur < iv.End {
			out = append(out, Interval{Start: cur, End: iv.End})
		}
	}
	return out
}

// SumIntervalSeconds totals the set after merging, so overlaps count once.
func SumIntervalSeconds(set []Interval) int64 {
	var total int64
	for _, iv := range MergeIntervals(set) {
		total += iv.Seconds()
	}
	return total
}

// SumOverlapSeconds totals the part of the set inside r.
func SumOverlapSeconds(set []Interval, r Interval) int64 {
	return SumIntervalSeconds(ClampIntervals(set, r))
}

// countOverlapping counts intervals of set (as given, not merged) that
// intersect r.
func countOverlapping(set []Interval, r Interval) int {
	n := 0
	for _, iv := range set {
		if iv.Start < r.End && iv.End > r.Start && iv.End > iv.Start {
			n++
		}
	}
	return n
}
