package availability

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// PPM is the parts-per-million scale for uptime and SLO targets.
const PPM = 1_000_000

var (
	ErrInvalidRange   = errors.New("availability: range end must be after start")
	ErrTooManyBuckets = errors.New("availability: too many buckets for range")
	ErrInvalidMonth   = errors.New("availability: month must be YYYY-MM")
)

type ErrorBudget struct {
	TargetPPM                int64 `json:"targetPpm"`
	AllowedDowntimeSeconds   int64 `json:"allowedDowntimeSeconds"`
	BurnedDowntimeSeconds    int64 `json:"burnedDowntimeSeconds"`
	RemainingDowntimeSeconds int64 `json:"remainingDowntimeSeconds"`
}

// Exhausted is true once more downtime was burned than allowed.
func (b *ErrorBudget) Exhausted() bool { return b.RemainingDowntimeSeconds < 0 }

type Summary struct {
	TotalSeconds          int64        `json:"totalSeconds"`
	MaintenanceSeconds    int64        `json:"maintenanceSeconds"`
	EffectiveTotalSeconds int64        `json:"effectiveTotalSeconds"`
	DowntimeSeconds       int64        `json:"downtimeSeconds"`
	UptimePPM             int64        `json:"uptimePpm"`
	UptimePercent         float64      `json:"uptimePercent"`
	ErrorBudget           *ErrorBudget `json:"errorBudget,omitempty"`
}

func clampPPM(v int64) int64 {
	if v < 0 {
		return 0
	}
	if v > PPM {
		return PPM
	}
	return v
}

func uptimePPM(effective, downtime int64) int64 {
	if effective <= 0 {
		return PPM
	}
	ratio := float64(effective-downtime) / float64(effective)
	return clampPPM(int64(math.Round(ratio * PPM)))
}

// ComputeAvailability derives the uptime summary for [fromSec, toSec).
// Maintenance is removed from both the denominator and the downtime.
// targetPPM may be nil, in which case the error budget is omitted.
func ComputeAvailability(fromSec, toSec int64, downtime, maintenance []Interval, targetPPM *int64) (Summary, error) {
	if toSec <= fromSec {
		return Summary{}, ErrInvalidRange
	}
	r := Interval{Start: fromSec, End: toSec}
	maint := MergeIntervals(ClampIntervals(maintenance, r))
	down := MergeIntervals(ClampIntervals(downtime, r))
	outside := SubtractIntervals(down, maint)

	total := toSec - fromSec
	maintSecs := SumIntervalSeconds(maint)
	effective := max(0, total-maintSecs)
	downSecs := SumIntervalSeconds(outside)

	s := Summary{
		TotalSeconds:          total,
		MaintenanceSeconds:    maintSecs,
		EffectiveTotalSeconds: effective,
		DowntimeSeconds:       downSecs,
		UptimePPM:             uptimePPM(effective, downSecs),
	}
	s.UptimePercent = float64(s.UptimePPM) / 10_000

	if targetPPM != nil {
		target := clampPPM(*targetPPM)
		// integer floor of effective*(1-target/PPM)
		allowed := effective * (PPM - target) / PPM
		s.ErrorBudget = &ErrorBudget{
			TargetPPM:                target,
			AllowedDowntimeSeconds:   allowed,
			BurnedDowntimeSeconds:    downSecs,
			RemainingDowntimeSeconds: allowed - downSecs,
		}
	}
	return s, nil
}

// DowntimeOutsideMaintenance is the helper callers use to feed
// ComputeAvailabilityBuckets.
func DowntimeOutsideMaintenance(downtime, maintenance []Interval) []Interval {
	return SubtractIntervals(downtime, maintenance)
}

type BucketSize string

const (
	BucketHour BucketSize = "hour"
	BucketDay  BucketSize = "day"
)

func ParseBucketSize(s string) (BucketSize, error) {
	switch BucketSize(s) {
	case BucketHour, BucketDay:
		return BucketSize(s), nil
	}
	return "", fmt.Errorf("availability: unknown bucket %q", s)
}

func (b BucketSize) seconds() int64 {
	if b == BucketDay {
		return 86400
	}
	return 3600
}

type Bucket struct {
	Start                 int64 `json:"start"`
	End                   int64 `json:"end"`
	UptimePPM             int64 `json:"uptimePpm"`
	DowntimeSeconds       int64 `json:"downtimeSeconds"`
	MaintenanceSeconds    int64 `json:"maintenanceSeconds"`
	EffectiveTotalSeconds int64 `json:"effectiveTotalSeconds"`
	Incidents             int   `json:"incidents"`
}

// nextBoundary returns the first UTC hour/day boundary strictly after t.
func nextBoundary(t int64, size BucketSize) int64 {
	step := size.seconds()
	return (floorDiv(t, step) + 1) * step
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// CountBuckets reports how many wall-clock aligned buckets [fromSec, toSec) spans.
func CountBuckets(fromSec, toSec int64, size BucketSize) int {
	n := 0
	for cur := fromSec; cur < toSec; cur = nextBoundary(cur, size) {
		n++
	}
	return n
}

// ComputeAvailabilityBuckets splits [fromSec, toSec) at UTC hour or day
// boundaries. downtime must already exclude maintenance. Each bucket also
// counts the distinct downtime intervals that touch it. A range needing more
// than maxBuckets buckets is rejected.
func ComputeAvailabilityBuckets(fromSec, toSec int64, downtime, maintenance []Interval, size BucketSize, maxBuckets int) ([]Bucket, error) {
	if toSec <= fromSec {
		return nil, ErrInvalidRange
	}
	if _, err := ParseBucketSize(string(size)); err != nil {
		return nil, err
	}
	if maxBuckets > 0 {
		// Bound the work before walking the range.
		approx := (toSec-fromSec)/size.seconds() + 2
		if approx > int64(maxBuckets)+2 || CountBuckets(fromSec, toSec, size) > maxBuckets {
			return nil, fmt.Errorf("%w: limit %d", ErrTooManyBuckets, maxBuckets)
		}
	}

	maint := MergeIntervals(maintenance)
	var out []Bucket
	for cur := fromSec; cur < toSec; {
		end := min(nextBoundary(cur, size), toSec)
		r := Interval{Start: cur, End: end}
		m := SumOverlapSeconds(maint, r)
		d := SumOverlapSeconds(downtime, r)
		eff := max(0, r.Seconds()-m)
		out = append(out, Bucket{
			Start:                 cur,
			End:                   end,
			UptimePPM:             uptimePPM(eff, d),
			DowntimeSeconds:       d,
			MaintenanceSeconds:    m,
			EffectiveTotalSeconds: eff,
			Incidents:             countOverlapping(downtime, r),
		})
		cur = end
	}
	return out, nil
}

// UTCMonthRange returns [first second of month, first second of next month).
func UTCMonthRange(month string) (int64, int64, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil || len(month) != 7 {
		return 0, 0, ErrInvalidMonth
	}
	from := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return from.Unix(), from.AddDate(0, 1, 0).Unix(), nil
}
