package analytics

import (
	"sort"
	"time"
)

const (
	// SessionGap is the largest pause between interactions within one session.
	SessionGap = 30 * time.Minute
	// MinSession is the duration credited to a session, however short.
	MinSession = 5 * time.Minute
)

// Sessions groups timestamps into study sessions and returns each session's duration.
// Input order does not matter; zero timestamps are ignored.
func Sessions(timestamps []time.Time) []time.Duration {
	ts := make([]time.Time, 0, len(timestamps))
	for _, t := range timestamps {
		if !t.IsZero() {
			ts = append(ts, t)
		}
	}
	if len(ts) == 0 {
		return []time.Duration{}
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i].Before(ts[j]) })

	var out []time.Duration
	start, last := ts[0], ts[0]
	for _, t := range ts[1:] {
		if t.Sub(last) > SessionGap {
			out = append(out, sessionLength(start, last))
			start = t
		}
		last = t
	}
	return append(out, sessionLength(start, last))
}

func sessionLength(start, end time.Time) time.Duration {
	return max(end.Sub(start), MinSession)
}

// StudyHours sums session durations in hours, rounded half-up to one decimal.
func StudyHours(sessions []time.Duration) float64 {
	var total time.Duration
	for _, d := range sessions {
		total += d
	}
	// one tenth of an hour is 6 minutes
	tenths := (total + 3*time.Minute) / (6 * time.Minute)
	return float64(tenths) / 10
}
