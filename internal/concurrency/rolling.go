package concurrency

import (
	"math"
	"sort"

	"github.com/notmyname/logflow/internal/model"
)

// Rolling keeps latency samples per second so that percentiles can be
// computed over a trailing window.
type Rolling struct {
	window  int64
	seconds map[int64][]float64
}

// NewRolling creates a Rolling with a lookback of window seconds (minimum 1).
func NewRolling(window int) *Rolling {
	if window < 1 {
		window = 1
	}
	return &Rolling{window: int64(window), seconds: make(map[int64][]float64)}
}

// Window returns the lookback in seconds.
func (r *Rolling) Window() int { return int(r.window) }

// Add records value against every second the request was in flight, using
// the same zero-width and clamping rules as Counter.Add.
func (r *Rolling) Add(start, end, value float64) {
	s := int64(math.Floor(start))
	e := int64(math.Ceil(end))
	if e <= s {
		e = s + 1
	}
	for i := s; i < e; i++ {
		r.seconds[i] = append(r.seconds[i], value)
	}
}

// Merge appends all samples of other.
func (r *Rolling) Merge(other *Rolling) {
	if other == nil {
		return
	}
	for k, v := range other.seconds {
		r.seconds[k] = append(r.seconds[k], v...)
	}
}

// Len returns the number of seconds holding samples.
func (r *Rolling) Len() int { return len(r.seconds) }

// Series returns percentile p at each second from the first to the last
// recorded second, computed over the window (t-window, t].
func (r *Rolling) Series(p float64) []model.LatencyPoint {
	return r.SeriesSet([]float64{p})[0]
}

// SeriesSet is Series for several percentiles, sorting each window once.
// Seconds whose window holds no samples are omitted and never visited, so
// the cost follows the occupied seconds rather than the first-to-last span.
func (r *Rolling) SeriesSet(ps []float64) [][]model.LatencyPoint {
	out := make([][]model.LatencyPoint, len(ps))
	if len(r.seconds) == 0 {
		return out
	}

	keys := make([]int64, 0, len(r.seconds))
	for k := range r.seconds {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	last := keys[len(keys)-1]

	var buf []float64
	next := keys[0]
	for _, k := range keys {
		// A sample at k is inside the window of every t in [k, k+window-1].
		if next < k {
			next = k
		}
		for t := next; t <= min(k+r.window-1, last); t++ {
			lo := sort.Search(len(keys), func(i int) bool { return keys[i] > t-r.window })
			hi := sort.Search(len(keys), func(i int) bool { return keys[i] > t })
			buf = buf[:0]
			for _, sec := range keys[lo:hi] {
				buf = append(buf, r.seconds[sec]...)
			}
			sort.Float64s(buf)
			for i, p := range ps {
				out[i] = append(out[i], model.LatencyPoint{Second: t, Value: Percentile(buf, p)})
			}
			next = t + 1
		}
	}
	return out
}
