// Package concurrency counts in-flight requests per time bucket and derives
// nearest-rank percentiles from latency samples.
package concurrency

import (
	"math"
	"sort"

	"github.com/notmyname/logflow/internal/model"
)

// Counter is a sparse histogram of how many intervals cover each bucket.
// Buckets are indexed by start/resolution; a missing index counts zero.
type Counter struct {
	resolution float64
	mult       float64
	buckets    map[int64]int64
	degenerate int64
}

// NewCounter creates a Counter with the given bucket width in seconds.
// Non-positive resolutions fall back to model.DefaultResolution.
func NewCounter(resolution float64) *Counter {
	if resolution <= 0 || math.IsNaN(resolution) || math.IsInf(resolution, 0) {
		resolution = model.DefaultResolution
	}
	return &Counter{
		resolution: resolution,
		mult:       1 / resolution,
		buckets:    make(map[int64]int64),
	}
}

// Add counts one request in flight over [start, end).
//
// Every bucket from trunc(start) through ceil(end)-1 is incremented once. A
// zero-width interval still occupies one bucket. An interval that ends
// before it starts is clamped to the single bucket holding start and
// tallied in Degenerate.
func (c *Counter) Add(start, end float64) {
	s, e := c.span(start, end)
	for i := s; i < e; i++ {
		c.buckets[i]++
	}
}

func (c *Counter) span(start, end float64) (int64, int64) {
	s := int64(math.Trunc(start * c.mult))
	e := int64(math.Ceil(end * c.mult))
	if e == s {
		e++
	}
	if e < s {
		c.degenerate++
		e = s + 1
	}
	return s, e
}

// Count returns the count of bucket idx.
func (c *Counter) Count(idx int64) int64 {
	return c.buckets[idx]
}

// Snapshot returns a copy of the sparse bucket map.
func (c *Counter) Snapshot() map[int64]int64 {
	out := make(map[int64]int64, len(c.buckets))
	for k, v := range c.buckets {
		out[k] = v
	}
	return out
}

// Points returns the non-empty buckets in ascending order.
func (c *Counter) Points() []model.Point {
	keys := make([]int64, 0, len(c.buckets))
	for k := range c.buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	points := make([]model.Point, len(keys))
	for i, k := range keys {
		points[i] = model.Point{Start: float64(k) * c.resolution, Count: c.buckets[k]}
	}
	return points
}

// Series wraps Points under a name.
func (c *Counter) Series(name string) model.Series {
	return model.Series{Name: name, Resolution: c.resolution, Points: c.Points()}
}

// Merge adds every bucket of other into c. Both counters must share a
// resolution; Merge of a mismatched counter is ignored and reported false.
func (c *Counter) Merge(other *Counter) bool {
	if other == nil {
		return true
	}
	if other.resolution != c.resolution {
		return false
	}
	for k, v := range other.buckets {
		c.buckets[k] += v
	}
	c.degenerate += other.degenerate
	return true
}

// Resolution returns the bucket width in seconds.
func (c *Counter) Resolution() float64 { return c.resolution }

// Len returns the number of non-empty buckets.
func (c *Counter) Len() int { return len(c.buckets) }

// Degenerate returns how many intervals ended before they started.
func (c *Counter) Degenerate() int64 { return c.degenerate }
