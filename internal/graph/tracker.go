// Package graph accumulates the call graph between Swift daemons.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/notmyname/logflow/internal/model"
)

// StatusMode controls how much of the response status an edge key keeps.
type StatusMode string

const (
	StatusFull  StatusMode = "full"  // "404"
	StatusClass StatusMode = "class" // "4xx"
	StatusNone  StatusMode = "none"  // dropped
)

// ParseStatusMode validates a mode name. The empty string selects StatusFull.
func ParseStatusMode(s string) (StatusMode, error) {
	switch m := StatusMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return StatusFull, nil
	case StatusFull, StatusClass, StatusNone:
		return m, nil
	default:
		return "", fmt.Errorf("graph: unknown status mode %q", s)
	}
}

// Options configures a Tracker.
type Options struct {
	StatusMode StatusMode
	// MergePIDs drops the " <pid>" suffix of node names so that all
	// workers of one daemon collapse into a single node.
	MergePIDs bool
}

type edgeKey struct {
	source string
	dest   string
	method string
	status string
}

// Tracker counts directed edges. Counts only ever grow.
type Tracker struct {
	opts   Options
	counts map[edgeKey]int64
}

// NewTracker creates an empty Tracker.
func NewTracker(opts Options) *Tracker {
	if opts.StatusMode == "" {
		opts.StatusMode = StatusFull
	}
	return &Tracker{opts: opts, counts: make(map[edgeKey]int64)}
}

// AddEdge records one call from source to dest. Method and status may be
// empty for edges that carry no request, such as token validation.
func (t *Tracker) AddEdge(source, dest, method, status string) {
	if t.opts.MergePIDs {
		source = stripPID(source)
		dest = stripPID(dest)
	}
	t.counts[edgeKey{
		source: source,
		dest:   dest,
		method: method,
		status: t.status(status),
	}]++
}

func (t *Tracker) status(s string) string {
	switch t.opts.StatusMode {
	case StatusNone:
		return ""
	case StatusClass:
		if s != "" && s[0] >= '0' && s[0] <= '9' {
			return s[:1] + "xx"
		}
	}
	return s
}

// stripPID turns "proxy-server 1234" into "proxy-server".
func stripPID(node string) string {
	i := strings.LastIndexByte(node, ' ')
	if i < 0 {
		return node
	}
	for _, c := range node[i+1:] {
		if c < '0' || c > '9' {
			return node
		}
	}
	return node[:i]
}

// Merge adds the counts of other into t.
func (t *Tracker) Merge(other *Tracker) {
	if other == nil {
		return
	}
	for k, v := range other.counts {
		t.counts[k] += v
	}
}

// Len returns the number of distinct edges.
func (t *Tracker) Len() int { return len(t.counts) }

// Finalize converts the counts into edges with weights and pen widths.
// Thickness scales linearly up to maxThickness for the busiest edge and
// never drops below 1.0. Edges are sorted by source, dest and label.
func (t *Tracker) Finalize(maxThickness float64) []model.Edge {
	var maxCount int64
	for _, c := range t.counts {
		maxCount = max(maxCount, c)
	}
	if maxCount == 0 {
		maxCount = 1
	}

	edges := make([]model.Edge, 0, len(t.counts))
	for k, c := range t.counts {
		edges = append(edges, model.Edge{
			Source:    k.source,
			Dest:      k.dest,
			Method:    k.method,
			Status:    k.status,
			Label:     label(k, c),
			Weight:    c,
			Thickness: max(maxThickness*float64(c)/float64(maxCount), 1.0),
		})
	}

	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Dest != b.Dest {
			return a.Dest < b.Dest
		}
		return a.Label < b.Label
	})
	return edges
}

func label(k edgeKey, count int64) string {
	var base string
	switch {
	case k.method != "" && k.status != "":
		base = fmt.Sprintf("%s (%s)", k.method, k.status)
	case k.method != "":
		base = k.method
	case k.status != "":
		base = fmt.Sprintf("(%s)", k.status)
	}
	if base == "" {
		return fmt.Sprintf("[%d]", count)
	}
	return fmt.Sprintf("%s [%d]", base, count)
}
