package aggregate

import (
	"strings"

	"github.com/notmyname/logflow/internal/concurrency"
	"github.com/notmyname/logflow/internal/model"
)

// LatencyFilter selects the client requests whose request_time is sampled.
type LatencyFilter struct {
	// MaxLatency drops samples whose request_time or in-flight span is at or
	// above this many seconds. Such requests are almost always hung uploads
	// or bad clocks that would swamp every percentile.
	MaxLatency float64
	// Methods restricts sampling to these methods. Empty means all.
	Methods []string
	// MinStart drops requests that started before this epoch. Zero disables it.
	MinStart float64
}

// Latency classes, by the depth of the request path.
const (
	ClassAll       = "all"
	ClassAccount   = "account"
	ClassContainer = "container"
	ClassObject    = "object"
	ClassOther     = "other"
)

var latencyClasses = []string{ClassAll, ClassAccount, ClassContainer, ClassObject, ClassOther}

// Names of the rolling percentile series.
const (
	RollingP50 = "P50"
	RollingP99 = "P99"
)

// s3Prefix is where S3 API paths are rewritten to, so that they classify by
// depth the same way as native paths.
const s3Prefix = "/v1/FAKE_s3"

// ignoredPaths are requests that never touch the storage tier.
var ignoredPaths = map[string]bool{
	"/auth/v1.0": true,
	"/info":      true,
}

// PathClass classifies a request path into account, container or object.
func PathClass(path string) string {
	path, _, _ = strings.Cut(path, "?")
	if !strings.HasPrefix(path, "/v1/") {
		path = s3Prefix + path
	}
	switch strings.Count(path, "/") {
	case 0, 1:
		return ClassOther
	case 2:
		return ClassAccount
	case 3:
		return ClassContainer
	default:
		return ClassObject
	}
}

func (f LatencyFilter) accept(r *model.AccessRecord) bool {
	if r.RequestTime >= f.MaxLatency {
		return false
	}
	// The rolling window walks every second in flight.
	if r.EndEpoch-r.StartEpoch >= f.MaxLatency {
		return false
	}
	if f.MinStart > 0 && r.StartEpoch < f.MinStart {
		return false
	}
	if len(f.Methods) > 0 {
		found := false
		for _, m := range f.Methods {
			if strings.EqualFold(m, r.Method) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	path, _, _ := strings.Cut(r.Path, "?")
	return !ignoredPaths[path]
}

type latencySamples struct {
	byClass map[string][]float64
	window  *concurrency.Rolling
}

func newLatencySamples(lookback int) *latencySamples {
	return &latencySamples{
		byClass: make(map[string][]float64),
		window:  concurrency.NewRolling(lookback),
	}
}

func (l *latencySamples) observe(f LatencyFilter, r *model.AccessRecord) {
	if !f.accept(r) {
		return
	}
	l.byClass[ClassAll] = append(l.byClass[ClassAll], r.RequestTime)
	class := PathClass(r.Path)
	l.byClass[class] = append(l.byClass[class], r.RequestTime)
	l.window.Add(r.StartEpoch, r.EndEpoch, r.RequestTime)
}

func (l *latencySamples) merge(other *latencySamples) {
	for k, v := range other.byClass {
		l.byClass[k] = append(l.byClass[k], v...)
	}
	l.window.Merge(other.window)
}

// summary returns the "all" row first, then every non-empty class.
func (l *latencySamples) summary() []model.PercentileRow {
	rows := []model.PercentileRow{concurrency.Summarize(ClassAll, l.byClass[ClassAll])}
	for _, c := range latencyClasses[1:] {
		if len(l.byClass[c]) == 0 {
			continue
		}
		rows = append(rows, concurrency.Summarize(c, l.byClass[c]))
	}
	return rows
}

func (l *latencySamples) rolling() []model.LatencySeries {
	if l.window.Len() == 0 {
		return nil
	}
	set := l.window.SeriesSet([]float64{0.50, 0.99})
	return []model.LatencySeries{
		{Name: RollingP50, Points: set[0]},
		{Name: RollingP99, Points: set[1]},
	}
}
