// Package aggregate folds extracted records into the statistics of one run.
package aggregate

import (
	"sort"
	"strconv"

	"github.com/notmyname/logflow/internal/concurrency"
	"github.com/notmyname/logflow/internal/graph"
	"github.com/notmyname/logflow/internal/model"
)

// Config controls what an Analysis collects.
type Config struct {
	Resolution   float64
	Lookback     int
	PerDrive     bool
	Edges        bool
	Graph        graph.Options
	MaxThickness float64
	Latency      LatencyFilter
}

// DefaultConfig returns the configuration used when no flags are given.
func DefaultConfig() Config {
	return Config{
		Resolution:   model.DefaultResolution,
		Lookback:     model.DefaultLookback,
		MaxThickness: model.DefaultMaxThickness,
		Latency:      LatencyFilter{MaxLatency: model.DefaultMaxLatency},
	}
}

// Analysis owns every accumulator of one pass. It is not safe for
// concurrent use; parallel runs give each worker its own Analysis and
// Merge them at the end.
type Analysis struct {
	cfg Config

	client    *concurrency.Counter
	internal  *concurrency.Counter
	container *concurrency.Counter
	object    *concurrency.Counter
	account   *concurrency.Counter

	drives  map[driveKey]*driveUsage
	latency *latencySamples
	errors  map[float64]struct{}
	edges   *graph.Tracker

	lines   int64
	records map[model.RecordKind]int64
	skipped map[model.SkipReason]int64
}

// New creates an empty Analysis.
func New(cfg Config) *Analysis {
	if cfg.Resolution <= 0 {
		cfg.Resolution = model.DefaultResolution
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = model.DefaultLookback
	}
	if cfg.MaxThickness <= 0 {
		cfg.MaxThickness = model.DefaultMaxThickness
	}
	if cfg.Latency.MaxLatency <= 0 {
		cfg.Latency.MaxLatency = model.DefaultMaxLatency
	}

	return &Analysis{
		cfg:       cfg,
		client:    concurrency.NewCounter(cfg.Resolution),
		internal:  concurrency.NewCounter(cfg.Resolution),
		container: concurrency.NewCounter(cfg.Resolution),
		object:    concurrency.NewCounter(cfg.Resolution),
		account:   concurrency.NewCounter(cfg.Resolution),
		drives:    make(map[driveKey]*driveUsage),
		latency:   newLatencySamples(cfg.Lookback),
		errors:    make(map[float64]struct{}),
		edges:     graph.NewTracker(cfg.Graph),
		records:   make(map[model.RecordKind]int64),
		skipped:   make(map[model.SkipReason]int64),
	}
}

// Config returns the effective configuration.
func (a *Analysis) Config() Config { return a.cfg }

// Observe folds one record into the aggregates.
func (a *Analysis) Observe(rec model.ParsedRecord) {
	a.lines++
	a.records[rec.Kind]++

	switch rec.Kind {
	case model.KindAccess:
		a.observeAccess(rec.Access)
	case model.KindStorage:
		a.observeStorage(rec.Storage)
	case model.KindError:
		a.errors[rec.Error.Epoch] = struct{}{}
	case model.KindAuth:
		if a.cfg.Edges {
			a.edges.AddEdge(string(model.ServerProxy), string(model.ServerAuth), "", "")
			a.edges.AddEdge(string(model.ServerAuth), string(model.ServerProxy), "", "")
		}
	}
}

func (a *Analysis) observeAccess(r *model.AccessRecord) {
	if !r.External() {
		a.internal.Add(r.StartEpoch, r.EndEpoch)
		return
	}
	a.client.Add(r.StartEpoch, r.EndEpoch)
	a.latency.observe(a.cfg.Latency, r)
}

func (a *Analysis) observeStorage(r *model.StorageRecord) {
	switch r.ServerType {
	case model.ServerContainer:
		a.container.Add(r.StartEpoch, r.EndEpoch)
	case model.ServerObject:
		a.object.Add(r.StartEpoch, r.EndEpoch)
		a.observeDrive(r)
	case model.ServerAccount:
		a.account.Add(r.StartEpoch, r.EndEpoch)
	}

	if a.cfg.Edges {
		a.edges.AddEdge(node(r.Source, r.SourcePID), node(string(r.ServerType), strconv.Itoa(r.ServerPID)),
			r.Method, strconv.Itoa(r.Status))
	}
}

func node(name, pid string) string {
	if pid == "" || pid == "0" {
		return name
	}
	return name + " " + pid
}

// Skip counts a line that produced no record.
func (a *Analysis) Skip(reason model.SkipReason) {
	a.lines++
	if reason.Counted() {
		a.skipped[reason]++
	}
}

// Lines returns how many lines were observed or skipped.
func (a *Analysis) Lines() int64 { return a.lines }

// Skipped returns the count for one reason.
func (a *Analysis) Skipped(reason model.SkipReason) int64 { return a.skipped[reason] }

// Records returns how many records of kind were observed.
func (a *Analysis) Records(kind model.RecordKind) int64 { return a.records[kind] }

// Merge folds other into a. Both must have been created with the same Config.
func (a *Analysis) Merge(other *Analysis) {
	if other == nil {
		return
	}
	a.client.Merge(other.client)
	a.internal.Merge(other.internal)
	a.container.Merge(other.container)
	a.object.Merge(other.object)
	a.account.Merge(other.account)

	for k, d := range other.drives {
		a.drive(k).merge(d)
	}
	a.latency.merge(other.latency)
	for e := range other.errors {
		a.errors[e] = struct{}{}
	}
	a.edges.Merge(other.edges)

	a.lines += other.lines
	for k, v := range other.records {
		a.records[k] += v
	}
	for k, v := range other.skipped {
		a.skipped[k] += v
	}
}

// Report renders the finished aggregates. Everything in the result is sorted
// so that repeated runs over the same input compare equal.
func (a *Analysis) Report() *model.Report {
	r := &model.Report{
		Resolution: a.cfg.Resolution,
		Lookback:   a.cfg.Lookback,
		Lines:      a.lines,
		Records:    make(map[string]int64, len(a.records)),
		Skipped:    make(map[string]int64, len(a.skipped)),
		Series: []model.Series{
			a.client.Series(model.SeriesClient),
			a.internal.Series(model.SeriesInternal),
			a.container.Series(model.SeriesContainer),
			a.object.Series(model.SeriesObject),
			a.account.Series(model.SeriesAccount),
		},
		Latency: a.latency.summary(),
		Rolling: a.latency.rolling(),
		Drives:  a.driveStats(),
	}

	for _, c := range []*concurrency.Counter{a.client, a.internal, a.container, a.object, a.account} {
		r.Degenerate += c.Degenerate()
	}
	for k, v := range a.records {
		r.Records[k.String()] = v
	}
	for k, v := range a.skipped {
		r.Skipped[string(k)] = v
	}
	if a.cfg.PerDrive {
		r.DriveSeries = a.driveSeries()
	}
	if a.cfg.Edges {
		r.Edges = a.edges.Finalize(a.cfg.MaxThickness)
	}

	r.ErrorMarkers = make([]float64, 0, len(a.errors))
	for e := range a.errors {
		r.ErrorMarkers = append(r.ErrorMarkers, e)
	}
	sort.Float64s(r.ErrorMarkers)
	return r
}
