package ingest

import (
	"github.com/notmyname/logflow/internal/classify"
	"github.com/notmyname/logflow/internal/extract"
	"github.com/notmyname/logflow/internal/model"
)

// Processor handles log line classification, extraction, and routing to the sink.
// It is not safe for concurrent use.
type Processor struct {
	classifier *classify.Classifier
	registry   *extract.Registry
	sink       model.RecordSink
	rejects    model.RejectSink
	sourceName string
	rejectErr  error
}

// NewProcessor creates a new log processor. A nil sink discards records.
func NewProcessor(
	classifier *classify.Classifier,
	registry *extract.Registry,
	sink model.RecordSink,
) *Processor {
	return &Processor{
		classifier: classifier,
		registry:   registry,
		sink:       sink,
	}
}

// ProcessResult holds the result of processing a log line.
// Skip is SkipNone exactly when Record was produced.
type ProcessResult struct {
	Line   model.ClassifiedLine
	Record model.ParsedRecord
	Skip   model.SkipReason
}

// SetRejectSink installs a hook that receives every counted skip.
func (p *Processor) SetRejectSink(r model.RejectSink) {
	p.rejects = r
}

// SetSourceName updates the source name used for untagged lines.
func (p *Processor) SetSourceName(name string) {
	p.sourceName = name
}

// ProcessLine processes a single untagged log line.
func (p *Processor) ProcessLine(line string) *ProcessResult {
	return p.ProcessEnvelope(model.IngestEnvelope{Source: p.sourceName, Line: line})
}

// ProcessEnvelope runs one line through classify, extract and the sink.
func (p *Processor) ProcessEnvelope(env model.IngestEnvelope) *ProcessResult {
	cl, skip := p.classifier.Classify(env.Line)
	if skip != model.SkipNone {
		return p.skip(env, cl, skip)
	}

	rec, skip := p.registry.Extract(cl)
	if skip != model.SkipNone {
		return p.skip(env, cl, skip)
	}

	if p.sink != nil {
		p.sink.Observe(rec)
	}
	return &ProcessResult{Line: cl, Record: rec}
}

func (p *Processor) skip(env model.IngestEnvelope, cl model.ClassifiedLine, reason model.SkipReason) *ProcessResult {
	if p.sink != nil {
		p.sink.Skip(reason)
	}
	if p.rejects != nil && reason.Counted() {
		if env.Source == "" {
			env.Source = p.sourceName
		}
		if err := p.rejects.Reject(env, reason); err != nil && p.rejectErr == nil {
			p.rejectErr = err
		}
	}
	return &ProcessResult{Line: cl, Skip: reason}
}

// Err returns the first error reported by the reject sink, if any.
func (p *Processor) Err() error {
	return p.rejectErr
}
