package ingest

import (
	"github.com/notmyname/logflow/internal/classify"
	"github.com/notmyname/logflow/internal/extract"
	"github.com/notmyname/logflow/internal/model"
)

// EnvelopeProcessor consumes source-tagged lines and feeds a RecordSink.
type EnvelopeProcessor interface {
	ProcessEnvelope(model.IngestEnvelope) *ProcessResult
	Err() error
}

// Options selects the grammars a processor applies.
type Options struct {
	Classify classify.Options
	Extract  extract.Options
}

// NewEnvelopeProcessor builds the classifier and registry from opts and wires
// them to sink. The classifier and registry hold no per-run state, so one
// Options value may back any number of processors.
func NewEnvelopeProcessor(opts Options, sink model.RecordSink) *Processor {
	if opts.Extract.Canon == nil {
		opts.Extract.Canon = opts.Classify.Canon
	}
	return NewProcessor(classify.New(opts.Classify), extract.NewRegistry(opts.Extract), sink)
}
