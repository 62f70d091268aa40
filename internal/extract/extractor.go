// Package extract turns classified Swift log lines into typed records.
// Each server type has its own grammar, selected through a Registry.
package extract

import (
	"fmt"
	"strings"

	"github.com/notmyname/logflow/internal/classify"
	"github.com/notmyname/logflow/internal/model"
	"github.com/notmyname/logflow/internal/timestamp"
)

// Extractor parses the remainder of one classified line.
type Extractor interface {
	Extract(line model.ClassifiedLine) (model.ParsedRecord, model.SkipReason)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(line model.ClassifiedLine) (model.ParsedRecord, model.SkipReason)

// Extract calls f(line).
func (f ExtractorFunc) Extract(line model.ClassifiedLine) (model.ParsedRecord, model.SkipReason) {
	return f(line)
}

// Grammar selects the storage-line extraction strategy.
type Grammar string

const (
	GrammarFields Grammar = "fields"
	GrammarRegex  Grammar = "regex"
)

// ParseGrammar validates a grammar name. The empty string selects GrammarFields.
func ParseGrammar(s string) (Grammar, error) {
	switch g := Grammar(strings.ToLower(strings.TrimSpace(s))); g {
	case "", GrammarFields:
		return GrammarFields, nil
	case GrammarRegex:
		return GrammarRegex, nil
	default:
		return "", fmt.Errorf("extract: unknown storage grammar %q", s)
	}
}

// Options configures NewRegistry.
type Options struct {
	Parser         *timestamp.Parser
	Canon          classify.Canon
	StorageGrammar Grammar
}

// Registry dispatches a classified line to the extractor for its server type.
type Registry struct {
	extractors map[model.ServerType]Extractor
}

// NewRegistry wires the standard grammars for every canonical server type.
func NewRegistry(opts Options) *Registry {
	if opts.Parser == nil {
		opts.Parser = timestamp.NewParser()
	}
	if opts.Canon == nil {
		opts.Canon = classify.DefaultCanon
	}

	access := NewAccessExtractor(opts.Parser)
	var storage Extractor
	if opts.StorageGrammar == GrammarRegex {
		storage = NewRegexStorageExtractor(opts.Parser, opts.Canon)
	} else {
		storage = NewFieldStorageExtractor(opts.Parser, opts.Canon)
	}

	r := &Registry{extractors: make(map[model.ServerType]Extractor)}
	r.Register(model.ServerProxy, access)
	r.Register(model.ServerSwift, access)
	r.Register(model.ServerObject, storage)
	r.Register(model.ServerContainer, storage)
	r.Register(model.ServerAccount, storage)
	r.Register(model.ServerContainerReconciler, storage)
	r.Register(model.ServerAuth, ExtractorFunc(extractAuth))
	return r
}

// Register sets the extractor for t, replacing any previous one.
func (r *Registry) Register(t model.ServerType, e Extractor) {
	r.extractors[t] = e
}

// Extract applies the grammar registered for line.ServerType.
func (r *Registry) Extract(line model.ClassifiedLine) (model.ParsedRecord, model.SkipReason) {
	e, ok := r.extractors[line.ServerType]
	if !ok {
		return model.ParsedRecord{}, model.SkipNoExtractor
	}
	rec, skip := e.Extract(line)
	if skip != model.SkipNone {
		return model.ParsedRecord{}, skip
	}
	stampHost(&rec, line.SourceHost)
	return rec, model.SkipNone
}

func stampHost(rec *model.ParsedRecord, host string) {
	switch rec.Kind {
	case model.KindAccess:
		rec.Access.Host = host
	case model.KindStorage:
		rec.Storage.Host = host
	case model.KindError:
		rec.Error.Host = host
	case model.KindAuth:
		rec.Auth.Host = host
	}
}
