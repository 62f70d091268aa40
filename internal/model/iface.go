package model

// RecordSink receives extracted records. The aggregator implements it.
type RecordSink interface {
	Observe(rec ParsedRecord)
	Skip(reason SkipReason)
}

// RejectSink receives lines that were dropped, with the reason.
type RejectSink interface {
	Reject(env IngestEnvelope, reason SkipReason) error
}

// ReportReader provides the finished report to read surfaces (HTTP, DuckDB export).
type ReportReader interface {
	Report() *Report
}
