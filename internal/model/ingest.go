package model

// IngestEnvelope carries one raw log line with source metadata.
// It is the transport contract between log sources and processing.
type IngestEnvelope struct {
	Source string
	LineNo int64
	Line   string
}

// SkipReason explains why a line produced no record. The empty value means "not skipped".
type SkipReason string

const (
	SkipNone              SkipReason = ""
	SkipComment           SkipReason = "comment"
	SkipUnrecognized      SkipReason = "unrecognized"
	SkipUnknownServer     SkipReason = "unknown_server"
	SkipMalformed         SkipReason = "malformed"
	SkipBadNumber         SkipReason = "bad_number"
	SkipBadTimestamp      SkipReason = "bad_timestamp"
	SkipNoStorageMarker   SkipReason = "no_storage_marker"
	SkipConnectionTimeout SkipReason = "connection_timeout"
	SkipNoExtractor       SkipReason = "no_extractor"
)

// Counted reports whether the reason should appear in skip diagnostics.
// Comments and blank lines are expected and not worth reporting.
func (r SkipReason) Counted() bool {
	return r != SkipNone && r != SkipComment
}
