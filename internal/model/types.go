package model

// ServerType is the canonical name of the Swift daemon that emitted a line.
type ServerType string

// Canonical server types. The set is closed: anything else classifies as ServerUnknown.
const (
	ServerProxy               ServerType = "proxy-server"
	ServerObject              ServerType = "object-server"
	ServerContainer           ServerType = "container-server"
	ServerAccount             ServerType = "account-server"
	ServerContainerReconciler ServerType = "container-reconciler"
	ServerSwift               ServerType = "swift"
	ServerAuth                ServerType = "auth"
	ServerUnknown             ServerType = "unknown"
)

// KnownServerTypes lists every canonical type except ServerUnknown.
var KnownServerTypes = []ServerType{
	ServerProxy,
	ServerObject,
	ServerContainer,
	ServerAccount,
	ServerContainerReconciler,
	ServerSwift,
	ServerAuth,
}

// IsKnown reports whether t is a member of the canonical set.
func (t ServerType) IsKnown() bool {
	for _, k := range KnownServerTypes {
		if t == k {
			return true
		}
	}
	return false
}

// ClassifiedLine is one log line with its syslog framing removed.
type ClassifiedLine struct {
	SourceHost string
	ServerType ServerType
	ServerTag  string // raw tag before canonicalization, e.g. "obj-server"
	PID        int    // from a "tag[pid]" suffix, 0 when absent
	Prefix     string // stripped syslog prefix (timestamp and maybe host)
	Remainder  string
}

// AccessRecord is one proxy access-log line.
type AccessRecord struct {
	Host          string
	ClientIP      string
	RemoteAddr    string
	Method        string
	Path          string
	Protocol      string
	Status        int
	BytesRecvd    int64
	BytesSent     int64
	TransactionID string
	RequestTime   float64
	Source        string // "-" marks an external client request
	StartEpoch    float64
	EndEpoch      float64
	PolicyIndex   int
	ServerPID     int
}

// External reports whether the request came from a client rather than another Swift service.
func (r *AccessRecord) External() bool {
	return r.Source == "-"
}

// StorageRecord is one object/container/account server access-log line.
type StorageRecord struct {
	Host            string
	ServerType      ServerType
	RemoteAddr      string
	Method          string
	Path            string
	Status          int
	SizeBytes       int64
	TransactionID   string
	Source          string // user-agent daemon name, e.g. "proxy-server"
	SourcePID       string
	TransactionTime float64
	ServerPID       int
	PolicyIndex     int
	DriveID         string
	StartEpoch      float64
	EndEpoch        float64
}

// ErrorRecord is a proxy "ERROR with <peer> server ... Timeout (Ns)" line.
type ErrorRecord struct {
	Host        string
	Peer        string // "Container", "Object" or "Account"
	Timeout     float64
	LoggedEpoch float64
	Epoch       float64 // LoggedEpoch - Timeout
}

// AuthRecord is a token validation line.
type AuthRecord struct {
	Host          string
	User          string
	TransactionID string
}

// RecordKind tags the variant held by a ParsedRecord.
type RecordKind int

const (
	KindUnknown RecordKind = iota
	KindAccess
	KindStorage
	KindError
	KindAuth
)

func (k RecordKind) String() string {
	switch k {
	case KindAccess:
		return "access"
	case KindStorage:
		return "storage"
	case KindError:
		return "error"
	case KindAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// ParsedRecord is the tagged result of extraction. Exactly one pointer matching Kind is set.
type ParsedRecord struct {
	Kind    RecordKind
	Access  *AccessRecord
	Storage *StorageRecord
	Error   *ErrorRecord
	Auth    *AuthRecord
}

// Interval is the in-flight span of one request, in epoch seconds.
type Interval struct {
	Start float64
	End   float64
}

// Point is one bucket of a concurrency series.
type Point struct {
	Start float64 `json:"start" yaml:"start"`
	Count int64   `json:"count" yaml:"count"`
}

// Series is a named, sorted run of points.
type Series struct {
	Name       string  `json:"name" yaml:"name"`
	Resolution float64 `json:"resolution" yaml:"resolution"`
	Points     []Point `json:"points" yaml:"points"`
}

// LatencyPoint is one rolling percentile value.
type LatencyPoint struct {
	Second int64   `json:"second" yaml:"second"`
	Value  float64 `json:"value" yaml:"value"`
}

// LatencySeries is a rolling percentile series such as "P99".
type LatencySeries struct {
	Name   string         `json:"name" yaml:"name"`
	Points []LatencyPoint `json:"points" yaml:"points"`
}

// PercentileRow summarizes one sample set with nearest-rank percentiles.
type PercentileRow struct {
	Name  string  `json:"name" yaml:"name"`
	Count int     `json:"count" yaml:"count"`
	P50   float64 `json:"p50" yaml:"p50"`
	P90   float64 `json:"p90" yaml:"p90"`
	P95   float64 `json:"p95" yaml:"p95"`
	P99   float64 `json:"p99" yaml:"p99"`
	P999  float64 `json:"p999" yaml:"p999"`
	Max   float64 `json:"max" yaml:"max"`
}

// Edge is one finalized directed relationship of the call graph.
type Edge struct {
	Source    string  `json:"source" yaml:"source"`
	Dest      string  `json:"dest" yaml:"dest"`
	Method    string  `json:"method,omitempty" yaml:"method,omitempty"`
	Status    string  `json:"status,omitempty" yaml:"status,omitempty"`
	Label     string  `json:"label" yaml:"label"`
	Weight    int64   `json:"weight" yaml:"weight"`
	Thickness float64 `json:"thickness" yaml:"thickness"`
}

// DriveStat aggregates object-server traffic for one drive.
type DriveStat struct {
	Host  string `json:"host" yaml:"host"`
	Drive string `json:"drive" yaml:"drive"`
	Ops   int64  `json:"ops" yaml:"ops"`
	Bytes int64  `json:"bytes" yaml:"bytes"`
}

// Report is the read-only result of one pass, consumed by writers and the API.
type Report struct {
	Resolution   float64          `json:"resolution" yaml:"resolution"`
	Lookback     int              `json:"lookback" yaml:"lookback"`
	Lines        int64            `json:"lines" yaml:"lines"`
	Records      map[string]int64 `json:"records" yaml:"records"`
	Skipped      map[string]int64 `json:"skipped" yaml:"skipped"`
	Degenerate   int64            `json:"degenerate" yaml:"degenerate"`
	Series       []Series         `json:"series" yaml:"series"`
	DriveSeries  []Series         `json:"drive_series,omitempty" yaml:"drive_series,omitempty"`
	Latency      []PercentileRow  `json:"latency" yaml:"latency"`
	Rolling      []LatencySeries  `json:"rolling,omitempty" yaml:"rolling,omitempty"`
	Drives       []DriveStat      `json:"drives" yaml:"drives"`
	Edges        []Edge           `json:"edges,omitempty" yaml:"edges,omitempty"`
	ErrorMarkers []float64        `json:"error_markers,omitempty" yaml:"error_markers,omitempty"`
}

// SeriesByName returns the named series, or nil.
func (r *Report) SeriesByName(name string) *Series {
	for i := range r.Series {
		if r.Series[i].Name == name {
			return &r.Series[i]
		}
	}
	for i := range r.DriveSeries {
		if r.DriveSeries[i].Name == name {
			return &r.DriveSeries[i]
		}
	}
	return nil
}
