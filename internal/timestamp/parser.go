// Package timestamp converts the timestamp shapes found in Swift logs into
// Unix epoch seconds and reconstructs request start/end pairs.
package timestamp

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/notmyname/logflow/internal/model"
)

// monthNumbers maps syslog / Apache abbreviated month names to two-digit numbers.
var monthNumbers = map[string]string{
	"Jan": "01", "Feb": "02", "Mar": "03", "Apr": "04",
	"May": "05", "Jun": "06", "Jul": "07", "Aug": "08",
	"Sep": "09", "Oct": "10", "Nov": "11", "Dec": "12",
}

// isoLayout is the intermediate form storage datetimes are rebuilt into.
const isoLayout = "2006-01-02 15:04:05.000000-07:00"

var (
	// bsdSyslogRegex matches "Mar  3 18:30:01" (RFC3164) at line start.
	bsdSyslogRegex = regexp.MustCompile(`^([A-Z][a-z]{2}) +(\d{1,2}) (\d{2}):(\d{2}):(\d{2})`)
	// isoSyslogRegex matches an RFC3339 timestamp as written by rsyslog high-precision templates.
	isoSyslogRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})`)
)

// Parser reconciles log timestamps. Syslog timestamps carry no year and no
// zone, so both are supplied by the parser.
type Parser struct {
	year     int
	location *time.Location
}

// Option configures a Parser.
type Option func(*Parser)

// WithYear sets the year assumed for syslog timestamps.
func WithYear(year int) Option {
	return func(p *Parser) {
		if year > 0 {
			p.year = year
		}
	}
}

// WithLocation sets the zone assumed for syslog timestamps.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) {
		if loc != nil {
			p.location = loc
		}
	}
}

// NewParser creates a Parser that assumes the current year in local time unless overridden.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		year:     time.Now().Year(),
		location: time.Local,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Year returns the year assumed for syslog timestamps.
func (p *Parser) Year() int { return p.year }

// ParseEpoch parses a float epoch field such as the proxy start_time/end_time.
func (p *Parser) ParseEpoch(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseStorageTime parses the two whitespace-separated halves of a storage
// server datetime, "[03/Mar/2020:18:30:01" and "+0000]". The closing half may be
// empty when the log omits the zone, in which case UTC is assumed.
func (p *Parser) ParseStorageTime(openTok, closeTok string) (float64, bool) {
	s := strings.TrimPrefix(openTok, "[")
	zone := strings.TrimSuffix(closeTok, "]")
	if strings.HasSuffix(s, "]") {
		s = strings.TrimSuffix(s, "]")
		zone = ""
	}

	// 02/Jan/2006:15:04:05[.ffffff]
	if len(s) < 20 || s[2] != '/' || s[6] != '/' || s[11] != ':' {
		return 0, false
	}
	day, mon, year, clock := s[0:2], s[3:6], s[7:11], s[12:]
	month, ok := monthNumbers[mon]
	if !ok {
		return 0, false
	}

	hms, frac, _ := strings.Cut(clock, ".")
	if len(hms) != 8 {
		return 0, false
	}
	frac = normalizeFraction(frac)
	if frac == "" {
		return 0, false
	}

	offset, ok := normalizeOffset(zone)
	if !ok {
		return 0, false
	}

	iso := year + "-" + month + "-" + day + " " + hms + "." + frac + offset
	t, err := time.Parse(isoLayout, iso)
	if err != nil {
		return 0, false
	}
	return Epoch(t), true
}

// ParseSyslog parses the timestamp at the start of a syslog prefix.
func (p *Parser) ParseSyslog(prefix string) (float64, bool) {
	prefix = strings.TrimSpace(prefix)

	if m := bsdSyslogRegex.FindStringSubmatch(prefix); m != nil {
		month, ok := monthNumbers[m[1]]
		if !ok {
			return 0, false
		}
		mon, _ := strconv.Atoi(month)
		day, _ := strconv.Atoi(m[2])
		hour, _ := strconv.Atoi(m[3])
		minute, _ := strconv.Atoi(m[4])
		sec, _ := strconv.Atoi(m[5])
		t := time.Date(p.year, time.Month(mon), day, hour, minute, sec, 0, p.location)
		return Epoch(t), true
	}

	if loc := isoSyslogRegex.FindString(prefix); loc != "" {
		t, err := time.Parse(time.RFC3339Nano, normalizeISOZone(loc))
		if err != nil {
			return 0, false
		}
		return Epoch(t), true
	}

	return 0, false
}

// SyslogPrefixLen returns the length of the syslog timestamp token at the
// start of line, or 0 when the line does not start with one.
func SyslogPrefixLen(line string) int {
	if loc := bsdSyslogRegex.FindStringIndex(line); loc != nil {
		return loc[1]
	}
	if loc := isoSyslogRegex.FindStringIndex(line); loc != nil {
		return loc[1]
	}
	return 0
}

// StorageInterval derives the in-flight span of a storage request from its
// logged end time and transaction time.
func StorageInterval(end, duration float64) model.Interval {
	return model.Interval{Start: end - duration, End: end}
}

// ErrorEpoch is the inferred start of a request that timed out: the time the
// error was logged minus the timeout.
func ErrorEpoch(logged, timeout float64) float64 {
	return logged - timeout
}

// Epoch converts t to fractional Unix seconds.
func Epoch(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// FromEpoch converts fractional Unix seconds back to a time.
func FromEpoch(epoch float64) time.Time {
	sec, frac := math.Modf(epoch)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9)))
}

func normalizeFraction(frac string) string {
	if frac == "" {
		return "000000"
	}
	for _, c := range frac {
		if c < '0' || c > '9' {
			return ""
		}
	}
	if len(frac) >= 6 {
		return frac[:6]
	}
	return frac + strings.Repeat("0", 6-len(frac))
}

// normalizeOffset turns "+0000" or "-05:30" into "+00:00" / "-05:30".
func normalizeOffset(zone string) (string, bool) {
	zone = strings.TrimSpace(zone)
	switch {
	case zone == "" || zone == "Z" || zone == "UTC" || zone == "GMT":
		return "+00:00", true
	case len(zone) == 5 && (zone[0] == '+' || zone[0] == '-'):
		return zone[:3] + ":" + zone[3:], true
	case len(zone) == 6 && (zone[0] == '+' || zone[0] == '-') && zone[3] == ':':
		return zone, true
	}
	return "", false
}

func normalizeISOZone(s string) string {
	if strings.HasSuffix(s, "Z") {
		return s
	}
	// "+0000" has no colon; RFC3339 needs one.
	if n := len(s); n > 5 && (s[n-5] == '+' || s[n-5] == '-') {
		return s[:n-2] + ":" + s[n-2:]
	}
	return s
}
