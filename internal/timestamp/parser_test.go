package timestamp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStorageTime(t *testing.T) {
	p := NewParser()

	tests := []struct {
		name      string
		open      string
		close     string
		want      float64
		wantFound bool
	}{
		{"utc", "[03/Mar/2020:18:30:01", "+0000]", 1583260201, true},
		{"positive offset", "[03/Mar/2020:20:30:01", "+0200]", 1583260201, true},
		{"negative offset", "[03/Mar/2020:13:30:01", "-0500]", 1583260201, true},
		{"fraction", "[03/Mar/2020:18:30:01.250000", "+0000]", 1583260201.25, true},
		{"no zone", "[03/Mar/2020:18:30:01]", "", 1583260201, true},
		{"bad month", "[03/Foo/2020:18:30:01", "+0000]", 0, false},
		{"short", "[03/Mar/2020", "+0000]", 0, false},
		{"bad zone", "[03/Mar/2020:18:30:01", "+00]", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.ParseStorageTime(tt.open, tt.close)
			require.Equal(t, tt.wantFound, ok)
			if tt.wantFound {
				assert.InDelta(t, tt.want, got, 1e-6)
			}
		})
	}
}

func TestParseSyslog_AssumedYearAndZone(t *testing.T) {
	p := NewParser(WithYear(2020), WithLocation(time.UTC))

	got, ok := p.ParseSyslog("Mar  3 18:30:01 ")
	require.True(t, ok)
	assert.Equal(t, float64(1583260201), got)

	got, ok = p.ParseSyslog("Mar 13 18:30:01 node1")
	require.True(t, ok)
	assert.Equal(t, float64(1583260201+10*86400), got)
}

func TestParseSyslog_RFC3339(t *testing.T) {
	p := NewParser(WithYear(1999))

	got, ok := p.ParseSyslog("2020-03-03T18:30:01.500000+00:00 node1")
	require.True(t, ok)
	assert.InDelta(t, 1583260201.5, got, 1e-6)

	got, ok = p.ParseSyslog("2020-03-03T19:30:01+0100")
	require.True(t, ok)
	assert.Equal(t, float64(1583260201), got)
}

func TestParseSyslog_NoTimestamp(t *testing.T) {
	p := NewParser()

	_, ok := p.ParseSyslog("just a regular log message")
	assert.False(t, ok)
}

func TestSyslogPrefixLen(t *testing.T) {
	tests := []struct {
		line string
		want int
	}{
		{"Mar  3 18:30:01 node1 proxy-server: x", 15},
		{"Mar 13 18:30:01 node1 proxy-server: x", 15},
		{"2020-03-03T18:30:01.123456+00:00 node1 proxy-server: x", 32},
		{"2020-03-03T18:30:01Z node1", 20},
		{"node1 proxy-server: x", 0},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, SyslogPrefixLen(tt.line))
		})
	}
}

func TestParseEpoch(t *testing.T) {
	p := NewParser()

	v, ok := p.ParseEpoch("1583260201.123456")
	require.True(t, ok)
	assert.InDelta(t, 1583260201.123456, v, 1e-9)

	for _, bad := range []string{"", "-", "abc", "NaN", "Inf"} {
		_, ok := p.ParseEpoch(bad)
		assert.False(t, ok, "ParseEpoch(%q) should fail", bad)
	}
}

func TestStorageInterval_RoundTrip(t *testing.T) {
	durations := []float64{0, 0.0001, 0.0123, 1.5, 29.999}
	end := 1583260201.25
	for _, d := range durations {
		iv := StorageInterval(end, d)
		assert.Equal(t, end-d, iv.Start)
		assert.Equal(t, end, iv.End)
	}
}

func TestErrorEpoch(t *testing.T) {
	assert.Equal(t, float64(80), ErrorEpoch(100, 20))
}

func TestEpochConversion(t *testing.T) {
	ts := time.Date(2020, time.March, 3, 18, 30, 1, 250_000_000, time.UTC)
	e := Epoch(ts)
	assert.InDelta(t, 1583260201.25, e, 1e-9)
	assert.True(t, FromEpoch(e).Equal(ts))
}
