package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notmyname/logflow/internal/model"
)

func TestPathClass(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/v1/AUTH_a", ClassAccount},
		{"/v1/AUTH_a/c", ClassContainer},
		{"/v1/AUTH_a/c/o", ClassObject},
		{"/v1/AUTH_a/c/dir/o", ClassObject},
		{"/v1/AUTH_a/c?format=json", ClassContainer},
		{"/bucket", ClassContainer},
		{"/bucket/key", ClassObject},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PathClass(tt.path), tt.path)
	}
}

func TestLatency_Filters(t *testing.T) {
	a := New(DefaultConfig())
	a.Observe(access("-", "GET", "/v1/a/c/o", 10, 11, 1))
	a.Observe(access("-", "GET", "/auth/v1.0", 10, 11, 1))
	a.Observe(access("-", "GET", "/info", 10, 11, 1))
	a.Observe(access("-", "GET", "/v1/a/c/o", 10, 700, 690))
	a.Observe(access("proxy-server", "GET", "/v1/a/c/o", 10, 11, 3))

	rows := a.Report().Latency
	require.NotEmpty(t, rows)
	assert.Equal(t, ClassAll, rows[0].Name)
	assert.Equal(t, 1, rows[0].Count)
}

func TestLatency_MethodAndStartFilters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Latency.Methods = []string{"get"}
	cfg.Latency.MinStart = 100
	a := New(cfg)

	a.Observe(access("-", "GET", "/v1/a/c/o", 150, 151, 1))
	a.Observe(access("-", "PUT", "/v1/a/c/o", 150, 151, 1))
	a.Observe(access("-", "GET", "/v1/a/c/o", 50, 51, 1))

	assert.Equal(t, 1, a.Report().Latency[0].Count)
}

func TestLatency_RejectsOutlierSpan(t *testing.T) {
	a := New(DefaultConfig())
	a.Observe(access("-", "GET", "/v1/a/c/o", 1583260200, 1583260201, 0.5))
	a.Observe(access("-", "GET", "/v1/a/c/o", 0, 1583260201, 0.5))

	r := a.Report()
	require.NotEmpty(t, r.Latency)
	assert.Equal(t, 1, r.Latency[0].Count)
	require.Len(t, r.Rolling, 2)
	require.Len(t, r.Rolling[0].Points, 1)
	assert.Equal(t, int64(1583260200), r.Rolling[0].Points[0].Second)
}

func TestLatency_RowsAndRolling(t *testing.T) {
	a := New(DefaultConfig())
	for i := 1; i <= 10; i++ {
		a.Observe(access("-", "GET", "/v1/a/c/o", 100, 100.5, float64(i)/10))
	}
	a.Observe(access("-", "HEAD", "/v1/a", 100, 100.1, 0.05))

	r := a.Report()
	require.Len(t, r.Latency, 3)
	assert.Equal(t, ClassAll, r.Latency[0].Name)
	assert.Equal(t, 11, r.Latency[0].Count)
	assert.Equal(t, ClassAccount, r.Latency[1].Name)
	assert.Equal(t, ClassObject, r.Latency[2].Name)
	assert.InDelta(t, 0.6, r.Latency[2].P50, 1e-9)
	assert.InDelta(t, 1.0, r.Latency[2].Max, 1e-9)

	require.Len(t, r.Rolling, 2)
	assert.Equal(t, RollingP50, r.Rolling[0].Name)
	assert.Equal(t, RollingP99, r.Rolling[1].Name)
	require.Len(t, r.Rolling[0].Points, 1)
	assert.Equal(t, int64(100), r.Rolling[0].Points[0].Second)
}

func TestLatency_EmptyReport(t *testing.T) {
	r := New(DefaultConfig()).Report()
	require.Len(t, r.Latency, 1)
	assert.Equal(t, 0, r.Latency[0].Count)
	assert.Nil(t, r.Rolling)
}

var _ model.RecordSink = (*Analysis)(nil)
