package graph

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_WeightsAndThickness(t *testing.T) {
	tr := NewTracker(Options{})
	for i := 0; i < 3; i++ {
		tr.AddEdge("A", "B", "GET", "200")
	}
	tr.AddEdge("A", "B", "GET", "404")

	edges := tr.Finalize(5)
	require.Len(t, edges, 2)

	assert.Equal(t, "GET (200) [3]", edges[0].Label)
	assert.Equal(t, int64(3), edges[0].Weight)
	assert.InDelta(t, 5.0, edges[0].Thickness, 1e-9)

	assert.Equal(t, "GET (404) [1]", edges[1].Label)
	assert.Equal(t, int64(1), edges[1].Weight)
	assert.InDelta(t, 1.667, edges[1].Thickness, 1e-3)
}

func TestTracker_DirectionIsIdentity(t *testing.T) {
	tr := NewTracker(Options{})
	tr.AddEdge("proxy-server", "auth", "", "")
	tr.AddEdge("auth", "proxy-server", "", "")

	edges := tr.Finalize(5)
	require.Len(t, edges, 2)
	assert.Equal(t, "auth", edges[0].Source)
	assert.Equal(t, "[1]", edges[0].Label)
	assert.Equal(t, "proxy-server", edges[1].Source)
}

func TestTracker_StatusModes(t *testing.T) {
	tests := []struct {
		mode      StatusMode
		wantEdges int
		wantLabel string
	}{
		{StatusFull, 3, "PUT (201) [1]"},
		{StatusClass, 2, "PUT (2xx) [2]"},
		{StatusNone, 1, "PUT [3]"},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			tr := NewTracker(Options{StatusMode: tt.mode})
			tr.AddEdge("a", "b", "PUT", "201")
			tr.AddEdge("a", "b", "PUT", "202")
			tr.AddEdge("a", "b", "PUT", "503")

			edges := tr.Finalize(5)
			assert.Len(t, edges, tt.wantEdges)
			assert.Equal(t, tt.wantLabel, edges[0].Label)
		})
	}
}

func TestTracker_MergePIDs(t *testing.T) {
	tr := NewTracker(Options{MergePIDs: true})
	tr.AddEdge("proxy-server 100", "object-server 7", "GET", "200")
	tr.AddEdge("proxy-server 101", "object-server 8", "GET", "200")
	tr.AddEdge("Swift Replicator", "object-server 9", "REPLICATE", "200")

	edges := tr.Finalize(5)
	require.Len(t, edges, 2)
	assert.Equal(t, "Swift Replicator", edges[0].Source)
	assert.Equal(t, "proxy-server", edges[1].Source)
	assert.Equal(t, "object-server", edges[1].Dest)
	assert.Equal(t, int64(2), edges[1].Weight)
}

func TestTracker_MergeShards(t *testing.T) {
	whole := NewTracker(Options{})
	a, b := NewTracker(Options{}), NewTracker(Options{})
	calls := [][4]string{
		{"x", "y", "GET", "200"},
		{"x", "y", "GET", "200"},
		{"y", "x", "HEAD", "204"},
		{"x", "z", "", ""},
	}
	for i, c := range calls {
		whole.AddEdge(c[0], c[1], c[2], c[3])
		if i%2 == 0 {
			a.AddEdge(c[0], c[1], c[2], c[3])
		} else {
			b.AddEdge(c[0], c[1], c[2], c[3])
		}
	}
	a.Merge(b)
	a.Merge(nil)

	assert.Equal(t, whole.Finalize(5), a.Finalize(5))
}

func TestTracker_Empty(t *testing.T) {
	assert.Empty(t, NewTracker(Options{}).Finalize(5))
}

func TestParseStatusMode(t *testing.T) {
	m, err := ParseStatusMode("")
	require.NoError(t, err)
	assert.Equal(t, StatusFull, m)

	m, err = ParseStatusMode("CLASS")
	require.NoError(t, err)
	assert.Equal(t, StatusClass, m)

	_, err = ParseStatusMode("partial")
	assert.Error(t, err)
}

func TestWriteDOT(t *testing.T) {
	tr := NewTracker(Options{})
	tr.AddEdge("proxy-server 1", "object-server 2", "GET", "200")
	tr.AddEdge(`we"ird`, "auth", "", "")

	var buf bytes.Buffer
	require.NoError(t, WriteDOT(&buf, tr.Finalize(5)))

	out := buf.String()
	assert.Contains(t, out, "digraph swift {")
	assert.Contains(t, out, `"proxy-server 1" -> "object-server 2" [label="GET (200) [1]", weight=1, penwidth=5.000];`)
	assert.Contains(t, out, `"we\"ird" -> "auth"`)
	assert.Contains(t, out, "\t\"auth\";\n")
}
