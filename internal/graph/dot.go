package graph

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/notmyname/logflow/internal/model"
)

// WriteDOT renders edges as a Graphviz digraph. Output is deterministic for
// a given edge slice.
func WriteDOT(w io.Writer, edges []model.Edge) error {
	bw := bufio.NewWriter(w)

	nodes := make(map[string]struct{})
	for _, e := range edges {
		nodes[e.Source] = struct{}{}
		nodes[e.Dest] = struct{}{}
	}
	names := make([]string, 0, len(nodes))
	for n := range nodes {
		names = append(names, n)
	}
	sort.Strings(names)

	fmt.Fprintln(bw, "digraph swift {")
	fmt.Fprintln(bw, "\tnode [shape=box];")
	for _, n := range names {
		fmt.Fprintf(bw, "\t%s;\n", quote(n))
	}
	for _, e := range edges {
		fmt.Fprintf(bw, "\t%s -> %s [label=%s, weight=%d, penwidth=%.3f];\n",
			quote(e.Source), quote(e.Dest), quote(e.Label), e.Weight, e.Thickness)
	}
	fmt.Fprintln(bw, "}")

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("graph: write dot: %w", err)
	}
	return nil
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func quote(s string) string {
	return `"` + dotEscaper.Replace(s) + `"`
}
