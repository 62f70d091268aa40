package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/notmyname/logflow/internal/model"
)

// RunInfo describes the pass that produced a report.
type RunInfo struct {
	Source  string
	Workers int
	Elapsed time.Duration
	Stopped bool
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
)

// Peak returns the highest bucket count of s and where it occurred.
func Peak(s model.Series) (model.Point, bool) {
	if len(s.Points) == 0 {
		return model.Point{}, false
	}
	best := s.Points[0]
	for _, p := range s.Points[1:] {
		if p.Count > best.Count {
			best = p
		}
	}
	return best, true
}

func kv(key, value string) string {
	return fmt.Sprintf("  %s %s", keyStyle.Render(fmt.Sprintf("%-22s", key)), value)
}

// Summary renders a terminal overview of r. verbose adds skip counts by reason.
func Summary(r *model.Report, info RunInfo, width int, verbose bool) string {
	var lines []string
	lines = append(lines, "", titleStyle.Render("logflow"), dimStyle.Render(strings.Repeat("─", 40)))

	lines = append(lines, kv("Source", info.Source))
	lines = append(lines, kv("Lines", valueStyle.Render(fmt.Sprintf("%d", r.Lines))))
	if info.Elapsed > 0 {
		lines = append(lines, kv("Elapsed", fmt.Sprintf("%s (%d workers)", info.Elapsed.Round(time.Millisecond), info.Workers)))
	}
	if info.Stopped {
		lines = append(lines, kv("Stopped", warnStyle.Render("line limit reached")))
	}

	kinds := sortedKeys(r.Records)
	for _, k := range kinds {
		lines = append(lines, kv("Records "+k, fmt.Sprintf("%d", r.Records[k])))
	}

	var skipped int64
	for _, n := range r.Skipped {
		skipped += n
	}
	lines = append(lines, kv("Skipped", fmt.Sprintf("%d", skipped)))
	if verbose {
		for _, reason := range sortedKeys(r.Skipped) {
			lines = append(lines, kv("  "+reason, fmt.Sprintf("%d", r.Skipped[reason])))
		}
	}
	if r.Degenerate > 0 {
		lines = append(lines, kv("Degenerate intervals", warnStyle.Render(fmt.Sprintf("%d", r.Degenerate))))
	}

	lines = append(lines, "", titleStyle.Render("Peak concurrency"))
	for _, s := range r.Series {
		p, ok := Peak(s)
		if !ok {
			lines = append(lines, kv(s.Name, dimStyle.Render("no data")))
			continue
		}
		at := time.Unix(int64(p.Start), 0).UTC().Format(time.RFC3339)
		lines = append(lines, kv(s.Name, fmt.Sprintf("%s at %s", valueStyle.Render(fmt.Sprintf("%d", p.Count)), at)))
	}

	if len(r.Series) > 0 {
		if chart := Chart(r.Series[0], width, 8); chart != "" {
			lines = append(lines, "", titleStyle.Render(r.Series[0].Name), chart)
		}
	}

	if len(r.Latency) > 0 {
		lines = append(lines, "", titleStyle.Render("Client latency (s)"), LatencyTable(r.Latency).String())
	}
	if len(r.ErrorMarkers) > 0 {
		lines = append(lines, "", kv("Backend timeouts", warnStyle.Render(fmt.Sprintf("%d", len(r.ErrorMarkers)))))
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
