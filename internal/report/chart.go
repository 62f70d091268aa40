package report

import (
	"math"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"

	"github.com/notmyname/logflow/internal/model"
)

const (
	minChartWidth  = 20
	minChartHeight = 4
)

var (
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Background(lipgloss.Color("39"))
	emptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Background(lipgloss.Color("240"))
)

// Downsample spreads a sparse series over dense buckets from its first to
// its last point and folds them into at most maxBars values, keeping the
// peak of each group.
func Downsample(s model.Series, maxBars int) []int64 {
	if len(s.Points) == 0 || maxBars <= 0 {
		return nil
	}
	res := s.Resolution
	if res <= 0 {
		res = model.DefaultResolution
	}

	first := s.Points[0].Start
	last := s.Points[len(s.Points)-1].Start
	n := int(math.Round((last-first)/res)) + 1

	group := (n + maxBars - 1) / maxBars
	bars := make([]int64, (n+group-1)/group)
	for _, p := range s.Points {
		idx := int(math.Round((p.Start-first)/res)) / group
		if p.Count > bars[idx] {
			bars[idx] = p.Count
		}
	}
	return bars
}

// Chart renders a series as a terminal bar chart. It returns "" for an
// empty series.
func Chart(s model.Series, width, height int) string {
	if width < minChartWidth {
		width = minChartWidth
	}
	if height < minChartHeight {
		height = minChartHeight
	}

	// One column per bar plus a one column gap.
	bars := Downsample(s, width/2)
	if len(bars) == 0 {
		return ""
	}

	bc := barchart.New(width, height,
		barchart.WithBarGap(1),
		barchart.WithBarWidth(1),
		barchart.WithNoAxis(),
	)
	for _, v := range bars {
		style := barStyle
		if v == 0 {
			style = emptyStyle
		}
		bc.Push(barchart.BarData{
			Label: "",
			Values: []barchart.BarValue{
				{Name: s.Name, Value: float64(v), Style: style},
			},
		})
	}

	bc.Draw()
	return bc.View()
}
