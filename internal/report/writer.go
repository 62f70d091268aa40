// Package report renders a finished model.Report into output files and a
// terminal summary.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/notmyname/logflow/internal/graph"
	"github.com/notmyname/logflow/internal/model"
)

// Output file names inside the output directory.
const (
	SeriesFile     = "series.csv"
	DriveUsageFile = "drive_usage.csv"
	LatencyFile    = "latency.txt"
	EdgesFile      = "edges.json"
	FlowFile       = "flow.dot"
	reportBase     = "report"
)

// WriteAll writes every applicable artifact of r into dir and returns the
// paths written, in a stable order. Drive and edge files are only written
// when the report carries that data.
func WriteAll(dir string, r *model.Report, f Format) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("report: create output dir: %w", err)
	}

	type artifact struct {
		name  string
		write func(io.Writer) error
	}
	artifacts := []artifact{
		{SeriesFile, func(w io.Writer) error { return WriteSeriesCSV(w, r.Series) }},
		{LatencyFile, func(w io.Writer) error { return WriteLatencyTable(w, r.Latency) }},
	}
	if len(r.DriveSeries) > 0 {
		artifacts = append(artifacts, artifact{DriveUsageFile, func(w io.Writer) error { return WriteDriveUsageCSV(w, r) }})
	}
	if len(r.Edges) > 0 {
		artifacts = append(artifacts,
			artifact{EdgesFile, func(w io.Writer) error { return WriteEdgesJSON(w, r.Edges) }},
			artifact{FlowFile, func(w io.Writer) error { return graph.WriteDOT(w, r.Edges) }},
		)
	}
	artifacts = append(artifacts, artifact{reportBase + f.Ext(), func(w io.Writer) error { return WriteReport(w, r, f) }})

	paths := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		path := filepath.Join(dir, a.name)
		if err := writeFile(path, a.write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", filepath.Base(path), err)
	}

	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("report: write %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("report: close %s: %w", filepath.Base(path), err)
	}
	return nil
}
