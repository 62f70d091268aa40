package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/notmyname/logflow/internal/aggregate"
	"github.com/notmyname/logflow/internal/model"
)

func formatEpoch(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteSeriesCSV writes one row per bucket: name, bucket_start, count.
func WriteSeriesCSV(w io.Writer, series ...[]model.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "bucket_start", "count"}); err != nil {
		return fmt.Errorf("report: write series header: %w", err)
	}
	for _, group := range series {
		for _, s := range group {
			for _, p := range s.Points {
				if err := cw.Write([]string{s.Name, formatEpoch(p.Start), strconv.FormatInt(p.Count, 10)}); err != nil {
					return fmt.Errorf("report: write series row: %w", err)
				}
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("report: flush series csv: %w", err)
	}
	return nil
}

// WriteDriveUsageCSV writes a host x drive matrix with one column per bucket
// that any drive was busy in. Idle buckets are 0.
func WriteDriveUsageCSV(w io.Writer, r *model.Report) error {
	type driveRow struct {
		host, drive string
		counts      map[float64]int64
	}

	var rows []driveRow
	seen := make(map[float64]struct{})
	for _, d := range r.Drives {
		s := r.SeriesByName(aggregate.DriveSeriesName(d.Host, d.Drive))
		if s == nil {
			continue
		}
		row := driveRow{host: d.Host, drive: d.Drive, counts: make(map[float64]int64, len(s.Points))}
		for _, p := range s.Points {
			row.counts[p.Start] = p.Count
			seen[p.Start] = struct{}{}
		}
		rows = append(rows, row)
	}

	buckets := make([]float64, 0, len(seen))
	for b := range seen {
		buckets = append(buckets, b)
	}
	sort.Float64s(buckets)

	cw := csv.NewWriter(w)
	header := make([]string, 0, len(buckets)+2)
	header = append(header, "host", "drive")
	for _, b := range buckets {
		header = append(header, formatEpoch(b))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("report: write drive header: %w", err)
	}

	for _, row := range rows {
		record := make([]string, 0, len(buckets)+2)
		record = append(record, row.host, row.drive)
		for _, b := range buckets {
			record = append(record, strconv.FormatInt(row.counts[b], 10))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("report: write drive row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("report: flush drive csv: %w", err)
	}
	return nil
}
