package aggregate

import (
	"sort"

	"github.com/notmyname/logflow/internal/concurrency"
	"github.com/notmyname/logflow/internal/model"
)

type driveKey struct {
	host  string
	drive string
}

type driveUsage struct {
	ops     int64
	bytes   int64
	counter *concurrency.Counter
}

func (d *driveUsage) merge(other *driveUsage) {
	d.ops += other.ops
	d.bytes += other.bytes
	if other.counter != nil {
		d.counter.Merge(other.counter)
	}
}

func (a *Analysis) drive(k driveKey) *driveUsage {
	d, ok := a.drives[k]
	if !ok {
		d = &driveUsage{counter: concurrency.NewCounter(a.cfg.Resolution)}
		a.drives[k] = d
	}
	return d
}

func (a *Analysis) observeDrive(r *model.StorageRecord) {
	if r.DriveID == "" {
		return
	}
	d := a.drive(driveKey{host: r.Host, drive: r.DriveID})
	d.ops++
	d.bytes += r.SizeBytes
	if a.cfg.PerDrive {
		d.counter.Add(r.StartEpoch, r.EndEpoch)
	}
}

func (a *Analysis) sortedDriveKeys() []driveKey {
	keys := make([]driveKey, 0, len(a.drives))
	for k := range a.drives {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].host != keys[j].host {
			return keys[i].host < keys[j].host
		}
		return keys[i].drive < keys[j].drive
	})
	return keys
}

func (a *Analysis) driveStats() []model.DriveStat {
	keys := a.sortedDriveKeys()
	out := make([]model.DriveStat, len(keys))
	for i, k := range keys {
		d := a.drives[k]
		out[i] = model.DriveStat{Host: k.host, Drive: k.drive, Ops: d.ops, Bytes: d.bytes}
	}
	return out
}

// DriveSeriesName names the per-drive concurrency series.
func DriveSeriesName(host, drive string) string {
	return "drive " + host + " " + drive
}

func (a *Analysis) driveSeries() []model.Series {
	keys := a.sortedDriveKeys()
	out := make([]model.Series, len(keys))
	for i, k := range keys {
		out[i] = a.drives[k].counter.Series(DriveSeriesName(k.host, k.drive))
	}
	return out
}
