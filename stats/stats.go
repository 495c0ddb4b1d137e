package stats

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/DimaK415/rex/resource"
)

// TemporalStats extracts temporal statistics from a resource dataset. The
// engine snapshots the time index and site metadata at construction, then
// partitions the site axis and fans the per-slice computation out to a
// bounded worker pool; every worker reopens the resource through the
// configured OpenFunc so that no file handle is shared.
type TemporalStats struct {
	path       string
	open       resource.OpenFunc
	statistics Statistics
	times      resource.TimeIndex
	meta       []resource.SiteMeta
	log        *slog.Logger
}

// Option configures a TemporalStats engine.
type Option func(*TemporalStats)

// WithLogger sets the engine's logger. The default discards nothing but
// writes nowhere interesting; pass a configured slog.Logger for progress
// output.
func WithLogger(l *slog.Logger) Option {
	return func(ts *TemporalStats) {
		ts.log = l
	}
}

// New builds a statistics engine for the resource at path. The open
// function selects the reader variant (single file, multi-time composite,
// ...) and is also used by workers to reopen the resource.
func New(path string, open resource.OpenFunc, statistics Statistics, opts ...Option) (*TemporalStats, error) {
	if err := statistics.validate(); err != nil {
		return nil, err
	}

	h, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer h.Close()

	ts := &TemporalStats{
		path:       path,
		open:       open,
		statistics: statistics,
		times:      h.TimeIndex(),
		meta:       h.Meta(),
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(ts)
	}
	return ts, nil
}

// RunOptions control one statistics computation.
type RunOptions struct {
	// Sites restricts the site axis; the zero value selects all sites.
	Sites resource.Selector
	// Monthly buckets the time axis by calendar month.
	Monthly bool
	// Diurnal buckets the time axis by hour of day.
	Diurnal bool
	// Combinations computes all granularities (ungrouped plus every
	// enabled bucketing and their cross product) side by side.
	Combinations bool
	// MaxWorkers caps the worker pool; 0 means all available cores.
	MaxWorkers int
	// ChunksPerWorker sizes each site slice in dataset chunks; 0 means 5.
	ChunksPerWorker int
	// FullMeta joins the complete site metadata instead of lat/lon only.
	FullMeta bool
	// OutPath, when set, persists the result (directory, .csv or .json).
	OutPath string
}

func (o RunOptions) withDefaults() RunOptions {
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = runtime.NumCPU()
	}
	if o.ChunksPerWorker <= 0 {
		o.ChunksPerWorker = 5
	}
	return o
}

// Compute runs the configured statistics over one dataset and returns the
// gid-indexed result table joined with site coordinates or metadata.
func (ts *TemporalStats) Compute(ctx context.Context, dataset string, opts RunOptions) (*Table, error) {
	opts = opts.withDefaults()

	props, err := ts.datasetProps(dataset)
	if err != nil {
		return nil, err
	}
	parts, err := partitionSites(props, opts.Sites, opts.ChunksPerWorker)
	if err != nil {
		return nil, err
	}

	maxWorkers := opts.MaxWorkers
	if len(parts) == 1 {
		// Parallelism overhead isn't worth it for one unit of work.
		maxWorkers = 1
	}

	var results []*Table
	if maxWorkers > 1 {
		ts.log.Info("extracting statistics in parallel",
			"dataset", dataset, "statistics", ts.statistics.names(),
			"workers", maxWorkers, "slices", len(parts))
		results, err = ts.computeParallel(ctx, dataset, parts, opts, maxWorkers)
	} else {
		ts.log.Info("extracting statistics in serial",
			"dataset", dataset, "statistics", ts.statistics.names(),
			"slices", len(parts))
		results, err = ts.computeSerial(ctx, dataset, parts, opts)
	}
	if err != nil {
		return nil, err
	}

	table, err := concatTables(results)
	if err != nil {
		return nil, err
	}
	table.sortByGid()
	table = table.joinMeta(ts.meta, !opts.FullMeta)

	if opts.OutPath != "" {
		ts.log.Info("writing statistics", "out", opts.OutPath)
		if err := table.Save(ts.path, dataset, opts.OutPath); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func (ts *TemporalStats) datasetProps(dataset string) (resource.DatasetProperties, error) {
	h, err := ts.open(ts.path)
	if err != nil {
		return resource.DatasetProperties{}, fmt.Errorf("opening %s: %w", ts.path, err)
	}
	defer h.Close()

	props, err := h.Properties(dataset)
	if err != nil {
		return resource.DatasetProperties{}, err
	}
	if props.Shape[0] != len(ts.times) {
		return resource.DatasetProperties{}, fmt.Errorf(
			"cannot extract temporal stats for %q: not a timeseries dataset", dataset)
	}
	return props, nil
}

// computeSerial processes the slices one by one on a single handle per
// slice.
func (ts *TemporalStats) computeSerial(ctx context.Context, dataset string,
	parts [][]int, opts RunOptions) ([]*Table, error) {

	results := make([]*Table, 0, len(parts))
	for i, gids := range parts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		table, err := ts.computeOne(dataset, gids, opts)
		if err != nil {
			return nil, err
		}
		results = append(results, table)
		ts.log.Debug("completed site slice", "done", i+1, "total", len(parts))
	}
	return results, nil
}

// computeParallel fans the slices out to a bounded pool. Results are
// collected in completion order; the caller restores gid order afterwards.
func (ts *TemporalStats) computeParallel(ctx context.Context, dataset string,
	parts [][]int, opts RunOptions, maxWorkers int) ([]*Table, error) {

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	out := make(chan *Table, len(parts))
	for _, gids := range parts {
		gids := gids
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			table, err := ts.computeOne(dataset, gids, opts)
			if err != nil {
				return err
			}
			out <- table
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(out)

	results := make([]*Table, 0, len(parts))
	for table := range out {
		results = append(results, table)
		ts.log.Debug("completed site slice", "done", len(results), "total", len(parts))
	}
	return results, nil
}

// computeOne opens a fresh handle and computes one site slice.
func (ts *TemporalStats) computeOne(dataset string, gids []int, opts RunOptions) (*Table, error) {
	h, err := ts.open(ts.path)
	if err != nil {
		return nil, fmt.Errorf("reopening %s: %w", ts.path, err)
	}
	defer h.Close()

	return computeSlice(h, ts.times, dataset, ts.statistics, gids,
		opts.Monthly, opts.Diurnal, opts.Combinations)
}

// FullStats computes statistics over the entire temporal extent.
func (ts *TemporalStats) FullStats(ctx context.Context, dataset string, opts RunOptions) (*Table, error) {
	opts.Monthly, opts.Diurnal, opts.Combinations = false, false, false
	return ts.Compute(ctx, dataset, opts)
}

// MonthlyStats computes per-month statistics.
func (ts *TemporalStats) MonthlyStats(ctx context.Context, dataset string, opts RunOptions) (*Table, error) {
	opts.Monthly, opts.Diurnal, opts.Combinations = true, false, false
	return ts.Compute(ctx, dataset, opts)
}

// DiurnalStats computes per-hour-of-day statistics.
func (ts *TemporalStats) DiurnalStats(ctx context.Context, dataset string, opts RunOptions) (*Table, error) {
	opts.Monthly, opts.Diurnal, opts.Combinations = false, true, false
	return ts.Compute(ctx, dataset, opts)
}

// MonthlyDiurnalStats computes statistics per (month, hour) bucket.
func (ts *TemporalStats) MonthlyDiurnalStats(ctx context.Context, dataset string, opts RunOptions) (*Table, error) {
	opts.Monthly, opts.Diurnal, opts.Combinations = true, true, false
	return ts.Compute(ctx, dataset, opts)
}

// AllStats computes the full-extent, monthly, diurnal and monthly-diurnal
// statistics side by side.
func (ts *TemporalStats) AllStats(ctx context.Context, dataset string, opts RunOptions) (*Table, error) {
	opts.Monthly, opts.Diurnal, opts.Combinations = true, true, true
	return ts.Compute(ctx, dataset, opts)
}

// Run builds an engine and computes statistics in one call.
func Run(ctx context.Context, path string, open resource.OpenFunc, dataset string,
	statistics Statistics, opts RunOptions) (*Table, error) {

	ts, err := New(path, open, statistics)
	if err != nil {
		return nil, err
	}
	return ts.Compute(ctx, dataset, opts)
}

// Monthly is Run with monthly bucketing preset.
func Monthly(ctx context.Context, path string, open resource.OpenFunc, dataset string,
	statistics Statistics, opts RunOptions) (*Table, error) {
	opts.Monthly, opts.Diurnal, opts.Combinations = true, false, false
	return Run(ctx, path, open, dataset, statistics, opts)
}

// Diurnal is Run with hour-of-day bucketing preset.
func Diurnal(ctx context.Context, path string, open resource.OpenFunc, dataset string,
	statistics Statistics, opts RunOptions) (*Table, error) {
	opts.Monthly, opts.Diurnal, opts.Combinations = false, true, false
	return Run(ctx, path, open, dataset, statistics, opts)
}

// MonthlyDiurnal is Run with (month, hour) bucketing preset.
func MonthlyDiurnal(ctx context.Context, path string, open resource.OpenFunc, dataset string,
	statistics Statistics, opts RunOptions) (*Table, error) {
	opts.Monthly, opts.Diurnal, opts.Combinations = true, true, false
	return Run(ctx, path, open, dataset, statistics, opts)
}

// All is Run with every temporal granularity preset.
func All(ctx context.Context, path string, open resource.OpenFunc, dataset string,
	statistics Statistics, opts RunOptions) (*Table, error) {
	opts.Monthly, opts.Diurnal, opts.Combinations = true, true, true
	return Run(ctx, path, open, dataset, statistics, opts)
}
