package resource

import (
	"fmt"
	"reflect"

	"gonum.org/v1/gonum/interp"

	"github.com/DimaK415/rex/internal/spatial"
)

// MultiResolution composes two resource handlers of the same concrete type
// at different spatiotemporal resolutions: all gids and timestamps are in
// the high-resolution handler's space, and low-resolution-only datasets are
// mapped onto it through a nearest-neighbor site map and linear temporal
// interpolation.
type MultiResolution struct {
	hr, lr Handler
	nnMap  []int
	nnDist []float64
	closed bool
}

// MultiResOption configures a MultiResolution composite at construction.
type MultiResOption func(*MultiResolution)

// WithNNMap supplies a precomputed nearest-neighbor map and distances,
// skipping the k-d tree build. Useful for repeated instantiation against
// the same site spaces.
func WithNNMap(nnDist []float64, nnMap []int) MultiResOption {
	return func(mr *MultiResolution) {
		mr.nnDist = nnDist
		mr.nnMap = nnMap
	}
}

// NewMultiResolution composes a high-resolution and a low-resolution
// handler. Both must be the same concrete handler type; composing
// heterogeneous variants is unsupported. Unless supplied via WithNNMap, the
// nearest-neighbor map is built here, once, and is immutable afterwards.
func NewMultiResolution(hr, lr Handler, opts ...MultiResOption) (*MultiResolution, error) {
	if reflect.TypeOf(hr) != reflect.TypeOf(lr) {
		return nil, fmt.Errorf("%w: %T and %T", ErrHandlerMismatch, hr, lr)
	}

	mr := &MultiResolution{hr: hr, lr: lr}
	for _, opt := range opts {
		opt(mr)
	}
	if mr.nnMap == nil {
		mr.nnDist, mr.nnMap = spatial.NearestNeighbors(lr.Coordinates(), hr.Coordinates())
	}
	if len(mr.nnMap) != len(hr.Meta()) {
		return nil, fmt.Errorf("nearest-neighbor map covers %d sites, high-res meta has %d",
			len(mr.nnMap), len(hr.Meta()))
	}
	return mr, nil
}

// NNMap returns the high-res-to-low-res nearest neighbor mapping: NNMap()[i]
// is the low-res gid nearest to high-res gid i.
func (mr *MultiResolution) NNMap() []int { return mr.nnMap }

// NNDist returns the Euclidean distance from each high-res site to its
// mapped low-res site.
func (mr *MultiResolution) NNDist() []float64 { return mr.nnDist }

// Path returns the high-resolution handler's path.
func (mr *MultiResolution) Path() string { return mr.hr.Path() }

// TimeIndex returns the high-resolution time index, the canonical time space.
func (mr *MultiResolution) TimeIndex() TimeIndex { return mr.hr.TimeIndex() }

// Meta returns the high-resolution site table, the canonical gid space.
func (mr *MultiResolution) Meta() []SiteMeta { return mr.hr.Meta() }

// Coordinates returns the high-resolution (lat, lon) pairs.
func (mr *MultiResolution) Coordinates() [][2]float64 { return mr.hr.Coordinates() }

// Datasets returns the deduplicated union of both handlers' catalogs,
// high-resolution names first.
func (mr *MultiResolution) Datasets() []string {
	seen := map[string]bool{}
	var out []string
	for _, name := range mr.hr.Datasets() {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, name := range mr.lr.Datasets() {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// ResourceDatasets returns the union catalog without pseudo-datasets.
func (mr *MultiResolution) ResourceDatasets() []string {
	return resourceNames(mr.Datasets())
}

// GlobalAttrs merges both handlers' file attributes; the high-resolution
// value wins on key collision.
func (mr *MultiResolution) GlobalAttrs() map[string]string {
	out := map[string]string{}
	for k, v := range mr.lr.GlobalAttrs() {
		out[k] = v
	}
	for k, v := range mr.hr.GlobalAttrs() {
		out[k] = v
	}
	return out
}

// Properties resolves from the high-resolution handler first, then falls
// back to the low-resolution handler for its exclusive datasets.
func (mr *MultiResolution) Properties(dataset string) (DatasetProperties, error) {
	if p, err := mr.hr.Properties(dataset); err == nil {
		return p, nil
	}
	if p, err := mr.lr.Properties(dataset); err == nil {
		return p, nil
	}
	return DatasetProperties{}, fmt.Errorf("%w: %q on neither %s nor %s",
		ErrDatasetNotFound, dataset, mr.hr.Path(), mr.lr.Path())
}

// hasDataset reports whether name is in h's resource catalog.
func hasDataset(h Handler, name string) bool {
	for _, d := range h.ResourceDatasets() {
		if d == name {
			return true
		}
	}
	return false
}

// Read serves a dataset slice in the high-resolution site/time space.
// Datasets in the high-resolution catalog pass through; low-resolution-only
// datasets have their site axis mapped through the nearest-neighbor map,
// are read over the full low-resolution time axis, interpolated onto the
// high-resolution index, and then cut to the requested time selection.
//
// SAM pseudo-dataset names are not readable as arrays; use SAM instead.
func (mr *MultiResolution) Read(dataset string, times, sites Selector) ([][]float64, error) {
	if mr.closed {
		return nil, ErrClosed
	}
	key, err := ParseKey(dataset, times, sites)
	if err != nil {
		return nil, err
	}
	if IsSAMDataset(dataset) {
		return nil, fmt.Errorf("%w: %q is a profile bundle, use SAM", ErrSAMProfile, dataset)
	}

	if hasDataset(mr.hr, dataset) {
		return mr.hr.Read(dataset, key.Times, key.Sites)
	}
	if !hasDataset(mr.lr, dataset) {
		return nil, fmt.Errorf("%w: %q on neither %s nor %s",
			ErrDatasetNotFound, dataset, mr.hr.Path(), mr.lr.Path())
	}

	lrSites, err := mr.mapSites(key.Sites)
	if err != nil {
		return nil, fmt.Errorf("mapping site selector for %q: %w", dataset, err)
	}
	lrData, err := mr.lr.Read(dataset, All(), Pick(lrSites...))
	if err != nil {
		return nil, fmt.Errorf("reading %q from %s: %w", dataset, mr.lr.Path(), err)
	}

	full := interpolateTimes(mr.lr.TimeIndex(), mr.hr.TimeIndex(), lrData)

	rows, err := key.Times.Indices(len(mr.hr.TimeIndex()))
	if err != nil {
		return nil, fmt.Errorf("time selector for %q: %w", dataset, err)
	}
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = full[r]
	}
	return out, nil
}

// mapSites translates a high-res site selector into the corresponding
// low-res gids via the nearest-neighbor map.
func (mr *MultiResolution) mapSites(sites Selector) ([]int, error) {
	idx, err := sites.Indices(len(mr.nnMap))
	if err != nil {
		return nil, err
	}
	out := make([]int, len(idx))
	for i, hrGid := range idx {
		out[i] = mr.nnMap[hrGid]
	}
	return out, nil
}

// SAM extracts the SAM input bundle for a single high-resolution site. A
// selector resolving to more than one site is a user error: multi-site SAM
// profile bundles are unsupported through this composite.
func (mr *MultiResolution) SAM(sites Selector) (*SAMProfile, error) {
	return LoadSAMProfile(mr.hr, sites)
}

// PreloadSAM loads the SAM bundles for a list of high-resolution sites. The
// corresponding low-resolution sites (mapped through the nearest-neighbor
// map) are loaded as well, but only the high-resolution bundles are
// returned.
func (mr *MultiResolution) PreloadSAM(gids []int) ([]*SAMProfile, error) {
	out := make([]*SAMProfile, len(gids))
	for i, gid := range gids {
		prof, err := LoadSAMProfile(mr.hr, At(gid))
		if err != nil {
			return nil, err
		}
		if _, err := LoadSAMProfile(mr.lr, At(mr.nnMap[gid])); err != nil {
			return nil, fmt.Errorf("preloading low-res site %d: %w", mr.nnMap[gid], err)
		}
		out[i] = prof
	}
	return out, nil
}

// Close closes both handlers.
func (mr *MultiResolution) Close() error {
	if mr.closed {
		return nil
	}
	mr.closed = true
	err := mr.hr.Close()
	if lerr := mr.lr.Close(); err == nil {
		err = lerr
	}
	return err
}

// interpolateTimes resamples data from the source time axis onto the target
// axis, column by column, with linear interpolation between bracketing
// source timestamps. Target timestamps outside the source coverage take the
// nearest edge value, so no row is ever left missing.
func interpolateTimes(src, dst TimeIndex, data [][]float64) [][]float64 {
	nCols := 0
	if len(data) > 0 {
		nCols = len(data[0])
	}
	out := make([][]float64, len(dst))
	for i := range out {
		out[i] = make([]float64, nCols)
	}
	if len(src) == 0 || nCols == 0 {
		return out
	}

	xs := make([]float64, len(src))
	for i, t := range src {
		xs[i] = float64(t.UnixNano())
	}
	lo, hi := xs[0], xs[len(xs)-1]

	ys := make([]float64, len(src))
	for c := 0; c < nCols; c++ {
		for r := range src {
			ys[r] = data[r][c]
		}
		var pl interp.PiecewiseLinear
		if err := pl.Fit(xs, ys); err != nil {
			// xs come from an ordered time index; a fit failure means a
			// duplicate timestamp, fall back to the nearest sample.
			for i, t := range dst {
				out[i][c] = ys[nearestIdx(xs, float64(t.UnixNano()))]
			}
			continue
		}
		for i, t := range dst {
			x := float64(t.UnixNano())
			// Clamping gives forward/backward fill outside coverage.
			if x < lo {
				x = lo
			} else if x > hi {
				x = hi
			}
			out[i][c] = pl.Predict(x)
		}
	}
	return out
}

func nearestIdx(xs []float64, x float64) int {
	best, bestD := 0, -1.0
	for i, v := range xs {
		d := v - x
		if d < 0 {
			d = -d
		}
		if bestD < 0 || d < bestD {
			best, bestD = i, d
		}
	}
	return best
}
