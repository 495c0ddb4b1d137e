package resource

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// MultiTime composes N physical resource files that cover different,
// non-overlapping time spans into one logical resource. The composite time
// index is the concatenation of each file's index in file order; the site
// space (meta, coordinates) and all per-dataset properties are taken from
// the first file, which every constituent is assumed to share.
type MultiTime struct {
	pattern string
	files   []Handler
	offsets []int // composite row offset of each file
	times   TimeIndex
	closed  bool
}

// OpenMultiTime resolves a glob pattern to a sorted list of files and
// composes them. The open function chooses the reader variant.
func OpenMultiTime(pattern string, open OpenFunc) (*MultiTime, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files match %q", pattern)
	}
	sort.Strings(paths)
	mt, err := OpenMultiTimePaths(paths, open)
	if err != nil {
		return nil, err
	}
	mt.pattern = pattern
	return mt, nil
}

// OpenMultiTimePaths composes an explicit, caller-ordered list of files.
func OpenMultiTimePaths(paths []string, open OpenFunc) (*MultiTime, error) {
	files := make([]Handler, 0, len(paths))
	for _, p := range paths {
		h, err := open(p)
		if err != nil {
			for _, f := range files {
				f.Close()
			}
			return nil, fmt.Errorf("opening %s: %w", p, err)
		}
		files = append(files, h)
	}
	mt, err := NewMultiTime(files...)
	if err != nil {
		for _, f := range files {
			f.Close()
		}
		return nil, err
	}
	return mt, nil
}

// OpenMultiYear resolves a glob pattern and keeps only the files whose name
// carries one of the requested years, composing them in sorted order.
func OpenMultiYear(pattern string, years []int, open OpenFunc) (*MultiTime, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", pattern, err)
	}
	var kept []string
	for _, p := range paths {
		name := filepath.Base(p)
		for _, y := range years {
			if strings.Contains(name, strconv.Itoa(y)) {
				kept = append(kept, p)
				break
			}
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("no files match %q for years %v", pattern, years)
	}
	sort.Strings(kept)
	mt, err := OpenMultiTimePaths(kept, open)
	if err != nil {
		return nil, err
	}
	mt.pattern = pattern
	return mt, nil
}

// NewMultiTime composes already-open handlers in the given order. Ownership
// of the handlers transfers to the composite, which closes them.
//
// The constituent time ranges must not overlap: a composite index cannot
// unambiguously map a composite time offset back to (file, local offset)
// otherwise.
func NewMultiTime(files ...Handler) (*MultiTime, error) {
	if len(files) == 0 {
		return nil, errors.New("no resource handlers given")
	}

	for i := 0; i < len(files); i++ {
		for j := i + 1; j < len(files); j++ {
			if files[i].TimeIndex().Overlaps(files[j].TimeIndex()) {
				return nil, fmt.Errorf("%w: %s and %s",
					ErrTimeOverlap, files[i].Path(), files[j].Path())
			}
		}
	}

	mt := &MultiTime{files: files, pattern: files[0].Path()}
	for _, f := range files {
		mt.offsets = append(mt.offsets, len(mt.times))
		mt.times = append(mt.times, f.TimeIndex()...)
	}
	return mt, nil
}

// Path returns the glob pattern or first path the composite was opened from.
func (mt *MultiTime) Path() string { return mt.pattern }

// Paths returns the constituent file paths in file order.
func (mt *MultiTime) Paths() []string {
	out := make([]string, len(mt.files))
	for i, f := range mt.files {
		out[i] = f.Path()
	}
	return out
}

// TimeIndex returns the concatenated composite time index.
func (mt *MultiTime) TimeIndex() TimeIndex { return mt.times }

// Meta returns the site table of the reference (first) file.
func (mt *MultiTime) Meta() []SiteMeta { return mt.files[0].Meta() }

// Coordinates returns the reference file's per-site (lat, lon) pairs.
func (mt *MultiTime) Coordinates() [][2]float64 { return mt.files[0].Coordinates() }

// Datasets returns the reference file's dataset catalog.
func (mt *MultiTime) Datasets() []string { return mt.files[0].Datasets() }

// ResourceDatasets returns the reference file's catalog without
// pseudo-datasets.
func (mt *MultiTime) ResourceDatasets() []string { return mt.files[0].ResourceDatasets() }

// GlobalAttrs returns the reference file's attributes.
func (mt *MultiTime) GlobalAttrs() map[string]string { return mt.files[0].GlobalAttrs() }

// Properties returns the reference file's properties for one dataset, with
// the shape's time extent widened to the composite index. Constituents are
// assumed uniform in dtype, chunking and scaling; mismatches are a caller
// obligation, not actively checked.
func (mt *MultiTime) Properties(dataset string) (DatasetProperties, error) {
	p, err := mt.files[0].Properties(dataset)
	if err != nil {
		return DatasetProperties{}, err
	}
	p.Shape[0] = len(mt.times)
	return p, nil
}

// fileRun is a contiguous run of requested composite rows served by one
// file.
type fileRun struct {
	file  int
	local []int // row offsets within the file
}

// splitRows groups requested composite row offsets into per-file runs in
// file order, preserving the requested order within each file.
func (mt *MultiTime) splitRows(rows []int) []fileRun {
	runs := make([]fileRun, len(mt.files))
	for i := range runs {
		runs[i].file = i
	}
	for _, r := range rows {
		f := sort.Search(len(mt.offsets), func(i int) bool {
			return mt.offsets[i] > r
		}) - 1
		runs[f].local = append(runs[f].local, r-mt.offsets[f])
	}
	var out []fileRun
	for _, run := range runs {
		if len(run.local) > 0 {
			out = append(out, run)
		}
	}
	return out
}

// selectorFor rebuilds the tightest selector for a list of local rows so
// that contiguous runs stay span reads rather than list reads.
func selectorFor(local []int) Selector {
	if len(local) == 1 {
		return At(local[0])
	}
	contiguous := true
	for i := 1; i < len(local); i++ {
		if local[i] != local[i-1]+1 {
			contiguous = false
			break
		}
	}
	if contiguous {
		return Span(local[0], local[len(local)-1]+1)
	}
	return Pick(local...)
}

// Read routes a dataset read across the constituent files: the composite
// time offsets are translated into each intersected file's local offsets,
// one read is issued per file, and the results are concatenated along the
// time axis in file order. A request touching one file passes through.
func (mt *MultiTime) Read(dataset string, times, sites Selector) ([][]float64, error) {
	if mt.closed {
		return nil, ErrClosed
	}
	key, err := ParseKey(dataset, times, sites)
	if err != nil {
		return nil, err
	}
	rows, err := key.Times.Indices(len(mt.times))
	if err != nil {
		return nil, fmt.Errorf("time selector for %q: %w", dataset, err)
	}

	runs := mt.splitRows(rows)
	if len(runs) == 1 {
		run := runs[0]
		return mt.files[run.file].Read(dataset, selectorFor(run.local), key.Sites)
	}

	var out [][]float64
	for _, run := range runs {
		part, err := mt.files[run.file].Read(dataset, selectorFor(run.local), key.Sites)
		if err != nil {
			return nil, fmt.Errorf("reading %q from %s: %w",
				dataset, mt.files[run.file].Path(), err)
		}
		out = append(out, part...)
	}
	return out, nil
}

// Close closes every constituent handler.
func (mt *MultiTime) Close() error {
	if mt.closed {
		return nil
	}
	mt.closed = true
	var firstErr error
	for _, f := range mt.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
