package resource

import (
	"fmt"
	"sort"
)

// InMemory is a Handler backed by in-memory arrays. It is the canonical
// reference implementation of the read semantics, and is used to hold
// derived data and to stand in for files in tests.
type InMemory struct {
	path    string
	times   TimeIndex
	meta    []SiteMeta
	data    map[string][][]float64 // dataset -> (time, sites)
	props   map[string]DatasetProperties
	attrs   map[string]string
	closed  bool
	ordered []string
}

// InMemoryOption configures an InMemory handler at construction.
type InMemoryOption func(*InMemory)

// WithChunks records the chunk shape reported for a dataset.
func WithChunks(dataset string, timeChunk, siteChunk int) InMemoryOption {
	return func(m *InMemory) {
		p := m.props[dataset]
		p.Chunks = [2]int{timeChunk, siteChunk}
		m.props[dataset] = p
	}
}

// WithUnits records the units reported for a dataset.
func WithUnits(dataset, units string) InMemoryOption {
	return func(m *InMemory) {
		p := m.props[dataset]
		p.Units = units
		m.props[dataset] = p
	}
}

// WithScaleFactor records the scale factor reported for a dataset. Data
// held by an InMemory handler is already unscaled; the factor is metadata
// only.
func WithScaleFactor(dataset string, scale float64) InMemoryOption {
	return func(m *InMemory) {
		p := m.props[dataset]
		p.ScaleFactor = scale
		m.props[dataset] = p
	}
}

// WithGlobalAttrs sets the file-level attributes.
func WithGlobalAttrs(attrs map[string]string) InMemoryOption {
	return func(m *InMemory) {
		m.attrs = attrs
	}
}

// NewInMemory builds an in-memory handler. Each dataset must be a
// (len(times), len(meta)) matrix.
func NewInMemory(path string, times TimeIndex, meta []SiteMeta,
	data map[string][][]float64, opts ...InMemoryOption) (*InMemory, error) {

	m := &InMemory{
		path:  path,
		times: times,
		meta:  meta,
		data:  make(map[string][][]float64, len(data)),
		props: make(map[string]DatasetProperties, len(data)),
		attrs: map[string]string{},
	}
	for name, arr := range data {
		if len(arr) != len(times) {
			return nil, fmt.Errorf("dataset %q has %d time rows, expected %d",
				name, len(arr), len(times))
		}
		for i, row := range arr {
			if len(row) != len(meta) {
				return nil, fmt.Errorf("dataset %q row %d has %d sites, expected %d",
					name, i, len(row), len(meta))
			}
		}
		m.data[name] = arr
		m.props[name] = DatasetProperties{
			Shape:       [2]int{len(times), len(meta)},
			Dtype:       "float64",
			ScaleFactor: 1,
			Attrs:       map[string]string{},
		}
		m.ordered = append(m.ordered, name)
	}
	sort.Strings(m.ordered)

	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Path returns the pseudo-path the handler was constructed with.
func (m *InMemory) Path() string { return m.path }

// TimeIndex returns the ordered sequence of timestamps.
func (m *InMemory) TimeIndex() TimeIndex { return m.times }

// Meta returns the site table; row order is the gid space.
func (m *InMemory) Meta() []SiteMeta { return m.meta }

// Coordinates returns per-site (lat, lon) pairs in gid order.
func (m *InMemory) Coordinates() [][2]float64 { return coordinatesOf(m.meta) }

// Datasets returns all dataset names plus the pseudo-datasets.
func (m *InMemory) Datasets() []string {
	out := []string{"time_index", "meta", "coordinates"}
	return append(out, m.ordered...)
}

// ResourceDatasets returns the stored dataset names.
func (m *InMemory) ResourceDatasets() []string {
	return resourceNames(m.Datasets())
}

// GlobalAttrs returns the file-level attributes.
func (m *InMemory) GlobalAttrs() map[string]string { return m.attrs }

// Properties returns the recorded properties of one dataset.
func (m *InMemory) Properties(dataset string) (DatasetProperties, error) {
	p, ok := m.props[dataset]
	if !ok {
		return DatasetProperties{}, fmt.Errorf("%w: %q in %s", ErrDatasetNotFound, dataset, m.path)
	}
	return p, nil
}

// Read returns the selected slice of a dataset as a (time, sites) matrix.
func (m *InMemory) Read(dataset string, times, sites Selector) ([][]float64, error) {
	if m.closed {
		return nil, ErrClosed
	}
	key, err := ParseKey(dataset, times, sites)
	if err != nil {
		return nil, err
	}
	arr, ok := m.data[dataset]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", ErrDatasetNotFound, dataset, m.path)
	}
	rows, err := key.Times.Indices(len(m.times))
	if err != nil {
		return nil, fmt.Errorf("time selector for %q: %w", dataset, err)
	}
	cols, err := key.Sites.Indices(len(m.meta))
	if err != nil {
		return nil, fmt.Errorf("site selector for %q: %w", dataset, err)
	}

	out := make([][]float64, len(rows))
	for i, r := range rows {
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = arr[r][c]
		}
		out[i] = row
	}
	return out, nil
}

// Close marks the handler closed; subsequent reads fail with ErrClosed.
func (m *InMemory) Close() error {
	m.closed = true
	return nil
}
