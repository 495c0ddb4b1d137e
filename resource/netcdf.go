package resource

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// NetCDF is the single-file Handler, backed by a NetCDF4/HDF5 file opened
// read-only. The time index and site metadata are loaded eagerly at open;
// dataset reads fetch row slabs on demand.
type NetCDF struct {
	path     string
	group    api.Group
	times    TimeIndex
	meta     []SiteMeta
	datasets []string
	props    map[string]DatasetProperties
	attrs    map[string]string
	closed   bool
}

// OpenNetCDF opens a NetCDF4/HDF5 resource file for reading.
//
// The file must carry a time_index variable (epoch seconds, or RFC 3339
// strings) and latitude/longitude variables defining the site space;
// elevation and timezone variables are picked up when present.
func OpenNetCDF(path string) (Handler, error) {
	group, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	r := &NetCDF{
		path:  path,
		group: group,
		props: make(map[string]DatasetProperties),
		attrs: attrsToStrings(group.Attributes()),
	}

	if err := r.loadTimeIndex(); err != nil {
		group.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := r.loadMeta(); err != nil {
		group.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := r.loadCatalog(); err != nil {
		group.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func (r *NetCDF) loadTimeIndex() error {
	vg, err := r.group.GetVarGetter("time_index")
	if err != nil {
		return fmt.Errorf("reading time_index: %w", err)
	}
	vals, err := vg.Values()
	if err != nil {
		return fmt.Errorf("reading time_index: %w", err)
	}

	switch v := vals.(type) {
	case []int64:
		r.times = make(TimeIndex, len(v))
		for i, s := range v {
			r.times[i] = time.Unix(s, 0).UTC()
		}
	case []int32:
		r.times = make(TimeIndex, len(v))
		for i, s := range v {
			r.times[i] = time.Unix(int64(s), 0).UTC()
		}
	case []string:
		r.times = make(TimeIndex, len(v))
		for i, s := range v {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return fmt.Errorf("parsing time_index[%d] %q: %w", i, s, err)
			}
			r.times[i] = t.UTC()
		}
	default:
		return fmt.Errorf("unsupported time_index type %T", vals)
	}
	return nil
}

func (r *NetCDF) loadMeta() error {
	lat, err := r.floatVar("latitude")
	if err != nil {
		return err
	}
	lon, err := r.floatVar("longitude")
	if err != nil {
		return err
	}
	if len(lat) != len(lon) {
		return fmt.Errorf("latitude has %d sites, longitude has %d", len(lat), len(lon))
	}

	elev, _ := r.floatVar("elevation")
	tz, _ := r.floatVar("timezone")

	r.meta = make([]SiteMeta, len(lat))
	for i := range lat {
		m := SiteMeta{Gid: i, Latitude: lat[i], Longitude: lon[i]}
		if i < len(elev) {
			m.Elevation = elev[i]
		}
		if i < len(tz) {
			m.Timezone = int(tz[i])
		}
		r.meta[i] = m
	}
	return nil
}

func (r *NetCDF) loadCatalog() error {
	names := r.group.ListVariables()
	sort.Strings(names)
	for _, name := range names {
		vg, err := r.group.GetVarGetter(name)
		if err != nil {
			return fmt.Errorf("inspecting %q: %w", name, err)
		}
		r.datasets = append(r.datasets, name)
		if pseudoDatasets[name] {
			continue
		}
		r.props[name] = r.datasetProps(name, vg)
	}
	return nil
}

func (r *NetCDF) datasetProps(name string, vg api.VarGetter) DatasetProperties {
	p := DatasetProperties{
		Shape:       [2]int{int(vg.Len()), len(r.meta)},
		Dtype:       vg.GoType(),
		ScaleFactor: 1,
		Attrs:       attrsToStrings(vg.Attributes()),
	}
	if s, ok := p.Attrs["scale_factor"]; ok {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f != 0 {
			p.ScaleFactor = f
		}
	}
	p.Units = p.Attrs["units"]
	// Chunk layout is not surfaced by the NetCDF API; honor an explicit
	// "chunks" attribute of the form "time,sites" when the producer wrote
	// one.
	if s, ok := p.Attrs["chunks"]; ok {
		parts := strings.SplitN(s, ",", 2)
		if len(parts) == 2 {
			tc, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
			sc, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err1 == nil && err2 == nil {
				p.Chunks = [2]int{tc, sc}
			}
		}
	}
	return p
}

func (r *NetCDF) floatVar(name string) ([]float64, error) {
	vg, err := r.group.GetVarGetter(name)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", name, err)
	}
	vals, err := vg.Values()
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", name, err)
	}
	out, err := toFloat1D(vals)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", name, err)
	}
	return out, nil
}

// Path returns the file path.
func (r *NetCDF) Path() string { return r.path }

// TimeIndex returns the ordered sequence of timestamps.
func (r *NetCDF) TimeIndex() TimeIndex { return r.times }

// Meta returns the site table; row order is the gid space.
func (r *NetCDF) Meta() []SiteMeta { return r.meta }

// Coordinates returns per-site (lat, lon) pairs in gid order.
func (r *NetCDF) Coordinates() [][2]float64 { return coordinatesOf(r.meta) }

// Datasets returns all variable names in the file.
func (r *NetCDF) Datasets() []string { return r.datasets }

// ResourceDatasets returns dataset names excluding pseudo-datasets.
func (r *NetCDF) ResourceDatasets() []string { return resourceNames(r.datasets) }

// GlobalAttrs returns the file-level attributes.
func (r *NetCDF) GlobalAttrs() map[string]string { return r.attrs }

// Properties returns shape, dtype, chunking, scale factor and units for one
// dataset.
func (r *NetCDF) Properties(dataset string) (DatasetProperties, error) {
	p, ok := r.props[dataset]
	if !ok {
		return DatasetProperties{}, fmt.Errorf("%w: %q in %s", ErrDatasetNotFound, dataset, r.path)
	}
	return p, nil
}

// Read returns the selected slice of a dataset as a (time, sites) matrix of
// unscaled values. The bounding time slab is fetched in one request and the
// requested rows and columns are selected in memory.
func (r *NetCDF) Read(dataset string, times, sites Selector) ([][]float64, error) {
	if r.closed {
		return nil, ErrClosed
	}
	key, err := ParseKey(dataset, times, sites)
	if err != nil {
		return nil, err
	}
	p, ok := r.props[dataset]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", ErrDatasetNotFound, dataset, r.path)
	}

	rows, err := key.Times.Indices(p.Shape[0])
	if err != nil {
		return nil, fmt.Errorf("time selector for %q: %w", dataset, err)
	}
	cols, err := key.Sites.Indices(len(r.meta))
	if err != nil {
		return nil, fmt.Errorf("site selector for %q: %w", dataset, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	lo, hi := rows[0], rows[0]
	for _, i := range rows {
		if i < lo {
			lo = i
		}
		if i > hi {
			hi = i
		}
	}

	vg, err := r.group.GetVarGetter(dataset)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", dataset, err)
	}
	slab, err := vg.GetSlice(int64(lo), int64(hi+1))
	if err != nil {
		return nil, fmt.Errorf("reading %q rows [%d, %d): %w", dataset, lo, hi+1, err)
	}
	grid, err := toFloat2D(slab)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", dataset, err)
	}

	out := make([][]float64, len(rows))
	for i, ri := range rows {
		src := grid[ri-lo]
		row := make([]float64, len(cols))
		for j, c := range cols {
			if c >= len(src) {
				return nil, fmt.Errorf("%w: site %d out of range for %q", ErrSelector, c, dataset)
			}
			row[j] = src[c] / p.ScaleFactor
		}
		out[i] = row
	}
	return out, nil
}

// Close closes the underlying file.
func (r *NetCDF) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.group.Close()
	return nil
}

func attrsToStrings(am api.AttributeMap) map[string]string {
	out := map[string]string{}
	if am == nil {
		return out
	}
	for _, key := range am.Keys() {
		if v, ok := am.Get(key); ok {
			out[key] = fmt.Sprint(v)
		}
	}
	return out
}

func toFloat1D(vals interface{}) ([]float64, error) {
	switch v := vals.(type) {
	case []float64:
		return v, nil
	case []float32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []int64:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []int32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []int16:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []int8:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []uint64:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []uint32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []uint16:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []uint8:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value type %T", vals)
}

func toFloat2D(slab interface{}) ([][]float64, error) {
	switch v := slab.(type) {
	case [][]float64:
		return v, nil
	case [][]float32:
		return convert2D(v), nil
	case [][]int64:
		return convert2D(v), nil
	case [][]int32:
		return convert2D(v), nil
	case [][]int16:
		return convert2D(v), nil
	case [][]int8:
		return convert2D(v), nil
	case [][]uint64:
		return convert2D(v), nil
	case [][]uint32:
		return convert2D(v), nil
	case [][]uint16:
		return convert2D(v), nil
	case [][]uint8:
		return convert2D(v), nil
	}
	return nil, fmt.Errorf("unsupported slab type %T", slab)
}

type numeric interface {
	~float32 | ~int64 | ~int32 | ~int16 | ~int8 |
		~uint64 | ~uint32 | ~uint16 | ~uint8
}

func convert2D[T numeric](v [][]T) [][]float64 {
	out := make([][]float64, len(v))
	for i, row := range v {
		r := make([]float64, len(row))
		for j, x := range row {
			r[j] = float64(x)
		}
		out[i] = r
	}
	return out
}
