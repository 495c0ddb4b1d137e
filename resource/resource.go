package resource

import (
	"fmt"
	"strings"
)

// pseudoDatasets are names that describe the site/time space itself rather
// than measured resource data.
var pseudoDatasets = map[string]bool{
	"time_index":  true,
	"meta":        true,
	"coordinates": true,
	"latitude":    true,
	"longitude":   true,
	"elevation":   true,
	"timezone":    true,
}

// SiteMeta holds the static attributes of one site. Row order in a handler's
// Meta table is the site-id (gid) space used by every other component.
type SiteMeta struct {
	Gid       int
	Latitude  float64
	Longitude float64
	Elevation float64
	Timezone  int
}

// DatasetProperties describes the on-disk layout of one dataset.
type DatasetProperties struct {
	Shape       [2]int // (time, sites)
	Dtype       string
	Chunks      [2]int // zero when the backend does not expose chunking
	ScaleFactor float64
	Units       string
	Attrs       map[string]string
}

// Handler is the capability interface every resource reader and composer
// exposes: an ordered time index, a per-site metadata table whose row order
// defines the gid space, a dataset catalog, and sliced reads.
//
// Reads return data as (time, sites) matrices of float64, already unscaled.
type Handler interface {
	// Path returns the path (or glob pattern) the handler was opened from.
	Path() string
	// TimeIndex returns the ordered sequence of timestamps.
	TimeIndex() TimeIndex
	// Meta returns the site table; row order is the gid space.
	Meta() []SiteMeta
	// Coordinates returns per-site (lat, lon) pairs in gid order.
	Coordinates() [][2]float64
	// Datasets returns all dataset names, including pseudo-datasets.
	Datasets() []string
	// ResourceDatasets returns dataset names excluding meta/time/coordinate
	// pseudo-datasets.
	ResourceDatasets() []string
	// GlobalAttrs returns file-level attributes.
	GlobalAttrs() map[string]string
	// Properties returns shape, dtype, chunking, scale factor, units and
	// attributes for one dataset.
	Properties(dataset string) (DatasetProperties, error)
	// Read returns the selected slice of a dataset as a (time, sites)
	// matrix.
	Read(dataset string, times, sites Selector) ([][]float64, error)
	// Close releases the underlying file handle(s).
	Close() error
}

// OpenFunc opens a resource by path. It is the configuration-time choice of
// reader variant consumed by composers and the statistics engine; workers
// use it to reopen resources so that no handle is shared across goroutines.
type OpenFunc func(path string) (Handler, error)

// SAMProfile bundles every resource dataset for a single site over the full
// time axis, the input set consumed by SAM-style downstream models.
type SAMProfile struct {
	Gid       int
	TimeIndex TimeIndex
	Data      map[string][]float64
}

// IsSAMDataset reports whether a dataset name refers to the SAM pseudo
// dataset bundle rather than a stored array.
func IsSAMDataset(name string) bool {
	return strings.Contains(name, "SAM")
}

// LoadSAMProfile extracts the SAM input bundle for a single site. The site
// selector must resolve to exactly one index; anything else is a user error.
func LoadSAMProfile(h Handler, sites Selector) (*SAMProfile, error) {
	gid, ok := sites.IsIndex()
	if !ok {
		return nil, fmt.Errorf("%w: got selector %s", ErrSAMProfile, sites)
	}

	prof := &SAMProfile{
		Gid:       gid,
		TimeIndex: h.TimeIndex(),
		Data:      make(map[string][]float64),
	}
	for _, name := range h.ResourceDatasets() {
		arr, err := h.Read(name, All(), At(gid))
		if err != nil {
			return nil, fmt.Errorf("loading SAM profile dataset %q: %w", name, err)
		}
		col := make([]float64, len(arr))
		for i := range arr {
			col[i] = arr[i][0]
		}
		prof.Data[name] = col
	}
	return prof, nil
}

// resourceNames filters pseudo-datasets out of a dataset catalog.
func resourceNames(datasets []string) []string {
	var out []string
	for _, name := range datasets {
		if !pseudoDatasets[name] {
			out = append(out, name)
		}
	}
	return out
}

// coordinatesOf derives the (lat, lon) pairs from a meta table.
func coordinatesOf(meta []SiteMeta) [][2]float64 {
	coords := make([][2]float64, len(meta))
	for i, m := range meta {
		coords[i] = [2]float64{m.Latitude, m.Longitude}
	}
	return coords
}
