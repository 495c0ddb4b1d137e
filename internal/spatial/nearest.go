// Package spatial builds nearest-neighbor maps between two site coordinate
// spaces using a k-d tree.
package spatial

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// site is one (lat, lon) coordinate pair tagged with its row index.
type site struct {
	gid      int
	lat, lon float64
}

func (s site) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(site)
	switch d {
	case 0:
		return s.lat - q.lat
	default:
		return s.lon - q.lon
	}
}

func (s site) Dims() int { return 2 }

func (s site) Distance(c kdtree.Comparable) float64 {
	q := c.(site)
	dLat := s.lat - q.lat
	dLon := s.lon - q.lon
	return dLat*dLat + dLon*dLon
}

// sites implements kdtree.Interface.
type sites []site

func (s sites) Index(i int) kdtree.Comparable         { return s[i] }
func (s sites) Len() int                              { return len(s) }
func (s sites) Pivot(d kdtree.Dim) int                { return plane{Dim: d, sites: s}.Pivot() }
func (s sites) Slice(start, end int) kdtree.Interface { return s[start:end] }

// plane is a sorting helper over one dimension.
type plane struct {
	kdtree.Dim
	sites
}

func (p plane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.sites[i].lat < p.sites[j].lat
	default:
		return p.sites[i].lon < p.sites[j].lon
	}
}

func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.sites = p.sites[start:end]
	return p
}

func (p plane) Swap(i, j int) {
	p.sites[i], p.sites[j] = p.sites[j], p.sites[i]
}

// NearestNeighbors maps every query coordinate onto its single nearest
// reference coordinate: nnMap[i] is the reference row nearest to query row
// i, and nnDist[i] the Euclidean distance between them. The assignment is
// one-to-many; a reference site may serve multiple query sites.
func NearestNeighbors(ref, query [][2]float64) (nnDist []float64, nnMap []int) {
	pts := make(sites, len(ref))
	for i, c := range ref {
		pts[i] = site{gid: i, lat: c[0], lon: c[1]}
	}
	tree := kdtree.New(pts, false)

	nnDist = make([]float64, len(query))
	nnMap = make([]int, len(query))
	for i, c := range query {
		got, dist := tree.Nearest(site{lat: c[0], lon: c[1]})
		nnMap[i] = got.(site).gid
		nnDist[i] = math.Sqrt(dist)
	}
	return nnDist, nnMap
}
