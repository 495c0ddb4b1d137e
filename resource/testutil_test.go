package resource

import (
	"fmt"
	"time"
)

// hourlyIndex builds n hourly timestamps starting at start.
func hourlyIndex(start time.Time, n int) TimeIndex {
	ti := make(TimeIndex, n)
	for i := range ti {
		ti[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return ti
}

// siteGrid builds n sites strung out along a line of latitude.
func siteGrid(n int) []SiteMeta {
	meta := make([]SiteMeta, n)
	for i := range meta {
		meta[i] = SiteMeta{
			Gid:       i,
			Latitude:  40 + 0.1*float64(i),
			Longitude: -105 - 0.1*float64(i),
			Elevation: 1600,
			Timezone:  -7,
		}
	}
	return meta
}

// rampData builds a (rows, cols) matrix with distinct, predictable values.
func rampData(rows, cols int, base float64) [][]float64 {
	out := make([][]float64, rows)
	for r := range out {
		out[r] = make([]float64, cols)
		for c := range out[r] {
			out[r][c] = base + float64(r)*10 + float64(c)
		}
	}
	return out
}

// memFile builds an in-memory handler with one "windspeed" dataset.
func memFile(path string, start time.Time, rows, cols int, base float64) *InMemory {
	h, err := NewInMemory(path, hourlyIndex(start, rows), siteGrid(cols),
		map[string][][]float64{"windspeed": rampData(rows, cols, base)})
	if err != nil {
		panic(fmt.Sprintf("building %s: %v", path, err))
	}
	return h
}

func matrixEqual(a, b [][]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}
