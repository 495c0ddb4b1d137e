// Package resource provides uniform, array-like access to collections of
// time-series geospatial resource data (wind, solar, wave) stored in chunked
// NetCDF4/HDF5 files. Data split across multiple files by time range, or
// across two files at different spatiotemporal resolutions, is stitched
// together behind a single Handler interface.
package resource

import "errors"

// Common errors
var (
	ErrSelector        = errors.New("invalid selector")
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrTimeOverlap     = errors.New("overlapping time ranges")
	ErrHandlerMismatch = errors.New("resource handler types do not match")
	ErrSAMProfile      = errors.New("SAM profile requires a single site index")
	ErrClosed          = errors.New("resource is closed")
)
