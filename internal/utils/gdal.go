package utils

import "sync"

var gdalMu sync.Mutex

// WithGDAL runs fn while holding the process-wide GDAL lock. Dataset handles
// are not safe for concurrent use, so every raster or vector call goes through here.
func WithGDAL(fn func() error) error {
	gdalMu.Lock()
	defer gdalMu.Unlock()
	return fn()
}
