// Package export persists rasters and tables produced by a run. Sinks are
// fire-and-forget: the pipeline never blocks on their completion semantics
// beyond the local write.
package export

import (
	"github.com/mokala/veldscan/internal/raster"
)

// Sink accepts run artifacts. The destination descriptor is sink-specific
// (a file path for the local sinks).
type Sink interface {
	WriteRaster(r *raster.Raster, band raster.Band, dest string) error
	WriteTable(header []string, rows [][]string, dest string) error
}
