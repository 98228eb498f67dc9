package export

import (
	"github.com/mokala/veldscan/internal/raster"
)

// FileSink persists rasters as PNG and tables as CSV under one directory.
type FileSink struct {
	png *PNGSink
	csv *CSVSink
}

// NewFileSink returns the standard local-directory sink.
func NewFileSink(dir string) *FileSink {
	return &FileSink{png: NewPNGSink(dir), csv: NewCSVSink(dir)}
}

func (s *FileSink) WriteRaster(r *raster.Raster, band raster.Band, dest string) error {
	return s.png.WriteRaster(r, band, dest)
}

func (s *FileSink) WriteTable(header []string, rows [][]string, dest string) error {
	return s.csv.WriteTable(header, rows, dest)
}
