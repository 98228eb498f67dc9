package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mokala/veldscan/internal/metrics"
	"github.com/mokala/veldscan/internal/raster"
)

// CSVSink writes tabular artifacts as CSV files under a directory. It also
// satisfies Sink for rasters by refusing them.
type CSVSink struct {
	Dir string
}

// NewCSVSink writes under dir, creating it if needed.
func NewCSVSink(dir string) *CSVSink {
	return &CSVSink{Dir: dir}
}

// WriteTable writes header + rows to <dir>/<dest>.
func (s *CSVSink) WriteTable(header []string, rows [][]string, dest string) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(s.Dir, dest)
	f, err := os.Create(path)
	if err != nil {
		metrics.ExportsTotal.WithLabelValues("table", "error").Inc()
		return fmt.Errorf("csv create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		metrics.ExportsTotal.WithLabelValues("table", "error").Inc()
		return fmt.Errorf("csv write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			metrics.ExportsTotal.WithLabelValues("table", "error").Inc()
			return fmt.Errorf("csv write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		metrics.ExportsTotal.WithLabelValues("table", "error").Inc()
		return err
	}
	metrics.ExportsTotal.WithLabelValues("table", "ok").Inc()
	return nil
}

// WriteRaster is unsupported on the CSV sink.
func (s *CSVSink) WriteRaster(_ *raster.Raster, band raster.Band, dest string) error {
	return fmt.Errorf("csv sink cannot persist raster band %s to %s", band, dest)
}
