package export

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mokala/veldscan/internal/metrics"
	"github.com/mokala/veldscan/internal/raster"
)

const legendHeight = 24

// PNGSink renders one raster band to a color-ramped PNG with a small legend
// strip. Invalid cells render transparent.
type PNGSink struct {
	Dir string
}

// NewPNGSink writes under dir, creating it if needed.
func NewPNGSink(dir string) *PNGSink {
	return &PNGSink{Dir: dir}
}

// WriteRaster renders band b of r to <dir>/<dest>.
func (s *PNGSink) WriteRaster(r *raster.Raster, band raster.Band, dest string) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}

	min, max, ok := r.MinMaxDefined(band)
	if !ok {
		metrics.ExportsTotal.WithLabelValues("raster", "error").Inc()
		return fmt.Errorf("render %s: band %s has no defined cells", dest, band)
	}
	span := max - min
	if span == 0 {
		span = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, r.Ref.Width, r.Ref.Height+legendHeight))
	for y := 0; y < r.Ref.Height; y++ {
		for x := 0; x < r.Ref.Width; x++ {
			v := r.At(band, x, y)
			if !v.Valid {
				continue // transparent
			}
			img.SetRGBA(x, y, rampColor((v.V - min) / span))
		}
	}
	drawLegend(img, r.Ref.Height, band, min, max)

	path := filepath.Join(s.Dir, dest)
	f, err := os.Create(path)
	if err != nil {
		metrics.ExportsTotal.WithLabelValues("raster", "error").Inc()
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		metrics.ExportsTotal.WithLabelValues("raster", "error").Inc()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	metrics.ExportsTotal.WithLabelValues("raster", "ok").Inc()
	return nil
}

// rampColor maps t in [0,1] from dry straw to dense green.
func rampColor(t float64) color.RGBA {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	low := color.RGBA{R: 237, G: 221, B: 160, A: 255}
	high := color.RGBA{R: 20, G: 92, B: 31, A: 255}
	lerp := func(a, b uint8) uint8 {
		return uint8(float64(a) + t*(float64(b)-float64(a)))
	}
	return color.RGBA{R: lerp(low.R, high.R), G: lerp(low.G, high.G), B: lerp(low.B, high.B), A: 255}
}

func drawLegend(img *image.RGBA, top int, band raster.Band, min, max float64) {
	bounds := img.Bounds()
	for y := top; y < bounds.Max.Y; y++ {
		for x := 0; x < bounds.Max.X; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 245, G: 245, B: 245, A: 255})
		}
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{A: 255}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(4, top+16),
	}
	d.DrawString(fmt.Sprintf("%s %.0f-%.0f", band, min, max))
}
