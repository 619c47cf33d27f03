package compose

import (
	"fmt"
	"math"
	"strings"
)

// pointsPerInch is the PDF user-space unit.
const pointsPerInch = 72.0

// Geometry is the fixed target rectangle each output page must fill, in pixels.
type Geometry struct {
	Width  int
	Height int
	DPI    float64
}

// A4 portrait at 72 DPI.
var A4 = Geometry{Width: 595, Height: 842, DPI: 72}

// paper sizes in inches, portrait.
var paperSizes = map[string][2]float64{
	"a3":     {297 / 25.4, 420 / 25.4},
	"a4":     {210 / 25.4, 297 / 25.4},
	"a5":     {148 / 25.4, 210 / 25.4},
	"letter": {8.5, 11},
	"legal":  {8.5, 14},
}

// PaperSize returns the geometry for a named paper size at the given DPI.
func PaperSize(name string, dpi float64, landscape bool) (Geometry, error) {
	in, ok := paperSizes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Geometry{}, fmt.Errorf("unknown paper size %q", name)
	}
	if dpi <= 0 {
		return Geometry{}, fmt.Errorf("invalid dpi: %v", dpi)
	}

	g := Geometry{
		Width:  int(math.Round(in[0] * dpi)),
		Height: int(math.Round(in[1] * dpi)),
		DPI:    dpi,
	}
	if landscape {
		g.Width, g.Height = g.Height, g.Width
	}
	return g, nil
}

// Valid reports whether the geometry describes a drawable page.
func (g Geometry) Valid() bool {
	return g.Width > 0 && g.Height > 0 && g.DPI > 0
}

// Points returns the page size in PDF points.
func (g Geometry) Points() (float64, float64) {
	return float64(g.Width) * pointsPerInch / g.DPI, float64(g.Height) * pointsPerInch / g.DPI
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d@%gdpi", g.Width, g.Height, g.DPI)
}
