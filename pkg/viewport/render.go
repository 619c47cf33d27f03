package viewport

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Render draws what the view shows for state s: src transformed by zoom and
// pan onto a View-sized raster filled with bg.
func Render(src image.Image, s State, bg color.Color) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, int(s.View.W), int(s.View.H)))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	if s.Zoom <= 0 {
		return dst
	}

	origin := src.Bounds().Min
	s2d := f64.Aff3{
		s.Zoom, 0, s.Pan.X - s.Zoom*float64(origin.X),
		0, s.Zoom, s.Pan.Y - s.Zoom*float64(origin.Y),
	}

	var interp draw.Interpolator = draw.CatmullRom
	if s.Zoom >= 2 {
		interp = draw.NearestNeighbor
	}
	interp.Transform(dst, s2d, src, src.Bounds(), draw.Over, nil)
	return dst
}
