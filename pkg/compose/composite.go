package compose

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/transform"
	"golang.org/x/image/draw"
	"k8s.io/klog/v2"
)

// Options control how a source image is placed on a page.
type Options struct {
	// Background fills the page and shows through transparent pixels. Nil means white.
	Background color.Color
	// MaxUpscale caps the scale factor. Zero or less always scales to fit.
	MaxUpscale float64
}

// DefaultOptions matches the classic behavior: white pages, never enlarge.
var DefaultOptions = Options{Background: color.White, MaxUpscale: 1.0}

// Fit returns the aspect-preserving size of a w×h image inside a pw×ph box.
func Fit(w, h, pw, ph int, maxUpscale float64) (int, int, float64) {
	if w <= 0 || h <= 0 || pw <= 0 || ph <= 0 {
		return 0, 0, 0
	}

	scale := math.Min(float64(pw)/float64(w), float64(ph)/float64(h))
	if maxUpscale > 0 && scale > maxUpscale {
		scale = maxUpscale
	}

	sw := clamp(int(math.Round(float64(w)*scale)), 1, pw)
	sh := clamp(int(math.Round(float64(h)*scale)), 1, ph)
	return sw, sh, scale
}

// Composite scales img to fit the page, centers it, and flattens it onto the background.
// The returned raster is always fully opaque and exactly page-sized.
func Composite(img image.Image, g Geometry, o Options) (*image.RGBA, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("invalid page geometry %v", g)
	}
	if !supported(img) {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedColorMode, img)
	}

	b := img.Bounds()
	w, h, scale := Fit(b.Dx(), b.Dy(), g.Width, g.Height, o.MaxUpscale)
	if w == 0 {
		return nil, fmt.Errorf("%w: empty bounds %v", ErrUnreadableImage, b)
	}
	klog.V(2).Infof("compositing %dx%d -> %dx%d (scale %.4f) on %v", b.Dx(), b.Dy(), w, h, scale, g)

	page := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
	draw.Draw(page, page.Bounds(), image.NewUniform(opaque(o.Background)), image.Point{}, draw.Src)

	off := image.Pt((g.Width-w)/2, (g.Height-h)/2)
	src := scaled(img, w, h)
	draw.Draw(page, image.Rect(off.X, off.Y, off.X+w, off.Y+h), src, src.Bounds().Min, draw.Over)
	return page, nil
}

// Thumbnail returns an opaque copy of img fitting a box×box square, never enlarged.
func Thumbnail(img image.Image, box int, bg color.Color) (*image.RGBA, error) {
	if !supported(img) {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedColorMode, img)
	}

	b := img.Bounds()
	w, h, _ := Fit(b.Dx(), b.Dy(), box, box, 1.0)
	if w == 0 {
		return nil, fmt.Errorf("%w: empty bounds %v", ErrUnreadableImage, b)
	}

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), image.NewUniform(opaque(bg)), image.Point{}, draw.Src)
	src := scaled(img, w, h)
	draw.Draw(out, out.Bounds(), src, src.Bounds().Min, draw.Over)
	return out, nil
}

// scaled returns img resized to w×h.
func scaled(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	r := transform.Resize(img, w, h, transform.Lanczos)
	clampPremultiplied(r)
	return r
}

// clampPremultiplied caps each color channel at alpha; Lanczos ringing can overshoot.
func clampPremultiplied(img *image.RGBA) {
	for i := 0; i+3 < len(img.Pix); i += 4 {
		a := img.Pix[i+3]
		if a == 0xff {
			continue
		}
		for c := 0; c < 3; c++ {
			if img.Pix[i+c] > a {
				img.Pix[i+c] = a
			}
		}
	}
}

// opaque drops any alpha from c, defaulting to white.
func opaque(c color.Color) color.RGBA {
	if c == nil {
		return color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return color.RGBA{R: n.R, G: n.G, B: n.B, A: 0xff}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
