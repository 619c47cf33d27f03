// Package compose maps arbitrary source images onto fixed-size, opaque document pages.
package compose

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/anthonynsimon/bild/imgio"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"k8s.io/klog/v2"
)

var (
	// ErrUnreadableImage is returned when a source cannot be decoded.
	ErrUnreadableImage = errors.New("unreadable image")
	// ErrUnsupportedColorMode is returned when a decoded image has no defined path to opaque RGB.
	ErrUnsupportedColorMode = errors.New("unsupported color mode")
)

// Info is the metadata that can be read without decoding pixel data.
type Info struct {
	Width    int
	Height   int
	Format   string
	HasAlpha bool
}

// Open decodes the image at path.
func Open(path string) (image.Image, error) {
	klog.V(2).Infof("decoding %s", path)
	img, err := imgio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableImage, path, err)
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: %s: empty bounds %v", ErrUnreadableImage, path, b)
	}
	return img, nil
}

// Probe reads the dimensions, format and alpha capability of the image at path.
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}
	defer f.Close()

	ic, format, err := image.DecodeConfig(f)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s: %v", ErrUnreadableImage, path, err)
	}

	if ic.Width <= 0 || ic.Height <= 0 {
		return Info{}, fmt.Errorf("%w: %s: no dimensions", ErrUnreadableImage, path)
	}

	return Info{
		Width:    ic.Width,
		Height:   ic.Height,
		Format:   format,
		HasAlpha: modelHasAlpha(ic.ColorModel),
	}, nil
}

// modelHasAlpha reports whether pixels of the given model may be non-opaque.
func modelHasAlpha(m color.Model) bool {
	switch m {
	case color.RGBAModel, color.RGBA64Model, color.NRGBAModel, color.NRGBA64Model,
		color.AlphaModel, color.Alpha16Model, color.NYCbCrAModel:
		return true
	case color.GrayModel, color.Gray16Model, color.YCbCrModel, color.CMYKModel:
		return false
	}

	if p, ok := m.(color.Palette); ok {
		for _, c := range p {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return true
			}
		}
		return false
	}

	// Unknown models are treated as possibly transparent.
	return true
}

// supported reports whether img has a defined normalization to opaque RGB.
func supported(img image.Image) bool {
	switch img.(type) {
	case *image.RGBA, *image.RGBA64, *image.NRGBA, *image.NRGBA64,
		*image.Gray, *image.Gray16, *image.Alpha, *image.Alpha16,
		*image.YCbCr, *image.NYCbCrA, *image.CMYK, *image.Paletted:
		return true
	}

	switch img.ColorModel() {
	case color.RGBAModel, color.RGBA64Model, color.NRGBAModel, color.NRGBA64Model,
		color.GrayModel, color.Gray16Model, color.AlphaModel, color.Alpha16Model,
		color.YCbCrModel, color.NYCbCrAModel, color.CMYKModel:
		return true
	}

	_, ok := img.ColorModel().(color.Palette)
	return ok
}
