package collection

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/tstromberg/pic2pdf/pkg/compose"
)

// DefaultThumbSize is the edge of the square box thumbnails are fit into.
const DefaultThumbSize = 150

// ID identifies an entry for its lifetime in a collection.
type ID string

func newID() ID {
	return ID(uuid.NewString())
}

// Entry is one tracked image plus metadata read once at insertion.
type Entry struct {
	ID       ID
	Path     string
	Created  time.Time
	Width    int
	Height   int
	Format   string
	HasAlpha bool

	thumb *thumb
}

// thumb is shared by copies of an Entry so the raster is computed at most once.
type thumb struct {
	once sync.Once
	box  int
	bg   color.Color
	img  *image.RGBA
	err  error
}

// Read builds an entry for the image at path without decoding pixel data.
// o supplies the creation-time source and thumbnail settings.
func Read(path string, o Options) (*Entry, error) {
	info, err := compose.Probe(path)
	if err != nil {
		return nil, err
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", compose.ErrUnreadableImage, err)
	}

	o = o.withDefaults()

	e := &Entry{
		ID:       newID(),
		Path:     path,
		Created:  o.Dater.Created(path, fi),
		Width:    info.Width,
		Height:   info.Height,
		Format:   info.Format,
		HasAlpha: info.HasAlpha,
		thumb:    &thumb{box: o.ThumbSize, bg: o.Background},
	}
	klog.V(1).Infof("read %s: %dx%d %s alpha=%v created=%s", path, e.Width, e.Height, e.Format, e.HasAlpha, e.Created)
	return e, nil
}

// Thumbnail returns the entry's thumbnail, decoding the source on first use.
func (e Entry) Thumbnail() (*image.RGBA, error) {
	t := e.thumb
	if t == nil {
		t = &thumb{box: DefaultThumbSize, bg: color.White}
	}

	t.once.Do(func() {
		img, err := compose.Open(e.Path)
		if err != nil {
			t.err = err
			return
		}
		t.img, t.err = compose.Thumbnail(img, t.box, t.bg)
		if t.err == nil {
			klog.V(2).Infof("thumbnail for %s: %v", e.Path, t.img.Bounds())
		}
	})
	return t.img, t.err
}

func (e Entry) String() string {
	return fmt.Sprintf("%s (%dx%d)", e.Path, e.Width, e.Height)
}
