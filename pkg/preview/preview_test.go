package preview

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tstromberg/pic2pdf/pkg/collection"
)

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{B: 200, A: 128})
		}
	}
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return p
}

func TestRender(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "site")

	c := collection.New(collection.Options{})
	tall := writePNG(t, in, "tall.png", 100, 300)
	_, failed := c.AddAll([]string{writePNG(t, in, "wide one.png", 300, 100), tall})
	if len(failed) != 0 {
		t.Fatalf("AddAll failures: %v", failed)
	}
	// Put the tall image first.
	for _, e := range c.Snapshot() {
		if e.Path == tall {
			if err := c.MoveToIndex(e.ID, 0); err != nil {
				t.Fatalf("MoveToIndex: %v", err)
			}
		}
	}

	if err := Render(c.Snapshot(), out, Options{Title: "Holiday <draft>"}); err != nil {
		t.Fatalf("Render: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(out, "index.html"))
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	html := string(b)

	for _, want := range []string{
		"Holiday &lt;draft&gt;",
		`<img src="_/001-tall@thumb.jpg" width="50" height="150"`,
		`<img src="_/002-wide_one@thumb.jpg" width="150" height="50"`,
		`href="_/002-wide_one.png"`,
		"300&times;100 png &middot; alpha",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("index.html missing %q", want)
		}
	}
	if strings.Index(html, "tall.png") > strings.Index(html, "wide one.png") {
		t.Errorf("pages not in collection order")
	}

	for _, f := range []string{"001-tall.png", "001-tall@thumb.jpg", "002-wide_one.png", "002-wide_one@thumb.jpg"} {
		if _, err := os.Stat(filepath.Join(out, "_", f)); err != nil {
			t.Errorf("missing asset %s: %v", f, err)
		}
	}

	// A second render reuses the copied originals.
	if err := Render(c.Snapshot(), out, Options{}); err != nil {
		t.Fatalf("second Render: %v", err)
	}
}

func TestRenderUnreadable(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "gone.png")
	snap := collection.Snapshot{{Path: bad}}
	if err := Render(snap, t.TempDir(), Options{}); err == nil {
		t.Errorf("Render of a missing file succeeded")
	}
}

func TestURLSafe(t *testing.T) {
	tests := map[string]string{
		"001-a.png":        "001-a.png",
		"002-my photo.jpg": "002-my_photo.jpg",
		"003-ünï.tif":      "003-_n_.tif",
	}
	for in, want := range tests {
		if got := urlSafe(in); got != want {
			t.Errorf("urlSafe(%q) = %q; want %q", in, got, want)
		}
	}
}
