package collection

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/tstromberg/pic2pdf/pkg/compose"
)

// writePNG writes a w×h image to dir/name with the given modification time.
func writePNG(t *testing.T, dir, name string, w, h int, mtime time.Time) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x80
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
	if err := os.Chtimes(p, mtime, mtime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	return p
}

// seed adds n entries that are not backed by files.
func seed(c *Collection, n int) []ID {
	ids := make([]ID, n)
	for i := range ids {
		e := &Entry{ID: newID(), Path: fmt.Sprintf("img%02d.png", i)}
		c.items = append(c.items, e)
		ids[i] = e.ID
	}
	return ids
}

func order(c *Collection) []ID {
	ids := []ID{}
	for _, e := range c.Snapshot() {
		ids = append(ids, e.ID)
	}
	return ids
}

func checkInvariants(t *testing.T, c *Collection) {
	t.Helper()
	seen := map[ID]bool{}
	for _, e := range c.items {
		if seen[e.ID] {
			t.Fatalf("duplicate id %s", e.ID)
		}
		seen[e.ID] = true
	}
	for id := range c.selected {
		if !seen[id] {
			t.Fatalf("selected id %s not in items", id)
		}
	}
}

func TestAddAll(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	newest := writePNG(t, dir, "newest.png", 40, 30, base.Add(2*time.Hour))
	oldest := writePNG(t, dir, "oldest.png", 30, 40, base)
	tieA := writePNG(t, dir, "tie-a.png", 10, 10, base.Add(time.Hour))
	corrupt := filepath.Join(dir, "corrupt.png")
	if err := os.WriteFile(corrupt, []byte("definitely not a png"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tieB := writePNG(t, dir, "tie-b.png", 10, 10, base.Add(time.Hour))

	c := New(Options{})
	ids, failed := c.AddAll([]string{newest, tieB, corrupt, oldest, tieA})

	if len(ids) != 4 {
		t.Fatalf("added %d; want 4", len(ids))
	}
	if len(failed) != 1 {
		t.Fatalf("failed = %v; want 1 failure", failed)
	}
	if failed[0].Path != corrupt || !errors.Is(failed[0], compose.ErrUnreadableImage) {
		t.Errorf("failure = %v; want ErrUnreadableImage for %s", failed[0], corrupt)
	}

	got := []string{}
	for _, e := range c.Snapshot() {
		got = append(got, filepath.Base(e.Path))
	}
	want := []string{"oldest.png", "tie-b.png", "tie-a.png", "newest.png"}
	if !slices.Equal(got, want) {
		t.Errorf("order = %v; want %v", got, want)
	}

	e, ok := c.Get(ids[0])
	if !ok {
		t.Fatalf("Get(%s) missing", ids[0])
	}
	if e.Width != 30 || e.Height != 40 || e.Format != "png" || !e.HasAlpha {
		t.Errorf("entry metadata = %+v", e)
	}
	th, err := e.Thumbnail()
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	if th.Bounds().Dx() != 30 || th.Bounds().Dy() != 40 {
		t.Errorf("thumbnail = %v; want 30x40", th.Bounds())
	}
	checkInvariants(t, c)
}

func TestAddSamePathTwice(t *testing.T) {
	dir := t.TempDir()
	p := writePNG(t, dir, "a.png", 200, 100, time.Now())

	c := New(Options{ThumbSize: 50})
	a, err := c.Add(p)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	b, err := c.Add(p)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if a == b {
		t.Errorf("same path produced the same id %s twice", a)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d; want 2", c.Len())
	}

	e, _ := c.Get(a)
	th, err := e.Thumbnail()
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	if th.Bounds().Dx() != 50 || th.Bounds().Dy() != 25 {
		t.Errorf("thumbnail = %v; want 50x25", th.Bounds())
	}

	again, _ := c.Snapshot()[0].Thumbnail()
	if again != th {
		t.Errorf("thumbnail recomputed for a snapshot copy")
	}
}

func TestThumbnailBackground(t *testing.T) {
	p := filepath.Join(t.TempDir(), "clear.png")
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := png.Encode(f, image.NewNRGBA(image.Rect(0, 0, 40, 20))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	red := color.RGBA{R: 0xff, A: 0xff}
	for _, tc := range []struct {
		bg   color.Color
		want color.RGBA
	}{
		{bg: nil, want: color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}},
		{bg: red, want: red},
	} {
		c := New(Options{ThumbSize: 10, Background: tc.bg})
		id, err := c.Add(p)
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		e, _ := c.Get(id)
		th, err := e.Thumbnail()
		if err != nil {
			t.Fatalf("Thumbnail: %v", err)
		}
		if th.Bounds().Dx() != 10 || th.Bounds().Dy() != 5 {
			t.Errorf("thumbnail = %v; want 10x5", th.Bounds())
		}
		if got := th.RGBAAt(3, 2); got != tc.want {
			t.Errorf("background %v: pixel = %v; want %v", tc.bg, got, tc.want)
		}
	}
}

func TestAddUnreadable(t *testing.T) {
	c := New(Options{})
	_, err := c.Add(filepath.Join(t.TempDir(), "missing.png"))

	var ae *AddError
	if !errors.As(err, &ae) || !errors.Is(err, compose.ErrUnreadableImage) {
		t.Errorf("Add(missing) error = %v; want *AddError wrapping ErrUnreadableImage", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d; want 0", c.Len())
	}
}

func TestMoveToIndex(t *testing.T) {
	const n = 6
	for from := 0; from < n; from++ {
		for _, k := range []int{-3, 0, 1, 2, 3, 4, 5, 6, 100} {
			t.Run(fmt.Sprintf("%d->%d", from, k), func(t *testing.T) {
				c := New(Options{})
				ids := seed(c, n)
				id := ids[from]

				if err := c.MoveToIndex(id, k); err != nil {
					t.Fatalf("MoveToIndex: %v", err)
				}

				got := order(c)
				want := max(0, min(k, n-1))
				if pos := slices.Index(got, id); pos != want {
					t.Errorf("position = %d; want %d", pos, want)
				}

				rest := slices.DeleteFunc(slices.Clone(got), func(x ID) bool { return x == id })
				others := slices.DeleteFunc(slices.Clone(ids), func(x ID) bool { return x == id })
				if !slices.Equal(rest, others) {
					t.Errorf("relative order of other entries changed: %v -> %v", others, rest)
				}
			})
		}
	}
}

func TestMoveToIndexUnknown(t *testing.T) {
	c := New(Options{})
	ids := seed(c, 3)
	c.Remove(ids[1])

	err := c.MoveToIndex(ids[1], 0)
	if !errors.Is(err, ErrUnknownEntry) {
		t.Errorf("MoveToIndex(removed) error = %v; want ErrUnknownEntry", err)
	}
	if got := order(c); !slices.Equal(got, []ID{ids[0], ids[2]}) {
		t.Errorf("order changed after failed move: %v", got)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	c := New(Options{})
	ids := seed(c, 4)

	snap := c.Snapshot()
	c.MoveToIndex(ids[3], 0)
	c.Remove(ids[1])
	c.Clear()

	if len(snap) != 4 {
		t.Fatalf("snapshot length = %d; want 4", len(snap))
	}
	for i, e := range snap {
		if e.ID != ids[i] {
			t.Errorf("snapshot[%d] = %s; want %s", i, e.ID, ids[i])
		}
	}
}

func TestSelection(t *testing.T) {
	c := New(Options{})
	ids := seed(c, 6)

	if !c.Toggle(ids[1]) {
		t.Errorf("Toggle(1) = false; want selected")
	}
	c.SelectRange(ids[4], ids[3])
	if got := c.Selected(); !slices.Equal(got, []ID{ids[1], ids[3], ids[4]}) {
		t.Errorf("Selected = %v", got)
	}

	if c.Toggle(ids[3]) {
		t.Errorf("Toggle(3) = true; want deselected")
	}
	if c.Toggle("nope") || c.IsSelected("nope") {
		t.Errorf("unknown id became selected")
	}
	c.SelectRange(ids[0], "nope")
	if got := len(c.Selected()); got != 2 {
		t.Errorf("SelectRange with unknown id changed selection: %d selected", got)
	}

	// Selection follows identity, not position.
	c.MoveToIndex(ids[1], 5)
	if !c.IsSelected(ids[1]) || c.IsSelected(ids[2]) {
		t.Errorf("selection did not follow the moved entry")
	}

	if n := c.RemoveSelected(); n != 2 {
		t.Errorf("RemoveSelected = %d; want 2", n)
	}
	if got := order(c); !slices.Equal(got, []ID{ids[0], ids[2], ids[3], ids[5]}) {
		t.Errorf("order after RemoveSelected = %v", got)
	}

	c.SelectAll()
	c.Remove(ids[0], "nope", ids[0])
	if got := c.Selected(); !slices.Equal(got, []ID{ids[2], ids[3], ids[5]}) {
		t.Errorf("Selected after Remove = %v", got)
	}
	c.ClearSelection()
	if got := c.Selected(); len(got) != 0 {
		t.Errorf("Selected after ClearSelection = %v", got)
	}
	checkInvariants(t, c)
}

func FuzzOperations(f *testing.F) {
	f.Add([]byte{0, 1, 2, 3, 4, 5})
	f.Add([]byte{2, 9, 2, 0, 1, 1, 3, 3, 2, 2, 0, 0, 4, 7, 5})
	f.Add([]byte{1, 1, 1, 1, 0, 0, 0, 0, 3, 2, 1, 0})

	f.Fuzz(func(t *testing.T, script []byte) {
		c := New(Options{})
		ids := seed(c, 5)

		for i := 0; i+1 < len(script); i += 2 {
			op, arg := script[i]%6, int(script[i+1])
			pick := func() ID {
				if len(ids) == 0 {
					return "none"
				}
				return ids[arg%len(ids)]
			}

			switch op {
			case 0:
				ids = append(ids, seed(c, 1)...)
			case 1:
				c.Remove(pick())
			case 2:
				_ = c.MoveToIndex(pick(), arg%8-1)
			case 3:
				c.Toggle(pick())
			case 4:
				c.SelectRange(pick(), ids[0])
			case 5:
				c.RemoveSelected()
			}
			checkInvariants(t, c)
		}
	})
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	for _, d := range []string{"sub", ".hidden"} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	a := writePNG(t, dir, "a.png", 2, 2, now)
	d := writePNG(t, filepath.Join(dir, "sub"), "d.PNG", 2, 2, now)
	writePNG(t, filepath.Join(dir, ".hidden"), "c.png", 2, 2, now)
	notes := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(notes, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := Find(dir, notes)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	want := []string{a, d, notes}
	if !slices.Equal(got, want) {
		t.Errorf("Find = %v; want %v", got, want)
	}

	if _, err := Find(filepath.Join(dir, "missing")); err == nil {
		t.Errorf("Find(missing) succeeded")
	}
}

func TestSupported(t *testing.T) {
	for p, want := range map[string]bool{
		"a.png": true, "b.JPEG": true, "c.tif": true, "d.webp": true, "e.bmp": true,
		"f.gif": true, "g.pdf": false, "noext": false,
	} {
		if got := Supported(p); got != want {
			t.Errorf("Supported(%q) = %v; want %v", p, got, want)
		}
	}
}
