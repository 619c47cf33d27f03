// Package preview writes a static HTML contact sheet of a collection in page order.
package preview

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/otiai10/copy"
	"k8s.io/klog/v2"

	"github.com/tstromberg/pic2pdf/pkg/collection"
	"github.com/tstromberg/pic2pdf/pkg/compose"
)

//go:embed assets/index.tmpl
var indexTmpl string

//go:embed assets/style.css
var styleText string

// assetDir holds thumbnails and copied originals, relative to the output directory.
const assetDir = "_"

// Options control a preview.
type Options struct {
	Title    string
	Geometry compose.Geometry
	// Quality is the JPEG quality of thumbnails.
	Quality int
}

// Page is one rendered entry.
type Page struct {
	Position    int
	Path        string
	Width       int
	Height      int
	Format      string
	HasAlpha    bool
	Thumb       string
	ThumbWidth  int
	ThumbHeight int
	Original    string
}

// Render writes outDir/index.html along with thumbnails and copies of the originals.
func Render(snap collection.Snapshot, outDir string, o Options) error {
	if o.Title == "" {
		o.Title = "pic2pdf"
	}
	if o.Quality <= 0 {
		o.Quality = 85
	}
	if !o.Geometry.Valid() {
		o.Geometry = compose.A4
	}

	if err := os.MkdirAll(filepath.Join(outDir, assetDir), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	klog.Infof("rendering preview of %d images to %s ...", len(snap), outDir)
	ps := []Page{}
	for i, e := range snap {
		p, err := page(i, e, outDir, o)
		if err != nil {
			return fmt.Errorf("image %d (%s): %w", i+1, e.Path, err)
		}
		ps = append(ps, p)
	}

	bs, err := renderIndex(o, ps)
	if err != nil {
		return fmt.Errorf("render index: %w", err)
	}

	p := filepath.Join(outDir, "index.html")
	klog.V(1).Infof("Writing preview index to %s", p)
	return os.WriteFile(p, bs, 0o644)
}

func page(i int, e collection.Entry, outDir string, o Options) (Page, error) {
	p := Page{
		Position: i + 1,
		Path:     e.Path,
		Width:    e.Width,
		Height:   e.Height,
		Format:   e.Format,
		HasAlpha: e.HasAlpha,
	}

	base := urlSafe(fmt.Sprintf("%03d-%s", p.Position, filepath.Base(e.Path)))
	p.Original = assetDir + "/" + base
	if err := copyIfStale(e.Path, filepath.Join(outDir, assetDir, base)); err != nil {
		return p, fmt.Errorf("copy: %w", err)
	}

	th, err := e.Thumbnail()
	if err != nil {
		return p, fmt.Errorf("thumbnail: %w", err)
	}
	thumbBase := strings.TrimSuffix(base, filepath.Ext(base)) + "@thumb.jpg"
	p.Thumb = assetDir + "/" + thumbBase
	p.ThumbWidth, p.ThumbHeight = th.Bounds().Dx(), th.Bounds().Dy()

	if err := imgio.Save(filepath.Join(outDir, assetDir, thumbBase), th, imgio.JPEGEncoder(o.Quality)); err != nil {
		return p, fmt.Errorf("save: %w", err)
	}
	klog.V(1).Infof("page %d: %s -> %s", p.Position, e.Path, p.Thumb)
	return p, nil
}

// copyIfStale copies src to dst unless dst already matches in size and is newer.
func copyIfStale(src, dst string) error {
	sst, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}

	dt, err := os.Stat(dst)
	if err == nil && sst.Size() == dt.Size() && !sst.ModTime().After(dt.ModTime()) {
		klog.V(2).Infof("%s is up to date", dst)
		return nil
	}
	return copy.Copy(src, dst)
}

func urlSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, s)
}

func renderIndex(o Options, ps []Page) ([]byte, error) {
	tmpl, err := template.New("index").Funcs(tmplFunctions()).Parse(indexTmpl)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	data := struct {
		Title    string
		Geometry string
		Pages    []Page
		Style    template.CSS
	}{
		Title:    o.Title,
		Geometry: o.Geometry.String(),
		Pages:    ps,
		Style:    template.CSS(styleText),
	}

	var tpl bytes.Buffer
	if err = tmpl.Execute(&tpl, data); err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	return tpl.Bytes(), nil
}

// tmplFunctions are functions available to our templates.
func tmplFunctions() template.FuncMap {
	return template.FuncMap{
		"Odd": func(i int) bool {
			return i%2 == 1
		},
		"BasePath": filepath.Base,
	}
}
