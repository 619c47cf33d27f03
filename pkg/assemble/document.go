package assemble

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/jung-kurt/gofpdf"

	"github.com/tstromberg/pic2pdf/pkg/compose"
)

// document is a PDF with one full-bleed JPEG image per page.
type document struct {
	pdf     *gofpdf.Fpdf
	w, h    float64
	quality int
	pages   int
}

// openDocument starts the document a build writes into.
var openDocument = newDocument

func newDocument(g compose.Geometry, quality int, title, author string) *document {
	w, h := g.Points()
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("pic2pdf", true)
	pdf.SetCreationDate(time.Now())
	if title != "" {
		pdf.SetTitle(title, true)
	}
	if author != "" {
		pdf.SetAuthor(author, true)
	}
	return &document{pdf: pdf, w: w, h: h, quality: quality}
}

// addPage encodes img as JPEG and places it across a new page.
// Only the compressed bytes are retained. gofpdf keeps the first error it
// hits, so PDF failures leave the document unusable and wrap ErrDocument.
func (d *document) addPage(img image.Image) error {
	var buf bytes.Buffer
	if err := imgio.JPEGEncoder(d.quality)(&buf, img); err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	name := fmt.Sprintf("page-%d", d.pages+1)
	opts := gofpdf.ImageOptions{ImageType: "JPG"}
	d.pdf.RegisterImageOptionsReader(name, opts, &buf)
	d.pdf.AddPage()
	d.pdf.ImageOptions(name, 0, 0, d.w, d.h, false, opts, 0, "")
	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrDocument, err)
	}
	d.pages++
	return nil
}

// WriteTo renders the finished document to w.
func (d *document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	err := d.pdf.Output(cw)
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
