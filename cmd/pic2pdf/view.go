package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/tstromberg/pic2pdf/pkg/compose"
	"github.com/tstromberg/pic2pdf/pkg/config"
	"github.com/tstromberg/pic2pdf/pkg/viewport"
)

type viewFlags struct {
	out    string
	size   string
	zoom   float64
	anchor string
	pan    string
	actual bool
}

func newViewCmd() *cobra.Command {
	f := &viewFlags{}
	cmd := &cobra.Command{
		Use:   "view image -o out.png",
		Short: "Render what the viewer shows for a zoom and pan",
		Long: `view starts from the whole image fitted and centered in the viewer,
then zooms by --zoom around --anchor (the viewer centre by default) and
pans by --pan screen pixels.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			return runView(cfg, args[0], f)
		},
	}

	cmd.Flags().StringVarP(&f.out, "out", "o", "", "output PNG path")
	cmd.Flags().StringVar(&f.size, "size", "1024x768", "viewer size in pixels, WxH")
	cmd.Flags().Float64Var(&f.zoom, "zoom", 1, "zoom factor applied after fitting")
	cmd.Flags().StringVar(&f.anchor, "anchor", "", "screen point kept fixed while zooming, x,y")
	cmd.Flags().StringVar(&f.pan, "pan", "", "pan by dx,dy screen pixels")
	cmd.Flags().BoolVar(&f.actual, "actual", false, "start at 100% instead of fitting")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func runView(cfg *config.Config, path string, f *viewFlags) error {
	view, err := parseSize(f.size)
	if err != nil {
		return err
	}
	img, err := compose.Open(path)
	if err != nil {
		return err
	}

	l := cfg.Limits()
	b := img.Bounds()
	s := l.Fit(viewport.Size{W: float64(b.Dx()), H: float64(b.Dy())}, view)
	if f.actual {
		s = l.Reset(s)
	}

	anchor := viewport.Point{X: view.W / 2, Y: view.H / 2}
	if f.anchor != "" {
		if anchor, err = parsePoint(f.anchor); err != nil {
			return fmt.Errorf("anchor: %w", err)
		}
	}
	s = l.ZoomBy(s, f.zoom, anchor)

	if f.pan != "" {
		d, err := parsePoint(f.pan)
		if err != nil {
			return fmt.Errorf("pan: %w", err)
		}
		s = l.PanBy(s, d)
	}

	bg, err := cfg.Background()
	if err != nil {
		return err
	}
	lo, hi := viewport.Visible(s)
	klog.Infof("viewer %s shows image region (%.0f,%.0f)-(%.0f,%.0f)", s, lo.X, lo.Y, hi.X, hi.Y)

	return imgio.Save(f.out, viewport.Render(img, s, bg), imgio.PNGEncoder())
}

func parseSize(s string) (viewport.Size, error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return viewport.Size{}, fmt.Errorf("size %q: want WxH", s)
	}
	x, err := strconv.Atoi(w)
	if err != nil {
		return viewport.Size{}, fmt.Errorf("size %q: %w", s, err)
	}
	y, err := strconv.Atoi(h)
	if err != nil {
		return viewport.Size{}, fmt.Errorf("size %q: %w", s, err)
	}
	if x <= 0 || y <= 0 {
		return viewport.Size{}, fmt.Errorf("size %q must be positive", s)
	}
	return viewport.Size{W: float64(x), H: float64(y)}, nil
}

func parsePoint(s string) (viewport.Point, error) {
	a, b, ok := strings.Cut(s, ",")
	if !ok {
		return viewport.Point{}, fmt.Errorf("%q: want x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
	if err != nil {
		return viewport.Point{}, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if err != nil {
		return viewport.Point{}, err
	}
	return viewport.Point{X: x, Y: y}, nil
}
