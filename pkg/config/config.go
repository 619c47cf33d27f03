// Package config loads pic2pdf settings from embedded defaults, an optional
// YAML file and the environment.
package config

import (
	_ "embed"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tstromberg/pic2pdf/pkg/assemble"
	"github.com/tstromberg/pic2pdf/pkg/collection"
	"github.com/tstromberg/pic2pdf/pkg/compose"
	"github.com/tstromberg/pic2pdf/pkg/viewport"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Page       PageConfig       `yaml:"page"`
	Build      BuildConfig      `yaml:"build"`
	Collection CollectionConfig `yaml:"collection"`
	Viewer     ViewerConfig     `yaml:"viewer"`
}

type PageConfig struct {
	Size       string  `yaml:"size"` // a3, a4, a5, letter, legal
	DPI        float64 `yaml:"dpi"`
	Landscape  bool    `yaml:"landscape"`
	Background string  `yaml:"background"` // #rrggbb
	MaxUpscale float64 `yaml:"max_upscale"`
}

type BuildConfig struct {
	Quality int    `yaml:"quality"`
	Policy  string `yaml:"policy"`
	Title   string `yaml:"title"`
	Author  string `yaml:"author"`
}

type CollectionConfig struct {
	ThumbSize int  `yaml:"thumb_size"`
	ExifDates bool `yaml:"exif_dates"`
}

type ViewerConfig struct {
	MinZoom   float64 `yaml:"min_zoom"`
	MaxZoom   float64 `yaml:"max_zoom"`
	ZoomStep  float64 `yaml:"zoom_step"`
	PanMargin float64 `yaml:"pan_margin"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// Default returns the built-in configuration.
func Default() *Config {
	c := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, c); err != nil {
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return c
}

// Load returns the defaults overlaid by the YAML file at path (if not empty)
// and then by PIC2PDF_PAGE, PIC2PDF_DPI and PIC2PDF_QUALITY.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if s := os.Getenv("PIC2PDF_PAGE"); s != "" {
		c.Page.Size = s
	}
	c.Page.DPI = envFloat("PIC2PDF_DPI", c.Page.DPI)
	c.Build.Quality = envInt("PIC2PDF_QUALITY", c.Build.Quality)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that every setting can be converted to its runtime form.
func (c *Config) Validate() error {
	if _, err := c.Geometry(); err != nil {
		return err
	}
	if _, err := c.Background(); err != nil {
		return err
	}
	if _, err := assemble.ParsePolicy(c.Build.Policy); err != nil {
		return err
	}
	if c.Build.Quality < 1 || c.Build.Quality > 100 {
		return fmt.Errorf("quality %d out of range 1-100", c.Build.Quality)
	}
	if c.Page.MaxUpscale < 0 {
		return fmt.Errorf("max_upscale %v must not be negative", c.Page.MaxUpscale)
	}
	if c.Viewer.MinZoom <= 0 || c.Viewer.MaxZoom < c.Viewer.MinZoom {
		return fmt.Errorf("invalid zoom range %v-%v", c.Viewer.MinZoom, c.Viewer.MaxZoom)
	}
	return nil
}

// Geometry returns the page size in pixels.
func (c *Config) Geometry() (compose.Geometry, error) {
	return compose.PaperSize(c.Page.Size, c.Page.DPI, c.Page.Landscape)
}

// Background parses the #rrggbb page color.
func (c *Config) Background() (color.Color, error) {
	s := strings.TrimPrefix(c.Page.Background, "#")
	if len(s) != 6 {
		return nil, fmt.Errorf("background %q: want #rrggbb", c.Page.Background)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("background %q: %w", c.Page.Background, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// AssembleOptions converts the page and build settings for assemble.Build.
func (c *Config) AssembleOptions() (assemble.Options, error) {
	o := assemble.DefaultOptions

	g, err := c.Geometry()
	if err != nil {
		return o, err
	}
	bg, err := c.Background()
	if err != nil {
		return o, err
	}
	p, err := assemble.ParsePolicy(c.Build.Policy)
	if err != nil {
		return o, err
	}

	o.Geometry = g
	o.Compose = compose.Options{Background: bg, MaxUpscale: c.Page.MaxUpscale}
	o.Policy = p
	o.Quality = c.Build.Quality
	o.Title = c.Build.Title
	o.Author = c.Build.Author
	return o, nil
}

// CollectionOptions returns collection settings. Thumbnails share the page
// background. The Dater is left unset; callers that honor ExifDates own the
// exiftool process.
func (c *Config) CollectionOptions() (collection.Options, error) {
	bg, err := c.Background()
	if err != nil {
		return collection.Options{}, err
	}
	return collection.Options{ThumbSize: c.Collection.ThumbSize, Background: bg}, nil
}

// Limits returns the viewer bounds.
func (c *Config) Limits() viewport.Limits {
	return viewport.Limits{
		MinZoom: c.Viewer.MinZoom,
		MaxZoom: c.Viewer.MaxZoom,
		Step:    c.Viewer.ZoomStep,
		Margin:  c.Viewer.PanMargin,
	}
}
