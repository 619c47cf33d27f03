// Package viewport maps between image and screen coordinates for a zoomable, pannable view.
//
// All functions are pure: they take a State and return a new one.
// Screen space has its origin at the top-left of the view; Pan is the
// screen position of the image's top-left corner, so
//
//	screen = image*Zoom + Pan
package viewport

import (
	"fmt"
	"math"
)

// Point is a 2D coordinate.
type Point struct {
	X float64
	Y float64
}

// Size is a 2D extent.
type Size struct {
	W float64
	H float64
}

// State is everything needed to place an image in a view.
type State struct {
	Zoom  float64
	Pan   Point
	Image Size
	View  Size
}

func (s State) String() string {
	return fmt.Sprintf("%d%% @ (%.1f, %.1f)", int(math.Round(s.Zoom*100)), s.Pan.X, s.Pan.Y)
}

// Unconstrained disables pan clamping when used as Limits.Margin.
const Unconstrained = -1

// Limits bound zoom and pan.
type Limits struct {
	MinZoom float64
	MaxZoom float64
	// Step is the factor used by ZoomIn and ZoomOut.
	Step float64
	// Margin is how many screen pixels of the image must stay inside the
	// view on each axis after a pan. Negative disables clamping.
	Margin float64
}

// DefaultLimits match the classic viewer toolbar.
var DefaultLimits = Limits{MinZoom: 0.1, MaxZoom: 5.0, Step: 1.2, Margin: 32}

func (l Limits) clampZoom(z float64) float64 {
	if l.MinZoom > 0 && z < l.MinZoom {
		z = l.MinZoom
	}
	if l.MaxZoom > 0 && z > l.MaxZoom {
		z = l.MaxZoom
	}
	return z
}

// Fit returns a state showing the whole image centered in the view.
func (l Limits) Fit(img, view Size) State {
	s := State{Zoom: 1, Image: img, View: view}
	if img.W <= 0 || img.H <= 0 || view.W <= 0 || view.H <= 0 {
		return s
	}

	s.Zoom = l.clampZoom(math.Min(view.W/img.W, view.H/img.H))
	return center(s)
}

// Reset shows the image at 100%, centered.
func (l Limits) Reset(s State) State {
	s.Zoom = l.clampZoom(1)
	return center(s)
}

func center(s State) State {
	s.Pan = Point{
		X: (s.View.W - s.Image.W*s.Zoom) / 2,
		Y: (s.View.H - s.Image.H*s.Zoom) / 2,
	}
	return s
}

// ZoomBy scales the zoom by factor, keeping the image point under anchor fixed on screen.
func (l Limits) ZoomBy(s State, factor float64, anchor Point) State {
	if s.Zoom <= 0 || factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return s
	}

	z := l.clampZoom(s.Zoom * factor)
	r := z / s.Zoom
	s.Pan = Point{
		X: anchor.X - (anchor.X-s.Pan.X)*r,
		Y: anchor.Y - (anchor.Y-s.Pan.Y)*r,
	}
	s.Zoom = z
	return s
}

// ZoomIn zooms by Step around the view center.
func (l Limits) ZoomIn(s State) State {
	return l.ZoomBy(s, l.step(), Point{X: s.View.W / 2, Y: s.View.H / 2})
}

// ZoomOut zooms by 1/Step around the view center.
func (l Limits) ZoomOut(s State) State {
	return l.ZoomBy(s, 1/l.step(), Point{X: s.View.W / 2, Y: s.View.H / 2})
}

func (l Limits) step() float64 {
	if l.Step <= 1 {
		return DefaultLimits.Step
	}
	return l.Step
}

// PanBy moves the image by d screen pixels, clamped by Margin.
func (l Limits) PanBy(s State, d Point) State {
	s.Pan.X += d.X
	s.Pan.Y += d.Y
	if l.Margin < 0 {
		return s
	}

	s.Pan.X = clampAxis(s.Pan.X, s.Image.W*s.Zoom, s.View.W, l.Margin)
	s.Pan.Y = clampAxis(s.Pan.Y, s.Image.H*s.Zoom, s.View.H, l.Margin)
	return s
}

// clampAxis keeps at least margin pixels of a span of length extent inside [0, view].
func clampAxis(pan, extent, view, margin float64) float64 {
	if view <= 0 || extent <= 0 {
		return pan
	}
	m := math.Min(margin, math.Min(extent, view))
	lo, hi := m-extent, view-m
	return math.Max(lo, math.Min(pan, hi))
}

// ScreenToImage converts a screen point to image coordinates.
func ScreenToImage(s State, p Point) Point {
	return Point{X: (p.X - s.Pan.X) / s.Zoom, Y: (p.Y - s.Pan.Y) / s.Zoom}
}

// ImageToScreen converts an image point to screen coordinates.
func ImageToScreen(s State, p Point) Point {
	return Point{X: p.X*s.Zoom + s.Pan.X, Y: p.Y*s.Zoom + s.Pan.Y}
}

// Visible returns the image-space rectangle currently inside the view,
// clipped to the image.
func Visible(s State) (Point, Point) {
	a := ScreenToImage(s, Point{})
	b := ScreenToImage(s, Point{X: s.View.W, Y: s.View.H})
	a.X, a.Y = math.Max(a.X, 0), math.Max(a.Y, 0)
	b.X, b.Y = math.Min(b.X, s.Image.W), math.Min(b.Y, s.Image.H)
	return a, b
}
