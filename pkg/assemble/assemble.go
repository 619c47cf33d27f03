// Package assemble turns an ordered collection snapshot into a multi-page PDF.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"time"

	"k8s.io/klog/v2"

	"github.com/tstromberg/pic2pdf/pkg/collection"
	"github.com/tstromberg/pic2pdf/pkg/compose"
)

var (
	// ErrEmptyCollection is returned when there is nothing to assemble.
	ErrEmptyCollection = errors.New("empty collection")
	// ErrOutputWrite is returned when the destination cannot be written.
	ErrOutputWrite = errors.New("output write failed")
	// ErrDocument is returned when the PDF itself can no longer be extended.
	// It ends the build under every policy.
	ErrDocument = errors.New("pdf document failed")
)

// Policy decides what happens when a single image fails.
type Policy int

const (
	// StopOnError aborts the build at the first failing image.
	StopOnError Policy = iota
	// SkipFailed leaves failing images out and records them in Result.Failed.
	SkipFailed
)

func (p Policy) String() string {
	switch p {
	case StopOnError:
		return "stop"
	case SkipFailed:
		return "skip"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy accepts "stop" or "skip".
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "stop":
		return StopOnError, nil
	case "skip":
		return SkipFailed, nil
	}
	return StopOnError, fmt.Errorf("unknown failure policy %q", s)
}

// Observer is told about each completed page. Calls are made one at a time,
// in page order, from a single goroutine, and may continue briefly after
// Build returns. Events are dropped while a slow observer has a full backlog.
type Observer interface {
	PageCompleted(index, total int)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(index, total int)

// PageCompleted calls f.
func (f ObserverFunc) PageCompleted(index, total int) { f(index, total) }

// DefaultObserverWait bounds how long Build waits for an Observer call.
const DefaultObserverWait = 250 * time.Millisecond

// Options control a build.
type Options struct {
	Geometry compose.Geometry
	Compose  compose.Options
	Policy   Policy
	// Quality is the JPEG quality of embedded pages (1-100).
	Quality  int
	Observer Observer
	// ObserverWait is how long to wait for each Observer call before moving on.
	ObserverWait time.Duration
	Title        string
	Author       string
}

// DefaultOptions produce A4 pages on white, stopping at the first error.
var DefaultOptions = Options{
	Geometry:     compose.A4,
	Compose:      compose.DefaultOptions,
	Policy:       StopOnError,
	Quality:      90,
	ObserverWait: DefaultObserverWait,
}

// PageError identifies the image that could not be processed.
type PageError struct {
	// Index is the 0-indexed snapshot position.
	Index int
	Total int
	Entry collection.Entry
	Err   error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("image %d of %d (%s) could not be processed: %v", e.Index+1, e.Total, e.Entry.Path, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// Result describes a finished build.
type Result struct {
	Pages  int
	Failed []*PageError
}

// Build composites every entry of snap onto its own page and hands the
// document to sink. Cancellation is checked between pages. Nothing reaches
// the sink unless every page was processed under the chosen policy.
func Build(ctx context.Context, snap collection.Snapshot, sink Sink, o Options) (*Result, error) {
	res := &Result{}
	total := len(snap)
	if total == 0 {
		return res, ErrEmptyCollection
	}
	if !o.Geometry.Valid() {
		o.Geometry = DefaultOptions.Geometry
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultOptions.Quality
	}
	if o.ObserverWait <= 0 {
		o.ObserverWait = DefaultObserverWait
	}

	klog.Infof("assembling %d images onto %s pages (policy: %s)", total, o.Geometry, o.Policy)
	doc := openDocument(o.Geometry, o.Quality, o.Title, o.Author)
	prog := newProgress(o.Observer, o.ObserverWait)
	defer prog.close()

	for i, e := range snap {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("cancelled before image %d of %d: %w", i+1, total, err)
		}

		if err := page(doc, e, o); err != nil {
			pe := &PageError{Index: i, Total: total, Entry: e, Err: err}
			if o.Policy != SkipFailed || errors.Is(err, ErrDocument) {
				return res, pe
			}
			klog.Warningf("skipping: %v", pe)
			res.Failed = append(res.Failed, pe)
			continue
		}

		res.Pages++
		klog.V(1).Infof("page %d/%d: %s", i+1, total, e.Path)
		prog.notify(i, total)
	}

	if res.Pages == 0 {
		return res, fmt.Errorf("%w: all %d images failed", ErrEmptyCollection, total)
	}
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("cancelled before writing: %w", err)
	}
	if err := sink.WriteDocument(ctx, doc); err != nil {
		return res, err
	}
	return res, nil
}

// page decodes, composites and appends a single entry. The decoded raster
// and the composite are garbage once it returns.
func page(doc *document, e collection.Entry, o Options) error {
	img, err := compose.Open(e.Path)
	if err != nil {
		return err
	}
	p, err := compose.Composite(img, o.Geometry, o.Compose)
	if err != nil {
		return err
	}
	return doc.addPage(p)
}

// observerBacklog bounds the events queued behind a slow observer.
const observerBacklog = 16

type event struct {
	index, total int
	done         chan struct{}
}

// progress delivers page events to an Observer from one goroutine.
type progress struct {
	ob     Observer
	events chan event
	wait   time.Duration
}

func newProgress(ob Observer, wait time.Duration) *progress {
	if ob == nil {
		return nil
	}
	p := &progress{ob: ob, events: make(chan event, observerBacklog), wait: wait}
	go p.run()
	return p
}

func (p *progress) run() {
	for ev := range p.events {
		p.ob.PageCompleted(ev.index, ev.total)
		close(ev.done)
	}
}

// notify queues an event and waits at most p.wait for the observer to handle it.
func (p *progress) notify(index, total int) {
	if p == nil {
		return
	}

	ev := event{index: index, total: total, done: make(chan struct{})}
	select {
	case p.events <- ev:
	default:
		klog.V(1).Infof("observer backlog full; dropping page %d event", index+1)
		return
	}

	t := time.NewTimer(p.wait)
	defer t.Stop()
	select {
	case <-ev.done:
	case <-t.C:
		klog.V(1).Infof("observer still busy at page %d after %s; continuing", index+1, p.wait)
	}
}

// close lets the delivery goroutine exit once queued events are handled.
func (p *progress) close() {
	if p == nil {
		return
	}
	close(p.events)
}
