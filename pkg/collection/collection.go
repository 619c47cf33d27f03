// Package collection tracks an ordered, selectable set of images destined for a document.
package collection

import (
	"errors"
	"fmt"
	"image/color"
	"slices"
	"sort"
	"sync"

	"k8s.io/klog/v2"
)

// ErrUnknownEntry is returned when an operation names an id that is not in the collection.
var ErrUnknownEntry = errors.New("unknown entry")

// AddError records a file that could not be added.
type AddError struct {
	Path string
	Err  error
}

func (e *AddError) Error() string {
	return fmt.Sprintf("add %s: %v", e.Path, e.Err)
}

func (e *AddError) Unwrap() error {
	return e.Err
}

// Options configure a Collection.
type Options struct {
	// ThumbSize is the thumbnail bounding box edge in pixels.
	ThumbSize int
	// Dater decides creation time; defaults to file modification time.
	Dater Dater
	// Background fills transparent areas of thumbnails; nil means white.
	Background color.Color
}

func (o Options) withDefaults() Options {
	if o.Dater == nil {
		o.Dater = ModTimeDater{}
	}
	if o.ThumbSize <= 0 {
		o.ThumbSize = DefaultThumbSize
	}
	if o.Background == nil {
		o.Background = color.White
	}
	return o
}

// Snapshot is an immutable copy of the collection order.
type Snapshot []Entry

// Collection is an ordered list of entries with a selection.
// Position is the index in items and is never stored elsewhere.
type Collection struct {
	mu       sync.Mutex
	items    []*Entry
	selected map[ID]struct{}
	opts     Options
}

// New returns an empty collection.
func New(o Options) *Collection {
	return &Collection{
		selected: map[ID]struct{}{},
		opts:     o.withDefaults(),
	}
}

// load reads path and builds its thumbnail, which fully decodes the source.
func (c *Collection) load(path string) (*Entry, error) {
	e, err := Read(path, c.opts)
	if err != nil {
		return nil, err
	}
	if _, err := e.Thumbnail(); err != nil {
		return nil, err
	}
	return e, nil
}

// Add appends the image at path.
func (c *Collection) Add(path string) (ID, error) {
	e, err := c.load(path)
	if err != nil {
		return "", &AddError{Path: path, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, e)
	return e.ID, nil
}

// AddAll adds a batch of files, ordered by creation time (ties keep input order),
// after any existing entries. Files that fail are skipped and reported.
func (c *Collection) AddAll(paths []string) ([]ID, []*AddError) {
	var failed []*AddError
	es := make([]*Entry, 0, len(paths))

	for _, p := range paths {
		e, err := c.load(p)
		if err != nil {
			klog.Warningf("skipping %s: %v", p, err)
			failed = append(failed, &AddError{Path: p, Err: err})
			continue
		}
		es = append(es, e)
	}

	sort.SliceStable(es, func(i, j int) bool {
		return es[i].Created.Before(es[j].Created)
	})

	ids := make([]ID, 0, len(es))
	for _, e := range es {
		ids = append(ids, e.ID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, es...)
	klog.V(1).Infof("added %d of %d files, collection now has %d", len(es), len(paths), len(c.items))
	return ids, failed
}

// Remove deletes the given entries and their selection. Unknown ids are ignored.
func (c *Collection) Remove(ids ...ID) {
	gone := make(map[ID]bool, len(ids))
	for _, id := range ids {
		gone[id] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = slices.DeleteFunc(c.items, func(e *Entry) bool {
		return gone[e.ID]
	})
	for id := range gone {
		delete(c.selected, id)
	}
}

// RemoveSelected deletes every selected entry and returns how many were removed.
func (c *Collection) RemoveSelected() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := len(c.items)
	c.items = slices.DeleteFunc(c.items, func(e *Entry) bool {
		_, ok := c.selected[e.ID]
		return ok
	})
	c.selected = map[ID]struct{}{}
	return before - len(c.items)
}

// Clear removes every entry.
func (c *Collection) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.selected = map[ID]struct{}{}
}

// MoveToIndex moves an entry to target, clamped to the valid range.
// The relative order of all other entries is preserved.
func (c *Collection) MoveToIndex(id ID, target int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownEntry, id)
	}

	e := c.items[i]
	c.items = slices.Delete(c.items, i, i+1)
	target = max(0, min(target, len(c.items)))
	c.items = slices.Insert(c.items, target, e)
	return nil
}

// Toggle flips the selection of id and returns whether it is now selected.
// Unknown ids are ignored.
func (c *Collection) Toggle(id ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.indexOf(id) < 0 {
		return false
	}
	if _, ok := c.selected[id]; ok {
		delete(c.selected, id)
		return false
	}
	c.selected[id] = struct{}{}
	return true
}

// SelectRange selects every entry between from and to inclusive, in either order.
// Unknown ids are ignored.
func (c *Collection) SelectRange(from, to ID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, j := c.indexOf(from), c.indexOf(to)
	if i < 0 || j < 0 {
		return
	}
	if i > j {
		i, j = j, i
	}
	for _, e := range c.items[i : j+1] {
		c.selected[e.ID] = struct{}{}
	}
}

// SelectAll selects every entry.
func (c *Collection) SelectAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.items {
		c.selected[e.ID] = struct{}{}
	}
}

// ClearSelection deselects everything.
func (c *Collection) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = map[ID]struct{}{}
}

// IsSelected reports whether id is selected.
func (c *Collection) IsSelected(id ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.selected[id]
	return ok
}

// Selected returns the selected ids in collection order.
func (c *Collection) Selected() []ID {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := []ID{}
	for _, e := range c.items {
		if _, ok := c.selected[e.ID]; ok {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// Len returns the number of entries.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// IndexOf returns the 0-indexed position of id, or -1.
func (c *Collection) IndexOf(id ID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indexOf(id)
}

// Get returns a copy of the entry for id.
func (c *Collection) Get(id ID) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(id); i >= 0 {
		return *c.items[i], true
	}
	return Entry{}, false
}

// Snapshot returns a copy of the current order. Later mutation of the
// collection does not affect it.
func (c *Collection) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := make(Snapshot, len(c.items))
	for i, e := range c.items {
		s[i] = *e
	}
	return s
}

func (c *Collection) indexOf(id ID) int {
	return slices.IndexFunc(c.items, func(e *Entry) bool {
		return e.ID == id
	})
}
