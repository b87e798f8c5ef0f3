package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/ImageFinder/internal/imagegen"
)

// DefaultWindowSize is how many items one window covers.
const DefaultWindowSize = 5

// Processor errors.
var (
	ErrInvalidWindowSize = errors.New("window size must be at least 1")
	ErrNilFetcher        = errors.New("image fetcher cannot be nil")
	ErrDuplicateItemID   = errors.New("duplicate work item id")
)

// Observer is invoked after every status transition of an item. It runs
// without the processor lock held and may read the processor. Calls for the
// same item arrive in transition order, so an observer must not change the
// item it is told about.
type Observer func(item WorkItem, status ItemStatus)

// Processor owns the status of a fixed list of work items and fetches their
// images one window at a time.
//
// A window is the contiguous slice [cursor, cursor+W). Only one window can
// be in flight; its Pending items are fetched concurrently and the window
// settles once every one of them reached Done or Failed. The cursor moves
// forward by W only when the caller asks for the next window.
type Processor struct {
	fetcher  imagegen.Fetcher
	size     int
	items    []WorkItem
	position map[int]int // item ID -> index into items
	observer Observer
	ordering []sync.Mutex // per item, held from status write to notify

	mu       sync.Mutex
	status   []ItemStatus // parallel to items
	cursor   int
	started  bool
	inFlight bool
	current  *Window
}

// NewProcessor creates a processor for items. Every item starts Pending.
func NewProcessor(items []WorkItem, fetcher imagegen.Fetcher, windowSize int) (*Processor, error) {
	if windowSize < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWindowSize, windowSize)
	}
	if fetcher == nil {
		return nil, ErrNilFetcher
	}

	p := &Processor{
		fetcher:  fetcher,
		size:     windowSize,
		items:    make([]WorkItem, len(items)),
		position: make(map[int]int, len(items)),
		status:   make([]ItemStatus, len(items)),
		ordering: make([]sync.Mutex, len(items)),
	}
	copy(p.items, items)
	for i, item := range p.items {
		if _, dup := p.position[item.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateItemID, item.ID)
		}
		p.position[item.ID] = i
		p.status[i] = Pending{}
	}
	return p, nil
}

// WithObserver sets the transition callback. It must be called before the
// first window is dispatched.
func (p *Processor) WithObserver(o Observer) *Processor {
	p.observer = o
	return p
}

// Window is a dispatched slice of the work list.
type Window struct {
	Start int   // first position covered
	End   int   // one past the last position covered
	Items []int // IDs of the items that were dispatched

	done chan struct{}
}

// Done is closed once every dispatched item settled.
func (w *Window) Done() <-chan struct{} {
	return w.done
}

// Wait blocks until the window settled.
func (w *Window) Wait() {
	<-w.done
}

// AdvanceWindow dispatches the next window and returns it. The first call
// covers [0, W); each later call moves the cursor forward by W. It returns
// nil without side effects while a window is in flight or when no further
// window exists.
//
// Items in the window that already left Pending are not fetched again. The
// dispatched items are Loading when AdvanceWindow returns. Fetches are not
// tied to ctx cancellation; they always run to completion.
func (p *Processor) AdvanceWindow(ctx context.Context) *Window {
	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		return nil
	}

	start := 0
	if p.started {
		start = p.cursor + p.size
	}
	if start >= len(p.items) {
		p.mu.Unlock()
		return nil
	}
	end := min(start+p.size, len(p.items))

	p.cursor = start
	p.started = true

	w := &Window{Start: start, End: end, done: make(chan struct{})}
	var dispatch []int
	for pos := start; pos < end; pos++ {
		if _, ok := p.status[pos].(Pending); !ok {
			continue
		}
		p.status[pos] = Loading{}
		dispatch = append(dispatch, pos)
		w.Items = append(w.Items, p.items[pos].ID)
	}

	if len(dispatch) == 0 {
		p.mu.Unlock()
		close(w.done)
		return w
	}
	p.inFlight = true
	p.current = w
	p.mu.Unlock()

	for _, pos := range dispatch {
		p.notify(pos, Loading{})
	}

	slog.Debug("window dispatched", "start", start, "end", end, "items", len(dispatch))
	go p.run(context.WithoutCancel(ctx), w, dispatch)

	return w
}

// run fetches every dispatched position concurrently and clears the
// in-flight flag after the join.
func (p *Processor) run(ctx context.Context, w *Window, positions []int) {
	var g errgroup.Group
	for _, pos := range positions {
		g.Go(func() error {
			p.fetch(ctx, pos)
			return nil
		})
	}
	_ = g.Wait()

	p.mu.Lock()
	p.inFlight = false
	p.current = nil
	p.mu.Unlock()

	close(w.done)
	slog.Debug("window settled", "start", w.Start, "end", w.End)
}

// fetch resolves a single item. Any failure, including a panic in the
// fetcher, ends in Failed so the item never stays Loading.
func (p *Processor) fetch(ctx context.Context, pos int) {
	item := p.items[pos]

	var next ItemStatus
	defer func() {
		if r := recover(); r != nil {
			slog.Error("image fetch panicked", "item_id", item.ID, "panic", r)
			next = Failed{Reason: ReasonFailed, Failure: imagegen.FailureGeneric}
		}
		p.settle(pos, next)
	}()

	urls, err := p.fetcher.Fetch(ctx, item.Name)
	if err != nil {
		next = failedFrom(err)
		return
	}
	done, err := NewDone(item.ID, urls)
	if err != nil {
		slog.Warn("image fetch returned no images", "item_id", item.ID)
		next = Failed{Reason: ReasonFailed, Failure: imagegen.FailureGeneric}
		return
	}
	next = done
}

func (p *Processor) settle(pos int, st ItemStatus) {
	p.ordering[pos].Lock()
	defer p.ordering[pos].Unlock()

	p.mu.Lock()
	p.status[pos] = st
	p.mu.Unlock()
	p.notify(pos, st)
}

func (p *Processor) notify(pos int, st ItemStatus) {
	if p.observer != nil {
		p.observer(p.items[pos], st)
	}
}

// SelectImage makes imageID the selection of item itemID. It reports whether
// the selection was applied; unknown items, items that are not Done and
// images belonging to other items are ignored.
func (p *Processor) SelectImage(itemID int, imageID string) bool {
	pos, ok := p.position[itemID]
	if !ok {
		return false
	}

	p.ordering[pos].Lock()
	defer p.ordering[pos].Unlock()

	p.mu.Lock()
	done, ok := p.status[pos].(Done)
	if !ok {
		p.mu.Unlock()
		return false
	}
	next, ok := done.withSelected(imageID)
	if !ok {
		p.mu.Unlock()
		return false
	}
	p.status[pos] = next
	p.mu.Unlock()

	p.notify(pos, next)
	return true
}

// Status returns the current status of an item.
func (p *Processor) Status(itemID int) (ItemStatus, bool) {
	pos, ok := p.position[itemID]
	if !ok {
		return nil, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status[pos], true
}

// Item returns the work item with the given id.
func (p *Processor) Item(itemID int) (WorkItem, bool) {
	pos, ok := p.position[itemID]
	if !ok {
		return WorkItem{}, false
	}
	return p.items[pos], true
}

// Items returns the work list.
func (p *Processor) Items() []WorkItem {
	out := make([]WorkItem, len(p.items))
	copy(out, p.items)
	return out
}

// Processed counts items that are Done or Failed.
func (p *Processor) Processed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processedLocked()
}

func (p *Processor) processedLocked() int {
	n := 0
	for _, st := range p.status {
		switch st.(type) {
		case Done, Failed:
			n++
		}
	}
	return n
}

// SelectedCount counts items with a selected image.
func (p *Processor) SelectedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selectedLocked()
}

func (p *Processor) selectedLocked() int {
	n := 0
	for _, st := range p.status {
		if d, ok := st.(Done); ok {
			if _, sel := d.Selected(); sel {
				n++
			}
		}
	}
	return n
}

// HasNext reports whether AdvanceWindow would dispatch another window once
// the current one settled. Before the first window it is true for any
// non-empty list, since the first call dispatches [0, W) rather than moving
// the cursor; afterwards it is cursor+W < total.
func (p *Processor) HasNext() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasNextLocked()
}

func (p *Processor) hasNextLocked() bool {
	if !p.started {
		return len(p.items) > 0
	}
	return p.cursor+p.size < len(p.items)
}

// InFlight reports whether a window is being fetched.
func (p *Processor) InFlight() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

// Cursor returns the start of the current window.
func (p *Processor) Cursor() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// WindowSize returns W.
func (p *Processor) WindowSize() int {
	return p.size
}

// Wait blocks until the in-flight window, if any, settled or ctx is done.
func (p *Processor) Wait(ctx context.Context) error {
	p.mu.Lock()
	w := p.current
	p.mu.Unlock()
	if w == nil {
		return nil
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a consistent copy of the whole state.
func (p *Processor) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	views := make([]ItemView, len(p.items))
	for i, item := range p.items {
		views[i] = viewOf(item, p.status[i])
	}
	return Snapshot{
		Items:     views,
		Total:     len(p.items),
		Processed: p.processedLocked(),
		Selected:  p.selectedLocked(),
		Cursor:    p.cursor,
		HasNext:   p.hasNextLocked(),
		InFlight:  p.inFlight,
	}
}

// Selection pairs an item with its selected image.
type Selection struct {
	Item  WorkItem
	Image ImageResult
}

// Selections returns every item that has a selected image, in list order.
func (p *Processor) Selections() []Selection {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []Selection
	for i, st := range p.status {
		d, ok := st.(Done)
		if !ok {
			continue
		}
		if img, ok := d.Selected(); ok {
			out = append(out, Selection{Item: p.items[i], Image: img})
		}
	}
	return out
}
