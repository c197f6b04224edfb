package dom

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Element is a node of a Fixture document. Matches lists the selectors the
// element answers to; the fixture does no CSS parsing of its own.
type Element struct {
	Ref        string
	Tag        string
	Attributes map[string]string
	Style      Style
	Rect       Rect
	Parent     *Element
	Matches    []string
	// OnClick runs after a Click on this element, outside the fixture lock.
	OnClick func()

	Value   string
	HTML    string
	Focused bool
	Styles  map[string]string
}

// DispatchedEvent records an Event fired through Fixture.Dispatch together
// with the target's value at that moment.
type DispatchedEvent struct {
	Ref   string
	Event Event
	Value string
}

// Fixture is an in-memory Document and Input for acceptance tests.
type Fixture struct {
	mu         sync.Mutex
	readyState string
	elements   []*Element
	next       int

	Events  []DispatchedEvent
	Mouse   []MouseEvent
	Clicks  []string
	Queries int
}

// NewFixture returns an empty, fully loaded document.
func NewFixture() *Fixture {
	return &Fixture{readyState: "complete"}
}

// SetReadyState changes document.readyState.
func (f *Fixture) SetReadyState(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readyState = s
}

// Add appends e in document order and returns it.
func (f *Fixture) Add(e *Element) *Element {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	if e.Ref == "" {
		e.Ref = fmt.Sprintf("fx-%d", f.next)
	}
	if e.Styles == nil {
		e.Styles = map[string]string{}
	}
	f.elements = append(f.elements, e)
	return e
}

// Snapshot returns a copy of the element with the given ref.
func (f *Fixture) Snapshot(ref string) (Element, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.lookup(ref)
	if e == nil {
		return Element{}, false
	}
	cp := *e
	cp.Styles = make(map[string]string, len(e.Styles))
	for k, v := range e.Styles {
		cp.Styles[k] = v
	}
	return cp, true
}

func (f *Fixture) lookup(ref string) *Element {
	for _, e := range f.elements {
		if e.Ref == ref {
			return e
		}
	}
	return nil
}

func (e *Element) matches(sel string) bool {
	return slices.Contains(e.Matches, sel)
}

func (e *Element) within(ref string) bool {
	for p := e.Parent; p != nil; p = p.Parent {
		if p.Ref == ref {
			return true
		}
	}
	return false
}

func (e *Element) closest(sel string) *Element {
	for p := e; p != nil; p = p.Parent {
		if p.matches(sel) {
			return p
		}
	}
	return nil
}

func (e *Element) node(q Query) Node {
	n := Node{
		Ref:        e.Ref,
		Tag:        e.Tag,
		Attributes: e.Attributes,
		Style:      e.Style,
		Rect:       e.Rect,
	}
	if q.Closest != "" {
		if c := e.closest(q.Closest); c != nil {
			n.Closest = c.Ref
		}
	}
	if q.WithParent && e.Parent != nil {
		n.Parent = e.Parent.Ref
	}
	return n
}

func (f *Fixture) ReadyState(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readyState, ctx.Err()
}

func (f *Fixture) QueryAll(ctx context.Context, q Query) ([]Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queries++
	var out []Node
	for _, e := range f.elements {
		if !e.matches(q.Selector) {
			continue
		}
		if q.Within != "" && !e.within(q.Within) {
			continue
		}
		out = append(out, e.node(q))
	}
	return out, nil
}

func (f *Fixture) Query(ctx context.Context, q Query) (Node, error) {
	nodes, err := f.QueryAll(ctx, q)
	if err != nil {
		return Node{}, err
	}
	if len(nodes) == 0 {
		return Node{}, fmt.Errorf("%s: %w", q.Selector, ErrNotFound)
	}
	return nodes[0], nil
}

// with runs fn on the referenced element under the lock.
func (f *Fixture) with(ctx context.Context, ref string, fn func(e *Element)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.lookup(ref)
	if e == nil {
		return fmt.Errorf("ref %s: %w", ref, ErrNotFound)
	}
	fn(e)
	return nil
}

func (f *Fixture) Click(ctx context.Context, ref string) error {
	var hook func()
	err := f.with(ctx, ref, func(e *Element) {
		f.Clicks = append(f.Clicks, ref)
		hook = e.OnClick
	})
	if err == nil && hook != nil {
		hook()
	}
	return err
}

func (f *Fixture) SetValue(ctx context.Context, ref, value string) error {
	return f.with(ctx, ref, func(e *Element) { e.Value = value })
}

func (f *Fixture) PrependHTML(ctx context.Context, ref, html string) error {
	return f.with(ctx, ref, func(e *Element) { e.HTML = html + e.HTML })
}

func (f *Fixture) SetStyle(ctx context.Context, ref, property, value string) error {
	return f.with(ctx, ref, func(e *Element) { e.Styles[property] = value })
}

func (f *Fixture) Focus(ctx context.Context, ref string) error {
	return f.with(ctx, ref, func(e *Element) {
		for _, o := range f.elements {
			o.Focused = false
		}
		e.Focused = true
	})
}

func (f *Fixture) Dispatch(ctx context.Context, ref string, ev Event) error {
	return f.with(ctx, ref, func(e *Element) {
		f.Events = append(f.Events, DispatchedEvent{Ref: ref, Event: ev, Value: e.Value})
	})
}

// DispatchMouse records the event; the fixture does no hit testing.
func (f *Fixture) DispatchMouse(ctx context.Context, ev MouseEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Mouse = append(f.Mouse, ev)
	return nil
}

// MouseEvents returns a copy of the recorded pointer events.
func (f *Fixture) MouseEvents() []MouseEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.Mouse)
}

// QueryCount reports how many queries the fixture has served.
func (f *Fixture) QueryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Queries
}

var (
	_ Document = (*Fixture)(nil)
	_ Input    = (*Fixture)(nil)
)
