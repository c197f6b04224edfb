// Package dom describes the page surface the inbox adapter drives: a handful
// of document primitives and a low-level input synthesizer. Backends live in
// internal/browser (chromedp) and in this package (Fixture, for tests).
package dom

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an element an operation requires is absent.
var ErrNotFound = errors.New("element not found")

// Rect is an element's bounding client rectangle in CSS pixels.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Style holds the computed style properties the adapter reads.
type Style struct {
	FontWeight      string `json:"fontWeight"`
	BackgroundColor string `json:"backgroundColor"`
	Display         string `json:"display"`
}

// Node is a snapshot of one element taken at query time.
type Node struct {
	// Ref addresses the element again in later calls.
	Ref        string            `json:"ref"`
	Tag        string            `json:"tag"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Style      Style             `json:"style"`
	Rect       Rect              `json:"rect"`
	// Closest is the ref of the nearest ancestor-or-self matching
	// Query.Closest, empty when there is none.
	Closest string `json:"closest,omitempty"`
	// Parent is set only when Query.WithParent is true.
	Parent string `json:"parent,omitempty"`
}

// Attr returns the named attribute and whether it is present.
func (n Node) Attr(name string) (string, bool) {
	v, ok := n.Attributes[name]
	return v, ok
}

// Query selects elements.
type Query struct {
	Selector string
	// Within limits the search to descendants of the referenced element.
	Within     string
	Closest    string
	WithParent bool
}

// Event is a synthetic DOM event dispatched on an element.
type Event struct {
	Type       string
	Bubbles    bool
	Cancelable bool
}

// Document is the live page.
type Document interface {
	ReadyState(ctx context.Context) (string, error)
	// QueryAll returns every match in document order.
	QueryAll(ctx context.Context, q Query) ([]Node, error)
	// Query returns the first match or ErrNotFound.
	Query(ctx context.Context, q Query) (Node, error)
	Click(ctx context.Context, ref string) error
	SetValue(ctx context.Context, ref, value string) error
	PrependHTML(ctx context.Context, ref, html string) error
	SetStyle(ctx context.Context, ref, property, value string) error
	Focus(ctx context.Context, ref string) error
	Dispatch(ctx context.Context, ref string, ev Event) error
}

// MouseEventType is the kind of a synthesized pointer event.
type MouseEventType string

const (
	MouseDown MouseEventType = "mouseDown"
	MouseUp   MouseEventType = "mouseUp"
)

// MouseEvent is a low-level pointer event in viewport coordinates.
type MouseEvent struct {
	Type       MouseEventType
	X          float64
	Y          float64
	Button     string
	ClickCount int
}

// Input injects low-level events into the page the way a user would, below
// any page event handlers.
type Input interface {
	DispatchMouse(ctx context.Context, ev MouseEvent) error
}
