package inbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bscott/inboxctl/internal/dom"
	"github.com/bscott/inboxctl/internal/wait"
)

// Search writes term into the search field and fires one input event so the
// client runs its own query. It fails with dom.ErrNotFound when the field is
// absent.
func (a *Adapter) Search(ctx context.Context, term string) error {
	n, err := a.doc.Query(ctx, dom.Query{Selector: a.sel.SearchInput})
	if err != nil {
		return fmt.Errorf("search field: %w", err)
	}
	if err := a.doc.SetValue(ctx, n.Ref, term); err != nil {
		return fmt.Errorf("failed to set search term: %w", err)
	}
	if err := a.doc.Dispatch(ctx, n.Ref, dom.Event{Type: "input", Bubbles: true, Cancelable: true}); err != nil {
		return fmt.Errorf("failed to dispatch input event: %w", err)
	}
	a.logger.Debug("search started", "term", term)
	return nil
}

// OpenOptions controls the wait for the first search result.
type OpenOptions struct {
	Timeout time.Duration
	Retry   time.Duration
}

func DefaultOpenOptions() OpenOptions {
	return OpenOptions{Timeout: 2 * time.Second, Retry: 100 * time.Millisecond}
}

func (o OpenOptions) withDefaults() OpenOptions {
	d := DefaultOpenOptions()
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.Retry <= 0 {
		o.Retry = d.Retry
	}
	return o
}

// OpenFirstSearchResult waits for the first search result and presses it
// with raw pointer events one pixel inside its top-left corner, below any
// click handlers the client installs. It returns false once the timeout
// elapses without a result.
func (a *Adapter) OpenFirstSearchResult(ctx context.Context, opts OpenOptions) (bool, error) {
	opts = opts.withDefaults()

	var target dom.Node
	err := wait.Until(ctx, opts.Retry, opts.Timeout, func(ctx context.Context) (bool, error) {
		n, err := a.doc.Query(ctx, dom.Query{Selector: a.sel.SearchResult})
		if errors.Is(err, dom.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		target = n
		return true, nil
	})
	if errors.Is(err, wait.ErrTimeout) {
		a.logger.Debug("no search result", "timeout", opts.Timeout)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := a.press(ctx, target.Rect.Left+1, target.Rect.Top+1); err != nil {
		return false, fmt.Errorf("failed to open search result: %w", err)
	}
	return true, nil
}

func (a *Adapter) press(ctx context.Context, x, y float64) error {
	for _, typ := range []dom.MouseEventType{dom.MouseDown, dom.MouseUp} {
		ev := dom.MouseEvent{Type: typ, X: x, Y: y, Button: "left", ClickCount: 1}
		if err := a.input.DispatchMouse(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// Handle controls an OpenFirstSearchResult running in the background.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	cancelled bool
	opened    bool
	err       error
}

// Cancel stops polling. Once Cancel returns the completion callback will
// not run. The callback must not call Cancel itself.
func (h *Handle) Cancel() {
	h.mu.Lock()
	h.cancelled = true
	h.mu.Unlock()
	h.cancel()
}

// Wait blocks until the background poll exits and returns its outcome.
func (h *Handle) Wait() (bool, error) {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.opened, h.err
}

// StartOpenFirstSearchResult runs OpenFirstSearchResult in the background
// and reports the outcome to done, which may be nil.
func (a *Adapter) StartOpenFirstSearchResult(ctx context.Context, opts OpenOptions, done func(opened bool)) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		defer cancel()

		opened, err := a.OpenFirstSearchResult(ctx, opts)

		h.mu.Lock()
		defer h.mu.Unlock()
		h.opened, h.err = opened, err
		if h.cancelled {
			return
		}
		if err != nil {
			a.logger.Warn("open first search result failed", "err", err)
		}
		if done != nil {
			done(opened)
		}
	}()
	return h
}
