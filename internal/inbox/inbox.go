// Package inbox automates the web mail client through a dom.Document and a
// dom.Input. All markup knowledge comes from a selectors.Set.
//
// Operations either fail open or fail loudly, and each method says which:
// fail-open methods report a missing element through their result, failing
// methods return an error wrapping dom.ErrNotFound. Backend errors always
// propagate.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/bscott/inboxctl/internal/dom"
	"github.com/bscott/inboxctl/internal/selectors"
	"github.com/bscott/inboxctl/internal/wait"
)

// Timing holds the delays the adapter waits on the web client's own UI.
type Timing struct {
	PollInterval   time.Duration
	ComposeTimeout time.Duration
	FocusDelay     time.Duration
}

// DefaultTiming matches the web client's own animation and load delays.
func DefaultTiming() Timing {
	return Timing{
		PollInterval:   100 * time.Millisecond,
		ComposeTimeout: 2 * time.Second,
		FocusDelay:     500 * time.Millisecond,
	}
}

// Adapter answers queries about the page and drives it.
type Adapter struct {
	doc    dom.Document
	input  dom.Input
	sel    *selectors.Set
	timing Timing
	logger *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithSelectors replaces the built-in selector set. A nil set is ignored.
func WithSelectors(s *selectors.Set) Option {
	return func(a *Adapter) {
		if s != nil {
			a.sel = s
		}
	}
}

// WithTiming sets the polling and delay budget.
func WithTiming(t Timing) Option {
	return func(a *Adapter) { a.timing = t }
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// New returns an adapter over doc that synthesizes pointer input via input.
func New(doc dom.Document, input dom.Input, opts ...Option) *Adapter {
	a := &Adapter{
		doc:    doc,
		input:  input,
		sel:    selectors.Default(),
		timing: DefaultTiming(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("selectors", a.sel.Version)
	return a
}

// Selectors returns the set in use.
func (a *Adapter) Selectors() *selectors.Set {
	return a.sel
}

// IsReady reports whether the document has finished loading.
func (a *Adapter) IsReady(ctx context.Context) (bool, error) {
	state, err := a.doc.ReadyState(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read document state: %w", err)
	}
	return state == "complete", nil
}

// UnreadCount returns the number of visible unread items. A cluster counts
// once no matter how many bold messages it holds.
func (a *Adapter) UnreadCount(ctx context.Context) (int, error) {
	nodes, err := a.doc.QueryAll(ctx, dom.Query{
		Selector: a.sel.Items,
		Closest:  a.sel.Cluster,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to query items: %w", err)
	}

	messages := make(map[string]struct{})
	clusters := make(map[string]struct{})
	for _, n := range nodes {
		if !isUnread(n) {
			continue
		}
		if n.Closest != "" {
			clusters[n.Closest] = struct{}{}
		} else {
			messages[n.Ref] = struct{}{}
		}
	}

	a.logger.Debug("counted unread",
		"items", len(nodes), "messages", len(messages), "clusters", len(clusters))
	return len(messages) + len(clusters), nil
}

func isUnread(n dom.Node) bool {
	return !strings.EqualFold(n.Tag, "IMG") && isBold(n.Style.FontWeight)
}

// isBold accepts both keyword and numeric computed weights.
func isBold(weight string) bool {
	switch strings.ToLower(strings.TrimSpace(weight)) {
	case "bold", "bolder":
		return true
	}
	w, err := strconv.Atoi(strings.TrimSpace(weight))
	return err == nil && w >= 700
}

// IsInboxTabVisible reports whether the first navigation item is
// highlighted. It fails with dom.ErrNotFound when the item is absent.
func (a *Adapter) IsInboxTabVisible(ctx context.Context) (bool, error) {
	n, err := a.doc.Query(ctx, dom.Query{Selector: a.sel.InboxTab})
	if err != nil {
		return false, fmt.Errorf("inbox tab: %w", err)
	}
	return !isTransparent(n.Style.BackgroundColor), nil
}

// isTransparent reports a zero-alpha or keyword-transparent colour. Colours
// without an alpha component are opaque.
func isTransparent(color string) bool {
	c := strings.ToLower(strings.TrimSpace(color))
	if c == "transparent" {
		return true
	}

	fn, args, ok := strings.Cut(c, "(")
	if !ok || !strings.HasSuffix(args, ")") {
		return false
	}
	switch strings.TrimSpace(fn) {
	case "rgb", "rgba", "hsl", "hsla":
	default:
		return false
	}
	args = strings.TrimSuffix(args, ")")

	var alpha string
	if _, a, slash := strings.Cut(args, "/"); slash {
		alpha = a
	} else {
		parts := strings.Split(args, ",")
		if len(parts) != 4 {
			return false
		}
		alpha = parts[3]
	}

	alpha = strings.TrimSpace(alpha)
	if pct, isPct := strings.CutSuffix(alpha, "%"); isPct {
		alpha = pct
	}
	v, err := strconv.ParseFloat(alpha, 64)
	return err == nil && v == 0
}

// IsPinnedToggled reports whether the pinned filter is on. It fails open:
// an absent toggle reads as false.
func (a *Adapter) IsPinnedToggled(ctx context.Context) (bool, error) {
	n, err := a.doc.Query(ctx, dom.Query{Selector: a.sel.PinnedToggle})
	if errors.Is(err, dom.ErrNotFound) {
		a.logger.Debug("pinned toggle not found")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("pinned toggle: %w", err)
	}
	v, _ := n.Attr("aria-pressed")
	return v == "true", nil
}

// Status is a one-shot view of the page's semantic state.
type Status struct {
	Ready           bool   `json:"ready"`
	Unread          int    `json:"unread"`
	InboxTabVisible bool   `json:"inbox_tab_visible"`
	Pinned          bool   `json:"pinned"`
	Selectors       string `json:"selectors"`
}

// Status gathers every query. A page that is still loading reports only
// Ready=false; a missing inbox tab reads as not visible.
func (a *Adapter) Status(ctx context.Context) (Status, error) {
	st := Status{Selectors: a.sel.Version}

	ready, err := a.IsReady(ctx)
	if err != nil {
		return st, err
	}
	st.Ready = ready
	if !ready {
		return st, nil
	}

	if st.Unread, err = a.UnreadCount(ctx); err != nil {
		return st, err
	}
	st.InboxTabVisible, err = a.IsInboxTabVisible(ctx)
	if err != nil && !errors.Is(err, dom.ErrNotFound) {
		return st, err
	}
	if st.Pinned, err = a.IsPinnedToggled(ctx); err != nil {
		return st, err
	}
	return st, nil
}

// WatchUnread polls the unread count every interval and calls fn with the
// first value and every change after it. Query errors are logged and the
// watch continues. It returns when ctx is done.
func (a *Adapter) WatchUnread(ctx context.Context, interval time.Duration, fn func(int)) error {
	last := -1
	return wait.Until(ctx, interval, 0, func(ctx context.Context) (bool, error) {
		n, err := a.UnreadCount(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			a.logger.Warn("unread count failed", "err", err)
			return false, nil
		}
		if n != last {
			last = n
			fn(n)
		}
		return false, nil
	})
}
