package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/input"

	"github.com/bscott/inboxctl/internal/dom"
)

func mouseType(t dom.MouseEventType) (input.MouseType, error) {
	switch t {
	case dom.MouseDown:
		return input.MousePressed, nil
	case dom.MouseUp:
		return input.MouseReleased, nil
	}
	return "", fmt.Errorf("unsupported mouse event %q", t)
}

func mouseParams(ev dom.MouseEvent) (*input.DispatchMouseEventParams, error) {
	typ, err := mouseType(ev.Type)
	if err != nil {
		return nil, err
	}
	button := input.MouseButton(ev.Button)
	if button == "" {
		button = input.Left
	}
	clicks := ev.ClickCount
	if clicks <= 0 {
		clicks = 1
	}
	return input.DispatchMouseEvent(typ, ev.X, ev.Y).
		WithButton(button).
		WithClickCount(int64(clicks)), nil
}

// DispatchMouse sends a trusted pointer event through Input.dispatchMouseEvent.
func (s *Session) DispatchMouse(ctx context.Context, ev dom.MouseEvent) error {
	p, err := mouseParams(ev)
	if err != nil {
		return err
	}
	if err := s.run(ctx, p); err != nil {
		return fmt.Errorf("dispatch %s at (%.0f,%.0f): %w", ev.Type, ev.X, ev.Y, err)
	}
	return nil
}

var (
	_ dom.Document = (*Session)(nil)
	_ dom.Input    = (*Session)(nil)
)
