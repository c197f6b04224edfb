package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/bscott/inboxctl/internal/dom"
)

// refAttr tags elements the session has handed out, so later calls can find
// them again without holding remote object handles across calls.
const refAttr = "data-inboxctl-ref"

// queryJS snapshots every match in one round trip.
const queryJS = `(function (q) {
  const ref = (el) => {
    let id = el.getAttribute(%[1]q);
    if (!id) {
      window.__inboxctlNext = (window.__inboxctlNext || 0) + 1;
      id = "r" + window.__inboxctlNext;
      el.setAttribute(%[1]q, id);
    }
    return id;
  };
  let root = document;
  if (q.within) {
    root = document.querySelector('[%[1]s="' + q.within + '"]');
    if (!root) return [];
  }
  return Array.from(root.querySelectorAll(q.selector)).map((el) => {
    const cs = window.getComputedStyle(el);
    const r = el.getBoundingClientRect();
    const attributes = {};
    for (const a of el.attributes) attributes[a.name] = a.value;
    const n = {
      ref: ref(el),
      tag: el.tagName,
      attributes: attributes,
      style: { fontWeight: cs.fontWeight, backgroundColor: cs.backgroundColor, display: cs.display },
      rect: { left: r.left, top: r.top, width: r.width, height: r.height },
    };
    if (q.closest) {
      const c = el.closest(q.closest);
      if (c) n.closest = ref(c);
    }
    if (q.withParent && el.parentElement) n.parent = ref(el.parentElement);
    return n;
  });
})(%[2]s)`

// actJS applies one mutation to a tagged element and reports whether the
// element still exists.
const actJS = `(function (ref, op, arg) {
  const el = document.querySelector('[%[1]s="' + ref + '"]');
  if (!el) return false;
  switch (op) {
    case "click": el.click(); break;
    case "value": el.value = arg; break;
    case "prepend": el.innerHTML = arg + el.innerHTML; break;
    case "style": el.style.setProperty(arg.property, arg.value); break;
    case "focus": el.focus(); break;
    case "dispatch":
      el.dispatchEvent(new Event(arg.type, { bubbles: arg.bubbles, cancelable: arg.cancelable }));
      break;
    default: throw new Error("unknown op " + op);
  }
  return true;
})(%[2]s, %[3]s, %[4]s)`

type jsQuery struct {
	Selector   string `json:"selector"`
	Within     string `json:"within,omitempty"`
	Closest    string `json:"closest,omitempty"`
	WithParent bool   `json:"withParent,omitempty"`
}

func queryScript(q dom.Query) (string, error) {
	arg, err := json.Marshal(jsQuery{
		Selector:   q.Selector,
		Within:     q.Within,
		Closest:    q.Closest,
		WithParent: q.WithParent,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(queryJS, refAttr, arg), nil
}

func actScript(ref, op string, arg any) (string, error) {
	parts := make([]string, 0, 3)
	for _, v := range []any{ref, op, arg} {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		parts = append(parts, string(b))
	}
	return fmt.Sprintf(actJS, refAttr, parts[0], parts[1], parts[2]), nil
}

// userGesture lets focus and click behave as if the user caused them.
func userGesture(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithUserGesture(true)
}

func (s *Session) ReadyState(ctx context.Context) (string, error) {
	var state string
	if err := s.run(ctx, chromedp.Evaluate(`document.readyState`, &state)); err != nil {
		return "", err
	}
	return state, nil
}

func (s *Session) QueryAll(ctx context.Context, q dom.Query) ([]dom.Node, error) {
	script, err := queryScript(q)
	if err != nil {
		return nil, err
	}
	var nodes []dom.Node
	if err := s.run(ctx, chromedp.Evaluate(script, &nodes)); err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Selector, err)
	}
	return nodes, nil
}

func (s *Session) Query(ctx context.Context, q dom.Query) (dom.Node, error) {
	nodes, err := s.QueryAll(ctx, q)
	if err != nil {
		return dom.Node{}, err
	}
	if len(nodes) == 0 {
		return dom.Node{}, fmt.Errorf("%s: %w", q.Selector, dom.ErrNotFound)
	}
	return nodes[0], nil
}

func (s *Session) act(ctx context.Context, ref, op string, arg any) error {
	if !validRef(ref) {
		return fmt.Errorf("%s %q: %w", op, ref, dom.ErrNotFound)
	}
	script, err := actScript(ref, op, arg)
	if err != nil {
		return err
	}
	var found bool
	if err := s.run(ctx, chromedp.Evaluate(script, &found, userGesture)); err != nil {
		return fmt.Errorf("%s %s: %w", op, ref, err)
	}
	if !found {
		return fmt.Errorf("%s %s: %w", op, ref, dom.ErrNotFound)
	}
	return nil
}

func (s *Session) Click(ctx context.Context, ref string) error {
	return s.act(ctx, ref, "click", nil)
}

func (s *Session) SetValue(ctx context.Context, ref, value string) error {
	return s.act(ctx, ref, "value", value)
}

func (s *Session) PrependHTML(ctx context.Context, ref, html string) error {
	return s.act(ctx, ref, "prepend", html)
}

func (s *Session) SetStyle(ctx context.Context, ref, property, value string) error {
	return s.act(ctx, ref, "style", map[string]string{"property": property, "value": value})
}

func (s *Session) Focus(ctx context.Context, ref string) error {
	return s.act(ctx, ref, "focus", nil)
}

func (s *Session) Dispatch(ctx context.Context, ref string, ev dom.Event) error {
	return s.act(ctx, ref, "dispatch", map[string]any{
		"type":       ev.Type,
		"bubbles":    ev.Bubbles,
		"cancelable": ev.Cancelable,
	})
}

// validRef rejects refs that would break out of the attribute selector.
// Refs minted by queryJS never do.
func validRef(ref string) bool {
	return ref != "" && !strings.ContainsAny(ref, `"\]`)
}
