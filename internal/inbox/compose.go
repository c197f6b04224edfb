package inbox

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/bscott/inboxctl/internal/dom"
	"github.com/bscott/inboxctl/internal/wait"
)

// Draft is the text a caller wants prefilled into a new message.
type Draft struct {
	Recipient string `json:"recipient,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body,omitempty"`
}

type Field string

const (
	FieldRecipient Field = "recipient"
	FieldSubject   Field = "subject"
	FieldBody      Field = "body"
)

// ComposeResult records how far Compose got.
type ComposeResult struct {
	Opened  bool    `json:"opened"`
	Filled  []Field `json:"filled,omitempty"`
	Focused Field   `json:"focused,omitempty"`
}

// Compose opens the compose dialog and prefills it with d. All text is
// HTML-escaped before it reaches the page. Compose fails open: a missing
// trigger, body field or dialog ends it early with a partial result.
func (a *Adapter) Compose(ctx context.Context, d Draft) (ComposeResult, error) {
	var res ComposeResult

	trigger, ok, err := a.firstMatch(ctx, a.sel.ComposeButtons)
	if err != nil {
		return res, err
	}
	if !ok {
		a.logger.Debug("compose trigger not found")
		return res, nil
	}
	if err := a.doc.Click(ctx, trigger.Ref); err != nil {
		return res, fmt.Errorf("failed to open compose: %w", err)
	}
	res.Opened = true

	var body dom.Node
	err = wait.Until(ctx, a.timing.PollInterval, a.timing.ComposeTimeout, func(ctx context.Context) (bool, error) {
		n, err := a.doc.Query(ctx, dom.Query{
			Selector:   a.sel.ComposeBody,
			Closest:    a.sel.ComposeDialog,
			WithParent: true,
		})
		if errors.Is(err, dom.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		body = n
		return true, nil
	})
	if errors.Is(err, wait.ErrTimeout) {
		a.logger.Debug("compose body never appeared", "timeout", a.timing.ComposeTimeout)
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("failed waiting for compose dialog: %w", err)
	}
	if body.Closest == "" {
		a.logger.Debug("compose body outside a dialog")
		return res, nil
	}

	recipient, hasRecipient, err := a.optional(ctx, dom.Query{Selector: a.sel.ComposeRecipient, Within: body.Closest})
	if err != nil {
		return res, err
	}
	subject, hasSubject, err := a.optional(ctx, dom.Query{Selector: a.sel.ComposeSubject, Within: body.Closest})
	if err != nil {
		return res, err
	}

	// focus names the field after the last one filled.
	var focus dom.Node
	var focusField Field

	if d.Recipient != "" && hasRecipient {
		if err := a.doc.SetValue(ctx, recipient.Ref, html.EscapeString(d.Recipient)); err != nil {
			return res, fmt.Errorf("failed to set recipient: %w", err)
		}
		res.Filled = append(res.Filled, FieldRecipient)
		if hasSubject {
			focus, focusField = subject, FieldSubject
		} else {
			focus, focusField = dom.Node{}, ""
		}
	}

	if d.Subject != "" && hasSubject {
		if err := a.doc.SetValue(ctx, subject.Ref, html.EscapeString(d.Subject)); err != nil {
			return res, fmt.Errorf("failed to set subject: %w", err)
		}
		res.Filled = append(res.Filled, FieldSubject)
		focus, focusField = body, FieldBody
	}

	if d.Body != "" {
		if err := a.doc.PrependHTML(ctx, body.Ref, html.EscapeString(d.Body)); err != nil {
			return res, fmt.Errorf("failed to set body: %w", err)
		}
		res.Filled = append(res.Filled, FieldBody)
		if err := a.hidePlaceholder(ctx, body); err != nil {
			return res, err
		}
		focus, focusField = body, FieldBody
	}

	if focusField == "" {
		return res, nil
	}
	if err := wait.Sleep(ctx, a.timing.FocusDelay); err != nil {
		return res, err
	}
	if err := a.doc.Focus(ctx, focus.Ref); err != nil {
		return res, fmt.Errorf("failed to focus %s: %w", focusField, err)
	}
	res.Focused = focusField
	return res, nil
}

// hidePlaceholder hides the label the client overlays on an empty body.
func (a *Adapter) hidePlaceholder(ctx context.Context, body dom.Node) error {
	if body.Parent == "" {
		return nil
	}
	label, ok, err := a.optional(ctx, dom.Query{Selector: a.sel.ComposeLabel, Within: body.Parent})
	if err != nil || !ok {
		return err
	}
	if err := a.doc.SetStyle(ctx, label.Ref, "display", "none"); err != nil {
		return fmt.Errorf("failed to hide body label: %w", err)
	}
	return nil
}

func (a *Adapter) optional(ctx context.Context, q dom.Query) (dom.Node, bool, error) {
	n, err := a.doc.Query(ctx, q)
	if errors.Is(err, dom.ErrNotFound) {
		return dom.Node{}, false, nil
	}
	if err != nil {
		return dom.Node{}, false, fmt.Errorf("query %s: %w", q.Selector, err)
	}
	return n, true, nil
}

func (a *Adapter) firstMatch(ctx context.Context, sels []string) (dom.Node, bool, error) {
	for _, s := range sels {
		n, ok, err := a.optional(ctx, dom.Query{Selector: s})
		if err != nil || ok {
			return n, ok, err
		}
	}
	return dom.Node{}, false, nil
}
