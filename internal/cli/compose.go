package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bscott/inboxctl/internal/contacts"
	"github.com/bscott/inboxctl/internal/inbox"
	"github.com/bscott/inboxctl/internal/mailto"
)

// stdin is swapped in tests.
var stdin io.Reader = os.Stdin

func (c *ComposeCmd) draft() (inbox.Draft, error) {
	if c.Mailto != "" {
		if c.To != "" || c.Subject != "" || c.Body != "" {
			return inbox.Draft{}, fmt.Errorf("--mailto cannot be combined with --to, --subject or --body")
		}
		link, err := mailto.Parse(c.Mailto)
		if err != nil {
			return inbox.Draft{}, err
		}
		if err := link.Validate(); err != nil {
			return inbox.Draft{}, err
		}
		return link.Draft(), nil
	}

	body := c.Body
	if body == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return inbox.Draft{}, fmt.Errorf("failed to read body from stdin: %w", err)
		}
		body = strings.TrimRight(string(data), "\n")
	}

	to := c.To
	if to != "" {
		store, err := contacts.Load()
		if err != nil {
			return inbox.Draft{}, err
		}
		to = store.Resolve(to)
	}

	return inbox.Draft{Recipient: to, Subject: c.Subject, Body: body}, nil
}

func (c *ComposeCmd) Run(ctx *Context) error {
	draft, err := c.draft()
	if err != nil {
		return err
	}
	ctx.Formatter.Verbosef("Draft: to=%q subject=%q body=%d bytes", draft.Recipient, draft.Subject, len(draft.Body))

	return ctx.withAdapter(func(cx context.Context, a *inbox.Adapter) error {
		res, err := a.Compose(cx, draft)
		if err != nil {
			return err
		}

		if ctx.Formatter.JSON {
			return ctx.Formatter.Success(res)
		}
		if !res.Opened {
			ctx.Formatter.PrintWarning("compose button not found; nothing was opened")
			return nil
		}
		if len(res.Filled) == 0 && (draft != inbox.Draft{}) {
			ctx.Formatter.PrintWarning("compose opened but the form did not appear in time")
			return nil
		}

		msg := "Compose opened"
		if len(res.Filled) > 0 {
			names := make([]string, len(res.Filled))
			for i, f := range res.Filled {
				names[i] = string(f)
			}
			msg += ", filled " + strings.Join(names, ", ")
		}
		ctx.Formatter.PrintSuccess(msg)
		return nil
	})
}
