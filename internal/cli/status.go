package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bscott/inboxctl/internal/dom"
	"github.com/bscott/inboxctl/internal/imap"
	"github.com/bscott/inboxctl/internal/inbox"
	"github.com/bscott/inboxctl/internal/output"
)

func (c *StatusCmd) Run(ctx *Context) error {
	return ctx.withAdapter(func(cx context.Context, a *inbox.Adapter) error {
		st, err := a.Status(cx)
		if err != nil {
			return err
		}

		if ctx.Formatter.JSON {
			return ctx.Formatter.Success(st)
		}

		f := ctx.Formatter
		if !st.Ready {
			f.PrintFields(
				output.Field{Label: "Ready", Value: f.YesNo(false)},
				output.Field{Label: "Selectors", Value: st.Selectors},
			)
			return nil
		}
		f.PrintFields(
			output.Field{Label: "Ready", Value: f.YesNo(true)},
			output.Field{Label: "Unread", Value: f.Bold(strconv.Itoa(st.Unread))},
			output.Field{Label: "Inbox tab", Value: f.YesNo(st.InboxTabVisible)},
			output.Field{Label: "Pinned", Value: f.YesNo(st.Pinned)},
			output.Field{Label: "Selectors", Value: st.Selectors},
		)
		return nil
	})
}

func (c *UnreadCmd) Run(ctx *Context) error {
	return ctx.withAdapter(func(cx context.Context, a *inbox.Adapter) error {
		if c.Watch {
			return c.watch(cx, ctx, a)
		}

		count, err := a.UnreadCount(cx)
		if err != nil {
			return err
		}

		if !c.Verify {
			if ctx.Formatter.JSON {
				return ctx.Formatter.Success(map[string]int{"unread": count})
			}
			fmt.Fprintln(ctx.Formatter.Writer, count)
			return nil
		}

		check, err := c.verify(ctx, count)
		if err != nil {
			return err
		}
		if ctx.Formatter.JSON {
			return ctx.Formatter.Success(check)
		}
		f := ctx.Formatter
		f.PrintFields(
			output.Field{Label: "Visible unread", Value: strconv.Itoa(check.Visible)},
			output.Field{Label: "Server unseen", Value: fmt.Sprintf("%d (%s)", check.Unseen, check.Mailbox)},
			output.Field{Label: "Match", Value: f.YesNo(check.Match)},
		)
		if !check.Match {
			f.PrintWarning("counts differ; clustered or filtered items are counted once in the web view")
		}
		return nil
	})
}

func (c *UnreadCmd) verify(ctx *Context, visible int) (imap.UnreadCheck, error) {
	mailbox := c.Mailbox
	if mailbox == "" {
		mailbox = ctx.Config.IMAP.Mailbox
	}

	client, err := imap.NewClient(ctx.Config)
	if err != nil {
		return imap.UnreadCheck{}, err
	}
	if err := client.Connect(); err != nil {
		return imap.UnreadCheck{}, err
	}
	defer client.Close()

	status, err := client.Status(mailbox)
	if err != nil {
		return imap.UnreadCheck{}, err
	}
	return imap.NewUnreadCheck(visible, status), nil
}

func (c *UnreadCmd) watch(cx context.Context, ctx *Context, a *inbox.Adapter) error {
	interval := c.Interval
	if interval <= 0 {
		interval = ctx.Config.Timing.WatchInterval
	}
	ctx.Formatter.Verbosef("Watching unread count every %s", interval)

	err := a.WatchUnread(cx, interval, func(count int) {
		if ctx.Formatter.JSON {
			ctx.Formatter.PrintJSON(map[string]interface{}{
				"unread": count,
				"time":   time.Now().Format(time.RFC3339),
			})
			return
		}
		fmt.Fprintf(ctx.Formatter.Writer, "%s %d\n", ctx.Formatter.MutedText(time.Now().Format("15:04:05")), count)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (c *TabCmd) Run(ctx *Context) error {
	return ctx.withAdapter(func(cx context.Context, a *inbox.Adapter) error {
		visible, err := a.IsInboxTabVisible(cx)
		if err != nil {
			if errors.Is(err, dom.ErrNotFound) {
				return fmt.Errorf("inbox tab not found; the page may not be the inbox view or the selectors are out of date: %w", err)
			}
			return err
		}
		return printBool(ctx, "visible", visible)
	})
}

func (c *PinnedCmd) Run(ctx *Context) error {
	return ctx.withAdapter(func(cx context.Context, a *inbox.Adapter) error {
		pinned, err := a.IsPinnedToggled(cx)
		if err != nil {
			return err
		}
		return printBool(ctx, "pinned", pinned)
	})
}

func printBool(ctx *Context, key string, v bool) error {
	if ctx.Formatter.JSON {
		return ctx.Formatter.Success(map[string]bool{key: v})
	}
	fmt.Fprintln(ctx.Formatter.Writer, strconv.FormatBool(v))
	return nil
}
