package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/bscott/inboxctl/internal/inbox"
)

func (c *Context) openOptions(timeout, retry time.Duration) inbox.OpenOptions {
	opts := inbox.OpenOptions{
		Timeout: c.Config.Timing.OpenTimeout,
		Retry:   c.Config.Timing.OpenRetry,
	}
	if timeout > 0 {
		opts.Timeout = timeout
	}
	if retry > 0 {
		opts.Retry = retry
	}
	return opts
}

// openFirst runs the result wait in the background so an interrupt cancels
// it cleanly.
func openFirst(cx context.Context, ctx *Context, a *inbox.Adapter, opts inbox.OpenOptions) (bool, error) {
	h := a.StartOpenFirstSearchResult(cx, opts, func(opened bool) {
		ctx.Logger.Debug("open first result finished", "opened", opened)
	})
	return h.Wait()
}

func (c *SearchCmd) Run(ctx *Context) error {
	return ctx.withAdapter(func(cx context.Context, a *inbox.Adapter) error {
		if err := a.Search(cx, c.Term); err != nil {
			return err
		}

		result := map[string]interface{}{"term": c.Term}
		if c.Open {
			opened, err := openFirst(cx, ctx, a, ctx.openOptions(c.Timeout, 0))
			if err != nil {
				return err
			}
			result["opened"] = opened
			if !opened && !ctx.Formatter.JSON {
				ctx.Formatter.PrintWarning("no search result appeared in time")
			}
		}

		if ctx.Formatter.JSON {
			return ctx.Formatter.Success(result)
		}
		if c.Open && result["opened"] == true {
			ctx.Formatter.PrintSuccess(fmt.Sprintf("Searched for %q and opened the first result", c.Term))
			return nil
		}
		ctx.Formatter.PrintSuccess(fmt.Sprintf("Searched for %q", c.Term))
		return nil
	})
}

func (c *OpenFirstCmd) Run(ctx *Context) error {
	return ctx.withAdapter(func(cx context.Context, a *inbox.Adapter) error {
		opts := ctx.openOptions(c.Timeout, c.Retry)
		opened, err := openFirst(cx, ctx, a, opts)
		if err != nil {
			return err
		}

		if ctx.Formatter.JSON {
			return ctx.Formatter.Success(map[string]bool{"opened": opened})
		}
		if !opened {
			ctx.Formatter.PrintWarning(fmt.Sprintf("no search result appeared within %s", opts.Timeout))
			return nil
		}
		ctx.Formatter.PrintSuccess("Opened the first search result")
		return nil
	})
}
