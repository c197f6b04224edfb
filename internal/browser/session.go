// Package browser drives the mail client's page over the Chrome DevTools
// Protocol. A Session is both the dom.Document and the dom.Input the inbox
// adapter needs.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// Options selects how the page is reached. With CDPURL set the session
// attaches to an already running shell; otherwise it launches Chromium.
type Options struct {
	CDPURL      string
	URL         string
	TargetMatch string
	Headless    bool
	ExecPath    string
	UserDataDir string
	Timeout     time.Duration
}

type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *slog.Logger
}

// Connect opens a session on the mail client's page.
func Connect(ctx context.Context, opts Options, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if opts.CDPURL != "" {
		logger.Debug("attaching to browser", "url", opts.CDPURL)
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), opts.CDPURL)
	} else {
		execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.NoFirstRun,
			chromedp.NoDefaultBrowserCheck,
		)
		if opts.ExecPath != "" {
			execOpts = append(execOpts, chromedp.ExecPath(opts.ExecPath))
		}
		if opts.UserDataDir != "" {
			execOpts = append(execOpts, chromedp.UserDataDir(opts.UserDataDir))
		}
		logger.Debug("launching browser", "headless", opts.Headless)
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), execOpts...)
	}

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	s := &Session{allocCancel: allocCancel, logger: logger}

	startCtx, cancelStart := context.WithTimeout(ctx, opts.Timeout)
	defer cancelStart()

	if err := s.start(startCtx, browserCtx, browserCancel, opts); err != nil {
		browserCancel()
		allocCancel()
		return nil, err
	}
	return s, nil
}

func (s *Session) start(ctx, browserCtx context.Context, browserCancel context.CancelFunc, opts Options) error {
	s.ctx, s.cancel = browserCtx, browserCancel

	if opts.CDPURL == "" {
		if opts.URL == "" {
			return errors.New("browser url is required when not attaching over CDP")
		}
		// The first Run on a chromedp context binds the launched browser's
		// lifetime to that context, so it must be the session context itself.
		if err := chromedp.Run(browserCtx); err != nil {
			return fmt.Errorf("failed to start browser session: %w", err)
		}
		return s.run(ctx,
			chromedp.Navigate(opts.URL),
			chromedp.WaitReady("body", chromedp.ByQuery),
		)
	}

	// Run on a remote allocator context creates a blank tab in the shell.
	// Targets only dials the connection.
	targets, err := chromedp.Targets(browserCtx)
	if err != nil {
		return fmt.Errorf("failed to list targets on %s: %w", opts.CDPURL, err)
	}
	t := pickTarget(targets, opts.TargetMatch)
	if t == nil {
		return fmt.Errorf("no page target matching %q", opts.TargetMatch)
	}
	s.logger.Debug("attached to target", "id", t.TargetID, "url", t.URL)

	// Cancelling a chromedp tab context closes its target. The client's page
	// must outlive the session, so the tab context is detached from the
	// browser context's cancellation and never cancelled itself; Close drops
	// the connection instead.
	tabCtx, _ := chromedp.NewContext(context.WithoutCancel(browserCtx), chromedp.WithTargetID(t.TargetID))
	s.ctx = tabCtx
	if err := chromedp.Run(tabCtx); err != nil {
		return fmt.Errorf("failed to attach to %s: %w", t.URL, err)
	}
	return ctx.Err()
}

// pickTarget returns the first page whose URL contains match. With an empty
// match it returns the first page that has loaded something other than a
// blank document.
func pickTarget(targets []*target.Info, match string) *target.Info {
	for _, t := range targets {
		if t.Type != "page" && t.Type != "webview" {
			continue
		}
		if match == "" {
			if t.URL == "" || t.URL == "about:blank" {
				continue
			}
			return t
		}
		if strings.Contains(t.URL, match) {
			return t
		}
	}
	return nil
}

// Close ends the session. A launched browser is shut down; an attached
// shell and its page keep running.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
}

// run executes actions on the page, bounded by ctx as well as the session.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}
