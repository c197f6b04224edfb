package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bscott/inboxctl/internal/browser"
	"github.com/bscott/inboxctl/internal/config"
	"github.com/bscott/inboxctl/internal/inbox"
	"github.com/bscott/inboxctl/internal/output"
)

var Version = "0.1.0"

type Globals struct {
	JSON     bool   `help:"Output as JSON" name:"json"`
	HelpJSON bool   `help:"Output command help as JSON (AI agent mode)" name:"help-json"`
	Config   string `help:"Path to config file" short:"c" type:"path"`
	CDPURL   string `help:"DevTools endpoint of the mail client (overrides config)" name:"cdp-url" env:"INBOXCTL_CDP_URL"`
	Verbose  bool   `help:"Verbose output" short:"v"`
	Quiet    bool   `help:"Suppress non-essential output" short:"q"`
	NoColor  bool   `help:"Disable colored output" name:"no-color"`
}

type CLI struct {
	Globals

	Status    StatusCmd    `cmd:"" help:"Show readiness, unread count, tab and pinned state"`
	Unread    UnreadCmd    `cmd:"" help:"Count unread inbox items"`
	Tab       TabCmd       `cmd:"" help:"Report whether the inbox tab is visible"`
	Pinned    PinnedCmd    `cmd:"" help:"Report whether the pinned filter is on"`
	Compose   ComposeCmd   `cmd:"" help:"Open the compose form and prefill it"`
	Search    SearchCmd    `cmd:"" help:"Type a term into the search box"`
	OpenFirst OpenFirstCmd `cmd:"" name:"open-first" help:"Open the first search result"`
	Selectors SelectorsCmd `cmd:"" help:"Inspect the DOM selector set"`
	Config    ConfigCmd    `cmd:"" help:"Configuration management"`
	Contacts  ContactsCmd  `cmd:"" help:"Manage recipient aliases"`
	Version   VersionCmd   `cmd:"" help:"Show version information"`
}

// DialFunc opens an adapter on the mail client. The returned func releases
// the connection.
type DialFunc func(ctx context.Context) (*inbox.Adapter, func(), error)

type Context struct {
	Config    *config.Config
	Formatter *output.Formatter
	Globals   *Globals
	Logger    *slog.Logger
	// Ctx is cancelled on interrupt.
	Ctx  context.Context
	Dial DialFunc
}

func NewContext(globals *Globals) (*Context, error) {
	formatter := output.New(globals.JSON, globals.Verbose, globals.Quiet, globals.NoColor)

	var cfg *config.Config
	var err error

	if globals.Config != "" {
		cfg, err = config.Load(globals.Config)
	} else if config.Exists() {
		cfg, err = config.Load("")
	}

	if err != nil || cfg == nil {
		cfg = config.DefaultConfig()
	}

	if cfg.Defaults.Format == "json" {
		formatter.JSON = true
	}

	ctx := &Context{
		Config:    cfg,
		Formatter: formatter,
		Globals:   globals,
		Logger:    formatter.Logger(),
		Ctx:       context.Background(),
	}
	if err != nil {
		ctx.Logger.Warn("using default configuration", "err", err)
	}
	ctx.Dial = ctx.dialBrowser
	return ctx, nil
}

func (c *Context) baseContext() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}

// BrowserOptions maps the configuration, and any --cdp-url override, to
// session options.
func (c *Context) BrowserOptions() browser.Options {
	b := c.Config.Browser
	opts := browser.Options{
		CDPURL:      b.CDPURL,
		URL:         b.URL,
		TargetMatch: b.TargetMatch,
		Headless:    b.Headless,
		ExecPath:    b.ExecPath,
		UserDataDir: b.UserDataDir,
		Timeout:     b.ConnectTimeout,
	}
	if c.Globals != nil && c.Globals.CDPURL != "" {
		opts.CDPURL = c.Globals.CDPURL
	}
	return opts
}

func (c *Context) Timing() inbox.Timing {
	return inbox.Timing{
		PollInterval:   c.Config.Timing.PollInterval,
		ComposeTimeout: c.Config.Timing.ComposeTimeout,
		FocusDelay:     c.Config.Timing.FocusDelay,
	}
}

func (c *Context) dialBrowser(ctx context.Context) (*inbox.Adapter, func(), error) {
	if err := c.Config.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	sel, err := c.Config.Selectors()
	if err != nil {
		return nil, nil, err
	}

	opts := c.BrowserOptions()
	c.Formatter.Verbosef("Connecting to %s", describeTarget(opts))

	session, err := browser.Connect(ctx, opts, c.Logger)
	if err != nil {
		return nil, nil, err
	}

	adapter := inbox.New(session, session,
		inbox.WithSelectors(sel),
		inbox.WithTiming(c.Timing()),
		inbox.WithLogger(c.Logger),
	)
	return adapter, session.Close, nil
}

func describeTarget(opts browser.Options) string {
	if opts.CDPURL != "" {
		return opts.CDPURL
	}
	return "new browser on " + opts.URL
}

// withAdapter dials, runs fn and releases the connection.
func (c *Context) withAdapter(fn func(ctx context.Context, a *inbox.Adapter) error) error {
	ctx := c.baseContext()
	adapter, release, err := c.Dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to reach mail client: %w", err)
	}
	defer release()
	return fn(ctx, adapter)
}

// StatusCmd reports every read-only probe at once
type StatusCmd struct{}

type UnreadCmd struct {
	Watch    bool          `help:"Keep running and print the count whenever it changes" short:"w"`
	Interval time.Duration `help:"Polling interval for --watch (default from config)"`
	Verify   bool          `help:"Compare with the IMAP server's unseen count"`
	Mailbox  string        `help:"Mailbox for --verify (default from config)" short:"m"`
}

type TabCmd struct{}

type PinnedCmd struct{}

type ComposeCmd struct {
	To      string `help:"Recipient address or contact alias (comma separated)" short:"t"`
	Subject string `help:"Subject line" short:"s"`
	Body    string `help:"Body text ('-' reads stdin)" short:"b"`
	Mailto  string `help:"Prefill from a mailto: link instead" name:"mailto"`
}

type SearchCmd struct {
	Term    string        `arg:"" help:"Search term"`
	Open    bool          `help:"Open the first result once it appears" short:"o"`
	Timeout time.Duration `help:"How long to wait for a result with --open (default from config)"`
}

type OpenFirstCmd struct {
	Timeout time.Duration `help:"How long to wait for a result (default from config)"`
	Retry   time.Duration `help:"Delay between looks (default from config)"`
}

// SelectorsCmd handles the DOM selector set
type SelectorsCmd struct {
	Show     SelectorsShowCmd     `cmd:"" help:"Display the selector set in use"`
	Validate SelectorsValidateCmd `cmd:"" help:"Check a selectors file"`
	Export   SelectorsExportCmd   `cmd:"" help:"Write the built-in set as a starting overrides file"`
}

type SelectorsShowCmd struct{}

type SelectorsValidateCmd struct {
	File string `arg:"" optional:"" help:"Selectors file (default: configured file)" type:"path"`
}

type SelectorsExportCmd struct {
	Out string `arg:"" help:"Output path" type:"path"`
}

// ConfigCmd handles configuration management
type ConfigCmd struct {
	Init   ConfigInitCmd   `cmd:"" help:"Interactive setup wizard"`
	Show   ConfigShowCmd   `cmd:"" help:"Display current configuration"`
	Set    ConfigSetCmd    `cmd:"" help:"Set a configuration value"`
	Doctor ConfigDoctorCmd `cmd:"" help:"Diagnose configuration issues"`
}

type ConfigInitCmd struct{}

type ConfigShowCmd struct{}

type ConfigSetCmd struct {
	Key   string `arg:"" help:"Configuration key (e.g., browser.cdp_url, timing.focus_delay)"`
	Value string `arg:"" help:"Value to set"`
}

type ConfigDoctorCmd struct{}

// ContactsCmd handles recipient aliases
type ContactsCmd struct {
	List   ContactsListCmd   `cmd:"" help:"List contacts"`
	Add    ContactsAddCmd    `cmd:"" help:"Add a contact"`
	Remove ContactsRemoveCmd `cmd:"" help:"Remove a contact by email or alias"`
}

type ContactsListCmd struct{}

type ContactsAddCmd struct {
	Email string `arg:"" help:"Email address"`
	Name  string `help:"Display name" short:"n"`
	Alias string `help:"Short alias usable with compose --to" short:"a"`
}

type ContactsRemoveCmd struct {
	Key string `arg:"" help:"Email address or alias"`
}

// VersionCmd shows version information
type VersionCmd struct{}
