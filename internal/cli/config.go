package cli

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/bscott/inboxctl/internal/config"
	"github.com/bscott/inboxctl/internal/imap"
	"github.com/bscott/inboxctl/internal/inbox"
	"github.com/bscott/inboxctl/internal/selectors"
)

func (c *ConfigInitCmd) Run(ctx *Context) error {
	w := ctx.Formatter.Writer
	fmt.Fprintln(w, "inboxctl Configuration Wizard")
	fmt.Fprintln(w, "=============================")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Start the mail client with remote debugging enabled, e.g.")
	fmt.Fprintln(w, "  --remote-debugging-port=9222")
	fmt.Fprintln(w)

	reader := bufio.NewReader(stdin)
	cfg := config.DefaultConfig()

	prompt := func(label, def string) string {
		fmt.Fprintf(w, "%s [%s]: ", label, def)
		line, _ := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" {
			return def
		}
		return line
	}

	cdp := prompt("DevTools endpoint ('none' to launch a browser)", cfg.Browser.CDPURL)
	if strings.EqualFold(cdp, "none") {
		cdp = ""
	}
	cfg.Browser.CDPURL = cdp
	if cdp == "" {
		cfg.Browser.URL = prompt("Mail client URL", cfg.Browser.URL)
	}
	cfg.Browser.TargetMatch = prompt("Page URL match", cfg.Browser.TargetMatch)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "IMAP is only used by 'unread --verify'. Leave the email empty to skip.")
	fmt.Fprint(w, "IMAP email []: ")
	email, _ := reader.ReadString('\n')
	cfg.IMAP.Email = strings.TrimSpace(email)

	var password string
	if cfg.IMAP.Email != "" {
		cfg.IMAP.Host = prompt("IMAP host", cfg.IMAP.Host)
		portStr := prompt("IMAP port", strconv.Itoa(cfg.IMAP.Port))
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid IMAP port: %s", portStr)
		}
		cfg.IMAP.Port = port

		fmt.Fprint(w, "IMAP password (app password): ")
		if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			b, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(w)
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = string(b)
		} else {
			line, _ := reader.ReadString('\n')
			password = strings.TrimSpace(line)
		}
		if password == "" {
			return fmt.Errorf("IMAP password is required when an email is set")
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	configPath := ctx.Globals.Config
	if configPath == "" {
		var err error
		configPath, err = config.ConfigPath()
		if err != nil {
			return err
		}
	}
	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	if password != "" {
		if err := cfg.SetPassword(password); err != nil {
			return fmt.Errorf("failed to store password in keyring: %w", err)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Configuration saved to %s\n", configPath)
	if password != "" {
		fmt.Fprintln(w, "Password stored securely in system keyring.")
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check the setup with: inboxctl config doctor")

	return nil
}

func (c *ConfigShowCmd) Run(ctx *Context) error {
	if ctx.Config == nil {
		return fmt.Errorf("no configuration found - run 'inboxctl config init' first")
	}
	cfg := ctx.Config

	if ctx.Formatter.JSON {
		_, pwErr := cfg.GetPassword()
		return ctx.Formatter.PrintJSON(map[string]interface{}{
			"browser": map[string]interface{}{
				"cdp_url":         cfg.Browser.CDPURL,
				"url":             cfg.Browser.URL,
				"target_match":    cfg.Browser.TargetMatch,
				"headless":        cfg.Browser.Headless,
				"connect_timeout": cfg.Browser.ConnectTimeout.String(),
			},
			"timing": map[string]interface{}{
				"poll_interval":   cfg.Timing.PollInterval.String(),
				"compose_timeout": cfg.Timing.ComposeTimeout.String(),
				"focus_delay":     cfg.Timing.FocusDelay.String(),
				"open_timeout":    cfg.Timing.OpenTimeout.String(),
				"open_retry":      cfg.Timing.OpenRetry.String(),
				"watch_interval":  cfg.Timing.WatchInterval.String(),
			},
			"selectors_file": cfg.SelectorsFile,
			"imap": map[string]interface{}{
				"host":         cfg.IMAP.Host,
				"port":         cfg.IMAP.Port,
				"email":        cfg.IMAP.Email,
				"mailbox":      cfg.IMAP.Mailbox,
				"starttls":     cfg.IMAP.StartTLS,
				"password_set": pwErr == nil,
			},
			"defaults": map[string]interface{}{
				"format": cfg.Defaults.Format,
			},
		})
	}

	configPath := ctx.Globals.Config
	if configPath == "" {
		configPath, _ = config.ConfigPath()
	}
	w := ctx.Formatter.Writer
	fmt.Fprintf(w, "Configuration file: %s\n\n", configPath)

	fmt.Fprintln(w, "Browser:")
	cdp := cfg.Browser.CDPURL
	if cdp == "" {
		cdp = "(launch)"
	}
	fmt.Fprintf(w, "  DevTools:     %s\n", cdp)
	fmt.Fprintf(w, "  URL:          %s\n", cfg.Browser.URL)
	fmt.Fprintf(w, "  Target match: %s\n", cfg.Browser.TargetMatch)
	fmt.Fprintf(w, "  Headless:     %t\n", cfg.Browser.Headless)
	fmt.Fprintf(w, "  Timeout:      %s\n", cfg.Browser.ConnectTimeout)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Timing:")
	fmt.Fprintf(w, "  Poll interval:   %s\n", cfg.Timing.PollInterval)
	fmt.Fprintf(w, "  Compose timeout: %s\n", cfg.Timing.ComposeTimeout)
	fmt.Fprintf(w, "  Focus delay:     %s\n", cfg.Timing.FocusDelay)
	fmt.Fprintf(w, "  Open timeout:    %s\n", cfg.Timing.OpenTimeout)
	fmt.Fprintf(w, "  Open retry:      %s\n", cfg.Timing.OpenRetry)
	fmt.Fprintf(w, "  Watch interval:  %s\n", cfg.Timing.WatchInterval)

	fmt.Fprintln(w)
	sel := cfg.SelectorsFile
	if sel == "" {
		sel = "built-in (" + selectors.DefaultVersion + ")"
	}
	fmt.Fprintf(w, "Selectors: %s\n", sel)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "IMAP:")
	fmt.Fprintf(w, "  Host:    %s:%d\n", cfg.IMAP.Host, cfg.IMAP.Port)
	fmt.Fprintf(w, "  Email:   %s\n", cfg.IMAP.Email)
	fmt.Fprintf(w, "  Mailbox: %s\n", cfg.IMAP.Mailbox)

	if cfg.IMAP.Email != "" {
		if _, err := cfg.GetPassword(); err != nil {
			fmt.Fprintln(w, "  Password: not set (run 'inboxctl config init' to set)")
		} else {
			fmt.Fprintln(w, "  Password: ********** (stored in keyring)")
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Default format: %s\n", cfg.Defaults.Format)
	return nil
}

type setter func(cfg *config.Config, value string) error

func stringKey(field func(*config.Config) *string) setter {
	return func(cfg *config.Config, value string) error {
		*field(cfg) = value
		return nil
	}
}

func boolKey(field func(*config.Config) *bool) setter {
	return func(cfg *config.Config, value string) error {
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value: %s", value)
		}
		*field(cfg) = v
		return nil
	}
}

func durationKey(field func(*config.Config) *time.Duration) setter {
	return func(cfg *config.Config, value string) error {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value: %s (e.g., 500ms, 2s)", value)
		}
		if d < 0 {
			return fmt.Errorf("duration must not be negative: %s", value)
		}
		*field(cfg) = d
		return nil
	}
}

var configKeys = map[string]setter{
	"browser.cdp_url":         stringKey(func(c *config.Config) *string { return &c.Browser.CDPURL }),
	"browser.url":             stringKey(func(c *config.Config) *string { return &c.Browser.URL }),
	"browser.target_match":    stringKey(func(c *config.Config) *string { return &c.Browser.TargetMatch }),
	"browser.headless":        boolKey(func(c *config.Config) *bool { return &c.Browser.Headless }),
	"browser.exec_path":       stringKey(func(c *config.Config) *string { return &c.Browser.ExecPath }),
	"browser.user_data_dir":   stringKey(func(c *config.Config) *string { return &c.Browser.UserDataDir }),
	"browser.connect_timeout": durationKey(func(c *config.Config) *time.Duration { return &c.Browser.ConnectTimeout }),
	"timing.poll_interval":    durationKey(func(c *config.Config) *time.Duration { return &c.Timing.PollInterval }),
	"timing.compose_timeout":  durationKey(func(c *config.Config) *time.Duration { return &c.Timing.ComposeTimeout }),
	"timing.focus_delay":      durationKey(func(c *config.Config) *time.Duration { return &c.Timing.FocusDelay }),
	"timing.open_timeout":     durationKey(func(c *config.Config) *time.Duration { return &c.Timing.OpenTimeout }),
	"timing.open_retry":       durationKey(func(c *config.Config) *time.Duration { return &c.Timing.OpenRetry }),
	"timing.watch_interval":   durationKey(func(c *config.Config) *time.Duration { return &c.Timing.WatchInterval }),
	"selectors.file": func(cfg *config.Config, value string) error {
		if value != "" {
			if _, err := selectors.Load(value); err != nil {
				return err
			}
		}
		cfg.SelectorsFile = value
		return nil
	},
	"imap.host":     stringKey(func(c *config.Config) *string { return &c.IMAP.Host }),
	"imap.email":    stringKey(func(c *config.Config) *string { return &c.IMAP.Email }),
	"imap.mailbox":  stringKey(func(c *config.Config) *string { return &c.IMAP.Mailbox }),
	"imap.starttls": boolKey(func(c *config.Config) *bool { return &c.IMAP.StartTLS }),
	"imap.port": func(cfg *config.Config, value string) error {
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid port value: %s", value)
		}
		cfg.IMAP.Port = port
		return nil
	},
	"defaults.format": func(cfg *config.Config, value string) error {
		if value != "text" && value != "json" {
			return fmt.Errorf("format must be 'text' or 'json'")
		}
		cfg.Defaults.Format = value
		return nil
	},
}

// ConfigKeys lists the keys accepted by config set.
func ConfigKeys() []string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *ConfigSetCmd) Run(ctx *Context) error {
	if ctx.Config == nil {
		ctx.Config = config.DefaultConfig()
	}

	if strings.Count(c.Key, ".") != 1 {
		return fmt.Errorf("invalid key format - use section.key (e.g., browser.cdp_url, timing.focus_delay)")
	}
	set, ok := configKeys[c.Key]
	if !ok {
		return fmt.Errorf("unknown key: %s (valid keys: %s)", c.Key, strings.Join(ConfigKeys(), ", "))
	}
	if err := set(ctx.Config, c.Value); err != nil {
		return err
	}
	if err := ctx.Config.Validate(); err != nil {
		return err
	}

	if err := ctx.Config.Save(ctx.Globals.Config); err != nil {
		return err
	}

	ctx.Formatter.PrintSuccess(fmt.Sprintf("Set %s = %s", c.Key, c.Value))
	return nil
}

type checkResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type doctor struct {
	ctx     *Context
	results []checkResult
}

func (d *doctor) report(name, status, message string) {
	d.results = append(d.results, checkResult{Name: name, Status: status, Message: message})
	if d.ctx.Formatter.JSON {
		return
	}

	f := d.ctx.Formatter
	prefix := f.SuccessText("[OK]")
	switch status {
	case "fail":
		prefix = f.ErrorText("[FAIL]")
	case "skip":
		prefix = f.MutedText("[SKIP]")
	}
	if message != "" {
		fmt.Fprintf(f.Writer, "%s %s - %s\n", prefix, name, message)
	} else {
		fmt.Fprintf(f.Writer, "%s %s\n", prefix, name)
	}
}

func (d *doctor) healthy() bool {
	for _, r := range d.results {
		if r.Status == "fail" {
			return false
		}
	}
	return true
}

// devtoolsAddr returns host:port of a DevTools endpoint URL.
func devtoolsAddr(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("no host in %q", raw)
	}
	if u.Port() != "" {
		return u.Host, nil
	}
	switch u.Scheme {
	case "wss", "https":
		return net.JoinHostPort(u.Hostname(), "443"), nil
	default:
		return net.JoinHostPort(u.Hostname(), "80"), nil
	}
}

func (c *ConfigDoctorCmd) Run(ctx *Context) error {
	d := &doctor{ctx: ctx}

	configPath := ctx.Globals.Config
	if configPath == "" {
		var err error
		if configPath, err = config.ConfigPath(); err != nil {
			d.report("Config file exists", "fail", err.Error())
		}
	}

	cfg := ctx.Config
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			d.report("Config file exists", "fail", fmt.Sprintf("not found at %s", configPath))
		} else {
			d.report("Config file exists", "ok", "")
			loaded, err := config.Load(configPath)
			if err == nil {
				err = loaded.Validate()
			}
			if err != nil {
				d.report("Config valid", "fail", err.Error())
			} else {
				d.report("Config valid", "ok", "")
				cfg = loaded
			}
		}
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	if set, err := cfg.Selectors(); err != nil {
		d.report("Selectors valid", "fail", err.Error())
	} else {
		d.report("Selectors valid", "ok", set.Version)
	}

	opts := ctx.BrowserOptions()
	if ctx.Globals.CDPURL == "" {
		opts.CDPURL = cfg.Browser.CDPURL
	}
	reachable := false
	if opts.CDPURL == "" {
		d.report("DevTools endpoint reachable", "skip", "launch mode, no endpoint configured")
	} else if addr, err := devtoolsAddr(opts.CDPURL); err != nil {
		d.report("DevTools endpoint reachable", "fail", err.Error())
	} else if conn, err := net.DialTimeout("tcp", addr, 5*time.Second); err != nil {
		d.report("DevTools endpoint reachable", "fail", fmt.Sprintf("cannot connect to %s - is the mail client running with remote debugging?", addr))
	} else {
		conn.Close()
		reachable = true
		d.report("DevTools endpoint reachable", "ok", addr)
	}

	if reachable {
		err := ctx.withAdapter(func(cx context.Context, a *inbox.Adapter) error {
			ready, err := a.IsReady(cx)
			if err != nil {
				return err
			}
			if !ready {
				return fmt.Errorf("page is still loading")
			}
			return nil
		})
		if err != nil {
			d.report("Mail client page ready", "fail", err.Error())
		} else {
			d.report("Mail client page ready", "ok", "")
		}
	}

	if cfg.IMAP.Email == "" {
		d.report("IMAP cross-check", "skip", "imap.email not set")
	} else if _, err := cfg.GetPassword(); err != nil {
		d.report("Password in keyring", "fail", err.Error())
	} else {
		d.report("Password in keyring", "ok", "")
		client, _ := imap.NewClient(cfg)
		if err := client.Connect(); err != nil {
			d.report("IMAP login succeeds", "fail", err.Error())
		} else {
			client.Close()
			d.report("IMAP login succeeds", "ok", fmt.Sprintf("%s:%d", cfg.IMAP.Host, cfg.IMAP.Port))
		}
	}

	if ctx.Formatter.JSON {
		return ctx.Formatter.PrintJSON(map[string]interface{}{
			"checks":  d.results,
			"healthy": d.healthy(),
		})
	}
	return nil
}
