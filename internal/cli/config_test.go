package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bscott/inboxctl/internal/config"
)

func TestConfigShowCmdRunWithoutConfig(t *testing.T) {
	env := newTestEnv(t, false)
	env.ctx.Config = nil

	if err := (&ConfigShowCmd{}).Run(env.ctx); err == nil {
		t.Error("expected error when config is nil")
	}
}

func TestConfigShowCmdRunJSON(t *testing.T) {
	env := newTestEnv(t, true)
	env.ctx.Config.Browser.CDPURL = "ws://127.0.0.1:9333"
	env.ctx.Config.Timing.FocusDelay = 750 * time.Millisecond

	if err := (&ConfigShowCmd{}).Run(env.ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var result struct {
		Browser map[string]interface{} `json:"browser"`
		Timing  map[string]interface{} `json:"timing"`
	}
	if err := json.Unmarshal(env.out.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}

	if result.Browser["cdp_url"] != "ws://127.0.0.1:9333" {
		t.Errorf("cdp_url = %v, want %v", result.Browser["cdp_url"], "ws://127.0.0.1:9333")
	}
	if result.Timing["focus_delay"] != "750ms" {
		t.Errorf("focus_delay = %v, want 750ms", result.Timing["focus_delay"])
	}
}

func TestConfigShowCmdRunText(t *testing.T) {
	env := newTestEnv(t, false)
	env.ctx.Config.Browser.CDPURL = ""

	if err := (&ConfigShowCmd{}).Run(env.ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	out := env.out.String()
	for _, want := range []string{"(launch)", "Focus delay:", "built-in"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestConfigSetCmdRunWithInvalidKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"no dot", "invalid"},
		{"too many dots", "a.b.c"},
		{"unknown section", "unknown.key"},
		{"unknown browser key", "browser.unknown"},
		{"unknown timing key", "timing.unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, false)
			cmd := &ConfigSetCmd{Key: tt.key, Value: "x"}
			if err := cmd.Run(env.ctx); err == nil {
				t.Errorf("expected error for key %q", tt.key)
			}
		})
	}
}

func TestConfigSetCmdRunWithInvalidValue(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"imap.port", "abc"},
		{"imap.port", "70000"},
		{"browser.headless", "maybe"},
		{"timing.focus_delay", "soon"},
		{"timing.focus_delay", "-1s"},
		{"timing.poll_interval", "0s"},
		{"defaults.format", "xml"},
		{"selectors.file", "/nonexistent/selectors.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			env := newTestEnv(t, false)
			cmd := &ConfigSetCmd{Key: tt.key, Value: tt.value}
			if err := cmd.Run(env.ctx); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
			if _, err := os.Stat(env.ctx.Globals.Config); err == nil {
				t.Error("invalid value should not be saved")
			}
		})
	}
}

func TestConfigSetCmdRunSaves(t *testing.T) {
	tests := []struct {
		key   string
		value string
		check func(*config.Config) bool
	}{
		{"browser.cdp_url", "ws://127.0.0.1:9333", func(c *config.Config) bool { return c.Browser.CDPURL == "ws://127.0.0.1:9333" }},
		{"browser.headless", "true", func(c *config.Config) bool { return c.Browser.Headless }},
		{"timing.focus_delay", "750ms", func(c *config.Config) bool { return c.Timing.FocusDelay == 750*time.Millisecond }},
		{"timing.watch_interval", "1m", func(c *config.Config) bool { return c.Timing.WatchInterval == time.Minute }},
		{"imap.email", "me@example.com", func(c *config.Config) bool { return c.IMAP.Email == "me@example.com" }},
		{"imap.port", "143", func(c *config.Config) bool { return c.IMAP.Port == 143 }},
		{"imap.starttls", "true", func(c *config.Config) bool { return c.IMAP.StartTLS }},
		{"defaults.format", "json", func(c *config.Config) bool { return c.Defaults.Format == "json" }},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			env := newTestEnv(t, false)
			cmd := &ConfigSetCmd{Key: tt.key, Value: tt.value}
			if err := cmd.Run(env.ctx); err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			loaded, err := config.Load(env.ctx.Globals.Config)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !tt.check(loaded) {
				t.Errorf("%s not persisted as %s", tt.key, tt.value)
			}
			if !strings.Contains(env.out.String(), "Set "+tt.key) {
				t.Errorf("output = %q", env.out.String())
			}
		})
	}
}

func TestConfigSetSelectorsFile(t *testing.T) {
	env := newTestEnv(t, false)
	path := filepath.Join(t.TempDir(), "selectors.yaml")
	if err := os.WriteFile(path, []byte("version: custom\n"), 0600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if err := (&ConfigSetCmd{Key: "selectors.file", Value: path}).Run(env.ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	set, err := env.ctx.Config.Selectors()
	if err != nil {
		t.Fatalf("Selectors() error = %v", err)
	}
	if set.Version != "custom" {
		t.Errorf("Version = %q, want %q", set.Version, "custom")
	}
}

func TestConfigKeysSorted(t *testing.T) {
	keys := ConfigKeys()
	if len(keys) != len(configKeys) {
		t.Fatalf("ConfigKeys() returned %d keys, want %d", len(keys), len(configKeys))
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Errorf("keys not sorted: %q >= %q", keys[i-1], keys[i])
		}
	}
}

func TestConfigInitCmdNonInteractive(t *testing.T) {
	env := newTestEnv(t, false)

	old := stdin
	defer func() { stdin = old }()
	// endpoint, target match, no IMAP email
	stdin = strings.NewReader("ws://127.0.0.1:9444\n\n\n")

	if err := (&ConfigInitCmd{}).Run(env.ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	loaded, err := config.Load(env.ctx.Globals.Config)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Browser.CDPURL != "ws://127.0.0.1:9444" {
		t.Errorf("CDPURL = %q, want %q", loaded.Browser.CDPURL, "ws://127.0.0.1:9444")
	}
	if loaded.Browser.TargetMatch != config.DefaultTarget {
		t.Errorf("TargetMatch = %q, want default", loaded.Browser.TargetMatch)
	}
	if loaded.IMAP.Email != "" {
		t.Errorf("Email = %q, want empty", loaded.IMAP.Email)
	}
}

func TestConfigInitCmdRequiresPasswordWithEmail(t *testing.T) {
	env := newTestEnv(t, false)

	old := stdin
	defer func() { stdin = old }()
	stdin = strings.NewReader("\n\nme@example.com\n\n\n\n")

	if err := (&ConfigInitCmd{}).Run(env.ctx); err == nil {
		t.Error("expected error when the password is empty")
	}
}

func TestDevtoolsAddr(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"ws://127.0.0.1:9222", "127.0.0.1:9222", false},
		{"ws://127.0.0.1:9222/devtools/browser/abc", "127.0.0.1:9222", false},
		{"http://localhost", "localhost:80", false},
		{"wss://remote.example.com", "remote.example.com:443", false},
		{"not a url", "", true},
	}

	for _, tt := range tests {
		got, err := devtoolsAddr(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("devtoolsAddr(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("devtoolsAddr(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestConfigDoctorCmdJSON(t *testing.T) {
	env := newTestEnv(t, true)
	// Nothing listens on port 1.
	env.ctx.Config.Browser.CDPURL = "ws://127.0.0.1:1"

	if err := (&ConfigDoctorCmd{}).Run(env.ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var result struct {
		Checks  []checkResult `json:"checks"`
		Healthy bool          `json:"healthy"`
	}
	if err := json.Unmarshal(env.out.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if result.Healthy {
		t.Error("expected unhealthy without a config file or endpoint")
	}

	status := map[string]string{}
	for _, c := range result.Checks {
		status[c.Name] = c.Status
	}
	want := map[string]string{
		"Config file exists":          "fail",
		"Selectors valid":             "ok",
		"DevTools endpoint reachable": "fail",
		"IMAP cross-check":            "skip",
	}
	for name, st := range want {
		if status[name] != st {
			t.Errorf("check %q = %q, want %q", name, status[name], st)
		}
	}
	if _, ok := status["Mail client page ready"]; ok {
		t.Error("page check should not run when the endpoint is unreachable")
	}
}
