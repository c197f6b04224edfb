package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"github.com/bscott/inboxctl/internal/selectors"
)

const (
	AppName         = "inboxctl"
	DefaultCDPURL   = "ws://127.0.0.1:9222"
	DefaultURL      = "https://inbox.google.com/"
	DefaultTarget   = "inbox.google.com"
	DefaultIMAP     = "imap.gmail.com"
	DefaultIMAPPort = 993
)

type BrowserConfig struct {
	// CDPURL is the desktop shell's remote debugging endpoint. Empty
	// launches a local Chromium on URL instead.
	CDPURL         string        `yaml:"cdp_url"`
	URL            string        `yaml:"url"`
	TargetMatch    string        `yaml:"target_match"`
	Headless       bool          `yaml:"headless"`
	ExecPath       string        `yaml:"exec_path,omitempty"`
	UserDataDir    string        `yaml:"user_data_dir,omitempty"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type TimingConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval"`
	ComposeTimeout time.Duration `yaml:"compose_timeout"`
	FocusDelay     time.Duration `yaml:"focus_delay"`
	OpenTimeout    time.Duration `yaml:"open_timeout"`
	OpenRetry      time.Duration `yaml:"open_retry"`
	WatchInterval  time.Duration `yaml:"watch_interval"`
}

type IMAPConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Email   string `yaml:"email"`
	Mailbox string `yaml:"mailbox"`
	// STARTTLS on a plain port instead of implicit TLS.
	StartTLS bool `yaml:"starttls"`
}

type DefaultsConfig struct {
	Format string `yaml:"format"`
}

type Config struct {
	Browser       BrowserConfig  `yaml:"browser"`
	Timing        TimingConfig   `yaml:"timing"`
	SelectorsFile string         `yaml:"selectors_file,omitempty"`
	IMAP          IMAPConfig     `yaml:"imap"`
	Defaults      DefaultsConfig `yaml:"defaults"`
}

func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			CDPURL:         DefaultCDPURL,
			URL:            DefaultURL,
			TargetMatch:    DefaultTarget,
			ConnectTimeout: 15 * time.Second,
		},
		Timing: TimingConfig{
			PollInterval:   100 * time.Millisecond,
			ComposeTimeout: 2 * time.Second,
			FocusDelay:     500 * time.Millisecond,
			OpenTimeout:    2 * time.Second,
			OpenRetry:      100 * time.Millisecond,
			WatchInterval:  5 * time.Second,
		},
		IMAP: IMAPConfig{
			Host:    DefaultIMAP,
			Port:    DefaultIMAPPort,
			Mailbox: "INBOX",
		},
		Defaults: DefaultsConfig{
			Format: "text",
		},
	}
}

func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(configDir, AppName), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = ConfigPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s - run 'inboxctl config init' to create one", path)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		path, err = ConfigPath()
		if err != nil {
			return err
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate checks values a hand-edited file can get wrong.
func (c *Config) Validate() error {
	var errs []error
	if c.Browser.CDPURL == "" && c.Browser.URL == "" {
		errs = append(errs, errors.New("browser.url is required when browser.cdp_url is empty"))
	}
	for name, d := range map[string]time.Duration{
		"timing.poll_interval":  c.Timing.PollInterval,
		"timing.open_retry":     c.Timing.OpenRetry,
		"timing.watch_interval": c.Timing.WatchInterval,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.IMAP.Port < 0 || c.IMAP.Port > 65535 {
		errs = append(errs, fmt.Errorf("imap.port %d out of range", c.IMAP.Port))
	}
	switch c.Defaults.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("defaults.format must be 'text' or 'json', got %q", c.Defaults.Format))
	}
	return errors.Join(errs...)
}

// Selectors returns the built-in selector set, or the overrides file when
// one is configured.
func (c *Config) Selectors() (*selectors.Set, error) {
	if c.SelectorsFile == "" {
		return selectors.Default(), nil
	}
	return selectors.Load(c.SelectorsFile)
}

func (c *Config) SetPassword(password string) error {
	if c.IMAP.Email == "" {
		return errors.New("imap.email must be set before storing password")
	}
	return keyring.Set(AppName, c.IMAP.Email, password)
}

func (c *Config) GetPassword() (string, error) {
	if c.IMAP.Email == "" {
		return "", errors.New("imap.email not configured")
	}
	password, err := keyring.Get(AppName, c.IMAP.Email)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("password not found in keyring - run 'inboxctl config init' to set it")
		}
		return "", fmt.Errorf("failed to get password from keyring: %w", err)
	}
	return password, nil
}

func DeletePassword(email string) error {
	return keyring.Delete(AppName, email)
}

func Exists() bool {
	path, err := ConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
