// Package selectors holds the CSS selectors that tie the adapter to one
// version of the web client's markup. They are data, not code: a changed
// client gets a new overrides file, not a new build.
package selectors

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultVersion names the built-in set.
const DefaultVersion = "ginbox-2018"

type Set struct {
	Version string `yaml:"version"`

	// Items matches every element carrying an item and an email marker.
	Items   string `yaml:"items"`
	Cluster string `yaml:"cluster"`

	InboxTab     string `yaml:"inbox_tab"`
	PinnedToggle string `yaml:"pinned_toggle"`

	// ComposeButtons are tried in order.
	ComposeButtons   []string `yaml:"compose_buttons"`
	ComposeBody      string   `yaml:"compose_body"`
	ComposeDialog    string   `yaml:"compose_dialog"`
	ComposeRecipient string   `yaml:"compose_recipient"`
	ComposeSubject   string   `yaml:"compose_subject"`
	ComposeLabel     string   `yaml:"compose_label"`

	SearchInput  string `yaml:"search_input"`
	SearchResult string `yaml:"search_result"`
}

func Default() *Set {
	return &Set{
		Version:      DefaultVersion,
		Items:        `[data-item-id] [email]`,
		Cluster:      `[data-item-id^="#clusters"]`,
		InboxTab:     `nav [role="menuitem"]`,
		PinnedToggle: `[jsaction="global.toggle_pinned"]`,
		ComposeButtons: []string{
			`button.y.hC`,
			`[jsaction="jsl._"]`,
		},
		ComposeBody:      `[g_editable="true"][role="textbox"]`,
		ComposeDialog:    `[role="dialog"]`,
		ComposeRecipient: `input`,
		ComposeSubject:   `[jsaction*="subject"]`,
		ComposeLabel:     `label`,
		SearchInput:      `[role="search"] input`,
		SearchResult:     `[jsaction*="search.toggle_item"]`,
	}
}

// Load reads a YAML overrides file. Keys left out keep their default value.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read selectors: %w", err)
	}

	s := Default()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse selectors: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid selectors in %s: %w", path, err)
	}
	return s, nil
}

// Validate rejects a set with any empty selector.
func (s *Set) Validate() error {
	var missing []string
	for name, v := range s.fields() {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(s.ComposeButtons) == 0 {
		missing = append(missing, "compose_buttons")
	}
	for i, b := range s.ComposeButtons {
		if strings.TrimSpace(b) == "" {
			missing = append(missing, fmt.Sprintf("compose_buttons[%d]", i))
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return errors.New("empty selector(s): " + strings.Join(missing, ", "))
	}
	return nil
}

func (s *Set) fields() map[string]string {
	return map[string]string{
		"version":           s.Version,
		"items":             s.Items,
		"cluster":           s.Cluster,
		"inbox_tab":         s.InboxTab,
		"pinned_toggle":     s.PinnedToggle,
		"compose_body":      s.ComposeBody,
		"compose_dialog":    s.ComposeDialog,
		"compose_recipient": s.ComposeRecipient,
		"compose_subject":   s.ComposeSubject,
		"compose_label":     s.ComposeLabel,
		"search_input":      s.SearchInput,
		"search_result":     s.SearchResult,
	}
}

// Entry is one named selector of a set.
type Entry struct {
	Name     string `json:"name"`
	Selector string `json:"selector"`
}

// Entries lists the set's selectors sorted by name, compose buttons in
// trial order.
func (s *Set) Entries() []Entry {
	fields := s.fields()
	delete(fields, "version")
	for i, b := range s.ComposeButtons {
		fields[fmt.Sprintf("compose_buttons[%d]", i)] = b
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]Entry, 0, len(names))
	for _, name := range names {
		out = append(out, Entry{Name: name, Selector: fields[name]})
	}
	return out
}

// Save writes the set as YAML, for use as a starting overrides file.
func (s *Set) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal selectors: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write selectors: %w", err)
	}
	return nil
}
