package contacts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bscott/inboxctl/internal/config"
)

// Contact represents a single address book entry.
type Contact struct {
	Email   string    `yaml:"email" json:"email"`
	Name    string    `yaml:"name,omitempty" json:"name,omitempty"`
	Alias   string    `yaml:"alias,omitempty" json:"alias,omitempty"`
	Created time.Time `yaml:"created" json:"created"`
	Updated time.Time `yaml:"updated" json:"updated"`
}

// Store manages the contacts address book.
type Store struct {
	Contacts []Contact `yaml:"contacts"`
	path     string
}

func contactsPath() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "contacts.yaml"), nil
}

// Load reads the contacts store from the config directory.
func Load() (*Store, error) {
	path, err := contactsPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the contacts store at path. A missing file is an empty store.
func LoadFile(path string) (*Store, error) {
	store := &Store{
		Contacts: []Contact{},
		path:     path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, fmt.Errorf("failed to read contacts: %w", err)
	}

	if err := yaml.Unmarshal(data, store); err != nil {
		return nil, fmt.Errorf("failed to parse contacts: %w", err)
	}
	if store.Contacts == nil {
		store.Contacts = []Contact{}
	}

	return store, nil
}

// Save writes the contacts store to disk.
func (s *Store) Save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal contacts: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write contacts: %w", err)
	}

	return nil
}

func sortKey(c Contact) string {
	if c.Name != "" {
		return strings.ToLower(c.Name)
	}
	return strings.ToLower(c.Email)
}

// List returns all contacts sorted by name, or email if no name.
func (s *Store) List() []Contact {
	contacts := make([]Contact, len(s.Contacts))
	copy(contacts, s.Contacts)

	sort.Slice(contacts, func(i, j int) bool {
		return sortKey(contacts[i]) < sortKey(contacts[j])
	})

	return contacts
}

// Add creates a new contact. Returns error if the email or alias is taken.
func (s *Store) Add(email, name, alias string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	name = strings.TrimSpace(name)
	alias = strings.TrimSpace(strings.ToLower(alias))

	if email == "" {
		return fmt.Errorf("email is required")
	}
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email %q", email)
	}
	if strings.Contains(alias, "@") || strings.Contains(alias, ",") {
		return fmt.Errorf("alias %q must not contain '@' or ','", alias)
	}

	for _, c := range s.Contacts {
		if strings.EqualFold(c.Email, email) {
			return fmt.Errorf("contact with email %s already exists", email)
		}
		if alias != "" && strings.EqualFold(c.Alias, alias) {
			return fmt.Errorf("alias %s already used by %s", alias, c.Email)
		}
	}

	now := time.Now()
	s.Contacts = append(s.Contacts, Contact{
		Email:   email,
		Name:    name,
		Alias:   alias,
		Created: now,
		Updated: now,
	})

	return s.Save()
}

// Remove deletes a contact by email or alias. Returns error if not found.
func (s *Store) Remove(key string) error {
	key = strings.TrimSpace(key)

	for i, c := range s.Contacts {
		if strings.EqualFold(c.Email, key) || (c.Alias != "" && strings.EqualFold(c.Alias, key)) {
			s.Contacts = append(s.Contacts[:i], s.Contacts[i+1:]...)
			return s.Save()
		}
	}

	return fmt.Errorf("contact %s not found", key)
}

// Get retrieves a contact by email. Returns nil if not found.
func (s *Store) Get(email string) *Contact {
	email = strings.TrimSpace(email)

	for _, c := range s.Contacts {
		if strings.EqualFold(c.Email, email) {
			return &c
		}
	}

	return nil
}

// Count returns the number of contacts.
func (s *Store) Count() int {
	return len(s.Contacts)
}

// Resolve maps each comma separated entry of recipients to an address.
// Aliases win over names; entries that match neither pass through
// unchanged.
func (s *Store) Resolve(recipients string) string {
	if strings.TrimSpace(recipients) == "" {
		return recipients
	}

	parts := strings.Split(recipients, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, s.resolveOne(p))
	}
	return strings.Join(out, ", ")
}

func (s *Store) resolveOne(key string) string {
	if strings.Contains(key, "@") {
		return key
	}
	for _, c := range s.Contacts {
		if c.Alias != "" && strings.EqualFold(c.Alias, key) {
			return c.Email
		}
	}
	for _, c := range s.Contacts {
		if c.Name != "" && strings.EqualFold(c.Name, key) {
			return c.Email
		}
	}
	return key
}
