package cli

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"
)

type HelpSchema struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Commands    []CommandSchema `json:"commands"`
	GlobalFlags []FlagSchema    `json:"global_flags"`
}

type CommandSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Flags       []FlagSchema    `json:"flags,omitempty"`
	Args        []ArgSchema     `json:"args,omitempty"`
	Subcommands []CommandSchema `json:"subcommands,omitempty"`
	Examples    []string        `json:"examples,omitempty"`
}

type FlagSchema struct {
	Name        string `json:"name"`
	Short       string `json:"short,omitempty"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
	Required    bool   `json:"required,omitempty"`
	Description string `json:"description"`
}

type ArgSchema struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
}

const Description = "Query and drive the Inbox web mail client over the Chrome DevTools Protocol"

var examples = map[string][]string{
	"status":             {"inboxctl status", "inboxctl status --json"},
	"unread":             {"inboxctl unread", "inboxctl unread --watch --interval 30s", "inboxctl unread --verify --json"},
	"tab":                {"inboxctl tab"},
	"pinned":             {"inboxctl pinned --json"},
	"compose":            {"inboxctl compose -t ann -s 'Lunch?' -b 'Noon at the usual place'", "echo 'Body from stdin' | inboxctl compose -t ann@example.com -b -", "inboxctl compose --mailto 'mailto:ann@example.com?subject=Hi'"},
	"search":             {"inboxctl search 'from:ann invoice'", "inboxctl search 'quarterly report' --open"},
	"open-first":         {"inboxctl open-first", "inboxctl open-first --timeout 5s"},
	"selectors show":     {"inboxctl selectors show", "inboxctl selectors show --json"},
	"selectors validate": {"inboxctl selectors validate ~/selectors.yaml"},
	"selectors export":   {"inboxctl selectors export ~/selectors.yaml"},
	"config init":        {"inboxctl config init"},
	"config show":        {"inboxctl config show --json"},
	"config set":         {"inboxctl config set browser.cdp_url ws://127.0.0.1:9222", "inboxctl config set timing.focus_delay 750ms", "inboxctl config set selectors.file ~/selectors.yaml"},
	"config doctor":      {"inboxctl config doctor", "inboxctl config doctor --json"},
	"contacts list":      {"inboxctl contacts list"},
	"contacts add":       {"inboxctl contacts add ann@example.com --name 'Ann Lee' --alias ann"},
	"contacts remove":    {"inboxctl contacts remove ann"},
	"version":            {"inboxctl version", "inboxctl version --json"},
}

func GenerateHelpJSON(cli *CLI) ([]byte, error) {
	t := reflect.TypeOf(cli).Elem()
	globals, _ := t.FieldByName("Globals")

	schema := HelpSchema{
		Name:        "inboxctl",
		Version:     Version,
		Description: Description,
		GlobalFlags: extractFlags(globals.Type),
		Commands:    extractCommands(t, ""),
	}

	return json.MarshalIndent(schema, "", "  ")
}

// extractCommands walks kong `cmd` fields of t using reflection.
func extractCommands(t reflect.Type, prefix string) []CommandSchema {
	var cmds []CommandSchema

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if _, ok := field.Tag.Lookup("cmd"); !ok {
			continue
		}

		name := field.Tag.Get("name")
		if name == "" {
			name = kebab(field.Name)
		}
		full := strings.TrimSpace(prefix + " " + name)

		cmds = append(cmds, CommandSchema{
			Name:        full,
			Description: field.Tag.Get("help"),
			Flags:       extractFlags(field.Type),
			Args:        extractArgs(field.Type),
			Subcommands: extractCommands(field.Type, full),
			Examples:    examples[full],
		})
	}

	return cmds
}

func extractFlags(t reflect.Type) []FlagSchema {
	var flags []FlagSchema

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Anonymous {
			continue
		}
		if _, ok := field.Tag.Lookup("cmd"); ok {
			continue
		}
		if _, ok := field.Tag.Lookup("arg"); ok {
			continue
		}

		helpTag := field.Tag.Get("help")
		if helpTag == "" {
			continue
		}

		flagName := "--" + kebab(field.Name)
		if nameTag := field.Tag.Get("name"); nameTag != "" {
			flagName = "--" + nameTag
		}

		flag := FlagSchema{
			Name:        flagName,
			Type:        getTypeString(field.Type),
			Description: helpTag,
			Default:     field.Tag.Get("default"),
		}
		_, flag.Required = field.Tag.Lookup("required")

		if shortTag := field.Tag.Get("short"); shortTag != "" {
			flag.Short = "-" + shortTag
		}

		flags = append(flags, flag)
	}

	return flags
}

func extractArgs(t reflect.Type) []ArgSchema {
	var args []ArgSchema

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if _, ok := field.Tag.Lookup("arg"); !ok {
			continue
		}
		_, optional := field.Tag.Lookup("optional")
		args = append(args, ArgSchema{
			Name:        kebab(field.Name),
			Type:        getTypeString(field.Type),
			Required:    !optional,
			Description: field.Tag.Get("help"),
		})
	}

	return args
}

// kebab converts a Go field name to kong's flag spelling.
func kebab(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]) {
			b.WriteByte('-')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

var durationType = reflect.TypeOf(time.Duration(0))

func getTypeString(t reflect.Type) string {
	if t == durationType {
		return "duration"
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "int"
	case reflect.Bool:
		return "bool"
	case reflect.Slice:
		return "[]" + getTypeString(t.Elem())
	default:
		return t.String()
	}
}

func PrintHelpJSON(cli *CLI) error {
	data, err := GenerateHelpJSON(cli)
	if err != nil {
		return fmt.Errorf("failed to generate help JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
