package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSelectorsShowCmdJSON(t *testing.T) {
	env := newTestEnv(t, true)

	if err := (&SelectorsShowCmd{}).Run(env.ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	data := env.envelope(t)
	if data["version"] != sel.Version {
		t.Errorf("version = %v, want %v", data["version"], sel.Version)
	}
	entries, ok := data["selectors"].([]interface{})
	if !ok || len(entries) == 0 {
		t.Errorf("selectors = %v, want entries", data["selectors"])
	}
}

func TestSelectorsShowCmdText(t *testing.T) {
	env := newTestEnv(t, false)

	if err := (&SelectorsShowCmd{}).Run(env.ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	out := env.out.String()
	for _, want := range []string{"built-in", "search_input", sel.SearchInput} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestSelectorsExportThenValidate(t *testing.T) {
	env := newTestEnv(t, false)
	path := filepath.Join(t.TempDir(), "selectors.yaml")

	if err := (&SelectorsExportCmd{Out: path}).Run(env.ctx); err != nil {
		t.Fatalf("export error = %v", err)
	}
	if err := (&SelectorsValidateCmd{File: path}).Run(env.ctx); err != nil {
		t.Fatalf("validate error = %v", err)
	}
	if !strings.Contains(env.out.String(), "is valid") {
		t.Errorf("output = %q", env.out.String())
	}
}

func TestSelectorsValidateCmdErrors(t *testing.T) {
	env := newTestEnv(t, false)

	if err := (&SelectorsValidateCmd{}).Run(env.ctx); err == nil {
		t.Error("expected error without a file")
	}

	path := filepath.Join(t.TempDir(), "selectors.yaml")
	if err := os.WriteFile(path, []byte("search_input: \"\"\n"), 0600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	err := (&SelectorsValidateCmd{File: path}).Run(env.ctx)
	if err == nil || !strings.Contains(err.Error(), "search_input") {
		t.Errorf("error = %v, want mention of search_input", err)
	}

	// Falls back to the configured file.
	env.ctx.Config.SelectorsFile = path
	if err := (&SelectorsValidateCmd{}).Run(env.ctx); err == nil {
		t.Error("expected error for configured invalid file")
	}
}

func TestContactsCommands(t *testing.T) {
	isolateConfigDir(t)
	env := newTestEnv(t, false)

	if err := (&ContactsListCmd{}).Run(env.ctx); err != nil {
		t.Fatalf("list error = %v", err)
	}
	if !strings.Contains(env.out.String(), "No contacts") {
		t.Errorf("output = %q", env.out.String())
	}

	add := &ContactsAddCmd{Email: "ann@example.com", Name: "Ann Lee", Alias: "ann"}
	if err := add.Run(env.ctx); err != nil {
		t.Fatalf("add error = %v", err)
	}
	if err := add.Run(env.ctx); err == nil {
		t.Error("expected error adding a duplicate")
	}

	env.out.Reset()
	jsonEnv := newTestEnv(t, true)
	if err := (&ContactsListCmd{}).Run(jsonEnv.ctx); err != nil {
		t.Fatalf("list error = %v", err)
	}
	var listed struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(jsonEnv.out.Bytes(), &listed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if listed.Count != 1 {
		t.Errorf("count = %d, want 1", listed.Count)
	}

	if err := (&ContactsRemoveCmd{Key: "ann"}).Run(env.ctx); err != nil {
		t.Fatalf("remove error = %v", err)
	}
	if err := (&ContactsRemoveCmd{Key: "ann"}).Run(env.ctx); err == nil {
		t.Error("expected error removing a missing contact")
	}
}
