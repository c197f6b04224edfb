package dom

import (
	"context"
	"errors"
	"testing"
)

func TestFixtureQueryWithinAndClosest(t *testing.T) {
	f := NewFixture()
	dialog := f.Add(&Element{Tag: "DIV", Matches: []string{"dialog"}})
	input := f.Add(&Element{Tag: "INPUT", Parent: dialog, Matches: []string{"input"}})
	f.Add(&Element{Tag: "INPUT", Matches: []string{"input"}})

	ctx := context.Background()
	nodes, err := f.QueryAll(ctx, Query{Selector: "input"})
	if err != nil {
		t.Fatalf("QueryAll() error = %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("QueryAll() = %d nodes, want 2", len(nodes))
	}

	n, err := f.Query(ctx, Query{Selector: "input", Within: dialog.Ref, Closest: "dialog", WithParent: true})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if n.Ref != input.Ref {
		t.Errorf("Ref = %q, want %q", n.Ref, input.Ref)
	}
	if n.Closest != dialog.Ref {
		t.Errorf("Closest = %q, want %q", n.Closest, dialog.Ref)
	}
	if n.Parent != dialog.Ref {
		t.Errorf("Parent = %q, want %q", n.Parent, dialog.Ref)
	}
}

func TestFixtureQueryNotFound(t *testing.T) {
	f := NewFixture()
	_, err := f.Query(context.Background(), Query{Selector: "missing"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Query() error = %v, want ErrNotFound", err)
	}
}

func TestFixtureClickRunsHook(t *testing.T) {
	f := NewFixture()
	added := false
	btn := f.Add(&Element{Tag: "BUTTON", Matches: []string{"button"}})
	btn.OnClick = func() {
		f.Add(&Element{Tag: "DIV", Matches: []string{"dialog"}})
		added = true
	}

	if err := f.Click(context.Background(), btn.Ref); err != nil {
		t.Fatalf("Click() error = %v", err)
	}
	if !added {
		t.Error("OnClick hook did not run")
	}
	if len(f.Clicks) != 1 || f.Clicks[0] != btn.Ref {
		t.Errorf("Clicks = %v, want [%s]", f.Clicks, btn.Ref)
	}
}

func TestFixtureCancelledContext(t *testing.T) {
	f := NewFixture()
	e := f.Add(&Element{Tag: "INPUT", Matches: []string{"input"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := f.SetValue(ctx, e.Ref, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("SetValue() error = %v, want context.Canceled", err)
	}
	if _, err := f.QueryAll(ctx, Query{Selector: "input"}); !errors.Is(err, context.Canceled) {
		t.Errorf("QueryAll() error = %v, want context.Canceled", err)
	}
}
