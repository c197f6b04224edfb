package inbox

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bscott/inboxctl/internal/dom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSearchDispatchesOneInputEvent(t *testing.T) {
	f := dom.NewFixture()
	input := f.Add(&dom.Element{Tag: "INPUT", Matches: []string{sel.SearchInput}})

	term := `from:ann "q3 <report>"`
	require.NoError(t, newAdapter(f).Search(context.Background(), term))

	require.Len(t, f.Events, 1)
	ev := f.Events[0]
	assert.Equal(t, input.Ref, ev.Ref)
	assert.Equal(t, dom.Event{Type: "input", Bubbles: true, Cancelable: true}, ev.Event)
	assert.Equal(t, term, ev.Value, "search term is literal, not escaped")
}

func TestSearchMissingField(t *testing.T) {
	f := dom.NewFixture()
	err := newAdapter(f).Search(context.Background(), "x")
	assert.ErrorIs(t, err, dom.ErrNotFound)
	assert.Empty(t, f.Events)
}

func addResult(f *dom.Fixture) *dom.Element {
	return f.Add(&dom.Element{
		Tag:     "DIV",
		Matches: []string{sel.SearchResult},
		Rect:    dom.Rect{Left: 40, Top: 120, Width: 600, Height: 48},
	})
}

func TestOpenFirstSearchResultClicksCorner(t *testing.T) {
	f := dom.NewFixture()
	addResult(f)
	f.Add(&dom.Element{Tag: "DIV", Matches: []string{sel.SearchResult}, Rect: dom.Rect{Left: 40, Top: 200}})

	ok, err := newAdapter(f).OpenFirstSearchResult(context.Background(), OpenOptions{})
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []dom.MouseEvent{
		{Type: dom.MouseDown, X: 41, Y: 121, Button: "left", ClickCount: 1},
		{Type: dom.MouseUp, X: 41, Y: 121, Button: "left", ClickCount: 1},
	}, f.MouseEvents())
}

func TestOpenFirstSearchResultAppearsLater(t *testing.T) {
	f := dom.NewFixture()
	go func() {
		time.Sleep(15 * time.Millisecond)
		addResult(f)
	}()

	ok, err := newAdapter(f).OpenFirstSearchResult(context.Background(), OpenOptions{
		Timeout: time.Second,
		Retry:   2 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, f.MouseEvents(), 2)
}

func TestOpenFirstSearchResultTimeout(t *testing.T) {
	f := dom.NewFixture()
	ok, err := newAdapter(f).OpenFirstSearchResult(context.Background(), OpenOptions{
		Timeout: 20 * time.Millisecond,
		Retry:   2 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.False(t, ok)

	polls := f.QueryCount()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, polls, f.QueryCount(), "polling continued after timeout")
	assert.Empty(t, f.MouseEvents())
}

func TestStartOpenFirstSearchResultCallback(t *testing.T) {
	f := dom.NewFixture()
	addResult(f)

	got := make(chan bool, 1)
	h := newAdapter(f).StartOpenFirstSearchResult(context.Background(), OpenOptions{Retry: time.Millisecond}, func(ok bool) {
		got <- ok
	})
	opened, err := h.Wait()
	require.NoError(t, err)
	assert.True(t, opened)
	assert.True(t, <-got)
}

func TestStartOpenFirstSearchResultTimeoutCallback(t *testing.T) {
	f := dom.NewFixture()
	got := make(chan bool, 1)
	h := newAdapter(f).StartOpenFirstSearchResult(context.Background(), OpenOptions{
		Timeout: 15 * time.Millisecond,
		Retry:   time.Millisecond,
	}, func(ok bool) { got <- ok })

	_, err := h.Wait()
	require.NoError(t, err)
	select {
	case ok := <-got:
		assert.False(t, ok)
	default:
		t.Fatal("callback not called after timeout")
	}
}

func TestStartOpenFirstSearchResultCancel(t *testing.T) {
	f := dom.NewFixture()
	var calls atomic.Int32
	h := newAdapter(f).StartOpenFirstSearchResult(context.Background(), OpenOptions{
		Timeout: time.Second,
		Retry:   time.Millisecond,
	}, func(bool) { calls.Add(1) })

	time.Sleep(5 * time.Millisecond)
	h.Cancel()
	_, err := h.Wait()
	assert.True(t, errors.Is(err, context.Canceled))

	addResult(f)
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, calls.Load())
	assert.Empty(t, f.MouseEvents())
}
