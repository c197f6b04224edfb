package inbox

import (
	"context"
	"strings"
	"testing"

	"github.com/bscott/inboxctl/internal/dom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type composeFixture struct {
	f                                *dom.Fixture
	button                           *dom.Element
	dialog, recipient, subject, body *dom.Element
	label                            *dom.Element
}

// newComposeFixture builds a page whose compose button opens a dialog on
// click, the way the client renders it lazily.
func newComposeFixture(withSubject bool) *composeFixture {
	cf := &composeFixture{f: dom.NewFixture()}
	cf.button = cf.f.Add(&dom.Element{Tag: "BUTTON", Matches: []string{sel.ComposeButtons[1]}})
	cf.button.OnClick = func() {
		f := cf.f
		cf.dialog = f.Add(&dom.Element{Tag: "DIV", Matches: []string{sel.ComposeDialog}})
		cf.recipient = f.Add(&dom.Element{Tag: "INPUT", Parent: cf.dialog, Matches: []string{sel.ComposeRecipient}})
		if withSubject {
			cf.subject = f.Add(&dom.Element{Tag: "INPUT", Parent: cf.dialog, Matches: []string{sel.ComposeRecipient, sel.ComposeSubject}})
		}
		wrap := f.Add(&dom.Element{Tag: "DIV", Parent: cf.dialog})
		cf.label = f.Add(&dom.Element{Tag: "LABEL", Parent: wrap, Matches: []string{sel.ComposeLabel}})
		cf.body = f.Add(&dom.Element{Tag: "DIV", Parent: wrap, HTML: "<br>", Matches: []string{sel.ComposeBody}})
	}
	return cf
}

func (cf *composeFixture) snap(t *testing.T, e *dom.Element) dom.Element {
	t.Helper()
	s, ok := cf.f.Snapshot(e.Ref)
	require.True(t, ok)
	return s
}

func TestComposeFillsAllFields(t *testing.T) {
	cf := newComposeFixture(true)
	a := newAdapter(cf.f)

	res, err := a.Compose(context.Background(), Draft{
		Recipient: "ann@example.com",
		Subject:   "Lunch",
		Body:      "See you at noon",
	})
	require.NoError(t, err)

	assert.True(t, res.Opened)
	assert.Equal(t, []Field{FieldRecipient, FieldSubject, FieldBody}, res.Filled)
	assert.Equal(t, FieldBody, res.Focused)

	assert.Equal(t, "ann@example.com", cf.snap(t, cf.recipient).Value)
	assert.Equal(t, "Lunch", cf.snap(t, cf.subject).Value)
	assert.Equal(t, "See you at noon<br>", cf.snap(t, cf.body).HTML)
	assert.Equal(t, "none", cf.snap(t, cf.label).Styles["display"])
	assert.True(t, cf.snap(t, cf.body).Focused)
}

func TestComposeEscapesMarkup(t *testing.T) {
	cf := newComposeFixture(true)
	a := newAdapter(cf.f)

	_, err := a.Compose(context.Background(), Draft{
		Recipient: `"Eve" <eve@example.com>`,
		Subject:   `<script>alert('x')</script>`,
		Body:      `<img src=x onerror="steal()"> & more`,
	})
	require.NoError(t, err)

	recipient := cf.snap(t, cf.recipient).Value
	subject := cf.snap(t, cf.subject).Value
	body := cf.snap(t, cf.body).HTML

	assert.Equal(t, "&#34;Eve&#34; &lt;eve@example.com&gt;", recipient)
	assert.Equal(t, "&lt;script&gt;alert(&#39;x&#39;)&lt;/script&gt;", subject)
	assert.True(t, strings.HasPrefix(body, "&lt;img src=x onerror=&#34;steal()&#34;&gt; &amp; more"), body)
	for _, v := range []string{recipient, subject, strings.TrimSuffix(body, "<br>")} {
		assert.NotContains(t, v, "<")
		assert.NotContains(t, v, ">")
	}
}

func TestComposeFocusFollowsLastFilledField(t *testing.T) {
	cf := newComposeFixture(true)
	res, err := newAdapter(cf.f).Compose(context.Background(), Draft{Recipient: "ann@example.com"})
	require.NoError(t, err)
	assert.Equal(t, []Field{FieldRecipient}, res.Filled)
	assert.Equal(t, FieldSubject, res.Focused)
	assert.True(t, cf.snap(t, cf.subject).Focused)

	cf = newComposeFixture(true)
	res, err = newAdapter(cf.f).Compose(context.Background(), Draft{Subject: "Hi"})
	require.NoError(t, err)
	assert.Equal(t, FieldBody, res.Focused)
	assert.Equal(t, "<br>", cf.snap(t, cf.body).HTML, "empty body left untouched")
	assert.Empty(t, cf.snap(t, cf.label).Styles["display"])
}

func TestComposeRecipientWithoutSubjectField(t *testing.T) {
	cf := newComposeFixture(false)
	res, err := newAdapter(cf.f).Compose(context.Background(), Draft{Recipient: "ann@example.com", Subject: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, []Field{FieldRecipient}, res.Filled)
	assert.Empty(t, res.Focused)
}

func TestComposeEmptyDraftOnlyOpens(t *testing.T) {
	cf := newComposeFixture(true)
	res, err := newAdapter(cf.f).Compose(context.Background(), Draft{})
	require.NoError(t, err)
	assert.True(t, res.Opened)
	assert.Empty(t, res.Filled)
	assert.Empty(t, res.Focused)
}

func TestComposeWithoutTriggerIsNoop(t *testing.T) {
	f := dom.NewFixture()
	res, err := newAdapter(f).Compose(context.Background(), Draft{Subject: "x"})
	require.NoError(t, err)
	assert.Equal(t, ComposeResult{}, res)
	assert.Empty(t, f.Clicks)
}

func TestComposePrefersFirstTrigger(t *testing.T) {
	cf := newComposeFixture(true)
	primary := cf.f.Add(&dom.Element{Tag: "BUTTON", Matches: []string{sel.ComposeButtons[0]}})
	primary.OnClick = cf.button.OnClick

	_, err := newAdapter(cf.f).Compose(context.Background(), Draft{Subject: "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{primary.Ref}, cf.f.Clicks)
}

func TestComposeDialogNeverAppears(t *testing.T) {
	f := dom.NewFixture()
	f.Add(&dom.Element{Tag: "BUTTON", Matches: []string{sel.ComposeButtons[0]}})

	res, err := newAdapter(f).Compose(context.Background(), Draft{Subject: "x"})
	require.NoError(t, err)
	assert.True(t, res.Opened)
	assert.Empty(t, res.Filled)
}

func TestComposeBodyOutsideDialog(t *testing.T) {
	f := dom.NewFixture()
	f.Add(&dom.Element{Tag: "BUTTON", Matches: []string{sel.ComposeButtons[0]}})
	body := f.Add(&dom.Element{Tag: "DIV", Matches: []string{sel.ComposeBody}})

	res, err := newAdapter(f).Compose(context.Background(), Draft{Body: "hello"})
	require.NoError(t, err)
	assert.Empty(t, res.Filled)

	s, _ := f.Snapshot(body.Ref)
	assert.Empty(t, s.HTML)
}
