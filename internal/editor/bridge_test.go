package editor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/quire/internal/content"
)

func TestNoInstance(t *testing.T) {
	b := NewBridge()
	b.Push(content.HTML("<p>x</p>"))
	got, err := b.Pull()
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
	assert.False(t, b.Attached())
}

func TestPushExtractsBody(t *testing.T) {
	buf := NewBuffer()
	b := NewBridge()
	b.SetInstance(buf)

	b.Push(content.HTML("<html><head><title>t</title></head><BODY>\n<h1>Hi</h1><p>there</p>\n</BODY></html>"))
	assert.Equal(t, "<h1>Hi</h1><p>there</p>", buf.Text())

	b.Push(content.HTML("  <p>fragment</p>  "))
	assert.Equal(t, "<p>fragment</p>", buf.Text())
}

func TestPushDocumentRoundTrip(t *testing.T) {
	buf := NewBuffer()
	b := NewBridge()
	b.SetInstance(buf)

	doc, err := content.Document([]byte(`{"type":"doc","content":[]}`))
	require.NoError(t, err)
	b.Push(doc)
	assert.Equal(t, content.KindDocument, buf.Kind())

	got, err := b.Pull()
	require.NoError(t, err)
	assert.True(t, got.Equal(doc))
}

type failing struct{ resets int }

func (f *failing) Reset()                              { f.resets++ }
func (f *failing) Load(content.Content) error          { return errors.New("boom") }
func (f *failing) Serialize() (content.Content, error) { return content.Empty(), nil }

func TestPushSwallowsLoadFailure(t *testing.T) {
	f := &failing{}
	b := NewBridge()
	b.SetInstance(f)
	b.Push(content.HTML("<p/>"))
	assert.Equal(t, 2, f.resets)
}

// picky rejects the first Load and records the rest.
type picky struct {
	failed bool
	loaded []string
}

func (p *picky) Reset() {}
func (p *picky) Load(c content.Content) error {
	if !p.failed {
		p.failed = true
		return errors.New("unsupported markup")
	}
	p.loaded = append(p.loaded, c.Text())
	return nil
}
func (p *picky) Serialize() (content.Content, error) { return content.Empty(), nil }

func TestPushFallsBackToRawText(t *testing.T) {
	raw := "<html><body><p>hi</p></body></html>"
	p := &picky{}
	b := NewBridge()
	b.SetInstance(p)
	b.Push(content.HTML(raw))
	require.Len(t, p.loaded, 1)
	assert.Equal(t, raw, p.loaded[0])
}

func TestBufferRevision(t *testing.T) {
	buf := NewBuffer()
	r := buf.Revision()
	buf.SetText("a")
	buf.SetText("a")
	assert.Equal(t, r+1, buf.Revision())
}
