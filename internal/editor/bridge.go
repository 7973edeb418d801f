// Package editor connects note content to whichever editing surface is
// currently attached. The surface may come and go; the bridge makes every
// operation safe while it is absent.
package editor

import (
	"bytes"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/quire/internal/content"
)

// Instance is an editing surface.
type Instance interface {
	Reset()
	Load(c content.Content) error
	Serialize() (content.Content, error)
}

// Bridge holds at most one Instance.
type Bridge struct {
	mu   sync.Mutex
	inst Instance
}

// NewBridge returns a bridge with no instance attached.
func NewBridge() *Bridge { return &Bridge{} }

// SetInstance replaces the held instance. nil detaches.
func (b *Bridge) SetInstance(inst Instance) {
	b.mu.Lock()
	b.inst = inst
	b.mu.Unlock()
}

// Detach drops the instance, as when the editing surface unmounts.
func (b *Bridge) Detach() { b.SetInstance(nil) }

// Attached reports whether an instance is present.
func (b *Bridge) Attached() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inst != nil
}

func (b *Bridge) instance() Instance {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inst
}

// Push clears the editor and loads c. HTML wrapped in a full document is
// reduced to the body's inner markup first. If the instance rejects that, it
// is handed the raw text as HTML instead, and only if that fails too is it
// left cleared. Push never fails.
func (b *Bridge) Push(c content.Content) {
	inst := b.instance()
	if inst == nil {
		return
	}
	inst.Reset()
	raw := c.Text()
	if c.Kind() == content.KindHTML {
		c = content.HTML(strings.TrimSpace(bodyInner(raw)))
	}
	if err := inst.Load(c); err == nil {
		return
	}
	if err := inst.Load(content.HTML(raw)); err != nil {
		inst.Reset()
	}
}

// Pull serializes the editor. Without an instance it returns empty content.
func (b *Bridge) Pull() (content.Content, error) {
	inst := b.instance()
	if inst == nil {
		return content.Empty(), nil
	}
	return inst.Serialize()
}

var documentMarkup = regexp.MustCompile(`(?i)<\s*html\b|<\s*body\b`)

// bodyInner returns the inner HTML of <body> when s looks like a full
// document, and s unchanged otherwise or on parse failure.
func bodyInner(s string) string {
	if !documentMarkup.MatchString(s) {
		return s
	}
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}
	body := findBody(doc)
	if body == nil {
		return s
	}
	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return s
		}
	}
	return buf.String()
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
