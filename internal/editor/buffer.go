package editor

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/starford/quire/internal/content"
)

// Buffer is a plain-text editing surface. Documents are shown as indented
// JSON and parsed back on Serialize.
type Buffer struct {
	mu   sync.Mutex
	kind content.Kind
	text string
	rev  uint64
}

// NewBuffer returns an empty HTML buffer.
func NewBuffer() *Buffer { return &Buffer{} }

// Reset empties the buffer and switches it back to HTML.
func (b *Buffer) Reset() {
	b.mu.Lock()
	b.kind = content.KindHTML
	b.text = ""
	b.rev++
	b.mu.Unlock()
}

// Load replaces the buffer with c. A document whose JSON cannot be indented
// is rejected and the buffer is left unchanged.
func (b *Buffer) Load(c content.Content) error {
	text := c.Text()
	if c.Kind() == content.KindDocument {
		var buf bytes.Buffer
		if err := json.Indent(&buf, c.Raw(), "", "  "); err != nil {
			return err
		}
		text = buf.String()
	}
	b.mu.Lock()
	b.kind = c.Kind()
	b.text = text
	b.rev++
	b.mu.Unlock()
	return nil
}

// Serialize returns the buffer as content of its loaded kind. Edited
// document text that is no longer valid JSON is an error.
func (b *Buffer) Serialize() (content.Content, error) {
	b.mu.Lock()
	kind, text := b.kind, b.text
	b.mu.Unlock()
	if kind == content.KindDocument {
		return content.Document([]byte(text))
	}
	return content.HTML(text), nil
}

// SetText replaces the text as if the user typed it. The kind is kept.
func (b *Buffer) SetText(s string) {
	b.mu.Lock()
	if s != b.text {
		b.text = s
		b.rev++
	}
	b.mu.Unlock()
}

// Text returns the displayed text.
func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

// Kind returns the kind of the loaded content.
func (b *Buffer) Kind() content.Kind {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.kind
}

// Revision increases on every change.
func (b *Buffer) Revision() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rev
}
