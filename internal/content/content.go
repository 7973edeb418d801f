// Package content models a note body as either an HTML fragment or a
// structured JSON document, depending on which editor variant produced it.
package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/starford/quire/internal/apperr"
)

// Kind tags a Content value.
type Kind int

const (
	KindHTML Kind = iota
	KindDocument
)

func (k Kind) String() string {
	if k == KindDocument {
		return "document"
	}
	return "html"
}

// Media types used on the wire.
const (
	MediaHTML     = "text/html"
	MediaDocument = "application/json"
)

// Content is a tagged union. The zero value is empty HTML.
type Content struct {
	kind Kind
	html string
	doc  json.RawMessage // canonical encoding
}

// HTML wraps an HTML string.
func HTML(s string) Content {
	return Content{kind: KindHTML, html: s}
}

// Empty returns empty HTML content.
func Empty() Content { return Content{} }

// Document wraps a structured value. The JSON is canonicalized so that two
// documents with the same structure compare equal regardless of key order or
// whitespace.
func Document(raw []byte) (Content, error) {
	canon, err := canonical(raw)
	if err != nil {
		return Content{}, &apperr.ParseError{What: "document", Err: err}
	}
	return Content{kind: KindDocument, doc: canon}, nil
}

func canonical(raw []byte) (json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after document")
	}
	return json.Marshal(v)
}

// Kind returns the variant.
func (c Content) Kind() Kind { return c.kind }

// Text returns the HTML string, or the canonical JSON for documents.
func (c Content) Text() string {
	if c.kind == KindDocument {
		return string(c.doc)
	}
	return c.html
}

// Raw returns the canonical JSON of a document, nil for HTML.
func (c Content) Raw() json.RawMessage {
	if c.kind != KindDocument {
		return nil
	}
	return c.doc
}

// IsEmpty reports whether there is nothing to persist.
func (c Content) IsEmpty() bool {
	return c.kind == KindHTML && strings.TrimSpace(c.html) == ""
}

// Equal reports byte equality for HTML and structural equality for documents.
func (c Content) Equal(o Content) bool {
	if c.kind != o.kind {
		return false
	}
	if c.kind == KindDocument {
		return bytes.Equal(c.doc, o.doc)
	}
	return c.html == o.html
}

// Fingerprint is a short hash for logs and change summaries.
func (c Content) Fingerprint() string {
	d := xxhash.New()
	_, _ = d.WriteString(c.kind.String())
	_, _ = d.WriteString(c.Text())
	return strconv.FormatUint(d.Sum64(), 16)
}

// Wire returns the bytes to upload and their media type.
func (c Content) Wire() ([]byte, string) {
	if c.kind == KindDocument {
		return c.doc, MediaDocument
	}
	return []byte(c.html), MediaHTML + "; charset=utf-8"
}

// Ext is the file extension used for multipart uploads.
func (c Content) Ext() string {
	if c.kind == KindDocument {
		return ".json"
	}
	return ".html"
}

// FromWire decodes a response body. JSON media types become documents;
// untyped bodies that parse as a JSON object are treated as documents too.
// Everything else is HTML.
func FromWire(data []byte, contentType string) (Content, error) {
	media, _, _ := mime.ParseMediaType(contentType)
	switch {
	case media == MediaDocument || strings.HasSuffix(media, "+json"):
		return Document(data)
	case media == "" || media == "text/plain" || media == "application/octet-stream":
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed) {
			return Document(trimmed)
		}
	}
	return HTML(string(data)), nil
}
