package notesapi

import (
	"bufio"
	"context"
	"net/http"
	"strings"

	"github.com/buger/jsonparser"
)

// Event is one server-sent notification.
type Event struct {
	Type string // note.created, note.updated, note.deleted, structure.updated
	Path string // empty for structure.updated
}

// Subscribe opens the /events stream. The returned channel is closed when
// ctx is cancelled or the server ends the stream.
func (c *Client) Subscribe(ctx context.Context, token string) (<-chan Event, error) {
	// Streams outlive the per-request timeout.
	streaming := *c
	streaming.http = &http.Client{Transport: c.http.Transport, CheckRedirect: c.http.CheckRedirect, Jar: c.http.Jar}
	resp, err := streaming.do(ctx, "events", token, http.MethodGet, "/events", nil, nil, "")
	if err != nil {
		return nil, err
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		readEvents(ctx, bufio.NewScanner(resp.Body), out)
	}()
	return out, nil
}

func readEvents(ctx context.Context, sc *bufio.Scanner, out chan<- Event) {
	var typ, data string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if typ != "" {
				ev := Event{Type: typ}
				if p, err := jsonparser.GetString([]byte(data), "path"); err == nil {
					ev.Path = p
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
			typ, data = "", ""
		case strings.HasPrefix(line, "event:"):
			typ = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data += strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
}
