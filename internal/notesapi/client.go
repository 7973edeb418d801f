// Package notesapi is the HTTP client for the remote notes API.
//
// Every call takes the bearer token explicitly. Callers that have no token
// are expected not to call at all; the client rejects an empty token with an
// AuthError instead of sending an anonymous request.
package notesapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/content"
	"github.com/starford/quire/internal/tree"
)

const maxErrorBody = 512

// Client talks to the notes API rooted at baseURL (for example
// "http://localhost:8080/api").
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit caps outgoing requests. rps <= 0 disables the limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Inf, 0),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL }

// Structure is the decoded GET /notes/structure response.
type Structure struct {
	Tree      *tree.Node `json:"fileStructure"`
	NoteCount int        `json:"noteCount"`
	UserID    ID         `json:"userId"`
}

// Paths returns every note path in the listing.
func (s *Structure) Paths() []string {
	return tree.Flatten(s.Tree)
}

// Structure fetches the folder listing.
func (c *Client) Structure(ctx context.Context, token string) (*Structure, error) {
	const op = "structure"
	resp, err := c.do(ctx, op, token, http.MethodGet, "/notes/structure", nil, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out Structure
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &apperr.ParseError{What: op, Err: err}
	}
	if out.Tree == nil {
		out.Tree = tree.New()
	}
	return &out, nil
}

// Content fetches one note body.
func (c *Client) Content(ctx context.Context, path, token string) (content.Content, error) {
	const op = "content"
	q := url.Values{"filename": {path}}
	resp, err := c.do(ctx, op, token, http.MethodGet, "/notes/content", q, nil, "")
	if err != nil {
		return content.Content{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return content.Content{}, &apperr.NetworkError{Op: op, Err: err}
	}
	return content.FromWire(data, resp.Header.Get("Content-Type"))
}

// Save upserts a note body (PUT /notes).
func (c *Client) Save(ctx context.Context, path string, body content.Content, token string) error {
	return c.upload(ctx, "save", http.MethodPut, path, body, token)
}

// Create adds a new note (POST /notes). The server rejects existing paths.
func (c *Client) Create(ctx context.Context, path string, body content.Content, token string) error {
	return c.upload(ctx, "create", http.MethodPost, path, body, token)
}

// Delete removes a note.
func (c *Client) Delete(ctx context.Context, path, token string) error {
	q := url.Values{"filename": {path}}
	resp, err := c.do(ctx, "delete", token, http.MethodDelete, "/notes", q, nil, "")
	if err != nil {
		return err
	}
	return drain(resp)
}

// Rename moves a note to a new path; folders are implied by the path.
func (c *Client) Rename(ctx context.Context, oldPath, newPath, token string) error {
	q := url.Values{"oldFilename": {oldPath}, "newFilename": {newPath}}
	resp, err := c.do(ctx, "rename", token, http.MethodPost, "/notes/rename", q, nil, "")
	if err != nil {
		return err
	}
	return drain(resp)
}

// StorageSize returns the total bytes used by the caller's notes.
func (c *Client) StorageSize(ctx context.Context, token string) (int64, error) {
	const op = "storage size"
	resp, err := c.do(ctx, op, token, http.MethodGet, "/notes/storage/size", nil, nil, "")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, &apperr.NetworkError{Op: op, Err: err}
	}
	return ParseStorageSize(data)
}

func (c *Client) upload(ctx context.Context, op, method, path string, body content.Content, token string) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	data, media := body.Wire()
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, path+body.Ext()))
	h.Set("Content-Type", media)
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("notesapi: %s: %w", op, err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("notesapi: %s: %w", op, err)
	}
	if err := mw.WriteField("filename", path); err != nil {
		return fmt.Errorf("notesapi: %s: %w", op, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("notesapi: %s: %w", op, err)
	}

	resp, err := c.do(ctx, op, token, method, "/notes", nil, &buf, mw.FormDataContentType())
	if err != nil {
		return err
	}
	return drain(resp)
}

// do sends one request and maps failures to apperr kinds. On success the
// caller owns resp.Body.
func (c *Client) do(ctx context.Context, op, token, method, path string, q url.Values, body io.Reader, contentType string) (*http.Response, error) {
	if token == "" {
		return nil, &apperr.AuthError{Op: op, Err: fmt.Errorf("no access token")}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &apperr.NetworkError{Op: op, Err: err}
	}

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("notesapi: %s: %w", op, err)
	}
	(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	reqID := uuid.NewString()
	req.Header.Set("X-Request-Id", reqID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &apperr.NetworkError{Op: op, Err: err}
	}
	c.logger.Debug("notesapi request",
		slog.String("op", op),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.String("request_id", reqID),
		slog.Duration("elapsed", time.Since(start)))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &apperr.AuthError{Op: op, Status: resp.StatusCode}
	}
	return nil, &apperr.NetworkError{Op: op, Status: resp.StatusCode, Body: errorText(resp.Body)}
}

func drain(resp *http.Response) error {
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// errorText extracts a short message from an error body. JSON bodies of the
// form {"error": "..."} yield just the message.
func errorText(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var eb struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &eb) == nil && eb.Error != "" {
		return eb.Error
	}
	return strings.TrimSpace(string(data))
}
