package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, FormatJSON, slog.LevelInfo).Info("hello", slog.String("path", "a/b"))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v: %s", err, buf.String())
	}
	if rec["msg"] != "hello" || rec["path"] != "a/b" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestNew_TextHasNoColorOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, FormatText, slog.LevelDebug)
	l.Debug("tick", slog.String("empty", ""), slog.Int("n", 3))

	out := buf.String()
	if strings.Contains(out, "\x1b[") {
		t.Errorf("unexpected ANSI escapes: %q", out)
	}
	if !strings.Contains(out, "tick") || !strings.Contains(out, "n=3") {
		t.Errorf("got = %q", out)
	}
	if strings.Contains(out, "empty=") {
		t.Errorf("empty attr not dropped: %q", out)
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, FormatText, slog.LevelWarn).Info("quiet")
	if buf.Len() != 0 {
		t.Errorf("got = %q, want nothing", buf.String())
	}
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quire.log")
	l, c, err := File(path, slog.LevelInfo)
	if err != nil {
		t.Fatal(err)
	}
	l.Info("written")
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
}
