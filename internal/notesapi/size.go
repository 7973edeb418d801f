package notesapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"

	"github.com/starford/quire/internal/apperr"
)

// sizeKeys are tried in order after totalSizeBytes and sizeInfo.bytes.
var sizeKeys = []string{"size", "bytes", "bytesUsed", "storageBytes"}

var errNoSize = errors.New("no recognized size field")

// ParseStorageSize extracts a byte count from a storage-size response.
// Accepted shapes, first match wins:
//
//	{"totalSizeBytes": N}
//	{"sizeInfo": {"bytes": N}}
//	{"size"|"bytes"|"bytesUsed"|"storageBytes": N or "N"}
//	N (plain text)
func ParseStorageSize(body []byte) (int64, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if n, ok := sizeAt(trimmed, "totalSizeBytes"); ok {
			return n, nil
		}
		if n, ok := sizeAt(trimmed, "sizeInfo", "bytes"); ok {
			return n, nil
		}
		for _, k := range sizeKeys {
			if n, ok := sizeAt(trimmed, k); ok {
				return n, nil
			}
		}
		return 0, &apperr.ParseError{What: "storage size", Err: errNoSize}
	}

	n, err := parseNumber(string(trimmed))
	if err != nil {
		return 0, &apperr.ParseError{What: "storage size", Err: fmt.Errorf("unrecognized response %q", truncate(string(trimmed), 64))}
	}
	return n, nil
}

func sizeAt(data []byte, keys ...string) (int64, bool) {
	v, typ, _, err := jsonparser.Get(data, keys...)
	if err != nil {
		return 0, false
	}
	switch typ {
	case jsonparser.Number:
		n, err := parseNumber(string(v))
		return n, err == nil
	case jsonparser.String:
		s, err := jsonparser.ParseString(v)
		if err != nil {
			return 0, false
		}
		n, err := parseNumber(strings.TrimSpace(s))
		return n, err == nil
	}
	return 0, false
}

// parseNumber accepts integers and finite floats; fractions are truncated.
func parseNumber(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := json.Number(s).Float64()
	if err != nil {
		return 0, err
	}
	if f < 0 || f > 1<<62 || f != f {
		return 0, fmt.Errorf("size out of range: %s", s)
	}
	return int64(f), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
