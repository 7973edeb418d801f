// Package notepath handles slash-delimited note paths such as "work/project/todo".
//
// A valid path has no leading or trailing slash and no empty segments. The
// full path is the note's identity regardless of how deeply it is nested.
package notepath

import (
	"fmt"
	"strings"
)

// Sep separates path segments.
const Sep = "/"

// Validate reports whether p is a well-formed note path.
func Validate(p string) error {
	if p == "" {
		return fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(p, Sep) || strings.HasSuffix(p, Sep) {
		return fmt.Errorf("path %q must not start or end with %q", p, Sep)
	}
	for _, seg := range strings.Split(p, Sep) {
		switch seg {
		case "":
			return fmt.Errorf("path %q has an empty segment", p)
		case ".", "..":
			return fmt.Errorf("path %q has a relative segment", p)
		}
	}
	return nil
}

// Split returns the segments of p. The empty path has no segments.
func Split(p string) []string {
	if p == "" {
		return nil
	}
	return strings.Split(p, Sep)
}

// Base returns the last segment of p.
func Base(p string) string {
	if i := strings.LastIndex(p, Sep); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Parent returns everything before the last segment, or "" for a top-level path.
func Parent(p string) string {
	if i := strings.LastIndex(p, Sep); i >= 0 {
		return p[:i]
	}
	return ""
}

// Join joins non-empty parts with Sep.
func Join(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, Sep)
}

// Ancestors returns every folder prefix of p, shortest first.
// "a/b/c" yields ["a", "a/b"]; a top-level path yields nothing.
func Ancestors(p string) []string {
	segs := Split(p)
	if len(segs) <= 1 {
		return nil
	}
	out := make([]string, 0, len(segs)-1)
	prefix := ""
	for _, s := range segs[:len(segs)-1] {
		prefix = Join(prefix, s)
		out = append(out, prefix)
	}
	return out
}

// MoveTarget computes where p lands when moved into folder.
// An empty folder means the top level.
func MoveTarget(p, folder string) string {
	if folder == "" {
		return Base(p)
	}
	return folder + Sep + Base(p)
}
