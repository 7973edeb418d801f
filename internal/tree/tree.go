// Package tree derives the nested folder tree from a flat list of note paths.
//
// A Node maps child names to either nil (a file) or another *Node (a folder).
// Trees are rebuilt wholesale from the path list on every structure refresh;
// nothing here patches an existing tree in place.
package tree

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/buger/jsonparser"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/starford/quire/internal/notepath"
)

// Node is a folder. A nil child value marks a file.
type Node struct {
	children *orderedmap.OrderedMap[string, *Node]
}

// New returns an empty folder.
func New() *Node {
	return &Node{children: orderedmap.New[string, *Node]()}
}

// Build constructs a tree from full note paths.
//
// Duplicate paths are no-ops. When a segment is used both as a file and as a
// folder prefix, the later path overwrites the earlier one at that segment.
func Build(paths []string) *Node {
	root := New()
	for _, p := range paths {
		root.insert(p)
	}
	return root
}

func (n *Node) insert(p string) {
	segs := notepath.Split(p)
	if len(segs) == 0 {
		return
	}
	cur := n
	for _, s := range segs[:len(segs)-1] {
		child, ok := cur.children.Get(s)
		if !ok || child == nil {
			child = New()
			cur.children.Set(s, child)
		}
		cur = child
	}
	cur.children.Set(segs[len(segs)-1], nil)
}

// Len returns the number of direct children.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	return n.children.Len()
}

// Each calls fn for every direct child in insertion order. child is nil for files.
func (n *Node) Each(fn func(name string, child *Node)) {
	if n == nil {
		return
	}
	for pair := n.children.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// Lookup resolves a full path. found is false when no entry exists.
func (n *Node) Lookup(p string) (folder, found bool) {
	segs := notepath.Split(p)
	if len(segs) == 0 || n == nil {
		return false, false
	}
	cur := n
	for i, s := range segs {
		child, ok := cur.children.Get(s)
		if !ok {
			return false, false
		}
		if i == len(segs)-1 {
			return child != nil, true
		}
		if child == nil {
			return false, false
		}
		cur = child
	}
	return false, false
}

// CollectFolders lists every folder's full path, parents before children.
func CollectFolders(n *Node) []string {
	var out []string
	walk(n, "", func(full string, folder bool) {
		if folder {
			out = append(out, full)
		}
	})
	return out
}

// Flatten lists every file's full path in tree order.
func Flatten(n *Node) []string {
	var out []string
	walk(n, "", func(full string, folder bool) {
		if !folder {
			out = append(out, full)
		}
	})
	return out
}

func walk(n *Node, prefix string, visit func(full string, folder bool)) {
	n.Each(func(name string, child *Node) {
		full := notepath.Join(prefix, name)
		visit(full, child != nil)
		if child != nil {
			walk(child, full, visit)
		}
	})
}

// Equal compares two trees by content, ignoring sibling order.
func Equal(a, b *Node) bool {
	if a.Len() != b.Len() {
		return false
	}
	eq := true
	a.Each(func(name string, ca *Node) {
		if !eq {
			return
		}
		cb, ok := b.children.Get(name)
		switch {
		case !ok:
			eq = false
		case (ca == nil) != (cb == nil):
			eq = false
		case ca != nil:
			eq = Equal(ca, cb)
		}
	})
	return eq
}

// MarshalJSON encodes folders as objects and files as null, keeping order.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	var err error
	n.Each(func(name string, child *Node) {
		if err != nil {
			return
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, _ := json.Marshal(name)
		buf.Write(key)
		buf.WriteByte(':')
		if child == nil {
			buf.WriteString("null")
			return
		}
		var sub []byte
		sub, err = child.MarshalJSON()
		buf.Write(sub)
	})
	if err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the nested wire form. Object values are folders;
// anything else (null, strings) is a file. A top-level null is an empty tree.
func (n *Node) UnmarshalJSON(data []byte) error {
	n.children = orderedmap.New[string, *Node]()
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] != '{' {
		return fmt.Errorf("tree: expected object, got %.20q", trimmed)
	}
	return jsonparser.ObjectEach(trimmed, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
		name, err := jsonparser.ParseString(key)
		if err != nil {
			return fmt.Errorf("tree: key: %w", err)
		}
		if dataType != jsonparser.Object {
			n.children.Set(name, nil)
			return nil
		}
		child := New()
		if err := child.UnmarshalJSON(value); err != nil {
			return err
		}
		n.children.Set(name, child)
		return nil
	})
}
