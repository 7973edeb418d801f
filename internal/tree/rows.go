package tree

import "github.com/starford/quire/internal/notepath"

// Row is one visible line of a rendered tree.
type Row struct {
	Path     string
	Name     string
	Depth    int
	Folder   bool
	Expanded bool
}

// Rows flattens the visible part of n. Children of a folder are included only
// when expanded reports true for that folder's path.
func Rows(n *Node, expanded func(path string) bool) []Row {
	var out []Row
	var visit func(n *Node, prefix string, depth int)
	visit = func(n *Node, prefix string, depth int) {
		n.Each(func(name string, child *Node) {
			full := notepath.Join(prefix, name)
			row := Row{Path: full, Name: name, Depth: depth, Folder: child != nil}
			if row.Folder {
				row.Expanded = expanded(full)
			}
			out = append(out, row)
			if row.Expanded {
				visit(child, full, depth+1)
			}
		})
	}
	visit(n, "", 0)
	return out
}
