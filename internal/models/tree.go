package models

import (
	"sort"
	"strings"
)

// RemoteNode is a folder or file found by walking remote storage.
type RemoteNode struct {
	ID       string
	Name     string
	IsDir    bool
	Children []*RemoteNode
}

// Find returns the direct child with the given name, or nil.
func (n *RemoteNode) Find(name string) *RemoteNode {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Files counts the file nodes under n, n included.
func (n *RemoteNode) Files() int {
	if !n.IsDir {
		return 1
	}
	total := 0
	for _, c := range n.Children {
		total += c.Files()
	}
	return total
}

// Render draws the tree with box characters, folders first and each group
// sorted by name:
//
//	Crypt/
//	├── photos/
//	│   └── cat.crypt
//	└── notes.crypt
func (n *RemoteNode) Render() string {
	var b strings.Builder
	b.WriteString(n.label())
	b.WriteByte('\n')
	n.render(&b, "")
	return b.String()
}

func (n *RemoteNode) render(b *strings.Builder, prefix string) {
	children := sortedChildren(n.Children)
	for i, c := range children {
		last := i == len(children)-1

		connector, indent := "├── ", "│   "
		if last {
			connector, indent = "└── ", "    "
		}

		b.WriteString(prefix)
		b.WriteString(connector)
		b.WriteString(c.label())
		b.WriteByte('\n')

		if c.IsDir {
			c.render(b, prefix+indent)
		}
	}
}

func (n *RemoteNode) label() string {
	if n.IsDir {
		return n.Name + "/"
	}
	return n.Name
}

func sortedChildren(in []*RemoteNode) []*RemoteNode {
	out := make([]*RemoteNode, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsDir != out[j].IsDir {
			return out[i].IsDir
		}
		return out[i].Name < out[j].Name
	})
	return out
}
