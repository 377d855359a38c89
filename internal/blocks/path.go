package blocks

import (
	"fmt"
	"strings"
)

// Step selects one child list inside a container block. Column is used when
// the block holds columns, Entry when it holds an entry list; a collapsible
// section has a single list and ignores both.
type Step struct {
	Block  string `json:"block"`
	Column int    `json:"column,omitempty"`
	Entry  string `json:"entry,omitempty"`
}

// Path addresses a child list from the document root. The empty path is the
// top-level list.
type Path []Step

func (p Path) String() string {
	if len(p) == 0 {
		return "/"
	}
	var sb strings.Builder
	for _, s := range p {
		sb.WriteString("/")
		sb.WriteString(s.Block)
		switch {
		case s.Entry != "":
			sb.WriteString("#" + s.Entry)
		case s.Column != 0:
			fmt.Fprintf(&sb, "[%d]", s.Column)
		}
	}
	return sb.String()
}

// Child returns p extended by one step.
func (p Path) Child(s Step) Path {
	out := make(Path, 0, len(p)+1)
	out = append(out, p...)
	return append(out, s)
}

// ListAt resolves path against tree.
func ListAt(tree []Block, path Path) ([]Block, bool) {
	list := tree
	for _, step := range path {
		idx := IndexOf(list, step.Block)
		if idx < 0 {
			return nil, false
		}
		child, ok := childList(list[idx], step)
		if !ok {
			return nil, false
		}
		list = child
	}
	return list, true
}

// UpdateListAt rewrites the list addressed by path with fn, copying every
// container on the way down. An unresolvable path leaves tree unchanged.
func UpdateListAt(tree []Block, path Path, fn func([]Block) []Block) []Block {
	if len(path) == 0 {
		return fn(tree)
	}
	step := path[0]
	idx := IndexOf(tree, step.Block)
	if idx < 0 {
		return tree
	}
	child, ok := childList(tree[idx], step)
	if !ok {
		return tree
	}
	updated := UpdateListAt(child, path[1:], fn)
	if sameList(updated, child) {
		return tree
	}
	content, ok := withChildList(tree[idx], step, updated)
	if !ok {
		return tree
	}
	return UpdateContent(tree, step.Block, content)
}

func childList(b Block, step Step) ([]Block, bool) {
	switch c := b.Content.(type) {
	case ColumnsContent:
		if step.Column < 0 || step.Column >= len(c.Columns) {
			return nil, false
		}
		return c.Columns[step.Column].Blocks, true
	case SectionContent:
		return c.Blocks, true
	case EntryListContent:
		idx := entryIndex(c.Entries, step.Entry)
		if idx < 0 {
			return nil, false
		}
		return c.Entries[idx].Blocks, true
	default:
		return nil, false
	}
}

func withChildList(b Block, step Step, list []Block) (Content, bool) {
	switch c := b.Content.(type) {
	case ColumnsContent:
		return UpdateColumnBlocks(c, step.Column, list), true
	case SectionContent:
		return SectionContent{Title: c.Title, Blocks: list}, true
	case EntryListContent:
		return UpdateEntryBlocks(c, step.Entry, list), true
	default:
		return nil, false
	}
}

// sameList reports whether b is the very slice a, as returned by a no-op.
func sameList(a, b []Block) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || &a[0] == &b[0]
}

// ApplyInsert inserts block into the list at path after afterIndex.
func ApplyInsert(tree []Block, path Path, block Block, afterIndex int) []Block {
	return UpdateListAt(tree, path, func(list []Block) []Block {
		return Insert(list, block, afterIndex)
	})
}

// ApplyMove moves fromID before toID inside the list at path.
func ApplyMove(tree []Block, path Path, fromID, toID string) []Block {
	return UpdateListAt(tree, path, func(list []Block) []Block {
		return Move(list, fromID, toID)
	})
}

// ApplyDelete removes id from the list at path.
func ApplyDelete(tree []Block, path Path, id string) []Block {
	return UpdateListAt(tree, path, func(list []Block) []Block {
		return Delete(list, id)
	})
}

// ApplyUpdateContent replaces the content of id inside the list at path.
func ApplyUpdateContent(tree []Block, path Path, id string, content Content) []Block {
	return UpdateListAt(tree, path, func(list []Block) []Block {
		return UpdateContent(list, id, content)
	})
}
