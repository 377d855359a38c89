// Package blocks implements the knowledge-base document model: a tree of
// typed blocks where container blocks (columns, collapsible sections and
// expandable entry lists) own ordered child lists.
//
// Every operation in this package is a pure transform. Inputs are never
// mutated; callers store the returned tree as the new document snapshot.
package blocks

import "encoding/json"

// Type tags a block with its kind.
type Type string

const (
	TypeParagraph Type = "paragraph"
	TypeHeading   Type = "heading"
	TypeQuote     Type = "quote"
	TypeCode      Type = "code"
	TypeList      Type = "list"
	TypeCallout   Type = "callout"
	TypeImage     Type = "image"
	TypeTable     Type = "table"
	TypeButton    Type = "button"
	TypeDivider   Type = "divider"
	TypeEmbed     Type = "embed"

	TypeColumns            Type = "columns"
	TypeCollapsibleHeading Type = "collapsible_heading"
	TypeExpandableList     Type = "expandable_content_list"
)

var leafTypes = map[Type]struct{}{
	TypeParagraph: {},
	TypeHeading:   {},
	TypeQuote:     {},
	TypeCode:      {},
	TypeList:      {},
	TypeCallout:   {},
	TypeImage:     {},
	TypeTable:     {},
	TypeButton:    {},
	TypeDivider:   {},
	TypeEmbed:     {},
}

// Valid reports whether t belongs to the closed set of block kinds.
func (t Type) Valid() bool {
	if _, ok := leafTypes[t]; ok {
		return true
	}
	return t.IsContainer()
}

// IsContainer reports whether blocks of this kind own child lists.
func (t Type) IsContainer() bool {
	switch t {
	case TypeColumns, TypeCollapsibleHeading, TypeExpandableList:
		return true
	default:
		return false
	}
}

// Block is the atomic document unit.
type Block struct {
	ID         string
	Type       Type
	Content    Content
	Properties map[string]any
}

// Content is the type-dependent payload of a block. The set of
// implementations is closed: LeafContent, ColumnsContent, SectionContent
// and EntryListContent.
type Content interface {
	isContent()
}

// LeafContent is the opaque payload of a non-container block.
type LeafContent struct {
	Raw json.RawMessage
}

// ColumnsContent lays child lists out side by side. Column widths always
// sum to 100 and there are between MinColumns and MaxColumns columns.
type ColumnsContent struct {
	Columns []Column
}

// Column is one slot of a ColumnsContent.
type Column struct {
	ID     string
	Width  int
	Blocks []Block
}

// SectionContent is the payload of a collapsible heading.
type SectionContent struct {
	Title  string
	Blocks []Block
}

// SortMode controls how expandable entries are presented.
type SortMode string

const (
	SortManual       SortMode = "manual"
	SortAlphabetical SortMode = "alphabetical"
)

// Valid reports whether m is a known sort mode.
func (m SortMode) Valid() bool {
	return m == SortManual || m == SortAlphabetical
}

// EntryListContent is the payload of an expandable content list.
type EntryListContent struct {
	Entries  []Entry
	SortMode SortMode
}

// Entry is one named, expandable item of an EntryListContent.
type Entry struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Blocks []Block `json:"blocks"`
}

func (LeafContent) isContent()      {}
func (ColumnsContent) isContent()   {}
func (SectionContent) isContent()   {}
func (EntryListContent) isContent() {}

// IsContainer reports whether the block currently holds container content.
func (b Block) IsContainer() bool {
	switch b.Content.(type) {
	case ColumnsContent, SectionContent, EntryListContent:
		return true
	default:
		return false
	}
}

// ChildLists returns every child list owned by b, in document order.
func (b Block) ChildLists() [][]Block {
	switch c := b.Content.(type) {
	case ColumnsContent:
		out := make([][]Block, 0, len(c.Columns))
		for _, col := range c.Columns {
			out = append(out, col.Blocks)
		}
		return out
	case SectionContent:
		return [][]Block{c.Blocks}
	case EntryListContent:
		out := make([][]Block, 0, len(c.Entries))
		for _, entry := range c.Entries {
			out = append(out, entry.Blocks)
		}
		return out
	default:
		return nil
	}
}

func (c ColumnsContent) clone() ColumnsContent {
	cols := make([]Column, len(c.Columns))
	copy(cols, c.Columns)
	return ColumnsContent{Columns: cols}
}

func (c EntryListContent) clone() EntryListContent {
	entries := make([]Entry, len(c.Entries))
	copy(entries, c.Entries)
	return EntryListContent{Entries: entries, SortMode: c.SortMode}
}
