package blocks

import (
	"encoding/json"
	"fmt"
)

func para(id string) Block {
	return Block{
		ID:      id,
		Type:    TypeParagraph,
		Content: LeafContent{Raw: json.RawMessage(fmt.Sprintf(`{"text":%q}`, "text "+id))},
	}
}

func paras(ids ...string) []Block {
	out := make([]Block, len(ids))
	for i, id := range ids {
		out[i] = para(id)
	}
	return out
}

// columnsBlock builds a columns block whose column ids are "<id>-c0", "<id>-c1", ...
func columnsBlock(id string, widths []int, lists ...[]Block) Block {
	cols := make([]Column, len(widths))
	for i, w := range widths {
		var list []Block
		if i < len(lists) {
			list = lists[i]
		}
		if list == nil {
			list = []Block{}
		}
		cols[i] = Column{ID: fmt.Sprintf("%s-c%d", id, i), Width: w, Blocks: list}
	}
	return Block{ID: id, Type: TypeColumns, Content: ColumnsContent{Columns: cols}}
}

func sectionBlock(id, title string, children ...Block) Block {
	if children == nil {
		children = []Block{}
	}
	return Block{ID: id, Type: TypeCollapsibleHeading, Content: SectionContent{Title: title, Blocks: children}}
}

func entryListBlock(id string, mode SortMode, entries ...Entry) Block {
	return Block{ID: id, Type: TypeExpandableList, Content: EntryListContent{Entries: entries, SortMode: mode}}
}

func ids(list []Block) []string {
	out := make([]string, len(list))
	for i, b := range list {
		out[i] = b.ID
	}
	return out
}

func widths(c ColumnsContent) []int {
	out := make([]int, len(c.Columns))
	for i, col := range c.Columns {
		out[i] = col.Width
	}
	return out
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}

func entryTitles(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Title
	}
	return out
}

func intPtr(v int) *int {
	return &v
}
