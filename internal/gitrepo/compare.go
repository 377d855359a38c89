package gitrepo

import (
	"bytes"
	"encoding/json"
	"reflect"

	"knowledgebase/internal/blocks"
)

// Changes summarises the block-level difference between two versions.
type Changes struct {
	TitleChanged bool     `json:"titleChanged"`
	Added        []string `json:"added"`
	Removed      []string `json:"removed"`
	Changed      []string `json:"changed"`
	Moved        []string `json:"moved"`
}

// Empty reports whether no block or title changed.
func (c Changes) Empty() bool {
	return !c.TitleChanged && len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Changed) == 0 && len(c.Moved) == 0
}

type placedBlock struct {
	block  blocks.Block
	parent string
}

// Compare matches blocks by id. A block is changed when its own payload or
// properties differ (child lists are compared through their own blocks) and
// moved when the list holding it differs. Ids are reported in document order.
func Compare(from, to []blocks.Block) Changes {
	before, beforeOrder := index(from)
	after, afterOrder := index(to)

	changes := Changes{
		Added:   []string{},
		Removed: []string{},
		Changed: []string{},
		Moved:   []string{},
	}
	for _, id := range beforeOrder {
		if _, ok := after[id]; !ok {
			changes.Removed = append(changes.Removed, id)
		}
	}
	for _, id := range afterOrder {
		prev, ok := before[id]
		if !ok {
			changes.Added = append(changes.Added, id)
			continue
		}
		next := after[id]
		if prev.parent != next.parent {
			changes.Moved = append(changes.Moved, id)
		}
		if !sameShallow(prev.block, next.block) {
			changes.Changed = append(changes.Changed, id)
		}
	}
	return changes
}

// CompareContent decodes two snapshots and compares them.
func CompareContent(from, to Content) (Changes, error) {
	fromTree, err := blocks.Decode(from.Blocks)
	if err != nil {
		return Changes{}, err
	}
	toTree, err := blocks.Decode(to.Blocks)
	if err != nil {
		return Changes{}, err
	}
	changes := Compare(fromTree, toTree)
	changes.TitleChanged = from.Title != to.Title
	return changes, nil
}

// HasChanges reports whether two snapshots differ in title or blocks.
func HasChanges(a, b Content) bool {
	if a.Title != b.Title {
		return true
	}
	return !bytes.Equal(compactJSON(a.Blocks), compactJSON(b.Blocks))
}

func compactJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("[]")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}

func index(tree []blocks.Block) (map[string]placedBlock, []string) {
	out := make(map[string]placedBlock)
	order := make([]string, 0)
	var visit func(list []blocks.Block, parent string)
	visit = func(list []blocks.Block, parent string) {
		for _, b := range list {
			out[b.ID] = placedBlock{block: b, parent: parent}
			order = append(order, b.ID)
			switch c := b.Content.(type) {
			case blocks.ColumnsContent:
				for _, col := range c.Columns {
					visit(col.Blocks, b.ID+"/"+col.ID)
				}
			case blocks.SectionContent:
				visit(c.Blocks, b.ID)
			case blocks.EntryListContent:
				for _, e := range c.Entries {
					visit(e.Blocks, b.ID+"/"+e.ID)
				}
			}
		}
	}
	visit(tree, "")
	return out, order
}

func sameShallow(a, b blocks.Block) bool {
	if a.Type != b.Type || !reflect.DeepEqual(a.Properties, b.Properties) {
		return false
	}
	return reflect.DeepEqual(shallow(a.Content), shallow(b.Content))
}

// shallow strips nested block lists so that a container only differs when its
// own layout, title or entries change.
func shallow(c blocks.Content) any {
	switch v := c.(type) {
	case blocks.LeafContent:
		return string(compactJSON(v.Raw))
	case blocks.ColumnsContent:
		out := make([][2]any, len(v.Columns))
		for i, col := range v.Columns {
			out[i] = [2]any{col.ID, col.Width}
		}
		return out
	case blocks.SectionContent:
		return v.Title
	case blocks.EntryListContent:
		out := make([][2]string, len(v.Entries))
		for i, e := range v.Entries {
			out[i] = [2]string{e.ID, e.Title}
		}
		return struct {
			Mode    blocks.SortMode
			Entries [][2]string
		}{v.SortMode, out}
	}
	return nil
}
