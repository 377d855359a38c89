package blocks

import (
	"encoding/json"
	"sort"
	"strings"
)

// Walk visits every block depth-first in document order. Returning false
// from fn skips the block's descendants.
func Walk(tree []Block, fn func(b Block, path Path) bool) {
	walk(tree, nil, fn)
}

func walk(list []Block, path Path, fn func(Block, Path) bool) {
	for _, b := range list {
		if !fn(b, path) {
			continue
		}
		switch c := b.Content.(type) {
		case ColumnsContent:
			for i, col := range c.Columns {
				walk(col.Blocks, path.Child(Step{Block: b.ID, Column: i}), fn)
			}
		case SectionContent:
			walk(c.Blocks, path.Child(Step{Block: b.ID}), fn)
		case EntryListContent:
			for _, e := range c.Entries {
				walk(e.Blocks, path.Child(Step{Block: b.ID, Entry: e.ID}), fn)
			}
		}
	}
}

// Find locates a block anywhere in tree and returns the path of the list
// that holds it.
func Find(tree []Block, id string) (Block, Path, bool) {
	var (
		found Block
		at    Path
		ok    bool
	)
	Walk(tree, func(b Block, path Path) bool {
		if ok {
			return false
		}
		if b.ID == id {
			found, at, ok = b, path, true
			return false
		}
		return true
	})
	return found, at, ok
}

// CollectIDs returns every block, column and entry id in tree.
func CollectIDs(tree []Block) []string {
	var ids []string
	Walk(tree, func(b Block, _ Path) bool {
		ids = append(ids, b.ID)
		switch c := b.Content.(type) {
		case ColumnsContent:
			for _, col := range c.Columns {
				ids = append(ids, col.ID)
			}
		case EntryListContent:
			for _, e := range c.Entries {
				ids = append(ids, e.ID)
			}
		}
		return true
	})
	return ids
}

// Count returns the number of blocks in tree, descendants included.
func Count(tree []Block) int {
	n := 0
	Walk(tree, func(Block, Path) bool {
		n++
		return true
	})
	return n
}

// Restamp gives b and all of its descendants, columns and entries fresh ids.
func Restamp(b Block, ids IDGenerator) Block {
	b.ID = ids.NewID(kindBlock)
	switch c := b.Content.(type) {
	case ColumnsContent:
		out := c.clone()
		for i := range out.Columns {
			out.Columns[i].ID = ids.NewID(kindColumn)
			out.Columns[i].Blocks = restampList(out.Columns[i].Blocks, ids)
		}
		b.Content = out
	case SectionContent:
		b.Content = SectionContent{Title: c.Title, Blocks: restampList(c.Blocks, ids)}
	case EntryListContent:
		out := c.clone()
		for i := range out.Entries {
			out.Entries[i].ID = ids.NewID(kindEntry)
			out.Entries[i].Blocks = restampList(out.Entries[i].Blocks, ids)
		}
		b.Content = out
	}
	return b
}

func restampList(list []Block, ids IDGenerator) []Block {
	out := make([]Block, len(list))
	for i, b := range list {
		out[i] = Restamp(b, ids)
	}
	return out
}

var skippedTextKeys = map[string]struct{}{
	"id": {}, "url": {}, "src": {}, "href": {}, "key": {}, "assetKey": {},
	"variant": {}, "language": {}, "level": {}, "style": {}, "color": {},
}

// PlainText flattens the readable text of a tree, one line per block, for
// indexing. Leaf payloads are scanned for string values; URLs and styling
// keys are skipped.
func PlainText(tree []Block) string {
	var lines []string
	Walk(tree, func(b Block, _ Path) bool {
		var text []string
		switch c := b.Content.(type) {
		case LeafContent:
			if len(c.Raw) > 0 {
				var v any
				if err := json.Unmarshal(c.Raw, &v); err == nil {
					text = collectStrings(v, "", text)
				}
			}
		case SectionContent:
			text = append(text, c.Title)
		case EntryListContent:
			for _, e := range c.Entries {
				text = append(text, e.Title)
			}
		}
		if line := strings.TrimSpace(strings.Join(text, " ")); line != "" {
			lines = append(lines, line)
		}
		return true
	})
	return strings.Join(lines, "\n")
}

func collectStrings(v any, key string, out []string) []string {
	if _, skip := skippedTextKeys[key]; skip {
		return out
	}
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	case []any:
		for _, item := range t {
			out = collectStrings(item, key, out)
		}
	case map[string]any:
		for _, k := range sortedKeys(t) {
			out = collectStrings(t[k], k, out)
		}
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
