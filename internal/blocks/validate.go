package blocks

import (
	"fmt"
	"strings"
)

// ValidationError lists every structural problem found in a tree.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid block tree: " + strings.Join(e.Problems, "; ")
}

// Validate checks the structural invariants of a tree loaded from outside
// the engine: known kinds, content matching kind, unique non-empty ids, and
// well-formed columns. It returns nil or a *ValidationError.
func Validate(tree []Block) error {
	v := validator{seen: make(map[string]struct{})}
	v.list(tree, nil)
	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: v.problems}
}

type validator struct {
	seen     map[string]struct{}
	problems []string
}

func (v *validator) addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) id(id, what string, path Path) {
	if id == "" {
		v.addf("%s at %s has an empty id", what, path)
		return
	}
	if _, dup := v.seen[id]; dup {
		v.addf("duplicate id %q at %s", id, path)
		return
	}
	v.seen[id] = struct{}{}
}

func (v *validator) list(list []Block, path Path) {
	for _, b := range list {
		v.id(b.ID, "block", path)
		if !b.Type.Valid() {
			v.addf("block %q has unknown type %q", b.ID, b.Type)
			continue
		}
		switch c := b.Content.(type) {
		case ColumnsContent:
			if b.Type != TypeColumns {
				v.addf("block %q of type %q holds columns content", b.ID, b.Type)
			}
			v.columns(b.ID, c, path)
		case SectionContent:
			if b.Type != TypeCollapsibleHeading {
				v.addf("block %q of type %q holds section content", b.ID, b.Type)
			}
			v.list(c.Blocks, path.Child(Step{Block: b.ID}))
		case EntryListContent:
			if b.Type != TypeExpandableList {
				v.addf("block %q of type %q holds entry list content", b.ID, b.Type)
			}
			if !c.SortMode.Valid() {
				v.addf("block %q has unknown sort mode %q", b.ID, c.SortMode)
			}
			for _, e := range c.Entries {
				v.id(e.ID, "entry", path)
				v.list(e.Blocks, path.Child(Step{Block: b.ID, Entry: e.ID}))
			}
		case LeafContent, nil:
			if b.Type.IsContainer() {
				v.addf("container block %q has no child lists", b.ID)
			}
		}
	}
}

func (v *validator) columns(blockID string, c ColumnsContent, path Path) {
	if n := len(c.Columns); n < MinColumns || n > MaxColumns {
		v.addf("columns block %q has %d columns, want %d..%d", blockID, n, MinColumns, MaxColumns)
	}
	sum := 0
	for i, col := range c.Columns {
		v.id(col.ID, "column", path)
		if col.Width < 0 || col.Width > totalWidth {
			v.addf("column %q width %d out of range", col.ID, col.Width)
		}
		sum += col.Width
		v.list(col.Blocks, path.Child(Step{Block: blockID, Column: i}))
	}
	if sum != totalWidth {
		v.addf("columns block %q widths sum to %d, want %d", blockID, sum, totalWidth)
	}
}
