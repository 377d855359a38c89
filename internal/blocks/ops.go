package blocks

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// OpKind names a structural operation.
type OpKind string

const (
	OpInsert             OpKind = "insert"
	OpMove               OpKind = "move"
	OpDelete             OpKind = "delete"
	OpUpdateContent      OpKind = "update_content"
	OpUpdateProperties   OpKind = "update_properties"
	OpAddColumn          OpKind = "add_column"
	OpRemoveColumn       OpKind = "remove_column"
	OpSetColumnWidth     OpKind = "set_column_width"
	OpApplyLayoutPreset  OpKind = "apply_layout_preset"
	OpExtractFromColumns OpKind = "extract_from_columns"
	OpDissolveColumns    OpKind = "dissolve_columns"
	OpSetSectionTitle    OpKind = "set_section_title"
	OpAddEntry           OpKind = "add_entry"
	OpRemoveEntry        OpKind = "remove_entry"
	OpRenameEntry        OpKind = "rename_entry"
	OpMoveEntry          OpKind = "move_entry"
	OpSetSortMode        OpKind = "set_sort_mode"
)

// Op is one user intent against a document. Path addresses the list that
// holds the target block (for insert, the list receiving the new block).
// Only the fields relevant to Kind are read.
type Op struct {
	Kind OpKind `json:"op"`
	Path Path   `json:"path,omitempty"`

	// Target is the block the op acts on: the block to delete or update,
	// or the container for column, section and entry operations.
	Target string `json:"target,omitempty"`

	// insert; a nil AfterIndex appends at the end of the list
	Type       Type   `json:"type,omitempty"`
	Block      *Block `json:"block,omitempty"`
	AfterIndex *int   `json:"afterIndex,omitempty"`

	// move
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`

	// update_content, update_properties
	Content    json.RawMessage `json:"content,omitempty"`
	Properties map[string]any  `json:"properties,omitempty"`

	// columns
	Column int    `json:"column,omitempty"`
	Width  int    `json:"width,omitempty"`
	Widths []int  `json:"widths,omitempty"`
	Preset string `json:"preset,omitempty"`
	Child  string `json:"child,omitempty"`

	// sections and entries
	Entry     string   `json:"entry,omitempty"`
	Title     string   `json:"title,omitempty"`
	Direction int      `json:"direction,omitempty"`
	SortMode  SortMode `json:"sortMode,omitempty"`
}

// Result is the outcome of Apply.
type Result struct {
	Tree    []Block
	Changed bool
	// Created is the id minted by insert, add_column or add_entry.
	Created string
}

// ErrMoveDisabled is returned for move_entry while the list is shown in
// alphabetical order, where the stored order is not what the author sees.
var ErrMoveDisabled = errors.New("entry reordering is disabled in alphabetical mode")

var errInsertNeedsBlock = errors.New("insert needs a block or a type")

// Apply runs op against tree and returns the new tree. Operations that
// address missing blocks, columns or entries leave the tree unchanged and
// report Changed=false; errors are reserved for malformed operations.
func Apply(tree []Block, op Op, ids IDGenerator) (Result, error) {
	var (
		out     []Block
		created string
		err     error
	)
	switch op.Kind {
	case OpInsert:
		out, created, err = applyInsertOp(tree, op, ids)
	case OpMove:
		out = ApplyMove(tree, op.Path, op.From, op.To)
	case OpDelete:
		out = ApplyDelete(tree, op.Path, op.Target)
	case OpUpdateContent:
		out, err = applyUpdateContentOp(tree, op)
	case OpUpdateProperties:
		out = UpdateListAt(tree, op.Path, func(list []Block) []Block {
			return UpdateProperties(list, op.Target, op.Properties)
		})
	case OpAddColumn:
		out = withColumns(tree, op.Path, op.Target, func(c ColumnsContent) ColumnsContent {
			next := AddColumn(c, ids)
			if len(next.Columns) > len(c.Columns) {
				created = next.Columns[len(next.Columns)-1].ID
			}
			return next
		})
	case OpRemoveColumn:
		out = UpdateListAt(tree, op.Path, func(list []Block) []Block {
			return RemoveColumn(list, op.Target, op.Column)
		})
	case OpSetColumnWidth:
		out = withColumns(tree, op.Path, op.Target, func(c ColumnsContent) ColumnsContent {
			return SetColumnWidth(c, op.Column, op.Width)
		})
	case OpApplyLayoutPreset:
		widths := op.Widths
		if op.Preset != "" {
			preset, ok := LayoutPresets[op.Preset]
			if !ok {
				return Result{}, fmt.Errorf("unknown layout preset %q", op.Preset)
			}
			widths = preset
		}
		out = withColumns(tree, op.Path, op.Target, func(c ColumnsContent) ColumnsContent {
			return ApplyLayoutPreset(c, widths, ids)
		})
	case OpExtractFromColumns:
		out = UpdateListAt(tree, op.Path, func(list []Block) []Block {
			return ExtractFromColumns(list, op.Target, op.Child)
		})
	case OpDissolveColumns:
		out = UpdateListAt(tree, op.Path, func(list []Block) []Block {
			return DissolveColumns(list, op.Target)
		})
	case OpSetSectionTitle:
		out = UpdateListAt(tree, op.Path, func(list []Block) []Block {
			return SetSectionTitle(list, op.Target, op.Title)
		})
	case OpAddEntry:
		out = withEntries(tree, op.Path, op.Target, func(c EntryListContent) (EntryListContent, error) {
			next, entry := AddEntry(c, op.Title, ids)
			created = entry.ID
			return next, nil
		})
	case OpRemoveEntry:
		out = withEntries(tree, op.Path, op.Target, func(c EntryListContent) (EntryListContent, error) {
			return RemoveEntry(c, op.Entry), nil
		})
	case OpRenameEntry:
		out = withEntries(tree, op.Path, op.Target, func(c EntryListContent) (EntryListContent, error) {
			return RenameEntry(c, op.Entry, op.Title), nil
		})
	case OpMoveEntry:
		out = withEntries(tree, op.Path, op.Target, func(c EntryListContent) (EntryListContent, error) {
			if c.SortMode == SortAlphabetical {
				err = ErrMoveDisabled
				return c, err
			}
			return MoveEntry(c, op.Entry, op.Direction), nil
		})
	case OpSetSortMode:
		if !op.SortMode.Valid() {
			return Result{}, fmt.Errorf("unknown sort mode %q", op.SortMode)
		}
		out = withEntries(tree, op.Path, op.Target, func(c EntryListContent) (EntryListContent, error) {
			return SetSortMode(c, op.SortMode), nil
		})
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownOp, op.Kind)
	}
	if err != nil {
		return Result{}, err
	}
	changed := !reflect.DeepEqual(tree, out)
	if !changed {
		created = ""
		out = tree
	}
	return Result{Tree: out, Changed: changed, Created: created}, nil
}

func applyInsertOp(tree []Block, op Op, ids IDGenerator) ([]Block, string, error) {
	var block Block
	switch {
	case op.Block != nil:
		// Every inserted subtree is re-stamped so ids stay unique across the
		// document whatever the client sent.
		block = Restamp(*op.Block, ids)
	case op.Type != "":
		b, err := NewBlock(op.Type, ids)
		if err != nil {
			return nil, "", err
		}
		block = b
	default:
		return nil, "", errInsertNeedsBlock
	}
	if op.AfterIndex == nil {
		return UpdateListAt(tree, op.Path, func(list []Block) []Block {
			return Insert(list, block, len(list)-1)
		}), block.ID, nil
	}
	return ApplyInsert(tree, op.Path, block, *op.AfterIndex), block.ID, nil
}

func applyUpdateContentOp(tree []Block, op Op) ([]Block, error) {
	list, ok := ListAt(tree, op.Path)
	if !ok {
		return tree, nil
	}
	idx := IndexOf(list, op.Target)
	if idx < 0 {
		return tree, nil
	}
	content, err := DecodeContent(list[idx].Type, op.Content)
	if err != nil {
		return nil, err
	}
	if list[idx].Type.IsContainer() {
		// Container children carry ids; replacing them wholesale would let a
		// client smuggle in duplicates.
		candidate := Block{ID: list[idx].ID, Type: list[idx].Type, Content: content}
		if err := Validate(replaceAt(tree, op.Path, idx, candidate)); err != nil {
			return nil, err
		}
	}
	return ApplyUpdateContent(tree, op.Path, op.Target, content), nil
}

func replaceAt(tree []Block, path Path, idx int, b Block) []Block {
	return UpdateListAt(tree, path, func(list []Block) []Block {
		out := make([]Block, len(list))
		copy(out, list)
		out[idx] = b
		return out
	})
}

func withColumns(tree []Block, path Path, id string, fn func(ColumnsContent) ColumnsContent) []Block {
	return UpdateListAt(tree, path, func(list []Block) []Block {
		_, c, ok := columnsAt(list, id)
		if !ok {
			return list
		}
		return UpdateContent(list, id, fn(c))
	})
}

func withEntries(tree []Block, path Path, id string, fn func(EntryListContent) (EntryListContent, error)) []Block {
	return UpdateListAt(tree, path, func(list []Block) []Block {
		idx := IndexOf(list, id)
		if idx < 0 {
			return list
		}
		c, ok := list[idx].Content.(EntryListContent)
		if !ok {
			return list
		}
		next, err := fn(c)
		if err != nil {
			return list
		}
		return UpdateContent(list, id, next)
	})
}
