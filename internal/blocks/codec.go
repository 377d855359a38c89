package blocks

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnknownType is returned when a block kind is outside the closed set.
	ErrUnknownType = errors.New("unknown block type")
	// ErrUnknownOp is returned when an operation name is not recognised.
	ErrUnknownOp = errors.New("unknown operation")
)

type wireBlock struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	Content    json.RawMessage `json:"content,omitempty"`
	Properties map[string]any  `json:"properties,omitempty"`
}

type wireColumn struct {
	ID     string  `json:"id"`
	Width  int     `json:"width"`
	Blocks []Block `json:"blocks"`
}

type wireColumns struct {
	Columns []wireColumn `json:"columns"`
}

type wireSection struct {
	Title  string  `json:"title"`
	Blocks []Block `json:"blocks"`
}

type wireEntry struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Blocks []Block `json:"blocks"`
}

type wireEntryList struct {
	Entries  []wireEntry `json:"entries"`
	SortMode SortMode    `json:"sortMode"`
}

func (b Block) MarshalJSON() ([]byte, error) {
	content, err := EncodeContent(b.Content)
	if err != nil {
		return nil, fmt.Errorf("encode block %s: %w", b.ID, err)
	}
	return json.Marshal(wireBlock{
		ID:         b.ID,
		Type:       b.Type,
		Content:    content,
		Properties: b.Properties,
	})
}

func (b *Block) UnmarshalJSON(data []byte) error {
	var wire wireBlock
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if !wire.Type.Valid() {
		return fmt.Errorf("block %s: %w: %q", wire.ID, ErrUnknownType, wire.Type)
	}
	content, err := DecodeContent(wire.Type, wire.Content)
	if err != nil {
		return fmt.Errorf("block %s: %w", wire.ID, err)
	}
	*b = Block{
		ID:         wire.ID,
		Type:       wire.Type,
		Content:    content,
		Properties: wire.Properties,
	}
	return nil
}

// EncodeContent renders a content payload in its wire shape.
func EncodeContent(c Content) (json.RawMessage, error) {
	switch v := c.(type) {
	case nil:
		return nil, nil
	case LeafContent:
		if len(v.Raw) == 0 {
			return nil, nil
		}
		return v.Raw, nil
	case ColumnsContent:
		wire := wireColumns{Columns: make([]wireColumn, len(v.Columns))}
		for i, col := range v.Columns {
			wire.Columns[i] = wireColumn{ID: col.ID, Width: col.Width, Blocks: nonNil(col.Blocks)}
		}
		return json.Marshal(wire)
	case SectionContent:
		return json.Marshal(wireSection{Title: v.Title, Blocks: nonNil(v.Blocks)})
	case EntryListContent:
		wire := wireEntryList{Entries: make([]wireEntry, len(v.Entries)), SortMode: v.SortMode}
		for i, e := range v.Entries {
			wire.Entries[i] = wireEntry{ID: e.ID, Title: e.Title, Blocks: nonNil(e.Blocks)}
		}
		return json.Marshal(wire)
	default:
		return nil, fmt.Errorf("unsupported content %T", c)
	}
}

// DecodeContent parses raw according to the block kind t.
func DecodeContent(t Type, raw json.RawMessage) (Content, error) {
	empty := len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
	switch t {
	case TypeColumns:
		var wire wireColumns
		if !empty {
			if err := json.Unmarshal(raw, &wire); err != nil {
				return nil, fmt.Errorf("decode columns content: %w", err)
			}
		}
		c := ColumnsContent{Columns: make([]Column, len(wire.Columns))}
		for i, col := range wire.Columns {
			c.Columns[i] = Column{ID: col.ID, Width: col.Width, Blocks: nonNil(col.Blocks)}
		}
		return c, nil
	case TypeCollapsibleHeading:
		var wire wireSection
		if !empty {
			if err := json.Unmarshal(raw, &wire); err != nil {
				return nil, fmt.Errorf("decode section content: %w", err)
			}
		}
		return SectionContent{Title: wire.Title, Blocks: nonNil(wire.Blocks)}, nil
	case TypeExpandableList:
		var wire wireEntryList
		if !empty {
			if err := json.Unmarshal(raw, &wire); err != nil {
				return nil, fmt.Errorf("decode entry list content: %w", err)
			}
		}
		if wire.SortMode == "" {
			wire.SortMode = SortManual
		}
		c := EntryListContent{Entries: make([]Entry, len(wire.Entries)), SortMode: wire.SortMode}
		for i, e := range wire.Entries {
			c.Entries[i] = Entry{ID: e.ID, Title: e.Title, Blocks: nonNil(e.Blocks)}
		}
		return c, nil
	default:
		if !t.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
		}
		if empty {
			return LeafContent{}, nil
		}
		return LeafContent{Raw: append(json.RawMessage(nil), raw...)}, nil
	}
}

// Decode parses a serialized block list.
func Decode(data []byte) ([]Block, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []Block{}, nil
	}
	var tree []Block
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("decode blocks: %w", err)
	}
	return nonNil(tree), nil
}

// Encode serializes a block list.
func Encode(tree []Block) (json.RawMessage, error) {
	data, err := json.Marshal(nonNil(tree))
	if err != nil {
		return nil, fmt.Errorf("encode blocks: %w", err)
	}
	return data, nil
}

func nonNil(list []Block) []Block {
	if list == nil {
		return []Block{}
	}
	return list
}
