package blocks

import (
	"encoding/json"
	"fmt"
)

var defaultLeafContent = map[Type]string{
	TypeParagraph: `{"text":""}`,
	TypeHeading:   `{"text":"","level":2}`,
	TypeQuote:     `{"text":""}`,
	TypeCode:      `{"code":"","language":"plaintext"}`,
	TypeList:      `{"style":"bulleted","items":[""]}`,
	TypeCallout:   `{"text":"","variant":"info"}`,
	TypeImage:     `{"src":"","caption":""}`,
	TypeTable:     `{"rows":[["",""],["",""]]}`,
	TypeButton:    `{"label":"","href":""}`,
	TypeDivider:   `{}`,
	TypeEmbed:     `{"url":""}`,
}

// NewBlock builds a block of kind t with its default content and fresh ids
// for the block and any columns or entries it starts with.
func NewBlock(t Type, ids IDGenerator) (Block, error) {
	b := Block{ID: ids.NewID(kindBlock), Type: t}
	switch t {
	case TypeColumns:
		b.Content = NewColumnsContent(ids, MinColumns)
	case TypeCollapsibleHeading:
		b.Content = NewSectionContent("")
	case TypeExpandableList:
		b.Content = NewEntryListContent(ids)
	default:
		raw, ok := defaultLeafContent[t]
		if !ok {
			return Block{}, fmt.Errorf("%w: %q", ErrUnknownType, t)
		}
		b.Content = LeafContent{Raw: json.RawMessage(raw)}
	}
	return b, nil
}
