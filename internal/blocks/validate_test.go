package blocks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		tree    []Block
		problem string
	}{
		{name: "valid", tree: nestedTree()},
		{
			name:    "duplicate nested id",
			tree:    []Block{para("a"), sectionBlock("s", "", para("a"))},
			problem: `duplicate id "a"`,
		},
		{
			name:    "empty id",
			tree:    []Block{para("")},
			problem: "empty id",
		},
		{
			name:    "widths off",
			tree:    []Block{columnsBlock("c", []int{60, 30})},
			problem: "widths sum to 90",
		},
		{
			name:    "single column",
			tree:    []Block{columnsBlock("c", []int{100})},
			problem: "has 1 columns",
		},
		{
			name:    "content does not match type",
			tree:    []Block{{ID: "x", Type: TypeParagraph, Content: SectionContent{}}},
			problem: "holds section content",
		},
		{
			name:    "container without children",
			tree:    []Block{{ID: "y", Type: TypeColumns, Content: LeafContent{}}},
			problem: "has no child lists",
		},
		{
			name:    "unknown type",
			tree:    []Block{{ID: "z", Type: "marquee"}},
			problem: "unknown type",
		},
		{
			name:    "bad sort mode",
			tree:    []Block{entryListBlock("l", "shuffled")},
			problem: "unknown sort mode",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.tree)
			if tc.problem == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Error(), tc.problem)
		})
	}
}
