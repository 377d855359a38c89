package blocks

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFind(t *testing.T) {
	tree := nestedTree()

	b, path, ok := Find(tree, "left")
	require.True(t, ok)
	assert.Equal(t, "left", b.ID)
	assert.Equal(t, Path{{Block: "sec"}, {Block: "cols", Column: 0}}, path)

	_, path, ok = Find(tree, "answer")
	require.True(t, ok)
	assert.Equal(t, "/faq#q1", path.String())

	_, _, ok = Find(tree, "missing")
	assert.False(t, ok)
}

func TestCollectIDsAndCount(t *testing.T) {
	tree := nestedTree()
	assert.Equal(t, 6, Count(tree))
	assert.ElementsMatch(t,
		[]string{"intro", "sec", "cols", "cols-c0", "cols-c1", "left", "faq", "q1", "answer"},
		CollectIDs(tree))
}

func TestRestamp(t *testing.T) {
	gen := &SequenceIDs{}
	orig := nestedTree()[1]

	fresh := Restamp(orig, gen)
	assert.Equal(t, "sec", orig.ID)
	for _, id := range CollectIDs([]Block{fresh}) {
		assert.NotContains(t, CollectIDs([]Block{orig}), id)
	}
	assert.Equal(t, Count([]Block{orig}), Count([]Block{fresh}))
	assert.NoError(t, Validate([]Block{orig, fresh}))
}

func TestPlainText(t *testing.T) {
	tree := append(nestedTree(), Block{
		ID:      "img",
		Type:    TypeImage,
		Content: LeafContent{Raw: json.RawMessage(`{"src":"https://cdn.example.com/cat.png","caption":"A cat"}`)},
	})

	assert.Equal(t, "text intro\nDetails\ntext left\nWhy\ntext answer\nA cat", PlainText(tree))
}
