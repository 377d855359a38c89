package blocks

import (
	"fmt"
	"sync/atomic"

	"knowledgebase/internal/util"
)

// IDGenerator mints identifiers that are unique across a whole document.
type IDGenerator interface {
	NewID(kind string) string
}

// RandomIDs generates uuid-backed identifiers such as "blk_3f2a...".
type RandomIDs struct{}

func (RandomIDs) NewID(kind string) string {
	return util.NewID(kind)
}

// SequenceIDs generates predictable identifiers ("blk-1", "col-2", ...).
// It is meant for tests and seed data.
type SequenceIDs struct {
	next atomic.Int64
}

func (s *SequenceIDs) NewID(kind string) string {
	n := s.next.Add(1)
	return fmt.Sprintf("%s-%d", kind, n)
}

const (
	kindBlock  = "blk"
	kindColumn = "col"
	kindEntry  = "ent"
)
