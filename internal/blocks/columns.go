package blocks

const (
	MinColumns     = 2
	MaxColumns     = 5
	MinColumnWidth = 15
	MaxColumnWidth = 85
	totalWidth     = 100
)

// LayoutPresets are the named width layouts offered by the columns toolbar.
var LayoutPresets = map[string][]int{
	"50/50":       {50, 50},
	"70/30":       {70, 30},
	"30/70":       {30, 70},
	"thirds":      {34, 33, 33},
	"25/50/25":    {25, 50, 25},
	"25/25/25/25": {25, 25, 25, 25},
	"20x5":        {20, 20, 20, 20, 20},
}

// EqualWidths splits 100 across n columns as floor(100/n) each, handing the
// remainder to the first column.
func EqualWidths(n int) []int {
	if n <= 0 {
		return nil
	}
	widths := make([]int, n)
	base := totalWidth / n
	for i := range widths {
		widths[i] = base
	}
	widths[0] += totalWidth - base*n
	return widths
}

// NewColumnsContent returns n empty, equal-width columns. n is clamped to
// the allowed column count.
func NewColumnsContent(ids IDGenerator, n int) ColumnsContent {
	n = clamp(n, MinColumns, MaxColumns)
	cols := make([]Column, n)
	for i, w := range EqualWidths(n) {
		cols[i] = Column{ID: ids.NewID(kindColumn), Width: w, Blocks: []Block{}}
	}
	return ColumnsContent{Columns: cols}
}

func renormalize(cols []Column) []Column {
	out := make([]Column, len(cols))
	copy(out, cols)
	for i, w := range EqualWidths(len(out)) {
		out[i].Width = w
	}
	return out
}

// AddColumn appends an empty column and renormalizes widths. It is a no-op
// at MaxColumns.
func AddColumn(c ColumnsContent, ids IDGenerator) ColumnsContent {
	if len(c.Columns) >= MaxColumns {
		return c
	}
	cols := make([]Column, 0, len(c.Columns)+1)
	cols = append(cols, c.Columns...)
	cols = append(cols, Column{ID: ids.NewID(kindColumn), Blocks: []Block{}})
	return ColumnsContent{Columns: renormalize(cols)}
}

// RemoveColumn drops column colIndex of the columns block columnsID found in
// list. The blocks that lived in the column are spliced into list right
// after the columns block, in order. No-op at MinColumns or for an unknown
// block or index.
func RemoveColumn(list []Block, columnsID string, colIndex int) []Block {
	idx, c, ok := columnsAt(list, columnsID)
	if !ok || len(c.Columns) <= MinColumns || colIndex < 0 || colIndex >= len(c.Columns) {
		return list
	}
	removed := c.Columns[colIndex].Blocks

	cols := make([]Column, 0, len(c.Columns)-1)
	cols = append(cols, c.Columns[:colIndex]...)
	cols = append(cols, c.Columns[colIndex+1:]...)

	out := UpdateContent(list, columnsID, ColumnsContent{Columns: renormalize(cols)})
	if len(removed) == 0 {
		return out
	}
	return spliceAfter(out, idx, removed...)
}

// SetColumnWidth resizes one column and compensates with its neighbour (the
// next column, or the previous one for the last column) so the total stays
// at 100. The target width is clamped to [MinColumnWidth, MaxColumnWidth]
// and the neighbour never shrinks below MinColumnWidth.
func SetColumnWidth(c ColumnsContent, colIndex, width int) ColumnsContent {
	n := len(c.Columns)
	if n < MinColumns || colIndex < 0 || colIndex >= n {
		return c
	}
	neighbour := colIndex + 1
	if colIndex == n-1 {
		neighbour = colIndex - 1
	}

	target := clamp(width, MinColumnWidth, MaxColumnWidth)
	current := c.Columns[colIndex].Width
	other := c.Columns[neighbour].Width

	delta := target - current
	if slack := other - MinColumnWidth; delta > 0 && delta > slack {
		delta = max(slack, 0)
	}
	if delta == 0 {
		return c
	}

	out := c.clone()
	out.Columns[colIndex].Width = current + delta
	out.Columns[neighbour].Width = other - delta
	return out
}

// ApplyLayoutPreset replaces every column width at once. Existing columns
// keep their blocks by position; extra slots get new empty columns; blocks
// of columns beyond the preset are appended to the last remaining column.
// Presets must have 2..5 slots, widths within bounds and sum to 100,
// otherwise c is returned unchanged.
func ApplyLayoutPreset(c ColumnsContent, widths []int, ids IDGenerator) ColumnsContent {
	if !validPreset(widths) {
		return c
	}
	cols := make([]Column, len(widths))
	for i, w := range widths {
		if i < len(c.Columns) {
			cols[i] = c.Columns[i]
		} else {
			cols[i] = Column{ID: ids.NewID(kindColumn), Blocks: []Block{}}
		}
		cols[i].Width = w
	}
	if len(c.Columns) > len(widths) {
		last := len(cols) - 1
		merged := make([]Block, 0, len(cols[last].Blocks))
		merged = append(merged, cols[last].Blocks...)
		for _, extra := range c.Columns[len(widths):] {
			merged = append(merged, extra.Blocks...)
		}
		cols[last].Blocks = merged
	}
	return ColumnsContent{Columns: cols}
}

func validPreset(widths []int) bool {
	if len(widths) < MinColumns || len(widths) > MaxColumns {
		return false
	}
	sum := 0
	for _, w := range widths {
		if w < MinColumnWidth || w > MaxColumnWidth {
			return false
		}
		sum += w
	}
	return sum == totalWidth
}

// ExtractFromColumns pulls childID out of the columns block columnsID and
// places it in list as a sibling right after the columns block. When fewer
// than two non-empty columns remain the container collapses:
//
//   - none left: the columns block is replaced by the extracted block;
//   - one left: it is replaced by that column's blocks followed by the
//     extracted block;
//   - otherwise the container stays, dropping empty columns when it had more
//     than two, and the extracted block follows it.
func ExtractFromColumns(list []Block, columnsID, childID string) []Block {
	idx, c, ok := columnsAt(list, columnsID)
	if !ok {
		return list
	}

	var extracted Block
	found := false
	cols := make([]Column, len(c.Columns))
	for i, col := range c.Columns {
		cols[i] = col
		if found {
			continue
		}
		if j := IndexOf(col.Blocks, childID); j >= 0 {
			extracted = col.Blocks[j]
			cols[i].Blocks = Delete(col.Blocks, childID)
			found = true
		}
	}
	if !found {
		return list
	}

	nonEmpty := make([]Column, 0, len(cols))
	for _, col := range cols {
		if len(col.Blocks) > 0 {
			nonEmpty = append(nonEmpty, col)
		}
	}

	switch len(nonEmpty) {
	case 0:
		return replaceWith(list, idx, extracted)
	case 1:
		flat := make([]Block, 0, len(nonEmpty[0].Blocks)+1)
		flat = append(flat, nonEmpty[0].Blocks...)
		flat = append(flat, extracted)
		return replaceWith(list, idx, flat...)
	}

	if len(c.Columns) > MinColumns && len(nonEmpty) != len(cols) {
		cols = renormalize(nonEmpty)
	}
	out := UpdateContent(list, columnsID, ColumnsContent{Columns: cols})
	return spliceAfter(out, idx, extracted)
}

// DissolveColumns replaces the columns block with all of its blocks, column
// by column.
func DissolveColumns(list []Block, columnsID string) []Block {
	idx, c, ok := columnsAt(list, columnsID)
	if !ok {
		return list
	}
	var flat []Block
	for _, col := range c.Columns {
		flat = append(flat, col.Blocks...)
	}
	return replaceWith(list, idx, flat...)
}

// UpdateColumnBlocks replaces the child list of one column.
func UpdateColumnBlocks(c ColumnsContent, colIndex int, list []Block) ColumnsContent {
	if colIndex < 0 || colIndex >= len(c.Columns) {
		return c
	}
	out := c.clone()
	out.Columns[colIndex].Blocks = list
	return out
}

func columnsAt(list []Block, columnsID string) (int, ColumnsContent, bool) {
	idx := IndexOf(list, columnsID)
	if idx < 0 {
		return -1, ColumnsContent{}, false
	}
	c, ok := list[idx].Content.(ColumnsContent)
	return idx, c, ok
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
