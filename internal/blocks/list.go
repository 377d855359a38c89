package blocks

// IndexOf returns the position of the block with id in list, or -1.
func IndexOf(list []Block, id string) int {
	for i, b := range list {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// Insert places block immediately after position afterIndex. An afterIndex
// of -1 (or lower) inserts at the start; one past the end appends.
//
// The caller must supply a block whose id is not already used anywhere in
// the document.
func Insert(list []Block, block Block, afterIndex int) []Block {
	at := afterIndex + 1
	if at < 0 {
		at = 0
	}
	if at > len(list) {
		at = len(list)
	}
	out := make([]Block, 0, len(list)+1)
	out = append(out, list[:at]...)
	out = append(out, block)
	out = append(out, list[at:]...)
	return out
}

// Move relocates the block fromID so it sits immediately before toID, the
// drop contract of the editor's drag-and-drop. It returns list unchanged if
// the ids are equal or either one is missing.
func Move(list []Block, fromID, toID string) []Block {
	if fromID == toID {
		return list
	}
	from := IndexOf(list, fromID)
	if from < 0 || IndexOf(list, toID) < 0 {
		return list
	}
	moved := list[from]

	rest := make([]Block, 0, len(list))
	rest = append(rest, list[:from]...)
	rest = append(rest, list[from+1:]...)

	to := IndexOf(rest, toID)
	out := make([]Block, 0, len(list))
	out = append(out, rest[:to]...)
	out = append(out, moved)
	out = append(out, rest[to:]...)
	return out
}

// Delete removes the block with id. A removed container takes its whole
// subtree with it.
func Delete(list []Block, id string) []Block {
	idx := IndexOf(list, id)
	if idx < 0 {
		return list
	}
	out := make([]Block, 0, len(list)-1)
	out = append(out, list[:idx]...)
	out = append(out, list[idx+1:]...)
	return out
}

// UpdateContent swaps the content of the block with id, keeping its identity
// and position.
func UpdateContent(list []Block, id string, content Content) []Block {
	idx := IndexOf(list, id)
	if idx < 0 || content == nil {
		return list
	}
	out := make([]Block, len(list))
	copy(out, list)
	out[idx].Content = content
	return out
}

// UpdateProperties swaps the properties map of the block with id. An empty
// map clears the properties; nil and empty encode the same way.
func UpdateProperties(list []Block, id string, props map[string]any) []Block {
	idx := IndexOf(list, id)
	if idx < 0 {
		return list
	}
	if len(props) == 0 {
		if len(list[idx].Properties) == 0 {
			return list
		}
		props = nil
	}
	out := make([]Block, len(list))
	copy(out, list)
	out[idx].Properties = props
	return out
}

// replaceWith substitutes the block at idx with replacement (possibly empty).
func replaceWith(list []Block, idx int, replacement ...Block) []Block {
	out := make([]Block, 0, len(list)-1+len(replacement))
	out = append(out, list[:idx]...)
	out = append(out, replacement...)
	out = append(out, list[idx+1:]...)
	return out
}

// spliceAfter inserts blocks right after position idx.
func spliceAfter(list []Block, idx int, blocks ...Block) []Block {
	out := make([]Block, 0, len(list)+len(blocks))
	out = append(out, list[:idx+1]...)
	out = append(out, blocks...)
	out = append(out, list[idx+1:]...)
	return out
}
