package blocks

// ViewState is the per-editor presentation state of a document: the block
// open for editing, which collapsible sections are folded, and which entry is
// open in each expandable list. None of it is stored in the tree.
type ViewState struct {
	Editing   string            `json:"editing,omitempty"`
	Collapsed map[string]bool   `json:"collapsed,omitempty"`
	Open      map[string]string `json:"open,omitempty"`
}

// SectionExpanded reports whether a collapsible section is shown expanded.
// Sections start expanded.
func (v ViewState) SectionExpanded(sectionID string) bool {
	return !v.Collapsed[sectionID]
}

// ToggleSection flips a section between expanded and collapsed.
func (v ViewState) ToggleSection(sectionID string) ViewState {
	out := v.clone()
	if out.Collapsed[sectionID] {
		delete(out.Collapsed, sectionID)
	} else {
		out.Collapsed[sectionID] = true
	}
	return out
}

// SelectEntry applies accordion semantics to an expandable list: selecting
// a closed entry opens it and closes any other, selecting the open entry
// closes it.
func (v ViewState) SelectEntry(listID, entryID string) ViewState {
	out := v.clone()
	if out.Open[listID] == entryID {
		delete(out.Open, listID)
	} else {
		out.Open[listID] = entryID
	}
	return out
}

// OpenEntry returns the entry currently open in listID, if any.
func (v ViewState) OpenEntry(listID string) string {
	return v.Open[listID]
}

// SetEditing marks id as the block being edited; the empty id clears it.
func (v ViewState) SetEditing(id string) ViewState {
	out := v.clone()
	out.Editing = id
	return out
}

// ToggleEdit opens id for editing, or leaves edit mode when id is the block
// already open. The empty id always leaves edit mode.
func (v ViewState) ToggleEdit(id string) ViewState {
	if v.Editing == id {
		id = ""
	}
	return v.SetEditing(id)
}

// AfterApply carries the view across one applied operation: a block created
// by insert opens for editing, and anything the operation removed is
// forgotten.
func (v ViewState) AfterApply(op Op, res Result) ViewState {
	out := v
	if op.Kind == OpInsert && res.Created != "" {
		out = out.SetEditing(res.Created)
	}
	return out.Prune(res.Tree)
}

// Prune drops references to blocks and entries that no longer exist in tree.
func (v ViewState) Prune(tree []Block) ViewState {
	live := make(map[string]struct{})
	for _, id := range CollectIDs(tree) {
		live[id] = struct{}{}
	}
	out := v.clone()
	if _, ok := live[out.Editing]; !ok {
		out.Editing = ""
	}
	for id := range out.Collapsed {
		if _, ok := live[id]; !ok {
			delete(out.Collapsed, id)
		}
	}
	for listID, entryID := range out.Open {
		_, listOK := live[listID]
		_, entryOK := live[entryID]
		if !listOK || !entryOK {
			delete(out.Open, listID)
		}
	}
	return out
}

func (v ViewState) clone() ViewState {
	out := ViewState{
		Editing:   v.Editing,
		Collapsed: make(map[string]bool, len(v.Collapsed)),
		Open:      make(map[string]string, len(v.Open)),
	}
	for k, val := range v.Collapsed {
		out.Collapsed[k] = val
	}
	for k, val := range v.Open {
		out.Open[k] = val
	}
	return out
}
