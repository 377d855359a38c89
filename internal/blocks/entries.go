package blocks

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// OtherGroup collects entries whose title does not start with a letter.
const OtherGroup = "#"

// NewEntryListContent returns a manual-order list holding one untitled entry.
func NewEntryListContent(ids IDGenerator) EntryListContent {
	return EntryListContent{
		Entries:  []Entry{{ID: ids.NewID(kindEntry), Title: "", Blocks: []Block{}}},
		SortMode: SortManual,
	}
}

func entryIndex(entries []Entry, id string) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// AddEntry appends a new empty entry and returns it alongside the new content.
func AddEntry(c EntryListContent, title string, ids IDGenerator) (EntryListContent, Entry) {
	entry := Entry{ID: ids.NewID(kindEntry), Title: title, Blocks: []Block{}}
	out := EntryListContent{
		Entries:  make([]Entry, 0, len(c.Entries)+1),
		SortMode: c.SortMode,
	}
	out.Entries = append(out.Entries, c.Entries...)
	out.Entries = append(out.Entries, entry)
	return out, entry
}

// RemoveEntry drops the entry and every block it holds.
func RemoveEntry(c EntryListContent, entryID string) EntryListContent {
	idx := entryIndex(c.Entries, entryID)
	if idx < 0 {
		return c
	}
	out := EntryListContent{
		Entries:  make([]Entry, 0, len(c.Entries)-1),
		SortMode: c.SortMode,
	}
	out.Entries = append(out.Entries, c.Entries[:idx]...)
	out.Entries = append(out.Entries, c.Entries[idx+1:]...)
	return out
}

// RenameEntry changes an entry title.
func RenameEntry(c EntryListContent, entryID, title string) EntryListContent {
	idx := entryIndex(c.Entries, entryID)
	if idx < 0 || c.Entries[idx].Title == title {
		return c
	}
	out := c.clone()
	out.Entries[idx].Title = title
	return out
}

// MoveEntry swaps an entry with its neighbour in direction -1 (up) or +1
// (down). Moving past either end is a no-op. The stored order is changed
// regardless of SortMode; callers hide the control in alphabetical mode.
func MoveEntry(c EntryListContent, entryID string, direction int) EntryListContent {
	if direction != -1 && direction != 1 {
		return c
	}
	idx := entryIndex(c.Entries, entryID)
	if idx < 0 {
		return c
	}
	other := idx + direction
	if other < 0 || other >= len(c.Entries) {
		return c
	}
	out := c.clone()
	out.Entries[idx], out.Entries[other] = out.Entries[other], out.Entries[idx]
	return out
}

// SetSortMode switches between manual and alphabetical presentation. The
// entries themselves keep their stored order.
func SetSortMode(c EntryListContent, mode SortMode) EntryListContent {
	if !mode.Valid() || c.SortMode == mode {
		return c
	}
	out := c.clone()
	out.SortMode = mode
	return out
}

// UpdateEntryBlocks replaces the child list of one entry.
func UpdateEntryBlocks(c EntryListContent, entryID string, list []Block) EntryListContent {
	idx := entryIndex(c.Entries, entryID)
	if idx < 0 {
		return c
	}
	out := c.clone()
	out.Entries[idx].Blocks = list
	return out
}

// EntryGroup is one letter bucket of the alphabetical view.
type EntryGroup struct {
	Letter  string  `json:"letter"`
	Entries []Entry `json:"entries"`
}

// GroupEntries derives the alphabetical view: entries bucketed by the
// upper-cased first letter of their title, sorted case-insensitively, with
// non-letter titles under OtherGroup at the end. In manual mode a single
// unnamed group holds the entries in stored order. The input is not
// modified.
func GroupEntries(c EntryListContent) []EntryGroup {
	if c.SortMode != SortAlphabetical {
		entries := make([]Entry, len(c.Entries))
		copy(entries, c.Entries)
		return []EntryGroup{{Letter: "", Entries: entries}}
	}

	sorted := make([]Entry, len(c.Entries))
	copy(sorted, c.Entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		gi, gj := groupLetter(sorted[i].Title), groupLetter(sorted[j].Title)
		if (gi == OtherGroup) != (gj == OtherGroup) {
			return gj == OtherGroup
		}
		return sortKey(sorted[i].Title) < sortKey(sorted[j].Title)
	})

	var groups []EntryGroup
	for _, e := range sorted {
		letter := groupLetter(e.Title)
		if n := len(groups); n > 0 && groups[n-1].Letter == letter {
			groups[n-1].Entries = append(groups[n-1].Entries, e)
			continue
		}
		groups = append(groups, EntryGroup{Letter: letter, Entries: []Entry{e}})
	}
	return groups
}

func groupLetter(title string) string {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(title))
	if r == utf8.RuneError || !unicode.IsLetter(r) {
		return OtherGroup
	}
	return string(unicode.ToUpper(r))
}

func sortKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
