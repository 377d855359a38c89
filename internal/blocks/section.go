package blocks

// NewSectionContent returns an empty collapsible section.
func NewSectionContent(title string) SectionContent {
	return SectionContent{Title: title, Blocks: []Block{}}
}

// SetSectionTitle renames the collapsible section sectionID in list.
func SetSectionTitle(list []Block, sectionID, title string) []Block {
	idx := IndexOf(list, sectionID)
	if idx < 0 {
		return list
	}
	c, ok := list[idx].Content.(SectionContent)
	if !ok || c.Title == title {
		return list
	}
	c.Title = title
	return UpdateContent(list, sectionID, c)
}
