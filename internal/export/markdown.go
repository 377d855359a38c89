package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"knowledgebase/internal/blocks"
)

// BlocksToMarkdown converts a block tree to Markdown. Columns have no
// Markdown equivalent and are flattened left to right; sections and entries
// become headings one level below their context.
func BlocksToMarkdown(tree []blocks.Block) string {
	var sb strings.Builder
	writeMarkdown(&sb, tree, 2)
	return sb.String()
}

func writeMarkdown(sb *strings.Builder, list []blocks.Block, depth int) {
	for _, b := range list {
		switch c := b.Content.(type) {
		case blocks.ColumnsContent:
			for _, col := range c.Columns {
				writeMarkdown(sb, col.Blocks, depth)
			}
		case blocks.SectionContent:
			sb.WriteString(headingPrefix(depth) + c.Title + "\n\n")
			writeMarkdown(sb, c.Blocks, depth+1)
		case blocks.EntryListContent:
			for _, group := range blocks.GroupEntries(c) {
				entryDepth := depth
				if group.Letter != "" {
					sb.WriteString(headingPrefix(depth) + group.Letter + "\n\n")
					entryDepth = depth + 1
				}
				for _, e := range group.Entries {
					sb.WriteString(headingPrefix(entryDepth) + e.Title + "\n\n")
					writeMarkdown(sb, e.Blocks, entryDepth+1)
				}
			}
		case blocks.LeafContent:
			if md := leafMarkdown(b.Type, c); md != "" {
				sb.WriteString(md + "\n\n")
			}
		}
	}
}

func leafMarkdown(t blocks.Type, c blocks.LeafContent) string {
	var p leafPayload
	if len(c.Raw) > 0 {
		_ = json.Unmarshal(c.Raw, &p)
	}

	switch t {
	case blocks.TypeParagraph:
		return p.Text
	case blocks.TypeHeading:
		return strings.Repeat("#", clampLevel(p.Level)) + " " + p.Text
	case blocks.TypeQuote:
		return "> " + strings.ReplaceAll(p.Text, "\n", "\n> ")
	case blocks.TypeCode:
		return "```" + p.Language + "\n" + p.Code + "\n```"
	case blocks.TypeList:
		lines := make([]string, len(p.Items))
		for i, item := range p.Items {
			if p.Style == "numbered" {
				lines[i] = fmt.Sprintf("%d. %s", i+1, item)
			} else {
				lines[i] = "- " + item
			}
		}
		return strings.Join(lines, "\n")
	case blocks.TypeCallout:
		return "> **" + strings.ToUpper(p.Variant) + ":** " + p.Text
	case blocks.TypeImage:
		return fmt.Sprintf("![%s](%s)", p.Caption, p.Src)
	case blocks.TypeTable:
		return markdownTable(p.Rows)
	case blocks.TypeButton:
		return fmt.Sprintf("[%s](%s)", p.Label, p.Href)
	case blocks.TypeDivider:
		return "---"
	case blocks.TypeEmbed:
		return fmt.Sprintf("<%s>", p.URL)
	}
	return ""
}

// markdownTable treats the first row as the header.
func markdownTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	line := func(row []string) string {
		cells := make([]string, width)
		for i := range cells {
			if i < len(row) {
				cells[i] = strings.ReplaceAll(row[i], "|", `\|`)
			}
		}
		return "| " + strings.Join(cells, " | ") + " |"
	}
	out := []string{line(rows[0]), "|" + strings.Repeat(" --- |", width)}
	for _, row := range rows[1:] {
		out = append(out, line(row))
	}
	return strings.Join(out, "\n")
}

func headingPrefix(depth int) string {
	if depth > 6 {
		depth = 6
	}
	return strings.Repeat("#", depth) + " "
}
