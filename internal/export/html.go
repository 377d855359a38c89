package export

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"knowledgebase/internal/blocks"
)

// BlocksToHTML converts a block tree to an HTML fragment. Sections and
// entries become <details> elements; columns become a flex row.
func BlocksToHTML(tree []blocks.Block) string {
	var sb strings.Builder
	for _, b := range tree {
		sb.WriteString(renderBlockHTML(b))
	}
	return sb.String()
}

func renderBlockHTML(b blocks.Block) string {
	switch c := b.Content.(type) {
	case blocks.ColumnsContent:
		var sb strings.Builder
		sb.WriteString(`<div class="columns">` + "\n")
		for _, col := range c.Columns {
			fmt.Fprintf(&sb, `<div class="column" style="flex-basis:%d%%">`+"\n%s</div>\n", col.Width, BlocksToHTML(col.Blocks))
		}
		sb.WriteString("</div>\n")
		return sb.String()
	case blocks.SectionContent:
		return fmt.Sprintf("<details open>\n<summary>%s</summary>\n%s</details>\n", html.EscapeString(c.Title), BlocksToHTML(c.Blocks))
	case blocks.EntryListContent:
		var sb strings.Builder
		sb.WriteString(`<div class="entries">` + "\n")
		for _, group := range blocks.GroupEntries(c) {
			if group.Letter != "" {
				fmt.Fprintf(&sb, "<h4>%s</h4>\n", html.EscapeString(group.Letter))
			}
			for _, e := range group.Entries {
				fmt.Fprintf(&sb, "<details>\n<summary>%s</summary>\n%s</details>\n", html.EscapeString(e.Title), BlocksToHTML(e.Blocks))
			}
		}
		sb.WriteString("</div>\n")
		return sb.String()
	case blocks.LeafContent:
		return renderLeafHTML(b.Type, c)
	}
	return ""
}

func renderLeafHTML(t blocks.Type, c blocks.LeafContent) string {
	var p leafPayload
	if len(c.Raw) > 0 {
		_ = json.Unmarshal(c.Raw, &p)
	}
	esc := html.EscapeString

	switch t {
	case blocks.TypeParagraph:
		return fmt.Sprintf("<p>%s</p>\n", esc(p.Text))
	case blocks.TypeHeading:
		level := clampLevel(p.Level)
		return fmt.Sprintf("<h%d>%s</h%d>\n", level, esc(p.Text), level)
	case blocks.TypeQuote:
		return fmt.Sprintf("<blockquote>%s</blockquote>\n", esc(p.Text))
	case blocks.TypeCode:
		return fmt.Sprintf(`<pre><code class="language-%s">%s</code></pre>`+"\n", esc(p.Language), esc(p.Code))
	case blocks.TypeList:
		tag := "ul"
		if p.Style == "numbered" {
			tag = "ol"
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "<%s>\n", tag)
		for _, item := range p.Items {
			fmt.Fprintf(&sb, "<li>%s</li>\n", esc(item))
		}
		fmt.Fprintf(&sb, "</%s>\n", tag)
		return sb.String()
	case blocks.TypeCallout:
		return fmt.Sprintf(`<div class="callout callout-%s">%s</div>`+"\n", esc(p.Variant), esc(p.Text))
	case blocks.TypeImage:
		return fmt.Sprintf(`<figure><img src="%s" alt="%s"><figcaption>%s</figcaption></figure>`+"\n", esc(p.Src), esc(p.Caption), esc(p.Caption))
	case blocks.TypeTable:
		var sb strings.Builder
		sb.WriteString("<table>\n")
		for _, row := range p.Rows {
			sb.WriteString("<tr>")
			for _, cell := range row {
				fmt.Fprintf(&sb, "<td>%s</td>", esc(cell))
			}
			sb.WriteString("</tr>\n")
		}
		sb.WriteString("</table>\n")
		return sb.String()
	case blocks.TypeButton:
		return fmt.Sprintf(`<a class="button" href="%s">%s</a>`+"\n", esc(p.Href), esc(p.Label))
	case blocks.TypeDivider:
		return "<hr>\n"
	case blocks.TypeEmbed:
		return fmt.Sprintf(`<p><a href="%s">%s</a></p>`+"\n", esc(p.URL), esc(p.URL))
	}
	return ""
}

func clampLevel(level int) int {
	if level < 1 {
		return 2
	}
	if level > 6 {
		return 6
	}
	return level
}
