package export

import (
	"bytes"
	"html/template"
	"time"
)

var documentTemplate = template.Must(template.New("document").Funcs(template.FuncMap{
	"formatDate": func(t time.Time, layout string) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(layout)
	},
}).Parse(pageTemplate))

// TemplateData holds data for document template rendering
type TemplateData struct {
	Title       string
	ContentHTML template.HTML
	Author      string
	UpdatedAt   time.Time
	Version     string
}

// RenderDocumentHTML renders the page template with provided data
func RenderDocumentHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// safe marks renderer output as trusted. Every text fragment in it has
// already been escaped by BlocksToHTML.
func safe(s string) template.HTML {
	return template.HTML(s)
}

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 960px; margin: 2rem auto; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .columns { display: flex; gap: 1rem; }
    .callout { background: #f5f5f5; padding: 1rem; border-left: 3px solid #333; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div class="meta">{{.Author}}{{with formatDate .UpdatedAt "Jan 2, 2006"}} | {{.}}{{end}}{{with .Version}} | {{.}}{{end}}</div>
  <main>{{.ContentHTML}}</main>
</body>
</html>`
