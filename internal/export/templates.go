package export

import (
	"bytes"
	"html/template"
	"strings"
	"time"
)

var kindLabels = map[string]string{
	"cv":           "Curriculum Vitae",
	"cover_letter": "Cover Letter",
	"speech":       "Pitch",
	"template":     "Template",
}

var documentTemplate = template.Must(template.New("document").Funcs(template.FuncMap{
	"lower": strings.ToLower,
	"formatDate": func(t time.Time, layout string) string {
		return t.Format(layout)
	},
}).Parse(documentHTML))

// TemplateData holds data for document template rendering
type TemplateData struct {
	Title       string
	KindLabel   string
	Author      string
	Company     string
	ContentHTML template.HTML
	UpdatedAt   time.Time
}

// RenderDocumentHTML renders a full HTML page for the document.
func RenderDocumentHTML(doc Document) (string, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return "", ErrContentUnavailable
	}
	data := TemplateData{
		Title:       doc.Title,
		KindLabel:   kindLabels[doc.Kind],
		Author:      doc.Author,
		Company:     doc.Company,
		ContentHTML: template.HTML(TextToHTML(doc.Content)),
		UpdatedAt:   doc.UpdatedAt,
	}
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const documentHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    @page { size: A4; margin: 18mm; }
    body { font-family: "Helvetica Neue", Arial, sans-serif; line-height: 1.5; color: #1f2933; }
    header { border-bottom: 2px solid #1f2933; margin-bottom: 1.5rem; }
    h1 { margin: 0 0 0.25rem; font-size: 1.6rem; }
    .meta { color: #52606d; font-size: 0.85em; margin-bottom: 0.5rem; }
    ul { padding-left: 1.2rem; }
  </style>
</head>
<body class="{{.KindLabel | lower}}">
  <header>
    <h1>{{.Title}}</h1>
    <div class="meta">{{if .KindLabel}}{{.KindLabel}}{{end}}{{if .Company}} | {{.Company}}{{end}}{{if .Author}} | {{.Author}}{{end}}{{if not .UpdatedAt.IsZero}} | {{formatDate .UpdatedAt "Jan 2, 2006"}}{{end}}</div>
  </header>
  <main>{{.ContentHTML}}</main>
</body>
</html>`
