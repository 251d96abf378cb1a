package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var transcriptTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
	}

	templateContent, err := templateFS.ReadFile("templates/transcript.html")
	if err != nil {
		// Fallback to built-in template if file not found
		transcriptTemplate = template.Must(template.New("transcript").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	transcriptTemplate = template.Must(template.New("transcript").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for transcript template rendering
type TemplateData struct {
	SessionID  string
	ExportedAt time.Time
	Turns      []TemplateTurn
}

// TemplateTurn holds one turn for the template
type TemplateTurn struct {
	Sender    string
	Text      string
	CreatedAt time.Time
}

// RenderTranscriptHTML renders the transcript template with provided data
func RenderTranscriptHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := transcriptTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Conversation {{.SessionID}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .turn { padding: 1rem; margin: 1rem 0; border-left: 3px solid #333; white-space: pre-wrap; }
    .turn.assistant { background: #f5f5f5; }
    .sender { font-weight: bold; margin-bottom: 0.25rem; }
  </style>
</head>
<body>
  <h1>Conversation</h1>
  <div class="meta">Session {{.SessionID}} | exported {{formatDate .ExportedAt "Jan 2, 2006 15:04"}}</div>
  {{range .Turns}}<div class="turn {{lower .Sender}}">
    <div class="sender">{{.Sender}}</div>
    <div>{{.Text}}</div>
  </div>{{end}}
</body>
</html>`
