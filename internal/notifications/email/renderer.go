package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"

	"alertsystem/internal/notifications/webhook"
	"alertsystem/internal/types"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

// RenderedEmail holds the pre-rendered email content ready for transmission.
type RenderedEmail struct {
	Subject  string
	BodyHTML string
	BodyText string
}

type templateData struct {
	Subject  string
	Severity string
	Header   string
	Body     string
	LinkURL  string
	LinkText string
	Tags     string
	Color    string
	FromName string
}

// Renderer renders notifications client-side from the embedded templates.
type Renderer struct {
	html     *template.Template
	text     *texttemplate.Template
	fromName string
}

// NewRenderer parses the embedded templates.
func NewRenderer(fromName string) (*Renderer, error) {
	htmlTmpl, err := template.ParseFS(templateFS, "templates/alert.html")
	if err != nil {
		return nil, fmt.Errorf("renderer: failed to parse alert.html: %w", err)
	}
	txtTmpl, err := texttemplate.ParseFS(templateFS, "templates/alert.txt")
	if err != nil {
		return nil, fmt.Errorf("renderer: failed to parse alert.txt: %w", err)
	}
	if fromName == "" {
		fromName = "Alert System"
	}
	return &Renderer{html: htmlTmpl, text: txtTmpl, fromName: fromName}, nil
}

// Subject is "[SEVERITY] header", flattened to one line.
func Subject(n types.Notification) string {
	header := strings.Join(strings.Fields(n.Header()), " ")
	return fmt.Sprintf("[%s] %s", n.Severity(), header)
}

// Render produces the subject and both bodies for n.
func (r *Renderer) Render(n types.Notification) (RenderedEmail, error) {
	data := templateData{
		Subject:  Subject(n),
		Severity: n.Severity().String(),
		Header:   n.Header(),
		Body:     n.Body(),
		Tags:     strings.Join(n.Tags(), ", "),
		Color:    webhook.SeverityHexColor(n.Severity()),
		FromName: r.fromName,
	}
	if link, ok := n.Link(); ok {
		data.LinkURL = link.URL
		data.LinkText = link.Text
		if data.LinkText == "" {
			data.LinkText = "Open"
		}
	}

	var htmlBuf, txtBuf bytes.Buffer
	if err := r.html.Execute(&htmlBuf, data); err != nil {
		return RenderedEmail{}, fmt.Errorf("renderer: failed to render HTML: %w", err)
	}
	if err := r.text.Execute(&txtBuf, data); err != nil {
		return RenderedEmail{}, fmt.Errorf("renderer: failed to render text: %w", err)
	}

	return RenderedEmail{
		Subject:  data.Subject,
		BodyHTML: htmlBuf.String(),
		BodyText: txtBuf.String(),
	}, nil
}
