package notify

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Email is a rendered notification.
type Email struct {
	Subject string
	Text    string
	HTML    string
}

// Renderer writes notification bodies as Markdown and converts them to
// sanitized HTML for the alternative part.
type Renderer struct {
	baseURL string
	md      goldmark.Markdown
	policy  *bluemonday.Policy
}

// NewRenderer creates a renderer linking to the tracking page at baseURL.
func NewRenderer(baseURL string) *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.Linkify),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)
	return &Renderer{
		baseURL: baseURL,
		md:      md,
		policy:  bluemonday.UGCPolicy(),
	}
}

// Confirmation renders the "request received" email.
func (r *Renderer) Confirmation(token string) (Email, error) {
	link := TrackingLink(r.baseURL, token)
	body := fmt.Sprintf(`## Support Request Received

Hello,

Thank you for reaching out. We have received your request and a draft ticket has been created for review by our team.

You can track the progress of your request here: [Track Request Status](%s)

Or copy this link: %s

---

_This is an automated message, please do not reply._
`, link, link)
	return r.build("Support Request Received", body)
}

// StatusUpdate renders the "status changed" email.
func (r *Renderer) StatusUpdate(title, status, token string) (Email, error) {
	link := TrackingLink(r.baseURL, token)
	body := fmt.Sprintf(`## Ticket Status Updated

Hello,

The status of your ticket **"%s"** has been updated to: **%s**

View more details here: [View Ticket](%s)

---

_This is an automated message, please do not reply._
`, escapeMarkdown(title), escapeMarkdown(status), link)
	return r.build("Status Update: "+singleLine(title), body)
}

func (r *Renderer) build(subject, markdown string) (Email, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return Email{}, fmt.Errorf("render markdown: %w", err)
	}
	return Email{
		Subject: subject,
		Text:    markdown,
		HTML:    r.policy.Sanitize(buf.String()),
	}, nil
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`, "`", "\\`", "#", `\#`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(singleLine(s))
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
