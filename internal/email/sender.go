// Package email delivers transactional mail through the Mailgun HTTP API.
// Templates are embedded HTML rendered with html/template.
package email

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

const defaultBaseURL = "https://api.mailgun.net"

// ErrNotConfigured is returned when the sender is used without credentials.
var ErrNotConfigured = errors.New("email: sender is not configured")

// Sender dispatches a templated email. auth.Mailer is satisfied by any
// implementation.
type Sender interface {
	Send(ctx context.Context, to, subject, templateName string, data map[string]any) error
}

// Mailgun sends mail via Mailgun's messages endpoint. Construct it explicitly
// at composition time; a missing API key or domain is a construction error,
// not a runtime surprise.
type Mailgun struct {
	apiKey    string
	domain    string
	from      string
	baseURL   string
	client    *http.Client
	templates *template.Template
}

// MailgunOption configures the Mailgun sender.
type MailgunOption func(*Mailgun)

// WithBaseURL overrides the API endpoint (EU region, tests).
func WithBaseURL(raw string) MailgunOption {
	return func(m *Mailgun) {
		if s := strings.TrimRight(strings.TrimSpace(raw), "/"); s != "" {
			m.baseURL = s
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) MailgunOption {
	return func(m *Mailgun) {
		if c != nil {
			m.client = c
		}
	}
}

// WithFrom overrides the From header.
func WithFrom(from string) MailgunOption {
	return func(m *Mailgun) {
		if s := strings.TrimSpace(from); s != "" {
			m.from = s
		}
	}
}

// NewMailgun constructs the sender. Both apiKey and domain are required.
func NewMailgun(apiKey, domain string, opts ...MailgunOption) (*Mailgun, error) {
	apiKey = strings.TrimSpace(apiKey)
	domain = strings.TrimSpace(domain)
	if apiKey == "" || domain == "" {
		return nil, ErrNotConfigured
	}

	tpls, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("email: parse templates: %w", err)
	}

	m := &Mailgun{
		apiKey:    apiKey,
		domain:    domain,
		from:      fmt.Sprintf("Core MD <mailgun@%s>", domain),
		baseURL:   defaultBaseURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		templates: tpls,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Send renders the named template and posts the message. Any transport or
// API failure propagates to the caller.
func (m *Mailgun) Send(ctx context.Context, to, subject, templateName string, data map[string]any) error {
	if m == nil {
		return ErrNotConfigured
	}
	to = strings.TrimSpace(to)
	if to == "" || strings.TrimSpace(subject) == "" || strings.TrimSpace(templateName) == "" {
		return errors.New("email: to, subject and template are required")
	}

	var body bytes.Buffer
	if err := m.templates.ExecuteTemplate(&body, templateName+".html", data); err != nil {
		return fmt.Errorf("email: render template %s: %w", templateName, err)
	}

	form := url.Values{}
	form.Set("from", m.from)
	form.Set("to", to)
	form.Set("subject", subject)
	form.Set("html", body.String())

	endpoint := fmt.Sprintf("%s/v3/%s/messages", m.baseURL, m.domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("api", m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("email: send to mailgun: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email: mailgun responded %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
