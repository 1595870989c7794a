// Package mail delivers verification-code and welcome emails. Bodies are
// rendered from embedded html/template files; delivery goes through SMTP
// (go-mail) or, in development, a log-only sender.
package mail

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// ErrNotConfigured is returned by senders missing credentials.
var ErrNotConfigured = errors.New("mail: sender is not configured")

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// CodeData feeds the verification-code template.
type CodeData struct {
	To        string
	Name      string
	Code      string
	ExpiresAt time.Time
	TTL       time.Duration
}

// CodeEmail renders the verification-code message.
func CodeEmail(d CodeData) (Message, error) {
	view := struct {
		To, Name, Code, ExpiresAt string
		TTLMinutes                int
	}{
		To:         d.To,
		Name:       d.Name,
		Code:       d.Code,
		ExpiresAt:  d.ExpiresAt.UTC().Format("15:04 UTC"),
		TTLMinutes: int(d.TTL / time.Minute),
	}
	html, err := render("code.html", view)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      d.To,
		Subject: "Código de verificación",
		HTML:    html,
		Text:    fmt.Sprintf("Tu código de verificación es %s. Vence a las %s.", d.Code, view.ExpiresAt),
	}, nil
}

// WelcomeData feeds the welcome template.
type WelcomeData struct {
	To           string
	Name         string
	TempPassword string
	LoginURL     string
}

// WelcomeEmail renders the account-created message.
func WelcomeEmail(d WelcomeData) (Message, error) {
	html, err := render("welcome.html", d)
	if err != nil {
		return Message{}, err
	}
	text := fmt.Sprintf("Se creó una cuenta para %s. Contraseña temporal: %s", d.To, d.TempPassword)
	if d.LoginURL != "" {
		text += "\n" + d.LoginURL
	}
	return Message{
		To:      d.To,
		Subject: "Bienvenido al sistema",
		HTML:    html,
		Text:    text,
	}, nil
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("mail: render %s: %w", name, err)
	}
	return buf.String(), nil
}

// redact keeps the first character of the local part.
func redact(addr string) string {
	local, domain, ok := strings.Cut(addr, "@")
	if !ok || local == "" {
		return "***"
	}
	return local[:1] + "***@" + domain
}
