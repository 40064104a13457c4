package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"netaccess-billing/internal/domain/ports/adapter"
)

var _ adapter.Mailer = (*DevMailer)(nil)

// DevMailer renders emails and stores them as HTML and JSON files in dir.
// With an empty dir it only logs them.
type DevMailer struct {
	dir      string
	renderer *Renderer
	log      *zerolog.Logger
}

func NewDevMailer(dir string, renderer *Renderer, logger *zerolog.Logger) *DevMailer {
	l := logger.With().Str("component", "dev_mailer").Logger()
	return &DevMailer{dir: dir, renderer: renderer, log: &l}
}

type devMetadata struct {
	Timestamp   string   `json:"timestamp"`
	SendTo      string   `json:"send_to"`
	Subject     string   `json:"subject"`
	Tag         string   `json:"tag"`
	Attachments []string `json:"attachments,omitempty"`
}

func (d *DevMailer) Send(ctx context.Context, m adapter.Mail) error {
	subject, body, err := d.renderer.Render(m)
	if err != nil {
		return err
	}
	if d.dir == "" {
		d.log.Info().Str("to", m.Recipient).Str("subject", subject).Str("tag", m.Template).Msg("email not sent (dev)")
		return nil
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("%w: failed to create directory: %v", ErrFailedToSendEmail, err)
	}

	now := time.Now()
	base := filepath.Join(d.dir, fmt.Sprintf("%s_%s", now.Format("2006_01_02_150405.000"), sanitizeFilename(m.Template)))
	if err := os.WriteFile(base+".html", []byte(body), 0o644); err != nil {
		return fmt.Errorf("%w: failed to write HTML file: %v", ErrFailedToSendEmail, err)
	}

	meta := devMetadata{Timestamp: now.Format(time.RFC3339), SendTo: m.Recipient, Subject: subject, Tag: m.Template}
	for _, a := range m.Attachments {
		meta.Attachments = append(meta.Attachments, a.Name)
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal metadata: %v", ErrFailedToSendEmail, err)
	}
	if err := os.WriteFile(base+".json", raw, 0o644); err != nil {
		return fmt.Errorf("%w: failed to write JSON file: %v", ErrFailedToSendEmail, err)
	}
	return nil
}

var sanitizeRegex = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

func sanitizeFilename(s string) string {
	s = sanitizeRegex.ReplaceAllString(strings.ReplaceAll(s, " ", "_"), "")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "email"
	}
	return strings.ToLower(s)
}
