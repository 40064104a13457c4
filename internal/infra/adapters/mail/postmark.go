package mail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"

	"netaccess-billing/internal/config"
	"netaccess-billing/internal/domain/ports/adapter"
)

var _ adapter.Mailer = (*PostmarkMailer)(nil)

// postmarkSender is the part of *postmark.Client the mailer uses.
type postmarkSender interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

type PostmarkMailer struct {
	client   postmarkSender
	renderer *Renderer
	from     string
	replyTo  string
}

func NewPostmarkMailer(cfg config.EmailConfig, renderer *Renderer) (*PostmarkMailer, error) {
	if cfg.ServerToken == "" || cfg.AccountToken == "" {
		return nil, fmt.Errorf("%w: postmark tokens are required", ErrInvalidConfig)
	}
	if cfg.Sender == "" {
		return nil, fmt.Errorf("%w: sender is required", ErrInvalidConfig)
	}
	return &PostmarkMailer{
		client:   postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		renderer: renderer,
		from:     cfg.Sender,
		replyTo:  cfg.Support,
	}, nil
}

func (p *PostmarkMailer) Send(ctx context.Context, m adapter.Mail) error {
	subject, body, err := p.renderer.Render(m)
	if err != nil {
		return err
	}
	email := postmark.Email{
		From:       p.from,
		ReplyTo:    p.replyTo,
		To:         m.Recipient,
		Subject:    subject,
		Tag:        m.Template,
		HTMLBody:   body,
		TrackOpens: true,
	}
	for _, a := range m.Attachments {
		email.Attachments = append(email.Attachments, postmark.Attachment{
			Name:        a.Name,
			Content:     base64.StdEncoding.EncodeToString(a.Content),
			ContentType: a.ContentType,
		})
	}

	resp, err := p.client.SendEmail(ctx, email)
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrFailedToSendEmail, fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}
