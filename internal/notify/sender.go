package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/ceivoice/ticket-service/internal/config"
)

// SMTPSender delivers notifications over SMTP.
type SMTPSender struct {
	from     string
	dialer   *gomail.Dialer
	renderer *Renderer
}

// NewSMTPSender builds a sender from notification settings.
func NewSMTPSender(cfg config.NotificationConfig, renderer *Renderer) *SMTPSender {
	return &SMTPSender{
		from:     cfg.EmailFrom,
		dialer:   gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		renderer: renderer,
	}
}

func (s *SMTPSender) SendConfirmation(ctx context.Context, email, trackingToken string) error {
	rendered, err := s.renderer.Confirmation(trackingToken)
	if err != nil {
		return err
	}
	return s.send(ctx, email, rendered)
}

func (s *SMTPSender) SendStatusUpdate(ctx context.Context, email, ticketTitle, status, trackingToken string) error {
	rendered, err := s.renderer.StatusUpdate(ticketTitle, status, trackingToken)
	if err != nil {
		return err
	}
	return s.send(ctx, email, rendered)
}

func (s *SMTPSender) send(ctx context.Context, to string, rendered Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, "CEiVoice Support")
	m.SetHeader("To", to)
	m.SetHeader("Subject", rendered.Subject)
	m.SetBody("text/plain", rendered.Text)
	m.AddAlternative("text/html", rendered.HTML)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// LogSender writes notifications to the log instead of sending them. It is
// used when SMTP is not configured.
type LogSender struct {
	logger   *zap.Logger
	renderer *Renderer
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *zap.Logger, renderer *Renderer) *LogSender {
	return &LogSender{logger: logger, renderer: renderer}
}

func (s *LogSender) SendConfirmation(_ context.Context, email, trackingToken string) error {
	rendered, err := s.renderer.Confirmation(trackingToken)
	if err != nil {
		return err
	}
	s.logger.Info("SMTP not configured, skipping email",
		zap.String("to", email),
		zap.String("subject", rendered.Subject),
		zap.String("tracking_token", trackingToken))
	return nil
}

func (s *LogSender) SendStatusUpdate(_ context.Context, email, ticketTitle, status, trackingToken string) error {
	rendered, err := s.renderer.StatusUpdate(ticketTitle, status, trackingToken)
	if err != nil {
		return err
	}
	s.logger.Info("SMTP not configured, skipping status update email",
		zap.String("to", email),
		zap.String("subject", rendered.Subject),
		zap.String("status", status),
		zap.String("tracking_token", trackingToken))
	return nil
}
