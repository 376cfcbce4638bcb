package utils

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer envoie les e-mails HTML. Sans hôte SMTP, les messages sont seulement journalisés.
type Mailer struct {
	cfg SMTPConfig
	log *zap.Logger
}

func NewMailer(cfg SMTPConfig, log *zap.Logger) *Mailer {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Mailer{cfg: cfg, log: log.Named("mail")}
}

func (m *Mailer) Enabled() bool {
	return m.cfg.Host != ""
}

func (m *Mailer) newMessage(to, subject, htmlBody string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("expéditeur invalide: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("destinataire invalide: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)
	return msg, nil
}

func (m *Mailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg, err := m.newMessage(to, subject, htmlBody)
	if err != nil {
		return err
	}
	if !m.Enabled() {
		m.log.Info("📭 SMTP non configuré, e-mail non envoyé", zap.String("to", to), zap.String("subject", subject))
		return nil
	}

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}

	m.log.Info("📤 Envoi de l'e-mail", zap.String("to", to), zap.String("subject", subject))
	return client.DialAndSendWithContext(ctx, msg)
}
