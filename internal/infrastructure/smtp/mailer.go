package smtp

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/prompt-courier/internal/config"
	"github.com/prompt-courier/internal/domain"
)

// Gateway delivers prompts by email. The channel identity is the recipient
// address.
type Gateway struct {
	host     string
	port     string
	from     string
	username string
	password string
}

func NewGateway(cfg *config.Config) *Gateway {
	return &Gateway{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

func (g *Gateway) Type() string { return domain.ChannelEmail }

// Escape is the identity: the prompt goes out as a plain-text body.
func (g *Gateway) Escape(s string) string { return s }

func (g *Gateway) Send(_ context.Context, cfg *domain.DeliveryConfig, text string) error {
	if cfg.ChatID == "" {
		return fmt.Errorf("no email address on config: %w", domain.ErrBadRequest)
	}
	return g.sendEmail(cfg.ChatID, "Your daily prompt", text)
}

func (g *Gateway) sendEmail(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", g.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", g.host, g.port)

	var auth smtp.Auth
	if g.username != "" {
		auth = smtp.PlainAuth("", g.username, g.password, g.host)
	}

	return smtp.SendMail(addr, auth, g.from, []string{to}, []byte(msg))
}
