package smtp

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/meninadourada/storefront/internal/notification/domain"
)

type Config struct {
	Addr     string
	Username string
	Password string
	From     string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Mailer struct {
	cfg  Config
	auth smtp.Auth
	send sendFunc
	now  func() time.Time
}

// NewMailer uses PLAIN auth when a username is configured.
func NewMailer(cfg Config) *Mailer {
	m := &Mailer{cfg: cfg, send: smtp.SendMail, now: time.Now}
	if cfg.Username != "" {
		host, _, err := net.SplitHostPort(cfg.Addr)
		if err != nil {
			host = cfg.Addr
		}
		m.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, host)
	}
	return m
}

// Send delivers msg. net/smtp has no context support, so ctx is only checked
// before dialing.
func (m *Mailer) Send(ctx context.Context, msg domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.send(m.cfg.Addr, m.auth, m.cfg.From, msg.To, m.compose(msg)); err != nil {
		return fmt.Errorf("smtp %s: %w", m.cfg.Addr, err)
	}
	return nil
}

func (m *Mailer) compose(msg domain.Message) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", m.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return b.Bytes()
}
