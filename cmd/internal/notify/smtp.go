package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	authapi "github.com/vashistbar27/Gudage-hospital/cmd/internal/auth/api"
)

const loginSubject = "New sign-in to your account"

// deliverFunc hands a fully composed message to the mail server.
type deliverFunc func(ctx context.Context, to string, msg []byte) error

// SMTPSender sends login notices as HTML email.
type SMTPSender struct {
	cfg       SMTPConfig
	templates *template.Template
	deliver   deliverFunc
}

// NewSMTPSender validates cfg and parses the email templates.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if !cfg.Enabled() {
		return nil, errors.New("notify: smtp host is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("notify: smtp from address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	tmpl, err := template.New("emails").Parse(loginTemplate)
	if err != nil {
		return nil, fmt.Errorf("notify: parse templates: %w", err)
	}

	s := &SMTPSender{cfg: cfg, templates: tmpl}
	s.deliver = s.send
	return s, nil
}

// NotifyLogin implements authapi.LoginNotifier.
func (s *SMTPSender) NotifyLogin(ctx context.Context, n authapi.LoginNotice) error {
	to := strings.TrimSpace(n.Email)
	if to == "" {
		return errors.New("notify: recipient is empty")
	}
	if strings.ContainsAny(to, "\r\n") {
		return errors.New("notify: invalid recipient")
	}

	data := loginData{
		AppName:   s.cfg.FromName,
		Name:      n.Name,
		At:        n.At.UTC().Format(time.RFC1123),
		UserAgent: n.UserAgent,
	}
	if n.IP != nil {
		data.IP = n.IP.String()
	}

	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, "login", data); err != nil {
		return fmt.Errorf("notify: render login template: %w", err)
	}

	return s.deliver(ctx, to, s.compose(to, loginSubject, body.String()))
}

func (s *SMTPSender) compose(to, subject, body string) []byte {
	from := s.cfg.From
	if s.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", s.cfg.FromName), s.cfg.From)
	}

	var msg strings.Builder
	msg.WriteString("From: " + from + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return []byte(msg.String())
}

func (s *SMTPSender) send(ctx context.Context, to string, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	host := s.cfg.Host
	dialer := &net.Dialer{Timeout: s.cfg.Timeout, KeepAlive: 30 * time.Second}

	var conn net.Conn
	var err error
	if s.cfg.UseSSL {
		td := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}}
		conn, err = td.DialContext(ctx, "tcp", s.cfg.Addr())
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", s.cfg.Addr())
	}
	if err != nil {
		return fmt.Errorf("notify: dial %s: %w", s.cfg.Addr(), err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("notify: smtp client: %w", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.Hello("localhost"); err != nil {
		return fmt.Errorf("notify: hello: %w", err)
	}
	// Plaintext relays (MailHog, port 25) do not advertise STARTTLS.
	if ok, _ := c.Extension("STARTTLS"); ok && !s.cfg.UseSSL {
		if err := c.StartTLS(&tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("notify: starttls: %w", err)
		}
	}
	if s.cfg.Username != "" && s.cfg.Password != "" {
		if err := c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, host)); err != nil {
			return fmt.Errorf("notify: auth: %w", err)
		}
	}
	if err := c.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("notify: mail from: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("notify: rcpt: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("notify: data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("notify: write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("notify: close data: %w", err)
	}
	return c.Quit()
}
