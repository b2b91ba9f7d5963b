package smtp

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"time"

	"github.com/magabrotheeeer/gym-management/internal/config"
	"github.com/magabrotheeeer/gym-management/internal/lib/sl"
)

const dialTimeout = 10 * time.Second

// Transport устанавливает STARTTLS-соединение с почтовым сервером
// и авторизуется по PLAIN.
type Transport struct {
	cfg     config.SMTP
	log     *slog.Logger
	timeout time.Duration
}

// NewTransport создает новый экземпляр Transport.
func NewTransport(cfg config.SMTP, log *slog.Logger) *Transport {
	return &Transport{cfg: cfg, log: log, timeout: dialTimeout}
}

// Connect открывает сессию: TCP, приветствие, STARTTLS, AUTH PLAIN.
// При ошибке на любом шаге соединение закрывается.
func (t *Transport) Connect() (Client, error) {
	const op = "smtp.Connect"
	if t.cfg.SMTPHost == "" {
		return nil, fmt.Errorf("%s: smtp host is not configured", op)
	}
	log := t.log.With(slog.String("op", op), slog.String("host", t.cfg.SMTPHost))
	addr := net.JoinHostPort(t.cfg.SMTPHost, t.cfg.SMTPPort)

	conn, err := net.DialTimeout("tcp", addr, t.timeout)
	if err != nil {
		log.Error("failed to dial SMTP server", sl.Err(err))
		return nil, fmt.Errorf("%s: dial: %w", op, err)
	}

	client, err := smtp.NewClient(conn, t.cfg.SMTPHost)
	if err != nil {
		log.Error("failed to create SMTP client", sl.Err(err))
		_ = conn.Close()
		return nil, fmt.Errorf("%s: new client: %w", op, err)
	}

	abort := func(step string, err error) (Client, error) {
		log.Error("smtp session setup failed", slog.String("step", step), sl.Err(err))
		if closeErr := client.Close(); closeErr != nil {
			log.Error("failed to close client", sl.Err(closeErr))
		}
		return nil, fmt.Errorf("%s: %s: %w", op, step, err)
	}

	if ok, _ := client.Extension("STARTTLS"); !ok {
		return abort("starttls", fmt.Errorf("server does not support STARTTLS"))
	}
	tlsConfig := &tls.Config{
		ServerName: t.cfg.SMTPHost,
		MinVersion: tls.VersionTLS12,
	}
	if err := client.StartTLS(tlsConfig); err != nil {
		return abort("starttls", err)
	}
	if err := client.Auth(smtp.PlainAuth("", t.cfg.SMTPUser, t.cfg.SMTPPass, t.cfg.SMTPHost)); err != nil {
		return abort("auth", err)
	}
	return client, nil
}

// GetSMTPUser адрес отправителя, он же логин на сервере.
func (t *Transport) GetSMTPUser() string {
	return t.cfg.SMTPUser
}
