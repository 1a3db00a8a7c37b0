package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"github.com/sethvargo/go-retry"
)

// Client delivers one-time login codes through an SMTP relay with STARTTLS.
// Transient relay failures are retried a couple of times with backoff; the
// final outcome is returned to the caller, which decides whether to surface
// or swallow it.
type Client struct {
	host     string
	port     int
	from     string
	password string
	baseURL  string

	dialTimeout time.Duration
	transport   func(ctx context.Context, to string, msg []byte) error
}

type Option func(*Client)

// WithTransport replaces the SMTP delivery function. Tests use this to
// capture messages without a relay.
func WithTransport(fn func(ctx context.Context, to string, msg []byte) error) Option {
	return func(c *Client) {
		c.transport = fn
	}
}

func NewClient(host string, port int, from, password, baseURL string, opts ...Option) *Client {
	c := &Client{
		host:        host,
		port:        port,
		from:        from,
		password:    password,
		baseURL:     baseURL,
		dialTimeout: 10 * time.Second,
	}
	c.transport = c.smtpSend
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the relay credentials are set.
func (c *Client) Configured() bool {
	return c.host != "" && c.from != ""
}

// Send mails the one-time code to the address. Up to two retries with
// exponential backoff before the delivery error is returned.
func (c *Client) Send(ctx context.Context, to, code string) error {
	if !c.Configured() {
		return fmt.Errorf("mail client not configured: missing SMTP host or sender")
	}

	msg := c.buildMessage(to, code)

	backoff := retry.WithMaxRetries(2, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.transport(ctx, to, msg); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

func (c *Client) buildMessage(to, code string) []byte {
	subject := "Your sign-in code"
	body := fmt.Sprintf("Your sign-in code is: %s\r\n\r\nOr open %s and enter it there.\r\n", code, c.baseURL)
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		c.from, to, subject, body)
	return []byte(msg)
}

// smtpSend speaks the wire protocol: dial, EHLO, STARTTLS, AUTH, send.
func (c *Client) smtpSend(ctx context.Context, to string, msg []byte) error {
	addr := net.JoinHostPort(c.host, fmt.Sprintf("%d", c.port))

	d := net.Dialer{Timeout: c.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial relay: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, c.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: c.host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	if c.password != "" {
		auth := smtp.PlainAuth("", c.from, c.password, c.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(c.from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}
	return client.Quit()
}
