package notifier

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"net/textproto"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	emailChannelName = "email"

	DefaultEmailSubject   = "New Low Price Flight!"
	defaultConnectTimeout = 2 * time.Second
	defaultSessionTimeout = 30 * time.Second
	smtpLocalName         = "localhost"
)

// DialFunc opens the transport connection to the mail server.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
	Subject  string
	// Passengers is used for the booking link when the request has none.
	Passengers int
	BookingURL string
	// ConnectTimeout bounds dialing and the server greeting.
	ConnectTimeout time.Duration
	// SessionTimeout bounds everything after the greeting.
	SessionTimeout time.Duration
	TLSConfig      *tls.Config
	Dial           DialFunc
}

// EmailChannel mails the alert text and a booking link over SMTP with
// STARTTLS. Each Send opens and closes its own connection.
type EmailChannel struct {
	cfg EmailConfig
}

func NewEmailChannel(cfg EmailConfig) *EmailChannel {
	if strings.TrimSpace(cfg.Subject) == "" {
		cfg.Subject = DefaultEmailSubject
	}
	if cfg.Passengers <= 0 {
		cfg.Passengers = 1
	}
	if strings.TrimSpace(cfg.BookingURL) == "" {
		cfg.BookingURL = DefaultBookingURL
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = defaultSessionTimeout
	}
	if cfg.Dial == nil {
		d := &net.Dialer{}
		cfg.Dial = d.DialContext
	}
	return &EmailChannel{cfg: cfg}
}

func (c *EmailChannel) Name() string { return emailChannelName }

func (c *EmailChannel) Send(ctx context.Context, req Request) error {
	text, err := FormatMessage(req.Offer)
	if err != nil {
		return sendError(emailChannelName, kindOf(err), err)
	}
	link, err := BookingLink(c.cfg.BookingURL, req.Offer, req.passengers(c.cfg.Passengers))
	if err != nil {
		return sendError(emailChannelName, kindOf(err), err)
	}
	if strings.TrimSpace(c.cfg.Host) == "" {
		return sendError(emailChannelName, ErrTransport, fmt.Errorf("smtp host not configured"))
	}
	if strings.TrimSpace(c.cfg.From) == "" || strings.TrimSpace(c.cfg.To) == "" {
		return sendError(emailChannelName, ErrDeliveryRejected, fmt.Errorf("sender and recipient address are required"))
	}
	return c.deliver(ctx, composeEmail(c.cfg.Subject, text, link))
}

// deliver runs one SMTP session. conn is closed on every return path, and
// also as soon as ctx is done so no exchange outlives the caller.
func (c *EmailChannel) deliver(ctx context.Context, msg string) error {
	addr := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()
	conn, err := c.cfg.Dial(dialCtx, "tcp", addr)
	if err != nil {
		return c.transportErr(ctx, fmt.Errorf("dial %s: %w", addr, err))
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := conn.SetDeadline(deadline(ctx, c.cfg.ConnectTimeout)); err != nil {
		return c.transportErr(ctx, err)
	}
	client, err := smtp.NewClient(conn, c.cfg.Host)
	if err != nil {
		return c.transportErr(ctx, fmt.Errorf("smtp greeting: %w", err))
	}
	defer client.Close()

	if err := conn.SetDeadline(deadline(ctx, c.cfg.SessionTimeout)); err != nil {
		return c.transportErr(ctx, err)
	}
	if err := client.Hello(smtpLocalName); err != nil {
		return c.transportErr(ctx, fmt.Errorf("smtp ehlo: %w", err))
	}
	if ok, _ := client.Extension("STARTTLS"); !ok {
		return c.transportErr(ctx, fmt.Errorf("smtp server %s does not offer STARTTLS", addr))
	}
	if err := client.StartTLS(c.tlsConfig()); err != nil {
		return c.transportErr(ctx, fmt.Errorf("smtp starttls: %w", err))
	}
	if c.cfg.Username != "" {
		auth := smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)
		if err := client.Auth(auth); err != nil {
			if isNetworkErr(err) {
				return c.transportErr(ctx, fmt.Errorf("smtp auth: %w", err))
			}
			return sendError(emailChannelName, ErrAuth, err)
		}
	}
	if err := c.transmit(client, msg); err != nil {
		if isNetworkErr(err) || ctx.Err() != nil {
			return c.transportErr(ctx, err)
		}
		return sendError(emailChannelName, ErrDeliveryRejected, err)
	}
	// The message is already accepted at this point.
	_ = client.Quit()
	return nil
}

func (c *EmailChannel) transmit(client *smtp.Client, msg string) error {
	if err := client.Mail(c.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(c.cfg.To); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := io.WriteString(w, msg); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data end: %w", err)
	}
	return nil
}

func (c *EmailChannel) tlsConfig() *tls.Config {
	var cfg *tls.Config
	if c.cfg.TLSConfig != nil {
		cfg = c.cfg.TLSConfig.Clone()
	} else {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = c.cfg.Host
	}
	return cfg
}

func (c *EmailChannel) transportErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w: %v", ctxErr, err)
	}
	return sendError(emailChannelName, ErrTransport, err)
}

func composeEmail(subject, body, link string) string {
	subject = strings.NewReplacer("\r", " ", "\n", " ").Replace(subject)
	var b strings.Builder
	b.WriteString("Subject: ")
	b.WriteString(subject)
	b.WriteString("\r\n\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	b.WriteString(link)
	b.WriteString("\r\n")
	return b.String()
}

func deadline(ctx context.Context, d time.Duration) time.Time {
	at := time.Now().Add(d)
	if ctxAt, ok := ctx.Deadline(); ok && ctxAt.Before(at) {
		return ctxAt
	}
	return at
}

// isNetworkErr separates broken connections from SMTP replies.
func isNetworkErr(err error) bool {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrDeadlineExceeded)
}
