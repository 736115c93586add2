package notifier

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/a7exd/cheap-flights-finder/internal/flight"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

// fakeSMTP accepts a single session and records what the client sent.
type fakeSMTP struct {
	ln       net.Listener
	tlsCfg   *tls.Config
	noTLS    bool
	authCode int
	rcptCode int
	done     chan struct{}

	mu       sync.Mutex
	upgraded bool
	authed   bool
	mailFrom string
	rcptTo   string
	body     string
}

func startFakeSMTP(t *testing.T, opt func(*fakeSMTP)) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &fakeSMTP{
		ln:       ln,
		tlsCfg:   &tls.Config{Certificates: []tls.Certificate{selfSignedCert(t)}},
		authCode: 235,
		rcptCode: 250,
		done:     make(chan struct{}),
	}
	if opt != nil {
		opt(s)
	}
	go s.acceptOnce()
	t.Cleanup(func() { _ = ln.Close() })
	return s
}

func (s *fakeSMTP) port() int { return s.ln.Addr().(*net.TCPAddr).Port }

func (s *fakeSMTP) wait(t *testing.T) {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(5 * time.Second):
		t.Fatal("smtp session did not finish")
	}
}

func (s *fakeSMTP) acceptOnce() {
	defer close(s.done)
	conn, err := s.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	s.serve(conn)
}

func (s *fakeSMTP) serve(conn net.Conn) {
	tp := textproto.NewConn(conn)
	upgraded := false
	_ = tp.PrintfLine("220 fake.test ESMTP")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		verb, arg, _ := strings.Cut(line, " ")
		switch strings.ToUpper(verb) {
		case "EHLO", "HELO":
			_ = tp.PrintfLine("250-fake.test")
			if upgraded || s.noTLS {
				_ = tp.PrintfLine("250 AUTH PLAIN")
			} else {
				_ = tp.PrintfLine("250 STARTTLS")
			}
		case "STARTTLS":
			_ = tp.PrintfLine("220 ready")
			tlsConn := tls.Server(conn, s.tlsCfg)
			if err := tlsConn.Handshake(); err != nil {
				return
			}
			tp = textproto.NewConn(tlsConn)
			upgraded = true
			s.mu.Lock()
			s.upgraded = true
			s.mu.Unlock()
		case "AUTH":
			if s.authCode != 235 {
				_ = tp.PrintfLine("%d bad credentials", s.authCode)
				continue
			}
			s.mu.Lock()
			s.authed = true
			s.mu.Unlock()
			_ = tp.PrintfLine("235 ok")
		case "*":
			_ = tp.PrintfLine("501 auth aborted")
		case "MAIL":
			s.mu.Lock()
			s.mailFrom = arg
			s.mu.Unlock()
			_ = tp.PrintfLine("250 ok")
		case "RCPT":
			s.mu.Lock()
			s.rcptTo = arg
			s.mu.Unlock()
			_ = tp.PrintfLine("%d rcpt", s.rcptCode)
		case "DATA":
			_ = tp.PrintfLine("354 go ahead")
			lines, err := tp.ReadDotLines()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.body = strings.Join(lines, "\n")
			s.mu.Unlock()
			_ = tp.PrintfLine("250 queued")
		case "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("502 unknown command")
		}
	}
}

type trackedConn struct {
	net.Conn
	closed atomic.Bool
}

func (c *trackedConn) Close() error {
	c.closed.Store(true)
	return c.Conn.Close()
}

type trackingDialer struct {
	mu    sync.Mutex
	conns []*trackedConn
}

func (d *trackingDialer) dial(ctx context.Context, network, addr string) (net.Conn, error) {
	var nd net.Dialer
	conn, err := nd.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	tc := &trackedConn{Conn: conn}
	d.mu.Lock()
	d.conns = append(d.conns, tc)
	d.mu.Unlock()
	return tc, nil
}

func (d *trackingDialer) allClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return false
	}
	for _, c := range d.conns {
		if !c.closed.Load() {
			return false
		}
	}
	return true
}

func testEmailConfig(port int, dial DialFunc) EmailConfig {
	return EmailConfig{
		Host:      "127.0.0.1",
		Port:      port,
		Username:  "bot",
		Password:  "pw",
		From:      "bot@example.test",
		To:        "me@example.test",
		TLSConfig: &tls.Config{InsecureSkipVerify: true},
		Dial:      dial,
	}
}

func TestEmailChannelSend(t *testing.T) {
	srv := startFakeSMTP(t, nil)
	dialer := &trackingDialer{}
	ch := NewEmailChannel(testEmailConfig(srv.port(), dialer.dial))

	err := ch.Send(context.Background(), Request{Offer: sampleOffer(), Passengers: 2})
	require.NoError(t, err)
	srv.wait(t)

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.True(t, srv.upgraded)
	assert.True(t, srv.authed)
	assert.Equal(t, "FROM:<bot@example.test>", srv.mailFrom)
	assert.Equal(t, "TO:<me@example.test>", srv.rcptTo)
	assert.Equal(t, strings.Join([]string{
		"Subject: New Low Price Flight!",
		"",
		"Cheap flight! Only $199 to fly from NYC-JFK to LON-LHR, from 2024-03-15 to 2024-03-22.",
		"https://www.aviasales.com/search/JFK1503LHR22032",
	}, "\n"), srv.body)
	assert.True(t, dialer.allClosed())
	assert.Equal(t, "email", ch.Name())
}

func TestEmailChannelDefaultPassengers(t *testing.T) {
	srv := startFakeSMTP(t, nil)
	dialer := &trackingDialer{}
	ch := NewEmailChannel(testEmailConfig(srv.port(), dialer.dial))

	require.NoError(t, ch.Send(context.Background(), Request{Offer: sampleOffer()}))
	srv.wait(t)

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.True(t, strings.HasSuffix(srv.body, "JFK1503LHR22031"), srv.body)
}

func TestEmailChannelAuthFailure(t *testing.T) {
	srv := startFakeSMTP(t, func(s *fakeSMTP) { s.authCode = 535 })
	dialer := &trackingDialer{}
	ch := NewEmailChannel(testEmailConfig(srv.port(), dialer.dial))

	res := Deliver(context.Background(), ch, Request{Offer: sampleOffer()})
	assert.Equal(t, StatusFailure, res.Status)
	assert.ErrorIs(t, res.Err, ErrAuth)
	srv.wait(t)
	assert.True(t, dialer.allClosed())
}

func TestEmailChannelRecipientRejected(t *testing.T) {
	srv := startFakeSMTP(t, func(s *fakeSMTP) { s.rcptCode = 550 })
	dialer := &trackingDialer{}
	ch := NewEmailChannel(testEmailConfig(srv.port(), dialer.dial))

	err := ch.Send(context.Background(), Request{Offer: sampleOffer()})
	assert.ErrorIs(t, err, ErrDeliveryRejected)
	srv.wait(t)
	assert.True(t, dialer.allClosed())
}

func TestEmailChannelRequiresStartTLS(t *testing.T) {
	srv := startFakeSMTP(t, func(s *fakeSMTP) { s.noTLS = true })
	dialer := &trackingDialer{}
	ch := NewEmailChannel(testEmailConfig(srv.port(), dialer.dial))

	err := ch.Send(context.Background(), Request{Offer: sampleOffer()})
	assert.ErrorIs(t, err, ErrTransport)
	srv.wait(t)
	assert.True(t, dialer.allClosed())

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.False(t, srv.authed)
	assert.Empty(t, srv.body)
}

func TestEmailChannelGreetingTimeoutReleasesConn(t *testing.T) {
	client, server := net.Pipe()
	t.Cleanup(func() { _ = server.Close() })
	tracked := &trackedConn{Conn: client}

	cfg := testEmailConfig(587, func(context.Context, string, string) (net.Conn, error) { return tracked, nil })
	cfg.ConnectTimeout = 50 * time.Millisecond
	ch := NewEmailChannel(cfg)

	start := time.Now()
	res := Deliver(context.Background(), ch, Request{Offer: sampleOffer()})
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StatusFailure, res.Status)
	assert.ErrorIs(t, res.Err, ErrTransport)
	assert.True(t, tracked.closed.Load())
}

func TestEmailChannelDialTimeout(t *testing.T) {
	cfg := testEmailConfig(587, func(ctx context.Context, _, _ string) (net.Conn, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	cfg.ConnectTimeout = 50 * time.Millisecond

	start := time.Now()
	err := NewEmailChannel(cfg).Send(context.Background(), Request{Offer: sampleOffer()})
	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEmailChannelCallerCancelReleasesConn(t *testing.T) {
	client, server := net.Pipe()
	t.Cleanup(func() { _ = server.Close() })
	tracked := &trackedConn{Conn: client}

	cfg := testEmailConfig(587, func(context.Context, string, string) (net.Conn, error) { return tracked, nil })
	cfg.ConnectTimeout = 10 * time.Second
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	err := NewEmailChannel(cfg).Send(ctx, Request{Offer: sampleOffer()})
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, tracked.closed.Load())
}

func TestEmailChannelMalformedOfferDoesNotDial(t *testing.T) {
	var dialed atomic.Bool
	cfg := testEmailConfig(587, func(context.Context, string, string) (net.Conn, error) {
		dialed.Store(true)
		return nil, net.ErrClosed
	})
	offer := sampleOffer()
	offer.Price = decimal.NullDecimal{}

	err := NewEmailChannel(cfg).Send(context.Background(), Request{Offer: offer})
	assert.ErrorIs(t, err, flight.ErrMalformedOffer)
	assert.False(t, dialed.Load())
}

func TestEmailChannelDefaults(t *testing.T) {
	ch := NewEmailChannel(EmailConfig{})
	assert.Equal(t, 2*time.Second, ch.cfg.ConnectTimeout)
	assert.Equal(t, DefaultEmailSubject, ch.cfg.Subject)
	assert.Equal(t, 1, ch.cfg.Passengers)
	assert.NotNil(t, ch.cfg.Dial)

	err := ch.Send(context.Background(), Request{Offer: sampleOffer()})
	assert.ErrorIs(t, err, ErrTransport)
}

func TestComposeEmail(t *testing.T) {
	msg := composeEmail("Deal\r\nBcc: x", "body", "https://l")
	assert.Equal(t, "Subject: Deal  Bcc: x\r\n\r\nbody\r\nhttps://l\r\n", msg)
}
