package notifier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultTwilioURL     = "https://api.twilio.com"
	defaultTwilioTimeout = 15 * time.Second
	maxTwilioBody        = 64 << 10
)

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	BaseURL    string
	Timeout    time.Duration
}

// TwilioGateway talks to the Twilio Messages REST resource.
type TwilioGateway struct {
	AccountSID string
	AuthToken  string
	BaseURL    string
	Client     *http.Client
}

func NewTwilioGateway(cfg TwilioConfig) *TwilioGateway {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultTwilioURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTwilioTimeout
	}
	return &TwilioGateway{
		AccountSID: cfg.AccountSID,
		AuthToken:  cfg.AuthToken,
		BaseURL:    base,
		Client:     &http.Client{Timeout: timeout},
	}
}

// CreateMessage submits one message. The returned error wraps ErrAuth,
// ErrDeliveryRejected or ErrTransport.
func (g *TwilioGateway) CreateMessage(ctx context.Context, msg SMSMessage) (string, error) {
	if g.AccountSID == "" || g.AuthToken == "" {
		return "", fmt.Errorf("%w: twilio credentials are incomplete", ErrAuth)
	}
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", g.BaseURL, url.PathEscape(g.AccountSID))
	form := url.Values{}
	form.Set("To", msg.To)
	form.Set("From", msg.From)
	form.Set("Body", msg.Body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: build twilio request: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(g.AccountSID, g.AuthToken)

	client := g.Client
	if client == nil {
		client = &http.Client{Timeout: defaultTwilioTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTwilioBody))
	if err != nil {
		return "", fmt.Errorf("%w: read twilio response: %v", ErrTransport, err)
	}
	return parseTwilioResponse(resp.StatusCode, body)
}

func parseTwilioResponse(status int, body []byte) (string, error) {
	parsed := gjson.ParseBytes(body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return "", fmt.Errorf("%w: twilio status=%d%s", ErrAuth, status, twilioDetail(parsed))
	case status >= 500:
		return "", fmt.Errorf("%w: twilio status=%d%s", ErrTransport, status, twilioDetail(parsed))
	case status/100 != 2:
		return "", fmt.Errorf("%w: twilio status=%d%s", ErrDeliveryRejected, status, twilioDetail(parsed))
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%w: twilio returned invalid json", ErrDeliveryRejected)
	}
	switch state := parsed.Get("status").String(); state {
	case "failed", "undelivered", "canceled":
		return "", fmt.Errorf("%w: twilio message status=%s%s", ErrDeliveryRejected, state, twilioDetail(parsed))
	}
	sid := strings.TrimSpace(parsed.Get("sid").String())
	if sid == "" {
		return "", fmt.Errorf("%w: twilio response has no sid", ErrDeliveryRejected)
	}
	return sid, nil
}

func twilioDetail(parsed gjson.Result) string {
	code := parsed.Get("code")
	if !code.Exists() {
		code = parsed.Get("error_code")
	}
	msg := parsed.Get("message")
	if !msg.Exists() {
		msg = parsed.Get("error_message")
	}
	var parts []string
	if code.Exists() && code.Type != gjson.Null {
		parts = append(parts, "code="+code.String())
	}
	if msg.Exists() && msg.Type != gjson.Null {
		parts = append(parts, msg.String())
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ": ") + ")"
}
