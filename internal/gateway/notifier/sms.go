package notifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/a7exd/cheap-flights-finder/internal/pkg/text"
)

const (
	smsChannelName = "sms"
	// maxSMSBody is the Twilio limit for a single message body.
	maxSMSBody = 1600
)

// SMSMessage is what an SMSGateway submits.
type SMSMessage struct {
	From string
	To   string
	Body string
}

// SMSGateway submits one text message and returns the provider's message id.
type SMSGateway interface {
	CreateMessage(ctx context.Context, msg SMSMessage) (string, error)
}

type SMSConfig struct {
	From string
	To   string
}

// SMSChannel sends the alert text as an SMS through a gateway.
type SMSChannel struct {
	cfg     SMSConfig
	gateway SMSGateway
}

func NewSMSChannel(cfg SMSConfig, gateway SMSGateway) *SMSChannel {
	return &SMSChannel{cfg: cfg, gateway: gateway}
}

func (c *SMSChannel) Name() string { return smsChannelName }

// Send reports success only when the gateway returns a message id.
func (c *SMSChannel) Send(ctx context.Context, req Request) error {
	body, err := FormatMessage(req.Offer)
	if err != nil {
		return sendError(smsChannelName, kindOf(err), err)
	}
	if c.gateway == nil {
		return sendError(smsChannelName, ErrTransport, fmt.Errorf("sms gateway not configured"))
	}
	if strings.TrimSpace(c.cfg.To) == "" || strings.TrimSpace(c.cfg.From) == "" {
		return sendError(smsChannelName, ErrDeliveryRejected, fmt.Errorf("sender and recipient phone are required"))
	}
	sid, err := c.gateway.CreateMessage(ctx, SMSMessage{From: c.cfg.From, To: c.cfg.To, Body: text.Truncate(body, maxSMSBody)})
	if err != nil {
		return sendError(smsChannelName, kindOf(err), err)
	}
	if strings.TrimSpace(sid) == "" {
		return sendError(smsChannelName, ErrDeliveryRejected, fmt.Errorf("gateway returned no message id"))
	}
	return nil
}
