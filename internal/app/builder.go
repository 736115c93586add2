package app

import (
	"context"
	"fmt"

	"github.com/a7exd/cheap-flights-finder/internal/config"
	"github.com/a7exd/cheap-flights-finder/internal/gateway/notifier"
)

// AppBuilder turns configuration into channels. The gateway hook lets
// tests swap the Twilio client.
type AppBuilder struct {
	cfg *config.Config

	smsGatewayFn func(config.SMSConfig) notifier.SMSGateway
}

func NewAppBuilder(cfg *config.Config) *AppBuilder {
	return &AppBuilder{cfg: cfg, smsGatewayFn: twilioGateway}
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if b == nil || b.cfg == nil {
		return nil, fmt.Errorf("app builder has no config")
	}
	channels, err := b.buildChannels()
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:      b.cfg,
		channels: channels,
		Summary:  newStartupSummary(b.cfg),
	}, nil
}

func (b *AppBuilder) buildChannels() ([]notifier.Channel, error) {
	notify := b.cfg.Notify
	var out []notifier.Channel
	for _, name := range notify.EnabledChannels() {
		switch name {
		case "sms":
			gw := b.smsGatewayFn(notify.SMS)
			out = append(out, notifier.NewSMSChannel(notifier.SMSConfig{
				From: notify.SMS.FromPhone,
				To:   notify.SMS.ToPhone,
			}, gw))
		case "email":
			e := notify.Email
			out = append(out, notifier.NewEmailChannel(notifier.EmailConfig{
				Host:           e.Host,
				Port:           e.Port,
				Username:       e.Username,
				Password:       e.Password,
				From:           e.From,
				To:             e.To,
				Subject:        e.Subject,
				Passengers:     notify.Passengers,
				BookingURL:     e.BookingURL,
				ConnectTimeout: e.ConnectTimeout(),
				SessionTimeout: e.SessionTimeout(),
			}))
		case "chat":
			out = append(out, notifier.NewChatChannel())
		default:
			return nil, fmt.Errorf("unknown notification channel %q", name)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no notification channel enabled")
	}
	return out, nil
}

func twilioGateway(cfg config.SMSConfig) notifier.SMSGateway {
	return notifier.NewTwilioGateway(notifier.TwilioConfig{
		AccountSID: cfg.AccountSID,
		AuthToken:  cfg.AuthToken,
		BaseURL:    cfg.APIURL,
		Timeout:    cfg.Timeout(),
	})
}

func provideAppBuilder(cfg *config.Config) *AppBuilder {
	return NewAppBuilder(cfg)
}

func provideAppFromBuilder(b *AppBuilder, ctx context.Context) (*App, error) {
	return b.Build(ctx)
}
