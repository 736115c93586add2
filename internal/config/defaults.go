package config

import "strings"

const (
	defaultAppEnv         = "dev"
	defaultAppLogLevel    = "info"
	defaultPassengers     = 1
	defaultSMSAPIURL      = "https://api.twilio.com"
	defaultSMSTimeout     = 15
	defaultEmailPort      = 587
	defaultEmailSubject   = "New Low Price Flight!"
	defaultBookingURL     = "https://www.aviasales.com/search"
	defaultConnectTimeout = 2
	defaultSessionTimeout = 30
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Notify.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
	)
}

func (n *NotifyConfig) applyDefaults(keys keySet) {
	if n == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("notify.passengers", &n.Passengers, defaultPassengers),
	)
	n.SMS.applyDefaults(keys)
	n.Email.applyDefaults(keys)
}

func (s *SMSConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("notify.sms.api_url", &s.APIURL, defaultSMSAPIURL),
		intFieldDefault("notify.sms.timeout_seconds", &s.TimeoutSeconds, defaultSMSTimeout),
	)
}

func (e *EmailConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("notify.email.port", &e.Port, defaultEmailPort),
		stringFieldDefault("notify.email.subject", &e.Subject, defaultEmailSubject),
		stringFieldDefault("notify.email.booking_url", &e.BookingURL, defaultBookingURL),
		intFieldDefault("notify.email.connect_timeout_seconds", &e.ConnectTimeoutSeconds, defaultConnectTimeout),
		intFieldDefault("notify.email.session_timeout_seconds", &e.SessionTimeoutSeconds, defaultSessionTimeout),
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && strings.TrimSpace(*target) == "" },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

// intFieldDefault fills non-positive values.
func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
