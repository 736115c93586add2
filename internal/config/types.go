package config

import (
	"strings"
	"time"
)

// Config is the flight alert configuration.
type Config struct {
	App    AppConfig    `toml:"app"`
	Notify NotifyConfig `toml:"notify"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
}

// NotifyConfig holds one block per delivery channel.
type NotifyConfig struct {
	// Passengers is the default party size used in booking links.
	Passengers int         `toml:"passengers"`
	SMS        SMSConfig   `toml:"sms"`
	Email      EmailConfig `toml:"email"`
	Chat       ChatConfig  `toml:"chat"`
}

// EnabledChannels lists the enabled channel names in dispatch order.
func (n NotifyConfig) EnabledChannels() []string {
	var out []string
	if n.SMS.Enabled {
		out = append(out, "sms")
	}
	if n.Email.Enabled {
		out = append(out, "email")
	}
	if n.Chat.Enabled {
		out = append(out, "chat")
	}
	return out
}

type SMSConfig struct {
	Enabled        bool   `toml:"enabled"`
	AccountSID     string `toml:"account_sid"`
	AuthToken      string `toml:"auth_token"`
	FromPhone      string `toml:"from_phone"`
	ToPhone        string `toml:"to_phone"`
	APIURL         string `toml:"api_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

func (s SMSConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

type EmailConfig struct {
	Enabled               bool   `toml:"enabled"`
	Host                  string `toml:"host"`
	Port                  int    `toml:"port"`
	Username              string `toml:"username"`
	Password              string `toml:"password"`
	From                  string `toml:"from"`
	To                    string `toml:"to"`
	Subject               string `toml:"subject"`
	BookingURL            string `toml:"booking_url"`
	ConnectTimeoutSeconds int    `toml:"connect_timeout_seconds"`
	SessionTimeoutSeconds int    `toml:"session_timeout_seconds"`
}

func (e EmailConfig) ConnectTimeout() time.Duration {
	return time.Duration(e.ConnectTimeoutSeconds) * time.Second
}

func (e EmailConfig) SessionTimeout() time.Duration {
	return time.Duration(e.SessionTimeoutSeconds) * time.Second
}

// ChatConfig toggles the messaging-bot channel, which has no backend yet.
type ChatConfig struct {
	Enabled bool `toml:"enabled"`
}

// keySet tracks which config paths were set explicitly.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault describes when and how one field gets its default.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
