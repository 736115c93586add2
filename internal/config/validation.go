package config

import (
	"fmt"
	"sort"
	"strings"
)

func validate(c *Config) error {
	if c.Notify.Passengers < 1 {
		return fmt.Errorf("notify.passengers must be >= 1")
	}
	if len(c.Notify.EnabledChannels()) == 0 {
		return fmt.Errorf("notify requires at least one enabled channel (sms, email or chat)")
	}
	if err := c.Notify.SMS.validate(); err != nil {
		return err
	}
	if err := c.Notify.Email.validate(); err != nil {
		return err
	}
	return nil
}

func (s *SMSConfig) validate() error {
	if !s.Enabled {
		return nil
	}
	if err := requireFields("notify.sms", map[string]string{
		"account_sid": s.AccountSID,
		"auth_token":  s.AuthToken,
		"from_phone":  s.FromPhone,
		"to_phone":    s.ToPhone,
	}); err != nil {
		return err
	}
	if s.TimeoutSeconds < 0 {
		return fmt.Errorf("notify.sms.timeout_seconds must be >= 0")
	}
	return nil
}

func (e *EmailConfig) validate() error {
	if !e.Enabled {
		return nil
	}
	if err := requireFields("notify.email", map[string]string{
		"host": e.Host,
		"from": e.From,
		"to":   e.To,
	}); err != nil {
		return err
	}
	if e.Port < 1 || e.Port > 65535 {
		return fmt.Errorf("notify.email.port must be within 1-65535, got %d", e.Port)
	}
	if e.Password != "" && e.Username == "" {
		return fmt.Errorf("notify.email.username is required when a password is set")
	}
	if e.ConnectTimeoutSeconds < 0 || e.SessionTimeoutSeconds < 0 {
		return fmt.Errorf("notify.email timeouts must be >= 0")
	}
	return nil
}

// requireFields reports missing fields in a stable order.
func requireFields(prefix string, fields map[string]string) error {
	var missing []string
	for _, name := range sortedKeys(fields) {
		if strings.TrimSpace(fields[name]) == "" {
			missing = append(missing, prefix+"."+name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
