package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const envPrefix = "FLIGHTALERT"

// envAliases are the short variable names used by existing deployments.
// They are consulted after the FLIGHTALERT_* form of the same key.
var envAliases = map[string][]string{
	"notify.sms.account_sid": {"TWILIO_SID"},
	"notify.sms.auth_token":  {"TWILIO_AUTH"},
	"notify.sms.from_phone":  {"TWILIO_PHONE"},
	"notify.sms.to_phone":    {"TO_PHONE"},
	"notify.email.host":      {"SMTP_HOST"},
	"notify.email.username":  {"SMTP_USER"},
	"notify.email.password":  {"SMTP_PASSWORD"},
	"notify.email.to":        {"EMAIL_TO"},
}

// envKeys can be overridden from the environment.
var envKeys = []string{
	"app.env",
	"app.log_level",
	"app.log_path",
	"notify.passengers",
	"notify.sms.enabled",
	"notify.sms.account_sid",
	"notify.sms.auth_token",
	"notify.sms.from_phone",
	"notify.sms.to_phone",
	"notify.sms.api_url",
	"notify.sms.timeout_seconds",
	"notify.email.enabled",
	"notify.email.host",
	"notify.email.port",
	"notify.email.username",
	"notify.email.password",
	"notify.email.from",
	"notify.email.to",
	"notify.email.subject",
	"notify.email.booking_url",
	"notify.email.connect_timeout_seconds",
	"notify.email.session_timeout_seconds",
	"notify.chat.enabled",
}

// Load reads the YAML file at path (optional) and applies environment
// overrides, defaults and validation.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if strings.TrimSpace(path) != "" {
		if err := mergeConfigFile(v, path); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
		}
	}
	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("binding config env failed: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	setKeys := make(keySet)
	collectSettingsKeys(v.AllSettings(), setKeys)
	cfg.applyDefaults(setKeys)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func mergeConfigFile(v *viper.Viper, path string) error {
	tmp := viper.New()
	tmp.SetConfigFile(path)
	if err := tmp.ReadInConfig(); err != nil {
		return err
	}
	return v.MergeConfigMap(tmp.AllSettings())
}

func bindEnv(v *viper.Viper) error {
	for _, key := range envKeys {
		names := append([]string{key, envName(key)}, envAliases[key]...)
		if err := v.BindEnv(names...); err != nil {
			return err
		}
	}
	return nil
}

func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func collectSettingsKeys(settings map[string]any, dest keySet) {
	if dest == nil || len(settings) == 0 {
		return
	}
	flattenConfigKeys("", settings, dest)
}

func flattenConfigKeys(prefix string, node any, dest keySet) {
	switch val := node.(type) {
	case map[string]any:
		for k, v := range val {
			next := strings.ToLower(strings.TrimSpace(k))
			if next == "" {
				continue
			}
			if prefix != "" {
				next = prefix + "." + next
			}
			flattenConfigKeys(next, v, dest)
		}
	default:
		if prefix != "" {
			dest.mark(prefix)
		}
	}
}
