package config

import (
	"strconv"
	"strings"
)

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"GOOGLE_API_KEY", &cfg.APIKey},
		{"YTLIVE_API_KEY", &cfg.APIKey},
		{"YTLIVE_PROXY", &cfg.Proxy},
		{"YTLIVE_COOKIES_FILE", &cfg.CookiesFile},
		{"YTLIVE_BROWSER", &cfg.CookiesFromBrowser},
		{"YTLIVE_OUTPUT_PATH", &cfg.OutputPath},
		{"YTLIVE_TEMP_PATH", &cfg.TempPath},
		{"YTLIVE_UNARCHIVED_PATH", &cfg.UnarchivedPath},
		{"YTLIVE_CAPTURE_TOOL", &cfg.CaptureTool},
		{"YTLIVE_MQTT_BROKER", &cfg.MQTT.Broker},
		{"YTLIVE_MQTT_CLIENT_ID", &cfg.MQTT.ClientID},
		{"YTLIVE_MQTT_TOPIC_PREFIX", &cfg.MQTT.TopicPrefix},
		{"YTLIVE_MQTT_USERNAME", &cfg.MQTT.Username},
		{"YTLIVE_MQTT_PASSWORD", &cfg.MQTT.Password},
		{"YTLIVE_MONGO_URI", &cfg.Mongo.URI},
		{"YTLIVE_MONGO_DATABASE", &cfg.Mongo.Database},
		{"YTLIVE_STATUS_ADDR", &cfg.StatusAddr},
		{"YTLIVE_LOG_LEVEL", &cfg.Log.Level},
		{"YTLIVE_LOG_FORMAT", &cfg.Log.Format},
	}
	for _, s := range strs {
		if v, ok := lookup(s.key); ok && v != "" {
			*s.dst = v
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"YTLIVE_START_STREAM_LOOP_TIME", &cfg.StartStreamLoopTime},
		{"YTLIVE_CHECK_INTERVAL", &cfg.CheckInterval},
	}
	for _, s := range ints {
		v, ok := lookup(s.key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return &Error{Field: s.key, Reason: "not an integer: " + v}
		}
		*s.dst = n
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"YTLIVE_LOOP", &cfg.Loop},
		{"YTLIVE_DISABLE_BUS", &cfg.DisableBus},
		{"YTLIVE_DISABLE_LIVE_FROM_START", &cfg.DisableLiveFromStart},
	}
	for _, s := range bools {
		v, ok := lookup(s.key)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return &Error{Field: s.key, Reason: "not a boolean: " + v}
		}
		*s.dst = b
	}
	return nil
}

// parseBoolLoose treats anything other than a recognised false value as true.
func parseBoolLoose(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "no", "off":
		return false
	}
	return true
}
