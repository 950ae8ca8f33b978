package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvConfigFile names an optional YAML file read before the environment.
const EnvConfigFile = "DAILY_TRACKER_CONFIG"

// Config keeps runtime settings for the tracker.
type Config struct {
	TelegramToken string
	// OwnerChatID receives completion notices and reports. Zero means the
	// last chat that talked to the bot.
	OwnerChatID int64
	DatabaseURL string
	// ReportInterval of zero disables periodic reports.
	ReportInterval  time.Duration
	RolloverTime    string
	RefreshInterval time.Duration
	HistoryDays     int
	StatsDays       int
}

var envKeys = map[string]string{
	"telegram_token":        "TELEGRAM_TOKEN",
	"owner_chat_id":         "OWNER_CHAT_ID",
	"database_url":          "DATABASE_URL",
	"report_interval_hours": "REPORT_INTERVAL_HOURS",
	"rollover_time":         "ROLLOVER_TIME",
	"refresh_interval":      "REFRESH_INTERVAL",
	"history_days":          "HISTORY_DAYS",
	"stats_days":            "STATS_DAYS",
}

// SetDefaults registers defaults and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database_url", "daily_tracker.db")
	v.SetDefault("report_interval_hours", "5")
	v.SetDefault("rollover_time", "00:00")
	v.SetDefault("refresh_interval", "1s")
	v.SetDefault("history_days", 30)
	v.SetDefault("stats_days", 7)
	for key, env := range envKeys {
		_ = v.BindEnv(key, env)
	}
}

// NewViper builds a viper instance with defaults, the optional config file
// and environment bindings. An empty path falls back to DAILY_TRACKER_CONFIG.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	_ = v.BindEnv("config_file", EnvConfigFile)
	if path == "" {
		path = strings.TrimSpace(v.GetString("config_file"))
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return v, nil
}

// Load reads configuration from v. Defaults must already be registered.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		TelegramToken: strings.TrimSpace(v.GetString("telegram_token")),
		DatabaseURL:   strings.TrimSpace(v.GetString("database_url")),
		RolloverTime:  strings.TrimSpace(v.GetString("rollover_time")),
		HistoryDays:   v.GetInt("history_days"),
		StatsDays:     v.GetInt("stats_days"),
	}

	if raw := strings.TrimSpace(v.GetString("owner_chat_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("owner_chat_id: %q is not a chat id", raw)
		}
		cfg.OwnerChatID = id
	}

	interval, err := parseInterval(strings.TrimSpace(v.GetString("report_interval_hours")))
	if err != nil {
		return cfg, err
	}
	cfg.ReportInterval = interval

	refresh, err := time.ParseDuration(strings.TrimSpace(v.GetString("refresh_interval")))
	if err != nil || refresh <= 0 {
		return cfg, fmt.Errorf("refresh_interval: %q is not a positive duration", v.GetString("refresh_interval"))
	}
	cfg.RefreshInterval = refresh

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "daily_tracker.db"
	}
	if _, err := time.Parse("15:04", cfg.RolloverTime); err != nil {
		return cfg, fmt.Errorf("rollover_time: %q, expected HH:MM", cfg.RolloverTime)
	}
	if cfg.HistoryDays < 0 || cfg.StatsDays < 0 {
		return cfg, fmt.Errorf("history_days and stats_days must not be negative")
	}

	return cfg, nil
}

// RequireTelegram reports a missing bot token.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	return nil
}

func parseInterval(raw string) (time.Duration, error) {
	if raw == "" || raw == "0" {
		return 0, nil
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours < 0 {
		return 0, fmt.Errorf("report_interval_hours: %q is not a number of hours", raw)
	}
	return hours, nil
}
