package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envKeys {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}
	t.Setenv(EnvConfigFile, "")
	os.Unsetenv(EnvConfigFile)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	v, err := NewViper("")
	if err != nil {
		t.Fatalf("NewViper() error = %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := Config{
		DatabaseURL:     "daily_tracker.db",
		ReportInterval:  5 * time.Hour,
		RolloverTime:    "00:00",
		RefreshInterval: time.Second,
		HistoryDays:     30,
		StatsDays:       7,
	}
	if cfg != want {
		t.Errorf("Load() = %+v, want %+v", cfg, want)
	}
	if err := cfg.RequireTelegram(); err == nil {
		t.Error("RequireTelegram() accepted an empty token")
	}
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", " abc ")
	t.Setenv("OWNER_CHAT_ID", "-100123")
	t.Setenv("REPORT_INTERVAL_HOURS", "0")
	t.Setenv("ROLLOVER_TIME", "04:30")

	v, err := NewViper("")
	if err != nil {
		t.Fatalf("NewViper() error = %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TelegramToken != "abc" || cfg.OwnerChatID != -100123 {
		t.Errorf("token/owner = %q/%d", cfg.TelegramToken, cfg.OwnerChatID)
	}
	if cfg.ReportInterval != 0 {
		t.Errorf("ReportInterval = %v, want disabled", cfg.ReportInterval)
	}
	if cfg.RolloverTime != "04:30" {
		t.Errorf("RolloverTime = %q", cfg.RolloverTime)
	}
	if err := cfg.RequireTelegram(); err != nil {
		t.Errorf("RequireTelegram() error = %v", err)
	}
}

func TestNewViper_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "tracker.yaml")
	content := "database_url: /data/tasks.db\nstats_days: 14\nrollover_time: \"03:00\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfigFile, path)
	t.Setenv("ROLLOVER_TIME", "05:00")

	v, err := NewViper("")
	if err != nil {
		t.Fatalf("NewViper() error = %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DatabaseURL != "/data/tasks.db" || cfg.StatsDays != 14 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.RolloverTime != "05:00" {
		t.Errorf("RolloverTime = %q, environment should win over the file", cfg.RolloverTime)
	}

	if _, err := NewViper(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("NewViper() accepted a missing config file")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"owner_chat_id", "me"},
		{"report_interval_hours", "often"},
		{"refresh_interval", "0s"},
		{"rollover_time", "25:00"},
		{"stats_days", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			v.Set(tt.key, tt.value)
			if _, err := Load(v); err == nil {
				t.Errorf("Load() accepted %s=%q", tt.key, tt.value)
			}
		})
	}
}
