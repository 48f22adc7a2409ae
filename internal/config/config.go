package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config keeps runtime settings for vespers.
type Config struct {
	DatabaseURL string          `mapstructure:"database_url"`
	DataFile    string          `mapstructure:"data_file"`
	WriteBack   bool            `mapstructure:"write_back"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	Timer       TimerConfig     `mapstructure:"timer"`
	Dashboard   DashboardConfig `mapstructure:"dashboard"`
	Telegram    TelegramConfig  `mapstructure:"telegram"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	File   string `mapstructure:"file"`
	Format string `mapstructure:"format"`
}

// TimerConfig holds pomodoro durations.
type TimerConfig struct {
	Focus          time.Duration `mapstructure:"focus"`
	ShortBreak     time.Duration `mapstructure:"short_break"`
	LongBreak      time.Duration `mapstructure:"long_break"`
	LongBreakEvery int           `mapstructure:"long_break_every"`
	AutoBreak      bool          `mapstructure:"auto_break"`
}

// DashboardConfig controls the metrics window shown on the dashboard.
type DashboardConfig struct {
	Days     int `mapstructure:"days"`
	WordGoal int `mapstructure:"word_goal"`
}

// TelegramConfig configures the optional companion bot.
type TelegramConfig struct {
	Token          string        `mapstructure:"token"`
	ChatID         int64         `mapstructure:"chat_id"`
	ReportTime     string        `mapstructure:"report_time"`
	ReportInterval time.Duration `mapstructure:"report_interval"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database_url", "vespers.db")
	v.SetDefault("data_file", "")
	v.SetDefault("write_back", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.format", "text")

	v.SetDefault("timer.focus", 25*time.Minute)
	v.SetDefault("timer.short_break", 5*time.Minute)
	v.SetDefault("timer.long_break", 15*time.Minute)
	v.SetDefault("timer.long_break_every", 4)
	v.SetDefault("timer.auto_break", true)

	v.SetDefault("dashboard.days", 10)
	v.SetDefault("dashboard.word_goal", 2000)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", 0)
	v.SetDefault("telegram.report_time", "21:00")
	v.SetDefault("telegram.report_interval", time.Duration(0))
}

// Dir returns the per-user configuration directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "vespers")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "vespers")
}

// Load reads configuration from an optional YAML file and VESPERS_* environment
// variables on top of the defaults. An empty path searches the config dir and the
// working directory for vespers.yaml; a missing file there is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("vespers")
		v.SetConfigType("yaml")
		v.AddConfigPath(Dir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("VESPERS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Telegram.Token = strings.TrimSpace(cfg.Telegram.Token)
	cfg.Telegram.ReportTime = strings.TrimSpace(cfg.Telegram.ReportTime)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks value ranges that the defaults cannot guarantee.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database_url is required")
	}
	if c.Timer.Focus <= 0 {
		return fmt.Errorf("timer.focus must be positive, got %s", c.Timer.Focus)
	}
	if c.Timer.ShortBreak <= 0 || c.Timer.LongBreak <= 0 {
		return fmt.Errorf("timer breaks must be positive")
	}
	if c.Timer.LongBreakEvery < 0 {
		return fmt.Errorf("timer.long_break_every must not be negative")
	}
	if c.Dashboard.Days <= 0 {
		return fmt.Errorf("dashboard.days must be positive, got %d", c.Dashboard.Days)
	}
	if c.Telegram.ReportTime != "" {
		if _, _, err := ParseClock(c.Telegram.ReportTime); err != nil {
			return fmt.Errorf("telegram.report_time: %w", err)
		}
	}
	if c.Telegram.ReportInterval < 0 {
		return fmt.Errorf("telegram.report_interval must not be negative")
	}
	return nil
}

// RequireTelegram reports an error when the bot cannot be started.
func (c Config) RequireTelegram() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("VESPERS_TELEGRAM_TOKEN is required")
	}
	if c.Telegram.ChatID == 0 {
		return fmt.Errorf("VESPERS_TELEGRAM_CHAT_ID is required")
	}
	return nil
}

// ParseClock parses an HH:MM wall-clock time.
func ParseClock(raw string) (hour, minute int, err error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", raw)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return hour, minute, nil
}
