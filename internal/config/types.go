// Package config manages application configuration from config.yaml,
// BOT_* environment variables, and default values.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the full application configuration.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Bot      BotConfig      `mapstructure:"bot"`
	Database DatabaseConfig `mapstructure:"database"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Log      LogConfig      `mapstructure:"log"`
}

// APIConfig configures the VK Teams bot API client.
type APIConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	Token   string `mapstructure:"token"    validate:"required"`
}

// BotConfig configures the dispatcher, reminder sweep, and reply texts.
type BotConfig struct {
	PollInterval     time.Duration `mapstructure:"poll_interval"     validate:"required,min=1s"`
	PollTimeout      time.Duration `mapstructure:"poll_timeout"      validate:"required,min=1s,max=90s"`
	ReminderInterval time.Duration `mapstructure:"reminder_interval" validate:"required,min=1s"`
	SessionTTL       time.Duration `mapstructure:"session_ttl"       validate:"required,min=1m"`
	ReportLimit      int           `mapstructure:"report_limit"      validate:"required,min=1,max=100"`
	Messages         BotMessages   `mapstructure:"messages"`
}

// BotMessages holds all user-facing reply texts.
type BotMessages struct {
	Welcome         string `mapstructure:"welcome"`
	Help            string `mapstructure:"help"`
	UnknownCommand  string `mapstructure:"unknown_command"`
	AskDescription  string `mapstructure:"ask_description"`
	AskContact      string `mapstructure:"ask_contact"`
	AskTime         string `mapstructure:"ask_time"`
	BadContact      string `mapstructure:"bad_contact"`
	BadTime         string `mapstructure:"bad_time"`
	UserNotFound    string `mapstructure:"user_not_found"`
	TaskNotFound    string `mapstructure:"task_not_found"`
	TaskCreated     string `mapstructure:"task_created"`
	TaskApproved    string `mapstructure:"task_approved"`
	TaskRejected    string `mapstructure:"task_rejected"`
	AlreadyResolved string `mapstructure:"already_resolved"`
	NoTasks         string `mapstructure:"no_tasks"`
	GeneralError    string `mapstructure:"general_error"`
	ReminderPrompt  string `mapstructure:"reminder_prompt"`

	StatusPending  string `mapstructure:"status_pending"`
	StatusApproved string `mapstructure:"status_approved"`
	StatusRejected string `mapstructure:"status_rejected"`
}

// DatabaseConfig configures the SQLite task repository.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// HTTPConfig configures the debug/metrics HTTP surface.
type HTTPConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

// LogConfig configures structured logging output.
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
