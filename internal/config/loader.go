package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load loads and validates configuration from:
// 1. Default values
// 2. config.yaml file
// 3. BOT_* environment variables
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Missing config file is fine, defaults and env vars still apply
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults sets default values for optional configuration parameters
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", DefaultAPIBaseURL)
	// Registered so AutomaticEnv can see BOT_API_TOKEN; validation rejects
	// the empty value when nothing overrides it.
	v.SetDefault("api.token", "")

	v.SetDefault("bot.poll_interval", DefaultPollInterval)
	v.SetDefault("bot.poll_timeout", DefaultPollTimeout)
	v.SetDefault("bot.reminder_interval", DefaultReminderInterval)
	v.SetDefault("bot.session_ttl", DefaultSessionTTL)
	v.SetDefault("bot.report_limit", DefaultReportLimit)

	v.SetDefault("bot.messages.welcome", DefaultBotMessages.Welcome)
	v.SetDefault("bot.messages.help", DefaultBotMessages.Help)
	v.SetDefault("bot.messages.unknown_command", DefaultBotMessages.UnknownCommand)
	v.SetDefault("bot.messages.ask_description", DefaultBotMessages.AskDescription)
	v.SetDefault("bot.messages.ask_contact", DefaultBotMessages.AskContact)
	v.SetDefault("bot.messages.ask_time", DefaultBotMessages.AskTime)
	v.SetDefault("bot.messages.bad_contact", DefaultBotMessages.BadContact)
	v.SetDefault("bot.messages.bad_time", DefaultBotMessages.BadTime)
	v.SetDefault("bot.messages.user_not_found", DefaultBotMessages.UserNotFound)
	v.SetDefault("bot.messages.task_not_found", DefaultBotMessages.TaskNotFound)
	v.SetDefault("bot.messages.task_created", DefaultBotMessages.TaskCreated)
	v.SetDefault("bot.messages.task_approved", DefaultBotMessages.TaskApproved)
	v.SetDefault("bot.messages.task_rejected", DefaultBotMessages.TaskRejected)
	v.SetDefault("bot.messages.already_resolved", DefaultBotMessages.AlreadyResolved)
	v.SetDefault("bot.messages.no_tasks", DefaultBotMessages.NoTasks)
	v.SetDefault("bot.messages.general_error", DefaultBotMessages.GeneralError)
	v.SetDefault("bot.messages.reminder_prompt", DefaultBotMessages.ReminderPrompt)
	v.SetDefault("bot.messages.status_pending", DefaultBotMessages.StatusPending)
	v.SetDefault("bot.messages.status_approved", DefaultBotMessages.StatusApproved)
	v.SetDefault("bot.messages.status_rejected", DefaultBotMessages.StatusRejected)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("http.addr", DefaultHTTPAddr)

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
}
