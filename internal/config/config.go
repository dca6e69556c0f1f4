/**
 * @description
 * This file handles the configuration management for the freeze-service.
 * It uses the 'viper' library to load configuration from environment variables,
 * providing a centralized and consistent way to manage application settings.
 */
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	ServerPort             string `mapstructure:"SERVER_PORT"`
	DatabaseURL            string `mapstructure:"DATABASE_URL"`
	JWKSURL                string `mapstructure:"JWKS_URL"`
	InternalAPIKey         string `mapstructure:"INTERNAL_API_KEY"`
	RabbitMQURL            string `mapstructure:"RABBITMQ_URL"`
	NotificationServiceURL string `mapstructure:"NOTIFICATION_SERVICE_URL"`

	FreezeMaxDurationDays   int   `mapstructure:"FREEZE_MAX_DURATION_DAYS"`
	FreezeMinReasonLen      int   `mapstructure:"FREEZE_MIN_REASON_LEN"`
	FreezeOverlapBlocking   bool  `mapstructure:"FREEZE_OVERLAP_BLOCKING"`
	FreezeFlatCreditMinor   int64 `mapstructure:"FREEZE_FLAT_CREDIT_MINOR"`
	RescheduleLookaheadDays int   `mapstructure:"RESCHEDULE_LOOKAHEAD_DAYS"`

	FreezeExpiryJobSchedule     string `mapstructure:"FREEZE_EXPIRY_JOB_SCHEDULE"`
	ConflictReminderJobSchedule string `mapstructure:"CONFLICT_REMINDER_JOB_SCHEDULE"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	viper.SetDefault("SERVER_PORT", "8086")
	viper.SetDefault("FREEZE_MAX_DURATION_DAYS", 30)
	viper.SetDefault("FREEZE_MIN_REASON_LEN", 10)
	viper.SetDefault("FREEZE_OVERLAP_BLOCKING", false)
	viper.SetDefault("FREEZE_FLAT_CREDIT_MINOR", 0)
	viper.SetDefault("RESCHEDULE_LOOKAHEAD_DAYS", 60)
	viper.SetDefault("FREEZE_EXPIRY_JOB_SCHEDULE", "0 2 * * *")
	viper.SetDefault("CONFLICT_REMINDER_JOB_SCHEDULE", "0 8 * * *")
	viper.AutomaticEnv()

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("JWKS_URL")
	_ = viper.BindEnv("INTERNAL_API_KEY")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("NOTIFICATION_SERVICE_URL")
	_ = viper.BindEnv("FREEZE_MAX_DURATION_DAYS")
	_ = viper.BindEnv("FREEZE_MIN_REASON_LEN")
	_ = viper.BindEnv("FREEZE_OVERLAP_BLOCKING")
	_ = viper.BindEnv("FREEZE_FLAT_CREDIT_MINOR")
	_ = viper.BindEnv("RESCHEDULE_LOOKAHEAD_DAYS")
	_ = viper.BindEnv("FREEZE_EXPIRY_JOB_SCHEDULE")
	_ = viper.BindEnv("CONFLICT_REMINDER_JOB_SCHEDULE")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if config.FreezeMaxDurationDays <= 0 {
		return nil, fmt.Errorf("FREEZE_MAX_DURATION_DAYS must be positive")
	}
	if config.RescheduleLookaheadDays <= 0 {
		return nil, fmt.Errorf("RESCHEDULE_LOOKAHEAD_DAYS must be positive")
	}

	return &config, nil
}
