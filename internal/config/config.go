/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/kudipoint/ledger-service/internal/domain"
)

// Config holds all the configuration variables for the ledger-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                   string `mapstructure:"SERVER_PORT"`
	DatabaseURL                  string `mapstructure:"DATABASE_URL"`
	RedisURL                     string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix         string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL                  string `mapstructure:"RABBITMQ_URL"`
	GatewayEventQueue            string `mapstructure:"GATEWAY_EVENT_QUEUE"`
	PaystackBaseURL              string `mapstructure:"PAYSTACK_BASE_URL"`
	PaystackSecretKey            string `mapstructure:"PAYSTACK_SECRET_KEY"`
	VTUAfricaBaseURL             string `mapstructure:"VTU_AFRICA_BASE_URL"`
	VTUAfricaAPIKey              string `mapstructure:"VTU_AFRICA_API_KEY"`
	JWKSURL                      string `mapstructure:"JWKS_URL"`
	InternalAPIKey               string `mapstructure:"INTERNAL_API_KEY"`
	ReferenceLength              int    `mapstructure:"REFERENCE_LENGTH"`
	ReferenceMaxAttempts         int    `mapstructure:"REFERENCE_MAX_ATTEMPTS"`
	RefundFromStatuses           string `mapstructure:"REFUND_FROM_STATUSES"`
	InitiationRateLimitPerMinute int    `mapstructure:"INITIATION_RATE_LIMIT_PER_MINUTE"`
}

// RefundOrigins parses REFUND_FROM_STATUSES into the statuses a refund may
// originate from. Unknown values are skipped with a warning; an empty or fully
// invalid list yields nil so the caller falls back to the default.
func (c Config) RefundOrigins() []domain.TransactionStatus {
	var origins []domain.TransactionStatus
	for _, raw := range strings.Split(c.RefundFromStatuses, ",") {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		status := domain.TransactionStatus(name)
		switch status {
		case domain.StatusPending, domain.StatusApproved, domain.StatusSuccessful, domain.StatusFailed:
			origins = append(origins, status)
		default:
			log.Printf("level=warn component=config msg=\"ignoring unknown refund origin status\" value=%q", raw)
		}
	}
	return origins
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("GATEWAY_EVENT_QUEUE", "ledger_service.gateway_updates")
	viper.SetDefault("PAYSTACK_BASE_URL", "https://api.paystack.co")
	viper.SetDefault("VTU_AFRICA_BASE_URL", "https://vtuafrica.com.ng/portal/api")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "kudipoint:rate_limit")
	viper.SetDefault("REFERENCE_LENGTH", 12)
	viper.SetDefault("REFERENCE_MAX_ATTEMPTS", 20)
	viper.SetDefault("REFUND_FROM_STATUSES", "approved,successful")
	viper.SetDefault("INITIATION_RATE_LIMIT_PER_MINUTE", 30)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "LEDGER_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("GATEWAY_EVENT_QUEUE")
	_ = viper.BindEnv("PAYSTACK_BASE_URL")
	_ = viper.BindEnv("PAYSTACK_SECRET_KEY")
	_ = viper.BindEnv("VTU_AFRICA_BASE_URL")
	_ = viper.BindEnv("VTU_AFRICA_API_KEY")
	_ = viper.BindEnv("JWKS_URL")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "LEDGER_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("REFERENCE_LENGTH")
	_ = viper.BindEnv("REFERENCE_MAX_ATTEMPTS")
	_ = viper.BindEnv("REFUND_FROM_STATUSES")
	_ = viper.BindEnv("INITIATION_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	if strings.TrimSpace(config.InternalAPIKey) == "" {
		config.InternalAPIKey = strings.TrimSpace(os.Getenv("LEDGER_SERVICE_INTERNAL_API_KEY"))
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "kudipoint:rate_limit"
	}

	if config.ReferenceLength <= 0 {
		config.ReferenceLength = 12
	}
	if config.ReferenceMaxAttempts <= 0 {
		config.ReferenceMaxAttempts = 20
	}
	if config.InitiationRateLimitPerMinute <= 0 {
		config.InitiationRateLimitPerMinute = 30
	}

	return
}
