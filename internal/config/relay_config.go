package config

import "os"

// RelayConfig holds what the outbox relay needs; it shares nothing else with
// the API process.
type RelayConfig struct {
	DatabaseURL    string
	RabbitMQURL    string
	VisitQueueName string
	HealthPort     string
	Log            LogConfig
}

func LoadRelayConfig() *RelayConfig {
	dbURL := os.Getenv("DB_CONNECTION_STRING")
	if dbURL == "" {
		panic("DB_CONNECTION_STRING environment variable is required")
	}

	rabbitURL := os.Getenv("RABBITMQ_URL")
	if rabbitURL == "" {
		panic("RABBITMQ_URL environment variable is required")
	}

	return &RelayConfig{
		DatabaseURL:    dbURL,
		RabbitMQURL:    rabbitURL,
		VisitQueueName: getenv("VISIT_QUEUE_NAME", "visit-events"),
		HealthPort:     getenv("RELAY_HEALTH_PORT", "8090"),
		Log: LogConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "json"),
		},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
