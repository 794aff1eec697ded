package config

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// Breaker names. Each dependency gets its own breaker so one outage does not
// trip calls to another.
const (
	BreakerRedisAuth     = "Redis-Auth"
	BreakerRelayPostgres = "Relay-PostgreSQL"
	BreakerRabbitMQ      = "RabbitMQ"
	BreakerEvidence      = "S3-Evidence"
)

// NewCircuitBreaker opens after 3 consecutive failures. The open timeout is
// chosen per dependency.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	var timeout time.Duration

	switch name {
	case BreakerRedisAuth:
		timeout = 5 * time.Second // matches the readiness probe timeout
	case BreakerRelayPostgres:
		timeout = 10 * time.Second
	case BreakerEvidence:
		timeout = 15 * time.Second
	default:
		timeout = 30 * time.Second
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Error("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
}
