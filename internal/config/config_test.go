package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom("", envMap(map[string]string{"DB_CONNECTION_STRING": "postgres://localhost/visits"}))

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 500, cfg.Geofence.ValidateRadiusMeters)
	assert.Equal(t, 100, cfg.Geofence.CheckInRadiusMeters)
	assert.Equal(t, 30, cfg.Alerts.NeglectThresholdDays)
	assert.Equal(t, 3, cfg.Alerts.RecentReportsLimit)
	assert.Equal(t, "memory", cfg.Evidence.Driver)
}

func TestLoadFrom_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
database_url: postgres://file/visits
allowed_origins: [https://app.example.org]
geofence:
  validate_radius_meters: 300
  checkin_radius_meters: 80
evidence:
  driver: s3
  bucket: visit-proofs
  region: eu-west-3
`), 0o600))

	cfg, err := LoadFrom(path, envMap(map[string]string{
		"GEOFENCE_CHECKIN_RADIUS_METERS": "120",
		"ALLOWED_ORIGINS":                "https://a.example.org, https://b.example.org",
		"EVIDENCE_S3_PATH_STYLE":         "true",
	}))

	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "postgres://file/visits", cfg.DatabaseURL)
	assert.Equal(t, 300, cfg.Geofence.ValidateRadiusMeters)
	assert.Equal(t, 120, cfg.Geofence.CheckInRadiusMeters)
	assert.Equal(t, []string{"https://a.example.org", "https://b.example.org"}, cfg.AllowedOrigins)
	assert.Equal(t, "visit-proofs", cfg.Evidence.Bucket)
	assert.True(t, cfg.Evidence.PathStyle)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing_database", map[string]string{}},
		{"bad_radius", map[string]string{"DB_CONNECTION_STRING": "x", "GEOFENCE_VALIDATE_RADIUS_METERS": "far"}},
		{"zero_radius", map[string]string{"DB_CONNECTION_STRING": "x", "GEOFENCE_CHECKIN_RADIUS_METERS": "0"}},
		{"s3_without_bucket", map[string]string{"DB_CONNECTION_STRING": "x", "EVIDENCE_DRIVER": "s3"}},
		{"unknown_driver", map[string]string{"DB_CONNECTION_STRING": "x", "EVIDENCE_DRIVER": "ftp"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom("", envMap(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LogConfig{Level: "warn", Format: "json"})

	logger.Info("hidden")
	logger.Warn("shown", "visit_id", "v1")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"visit_id":"v1"`)
}

func TestNewCircuitBreaker(t *testing.T) {
	cb := NewCircuitBreaker(BreakerRabbitMQ)
	assert.Equal(t, BreakerRabbitMQ, cb.Name())
}
