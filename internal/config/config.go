package config

import (
	"crypto/rsa"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"gopkg.in/yaml.v3"
)

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// EvidenceConfig selects where proof photos are written.
type EvidenceConfig struct {
	Driver    string `yaml:"driver"` // s3 | memory
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`

	// Optional static credentials; the default AWS chain is used otherwise.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// GeofenceConfig holds one radius per check-in entry point.
type GeofenceConfig struct {
	ValidateRadiusMeters int `yaml:"validate_radius_meters"`
	CheckInRadiusMeters  int `yaml:"checkin_radius_meters"`
}

type AlertsConfig struct {
	NeglectThresholdDays int `yaml:"neglect_threshold_days"`
	RecentReportsLimit   int `yaml:"recent_reports_limit"`
}

type Config struct {
	Port           string         `yaml:"port"`
	DatabaseURL    string         `yaml:"database_url"`
	PublicKeyPath  string         `yaml:"public_key_path"`
	AllowedOrigins []string       `yaml:"allowed_origins"`
	AutoMigrate    bool           `yaml:"auto_migrate"`
	Redis          RedisConfig    `yaml:"redis"`
	Log            LogConfig      `yaml:"log"`
	Evidence       EvidenceConfig `yaml:"evidence"`
	Geofence       GeofenceConfig `yaml:"geofence"`
	Alerts         AlertsConfig   `yaml:"alerts"`

	JWTPublicKey *rsa.PublicKey `yaml:"-"`
}

// Load reads CONFIG_PATH (if set) and the environment, then loads the token
// verification key. Misconfiguration is fatal at startup.
func Load() *Config {
	cfg, err := LoadFrom(os.Getenv("CONFIG_PATH"), os.LookupEnv)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	publicKey, err := loadPublicKey(cfg.PublicKeyPath)
	if err != nil {
		panic("Failed to load public key: " + err.Error())
	}
	cfg.JWTPublicKey = publicKey
	return cfg
}

// LoadFrom builds a Config from defaults, an optional YAML file and env
// overrides looked up through lookup.
func LoadFrom(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	env := envReader{lookup: lookup}
	env.str("PORT", &cfg.Port)
	env.str("DB_CONNECTION_STRING", &cfg.DatabaseURL)
	env.str("PUBLIC_KEY_PATH", &cfg.PublicKeyPath)
	env.list("ALLOWED_ORIGINS", &cfg.AllowedOrigins)
	env.boolean("AUTO_MIGRATE", &cfg.AutoMigrate)
	env.str("REDIS_ADDRESS", &cfg.Redis.Address)
	env.str("REDIS_PASSWORD", &cfg.Redis.Password)
	env.str("LOG_LEVEL", &cfg.Log.Level)
	env.str("LOG_FORMAT", &cfg.Log.Format)
	env.str("EVIDENCE_DRIVER", &cfg.Evidence.Driver)
	env.str("EVIDENCE_S3_BUCKET", &cfg.Evidence.Bucket)
	env.str("EVIDENCE_S3_REGION", &cfg.Evidence.Region)
	env.str("EVIDENCE_S3_ENDPOINT", &cfg.Evidence.Endpoint)
	env.boolean("EVIDENCE_S3_PATH_STYLE", &cfg.Evidence.PathStyle)
	env.str("EVIDENCE_S3_ACCESS_KEY_ID", &cfg.Evidence.AccessKeyID)
	env.str("EVIDENCE_S3_SECRET_ACCESS_KEY", &cfg.Evidence.SecretAccessKey)
	env.integer("GEOFENCE_VALIDATE_RADIUS_METERS", &cfg.Geofence.ValidateRadiusMeters)
	env.integer("GEOFENCE_CHECKIN_RADIUS_METERS", &cfg.Geofence.CheckInRadiusMeters)
	env.integer("NEGLECT_THRESHOLD_DAYS", &cfg.Alerts.NeglectThresholdDays)
	env.integer("RECENT_REPORTS_LIMIT", &cfg.Alerts.RecentReportsLimit)
	if env.err != nil {
		return nil, env.err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port:           "8080",
		PublicKeyPath:  "/etc/certs/public.pem",
		AllowedOrigins: []string{"http://localhost:5173"},
		Redis:          RedisConfig{Address: "localhost:6379"},
		Log:            LogConfig{Level: "info", Format: "json"},
		Evidence:       EvidenceConfig{Driver: "memory"},
		Geofence:       GeofenceConfig{ValidateRadiusMeters: 500, CheckInRadiusMeters: 100},
		Alerts:         AlertsConfig{NeglectThresholdDays: 30, RecentReportsLimit: 3},
	}
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DB_CONNECTION_STRING environment variable is required")
	}
	if c.Geofence.ValidateRadiusMeters <= 0 || c.Geofence.CheckInRadiusMeters <= 0 {
		return fmt.Errorf("geofence radii must be positive")
	}
	if c.Alerts.NeglectThresholdDays <= 0 {
		return fmt.Errorf("neglect threshold must be positive")
	}
	if c.Alerts.RecentReportsLimit <= 0 {
		return fmt.Errorf("recent reports limit must be positive")
	}
	switch c.Evidence.Driver {
	case "memory":
	case "s3":
		if c.Evidence.Bucket == "" {
			return fmt.Errorf("EVIDENCE_S3_BUCKET is required with the s3 evidence driver")
		}
	default:
		return fmt.Errorf("unknown evidence driver %q", c.Evidence.Driver)
	}
	return nil
}

// envReader applies env overrides and keeps the first parse error.
type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) list(key string, dst *[]string) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func (e *envReader) integer(key string, dst *int) {
	v, ok := e.get(key)
	if !ok || e.err != nil {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = n
}

func (e *envReader) boolean(key string, dst *bool) {
	v, ok := e.get(key)
	if !ok || e.err != nil {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = b
}

func loadPublicKey(path string) (*rsa.PublicKey, error) {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return jwt.ParseRSAPublicKeyFromPEM(keyData)
}
