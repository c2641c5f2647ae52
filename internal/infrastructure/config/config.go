package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for TwinkleTaps Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database    DatabaseConfig   `yaml:"database"`
	MQTT        MQTTConfig       `yaml:"mqtt"`
	API         APIConfig        `yaml:"api"`
	InfluxDB    InfluxDBConfig   `yaml:"influxdb"`
	Logging     LoggingConfig    `yaml:"logging"`
	Security    SecurityConfig   `yaml:"security"`
	Invitations InvitationConfig `yaml:"invitations"`
}

// DatabaseConfig contains relational store settings.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver       string `yaml:"driver"`
	Path         string `yaml:"path"`
	WALMode      bool   `yaml:"wal_mode"`
	BusyTimeout  int    `yaml:"busy_timeout"`
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
	TopicPrefix string              `yaml:"topic_prefix"`

	// ConnectTimeout bounds the connect phase of a publish (seconds).
	ConnectTimeout int `yaml:"connect_timeout"`

	// PublishTimeout bounds a whole publish including connect (seconds).
	PublishTimeout int `yaml:"publish_timeout"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains session token settings.
type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// InvitationConfig contains invitation link settings.
type InvitationConfig struct {
	// BaseURL is the public origin used to build .../invite/<token> links.
	BaseURL string `yaml:"base_url"`
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// defaultConfig returns the settings used for anything the YAML file omits.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:       "sqlite",
			Path:         "./data/twinkletaps.db",
			WALMode:      true,
			BusyTimeout:  5,
			MaxOpenConns: 10,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "twinkletaps-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			TopicPrefix:    "twinkletaps/devices",
			ConnectTimeout: 5,
			PublishTimeout: 10,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			CORS: CORSConfig{
				AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
			},
		},
		InfluxDB: InfluxDBConfig{
			Org:           "twinkletaps",
			Bucket:        "twinkletaps",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{Issuer: "twinkletaps"},
		},
	}
}

// Load builds the configuration in three layers: defaults, the YAML file at
// path, then TWINKLETAPS_* environment variables. The result is validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// stringOverrides maps environment variables onto string settings.
func stringOverrides(cfg *Config) map[string]*string {
	return map[string]*string{
		"TWINKLETAPS_DATABASE_DRIVER":      &cfg.Database.Driver,
		"TWINKLETAPS_DATABASE_PATH":        &cfg.Database.Path,
		"TWINKLETAPS_DATABASE_DSN":         &cfg.Database.DSN,
		"TWINKLETAPS_MQTT_HOST":            &cfg.MQTT.Broker.Host,
		"TWINKLETAPS_MQTT_USERNAME":        &cfg.MQTT.Auth.Username,
		"TWINKLETAPS_MQTT_PASSWORD":        &cfg.MQTT.Auth.Password,
		"TWINKLETAPS_MQTT_TOPIC_PREFIX":    &cfg.MQTT.TopicPrefix,
		"TWINKLETAPS_API_HOST":             &cfg.API.Host,
		"TWINKLETAPS_INFLUXDB_URL":         &cfg.InfluxDB.URL,
		"TWINKLETAPS_INFLUXDB_TOKEN":       &cfg.InfluxDB.Token,
		"TWINKLETAPS_LOG_LEVEL":            &cfg.Logging.Level,
		"TWINKLETAPS_JWT_SECRET":           &cfg.Security.JWT.Secret,
		"TWINKLETAPS_INVITATIONS_BASE_URL": &cfg.Invitations.BaseURL,
	}
}

// intOverrides maps environment variables onto integer settings.
func intOverrides(cfg *Config) map[string]*int {
	return map[string]*int{
		"TWINKLETAPS_MQTT_PORT": &cfg.MQTT.Broker.Port,
		"TWINKLETAPS_API_PORT":  &cfg.API.Port,
	}
}

// applyEnvOverrides copies every non-empty TWINKLETAPS_* variable into cfg.
func applyEnvOverrides(cfg *Config) error {
	for name, dst := range stringOverrides(cfg) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	for name, dst := range intOverrides(cfg) {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", name, v)
		}
		*dst = n
	}
	if v := os.Getenv("TWINKLETAPS_INFLUXDB_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TWINKLETAPS_INFLUXDB_ENABLED: %q is not a boolean", v)
		}
		cfg.InfluxDB.Enabled = enabled
	}
	return nil
}

// minJWTSecretLength is the shortest accepted session signing secret.
const minJWTSecretLength = 32

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch strings.ToLower(c.Database.Driver) {
	case "", "sqlite", "sqlite3":
		if c.Database.Path == "" {
			fail("database.path is required for sqlite")
		}
	case "postgres", "postgresql", "pgx":
		if c.Database.DSN == "" {
			fail("database.dsn is required for postgres (set TWINKLETAPS_DATABASE_DSN)")
		}
	default:
		fail("database.driver %q is not supported", c.Database.Driver)
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		fail("mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.TopicPrefix == "" {
		fail("mqtt.topic_prefix is required")
	}
	if c.MQTT.ConnectTimeout <= 0 || c.MQTT.PublishTimeout <= 0 {
		fail("mqtt.connect_timeout and mqtt.publish_timeout must be positive")
	} else if c.MQTT.ConnectTimeout >= c.MQTT.PublishTimeout {
		fail("mqtt.connect_timeout must be shorter than mqtt.publish_timeout")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		fail("api.port must be between 1 and 65535")
	}
	if c.API.TLS.Enabled && (c.API.TLS.CertFile == "" || c.API.TLS.KeyFile == "") {
		fail("api.tls.cert_file and api.tls.key_file are required when TLS is enabled")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		fail("influxdb.url is required when influxdb is enabled")
	}

	// A forged session token would impersonate any user.
	switch {
	case c.Security.JWT.Secret == "":
		fail("security.jwt.secret is required (set TWINKLETAPS_JWT_SECRET environment variable)")
	case len(c.Security.JWT.Secret) < minJWTSecretLength:
		fail("security.jwt.secret must be at least %d characters", minJWTSecretLength)
	}

	if c.Invitations.BaseURL != "" {
		u, err := url.Parse(c.Invitations.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			fail("invitations.base_url must be an absolute http(s) URL")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %w", errors.Join(errs...))
	}
	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetConnectTimeout returns the MQTT connect timeout as a Duration.
func (c MQTTConfig) GetConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Second
}

// GetPublishTimeout returns the overall MQTT publish timeout as a Duration.
func (c MQTTConfig) GetPublishTimeout() time.Duration {
	return time.Duration(c.PublishTimeout) * time.Second
}
