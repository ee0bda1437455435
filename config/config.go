package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Environment keys.
const (
	KeyDriver    = "DATABASE_DRIVER"
	KeyHost      = "DATABASE_HOST"
	KeyPort      = "DATABASE_PORT"
	KeyName      = "DATABASE_NAME"
	KeyUsername  = "DATABASE_USERNAME"
	KeyPassword  = "DATABASE_PASSWORD"
	KeySchema    = "DATABASE_SCHEMA"
	KeySSLMode   = "DATABASE_SSLMODE"
	KeySchemaDir = "SCHEMA_DIR"
	KeyLogLevel  = "LOG_LEVEL"
	KeyBaseURL   = "BASE_URL"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"

	DefaultSchemaDir = "./schema"
	DefaultLogLevel  = "info"
	DefaultSSLMode   = "prefer"
)

// Keys lists every key the loader binds to the environment.
var Keys = []string{
	KeyDriver, KeyHost, KeyPort, KeyName, KeyUsername, KeyPassword,
	KeySchema, KeySSLMode, KeySchemaDir, KeyLogLevel, KeyBaseURL,
}

// Config is the connection and tooling configuration for one target
// database. It is built once per command and passed explicitly to every
// component that needs it.
type Config struct {
	Driver    string
	Host      string
	Port      int
	Database  string
	Username  string
	Password  string
	Schema    string
	SSLMode   string
	SchemaDir string
	LogLevel  string
	BaseURL   string
}

// Issue describes one missing or invalid configuration value.
type Issue struct {
	Key     string
	Message string
}

// ConfigurationError reports every configuration problem found in one pass.
type ConfigurationError struct {
	Issues []Issue
}

func (e *ConfigurationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Message)
	}
	return "invalid configuration: " + strings.Join(parts, "; ")
}

func missing(key string) Issue {
	return Issue{Key: key, Message: fmt.Sprintf("required property %s is missing", key)}
}

// NewViper returns a viper instance bound to the configuration keys in the
// process environment.
func NewViper() *viper.Viper {
	v := viper.New()
	for _, key := range Keys {
		_ = v.BindEnv(key)
	}
	v.SetDefault(KeyDriver, DriverPostgres)
	v.SetDefault(KeySchemaDir, DefaultSchemaDir)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeySSLMode, DefaultSSLMode)
	return v
}

// Load reads and validates the database configuration. All problems are
// collected into a single *ConfigurationError; nothing is connected here.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Driver:    strings.ToLower(strings.TrimSpace(v.GetString(KeyDriver))),
		Host:      strings.TrimSpace(v.GetString(KeyHost)),
		Database:  strings.TrimSpace(v.GetString(KeyName)),
		Username:  v.GetString(KeyUsername),
		Password:  v.GetString(KeyPassword),
		Schema:    strings.TrimSpace(v.GetString(KeySchema)),
		SSLMode:   strings.TrimSpace(v.GetString(KeySSLMode)),
		SchemaDir: v.GetString(KeySchemaDir),
		LogLevel:  v.GetString(KeyLogLevel),
		BaseURL:   strings.TrimSpace(v.GetString(KeyBaseURL)),
	}

	var issues []Issue

	switch cfg.Driver {
	case DriverPostgres, DriverMySQL:
	default:
		issues = append(issues, Issue{
			Key:     KeyDriver,
			Message: fmt.Sprintf("%s must be %q or %q, got %q", KeyDriver, DriverPostgres, DriverMySQL, cfg.Driver),
		})
	}

	if cfg.Host == "" {
		issues = append(issues, missing(KeyHost))
	}

	port := strings.TrimSpace(v.GetString(KeyPort))
	if port == "" {
		issues = append(issues, missing(KeyPort))
	} else if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
		issues = append(issues, Issue{Key: KeyPort, Message: fmt.Sprintf("%s must be a port number, got %q", KeyPort, port)})
	} else {
		cfg.Port = n
	}

	if cfg.Database == "" {
		issues = append(issues, missing(KeyName))
	}
	if cfg.Username == "" {
		issues = append(issues, missing(KeyUsername))
	}
	if cfg.Password == "" {
		issues = append(issues, missing(KeyPassword))
	}

	if len(issues) > 0 {
		return Config{}, &ConfigurationError{Issues: issues}
	}

	if cfg.Schema == "" {
		cfg.Schema = cfg.DefaultSchema()
	}
	return cfg, nil
}

// LoadService reads only the service base URL. It is used by consumers of
// the CRUD service that never touch the database directly.
func LoadService(v *viper.Viper) (Config, error) {
	cfg := Config{
		BaseURL:  strings.TrimSpace(v.GetString(KeyBaseURL)),
		LogLevel: v.GetString(KeyLogLevel),
	}
	if err := cfg.RequireBaseURL(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// RequireBaseURL validates BASE_URL.
func (c Config) RequireBaseURL() error {
	if c.BaseURL == "" {
		return &ConfigurationError{Issues: []Issue{missing(KeyBaseURL)}}
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ConfigurationError{Issues: []Issue{{
			Key:     KeyBaseURL,
			Message: fmt.Sprintf("%s must be an absolute URL, got %q", KeyBaseURL, c.BaseURL),
		}}}
	}
	return nil
}

// DefaultSchema is the schema torn down and inspected when none is configured.
func (c Config) DefaultSchema() string {
	if c.Driver == DriverMySQL {
		return c.Database
	}
	return "public"
}

// Redacted returns a printable description of the target with the password
// masked.
func (c Config) Redacted() string {
	return fmt.Sprintf("%s://%s:***@%s:%d/%s (schema %s)", c.Driver, c.Username, c.Host, c.Port, c.Database, c.Schema)
}
