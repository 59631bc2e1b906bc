package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AlertsConfig holds alerting rules and delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
	NATS     NATSConfig      `yaml:"nats"`
}

// AlertRule defines one threshold-based alert condition evaluated against
// every unit's health row.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression: "vacancy_pct > 50", "score < 75",
	// "total == 0", "status == critical".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | pagerduty | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// NATSConfig enables publishing alert events to a NATS subject.
type NATSConfig struct {
	// URLEnv names the environment variable holding the server URL.
	// Publishing is disabled when the variable is unset or empty.
	URLEnv string `yaml:"url_env"`

	// Subject is the subject alerts are published on (default "orgpulse.alerts").
	Subject string `yaml:"subject"`
}

// URL returns the NATS server URL resolved from the environment.
func (n NATSConfig) URL() string {
	if n.URLEnv == "" {
		return ""
	}
	return os.Getenv(n.URLEnv)
}

// Default values for the server configuration.
const (
	DefaultGRPCPort        = 50051
	DefaultHTTPPort        = 8080
	DefaultLogLevel        = "info"
	DefaultRegistryType    = "http"
	DefaultRegistryURL     = "http://localhost:8000"
	DefaultRegistryTimeout = 10 * time.Second
	DefaultRegistryRetries = 2
	DefaultMonitorInterval = time.Minute
	DefaultReportTTL       = 5 * time.Minute
	DefaultNATSSubject     = "orgpulse.alerts"
)

// Config holds the server-side configuration parsed from the `server:` section
// of the config file.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// LogLevel is one of debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	// GRPCPort is the port the AnalyticsService listens on (default 50051).
	GRPCPort int `yaml:"grpc_port"`

	// HTTPPort is the port the REST API and WebSocket hub listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// Auth configures how the server authenticates incoming gRPC and REST clients.
	Auth AuthConfig `yaml:"auth"`

	// Registry configures where organization trees are read from.
	Registry RegistryConfig `yaml:"registry"`

	// Monitor controls the background evaluation loop.
	Monitor MonitorConfig `yaml:"monitor"`

	// Alerts holds rule definitions and delivery targets.
	Alerts AlertsConfig `yaml:"alerts"`
}

// SlogLevel maps LogLevel to a slog.Level. Unknown values map to Info.
func (s ServerConfig) SlogLevel() slog.Level {
	switch s.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// AuthConfig controls client authentication on the server side.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	// Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the gRPC metadata key (and HTTP header name) to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// RegistryConfig selects and tunes the organization registry source.
type RegistryConfig struct {
	// Type is one of: http | file | postgres.
	Type string `yaml:"type"`

	// URL is the registry base URL; the tree is read from {URL}/api/org/tree.
	// Used when Type == "http".
	URL string `yaml:"url"`

	// Path is a YAML or JSON organization document. Used when Type == "file".
	Path string `yaml:"path"`

	// DSNEnv names the environment variable holding the Postgres connection
	// string. Used when Type == "postgres".
	DSNEnv string `yaml:"dsn_env"`

	// Timeout bounds a single fetch attempt (default 10s).
	Timeout time.Duration `yaml:"timeout"`

	// Retries is the number of extra attempts after a failed fetch (default 2).
	Retries int `yaml:"retries"`

	// RateLimit caps outgoing registry requests per second; 0 disables it.
	RateLimit float64 `yaml:"rate_limit"`

	// MaxDepth bounds tree nesting; 0 selects the orgtree default.
	MaxDepth int `yaml:"max_depth"`

	// Auth configures how orgpulse authenticates to an http registry.
	Auth ClientAuthConfig `yaml:"auth"`

	// TLS holds optional TLS dial options.
	TLS TLSConfig `yaml:"tls"`
}

// DSN returns the Postgres connection string resolved from the environment.
func (r RegistryConfig) DSN() string {
	if r.DSNEnv == "" {
		return ""
	}
	return os.Getenv(r.DSNEnv)
}

// ClientAuthConfig specifies how orgpulse authenticates to an upstream registry.
type ClientAuthConfig struct {
	// Mode is one of: mtls | apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	// mTLS fields, used when Mode == "mtls".
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	// Header is the HTTP header the API key is sent in (Mode == "apikey").
	Header string `yaml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`

	// TokenEnv holds the bearer token (Mode == "bearer").
	TokenEnv string `yaml:"token_env"`

	// Username and PasswordEnv are used when Mode == "basic".
	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key value resolved from the environment.
func (a ClientAuthConfig) Key() string {
	return lookupEnv(a.KeyEnv)
}

// Token returns the bearer token value resolved from the environment.
func (a ClientAuthConfig) Token() string {
	return lookupEnv(a.TokenEnv)
}

// Password returns the basic-auth password resolved from the environment.
func (a ClientAuthConfig) Password() string {
	return lookupEnv(a.PasswordEnv)
}

func lookupEnv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

// TLSConfig holds TLS dial options for the registry connection.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	// Only use this for internal CAs in development environments.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// MonitorConfig controls the periodic evaluation loop.
type MonitorConfig struct {
	// Interval is the time between evaluations (default 1m).
	Interval time.Duration `yaml:"interval"`

	// ReportTTL is how long the last report remains available to WebSocket
	// clients after the monitor stops producing new ones (default 5m).
	ReportTTL time.Duration `yaml:"report_ttl"`
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a Config pre-populated with default values. It is what the
// server runs with when no config file is given.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			LogLevel: DefaultLogLevel,
			GRPCPort: DefaultGRPCPort,
			HTTPPort: DefaultHTTPPort,
			Registry: RegistryConfig{
				Type:    DefaultRegistryType,
				URL:     DefaultRegistryURL,
				Timeout: DefaultRegistryTimeout,
				Retries: DefaultRegistryRetries,
			},
			Monitor: MonitorConfig{
				Interval:  DefaultMonitorInterval,
				ReportTTL: DefaultReportTTL,
			},
			Alerts: AlertsConfig{
				NATS: NATSConfig{Subject: DefaultNATSSubject},
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.GRPCPort <= 0 || s.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port %d is out of range [1, 65535]", s.GRPCPort)
	}
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch s.LogLevel {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("server.log_level %q unknown: want debug|info|warn|error", s.LogLevel)
	}
	switch s.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", s.Auth.Mode)
	}
	if err := validateRegistry(s.Registry); err != nil {
		return err
	}
	if s.Monitor.Interval <= 0 {
		return fmt.Errorf("server.monitor.interval must be positive")
	}
	if s.Monitor.ReportTTL < 0 {
		return fmt.Errorf("server.monitor.report_ttl must not be negative")
	}
	for i, r := range s.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("server.alerts.rules[%d]: name is required", i)
		}
		if r.Condition == "" {
			return fmt.Errorf("server.alerts.rules[%d] %q: condition is required", i, r.Name)
		}
	}
	for i, w := range s.Alerts.Webhooks {
		switch w.Type {
		case "slack", "teams", "pagerduty", "http":
		default:
			return fmt.Errorf("server.alerts.webhooks[%d]: type %q unknown: want slack|teams|pagerduty|http", i, w.Type)
		}
	}
	return nil
}

func validateRegistry(r RegistryConfig) error {
	switch r.Type {
	case "http":
		if r.URL == "" {
			return fmt.Errorf("server.registry.url is required for type http")
		}
	case "file":
		if r.Path == "" {
			return fmt.Errorf("server.registry.path is required for type file")
		}
	case "postgres":
		if r.DSNEnv == "" {
			return fmt.Errorf("server.registry.dsn_env is required for type postgres")
		}
	default:
		return fmt.Errorf("server.registry.type %q unknown: want http|file|postgres", r.Type)
	}
	switch r.Auth.Mode {
	case "mtls":
		if r.Auth.CertFile == "" || r.Auth.KeyFile == "" {
			return fmt.Errorf("server.registry.auth: mtls requires cert_file and key_file")
		}
	case "apikey":
		if r.Auth.Header == "" {
			return fmt.Errorf("server.registry.auth: apikey requires header")
		}
	case "bearer", "basic", "none", "":
	default:
		return fmt.Errorf("server.registry.auth.mode %q unknown: want mtls|apikey|bearer|basic|none", r.Auth.Mode)
	}
	if r.Timeout < 0 {
		return fmt.Errorf("server.registry.timeout must not be negative")
	}
	if r.Retries < 0 {
		return fmt.Errorf("server.registry.retries must not be negative")
	}
	if r.RateLimit < 0 {
		return fmt.Errorf("server.registry.rate_limit must not be negative")
	}
	if r.MaxDepth < 0 {
		return fmt.Errorf("server.registry.max_depth must not be negative")
	}
	return nil
}
