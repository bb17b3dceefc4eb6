// Package config loads the server configuration.
//
// PRECEDENCE (lowest to highest):
//  1. Defaults()
//  2. an optional YAML file (--config / CONFIG_FILE)
//  3. environment variables (PORT, DATABASE_URL, SESSION_SECRET, ...)
//
// Load validates the merged result and reports every problem at once.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	SessionStoreSQL    = "sql"
	SessionStoreBolt   = "bolt"
	SessionStoreMemory = "memory"

	// MinSecretLength is the shortest SESSION_SECRET accepted.
	MinSecretLength = 16
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	Google   GoogleConfig   `yaml:"google"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port      int    `yaml:"port"`
	ClientURL string `yaml:"client_url"` // CORS origin and OAuth landing page
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite | postgres
	Path   string `yaml:"path"`   // sqlite file
	URL    string `yaml:"url"`    // postgres DSN; assembled from the parts below when empty

	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`

	MaxOpenConns    int      `yaml:"max_open_conns"`
	MaxIdleConns    int      `yaml:"max_idle_conns"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
	QueryTimeout    Duration `yaml:"query_timeout"`
	ConnectAttempts int      `yaml:"connect_attempts"`
}

type SessionConfig struct {
	Secret        string   `yaml:"secret"`
	TTL           Duration `yaml:"ttl"`
	Store         string   `yaml:"store"` // sql | bolt | memory
	BoltPath      string   `yaml:"bolt_path"`
	SweepInterval Duration `yaml:"sweep_interval"`
	CookieSecure  bool     `yaml:"cookie_secure"`

	// EphemeralSecret is set when Secret was generated at startup.
	EphemeralSecret bool `yaml:"-"`
}

type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	CallbackURL  string `yaml:"callback_url"`
}

// Enabled reports whether Google login is configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type AuthConfig struct {
	BcryptCost int `yaml:"bcrypt_cost"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Duration is a time.Duration written as "24h" or "30m" in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() Config {
	cfg := baseDefaults()
	cfg.fillDerived()
	return cfg
}

// baseDefaults leaves out the values derived from the port, so overrides of
// the port reach them.
func baseDefaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 3000,
		},
		Database: DatabaseConfig{
			Driver:          DriverSQLite,
			Path:            "data/todo.db",
			Host:            "localhost",
			Port:            5432,
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: Duration(30 * time.Minute),
			QueryTimeout:    Duration(5 * time.Second),
			ConnectAttempts: 5,
		},
		Session: SessionConfig{
			TTL:           Duration(24 * time.Hour),
			Store:         SessionStoreSQL,
			BoltPath:      "data/sessions.db",
			SweepInterval: Duration(time.Hour),
		},
		Auth: AuthConfig{BcryptCost: 10},
		Log:  LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

// load takes the environment lookup as a parameter so tests don't have to
// touch the process environment.
func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := baseDefaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return nil, err
	}
	cfg.fillDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Session.Secret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, fmt.Errorf("config: generating session secret: %w", err)
		}
		cfg.Session.Secret = secret
		cfg.Session.EphemeralSecret = true
	}

	return &cfg, nil
}

// fillDerived points unset URLs at this server's own origin. The server
// hosts the UI itself, so that is where the OAuth flow should land.
func (c *Config) fillDerived() {
	origin := fmt.Sprintf("http://localhost:%d", c.Server.Port)
	if c.Server.ClientURL == "" {
		c.Server.ClientURL = origin
	}
	if c.Google.CallbackURL == "" {
		c.Google.CallbackURL = origin + "/auth/google/callback"
	}
}

// applyEnv overlays environment variables. Unparseable values are collected
// and reported together.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not an integer", key, v))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a boolean", key, v))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *Duration) {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a duration", key, v))
				return
			}
			*dst = Duration(d)
		}
	}

	integer("PORT", &cfg.Server.Port)
	str("CLIENT_URL", &cfg.Server.ClientURL)

	str("DB_DRIVER", &cfg.Database.Driver)
	str("DB_PATH", &cfg.Database.Path)
	str("DATABASE_URL", &cfg.Database.URL)
	str("DB_HOST", &cfg.Database.Host)
	integer("DB_PORT", &cfg.Database.Port)
	str("DB_USER", &cfg.Database.User)
	str("DB_PASSWORD", &cfg.Database.Password)
	str("DB_NAME", &cfg.Database.Name)
	integer("DB_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns)
	duration("DB_QUERY_TIMEOUT", &cfg.Database.QueryTimeout)

	str("SESSION_SECRET", &cfg.Session.Secret)
	duration("SESSION_TTL", &cfg.Session.TTL)
	str("SESSION_STORE", &cfg.Session.Store)
	str("SESSION_BOLT_PATH", &cfg.Session.BoltPath)
	boolean("COOKIE_SECURE", &cfg.Session.CookieSecure)

	str("GOOGLE_CLIENT_ID", &cfg.Google.ClientID)
	str("GOOGLE_CLIENT_SECRET", &cfg.Google.ClientSecret)
	str("GOOGLE_CALLBACK_URL", &cfg.Google.CallbackURL)

	integer("BCRYPT_COST", &cfg.Auth.BcryptCost)

	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Validate reports every invalid setting in one error.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port: %d is out of range", c.Server.Port)
	}
	if _, err := url.ParseRequestURI(c.Server.ClientURL); err != nil {
		add("server.client_url: %q is not a URL", c.Server.ClientURL)
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			add("database.path: required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.URL == "" && c.Database.Name == "" {
			add("database: the postgres driver needs DATABASE_URL or DB_NAME")
		}
	default:
		add("database.driver: unknown driver %q (want sqlite or postgres)", c.Database.Driver)
	}
	if c.Database.QueryTimeout <= 0 {
		add("database.query_timeout: must be positive")
	}

	switch c.Session.Store {
	case SessionStoreSQL, SessionStoreMemory:
	case SessionStoreBolt:
		if c.Session.BoltPath == "" {
			add("session.bolt_path: required for the bolt session store")
		}
	default:
		add("session.store: unknown store %q (want sql, bolt or memory)", c.Session.Store)
	}
	if c.Session.TTL <= 0 {
		add("session.ttl: must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		add("session.sweep_interval: must be positive")
	}
	if c.Session.Secret != "" && len(c.Session.Secret) < MinSecretLength {
		add("session.secret: must be at least %d characters", MinSecretLength)
	}

	if (c.Google.ClientID == "") != (c.Google.ClientSecret == "") {
		add("google: client_id and client_secret must be set together")
	}
	if c.Google.Enabled() {
		if _, err := url.ParseRequestURI(c.Google.CallbackURL); err != nil {
			add("google.callback_url: %q is not a URL", c.Google.CallbackURL)
		}
	}

	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		add("auth.bcrypt_cost: %d is outside [4, 31]", c.Auth.BcryptCost)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		add("log.level: unknown level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		add("log.format: unknown format %q", c.Log.Format)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: invalid configuration:\n%w", errors.Join(errs...))
	}
	return nil
}

// PostgresDSN returns Database.URL, or a DSN built from the individual
// connection settings when it is empty.
func (d DatabaseConfig) PostgresDSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	if d.User != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.User, d.Password)
		} else {
			u.User = url.User(d.User)
		}
	}
	q := url.Values{}
	q.Set("sslmode", "disable")
	u.RawQuery = q.Encode()
	return u.String()
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
