package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const (
	sslModeDisable = "disable"
	sslModeRequire = "require"
)

// Environment variables that override values of the config file.
const (
	envAppEnv      = "APP_ENV"
	envAppVersion  = "APP_VERSION"
	envPort        = "PORT"
	envBaseURL     = "BASE_URL"
	envDatabaseURL = "DATABASE_URL"
)

type Config struct {
	Env        string `yaml:"env"`
	Version    string `yaml:"version"`
	BaseURL    string `yaml:"base_url"`
	HTTPServer `yaml:"http_server"`
	Postgres   `yaml:"postgres"`
}

type HTTPServer struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
	CertFile       string        `yaml:"cert_file"`
	KeyFile        string        `yaml:"key_file"`
}

var defaultHTTPServer = HTTPServer{
	Port:           8080,
	ReadTimeout:    5 * time.Second,
	WriteTimeout:   10 * time.Second,
	IdleTimeout:    time.Minute,
	MaxHeaderBytes: 1 << 20,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// TLSEnabled reports whether both a certificate and a key are configured.
func (s *HTTPServer) TLSEnabled() bool {
	return s.CertFile != "" && s.KeyFile != ""
}

type Postgres struct {
	// URL is a complete connection string. When set it takes precedence over
	// the individual connection fields.
	URL             string        `yaml:"url"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	DB              string        `yaml:"db"`
	SSLMode         string        `yaml:"sslmode"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
}

var defaultPostgres = Postgres{
	Host:            "localhost",
	Port:            5432,
	ConnMaxIdleTime: 5 * time.Minute,
	ConnMaxLifetime: 30 * time.Minute,
	MaxIdleConns:    5,
	MaxOpenConns:    25,
}

func (p *Postgres) DSN() string {
	if p.URL != "" {
		u, err := url.Parse(p.URL)
		if err != nil || p.SSLMode == "" {
			return p.URL
		}

		q := u.Query()
		if q.Get("sslmode") == "" {
			q.Set("sslmode", p.SSLMode)
			u.RawQuery = q.Encode()
		}

		return u.String()
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:     "/" + p.DB,
		RawQuery: url.Values{"sslmode": {p.SSLMode}}.Encode(),
	}

	return u.String()
}

// Load reads the YAML config file at path over the defaults and then applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	var cfg Config
	setDefaults(&cfg)

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to open config file: %w", op, err)
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("%s: failed to decode config file: %w", op, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := finalize(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.Version = "1.0"
	cfg.HTTPServer = defaultHTTPServer
	cfg.Postgres = defaultPostgres
}

func applyEnv(cfg *Config) error {
	if v, ok := lookupEnv(envAppEnv); ok {
		cfg.Env = v
	}
	if v, ok := lookupEnv(envAppVersion); ok {
		cfg.Version = v
	}
	if v, ok := lookupEnv(envPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", envPort, v, err)
		}
		cfg.HTTPServer.Port = port
	}
	if v, ok := lookupEnv(envBaseURL); ok {
		cfg.BaseURL = v
	}
	if v, ok := lookupEnv(envDatabaseURL); ok {
		cfg.Postgres.URL = v
	}

	return nil
}

func lookupEnv(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func finalize(cfg *Config) error {
	switch strings.ToLower(cfg.Env) {
	case EnvDev, "development":
		cfg.Env = EnvDev
	case EnvStage, "staging":
		cfg.Env = EnvStage
	case EnvProd, "production":
		cfg.Env = EnvProd
	default:
		return fmt.Errorf("unknown env %q", cfg.Env)
	}

	// The environment only decides how the database connection is secured.
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = sslModeDisable
		if cfg.Env == EnvProd {
			cfg.Postgres.SSLMode = sslModeRequire
		}
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.HTTPServer.Port)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return nil
}
