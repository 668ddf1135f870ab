package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Server modes.
const (
	ModeProduction  = "production"
	ModeDevelopment = "development"
)

// Database drivers accepted in database.driver.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DefaultConfigPath is used when neither flag nor environment names a file.
const DefaultConfigPath = "config.yaml"

// AppConfig holds process-level options resolved before the config file is read.
type AppConfig struct {
	ConfigPath string
}

// Config is the full service configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	JWT         JWTConfig         `yaml:"jwt"`
	Redis       RedisConfig       `yaml:"redis"`
	Log         LogConfig         `yaml:"log"`
	Eligibility EligibilityConfig `yaml:"eligibility"`
	Bootstrap   BootstrapConfig   `yaml:"bootstrap"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	Mode            string        `yaml:"mode"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig configures the relational store.
// DSN wins over the discrete fields when set.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	Driver       string `yaml:"driver"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Name         string `yaml:"name"`
	SSLMode      string `yaml:"sslmode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	TimeZone     string `yaml:"time_zone"`
}

// JWTConfig configures token signing.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// RedisConfig configures login throttling. An empty Addr disables it.
type RedisConfig struct {
	Addr             string        `yaml:"addr"`
	Password         string        `yaml:"password"`
	DB               int           `yaml:"db"`
	LoginMaxAttempts int           `yaml:"login_max_attempts"`
	LoginWindow      time.Duration `yaml:"login_window"`
	LockDuration     time.Duration `yaml:"lock_duration"`
}

// LogConfig configures logrus output.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// EligibilityConfig configures the daily eligibility ledger.
type EligibilityConfig struct {
	TimeZone      string `yaml:"time_zone"`      // Zone that defines "today"; empty means local.
	RetentionDays int    `yaml:"retention_days"` // Rows older than this are pruned; 0 keeps everything.
}

// BootstrapConfig names the default super_admin created by the bootstrap command.
type BootstrapConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Email    string `yaml:"email"`
}

// Default returns a configuration with every default applied.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

// ResolveConfigPath returns the explicit path or the default file name.
func ResolveConfigPath(path string) string {
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		return trimmed
	}
	return DefaultConfigPath
}

// Load reads a YAML config file and applies defaults. A missing file yields defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, errRead := os.ReadFile(path)
	if errRead != nil && !errors.Is(errRead, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: read %s: %w", path, errRead)
	}
	if len(data) > 0 {
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3001
	}
	c.Server.Mode = strings.ToLower(strings.TrimSpace(c.Server.Mode))
	if c.Server.Mode == "" {
		c.Server.Mode = ModeProduction
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		c.Database.Driver = DriverMySQL
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.JWT.Expiry <= 0 {
		c.JWT.Expiry = 24 * time.Hour
	}
	if c.Redis.LoginMaxAttempts <= 0 {
		c.Redis.LoginMaxAttempts = 5
	}
	if c.Redis.LoginWindow <= 0 {
		c.Redis.LoginWindow = 15 * time.Minute
	}
	if c.Redis.LockDuration <= 0 {
		c.Redis.LockDuration = 15 * time.Minute
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = 7
	}
	if c.Log.MaxAgeDays <= 0 {
		c.Log.MaxAgeDays = 30
	}
}

// IsDevelopment reports whether error details may be exposed to clients.
func (c Config) IsDevelopment() bool {
	return c.Server.Mode == ModeDevelopment
}

// Validate checks the configuration for values the service cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("config: jwt.secret is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	switch c.Server.Mode {
	case ModeProduction, ModeDevelopment:
	default:
		return fmt.Errorf("config: unknown server.mode %q", c.Server.Mode)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		switch c.Database.Driver {
		case DriverMySQL, DriverPostgres:
			if strings.TrimSpace(c.Database.Name) == "" {
				return errors.New("config: database.name is required")
			}
		case DriverSQLite:
			if strings.TrimSpace(c.Database.Name) == "" {
				return errors.New("config: database.name must be the sqlite file path")
			}
		default:
			return fmt.Errorf("config: unknown database.driver %q", c.Database.Driver)
		}
	}
	if c.Database.MaxOpenConns < 1 {
		return errors.New("config: database.max_open_conns must be positive")
	}
	if c.Eligibility.TimeZone != "" {
		if _, errLoad := time.LoadLocation(c.Eligibility.TimeZone); errLoad != nil {
			return fmt.Errorf("config: eligibility.time_zone: %w", errLoad)
		}
	}
	if c.Eligibility.RetentionDays < 0 {
		return errors.New("config: eligibility.retention_days must not be negative")
	}
	if strings.TrimSpace(c.Bootstrap.Username) != "" && len(c.Bootstrap.Password) < 6 {
		return errors.New("config: bootstrap.password must be at least 6 characters")
	}
	return nil
}

// DatabaseDSN returns database.dsn or builds one from the discrete fields.
func (c Config) DatabaseDSN() string {
	if dsn := strings.TrimSpace(c.Database.DSN); dsn != "" {
		return dsn
	}
	d := c.Database
	switch d.Driver {
	case DriverPostgres:
		port := d.Port
		if port == 0 {
			port = 5432
		}
		sslMode := d.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		parts := []string{
			"host=" + d.Host,
			"port=" + strconv.Itoa(port),
			"user=" + d.User,
			"password=" + d.Password,
			"dbname=" + d.Name,
			"sslmode=" + sslMode,
		}
		return strings.Join(parts, " ")
	case DriverSQLite:
		return d.Name
	default:
		port := d.Port
		if port == 0 {
			port = 3306
		}
		query := url.Values{}
		query.Set("charset", "utf8mb4")
		query.Set("parseTime", "true")
		query.Set("loc", "Local")
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?%s", d.User, d.Password, net.JoinHostPort(d.Host, strconv.Itoa(port)), d.Name, query.Encode())
	}
}
