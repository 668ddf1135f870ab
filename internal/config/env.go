package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Viper keys bound to environment variables and command-line flags.
const (
	KeyConfigPath  = "config"
	KeyPort        = "port"
	KeyMode        = "mode"
	KeyDatabaseURL = "database_url"
	KeyDBDriver    = "db_driver"
	KeyDBHost      = "db_host"
	KeyDBPort      = "db_port"
	KeyDBUser      = "db_user"
	KeyDBPassword  = "db_password"
	KeyDBName      = "db_name"
	KeyJWTSecret   = "jwt_secret"
	KeyRedisAddr   = "redis_addr"
	KeyLogLevel    = "log_level"
	KeyLogFile     = "log_file"
)

var envBindings = map[string][]string{
	KeyConfigPath:  {"GIFTADMIN_CONFIG"},
	KeyPort:        {"PORT"},
	KeyMode:        {"APP_ENV"},
	KeyDatabaseURL: {"DATABASE_URL"},
	KeyDBDriver:    {"DB_DRIVER"},
	KeyDBHost:      {"DB_HOST"},
	KeyDBPort:      {"DB_PORT"},
	KeyDBUser:      {"DB_USER"},
	KeyDBPassword:  {"DB_PASSWORD"},
	KeyDBName:      {"DB_NAME"},
	KeyJWTSecret:   {"JWT_SECRET"},
	KeyRedisAddr:   {"REDIS_ADDR"},
	KeyLogLevel:    {"LOG_LEVEL"},
	KeyLogFile:     {"LOG_FILE"},
}

// BindEnv binds every override key to its environment variables.
func BindEnv(v *viper.Viper) error {
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return err
		}
	}
	return nil
}

// ApplyOverrides copies any value set in v over the file configuration.
func (c *Config) ApplyOverrides(v *viper.Viper) {
	if v == nil {
		return
	}
	if v.IsSet(KeyPort) && v.GetInt(KeyPort) > 0 {
		c.Server.Port = v.GetInt(KeyPort)
	}
	if mode := strings.ToLower(strings.TrimSpace(v.GetString(KeyMode))); mode != "" {
		c.Server.Mode = mode
	}
	setString(v, KeyDatabaseURL, &c.Database.DSN)
	if driver := strings.ToLower(strings.TrimSpace(v.GetString(KeyDBDriver))); driver != "" {
		c.Database.Driver = driver
	}
	setString(v, KeyDBHost, &c.Database.Host)
	if v.IsSet(KeyDBPort) && v.GetInt(KeyDBPort) > 0 {
		c.Database.Port = v.GetInt(KeyDBPort)
	}
	setString(v, KeyDBUser, &c.Database.User)
	setString(v, KeyDBPassword, &c.Database.Password)
	setString(v, KeyDBName, &c.Database.Name)
	setString(v, KeyJWTSecret, &c.JWT.Secret)
	setString(v, KeyRedisAddr, &c.Redis.Addr)
	setString(v, KeyLogLevel, &c.Log.Level)
	setString(v, KeyLogFile, &c.Log.File)
}

func setString(v *viper.Viper, key string, dst *string) {
	if value := strings.TrimSpace(v.GetString(key)); value != "" {
		*dst = value
	}
}
