package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported storage drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory" // process memory only, nothing survives a restart
)

type Config struct {
	Port string
	Log  Log
	HTTP HTTP
	DB   DB
	Auth Auth
}

type Log struct {
	Level  string
	Format string
}

type HTTP struct {
	RequestTimeout time.Duration
}

// DB holds connection parameters. Path is only used by the sqlite driver.
type DB struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Path     string
}

// Auth configures tokens. AdminUsername and AdminPassword name an admin
// account created at startup; both or neither must be set.
type Auth struct {
	SigningKey    string
	Required      bool
	TokenTTL      time.Duration
	AdminUsername string
	AdminPassword string
}

// env bindings: viper key -> environment variable.
var envBindings = map[string]string{
	"port":                 "PORT",
	"log.level":            "LOG_LEVEL",
	"log.format":           "LOG_FORMAT",
	"http.request_timeout": "HTTP_REQUEST_TIMEOUT",
	"db.driver":            "DB_DRIVER",
	"db.host":              "DB_HOST",
	"db.port":              "DB_PORT",
	"db.user":              "DB_USER",
	"db.password":          "DB_PASSWORD",
	"db.database":          "DB_DATABASE",
	"db.path":              "DB_PATH",
	"auth.signing_key":     "AUTH_SIGNING_KEY",
	"auth.required":        "AUTH_REQUIRED",
	"auth.token_ttl":       "AUTH_TOKEN_TTL",
	"auth.admin_username":  "AUTH_ADMIN_USERNAME",
	"auth.admin_password":  "AUTH_ADMIN_PASSWORD",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "3000")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("http.request_timeout", 15*time.Second)
	v.SetDefault("db.driver", DriverMySQL)
	v.SetDefault("db.host", "127.0.0.1")
	v.SetDefault("db.port", 3306)
	v.SetDefault("db.path", "app.db")
	v.SetDefault("auth.required", false)
	v.SetDefault("auth.token_ttl", time.Hour)
}

// Load reads .env (if present), then configs/config.yml from the given search
// paths (if present), then the process environment. Later sources win.
func Load(searchPaths ...string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}
	if len(searchPaths) > 0 {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	cfg := Config{
		Port: v.GetString("port"),
		Log: Log{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		HTTP: HTTP{
			RequestTimeout: v.GetDuration("http.request_timeout"),
		},
		DB: DB{
			Driver:   v.GetString("db.driver"),
			Host:     v.GetString("db.host"),
			Port:     v.GetInt("db.port"),
			User:     v.GetString("db.user"),
			Password: v.GetString("db.password"),
			Database: v.GetString("db.database"),
			Path:     v.GetString("db.path"),
		},
		Auth: Auth{
			SigningKey:    v.GetString("auth.signing_key"),
			Required:      v.GetBool("auth.required"),
			TokenTTL:      v.GetDuration("auth.token_ttl"),
			AdminUsername: v.GetString("auth.admin_username"),
			AdminPassword: v.GetString("auth.admin_password"),
		},
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.DB.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unsupported db driver %q", c.DB.Driver)
	}
	if c.Port == "" {
		return errors.New("port is empty")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth token ttl must be positive, got %s", c.Auth.TokenTTL)
	}
	if (c.Auth.AdminUsername == "") != (c.Auth.AdminPassword == "") {
		return errors.New("AUTH_ADMIN_USERNAME and AUTH_ADMIN_PASSWORD must be set together")
	}
	return nil
}
