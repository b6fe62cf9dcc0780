package core

import (
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env          string // DEV (local; default), TEST, QA, PROD
		Debug        bool
		TestMode     bool
		AppName      string
		Build        string
		RollbarToken string
		Database     DatabaseConfig
	}

	DatabaseConfig struct {
		URL            string // DATABASE_URL; overrides the discrete fields when set
		Engine         string
		Host           string
		Port           string
		Name           string
		User           string
		Password       string
		AdminUser      string
		AdminPassword  string
		DisableTLS     bool
		ConnectTimeout time.Duration
		MaxOpenConns   int
	}
)

// configKeys maps every setting to the environment variable it is read from.
var configKeys = map[string]string{
	"env":               "ENV",
	"debug":             "DEBUG",
	"appName":           "APP_NAME",
	"build":             "BUILD",
	"rollbarToken":      "ROLLBAR_TOKEN",
	"db.url":            "DATABASE_URL",
	"db.host":           "DB_HOST",
	"db.port":           "DB_PORT",
	"db.name":           "DB_NAME",
	"db.user":           "DB_USER",
	"db.password":       "DB_PASSWORD",
	"db.adminUser":      "DB_ADMIN_USER",
	"db.adminPassword":  "DB_ADMIN_PASSWORD",
	"db.disableTLS":     "DB_DISABLE_TLS",
	"db.connectTimeout": "DB_CONNECT_TIMEOUT",
	"db.maxOpenConns":   "DB_MAX_OPEN_CONNS",
}

// NewConfig reads the process environment (and an optional config/.env.<env> file).
// Any inconsistency is reported as a KindConfig error.
func NewConfig() (*Config, error) {
	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, NewError(KindConfig, errors.Wrapf(err, "loading %s", dotEnvPath).Error())
		}
	} else if !os.IsNotExist(err) {
		return nil, NewError(KindConfig, errors.Wrapf(err, "stat %s", dotEnvPath).Error())
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("env", env)
	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("appName", "Academia Amigo do Povo")
	v.SetDefault("build", "dev")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("db.url", "")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.name", "academia_amigo_povo")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.adminUser", "")
	v.SetDefault("db.adminPassword", "")
	v.SetDefault("db.disableTLS", true)
	v.SetDefault("db.connectTimeout", 10*time.Second)
	v.SetDefault("db.maxOpenConns", 5)
	for key, envVar := range configKeys {
		if err := v.BindEnv(key, envVar); err != nil {
			return nil, NewError(KindConfig, errors.Wrapf(err, "binding %s", envVar).Error())
		}
	}

	conf := &Config{
		Env:          env,
		Debug:        v.GetBool("debug"),
		TestMode:     env == "TEST",
		AppName:      v.GetString("appName"),
		Build:        v.GetString("build"),
		RollbarToken: v.GetString("rollbarToken"),
		Database: DatabaseConfig{
			URL:            strings.TrimSpace(v.GetString("db.url")),
			Engine:         "postgres",
			Host:           strings.TrimSpace(v.GetString("db.host")),
			Port:           strings.TrimSpace(v.GetString("db.port")),
			Name:           v.GetString("db.name"),
			User:           v.GetString("db.user"),
			Password:       v.GetString("db.password"),
			AdminUser:      v.GetString("db.adminUser"),
			AdminPassword:  v.GetString("db.adminPassword"),
			DisableTLS:     v.GetBool("db.disableTLS"),
			ConnectTimeout: v.GetDuration("db.connectTimeout"),
			MaxOpenConns:   v.GetInt("db.maxOpenConns"),
		},
	}
	if err := conf.Database.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Validate checks that the settings can describe a reachable store.
func (c DatabaseConfig) Validate() error {
	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil {
			return NewError(KindConfig, "DATABASE_URL is malformed: "+err.Error())
		}
		if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			return NewError(KindConfig, "DATABASE_URL must use the postgres scheme")
		}
		if u.Host == "" {
			return NewError(KindConfig, "DATABASE_URL has no host")
		}
		return nil
	}
	if c.Host == "" {
		return NewError(KindConfig, "DB_HOST is empty")
	}
	if port, err := strconv.Atoi(c.Port); err != nil || port <= 0 || port > 65535 {
		return NewError(KindConfig, "DB_PORT must be a valid port number, got "+strconv.Quote(c.Port))
	}
	if c.Name == "" {
		return NewError(KindConfig, "DB_NAME is empty")
	}
	return nil
}

// Address returns host:port of the store.
func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// DSN returns the connection string for dbName, optionally using the admin credentials.
// DATABASE_URL is returned untouched when set.
func (c DatabaseConfig) DSN(dbName string, admin bool) string {
	if c.URL != "" && !admin {
		return c.URL
	}

	user := url.UserPassword(c.User, c.Password)
	if c.Password == "" {
		user = url.User(c.User)
	}
	if admin && c.AdminUser != "" {
		user = url.UserPassword(c.AdminUser, c.AdminPassword)
	}

	sslMode := "require"
	if c.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")
	if c.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(c.ConnectTimeout.Seconds())))
	}

	u := url.URL{
		Scheme:   c.Engine,
		User:     user,
		Host:     c.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}
