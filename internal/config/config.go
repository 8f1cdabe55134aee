// Package config loads SQL Server connection settings from environment
// variables and an optional config file. The password is never logged.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/SedlarDavid/mssqlconn/internal/db"
)

// Environment variables. Env values override the config file.
const (
	EnvHost            = "MSSQL_HOST_PROD"
	EnvTestHost        = "MSSQL_HOST_TEST"
	EnvDatabase        = "MSSQL_DBNAME"
	EnvTrusted         = "TRUSTED_CONNECTION"
	EnvEncrypt         = "MSSQL_ENCRYPT"
	EnvTrustServerCert = "MSSQL_TRUSTSERVERCERT"
	EnvUser            = "MSSQL_USER"
	EnvPassword        = "MSSQL_PASSWORD"
	EnvTransport       = "MSSQL_TRANSPORT"
	EnvConnectTimeout  = "MSSQL_CONNECT_TIMEOUT"
	EnvSQLDir          = "MSSQL_SQL_DIR"
	EnvLogLevel        = "MSSQLCONN_LOG_LEVEL"
	EnvLogFile         = "MSSQLCONN_LOG_FILE"
	EnvConfigFile      = "MSSQLCONN_CONFIG"
)

// DefaultConfigDir is the directory for the optional config file.
// Config file path: ~/.mssqlconn/config.yaml
const DefaultConfigDir = ".mssqlconn"
const ConfigFileName = "config.yaml"

// Defaults applied before the file and the environment.
const (
	DefaultHost            = "localhost"
	DefaultTrusted         = "yes"
	DefaultEncrypt         = "True"
	DefaultTrustServerCert = "True"
)

// ErrMissingDatabase is returned by Load when no database name is configured.
var ErrMissingDatabase = errors.New(EnvDatabase + " is required")

// Config holds the loaded settings.
type Config struct {
	Host            string
	Database        string
	Trusted         bool
	Encrypt         bool
	TrustServerCert bool
	User            string
	password        string

	// Hosts maps aliases ("prod", "test") to host names for retargeting.
	Hosts map[string]string

	Transport      string
	ConnectTimeout time.Duration
	SQLDir         string
	Log            LogConfig
}

// LogConfig configures logging output.
type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type fileFormat struct {
	Host            string            `yaml:"host"`
	Database        string            `yaml:"database"`
	Trusted         string            `yaml:"trusted_connection"`
	Encrypt         string            `yaml:"encrypt"`
	TrustServerCert string            `yaml:"trust_server_certificate"`
	User            string            `yaml:"user"`
	Password        string            `yaml:"password"`
	Hosts           map[string]string `yaml:"hosts"`
	Transport       string            `yaml:"transport"`
	ConnectTimeout  string            `yaml:"connect_timeout"`
	SQLDir          string            `yaml:"sql_dir"`
	Log             struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   *bool  `yaml:"compress"`
	} `yaml:"log"`
}

// Load reads the optional config file ($MSSQLCONN_CONFIG or
// ~/.mssqlconn/config.yaml) and then the environment. A database name is
// required.
func Load() (*Config, error) {
	// String values from the file and the environment, parsed last.
	r := &fileFormat{
		Host:            DefaultHost,
		Trusted:         DefaultTrusted,
		Encrypt:         DefaultEncrypt,
		TrustServerCert: DefaultTrustServerCert,
		Transport:       db.TransportODBC,
		Hosts:           make(map[string]string),
	}

	// 1) Optional config file (base)
	configPath, err := configFilePath()
	if err != nil {
		return nil, fmt.Errorf("config path: %w", err)
	}
	if configPath != "" {
		if err := r.loadFile(configPath); err != nil {
			return nil, fmt.Errorf("config file %s: %w", configPath, err)
		}
	}

	// 2) Env overrides
	r.loadEnv()

	return r.parse()
}

func configFilePath() (string, error) {
	if p := os.Getenv(EnvConfigFile); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	p := filepath.Join(home, DefaultConfigDir, ConfigFileName)
	_, err = os.Stat(p)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return p, nil
}

func (r *fileFormat) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return err
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&r.Host, f.Host)
	set(&r.Database, f.Database)
	set(&r.Trusted, f.Trusted)
	set(&r.Encrypt, f.Encrypt)
	set(&r.TrustServerCert, f.TrustServerCert)
	set(&r.User, f.User)
	set(&r.Password, f.Password)
	set(&r.Transport, f.Transport)
	set(&r.ConnectTimeout, f.ConnectTimeout)
	set(&r.SQLDir, f.SQLDir)
	for alias, host := range f.Hosts {
		if host != "" {
			r.Hosts[alias] = host
		}
	}
	r.Log = f.Log
	return nil
}

func (r *fileFormat) loadEnv() {
	env := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	env(&r.Host, EnvHost)
	env(&r.Database, EnvDatabase)
	env(&r.Trusted, EnvTrusted)
	env(&r.Encrypt, EnvEncrypt)
	env(&r.TrustServerCert, EnvTrustServerCert)
	env(&r.User, EnvUser)
	env(&r.Password, EnvPassword)
	env(&r.Transport, EnvTransport)
	env(&r.ConnectTimeout, EnvConnectTimeout)
	env(&r.SQLDir, EnvSQLDir)
	env(&r.Log.Level, EnvLogLevel)
	env(&r.Log.File, EnvLogFile)

	if v := os.Getenv(EnvHost); v != "" {
		r.Hosts["prod"] = v
	}
	if v := os.Getenv(EnvTestHost); v != "" {
		r.Hosts["test"] = v
	}
}

func (r *fileFormat) parse() (*Config, error) {
	c := &Config{
		Host:      r.Host,
		Database:  r.Database,
		User:      r.User,
		password:  r.Password,
		Hosts:     r.Hosts,
		Transport: strings.ToLower(r.Transport),
		SQLDir:    r.SQLDir,
		Log: LogConfig{
			Level:      r.Log.Level,
			File:       r.Log.File,
			MaxSizeMB:  r.Log.MaxSizeMB,
			MaxBackups: r.Log.MaxBackups,
			MaxAgeDays: r.Log.MaxAgeDays,
			Compress:   true,
		},
	}
	if r.Log.Compress != nil {
		c.Log.Compress = *r.Log.Compress
	}

	var err error
	if c.Trusted, err = ParseFlag(r.Trusted); err != nil {
		return nil, fmt.Errorf("%s: %w", EnvTrusted, err)
	}
	if c.Encrypt, err = ParseFlag(r.Encrypt); err != nil {
		return nil, fmt.Errorf("%s: %w", EnvEncrypt, err)
	}
	if c.TrustServerCert, err = ParseFlag(r.TrustServerCert); err != nil {
		return nil, fmt.Errorf("%s: %w", EnvTrustServerCert, err)
	}

	c.ConnectTimeout = db.DefaultConnectTimeout
	if r.ConnectTimeout != "" {
		d, err := time.ParseDuration(r.ConnectTimeout)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvConnectTimeout, err)
		}
		c.ConnectTimeout = d
	}

	switch c.Transport {
	case db.TransportODBC, db.TransportNative:
	default:
		return nil, fmt.Errorf("%s: unsupported transport %q", EnvTransport, r.Transport)
	}

	if c.Database == "" {
		return nil, ErrMissingDatabase
	}
	return c, nil
}

// ParseFlag parses yes/no style flags: yes, true, 1, on and no, false, 0,
// off, in any case.
func ParseFlag(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true", "1", "on":
		return true, nil
	case "no", "false", "0", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid flag value %q", v)
}

// Settings returns the connection settings for db.New. The driver name is
// chosen by the Manager.
func (c *Config) Settings() db.Settings {
	return db.Settings{
		Host:            c.Host,
		Database:        c.Database,
		Trusted:         c.Trusted,
		Encrypt:         c.Encrypt,
		TrustServerCert: c.TrustServerCert,
		User:            c.User,
		Password:        c.password,
	}
}

// ManagerOptions returns the db.Manager options implied by the config.
func (c *Config) ManagerOptions() []db.Option {
	return []db.Option{
		db.WithTransport(c.Transport),
		db.WithConnectTimeout(c.ConnectTimeout),
		db.WithSQLDir(c.SQLDir),
	}
}

// ResolveHost maps a host alias ("prod", "test") to its host name. Other
// values are returned unchanged.
func (c *Config) ResolveHost(host string) string {
	if h, ok := c.Hosts[host]; ok {
		return h
	}
	return host
}
