package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Region is the deployment region stamped on logs, status snapshots and
	// notifications.
	Region string `yaml:"region"`

	HTTP    HTTPConfig    `yaml:"http"`
	Store   StoreConfig   `yaml:"store"`
	Redis   RedisConfig   `yaml:"redis"`
	Tracing TracingConfig `yaml:"tracing"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type StoreConfig struct {
	// Driver selects the durable store: sqlite or mysql.
	Driver string `yaml:"driver"`

	Sqlite SqliteConfig `yaml:"sqlite"`
	Mysql  MysqlConfig  `yaml:"mysql"`
}

type SqliteConfig struct {
	Path string `yaml:"path"`
}

type MysqlConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type RedisConfig struct {
	// Addr enables the Redis status notifier when set.
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type TracingConfig struct {
	// Exporter is empty (disabled), stdout or otlp.
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP HTTP endpoint, host:port.
	Endpoint string `yaml:"endpoint"`
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{Addr: ":8080"},
		Store: StoreConfig{
			Driver: "sqlite",
			Sqlite: SqliteConfig{Path: "interviewflow.sqlite"},
			Mysql:  MysqlConfig{Host: "localhost", Port: 3306, User: "root", Database: "interviewflow"},
		},
	}
}

// loadConfig reads the optional YAML config file and applies environment
// overrides on top.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	overrideString(&cfg.Region, "INTERVIEWD_REGION")
	overrideString(&cfg.HTTP.Addr, "INTERVIEWD_HTTP_ADDR")
	overrideString(&cfg.Store.Driver, "INTERVIEWD_STORE_DRIVER")
	overrideString(&cfg.Store.Sqlite.Path, "INTERVIEWD_SQLITE_PATH")
	overrideString(&cfg.Store.Mysql.Host, "INTERVIEWD_MYSQL_HOST")
	overrideInt(&cfg.Store.Mysql.Port, "INTERVIEWD_MYSQL_PORT")
	overrideString(&cfg.Store.Mysql.User, "INTERVIEWD_MYSQL_USER")
	overrideString(&cfg.Store.Mysql.Password, "INTERVIEWD_MYSQL_PASSWORD")
	overrideString(&cfg.Store.Mysql.Database, "INTERVIEWD_MYSQL_DATABASE")
	overrideString(&cfg.Redis.Addr, "INTERVIEWD_REDIS_ADDR")
	overrideString(&cfg.Redis.Password, "INTERVIEWD_REDIS_PASSWORD")
	overrideInt(&cfg.Redis.DB, "INTERVIEWD_REDIS_DB")
	overrideString(&cfg.Tracing.Exporter, "INTERVIEWD_TRACING_EXPORTER")
	overrideString(&cfg.Tracing.Endpoint, "INTERVIEWD_TRACING_ENDPOINT")

	switch cfg.Store.Driver {
	case "sqlite", "mysql":
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	return cfg, nil
}

func overrideString(target *string, env string) {
	if v, ok := os.LookupEnv(env); ok {
		*target = v
	}
}

func overrideInt(target *int, env string) {
	if v, ok := os.LookupEnv(env); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}
