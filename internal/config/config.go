package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

// Backend selects which storage adapter the process runs on.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Auth    AuthConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type StorageConfig struct {
	Backend    Backend
	SQLitePath string
	Postgres   PostgresConfig
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN builds the connection string for the networked backend.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

type AuthConfig struct {
	JWTSecret     string
	AdminUser     string
	AdminPassword string
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("STORAGE_BACKEND", "memory")
	viper.SetDefault("SQLITE_PATH", "stockroom.db")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("ADMIN_USER", "admin")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Storage: StorageConfig{
			Backend:    Backend(viper.GetString("STORAGE_BACKEND")),
			SQLitePath: viper.GetString("SQLITE_PATH"),
			Postgres: PostgresConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				Database: viper.GetString("DB_DATABASE"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
		},
		Auth: AuthConfig{
			JWTSecret:     viper.GetString("JWT_SECRET"),
			AdminUser:     viper.GetString("ADMIN_USER"),
			AdminPassword: viper.GetString("ADMIN_PASSWORD"),
		},
	}
}

// Validate rejects configurations the process cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.Storage.Postgres.User == "" || c.Storage.Postgres.Database == "" {
			return fmt.Errorf("DB_USER and DB_DATABASE are required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Auth.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required")
	}
	return nil
}
