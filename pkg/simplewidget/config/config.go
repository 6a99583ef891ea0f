package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-widget/pkg/simplewidget"
	"github.com/tendant/simple-widget/pkg/simplewidget/repo/memory"
	repopg "github.com/tendant/simple-widget/pkg/simplewidget/repo/postgres"
	memorystorage "github.com/tendant/simple-widget/pkg/simplewidget/storage/memory"
	s3storage "github.com/tendant/simple-widget/pkg/simplewidget/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:                  "8080",
		Environment:           "development",
		PublicBaseURL:         "http://localhost:8080",
		JWTSecret:             "dev-secret",
		DatabaseType:          "memory",
		DBSchema:              "widgets",
		DefaultStorageBackend: "memory",
		StorageBackends: []StorageBackendConfig{
			{
				Name:   "memory",
				Type:   "memory",
				Config: map[string]interface{}{},
			},
		},
		SignedURLTTL: 24 * time.Hour,
	}
}

// ServerConfig represents server configuration for the simple-widget service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Public surface
	PublicBaseURL string
	JWTSecret     string

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"
	DBSchema     string // Postgres schema to use (default: widgets)

	// Storage configuration
	DefaultStorageBackend string
	StorageBackends       []StorageBackendConfig
	SignedURLTTL          time.Duration
}

// StorageBackendConfig represents configuration for a storage backend
type StorageBackendConfig struct {
	Name   string
	Type   string // "memory", "s3"
	Config map[string]interface{}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.PublicBaseURL == "" {
		return errors.New("public base URL is required")
	}

	if c.JWTSecret == "" {
		return errors.New("jwt secret is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	found := false
	for _, backend := range c.StorageBackends {
		if backend.Name == c.DefaultStorageBackend {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("default storage backend '%s' not found in configured backends", c.DefaultStorageBackend)
	}

	return nil
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService() (simplewidget.Service, error) {
	var options []simplewidget.Option

	repo, err := c.buildRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	options = append(options, simplewidget.WithRepository(repo))

	for _, backendConfig := range c.StorageBackends {
		store, err := c.buildStorageBackend(backendConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to build storage backend %s: %w", backendConfig.Name, err)
		}
		options = append(options, simplewidget.WithBlobStore(backendConfig.Name, store))
	}

	options = append(options,
		simplewidget.WithDefaultBackend(c.DefaultStorageBackend),
		simplewidget.WithPublicBaseURL(c.PublicBaseURL),
		simplewidget.WithSignedURLTTL(c.SignedURLTTL),
	)

	return simplewidget.New(options...)
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository() (simplewidget.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), nil
	case "postgres":
		if c.DatabaseURL == "" {
			return nil, errors.New("database_url is required for postgres")
		}
		cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		schema := c.DBSchema
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			if schema == "" {
				return nil
			}
			// set search_path for this session
			_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", schema))
			return err
		}
		pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		return repopg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// buildStorageBackend creates a BlobStore based on the backend configuration
func (c *ServerConfig) buildStorageBackend(backend StorageBackendConfig) (simplewidget.BlobStore, error) {
	switch backend.Type {
	case "memory":
		return memorystorage.New(), nil
	case "s3":
		s3cfg := s3storage.Config{
			Bucket:          stringValue(backend.Config, "bucket"),
			Region:          stringValue(backend.Config, "region"),
			AccessKeyID:     stringValue(backend.Config, "access_key_id"),
			SecretAccessKey: stringValue(backend.Config, "secret_access_key"),
			Endpoint:        stringValue(backend.Config, "endpoint"),
			UsePathStyle:    boolValue(backend.Config, "use_path_style"),
		}
		if ttl := c.SignedURLTTL; ttl > 0 {
			s3cfg.PresignDuration = int(ttl.Seconds())
		}
		return s3storage.New(s3cfg)
	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", backend.Type)
	}
}

func stringValue(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func boolValue(m map[string]interface{}, key string) bool {
	v, ok := m[key].(bool)
	return ok && v
}
