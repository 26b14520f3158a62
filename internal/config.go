package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/coldcases/internal/catalog"
	"github.com/starford/coldcases/internal/index"
	"github.com/starford/coldcases/internal/models"
	"github.com/starford/coldcases/internal/storage"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Catalog CatalogConfig     `yaml:"catalog"`
	Search  SearchConfig      `yaml:"search"`
	Index   IndexConfig       `yaml:"index"`
	Events  EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Catalog.Validate(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	return c.Events.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// CatalogConfig describes where case folders live and how they are loaded.
// An empty PhotosPath means <path>/photos.
type CatalogConfig struct {
	Path        string        `yaml:"path"`
	PhotosPath  string        `yaml:"photos_path"`
	Exclude     []string      `yaml:"exclude"`
	Statuses    []string      `yaml:"statuses"`
	Concurrency int           `yaml:"concurrency"`
	Watch       bool          `yaml:"watch"`
	Settle      time.Duration `yaml:"settle"`
}

// Validate validates the catalog configuration.
func (c *CatalogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Statuses, validation.Required, validation.Each(validation.Required)),
		validation.Field(&c.Concurrency, validation.Required, validation.Min(1), validation.Max(256)),
		validation.Field(&c.Settle, validation.Min(time.Duration(0))),
	)
}

// SearchConfig holds the search input settings.
type SearchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Required, validation.Min(time.Millisecond)),
	)
}

// IndexConfig holds the narrative index settings. An empty DSN disables
// full-text search.
type IndexConfig struct {
	DSN string `yaml:"dsn"`
}

// EventsConfig holds SSE settings.
type EventsConfig struct {
	Throttle time.Duration `yaml:"throttle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Throttle, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Catalog: CatalogConfig{
			Path:        "./cases",
			Exclude:     append([]string(nil), storage.DefaultExclude...),
			Statuses:    append([]string(nil), models.DefaultStatuses...),
			Concurrency: 8,
			Watch:       true,
			Settle:      catalog.DefaultSettle,
		},
		Search: SearchConfig{
			Debounce: catalog.DefaultDebounce,
		},
		Index: IndexConfig{
			DSN: index.DefaultDSN,
		},
		Events: EventsConfig{
			Throttle: 2 * time.Second,
		},
	}
}
