// Package config loads tripcost settings from viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/tripcost/internal/common"
	"github.com/Veraticus/tripcost/internal/fare"
	"github.com/Veraticus/tripcost/internal/seed"
)

// EnvPrefix is prepended to every environment override, e.g. TRIPCOST_DATABASE_PATH.
const EnvPrefix = "TRIPCOST"

// Geocoder providers.
const (
	GeocoderStatic    = "static"
	GeocoderNominatim = "nominatim"
)

// Config is the resolved application configuration.
type Config struct {
	Database DatabaseConfig
	Geocoder GeocoderConfig
	Logging  common.LogOptions
	Model    ModelConfig
	Seed     SeedConfig
	Server   ServerConfig
	Fare     FareConfig
}

// DatabaseConfig selects the training store.
type DatabaseConfig struct {
	Driver string
	Path   string
	DSN    string
}

// ModelConfig locates the persisted model.
type ModelConfig struct {
	Path string
}

// SeedConfig locates the seed file and sizes generated seed data.
type SeedConfig struct {
	Path  string
	Trips int
}

// FareConfig holds the synthetic rail fare formula.
type FareConfig struct {
	Base  float64
	PerKm float64
}

// GeocoderConfig selects how city names become coordinates.
type GeocoderConfig struct {
	Provider  string
	URL       string
	UserAgent string
	Country   string
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "~/.local/share/tripcost/tripcost.db")
	v.SetDefault("model.path", "~/.local/share/tripcost/model.json")
	v.SetDefault("seed.path", "~/.local/share/tripcost/seed_trips.csv")
	v.SetDefault("seed.trips", seed.DefaultTrips)
	v.SetDefault("fare.base", fare.DefaultBaseFare)
	v.SetDefault("fare.per_km", fare.DefaultPerKmRate)
	v.SetDefault("geocoder.provider", GeocoderStatic)
	v.SetDefault("geocoder.country", "Switzerland")
	v.SetDefault("geocoder.user_agent", "tripcost")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
}

// BindEnv makes every key overridable from TRIPCOST_* variables.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the configuration from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Driver: strings.ToLower(v.GetString("database.driver")),
			Path:   ExpandPath(v.GetString("database.path")),
			DSN:    v.GetString("database.dsn"),
		},
		Model: ModelConfig{
			Path: ExpandPath(v.GetString("model.path")),
		},
		Seed: SeedConfig{
			Path:  ExpandPath(v.GetString("seed.path")),
			Trips: v.GetInt("seed.trips"),
		},
		Fare: FareConfig{
			Base:  v.GetFloat64("fare.base"),
			PerKm: v.GetFloat64("fare.per_km"),
		},
		Geocoder: GeocoderConfig{
			Provider:  strings.ToLower(v.GetString("geocoder.provider")),
			URL:       v.GetString("geocoder.url"),
			UserAgent: v.GetString("geocoder.user_agent"),
			Country:   v.GetString("geocoder.country"),
		},
		Server: ServerConfig{
			Addr: v.GetString("server.addr"),
		},
		Logging: common.LogOptions{
			Level:      v.GetString("logging.level"),
			Format:     v.GetString("logging.format"),
			File:       ExpandPath(v.GetString("logging.file")),
			MaxSizeMB:  v.GetInt("logging.max_size_mb"),
			MaxBackups: v.GetInt("logging.max_backups"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late and obscurely.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "sqlite3":
		if c.Database.Path == "" {
			return fmt.Errorf("%w: database.path", common.ErrMissingConfig)
		}
	case "postgres", "postgresql":
		if c.Database.DSN == "" {
			return fmt.Errorf("%w: database.dsn is required for %s", common.ErrMissingConfig, c.Database.Driver)
		}
	default:
		return fmt.Errorf("%w: unknown database.driver %q", common.ErrInvalidConfig, c.Database.Driver)
	}

	if c.Model.Path == "" {
		return fmt.Errorf("%w: model.path", common.ErrMissingConfig)
	}
	if c.Seed.Trips < 0 {
		return fmt.Errorf("%w: seed.trips must not be negative", common.ErrInvalidConfig)
	}
	if c.Fare.Base < 0 || c.Fare.PerKm < 0 {
		return fmt.Errorf("%w: fare values must not be negative", common.ErrInvalidConfig)
	}

	switch c.Geocoder.Provider {
	case GeocoderStatic:
	case GeocoderNominatim:
		if c.Geocoder.UserAgent == "" {
			return fmt.Errorf("%w: geocoder.user_agent is required for nominatim", common.ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: unknown geocoder.provider %q", common.ErrInvalidConfig, c.Geocoder.Provider)
	}

	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// ExpandPath resolves a leading ~ to the home directory and expands $VAR
// references. An empty path stays empty.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}

	return os.ExpandEnv(path)
}
