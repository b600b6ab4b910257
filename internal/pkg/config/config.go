package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Geocoder  GeocoderConfig  `mapstructure:"geocoder"`
	Map       MapConfig       `mapstructure:"map"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	CORSOrigins  string `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// RoutingConfig points at an OSRM-compatible directions service.
type RoutingConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Profile string `mapstructure:"profile"`
	Timeout int    `mapstructure:"timeout"`
}

// GeocoderConfig points at a Nominatim-compatible reverse geocoder.
type GeocoderConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`
	Timeout   int    `mapstructure:"timeout"`
	CacheTTL  int    `mapstructure:"cache_ttl"`
}

// MapConfig configures interactive map sessions.
type MapConfig struct {
	RegionsURL      string        `mapstructure:"regions_url"`
	FallbackFile    string        `mapstructure:"fallback_file"`
	OverlaysFile    string        `mapstructure:"overlays_file"`
	LoadingTimeout  int           `mapstructure:"loading_timeout"`
	BoundaryTimeout int           `mapstructure:"boundary_timeout"`
	Center          []float64     `mapstructure:"center"`
	Zoom            float64       `mapstructure:"zoom"`
	FocusZoom       float64       `mapstructure:"focus_zoom"`
	Pitch           float64       `mapstructure:"pitch"`
	Bearing         float64       `mapstructure:"bearing"`
	Style           string        `mapstructure:"style"`
	DarkStyle       string        `mapstructure:"dark_style"`
	PulseFPS        int           `mapstructure:"pulse_fps"`
	Terrain         TerrainConfig `mapstructure:"terrain"`
}

// TerrainConfig is the elevation source draped under the 3D map.
type TerrainConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	DEMURL       string  `mapstructure:"dem_url"`
	TileSize     int     `mapstructure:"tile_size"`
	MaxZoom      int     `mapstructure:"max_zoom"`
	Exaggeration float64 `mapstructure:"exaggeration"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	TaskQueue string `mapstructure:"task_queue"`
}

// Load reads configuration from .env, file and environment variables.
func Load(service string) (*Config, error) {
	_ = godotenv.Load() // OK if missing

	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.cors_origins", "http://localhost:3000, http://localhost:5173")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "villagemap")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("routing.base_url", "https://router.project-osrm.org")
	v.SetDefault("routing.profile", "driving")
	v.SetDefault("routing.timeout", 10)
	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.user_agent", "villagemap/1.0")
	v.SetDefault("geocoder.timeout", 5)
	v.SetDefault("geocoder.cache_ttl", 86400)
	v.SetDefault("map.regions_url", "http://localhost:3001")
	v.SetDefault("map.fallback_file", "data/saribudolok.geojson")
	v.SetDefault("map.overlays_file", "configs/overlays.yaml")
	v.SetDefault("map.loading_timeout", 8)
	v.SetDefault("map.boundary_timeout", 5)
	v.SetDefault("map.center", []float64{98.60877, 2.9956})
	v.SetDefault("map.zoom", 14)
	v.SetDefault("map.focus_zoom", 15.5)
	v.SetDefault("map.pitch", 60)
	v.SetDefault("map.bearing", -17)
	v.SetDefault("map.style", "https://demotiles.maplibre.org/style.json")
	v.SetDefault("map.dark_style", "https://tiles.openfreemap.org/styles/dark")
	v.SetDefault("map.pulse_fps", 30)
	v.SetDefault("map.terrain.enabled", true)
	v.SetDefault("map.terrain.dem_url", "https://demotiles.maplibre.org/terrain-tiles/tiles.json")
	v.SetDefault("map.terrain.tile_size", 256)
	v.SetDefault("map.terrain.max_zoom", 14)
	v.SetDefault("map.terrain.exaggeration", 1.5)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.task_queue", "region-import-queue")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: VILLAGEMAP_DATABASE_HOST → database.host
	v.SetEnvPrefix("VILLAGEMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Routing.BaseURL == "" {
		errs = append(errs, "routing.base_url is required")
	}
	if c.Geocoder.BaseURL == "" {
		errs = append(errs, "geocoder.base_url is required")
	}
	if len(c.Map.Center) != 2 {
		errs = append(errs, fmt.Sprintf("map.center must be [lng, lat], got %d values", len(c.Map.Center)))
	} else if c.Map.Center[0] < -180 || c.Map.Center[0] > 180 || c.Map.Center[1] < -90 || c.Map.Center[1] > 90 {
		errs = append(errs, "map.center is out of range")
	}
	if c.Map.LoadingTimeout <= 0 {
		errs = append(errs, "map.loading_timeout must be positive")
	}
	if c.Map.BoundaryTimeout <= 0 {
		errs = append(errs, "map.boundary_timeout must be positive")
	}
	if t := c.Map.Terrain; t.Enabled {
		if t.DEMURL == "" {
			errs = append(errs, "map.terrain.dem_url is required when terrain is enabled")
		}
		if t.Exaggeration <= 0 {
			errs = append(errs, "map.terrain.exaggeration must be positive")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
