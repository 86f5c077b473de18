package config

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Isochrone EndpointConfig  `mapstructure:"isochrone"`
	Geocoder  EndpointConfig  `mapstructure:"geocoder"`
	Map       MapConfig       `mapstructure:"map"`
	Query     QueryConfig     `mapstructure:"query"`
	Cache     CacheConfig     `mapstructure:"cache"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// EndpointConfig describes a remote HTTP API.
type EndpointConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Timeout  int    `mapstructure:"timeout"` // seconds
}

// TimeoutDuration returns Timeout as a time.Duration.
func (e EndpointConfig) TimeoutDuration() time.Duration {
	return time.Duration(e.Timeout) * time.Second
}

type MapConfig struct {
	Style     string  `mapstructure:"style"`
	CenterLng float64 `mapstructure:"center_lng"`
	CenterLat float64 `mapstructure:"center_lat"`
	Zoom      float64 `mapstructure:"zoom"`
}

type QueryConfig struct {
	DefaultCutoffs string `mapstructure:"default_cutoffs"`
	DebounceMS     int    `mapstructure:"debounce_ms"`
}

// Debounce returns the search quiet period.
func (q QueryConfig) Debounce() time.Duration {
	return time.Duration(q.DebounceMS) * time.Millisecond
}

type CacheConfig struct {
	IsochroneTTL int `mapstructure:"isochrone_ttl"`
	PlaceTTL     int `mapstructure:"place_ttl"`
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

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("isochrone.endpoint", "http://localhost:8081/otp/traveltime/isochrone")
	v.SetDefault("isochrone.timeout", 30)
	v.SetDefault("geocoder.endpoint", "http://localhost:4000/v1/autocomplete")
	v.SetDefault("geocoder.timeout", 10)
	v.SetDefault("map.style", "https://demotiles.maplibre.org/style.json")
	v.SetDefault("map.center_lng", -2.935)
	v.SetDefault("map.center_lat", 43.263)
	v.SetDefault("map.zoom", 11)
	v.SetDefault("query.default_cutoffs", "15m, 30m, 45m")
	v.SetDefault("query.debounce_ms", 300)
	v.SetDefault("cache.isochrone_ttl", 60)
	v.SetDefault("cache.place_ttl", 300)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: ISOVIEW_ISOCHRONE_ENDPOINT → isochrone.endpoint
	v.SetEnvPrefix("ISOVIEW")
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
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if !isHTTPURL(c.Isochrone.Endpoint) {
		errs = append(errs, fmt.Sprintf("isochrone.endpoint must be an http(s) URL, got %q", c.Isochrone.Endpoint))
	}
	if c.Isochrone.Timeout <= 0 {
		errs = append(errs, "isochrone.timeout must be positive")
	}
	if !isHTTPURL(c.Geocoder.Endpoint) {
		errs = append(errs, fmt.Sprintf("geocoder.endpoint must be an http(s) URL, got %q", c.Geocoder.Endpoint))
	}
	if c.Geocoder.Timeout <= 0 {
		errs = append(errs, "geocoder.timeout must be positive")
	}
	if c.Map.Style == "" {
		errs = append(errs, "map.style is required")
	}
	if math.Abs(c.Map.CenterLat) > 90 || math.Abs(c.Map.CenterLng) > 180 {
		errs = append(errs, fmt.Sprintf("map center out of range: %f,%f", c.Map.CenterLat, c.Map.CenterLng))
	}
	if c.Map.Zoom < 0 || c.Map.Zoom > 24 {
		errs = append(errs, fmt.Sprintf("map.zoom must be 0-24, got %v", c.Map.Zoom))
	}
	if c.Query.DebounceMS <= 0 {
		errs = append(errs, "query.debounce_ms must be positive")
	}
	if c.Cache.IsochroneTTL < 0 || c.Cache.PlaceTTL < 0 {
		errs = append(errs, "cache ttl values must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
