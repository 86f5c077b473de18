package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		Server:    ServerConfig{Port: 8080, ReadTimeout: 10, WriteTimeout: 10},
		Isochrone: EndpointConfig{Endpoint: "http://otp:8080/otp/traveltime/isochrone", Timeout: 30},
		Geocoder:  EndpointConfig{Endpoint: "https://geocode.example/v1/autocomplete", Timeout: 10},
		Map:       MapConfig{Style: "style.json", CenterLng: -2.935, CenterLat: 43.263, Zoom: 11},
		Query:     QueryConfig{DefaultCutoffs: "15m", DebounceMS: 300},
	}
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Isochrone.Endpoint = "otp:8080"
	cfg.Query.DebounceMS = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "isochrone.endpoint", "query.debounce_ms"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got: %v", want, err)
		}
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ISOVIEW_ISOCHRONE_ENDPOINT", "http://otp.internal/otp/traveltime/isochrone")
	t.Setenv("ISOVIEW_QUERY_DEBOUNCE_MS", "150")

	cfg, err := Load("isoview-test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Isochrone.Endpoint != "http://otp.internal/otp/traveltime/isochrone" {
		t.Errorf("endpoint not overridden: %s", cfg.Isochrone.Endpoint)
	}
	if cfg.Query.Debounce().Milliseconds() != 150 {
		t.Errorf("expected 150ms debounce, got %s", cfg.Query.Debounce())
	}
	if cfg.Telemetry.ServiceName != "isoview-test" {
		t.Errorf("expected service name default, got %s", cfg.Telemetry.ServiceName)
	}
}
