package config_test

import (
	"strings"
	"testing"

	"github.com/samirrijal/villagemap/internal/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("villagemap-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 3001 {
		t.Errorf("expected port 3001, got %d", cfg.Server.Port)
	}
	if len(cfg.Map.Center) != 2 || cfg.Map.Center[0] != 98.60877 {
		t.Errorf("unexpected map center %v", cfg.Map.Center)
	}
	if cfg.Routing.Profile != "driving" {
		t.Errorf("expected driving profile, got %q", cfg.Routing.Profile)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("VILLAGEMAP_SERVER_PORT", "8088")
	t.Setenv("VILLAGEMAP_MAP_LOADING_TIMEOUT", "3")

	cfg, err := config.Load("villagemap-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8088 {
		t.Errorf("expected port 8088, got %d", cfg.Server.Port)
	}
	if cfg.Map.LoadingTimeout != 3 {
		t.Errorf("expected loading timeout 3, got %d", cfg.Map.LoadingTimeout)
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := &config.Config{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "database.host", "routing.base_url", "map.center"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestLoad_TerrainDefaults(t *testing.T) {
	cfg, err := config.Load("villagemap-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr := cfg.Map.Terrain
	if !tr.Enabled || tr.DEMURL == "" {
		t.Errorf("expected terrain enabled with a DEM url, got %+v", tr)
	}
	if tr.Exaggeration != 1.5 {
		t.Errorf("expected exaggeration 1.5, got %v", tr.Exaggeration)
	}
}

func TestValidate_TerrainNeedsDEM(t *testing.T) {
	cfg, err := config.Load("villagemap-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.Map.Terrain.DEMURL = ""
	cfg.Map.Terrain.Exaggeration = 0
	err = cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"map.terrain.dem_url", "map.terrain.exaggeration"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestDSN(t *testing.T) {
	d := config.DatabaseConfig{User: "u", Password: "p", Host: "h", Port: 5432, DBName: "db", SSLMode: "disable"}
	if got := d.DSN(); got != "postgres://u:p@h:5432/db?sslmode=disable" {
		t.Errorf("unexpected DSN %q", got)
	}
}
