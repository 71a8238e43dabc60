package config

import (
	"testing"
	"time"
)

// TestParseCities verifies the CODE:Name:lat:lon list format.
func TestParseCities(t *testing.T) {
	list, err := parseCities("GUA:Guatemala City:14.63:-90.51; QEZ:Quetzaltenango:14.84:-91.52")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(list) != 2 {
		t.Fatalf("expected 2 cities, got %d", len(list))
	}
	if list[0].Code != "GUA" || list[0].Name != "Guatemala City" {
		t.Fatalf("unexpected first city: %+v", list[0])
	}
	if list[1].Lat != 14.84 || list[1].Lon != -91.52 {
		t.Fatalf("unexpected second city coords: %+v", list[1])
	}
}

// TestParseCitiesInvalid verifies malformed entries are rejected.
func TestParseCitiesInvalid(t *testing.T) {
	cases := []string{
		"GUA:Guatemala City:14.63",
		"GUA:Guatemala City:abc:-90.51",
		"GUA:Guatemala City:14.63:xyz",
	}
	for _, raw := range cases {
		if _, err := parseCities(raw); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}

// TestParseCitiesEmpty verifies an unset list is not an error.
func TestParseCitiesEmpty(t *testing.T) {
	list, err := parseCities("  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list != nil {
		t.Fatalf("expected no cities, got %+v", list)
	}
}

// TestLoadDefaults verifies the defaults applied with a bare environment.
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.AnimationFrames != 10 {
		t.Fatalf("expected default frame window 10, got %d", cfg.AnimationFrames)
	}
	if cfg.FrameDelay != 400*time.Millisecond {
		t.Fatalf("expected default frame delay 400ms, got %v", cfg.FrameDelay)
	}
	if cfg.MaxFrameSide != 600 {
		t.Fatalf("expected default max frame side 600, got %d", cfg.MaxFrameSide)
	}
	if cfg.Satellite != "GOESEastfullDiskband13" {
		t.Fatalf("unexpected default satellite: %q", cfg.Satellite)
	}
}
