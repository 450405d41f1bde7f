package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORE", "JWT_TTL", "OTEL_EXPORTER_OTLP_ENDPOINT"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Store != StoreSQLite {
		t.Errorf("Store = %q, want sqlite", cfg.Store)
	}
	if cfg.JWTTTL != 24*time.Hour {
		t.Errorf("JWTTTL = %v, want 24h", cfg.JWTTTL)
	}
	if cfg.OTLPEndpoint != "" {
		t.Errorf("OTLPEndpoint = %q, want empty", cfg.OTLPEndpoint)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed on defaults: %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE", "mongo")
	t.Setenv("MAX_RETRIES", "7")
	t.Setenv("INITIAL_BACKOFF", "250ms")
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")

	cfg := Load()
	if cfg.Port != 9090 || cfg.Addr() != ":9090" {
		t.Errorf("Port = %d, Addr = %s", cfg.Port, cfg.Addr())
	}
	if cfg.Store != StoreMongo {
		t.Errorf("Store = %q, want mongo", cfg.Store)
	}
	if cfg.MaxRetries != 7 || cfg.InitialBackoff != 250*time.Millisecond {
		t.Errorf("retries = %d, backoff = %v", cfg.MaxRetries, cfg.InitialBackoff)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("unparsable duration should fall back, got %v", cfg.ShutdownTimeout)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"ok", func(c *Config) {}, false},
		{"unknown store", func(c *Config) { c.Store = "redis" }, true},
		{"bad port", func(c *Config) { c.Port = 0 }, true},
		{"empty secret", func(c *Config) { c.JWTSecret = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Port: 8080, Store: StoreSQLite, JWTSecret: "s"}
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
