package config

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

var validSecret = base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": validSecret,
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.JWT.TTL != 4*time.Hour {
		t.Fatalf("expected 4h ttl, got %s", cfg.JWT.TTL)
	}
	if cfg.JWT.Leeway != 0 {
		t.Fatalf("expected zero leeway, got %s", cfg.JWT.Leeway)
	}
	if cfg.RoleSource != RoleSourceStore {
		t.Fatalf("expected store role source, got %s", cfg.RoleSource)
	}
	if cfg.Store.Backend != BackendMongo {
		t.Fatalf("expected mongo backend, got %s", cfg.Store.Backend)
	}
	if cfg.Hash.Algorithm != "bcrypt" || cfg.Hash.BcryptCost != 10 {
		t.Fatalf("unexpected hash defaults %+v", cfg.Hash)
	}
	if len(cfg.SigningKey) != 32 {
		t.Fatalf("expected decoded 32-byte key, got %d", len(cfg.SigningKey))
	}
	if cfg.Redis.Addr != "" {
		t.Fatalf("redis must be disabled by default")
	}
	if routes := cfg.Routes(); len(routes) != len(defaultPublicRoutes) {
		t.Fatalf("expected default public routes, got %v", routes)
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":    validSecret,
		"JWT_TTL":       "1h",
		"ROLE_SOURCE":   "token",
		"STORE_BACKEND": "postgres",
		"DATABASE_URL":  "postgres://localhost/auth",
		"PUBLIC_ROUTES": "/open, /docs/**",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.JWT.TTL != time.Hour || cfg.RoleSource != RoleSourceToken || cfg.Store.Backend != BackendPostgres {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	routes := cfg.Routes()
	if len(routes) != 2 || routes[0] != "/open" || routes[1] != "/docs/**" {
		t.Fatalf("unexpected routes %v", routes)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{}, "JWT_SECRET is required"},
		{"not base64", map[string]string{"JWT_SECRET": "!!!not base64!!!"}, "base64"},
		{"short secret", map[string]string{"JWT_SECRET": base64.StdEncoding.EncodeToString([]byte("short"))}, "at least 32 bytes"},
		{"bad role source", map[string]string{"JWT_SECRET": validSecret, "ROLE_SOURCE": "cookie"}, "ROLE_SOURCE"},
		{"bad backend", map[string]string{"JWT_SECRET": validSecret, "STORE_BACKEND": "sqlite"}, "STORE_BACKEND"},
		{"postgres without url", map[string]string{"JWT_SECRET": validSecret, "STORE_BACKEND": "postgres"}, "DATABASE_URL"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := load(context.Background(), envconfig.MapLookuper(tc.env))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}

func TestIsProduction(t *testing.T) {
	if !(&Config{Env: "Production"}).IsProduction() {
		t.Fatalf("expected production")
	}
	if (&Config{Env: "development"}).IsProduction() {
		t.Fatalf("expected non-production")
	}
}
