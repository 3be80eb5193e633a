package auth

import (
	"strings"
	"testing"
	"time"
)

func newService(t *testing.T, cfg Config) *Service {
	t.Helper()
	svc, err := NewService(&cfg)
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}
	return svc
}

func TestGenerateAndParse(t *testing.T) {
	svc := newService(t, Config{Secret: "test-secret", Issuer: "meshgate"})

	token, err := svc.Generate("users", "mesh")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("token is not a JWT: %q", token)
	}

	claims, err := svc.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if claims.Subject != "users" {
		t.Errorf("Subject = %q, want users", claims.Subject)
	}
	if claims.Scope != "mesh" {
		t.Errorf("Scope = %q, want mesh", claims.Scope)
	}
	if claims.Issuer != "meshgate" {
		t.Errorf("Issuer = %q, want meshgate", claims.Issuer)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	svc := newService(t, Config{Secret: "secret-a"})
	other := newService(t, Config{Secret: "secret-b"})

	token, err := svc.Generate("users", "mesh")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if _, err := other.Parse(token); err == nil {
		t.Error("Parse() accepted a token signed with a different secret")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	svc := newService(t, Config{Secret: "test-secret", TokenTTL: -time.Minute})

	token, err := svc.Generate("users", "mesh")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if _, err := svc.Parse(token); err == nil {
		t.Error("Parse() accepted an expired token")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	svc := newService(t, Config{Secret: "test-secret"})
	if _, err := svc.Parse("not-a-token"); err == nil {
		t.Error("Parse() accepted garbage input")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing secret")
	}

	cfg = Config{Secret: "s", Method: "RS256"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unsupported method")
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{Secret: "s"}
	cfg.ApplyDefaults()
	if cfg.Method != HS256 {
		t.Errorf("Method = %q, want HS256", cfg.Method)
	}
	if cfg.TokenTTL != time.Hour {
		t.Errorf("TokenTTL = %v, want 1h", cfg.TokenTTL)
	}
}
