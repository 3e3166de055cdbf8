package config

import "testing"

func TestResolveCredentialsPrefersEnvironment(t *testing.T) {
	t.Setenv(envDBURI, "bolt://env-host:7687")
	t.Setenv(envDBUser, "env-user")
	t.Setenv(envDBPassword, "env-pass")

	c, err := ResolveCredentials("bolt://flag-host:7687", "flag-user", "flag-pass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.URI != "bolt://env-host:7687" || c.Username != "env-user" || c.Password != "env-pass" {
		t.Errorf("got %+v, want environment values to win", c)
	}
}

func TestResolveCredentialsFallsBackToFlags(t *testing.T) {
	t.Setenv(envDBURI, "")
	t.Setenv(envDBUser, "")
	t.Setenv(envDBPassword, "")

	c, err := ResolveCredentials("bolt://flag-host:7687", "flag-user", "flag-pass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.URI != "bolt://flag-host:7687" {
		t.Errorf("got uri=%q, want flag fallback", c.URI)
	}
}

func TestResolveCredentialsErrorsWithoutURI(t *testing.T) {
	t.Setenv(envDBURI, "")

	if _, err := ResolveCredentials("", "u", "p"); err == nil {
		t.Error("expected error when no uri is available from any source")
	}
}

func TestApplyDefaultsFillsZeroValues(t *testing.T) {
	var c Config
	c.ApplyDefaults()

	if c.BatchSize != 500 {
		t.Errorf("got BatchSize=%d, want 500", c.BatchSize)
	}
	if c.Threads <= 0 {
		t.Errorf("got Threads=%d, want positive", c.Threads)
	}
	if c.ParseLimit != c.Threads || c.InsertLimit != c.Threads {
		t.Errorf("got ParseLimit=%d InsertLimit=%d, want both equal to Threads=%d", c.ParseLimit, c.InsertLimit, c.Threads)
	}
	if c.Logging.Level != "info" {
		t.Errorf("got Logging.Level=%q, want info", c.Logging.Level)
	}
}
