package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadPrefersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}

	got, err := Load(Source{Name: "api key", Value: "inline", File: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-file" {
		t.Fatalf("expected secret from file, got %q", got)
	}
}

func TestLoadFallsBackToEnv(t *testing.T) {
	t.Setenv("REPOGRADE_TEST_KEY", " from-env ")

	got, err := Load(Source{Name: "api key", Env: "REPOGRADE_TEST_KEY"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-env" {
		t.Fatalf("expected secret from env, got %q", got)
	}

	got, err = Load(Source{Name: "api key", Value: "inline", Env: "REPOGRADE_TEST_KEY"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "inline" {
		t.Fatalf("expected inline value to win over env, got %q", got)
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(Source{Name: "api key"})
	if err == nil || !strings.Contains(err.Error(), "api key is not configured") {
		t.Fatalf("expected not configured error, got %v", err)
	}

	empty := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(empty, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write empty file: %v", err)
	}
	t.Setenv("REPOGRADE_TEST_KEY", "ignored")
	_, err = Load(Source{File: empty, Env: "REPOGRADE_TEST_KEY"})
	if err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Fatalf("expected empty file error, got %v", err)
	}

	_, err = Load(Source{File: filepath.Join(t.TempDir(), "missing")})
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}
