package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// unsetenv clears an environment variable for the duration of a test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func TestLoadSecretsFile(t *testing.T) {
	unsetenv(t, "DISCORD_TOKEN")
	unsetenv(t, "CLIENT_ID")
	unsetenv(t, "ERLC_API_KEY")
	file := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(file, []byte("DISCORD_TOKEN=\"  tok  \"\nCLIENT_ID=123\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := loadSecrets(file)
	if err != nil {
		t.Fatalf("couldn't load secrets: %v", err)
	}
	if s.Token != "tok" {
		t.Errorf("token not trimmed: %q", s.Token)
	}
	if s.ClientID != "123" {
		t.Errorf("wrong client id %q", s.ClientID)
	}
	if s.ServerKey != "" {
		t.Errorf("server key from nowhere: %q", s.ServerKey)
	}
	if err := s.require(); err != nil {
		t.Errorf("complete credentials rejected: %v", err)
	}
}

func TestLoadSecretsEnvWins(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "from-env")
	unsetenv(t, "CLIENT_ID")
	file := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(file, []byte("DISCORD_TOKEN=from-file\nCLIENT_ID=123\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := loadSecrets(file)
	if err != nil {
		t.Fatalf("couldn't load secrets: %v", err)
	}
	if s.Token != "from-env" {
		t.Errorf("env file overrode environment: %q", s.Token)
	}
}

func TestLoadSecretsNoFile(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("CLIENT_ID", "123")
	s, err := loadSecrets(filepath.Join(t.TempDir(), "nothing"))
	if err != nil {
		t.Fatalf("missing env file is an error: %v", err)
	}
	if err := s.require(); !errors.Is(err, ErrMissing) {
		t.Errorf("missing token not reported: %v", err)
	}
	s.Token = "tok"
	s.ClientID = ""
	if err := s.require(); !errors.Is(err, ErrMissing) {
		t.Errorf("missing client id not reported: %v", err)
	}
}

func TestUnusableCommands(t *testing.T) {
	var cfg Config
	if diff := cmp.Diff([]string{"promote", "erlc"}, cfg.unusable()); diff != "" {
		t.Errorf("wrong unusable commands with no roles (-want/+got):\n%s", diff)
	}
	cfg.Roles.Relay = "relayer"
	if diff := cmp.Diff([]string{"promote"}, cfg.unusable()); diff != "" {
		t.Errorf("wrong unusable commands with relay role (-want/+got):\n%s", diff)
	}
	cfg.Roles.Promote = "promoter"
	if got := cfg.unusable(); len(got) != 0 {
		t.Errorf("commands unusable with all roles: %q", got)
	}
}

func TestRelayClient(t *testing.T) {
	var cfg Config
	cfg.ERLC.Rate = Rate{Every: 1, Num: 2}
	if c := cfg.relay(""); c != nil {
		t.Errorf("client without a key: %+v", c)
	}
	c := cfg.relay("key")
	if c == nil || c.Key != "key" || c.Rate == nil {
		t.Errorf("wrong client %+v", c)
	}
}
