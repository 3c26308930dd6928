package cli

import (
	"encoding/json"
	"fmt"
	"testing"

	"repogen/internal/config"
)

func TestJoinComma(t *testing.T) {
	tests := []struct {
		input []string
		want  string
	}{
		{nil, ""},
		{[]string{"a"}, "a"},
		{[]string{"a", "b", "c"}, "a, b, c"},
	}

	for _, tt := range tests {
		got := joinComma(tt.input)
		if got != tt.want {
			t.Errorf("joinComma(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCheckConfigWithError(t *testing.T) {
	result := checkConfig(config.Config{}, fmt.Errorf("config file unreadable"))

	if result.Status != "error" {
		t.Errorf("got status=%q, want error", result.Status)
	}
	if result.Name != "Config" {
		t.Errorf("got name=%q, want Config", result.Name)
	}
}

func TestCheckConfigValid(t *testing.T) {
	cfg := config.Default()
	cfg.RepositoryID = "repository.x"
	result := checkConfig(cfg, nil)

	if result.Status != "ok" {
		t.Errorf("got status=%q (%s), want ok", result.Status, result.Summary)
	}
}

func TestCheckTransfer(t *testing.T) {
	cfg := config.Default()
	if got := checkTransfer(cfg); got.Status != "ok" || got.Summary != "not configured" {
		t.Errorf("unexpected %+v", got)
	}
	cfg.Transfer.Host = "files.example.com"
	cfg.Transfer.User = "deploy"
	if got := checkTransfer(cfg); got.Status != "warning" {
		t.Errorf("expected warning without credentials, got %+v", got)
	}
	cfg.Transfer.KeyFile = "~/.ssh/id_ed25519"
	if got := checkTransfer(cfg); got.Status != "ok" || got.Summary != "deploy@files.example.com:22" {
		t.Errorf("unexpected %+v", got)
	}
}

func TestDoctorCommandJSON(t *testing.T) {
	root := newSite(t, "1.0.0")
	if _, _, err := runCLI(t, "--root", root, "sync", "--no-progress"); err != nil {
		t.Fatal(err)
	}
	setPluginVersion(t, root, "2.0.0")

	stdout, _, err := runCLI(t, "--root", root, "--json", "doctor")
	if err != nil {
		t.Fatal(err)
	}
	var checks []healthCheck
	if err := json.Unmarshal([]byte(stdout), &checks); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}

	byName := map[string]healthCheck{}
	for _, c := range checks {
		byName[c.Name] = c
	}
	if got := byName["Release repo"]; got.Status != "warning" || got.Summary != "2 plugins, 2 in manifest, 1 stale" {
		t.Errorf("unexpected release check %+v", got)
	}
	if got := byName["Repository"]; got.Status != "ok" || got.Summary != "repository.example-1.0.0.zip" {
		t.Errorf("unexpected repository check %+v", got)
	}
}
