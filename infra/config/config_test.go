package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/CrestNiraj12/tapestry/domain"
)

func TestLoad_ParsesEnvAndDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("TAPESTRY_CONFIG", "")
	t.Setenv("TAPESTRY_DATA_DIR", "")
	t.Setenv("TAPESTRY_TIMEOUT", "")
	t.Setenv("TAPESTRY_LOG_LEVEL", "")
	t.Setenv("TAPESTRY_RETENTION", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.FeedsPath != filepath.Join(home, ".config", "tapestry", "feeds.yaml") {
		t.Fatalf("unexpected feeds path: %q", cfg.FeedsPath)
	}
	if cfg.DataDir != filepath.Join(home, ".local", "share", "tapestry") {
		t.Fatalf("unexpected data dir: %q", cfg.DataDir)
	}
	if cfg.Timeout != 30*time.Second || cfg.LogLevel != "info" || cfg.Retention != 720*time.Hour {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
	if cfg.CachePath() != filepath.Join(cfg.DataDir, "items.db") {
		t.Fatalf("unexpected cache path: %q", cfg.CachePath())
	}
}

func TestLoad_EnvOverridesSettingsFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TAPESTRY_CONFIG", filepath.Join(dir, "feeds.yaml"))
	t.Setenv("TAPESTRY_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("TAPESTRY_TIMEOUT", "5s")
	t.Setenv("TAPESTRY_LOG_LEVEL", "")
	t.Setenv("TAPESTRY_RETENTION", "")
	settings := "log_level: debug\ntimeout: 1m\nuser_agent: custom/1.0\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(settings), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Timeout != 5*time.Second {
		t.Fatalf("env must win over settings file: %v", cfg.Timeout)
	}
	if cfg.LogLevel != "debug" || cfg.UserAgent != "custom/1.0" {
		t.Fatalf("settings file not applied: %#v", cfg)
	}
	if cfg.DataDir != filepath.Join(dir, "data") {
		t.Fatalf("unexpected data dir: %q", cfg.DataDir)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv("TAPESTRY_CONFIG", filepath.Join(t.TempDir(), "feeds.yaml"))
	t.Setenv("TAPESTRY_TIMEOUT", "-1s")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for negative timeout")
	}

	t.Setenv("TAPESTRY_TIMEOUT", "")
	t.Setenv("TAPESTRY_LOG_LEVEL", "chatty")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown log level")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("TAPESTRY_TEST_VALUE=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TAPESTRY_TEST_VALUE", "")
	os.Unsetenv("TAPESTRY_TEST_VALUE")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
	if got := os.Getenv("TAPESTRY_TEST_VALUE"); got != "from-file" {
		t.Fatalf("unexpected value %q", got)
	}
}

const feedsDoc = `
feeds:
  - name: home
    connector: mastodon
    site: https://mastodon.example
    token_file: /tmp/token
    variables:
      includeReplies: false
      limit: 20
  - name: blog
    connector: rss
    site: https://blog.example/feed.xml
`

func TestParseFeeds(t *testing.T) {
	feeds, err := ParseFeeds([]byte(feedsDoc), func(id string) bool { return id == "mastodon" || id == "rss" })
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(feeds) != 2 {
		t.Fatalf("expected two feeds, got %d", len(feeds))
	}
	home := feeds[0]
	if home.Variable("includeReplies", "true") != "false" || home.Variables["limit"] != "20" {
		t.Fatalf("variables must keep their case and be stringified: %#v", home.Variables)
	}
	if home.TokenFile != "/tmp/token" {
		t.Fatalf("unexpected token file: %q", home.TokenFile)
	}
	if feeds[1].Variables != nil {
		t.Fatalf("expected no variables for blog")
	}

	found, err := FindFeed(feeds, "blog")
	if err != nil || found.Connector != "rss" {
		t.Fatalf("find feed: %v %#v", err, found)
	}
	if _, err := FindFeed(feeds, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestParseFeeds_Rejects(t *testing.T) {
	cases := map[string]string{
		"duplicate": "feeds:\n  - {name: a, connector: rss, site: https://a.example}\n  - {name: a, connector: rss, site: https://b.example}\n",
		"relative":  "feeds:\n  - {name: a, connector: rss, site: /feed.xml}\n",
		"scheme":    "feeds:\n  - {name: a, connector: rss, site: ftp://a.example}\n",
		"unknown":   "feeds:\n  - {name: a, connector: gopher, site: https://a.example}\n",
		"empty":     "feeds: []\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseFeeds([]byte(doc), func(id string) bool { return id == "rss" }); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	_, err := LoadFeeds(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if !errors.Is(err, ErrNoFeeds) {
		t.Fatalf("expected ErrNoFeeds, got %v", err)
	}
}

func TestUIState_LoadAndSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state", "ui_state.json")

	st, err := LoadUIState(path)
	if err != nil {
		t.Fatalf("missing state should not error: %v", err)
	}
	if st != (UIState{}) {
		t.Fatalf("expected empty state for missing file")
	}

	want := UIState{FeedFilter: "home", ShowCW: true}
	if err := SaveUIState(path, want); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := LoadUIState(path)
	if err != nil {
		t.Fatalf("load after save failed: %v", err)
	}
	if got != want {
		t.Fatalf("unexpected loaded state got=%#v want=%#v", got, want)
	}

	if err := os.WriteFile(path, []byte("not-json"), 0o600); err != nil {
		t.Fatalf("write corrupt state failed: %v", err)
	}
	if _, err := LoadUIState(path); err == nil {
		t.Fatalf("expected parse error for invalid json")
	}
}
