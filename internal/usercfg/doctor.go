package usercfg

import (
	"fmt"
	"os"
	"strings"

	"ghboard/internal/kv"
)

// Finding is one line of `ghboard config doctor` output.
type Finding struct {
	OK     bool
	Info   bool
	Title  string
	Advice string
}

// Diagnose checks the effective config for common problems. The token source
// is passed in so no secret store is queried here.
func Diagnose(c Config, token TokenSource) []Finding {
	var out []Finding
	add := func(ok bool, title, advice string) {
		out = append(out, Finding{OK: ok, Title: title, Advice: advice})
	}

	configPath, legacyPath := Path(), LegacyPath()
	if _, err := os.Stat(configPath); err == nil {
		add(true, "Config file found at XDG-compliant location", "")
	} else if _, err := os.Stat(legacyPath); err == nil {
		add(false, "Using legacy config path "+legacyPath, "Consider migrating: ghboard config migrate")
	} else {
		out = append(out, Finding{Info: true, Title: "No config file found - using defaults", Advice: "Create one with: ghboard setup"})
	}

	if c.SchemaVersion < CurrentSchemaVersion {
		add(false, fmt.Sprintf("Config schema is outdated (v%d, current: v%d)", c.SchemaVersion, CurrentSchemaVersion), "Run: ghboard config migrate")
	} else {
		add(true, fmt.Sprintf("Config schema is current (v%d)", c.SchemaVersion), "")
	}

	if c.Owner == "" || c.Repo == "" {
		add(false, "No repository configured", "Run: ghboard setup, or set GHBOARD_REPO=owner/repo")
	} else {
		add(true, fmt.Sprintf("Repository configured: %s/%s", c.Owner, c.Repo), "")
	}

	if c.APIURL != "" && !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		add(false, "Invalid api_url: "+c.APIURL, "Must start with http:// or https://")
	}

	backendOK := false
	for _, b := range kv.Backends() {
		if c.Storage.Backend == b {
			backendOK = true
		}
	}
	switch {
	case !backendOK:
		add(false, "Unknown storage backend: "+c.Storage.Backend, "Valid backends: "+strings.Join(kv.Backends(), ", "))
	case c.Storage.Backend == kv.BackendRedis && c.Storage.RedisAddr == "":
		add(false, "Redis storage selected without redis_addr", "Run: ghboard config set storage.redis_addr host:6379")
	default:
		add(true, "Storage backend: "+c.Storage.Backend, "")
	}

	if token == TokenNone {
		out = append(out, Finding{
			Info:   true,
			Title:  "No GitHub credential found - the board runs local-only",
			Advice: "Set GITHUB_TOKEN or GH_TOKEN, or configure op_token_path",
		})
	} else {
		add(true, "GitHub credential from "+string(token), "")
	}
	return out
}

// Problems counts findings that need action.
func Problems(findings []Finding) int {
	n := 0
	for _, f := range findings {
		if !f.OK && !f.Info {
			n++
		}
	}
	return n
}
