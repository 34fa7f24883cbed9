package usercfg

import (
	"os"
	"os/exec"
	"strings"

	"ghboard/internal/logger"
)

// TokenSource names where the GitHub credential came from.
type TokenSource string

const (
	TokenNone        TokenSource = "none"
	TokenEnvGitHub   TokenSource = "GITHUB_TOKEN"
	TokenEnvGH       TokenSource = "GH_TOKEN"
	TokenOnePassword TokenSource = "1password"
)

// opRead runs `op read <path>`; replaced in tests.
var opRead = func(path string) (string, error) {
	out, err := exec.Command("op", "read", path).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// ResolveToken returns the GitHub credential: env vars first, then the
// configured 1Password path. An empty result means local-only mode.
func ResolveToken(c Config) (string, TokenSource) {
	if v := strings.TrimSpace(os.Getenv("GITHUB_TOKEN")); v != "" {
		return v, TokenEnvGitHub
	}
	if v := strings.TrimSpace(os.Getenv("GH_TOKEN")); v != "" {
		return v, TokenEnvGH
	}
	if c.OPTokenPath != "" {
		v, err := opRead(c.OPTokenPath)
		if err != nil {
			logger.Config("op read failed for %s: %v", c.OPTokenPath, err)
			return "", TokenNone
		}
		if v != "" {
			return v, TokenOnePassword
		}
	}
	return "", TokenNone
}
