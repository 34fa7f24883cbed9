package version

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	semver "github.com/Masterminds/semver/v3"
	selfupdate "github.com/creativeprojects/go-selfupdate"
	"github.com/natefinch/atomic"

	"ghboard/internal/logger"
)

const (
	updateCheckTTL  = 24 * time.Hour
	updateCacheFile = "update_check.json"
	// Slug is the GitHub repository releases are published to.
	Slug = "ghboard-dev/ghboard"
)

// UpdateCheckResult holds the outcome of a background update check.
type UpdateCheckResult struct {
	NewVersion string // empty means no update available (or check skipped/failed)
}

type updateCache struct {
	LatestVersion  string    `json:"latest_version"`
	CheckedVersion string    `json:"checked_version"` // version that was running when we last checked
	Timestamp      time.Time `json:"timestamp"`
}

// DetectFunc returns the latest published version.
type DetectFunc func(ctx context.Context) (latest string, found bool, err error)

// Checker answers "is there a newer release" at most once a day.
type Checker struct {
	CachePath string
	Detect    DetectFunc
	now       func() time.Time
}

// NewChecker returns a Checker backed by GitHub Releases.
func NewChecker() *Checker {
	return &Checker{CachePath: updateCachePath(), Detect: detectLatest, now: time.Now}
}

// StartUpdateCheck launches a background goroutine that checks for updates.
// Returns a channel that will receive exactly one result.
func StartUpdateCheck() <-chan UpdateCheckResult {
	ch := make(chan UpdateCheckResult, 1)
	go func() {
		defer close(ch)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		ch <- UpdateCheckResult{NewVersion: NewChecker().Check(ctx, GetShortVersion())}
	}()
	return ch
}

// Check returns the newer version, or "" when current is up to date, a dev
// build, or the check failed.
func (c *Checker) Check(ctx context.Context, current string) string {
	if current == "dev" {
		return ""
	}

	// A cache written by another version is stale.
	if cache, ok := c.load(); ok && cache.CheckedVersion == current {
		if cache.LatestVersion != "" && isNewerThan(cache.LatestVersion, current) {
			return cache.LatestVersion
		}
		return ""
	}

	latest, found, err := c.Detect(ctx)
	if err != nil || !found {
		logger.Debug("update check found nothing: %v", err)
		// Cache current version so we don't hammer GitHub when offline
		c.save(current, current)
		return ""
	}

	c.save(latest, current)
	if !isNewerThan(latest, current) {
		return ""
	}
	return latest
}

func isNewerThan(latest, current string) bool {
	lv, err := semver.NewVersion(latest)
	if err != nil {
		return false
	}
	cv, err := semver.NewVersion(current)
	if err != nil {
		return false
	}
	return lv.GreaterThan(cv)
}

// NewUpdater builds the release updater used by `ghboard update`.
func NewUpdater() (*selfupdate.Updater, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("create update source: %w", err)
	}
	return selfupdate.NewUpdater(selfupdate.Config{
		Source:    source,
		Validator: &selfupdate.ChecksumValidator{UniqueFilename: "checksums.txt"},
	})
}

func detectLatest(ctx context.Context) (string, bool, error) {
	updater, err := NewUpdater()
	if err != nil {
		return "", false, err
	}
	latest, found, err := updater.DetectLatest(ctx, selfupdate.ParseSlug(Slug))
	if err != nil || !found {
		return "", found, err
	}
	return latest.Version(), true, nil
}

func updateCachePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", "ghboard", updateCacheFile)
}

func (c *Checker) load() (updateCache, bool) {
	if c.CachePath == "" {
		return updateCache{}, false
	}
	data, err := os.ReadFile(c.CachePath)
	if err != nil {
		return updateCache{}, false
	}
	var cache updateCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return updateCache{}, false
	}
	if c.now().Sub(cache.Timestamp) > updateCheckTTL {
		return updateCache{}, false
	}
	return cache, true
}

func (c *Checker) save(latestVersion, checkedVersion string) {
	if c.CachePath == "" {
		return
	}
	data, err := json.Marshal(updateCache{
		LatestVersion:  latestVersion,
		CheckedVersion: checkedVersion,
		Timestamp:      c.now(),
	})
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.CachePath), 0755); err != nil {
		return
	}
	if err := atomic.WriteFile(c.CachePath, bytes.NewReader(data)); err != nil {
		logger.Debug("update cache not written: %v", err)
	}
}
