package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/go-github/v74/github"
	"github.com/natefinch/atomic"

	"ghboard/internal/errors"
)

const (
	discoveryTTL      = 24 * time.Hour
	discoveryMaxPages = 3
)

// RepoInfo is a repository the authenticated user can see.
type RepoInfo struct {
	FullName    string    `json:"full_name"`
	Owner       string    `json:"owner"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OpenIssues  int       `json:"open_issues"`
	HasIssues   bool      `json:"has_issues"`
	Archived    bool      `json:"archived"`
	Private     bool      `json:"private"`
	PushedAt    time.Time `json:"pushed_at"`
}

type discoveryCache struct {
	Repos     []RepoInfo `json:"repos"`
	Timestamp time.Time  `json:"timestamp"`
}

func defaultDiscoveryCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "ghboard", "repos_cache.json")
}

// DiscoverRepos lists repositories for the setup wizard, most recently pushed
// first. Results are cached on disk for a day.
func (s *Sync) DiscoverRepos(ctx context.Context) ([]RepoInfo, error) {
	if cached, ok := loadDiscoveryCache(s.cachePath, time.Now()); ok {
		return cached, nil
	}
	if err := s.gate("list your repositories", true); err != nil {
		return nil, err
	}

	opts := &github.RepositoryListByAuthenticatedUserOptions{
		Sort:        "pushed",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	var repos []RepoInfo
	for page := 0; page < discoveryMaxPages; page++ {
		batch, resp, err := s.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
		if err != nil {
			return nil, errors.NewRepoDiscoveryError(s.fail("list repositories", err))
		}
		for _, r := range batch {
			repos = append(repos, RepoInfo{
				FullName:    r.GetFullName(),
				Owner:       r.GetOwner().GetLogin(),
				Name:        r.GetName(),
				Description: r.GetDescription(),
				OpenIssues:  r.GetOpenIssuesCount(),
				HasIssues:   r.GetHasIssues(),
				Archived:    r.GetArchived(),
				Private:     r.GetPrivate(),
				PushedAt:    r.GetPushedAt().Time,
			})
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	saveDiscoveryCache(s.cachePath, repos, time.Now())
	return repos, nil
}

func loadDiscoveryCache(path string, now time.Time) ([]RepoInfo, bool) {
	if path == "" {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var cache discoveryCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, false
	}
	if now.Sub(cache.Timestamp) > discoveryTTL {
		return nil, false
	}
	return cache.Repos, true
}

func saveDiscoveryCache(path string, repos []RepoInfo, now time.Time) {
	if path == "" {
		return
	}
	data, err := json.Marshal(discoveryCache{Repos: repos, Timestamp: now})
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	_ = atomic.WriteFile(path, bytes.NewReader(data))
}

// RankRepos orders repositories for selection. Recently used repositories
// come first, then preferred owners, then activity; archived repositories
// and ones with issues disabled sink. Ties break on FullName.
func RankRepos(repos []RepoInfo, recent []string, preferredOwners []string, now time.Time) []RepoInfo {
	score := func(r RepoInfo) int {
		s := 0
		for i, name := range recent {
			if strings.EqualFold(name, r.FullName) {
				// Most recent first.
				s += 200 - i
				break
			}
		}
		for _, owner := range preferredOwners {
			if strings.EqualFold(owner, r.Owner) {
				s += 50
				break
			}
		}
		bonus := r.OpenIssues
		if bonus > 20 {
			bonus = 20
		}
		s += bonus
		if !r.PushedAt.IsZero() && now.Sub(r.PushedAt) < 30*24*time.Hour {
			s += 10
		}
		if r.Archived {
			s -= 50
		}
		if !r.HasIssues {
			s -= 100
		}
		return s
	}

	ranked := append([]RepoInfo(nil), repos...)
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := score(ranked[i]), score(ranked[j])
		if si != sj {
			return si > sj
		}
		return ranked[i].FullName < ranked[j].FullName
	})
	return ranked
}
