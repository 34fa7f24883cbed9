// Package remote talks to the GitHub issues API on behalf of the board. Every
// call is gated by the shared rate limiter and every failure is reported
// through a Notifier; nothing is retried at this level.
package remote

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v74/github"
	"golang.org/x/oauth2"

	"ghboard/internal/errors"
	"ghboard/internal/httputil"
	"ghboard/internal/logger"
	"ghboard/internal/ratelimit"
	"ghboard/internal/version"
)

// DefaultBaseURL is the public GitHub API.
const DefaultBaseURL = "https://api.github.com/"

// Notifier surfaces failures to the user. Rate limit failures are not sent
// here; the limiter's presenter covers them.
type Notifier interface {
	Alert(err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(err error)

func (f NotifierFunc) Alert(err error) { f(err) }

type discardNotifier struct{}

func (discardNotifier) Alert(error) {}

// Options configures a Sync.
type Options struct {
	// BaseURL defaults to DefaultBaseURL. GitHub Enterprise uses
	// https://host/api/v3/.
	BaseURL string
	// Token is the bearer credential; empty means unauthenticated.
	Token   string
	Timeout time.Duration
	// Retries applies to idempotent requests only.
	Retries int
	// DiscoveryCachePath overrides the repository discovery cache file.
	DiscoveryCachePath string
}

// Sync is the remote side of the board. It holds no current repository:
// every issue call names the repository it targets, so work queued before a
// repo switch still lands where it was started.
type Sync struct {
	gh        *github.Client
	limiter   *ratelimit.Limiter
	authed    bool
	cachePath string

	mu       sync.RWMutex
	notifier Notifier
}

// New builds a Sync. The limiter observes every response through the
// transport, including error responses.
func New(limiter *ratelimit.Limiter, notifier Notifier, opts Options) (*Sync, error) {
	if limiter == nil {
		limiter = ratelimit.New()
	}
	if notifier == nil {
		notifier = discardNotifier{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = httputil.DefaultTimeout
	}

	var transport http.RoundTripper = httputil.NewRetryTransport(nil, opts.Retries, limiter.ObserveHeaders)
	if opts.Token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token}),
			Base:   transport,
		}
	}
	gh := github.NewClient(httputil.NewClient(timeout, transport))
	gh.UserAgent = version.UserAgent()

	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid api_url %q: %w", opts.BaseURL, err)
	}
	gh.BaseURL = u

	cachePath := opts.DiscoveryCachePath
	if cachePath == "" {
		cachePath = defaultDiscoveryCachePath()
	}

	return &Sync{
		gh:        gh,
		limiter:   limiter,
		notifier:  notifier,
		authed:    opts.Token != "",
		cachePath: cachePath,
	}, nil
}

// Authenticated reports whether a credential is configured.
func (s *Sync) Authenticated() bool { return s.authed }

// Limiter returns the shared limiter.
func (s *Sync) Limiter() *ratelimit.Limiter { return s.limiter }

// SetNotifier replaces the notifier. It is safe to call while requests are
// in flight.
func (s *Sync) SetNotifier(n Notifier) {
	if n == nil {
		n = discardNotifier{}
	}
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
}

func (s *Sync) alert(err error) {
	s.mu.RLock()
	n := s.notifier
	s.mu.RUnlock()
	n.Alert(err)
}

// ProbeRateLimit refreshes the budget from GET /rate_limit. That endpoint
// does not count against the budget, so it is not gated.
func (s *Sync) ProbeRateLimit(ctx context.Context) error {
	limits, _, err := s.gh.RateLimit.Get(ctx)
	if err != nil {
		return err
	}
	if core := limits.GetCore(); core != nil {
		s.limiter.Update(core.Remaining, core.Limit, core.Reset.Unix())
	}
	return nil
}

// gate runs before every remote call. A missing credential is alerted when
// requireAuth is set; a blocked limiter is never alerted.
func (s *Sync) gate(op string, requireAuth bool) error {
	if requireAuth && !s.authed {
		err := errors.NewUnauthenticatedError(op)
		s.alert(err)
		return err
	}
	if err := s.limiter.Err(); err != nil {
		logger.GitHub("skipping %s: rate limited", op)
		return err
	}
	return nil
}

// gateMutation is gate plus the mutation pacer.
func (s *Sync) gateMutation(ctx context.Context, op string) error {
	if err := s.gate(op, true); err != nil {
		return err
	}
	return s.limiter.Pace(ctx)
}

// fail classifies a go-github error, feeds rate limit details back into the
// limiter, and alerts for everything that is not a rate limit.
func (s *Sync) fail(op string, err error) error {
	var rle *github.RateLimitError
	if stderrors.As(err, &rle) {
		s.limiter.Update(rle.Rate.Remaining, rle.Rate.Limit, rle.Rate.Reset.Unix())
		logger.GitHub("%s hit the primary rate limit", op)
		return errors.NewRateLimitError(rle.Rate.Reset.Time)
	}

	var abuse *github.AbuseRateLimitError
	if stderrors.As(err, &abuse) {
		if abuse.RetryAfter != nil {
			s.limiter.BlockFor(*abuse.RetryAfter)
		}
		logger.GitHub("%s hit a secondary rate limit", op)
		return errors.NewRateLimitError(s.limiter.Snapshot().ResetTime())
	}

	var userErr *errors.UserError
	var apiErr *github.ErrorResponse
	switch {
	case stderrors.As(err, &apiErr) && apiErr.Response != nil:
		userErr = errors.NewHttpError(apiErr.Response.StatusCode, apiErr.Message)
		userErr.Message = fmt.Sprintf("%s failed: %s", op, userErr.Message)
		userErr.Cause = err
	default:
		userErr = errors.NewGitHubConnectionError(err)
		userErr.Message = fmt.Sprintf("%s failed. %v", op, err)
	}

	logger.GitHub("%s failed: %v", op, err)
	s.alert(userErr)
	return userErr
}
