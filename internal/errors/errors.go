package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// Sentinels callers can match with errors.Is through a UserError's Cause.
var (
	ErrRateLimited     = stderrors.New("github rate limit exceeded")
	ErrUnauthenticated = stderrors.New("no github credential available")
)

// UserError represents an error with user-friendly messaging and remediation hints
type UserError struct {
	Title       string // Brief title of the error
	Message     string // Detailed error message
	Remediation string // What the user can do to fix it
	Cause       error  // Underlying error, if any
}

func (e *UserError) Error() string {
	var parts []string

	if e.Title != "" {
		parts = append(parts, e.Title)
	}

	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	if e.Remediation != "" {
		parts = append(parts, fmt.Sprintf("💡 %s", e.Remediation))
	}

	return strings.Join(parts, "\n")
}

func (e *UserError) Unwrap() error {
	return e.Cause
}

// IsRateLimited reports whether err was caused by an exhausted request budget.
func IsRateLimited(err error) bool {
	return stderrors.Is(err, ErrRateLimited)
}

// IsUnauthenticated reports whether err was caused by a missing credential.
func IsUnauthenticated(err error) bool {
	return stderrors.Is(err, ErrUnauthenticated)
}

// Common error constructors with built-in remediation

func NewUnauthenticatedError(operation string) *UserError {
	return &UserError{
		Title:       "Authentication Required",
		Message:     fmt.Sprintf("Cannot %s without a GitHub token.", operation),
		Remediation: "Set GITHUB_TOKEN (or GH_TOKEN), or configure op_token_path in ~/.config/ghboard/config.toml and run: op signin",
		Cause:       ErrUnauthenticated,
	}
}

func NewRateLimitError(resetAt time.Time) *UserError {
	msg := "The GitHub API request budget is exhausted."
	if !resetAt.IsZero() {
		msg = fmt.Sprintf("The GitHub API request budget is exhausted until %s.", resetAt.Local().Format("15:04:05"))
	}
	return &UserError{
		Title:       "⏳ Rate Limit Reached",
		Message:     msg,
		Remediation: "Wait for the reset time; the board keeps working locally and resumes syncing automatically",
		Cause:       ErrRateLimited,
	}
}

func NewInvalidRepoError(value string) *UserError {
	return &UserError{
		Title:       "❌ Invalid Repository",
		Message:     fmt.Sprintf("Repository '%s' is not in owner/repo form.", value),
		Remediation: "Pass --repo owner/name or run: ghboard setup",
		Cause:       nil,
	}
}

func NewInvalidColumnError(column string, available []string) *UserError {
	return &UserError{
		Title:       "❌ Invalid Column",
		Message:     fmt.Sprintf("Column '%s' does not exist.", column),
		Remediation: fmt.Sprintf("Available columns: %s", strings.Join(available, ", ")),
		Cause:       nil,
	}
}

func NewGitHubConnectionError(err error) *UserError {
	errStr := err.Error()
	var remediation string

	if strings.Contains(errStr, "401") || strings.Contains(errStr, "Bad credentials") {
		remediation = "Check your GitHub token. Run: ghboard config doctor"
	} else if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "no such host") {
		remediation = "Check your internet connection and api_url. Run: ghboard config doctor"
	} else if strings.Contains(errStr, "403") || strings.Contains(errStr, "Forbidden") {
		remediation = "Your token lacks permission for this repository. It needs the repo (or issues:write) scope"
	} else {
		remediation = "Run: ghboard config doctor to diagnose the issue"
	}

	return &UserError{
		Title:       "❌ GitHub Connection Error",
		Message:     "Failed to reach GitHub. " + errStr,
		Remediation: remediation,
		Cause:       err,
	}
}

func NewConfigError(operation string, err error) *UserError {
	var remediation string
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "permission denied"):
		remediation = "Check file permissions. Run: chmod 644 ~/.config/ghboard/config.toml"
	case strings.Contains(errStr, "no such file"):
		remediation = "Run: ghboard setup to create a configuration file"
	case strings.Contains(errStr, "decode") || strings.Contains(errStr, "parse"):
		remediation = "Configuration file format is invalid. Run: ghboard config doctor"
	default:
		remediation = "Run: ghboard config doctor to diagnose configuration issues"
	}

	return &UserError{
		Title:       "❌ Configuration Error",
		Message:     fmt.Sprintf("Failed to %s configuration: %s", operation, errStr),
		Remediation: remediation,
		Cause:       err,
	}
}

func NewStorageError(operation string, err error) *UserError {
	return &UserError{
		Title:       "❌ Storage Error",
		Message:     fmt.Sprintf("Failed to %s board state: %v", operation, err),
		Remediation: "Check the [storage] section of your config. Run: ghboard config doctor",
		Cause:       err,
	}
}

func NewRepoDiscoveryError(err error) *UserError {
	return &UserError{
		Title:       "❌ Repository Discovery Error",
		Message:     "Failed to list repositories for your account.",
		Remediation: "Check your token scopes. You can still type owner/repo by hand",
		Cause:       err,
	}
}

func NewHttpError(statusCode int, body string) *UserError {
	var title, remediation string

	switch {
	case statusCode == 401:
		title = "❌ Authentication Failed"
		remediation = "Check your GitHub token. Run: ghboard config doctor"
	case statusCode == 403:
		title = "❌ Access Forbidden"
		remediation = "Your token lacks permission for this operation, or a secondary rate limit was hit"
	case statusCode == 404:
		title = "❌ Resource Not Found"
		remediation = "The repository or issue was not found. Check owner/repo in your config"
	case statusCode == 410:
		title = "❌ Issues Disabled"
		remediation = "Issues are disabled for this repository. Enable them in the repository settings"
	case statusCode == 422:
		title = "❌ Validation Failed"
		remediation = "GitHub rejected the request payload. Run with --verbose to see details"
	case statusCode >= 500:
		title = "❌ Server Error"
		remediation = "GitHub is experiencing issues. Try again later"
	default:
		title = "❌ HTTP Error"
		remediation = "An unexpected HTTP error occurred. Run: ghboard --verbose to see detailed logs"
	}

	return &UserError{
		Title:       title,
		Message:     fmt.Sprintf("HTTP %d: %s", statusCode, body),
		Remediation: remediation,
		Cause:       nil,
	}
}

// Helper function to wrap existing errors with better messaging
func WrapWithContext(err error, context string) error {
	var userErr *UserError
	if stderrors.As(err, &userErr) {
		return err
	}

	errStr := err.Error()

	switch context {
	case "github_connection":
		return NewGitHubConnectionError(err)
	case "config_load", "config_save":
		return NewConfigError(strings.TrimPrefix(context, "config_"), err)
	case "storage_load", "storage_save":
		return NewStorageError(strings.TrimPrefix(context, "storage_"), err)
	case "repo_discovery":
		return NewRepoDiscoveryError(err)
	default:
		// Generic wrapper that at least adds some structure
		return &UserError{
			Title:       "❌ Error",
			Message:     errStr,
			Remediation: "Run with --verbose flag for more details",
			Cause:       err,
		}
	}
}
