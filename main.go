package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ghboard/internal/board"
	"ghboard/internal/errors"
	"ghboard/internal/kv"
	"ghboard/internal/labels"
	"ghboard/internal/logger"
	"ghboard/internal/ratelimit"
	"ghboard/internal/remote"
	"ghboard/internal/usercfg"
	"ghboard/internal/version"

	"github.com/AlecAivazis/survey/v2"
	selfupdate "github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

var updateCheckCh <-chan version.UpdateCheckResult

var rootCmd = &cobra.Command{
	Use:   "ghboard",
	Short: "A kanban board for GitHub issues",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetVerbose(verbose)

		name := cmd.Name()
		if name != "update" && name != "version" && usercfg.GetRuntimeConfig().UpdateChecksEnabled() {
			updateCheckCh = version.StartUpdateCheck()
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if updateCheckCh == nil {
			return
		}
		select {
		case result := <-updateCheckCh:
			if result.NewVersion != "" {
				fmt.Fprintf(os.Stderr, "\n\033[33mA new version of ghboard is available: %s (current: %s)\033[0m\n", result.NewVersion, version.GetShortVersion())
				fmt.Fprintf(os.Stderr, "\033[33mRun 'ghboard update' to upgrade.\033[0m\n")
			}
		case <-time.After(500 * time.Millisecond):
		}
	},
	Run: runBoard,
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure ghboard interactively",
	Long:  "Launch a setup wizard to pick the repository, storage backend and credential source",
	Run:   runSetup,
}

// configCmd provides config management subcommands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage ghboard configuration",
	Long:  "Commands for managing ghboard configuration files, migrations, and settings",
}

var configMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate config file to current schema version",
	Long:  "Load the config file, apply any necessary schema migrations, and save it back to disk with the current schema version",
	Run:   runConfigMigrate,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show config file path",
	Run:   runConfigPath,
}

var configPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the effective configuration",
	Run:   runConfigPrint,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	Run:   runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	Run:   runConfigSet,
}

var configDoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration for problems",
	Run:   runConfigDoctor,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run:   runVersion,
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Self-update ghboard to the latest release",
	Long:  "Check GitHub Releases for a newer version of ghboard and replace the current binary.",
	Run:   runUpdate,
}

// boardCmd launches the kanban TUI
var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Open the kanban board (Backlog / In Progress / Review / Done)",
	Long: `Open the kanban board for the configured repository.

Controls:
  - Arrows / h j k l: Move selection
  - Tab / Shift+Tab: Switch column
  - H / L: Move card to the previous/next column
  - K / J: Reorder card within its column
  - n: New card
  - a: Archive card
  - r: Refresh
  - /: Filter
  - c: Collapse column
  - p: Switch repository
  - o: Open selected issue in browser
  - w: Open setup wizard
  - q: Quit`,
	Example: "ghboard board",
	Run:     runBoard,
}

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Work with board cards from the command line",
}

var issueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cards by column",
	Run:   runIssueList,
}

var issueCreateCmd = &cobra.Command{
	Use:     "create <title>",
	Short:   "Create a card",
	Example: `  ghboard issue create "Fix login" --column in-progress`,
	Args:    cobra.ExactArgs(1),
	Run:     runIssueCreate,
}

var issueMoveCmd = &cobra.Command{
	Use:     "move <number|key> <column>",
	Short:   "Move a card to another column",
	Example: "  ghboard issue move 42 review",
	Args:    cobra.ExactArgs(2),
	Run:     runIssueMove,
}

var issueCloseCmd = &cobra.Command{
	Use:   "close <number>",
	Short: "Close an issue",
	Args:  cobra.ExactArgs(1),
	Run:   runIssueClose,
}

var issueReopenCmd = &cobra.Command{
	Use:   "reopen <number>",
	Short: "Reopen an issue",
	Args:  cobra.ExactArgs(1),
	Run:   runIssueReopen,
}

var issueArchiveCmd = &cobra.Command{
	Use:   "archive <number|key>",
	Short: "Remove a card from the board",
	Args:  cobra.ExactArgs(1),
	Run:   runIssueArchive,
}

var issueEditCmd = &cobra.Command{
	Use:   "edit <number|key>",
	Short: "Change a card's title or body",
	Args:  cobra.ExactArgs(1),
	Run:   runIssueEdit,
}

var rateLimitCmd = &cobra.Command{
	Use:   "ratelimit",
	Short: "Show the remaining GitHub API budget",
	Run:   runRateLimit,
}

var (
	verbose      bool
	repoFlag     string
	columnFlag   string
	bodyFlag     string
	titleFlag    string
	positionFlag int
	jsonFlag     bool
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&repoFlag, "repo", "R", "", "Repository to use (owner/repo), overrides the config")

	// Add subcommands
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(issueCmd)
	rootCmd.AddCommand(rateLimitCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(updateCmd)

	issueCreateCmd.Flags().StringVarP(&columnFlag, "column", "c", string(labels.Backlog), "Column for the new card")
	issueCreateCmd.Flags().StringVarP(&bodyFlag, "body", "b", "", "Card body")
	issueMoveCmd.Flags().IntVarP(&positionFlag, "position", "p", 0, "Position in the target column (0 is the top)")
	issueEditCmd.Flags().StringVarP(&titleFlag, "title", "t", "", "New title")
	issueEditCmd.Flags().StringVarP(&bodyFlag, "body", "b", "", "New body")
	issueListCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print JSON")
	versionCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print build info as JSON")

	issueCmd.AddCommand(issueListCmd)
	issueCmd.AddCommand(issueCreateCmd)
	issueCmd.AddCommand(issueMoveCmd)
	issueCmd.AddCommand(issueCloseCmd)
	issueCmd.AddCommand(issueReopenCmd)
	issueCmd.AddCommand(issueArchiveCmd)
	issueCmd.AddCommand(issueEditCmd)

	// Add config subcommands
	configCmd.AddCommand(configMigrateCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configPrintCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configDoctorCmd)

	// Setup graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("\n\033[93mOperation cancelled by user.\033[0m")
		os.Exit(0)
	}()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

// loadApp builds the App for the configured (or --repo) repository.
func loadApp(ctx context.Context) (*App, error) {
	cfg := usercfg.GetRuntimeConfig()
	if repoFlag != "" {
		repo, err := board.ParseRepo(repoFlag)
		if err != nil {
			return nil, errors.NewInvalidRepoError(repoFlag)
		}
		cfg.Owner, cfg.Repo = repo.Owner, repo.Repo
	}
	return newApp(ctx, cfg)
}

// mustLoadBoard opens the app and loads the board, exiting on failure.
func mustLoadBoard(ctx context.Context) *App {
	app, err := loadApp(ctx)
	if err != nil {
		fail(err)
	}
	if err := app.Service.Refresh(ctx); err != nil {
		app.Close()
		fail(err)
	}
	return app
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

// cardKey accepts "42", "#42" or a local card key.
func cardKey(arg string) string {
	return strings.TrimPrefix(strings.TrimSpace(arg), "#")
}

func parseColumnArg(arg string) labels.Column {
	col, ok := labels.ParseColumn(arg)
	if !ok {
		names := make([]string, 0, len(labels.Columns()))
		for _, c := range labels.Columns() {
			names = append(names, string(c))
		}
		fail(errors.NewInvalidColumnError(arg, names))
	}
	return col
}

func runBoard(cmd *cobra.Command, args []string) {
	if !usercfg.IsConfigured() && repoFlag == "" {
		fmt.Println("ghboard is not configured yet.")
		runSetup(cmd, args)
		if !usercfg.IsConfigured() {
			return
		}
	}
	app, err := loadApp(context.Background())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	defer app.Close()
	if err := StartBoard(app); err != nil {
		log.Fatalf("Board failed: %v", err)
	}
}

func runIssueList(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	app := mustLoadBoard(ctx)
	defer app.Close()

	if jsonFlag {
		type jsonCard struct {
			Key    string   `json:"key"`
			Number int      `json:"number,omitempty"`
			Title  string   `json:"title"`
			Labels []string `json:"labels,omitempty"`
			Closed bool     `json:"closed,omitempty"`
			URL    string   `json:"url,omitempty"`
		}
		out := map[labels.Column][]jsonCard{}
		for _, col := range app.Service.Board.Columns {
			out[col.Name] = []jsonCard{}
			for _, c := range col.Visible() {
				if c.Special != "" {
					continue
				}
				out[col.Name] = append(out[col.Name], jsonCard{
					Key: c.Key(), Number: c.IssueNumber, Title: c.Title,
					Labels: c.Labels, Closed: c.Closed, URL: c.URL,
				})
			}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fail(err)
		}
		return
	}

	fmt.Printf("%s\n", app.Service.Repo())
	for _, col := range app.Service.Board.Columns {
		cards := col.Visible()
		fmt.Printf("\n\033[1m%s (%d)\033[0m\n", col.Name.Title(), len(cards))
		for _, c := range cards {
			switch {
			case c.Special != "":
				continue
			case c.IssueNumber > 0:
				fmt.Printf("  #%-5d %s\n", c.IssueNumber, c.Title)
			default:
				fmt.Printf("  %-6s %s \033[90m(local, %s)\033[0m\n", "•", c.Title, c.Key())
			}
		}
	}
}

func runIssueCreate(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	col := parseColumnArg(columnFlag)
	app := mustLoadBoard(ctx)
	defer app.Close()

	card, err := app.Service.CreateCard(ctx, args[0], bodyFlag, col)
	if err != nil {
		fail(err)
	}
	if card.IssueNumber > 0 {
		fmt.Printf("✅ Created #%d in %s\n   %s\n", card.IssueNumber, col.Title(), card.URL)
		return
	}
	fmt.Printf("✅ Created local card %s in %s\n", card.Key(), col.Title())
	fmt.Println("   No GitHub credential found, so the card is kept on this machine only.")
}

func runIssueMove(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	col := parseColumnArg(args[1])
	app := mustLoadBoard(ctx)
	defer app.Close()

	key := cardKey(args[0])
	req, err := app.Service.MoveCard(ctx, key, col, positionFlag)
	if err != nil && req.Key == "" {
		fail(err)
	}
	if err != nil {
		// The board keeps the move; the remote labels retry on the next move.
		fmt.Fprintf(os.Stderr, "⚠️  Moved locally, GitHub not updated: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Moved %s to %s\n", args[0], col.Title())
}

func runIssueClose(cmd *cobra.Command, args []string) {
	setIssueState(args[0], true)
}

func runIssueReopen(cmd *cobra.Command, args []string) {
	setIssueState(args[0], false)
}

// setIssueState closes or reopens the issue. Labels are left alone; the
// card moves to the column the next load would put it in.
func setIssueState(arg string, closed bool) {
	ctx := context.Background()
	app := mustLoadBoard(ctx)
	defer app.Close()

	key := cardKey(arg)
	if board.ParseKey(key).Kind != board.Issue {
		fail(fmt.Errorf("%q is not an issue number", arg))
	}
	changed, err := app.Service.SetIssueState(ctx, key, closed)
	if err != nil {
		fail(err)
	}
	switch {
	case !changed && closed:
		fmt.Printf("Issue #%s is already closed\n", key)
	case !changed:
		fmt.Printf("Issue #%s is already open\n", key)
	case closed:
		fmt.Printf("✅ Closed #%s\n", key)
	default:
		col, _, _ := app.Service.Board.Find(key)
		fmt.Printf("✅ Reopened #%s into %s\n", key, col.Name.Title())
	}
}

func runIssueArchive(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	app := mustLoadBoard(ctx)
	defer app.Close()

	counts, err := app.Service.ArchiveCard(ctx, cardKey(args[0]))
	if err != nil && errors.IsRateLimited(err) {
		fmt.Fprintf(os.Stderr, "⚠️  Removed from the board, GitHub not updated: %v\n", err)
	} else if err != nil {
		fail(err)
	} else {
		fmt.Printf("✅ Archived %s\n", args[0])
	}
	var parts []string
	for _, c := range labels.Columns() {
		parts = append(parts, fmt.Sprintf("%s %d", c.Title(), counts[c]))
	}
	fmt.Printf("   %s\n", strings.Join(parts, " • "))
}

func runIssueEdit(cmd *cobra.Command, args []string) {
	if titleFlag == "" && bodyFlag == "" {
		fail(fmt.Errorf("nothing to change: pass --title and/or --body"))
	}
	ctx := context.Background()
	app := mustLoadBoard(ctx)
	defer app.Close()

	key := cardKey(args[0])
	_, _, card := app.Service.Board.Find(key)
	if card == nil {
		fail(fmt.Errorf("no card %q on the board", args[0]))
	}
	title, body := card.Title, card.Body
	if titleFlag != "" {
		title = titleFlag
	}
	if cmd.Flags().Changed("body") {
		body = bodyFlag
	}
	if err := app.Service.EditCard(ctx, key, title, body); err != nil {
		fail(err)
	}
	fmt.Printf("✅ Updated %s\n", args[0])
}

func runRateLimit(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	app, err := loadApp(ctx)
	if err != nil {
		fail(err)
	}
	defer app.Close()

	if err := app.Sync.ProbeRateLimit(ctx); err != nil {
		fail(errors.NewGitHubConnectionError(err))
	}
	snap := app.Limiter.Snapshot()
	if !snap.Known {
		fmt.Println("ℹ️  GitHub did not report a budget")
		return
	}
	fmt.Printf("Requests remaining: %d of %d\n", snap.Remaining, snap.Limit)
	fmt.Printf("Resets at:          %s\n", snap.ResetTime().Format(time.Kitchen))
	switch snap.State {
	case ratelimit.Blocked:
		fmt.Println("⚠️  Rate limited: changes stay local until the reset")
	case ratelimit.Warning:
		fmt.Println("⚠️  Running low on requests")
	default:
		fmt.Println("✅ Budget is healthy")
	}
	if app.Token == usercfg.TokenNone {
		fmt.Println("ℹ️  Unauthenticated budget; set GITHUB_TOKEN for a higher limit")
	}
}

func runSetup(cmd *cobra.Command, args []string) {
	fmt.Println("ghboard Setup Wizard")
	fmt.Println("====================")

	currentConfig := usercfg.GetRuntimeConfig()
	newConfig := currentConfig
	isFirstRun := !usercfg.IsConfigured()

	if isFirstRun {
		fmt.Println("Welcome! Let's pick the repository your board tracks.")
		fmt.Println()
	} else {
		fmt.Printf("Existing config found at %s, modifying.\n\n", usercfg.Path())
		fmt.Printf("  Repository: %s/%s\n", currentConfig.Owner, currentConfig.Repo)
		fmt.Printf("  Storage: %s\n", currentConfig.Storage.Backend)
		fmt.Println()
	}

	// Repository
	setupRepo := isFirstRun || currentConfig.Owner == "" || currentConfig.Repo == ""
	if !setupRepo {
		if err := survey.AskOne(&survey.Confirm{
			Message: fmt.Sprintf("Change repository? (currently: %s/%s)", currentConfig.Owner, currentConfig.Repo),
			Default: false,
		}, &setupRepo); err != nil {
			fmt.Println("Setup cancelled")
			return
		}
	}
	if setupRepo {
		repo, ok := askRepository(currentConfig)
		if !ok {
			fmt.Println("Setup cancelled")
			return
		}
		newConfig.Owner, newConfig.Repo = repo.Owner, repo.Repo
		newConfig = newConfig.WithRecentRepo(repo)
	}

	// Storage
	setupStorage := isFirstRun
	if !isFirstRun {
		if err := survey.AskOne(&survey.Confirm{
			Message: fmt.Sprintf("Change storage backend? (currently: %s)", currentConfig.Storage.Backend),
			Default: false,
		}, &setupStorage); err != nil {
			fmt.Println("Setup cancelled")
			return
		}
	}
	if setupStorage {
		var backend string
		if err := survey.AskOne(&survey.Select{
			Message: "Where should card order and local cards be stored?",
			Options: kv.Backends(),
			Default: currentConfig.Storage.Backend,
		}, &backend); err != nil {
			fmt.Println("Setup cancelled")
			return
		}
		newConfig.Storage.Backend = backend
		if backend == kv.BackendRedis {
			var addr string
			if err := survey.AskOne(&survey.Input{
				Message: "Redis address (host:port):",
				Default: valueOr(currentConfig.Storage.RedisAddr, "localhost:6379"),
			}, &addr, survey.WithValidator(survey.Required)); err != nil {
				fmt.Println("Setup cancelled")
				return
			}
			newConfig.Storage.RedisAddr = addr
		}
	}

	// 1Password setup, only when no env credential is present
	if _, source := usercfg.ResolveToken(currentConfig); source == usercfg.TokenNone || source == usercfg.TokenOnePassword {
		var configureOP bool
		if err := survey.AskOne(&survey.Confirm{
			Message: "Read your GitHub token from 1Password?",
			Default: currentConfig.OPTokenPath != "",
		}, &configureOP); err != nil {
			fmt.Println("Setup cancelled")
			return
		}

		if configureOP {
			if _, err := exec.LookPath("op"); err != nil {
				fmt.Println()
				fmt.Println("  Warning: 1Password CLI (op) is not installed.")
				fmt.Println("  Install it from: https://developer.1password.com/docs/cli/get-started/")
				fmt.Println("  You can also set GITHUB_TOKEN or GH_TOKEN instead.")
				fmt.Println()
			}
			var opPath string
			if err := survey.AskOne(&survey.Input{
				Message: "1Password secret reference:",
				Default: valueOr(currentConfig.OPTokenPath, "op://Private/GitHub/token"),
			}, &opPath, survey.WithValidator(survey.Required)); err != nil {
				fmt.Println("Setup cancelled")
				return
			}
			newConfig.OPTokenPath = opPath
		} else {
			newConfig.OPTokenPath = ""
			fmt.Println("  Without a credential the board runs local-only; set GITHUB_TOKEN to sync.")
		}
	}

	newConfig.SchemaVersion = usercfg.CurrentSchemaVersion
	if err := usercfg.Save(newConfig); err != nil {
		fmt.Printf("Failed to save config: %v\n", err)
		return
	}

	fmt.Println()
	fmt.Println("✅ Configuration saved!")
	fmt.Printf("  Config file: %s\n", usercfg.Path())
	fmt.Printf("  Repository: %s/%s\n", newConfig.Owner, newConfig.Repo)
	fmt.Printf("  Storage: %s\n", newConfig.Storage.Backend)
	if newConfig.OPTokenPath != "" {
		fmt.Printf("  Token Path: %s\n", newConfig.OPTokenPath)
	}
	fmt.Println()
	fmt.Println("Run 'ghboard' to open your board.")
}

const enterManually = "Enter a repository manually"

// askRepository offers discovered repositories when a credential is
// available, falling back to free text.
func askRepository(cfg usercfg.Config) (board.RepoContext, bool) {
	if token, _ := usercfg.ResolveToken(cfg); token != "" {
		sync, err := remote.New(nil, nil, remote.Options{BaseURL: cfg.APIURL, Token: token})
		if err == nil {
			fmt.Println("Looking up your repositories...")
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
			repos, err := sync.DiscoverRepos(ctx)
			cancel()
			if err != nil {
				fmt.Printf("  Could not list repositories: %v\n", err)
			}
			ranked := remote.RankRepos(repos, cfg.RecentRepos, cfg.PreferredOwners, time.Now())
			if len(ranked) > 0 {
				options := make([]string, 0, len(ranked)+1)
				for _, r := range ranked {
					options = append(options, r.FullName)
				}
				options = append(options, enterManually)
				var choice string
				if err := survey.AskOne(&survey.Select{
					Message:  "Which repository should the board track?",
					Options:  options,
					PageSize: 12,
					Description: func(value string, index int) string {
						if index >= len(ranked) {
							return ""
						}
						return fmt.Sprintf("%d open", ranked[index].OpenIssues)
					},
				}, &choice); err != nil {
					return board.RepoContext{}, false
				}
				if choice != enterManually {
					repo, err := board.ParseRepo(choice)
					return repo, err == nil
				}
			}
		}
	}

	current := ""
	if cfg.Owner != "" && cfg.Repo != "" {
		current = cfg.Owner + "/" + cfg.Repo
	}
	var input string
	if err := survey.AskOne(&survey.Input{
		Message: "Repository (owner/repo):",
		Default: current,
	}, &input, survey.WithValidator(func(ans interface{}) error {
		s, _ := ans.(string)
		if _, err := board.ParseRepo(s); err != nil {
			return errors.NewInvalidRepoError(s)
		}
		return nil
	})); err != nil {
		return board.RepoContext{}, false
	}
	repo, err := board.ParseRepo(input)
	return repo, err == nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func runConfigMigrate(cmd *cobra.Command, args []string) {
	err := usercfg.MigrateAndSave()
	if err != nil {
		fmt.Printf("Migration failed: %v\n", err)
		os.Exit(1)
	}
}

func runConfigPath(cmd *cobra.Command, args []string) {
	fmt.Println(usercfg.Path())
}

func runConfigPrint(cmd *cobra.Command, args []string) {
	config := usercfg.GetRuntimeConfig()

	fmt.Printf("Configuration (effective):\n")
	fmt.Printf("  Schema Version: %d\n", config.SchemaVersion)
	for _, key := range usercfg.Keys() {
		v, _ := config.Get(key)
		fmt.Printf("  %s: %s\n", key, v)
	}
	fmt.Printf("  recent_repos: %v\n", config.RecentRepos)
	fmt.Printf("  UI Preferences: %+v\n", config.UIPrefs)
	fmt.Printf("\nConfig file location: %s\n", usercfg.Path())
}

func runConfigGet(cmd *cobra.Command, args []string) {
	config := usercfg.GetRuntimeConfig()
	v, err := config.Get(args[0])
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	fmt.Println(v)
}

func runConfigSet(cmd *cobra.Command, args []string) {
	key := args[0]
	value := args[1]

	// Load current config
	config, err := usercfg.Load()
	if err != nil && err != usercfg.ErrNotConfigured {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := config.Set(key, value); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	// Save the updated config
	err = usercfg.Save(config)
	if err != nil {
		fmt.Printf("Failed to save config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

func runConfigDoctor(cmd *cobra.Command, args []string) {
	fmt.Println("🏥 ghboard Configuration Doctor")
	fmt.Println("==============================")

	config := usercfg.GetRuntimeConfig()
	_, source := usercfg.ResolveToken(config)
	findings := usercfg.Diagnose(config, source)
	for _, f := range findings {
		switch {
		case f.OK:
			fmt.Printf("✅ %s\n", f.Title)
		case f.Info:
			fmt.Printf("ℹ️  %s\n", f.Title)
		default:
			fmt.Printf("⚠️  %s\n", f.Title)
		}
		if f.Advice != "" {
			fmt.Printf("   %s\n", f.Advice)
		}
	}

	fmt.Println()
	if issues := usercfg.Problems(findings); issues == 0 {
		fmt.Println("🎉 No issues found! Configuration looks healthy.")
	} else {
		fmt.Printf("Found %d issue(s). See suggestions above.\n", issues)
		os.Exit(1)
	}
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonFlag {
		data, err := json.MarshalIndent(version.GetBuildInfo(), "", "  ")
		if err != nil {
			fail(err)
		}
		fmt.Println(string(data))
		return
	}
	fmt.Println(version.GetVersionString())

	// Check for available updates (synchronous since user is asking about version)
	ch := version.StartUpdateCheck()
	select {
	case result := <-ch:
		if result.NewVersion != "" {
			fmt.Printf("\n\033[33mUpdate available: %s (current: %s)\033[0m\n", result.NewVersion, version.GetShortVersion())
			fmt.Println("\033[33mRun 'ghboard update' to upgrade.\033[0m")
		}
	case <-time.After(5 * time.Second):
		// Don't block forever if GitHub is slow
	}
}

func runUpdate(cmd *cobra.Command, args []string) {
	current := version.GetShortVersion()
	if current == "dev" {
		fmt.Println("Cannot self-update a dev build. Install a released version first.")
		return
	}

	updater, err := version.NewUpdater()
	if err != nil {
		fmt.Printf("Failed to create updater: %v\n", err)
		return
	}

	fmt.Printf("Current version: %s\nChecking for updates...\n", current)

	latest, found, err := updater.DetectLatest(context.Background(), selfupdate.ParseSlug(version.Slug))
	if err != nil {
		fmt.Printf("Update check failed: %v\n", err)
		return
	}
	if !found {
		fmt.Println("No release found for your OS/architecture.")
		return
	}

	if latest.LessOrEqual(current) {
		fmt.Println("Already up to date.")
		return
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		fmt.Printf("Could not locate executable: %v\n", err)
		return
	}

	if err := updater.UpdateTo(context.Background(), latest, exe); err != nil {
		fmt.Printf("Update failed: %v\n", err)
		return
	}

	fmt.Printf("Updated to %s\n", latest.Version())
}
