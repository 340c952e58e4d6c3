package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/everstacklabs/reviewd/internal/adapter/factory"
	"github.com/everstacklabs/reviewd/internal/cache"
	"github.com/everstacklabs/reviewd/internal/catalog"
	"github.com/everstacklabs/reviewd/internal/config"
	"github.com/everstacklabs/reviewd/internal/gitreview"
	"github.com/everstacklabs/reviewd/internal/httpclient"
	"github.com/everstacklabs/reviewd/internal/orchestrator"
	"github.com/everstacklabs/reviewd/internal/prompt"
	"github.com/everstacklabs/reviewd/internal/server"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "reviewd",
		Short: "Code review broker for AI models",
		Long:  "Routes code review requests to remote, proxied, hosted, and local models with caching and a mock fallback.",
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	rootCmd.AddCommand(
		serveCmd(),
		analyzeCmd(),
		modelsCmd(),
		cacheCmd(),
		warmupCmd(),
		reviewCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles the wired services behind every command.
type app struct {
	cfg     *config.Config
	catalog *catalog.Service
	orch    *orchestrator.Service
}

func buildApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	setupLogging(cfg.LogLevel)

	cat, err := catalog.New(cfg.CatalogPath, cfg.ModelsDir)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	store, err := cache.New(cfg.CacheEnabled, cfg.CacheDir, cfg.CacheTTLDuration())
	if err != nil {
		slog.Warn("failed to create cache, continuing without", "error", err)
		store, _ = cache.New(false, "", 0)
	}

	prompts := prompt.NewBuilder(cfg.NativeLanguage)
	if cfg.PromptFile != "" {
		if err := prompts.LoadOverrides(cfg.PromptFile); err != nil {
			slog.Warn("failed to load prompt overrides", "file", cfg.PromptFile, "error", err)
		}
	}

	client := httpclient.New(
		httpclient.WithRateLimit(cfg.RateLimit),
		httpclient.WithTimeout(cfg.RequestTimeoutDuration()),
	)
	keys := config.NewCredentials(cfg)
	fac := factory.New(keys, client, prompts, cfg.Ollama.URL, cfg.RequestTimeoutDuration())
	cat.OnChange(fac.Evict)

	return &app{
		cfg:     cfg,
		catalog: cat,
		orch:    orchestrator.New(cat, fac, store),
	}, nil
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}

			a.orch.Preload()

			srv := server.New(a.orch, a.catalog, a.cfg.Server.AuthToken, a.cfg.Server.MaxCodeBytes)
			slog.Info("listening", "addr", a.cfg.Server.Addr)
			return http.ListenAndServe(a.cfg.Server.Addr, srv.Handler())
		},
	}
}

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Review a code file (or stdin) and print the result",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}

			var code []byte
			language, _ := cmd.Flags().GetString("language")
			if len(args) == 1 {
				code, err = os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("reading %s: %w", args[0], err)
				}
				if language == "" {
					language = gitreview.LanguageOf(args[0])
				}
			} else {
				code, err = io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
			}
			if strings.TrimSpace(string(code)) == "" {
				return fmt.Errorf("no code to analyze")
			}

			model, _ := cmd.Flags().GetString("model")
			respLang, _ := cmd.Flags().GetString("response-language")

			res := a.orch.Analyze(cmd.Context(), orchestrator.Request{
				ModelID:          model,
				Code:             string(code),
				Language:         language,
				ResponseLanguage: prompt.ResponseLanguage(respLang),
			})
			if res.Warning != "" {
				fmt.Fprintf(os.Stderr, "warning: %s\n", res.Warning)
			}
			fmt.Println(res.Text)
			return nil
		},
	}

	cmd.Flags().String("model", "", "Model id (default: catalog default)")
	cmd.Flags().String("language", "", "Source language (default: from file extension)")
	cmd.Flags().String("response-language", "native", "Response language: native, english, or bilingual")

	return cmd
}

func modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage the model catalog",
	}
	cmd.AddCommand(modelsListCmd(), modelsAddCmd(), modelsRmCmd(), modelsSetDefaultCmd())
	return cmd
}

func modelsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List catalog models",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			for _, m := range a.catalog.List() {
				marker := " "
				if m.IsDefault {
					marker = "*"
				}
				fmt.Printf("%s %-20s %-12s %s\n", marker, m.ID, m.Type, m.DisplayName)
			}
			return nil
		},
	}
}

func modelsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Add a model to the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}

			name, _ := cmd.Flags().GetString("name")
			typ, _ := cmd.Flags().GetString("type")
			baseURL, _ := cmd.Flags().GetString("base-url")
			provider, _ := cmd.Flags().GetString("provider")
			setDefault, _ := cmd.Flags().GetBool("default")
			if name == "" {
				name = args[0]
			}

			d := catalog.Descriptor{
				ID:          args[0],
				DisplayName: name,
				Type:        catalog.ProviderType(typ),
				IsDefault:   setDefault,
				Config: catalog.ProviderConfig{
					Provider: provider,
					BaseURL:  baseURL,
				},
			}
			if err := a.catalog.Add(d); err != nil {
				return err
			}
			fmt.Printf("added %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().String("name", "", "Display name (default: the id)")
	cmd.Flags().String("type", "remote-api", "Provider type: remote-api, proxy, local, hosted-ui, or mock")
	cmd.Flags().String("base-url", "", "API base URL")
	cmd.Flags().String("provider", "openai", "Credential provider name")
	cmd.Flags().Bool("default", false, "Make this the default model")

	return cmd
}

func modelsRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a model from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			if err := a.catalog.Delete(args[0]); err != nil {
				return err
			}
			fmt.Printf("removed %s\n", args[0])
			return nil
		},
	}
}

func modelsSetDefaultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-default <id>",
		Short: "Set the default model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			if err := a.catalog.SetDefault(args[0]); err != nil {
				return err
			}
			fmt.Printf("default model is now %s\n", args[0])
			return nil
		},
	}
}

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the result cache",
	}

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached results",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			n, err := a.orch.ClearCache()
			if err != nil {
				return err
			}
			fmt.Printf("removed %d cached results\n", n)
			return nil
		},
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show cache usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			st, err := a.orch.CacheStats()
			if err != nil {
				return err
			}
			fmt.Printf("dir:     %s\n", st.Dir)
			fmt.Printf("entries: %d (%d expired)\n", st.Entries, st.Expired)
			fmt.Printf("bytes:   %d\n", st.TotalBytes)
			return nil
		},
	}

	cmd.AddCommand(clear, stats)
	return cmd
}

func warmupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "warmup",
		Short: "Build adapters for every catalog model",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			a.orch.Preload()
			return nil
		},
	}
}

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review git changes and pull requests",
	}
	cmd.AddCommand(reviewDiffCmd(), reviewPRCmd())
	return cmd
}

func reviewDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff [path]",
		Short: "Review the changed files of a local repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}

			path := "."
			if len(args) == 1 {
				path = args[0]
			}
			model, _ := cmd.Flags().GetString("model")
			respLang, _ := cmd.Flags().GetString("response-language")

			r := gitreview.New(a.orch)
			reviews, err := r.ReviewRepo(cmd.Context(), path, model, prompt.ResponseLanguage(respLang))
			if err != nil {
				return err
			}
			if len(reviews) == 0 {
				fmt.Println("no changed files to review")
				return nil
			}
			fmt.Println(gitreview.RenderReviews(reviews))
			return nil
		},
	}

	cmd.Flags().String("model", "", "Model id (default: catalog default)")
	cmd.Flags().String("response-language", "native", "Response language: native, english, or bilingual")

	return cmd
}

func reviewPRCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pr <number>",
		Short: "Review a GitHub pull request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}

			var number int
			if _, err := fmt.Sscanf(args[0], "%d", &number); err != nil || number <= 0 {
				return fmt.Errorf("invalid PR number %q", args[0])
			}

			owner, _ := cmd.Flags().GetString("owner")
			repo, _ := cmd.Flags().GetString("repo")
			if owner == "" {
				owner = a.cfg.GitHub.Owner
			}
			if repo == "" {
				repo = a.cfg.GitHub.Repo
			}
			if owner == "" || repo == "" {
				return fmt.Errorf("--owner and --repo are required (or set github.owner/github.repo in config)")
			}
			model, _ := cmd.Flags().GetString("model")
			respLang, _ := cmd.Flags().GetString("response-language")
			post, _ := cmd.Flags().GetBool("post")

			r := gitreview.NewPullRequestReviewer(cmd.Context(), a.orch, a.cfg.GitHub.Token)
			body, err := r.ReviewPullRequest(cmd.Context(), owner, repo, number, model, prompt.ResponseLanguage(respLang), post)
			if err != nil {
				return err
			}
			fmt.Println(body)
			return nil
		},
	}

	cmd.Flags().String("owner", "", "Repository owner (default: from config)")
	cmd.Flags().String("repo", "", "Repository name (default: from config)")
	cmd.Flags().String("model", "", "Model id (default: catalog default)")
	cmd.Flags().String("response-language", "native", "Response language: native, english, or bilingual")
	cmd.Flags().Bool("post", false, "Post the review as a PR comment")

	return cmd
}
