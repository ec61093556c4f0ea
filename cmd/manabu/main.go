// Package main is the manabu CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/manabu/internal/cli"
	"github.com/hyperjump/manabu/internal/config"
	"github.com/hyperjump/manabu/internal/extract"
	"github.com/hyperjump/manabu/internal/indexer"
	"github.com/hyperjump/manabu/internal/server"
	"github.com/hyperjump/manabu/internal/service"
	"github.com/hyperjump/manabu/internal/watcher"
	"github.com/hyperjump/manabu/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/manabu/config.yaml"

const defaultTenant = "local"

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	tenant     string
	output     string
	debug      bool
}

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory is preferred if present, and a missing default file falls back to built-in
// defaults. Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, "", err
	}
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				cfg, err := config.Load(fallback)
				if err != nil {
					return nil, "", err
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// joinArgs joins positional args with spaces so multi-word questions work the same with
// or without shell quoting.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// resolveTenant picks the tenant from the flag, then MANABU_TENANT, then the local default.
func resolveTenant(flagValue string) (string, error) {
	tenant := flagValue
	if tenant == "" {
		tenant = os.Getenv("MANABU_TENANT")
	}
	if tenant == "" {
		tenant = defaultTenant
	}
	if !server.ValidTenantID(tenant) {
		return "", fmt.Errorf("invalid tenant id %q", tenant)
	}
	return tenant, nil
}

// app is the state a command needs once config, logger and service are ready.
type app struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	svc        *service.Service
	tenant     string
	format     cli.OutputFormat
}

func (a *app) Close() {
	if a.svc != nil {
		if err := a.svc.Close(); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func setup(ctx context.Context, g *globalFlags) (*app, error) {
	cfg, resolved, err := loadConfig(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	format, err := cli.ParseOutputFormat(g.output)
	if err != nil {
		return nil, err
	}
	tenant, err := resolveTenant(g.tenant)
	if err != nil {
		return nil, err
	}
	debug := cfg.Debug || g.debug
	logger, err := utils.NewLogger(debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debug))

	svc, err := service.Build(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return &app{cfg: cfg, configPath: resolved, logger: logger, svc: svc, tenant: tenant, format: format}, nil
}

// withApp wraps a command body so it runs with a ready app that is closed afterwards.
func withApp(g *globalFlags, fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context(), g)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a, args)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "manabu",
		Short:         "manabu: a study assistant over your own course materials",
		Long:          "manabu indexes course materials per tenant and answers questions, writes summaries and quizzes from them.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", defaultConfigPath, "config file path")
	root.PersistentFlags().StringVarP(&g.tenant, "tenant", "t", "", "tenant id (default $MANABU_TENANT or \"local\")")
	root.PersistentFlags().StringVarP(&g.output, "output", "o", "text", "output format: text or json")
	root.PersistentFlags().BoolVar(&g.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		serverCmd(g),
		initCmd(g),
		ingestCmd(g),
		askCmd(g),
		summarizeCmd(g),
		quizCmd(g),
		dashboardCmd(g),
		historyCmd(g),
		clearCmd(g),
		statusCmd(g),
		versionCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serverCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Run the HTTP API and the tenant inbox watcher",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, _ []string) error {
			ctx := cmd.Context()
			a.logger.Info("config loaded", zap.String("config_path", a.configPath))

			if a.cfg.Watch.EnabledOrDefault() && a.cfg.Watch.InboxDir != "" {
				inbox := watcher.NewWatcher(a.cfg.Watch.InboxDir, extract.SupportedExtensions(),
					func(tenant, path string) {
						res := a.svc.Ingest(context.Background(), tenant, []string{path})
						a.logger.Info("inbox ingest", zap.String("tenant", tenant), zap.String("path", path),
							zap.String("status", string(res.Status)), zap.String("message", res.Message))
					},
					watcher.WithLogger(a.logger),
					watcher.WithTenantFilter(server.ValidTenantID),
				)
				if err := inbox.Start(ctx); err != nil {
					return fmt.Errorf("failed to start inbox watcher: %w", err)
				}
				defer inbox.Stop()
				go inbox.SyncExistingFiles()
			}

			srv := server.NewServer(a.svc, a.cfg, a.logger)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}
			a.logger.Info("Shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Stop(shutdownCtx)
		}),
	}
}

func initCmd(g *globalFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a config file with default settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return err
			}
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func ingestCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file-or-directory>...",
		Short: "Extract, chunk and index course materials for the tenant",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			var files []string
			for _, arg := range args {
				info, err := os.Stat(arg)
				if err != nil {
					return err
				}
				if !info.IsDir() {
					files = append(files, arg)
					continue
				}
				found, err := indexer.SupportedFiles(arg)
				if err != nil {
					return err
				}
				files = append(files, found...)
			}
			res := a.svc.Ingest(cmd.Context(), a.tenant, files)
			return cli.WriteIngest(cmd.OutOrStdout(), res, a.format)
		}),
	}
}

func askCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the tenant's documents, falling back to Wikipedia",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			ans, err := a.svc.Ask(cmd.Context(), a.tenant, joinArgs(args))
			if err != nil {
				return err
			}
			return cli.WriteAnswer(cmd.OutOrStdout(), ans, a.format)
		}),
	}
}

func summarizeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <topic>",
		Short: "Summarize what the tenant's documents say about a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			topic := joinArgs(args)
			summary, err := a.svc.Summarize(cmd.Context(), a.tenant, topic)
			if err != nil {
				return err
			}
			return cli.WriteSummary(cmd.OutOrStdout(), topic, summary, a.format)
		}),
	}
}

func quizCmd(g *globalFlags) *cobra.Command {
	var n int
	var answers bool
	cmd := &cobra.Command{
		Use:   "quiz <topic>",
		Short: "Generate a multiple choice quiz from the tenant's documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			if n <= 0 {
				n = a.cfg.Retrieval.QuizQuestions
			}
			quiz, err := a.svc.Quiz(cmd.Context(), a.tenant, joinArgs(args), n)
			if err != nil {
				return err
			}
			return cli.WriteQuiz(cmd.OutOrStdout(), quiz, answers, a.format)
		}),
	}
	cmd.Flags().IntVarP(&n, "num", "n", 0, "number of questions (default from config)")
	cmd.Flags().BoolVar(&answers, "answers", false, "print correct answers and explanations")
	return cmd
}

func dashboardCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show study statistics",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, _ []string) error {
			return cli.WriteStats(cmd.OutOrStdout(), a.svc.Dashboard(cmd.Context(), a.tenant), a.format)
		}),
	}
}

func historyCmd(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent questions and answers",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, _ []string) error {
			if limit <= 0 {
				limit = a.cfg.Retrieval.HistoryLimit
			}
			return cli.WriteHistory(cmd.OutOrStdout(), a.svc.History(cmd.Context(), a.tenant, limit), a.format)
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "number of entries (default from config)")
	return cmd
}

func clearCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the tenant's documents, history, quiz scores and index",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, _ []string) error {
			n, err := a.svc.Clear(cmd.Context(), a.tenant)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared tenant %s (%d chunks removed)\n", a.tenant, n)
			return nil
		}),
	}
}

func statusCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List uploaded documents and indexed chunk count",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, _ []string) error {
			st, err := a.svc.Status(cmd.Context(), a.tenant)
			if err != nil {
				return err
			}
			return cli.WriteStatus(cmd.OutOrStdout(), st, a.format)
		}),
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "manabu version %s\n", version)
		},
	}
}
