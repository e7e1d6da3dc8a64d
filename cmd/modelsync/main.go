package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/everstacklabs/modelsync/internal/cache"
	"github.com/everstacklabs/modelsync/internal/catalog"
	"github.com/everstacklabs/modelsync/internal/config"
	"github.com/everstacklabs/modelsync/internal/credentials"
	"github.com/everstacklabs/modelsync/internal/diff"
	"github.com/everstacklabs/modelsync/internal/httpclient"
	"github.com/everstacklabs/modelsync/internal/pipeline"
	"github.com/everstacklabs/modelsync/internal/reconcile"
	"github.com/everstacklabs/modelsync/internal/source"
	"github.com/everstacklabs/modelsync/internal/validate"
)

var cfgFile string

func main() {
	syncCommand := syncCmd()

	// Running without a subcommand performs a sync.
	rootCmd := &cobra.Command{
		Use:           "modelsync",
		Short:         "Novita model definition reconciler",
		Long:          "Keeps a directory of model definition YAML files in line with the Novita model catalog.",
		RunE:          syncCommand.RunE,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.Flags().AddFlagSet(syncCommand.Flags())

	rootCmd.AddCommand(
		syncCommand,
		diffCmd(),
		validateCmd(),
		checkCredentialsCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("modelsync failed", "error", err)
		os.Exit(pipeline.ExitFailure)
	}
}

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Full run: fetch → diff → write → index → optional PR",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
				cfg.DryRun = true
			}

			rec, err := newReconciler(cfg)
			if err != nil {
				return err
			}

			var publisher *pipeline.Publisher
			if cfg.CanPublish() {
				publisher = pipeline.NewPublisher(cmd.Context(), cfg.GitHub, cfg.CatalogDir)
			}

			result, err := pipeline.New(cfg, rec, publisher).Sync(cmd.Context())
			if err != nil {
				return err
			}

			switch {
			case result.PRNumber > 0:
				slog.Info("PR created", "pr", result.PRNumber, "draft", result.PRDraft, "url", result.PRURL)
			case result.Skipped:
				slog.Info("sync complete", "publish", result.SkipReason)
			default:
				slog.Info("sync complete")
			}
			return nil
		},
	}

	cmd.Flags().Bool("dry-run", false, "Show what would change without writing")

	return cmd
}

func diffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Show what would change (no writes); exits 2 when changes exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			rec, err := newReconciler(cfg)
			if err != nil {
				return err
			}

			cs, err := pipeline.New(cfg, rec, nil).Diff(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Println(diff.RenderSummary(cs))
			if cs.HasChanges() {
				os.Exit(pipeline.ExitChanges)
			}
			return nil
		},
	}
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate existing definition files (CI check)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			dir := cfg.CatalogDir
			if flag, _ := cmd.Flags().GetString("catalog-dir"); flag != "" {
				dir = flag
			}

			d, err := catalog.LoadDir(dir, catalog.LoadOptions{
				IndexFile: cfg.IndexFile,
				Ignore:    cfg.IgnoreFiles,
			})
			if err != nil {
				return fmt.Errorf("loading catalog: %w", err)
			}

			result := validate.ValidateDirectory(d)
			fmt.Println(validate.FormatResult(result))

			if result.HasErrors() {
				os.Exit(pipeline.ExitFailure)
			}
			return nil
		},
	}

	cmd.Flags().String("catalog-dir", "", "Definition directory (default: from config)")

	return cmd
}

func checkCredentialsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-credentials",
		Short: "Verify the Novita API key with a minimal completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Novita.APIKey == "" {
				return errors.New("no API key configured (set NOVITA_API_KEY)")
			}

			v := credentials.New(cfg.Novita.APIKey,
				credentials.WithBaseURL(cfg.Novita.BaseURL),
				credentials.WithProbeModel(cfg.Novita.ProbeModel))
			if err := v.Validate(cmd.Context()); err != nil {
				return err
			}

			fmt.Println("✅ Credentials are valid")
			return nil
		},
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	level, _ := cfg.SlogLevel()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	return cfg, nil
}

func newReconciler(cfg *config.Config) (*reconcile.Reconciler, error) {
	policy, err := diff.ParseMalformedPolicy(cfg.OnMalformed)
	if err != nil {
		return nil, err
	}

	src, err := source.New(cfg.Source.Kind, cfg.Source.URL, cfg.Source.File, newHTTPClient(cfg))
	if err != nil {
		return nil, err
	}

	return reconcile.New(src, reconcile.Options{
		Dir:         cfg.CatalogDir,
		IndexFile:   cfg.IndexFile,
		Ignore:      cfg.IgnoreFiles,
		OnMalformed: policy,
		DryRun:      cfg.DryRun,
	}, os.Stdout), nil
}

func newHTTPClient(cfg *config.Config) *httpclient.Client {
	opts := []httpclient.Option{
		httpclient.WithRateLimit(cfg.RateLimit),
	}

	if !cfg.NoCache {
		ttl, _ := cfg.CacheTTLDuration()
		store, err := cache.Open(cfg.CacheDir, ttl)
		if err != nil {
			slog.Warn("failed to open cache, continuing without", "error", err)
		} else {
			opts = append(opts, httpclient.WithCache(store))
		}
	}

	return httpclient.New(opts...)
}
