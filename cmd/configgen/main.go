package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/IshaanNene/scrapegoat-configgen/internal/ai"
	"github.com/IshaanNene/scrapegoat-configgen/internal/api"
	"github.com/IshaanNene/scrapegoat-configgen/internal/config"
	"github.com/IshaanNene/scrapegoat-configgen/internal/generator"
	"github.com/IshaanNene/scrapegoat-configgen/internal/storage"
	"github.com/IshaanNene/scrapegoat-configgen/internal/types"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "configgen",
		Short: "Scraping config synthesizer",
		Long: `configgen generates scraping configurations for listing pages.

It describes a page's structure with an LLM, retrieves the most similar
known-good configurations from a vector index, and asks the LLM to write a
validated config (render mode, extraction schema, pagination, request and
browser options) for the new page.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(indexCmd())
	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads and validates the configuration and builds the logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, setupLogger(cfg.Logging, verbose), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// generateCmd creates the "generate" subcommand.
func generateCmd() *cobra.Command {
	var (
		sourceName string
		k          int
		seedsFile  string
		outputPath string
		noDebug    bool
	)

	cmd := &cobra.Command{
		Use:   "generate [url]",
		Short: "Generate a scraping config for a listing page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if err := config.ValidateURL(args[0]); err != nil {
				return fmt.Errorf("invalid URL %q: %w", args[0], err)
			}
			if outputPath != "" {
				cfg.Storage.OutputPath = outputPath
			}
			if noDebug {
				cfg.Storage.WriteDebug = false
			}
			if sourceName == "" {
				if req, err := types.NewRequest(args[0]); err == nil {
					sourceName = req.Domain()
				}
			}

			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx, cfg, logger, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if cfg.Metrics.Enabled {
				srv := a.metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path)
				defer srv.Close()
			}

			tracker := &ai.Tracker{}
			if seedsFile != "" {
				seeds, err := generator.LoadSeeds(seedsFile)
				if err != nil {
					return err
				}
				report, err := a.indexer().IndexAll(ctx, seeds, false)
				tracker.Add(report.Usage)
				if err != nil {
					return fmt.Errorf("index seeds: %w", err)
				}
			}

			res, err := a.generator().Generate(ctx, args[0], sourceName, k)
			if err != nil {
				return err
			}
			tracker.Add(res.Usage)

			writer, err := storage.NewResultWriter(cfg.Storage.OutputPath, cfg.Storage.WriteDebug, logger)
			if err != nil {
				return err
			}
			defer writer.Close()
			if err := writer.Store(res); err != nil {
				return err
			}

			fmt.Println(types.PrettyJSON(res.Config))
			printUsage(tracker.Summary())
			fmt.Fprintf(os.Stderr, "Saved to %s\n", writer.Dir(res.SourceName))
			return nil
		},
	}

	cmd.Flags().StringVarP(&sourceName, "source", "s", "", "source name for the site (default: URL host)")
	cmd.Flags().IntVarP(&k, "num-similar", "k", 0, "number of similar configs to retrieve (default: generator.num_similar)")
	cmd.Flags().StringVar(&seedsFile, "seeds", "", "seed file to index before generating")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output directory")
	cmd.Flags().BoolVar(&noDebug, "no-debug", false, "do not write the debug snapshot")

	return cmd
}

// indexCmd creates the "index" subcommand.
func indexCmd() *cobra.Command {
	var (
		seedsFile string
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Add known-good configs to the similarity index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			seeds, err := generator.LoadSeeds(seedsFile)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx, cfg, logger, seedsNeedFetcher(seeds))
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.indexer().IndexAll(ctx, seeds, force)
			if err != nil {
				return err
			}

			fmt.Printf("Indexed: %d  Skipped: %d  Failed: %d\n", report.Indexed, report.Skipped, report.Failed)
			for id, msg := range report.Errors {
				fmt.Printf("  %s: %s\n", id, msg)
			}
			tracker := &ai.Tracker{}
			tracker.Add(report.Usage)
			printUsage(tracker.Summary())

			if report.Failed > 0 {
				return fmt.Errorf("%d seeds failed to index", report.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&seedsFile, "file", "f", "", "seed file (YAML or JSON)")
	cmd.Flags().BoolVar(&force, "force", false, "re-index seeds already present")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// resetCmd creates the "reset" subcommand.
func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete every config from the similarity index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx, cfg, logger, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.index.Reset(ctx); err != nil {
				return err
			}
			fmt.Printf("Index %s cleared\n", a.index.Backend())
			return nil
		},
	}
}

// statsCmd creates the "stats" subcommand.
func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show similarity index statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx, cfg, logger, false)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.index.Count(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Backend:  %s\n", a.index.Backend())
			fmt.Printf("Configs:  %d\n", n)
			return nil
		},
	}
}

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	var (
		addr      string
		seedsFile string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve config generation over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.API.Addr = addr
			}

			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx, cfg, logger, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if seedsFile != "" {
				seeds, err := generator.LoadSeeds(seedsFile)
				if err != nil {
					return err
				}
				if _, err := a.indexer().IndexAll(ctx, seeds, false); err != nil {
					return fmt.Errorf("index seeds: %w", err)
				}
			}

			writer, err := storage.NewResultWriter(cfg.Storage.OutputPath, cfg.Storage.WriteDebug, logger)
			if err != nil {
				return err
			}
			defer writer.Close()

			opts := []api.Option{api.WithStorage(writer)}
			if cfg.Metrics.Enabled {
				opts = append(opts, api.WithMetrics(a.metrics))
			}

			srv := api.NewServer(cfg.API, a.generator(), a.index, logger, opts...)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: api.addr)")
	cmd.Flags().StringVar(&seedsFile, "seeds", "", "seed file to index at startup")

	return cmd
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			redacted := *cfg
			if redacted.LLM.APIKey != "" {
				redacted.LLM.APIKey = "***"
			}
			if redacted.Embedding.APIKey != "" {
				redacted.Embedding.APIKey = "***"
			}
			if redacted.Cache.Password != "" {
				redacted.Cache.Password = "***"
			}

			out, err := yaml.Marshal(&redacted)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("configgen %s\n", config.Version)
		},
	}
}

func printUsage(s ai.Summary) {
	fmt.Fprintf(os.Stderr, "LLM usage: %d calls, %d input tokens, %d output tokens, $%.4f\n",
		s.Calls, s.InputTokens, s.OutputTokens, s.TotalCostUSD)
}
