package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vitebski/nba-endpoint-analyzer/internal/analyzer"
	"github.com/vitebski/nba-endpoint-analyzer/internal/batch"
	"github.com/vitebski/nba-endpoint-analyzer/internal/catalog"
	"github.com/vitebski/nba-endpoint-analyzer/internal/config"
	"github.com/vitebski/nba-endpoint-analyzer/internal/connector"
	"github.com/vitebski/nba-endpoint-analyzer/internal/discovery"
	"github.com/vitebski/nba-endpoint-analyzer/internal/store"
	"github.com/vitebski/nba-endpoint-analyzer/internal/utils"
)

func main() {
	var (
		endpoint      string
		all           bool
		list          bool
		output        string
		pause         float64
		retry         int
		retryPause    time.Duration
		timeout       time.Duration
		workers       int
		baseURL       string
		storePath     string
		tablesPath    string
		catalogPath   string
		configPath    string
		envFile       string
		logLevel      string
		archive       bool
		skipValidated bool
	)

	rootCmd := &cobra.Command{
		Use:   "nba-endpoint-analyzer",
		Short: "Infer the parameter contracts of NBA stats API endpoints",
		Long: `NBA Endpoint Analyzer

Probes stats.nba.com endpoints with empty, minimal and invalid requests,
reads the validation errors, and records which parameters each endpoint
requires, accepts empty, and what values they must match.`,
		Run: func(cmd *cobra.Command, args []string) {
			registry := discovery.Default()

			if list {
				utils.PrintEndpointList(os.Stdout, registry.Names())
				return
			}
			if endpoint == "" && !all {
				_ = cmd.Help()
				return
			}

			// Environment first so the config layer sees .env values
			bootstrap := utils.SetupLogging(logLevel)
			var requiredVars []string
			if archive {
				requiredVars = utils.ArchiveEnvironment
			}
			utils.LoadEnvironmentVariables(envFile, requiredVars, bootstrap)

			cfg, err := config.Load(configPath)
			if err != nil {
				bootstrap.Errorf("Failed to load config: %v", err)
				os.Exit(1)
			}

			flags := cmd.Flags()
			if flags.Changed("pause") {
				cfg.EndpointPause = time.Duration(pause * float64(time.Second))
			}
			if flags.Changed("retry") {
				cfg.RetryAttempts = retry
			}
			if flags.Changed("retry-pause") {
				cfg.RetryPause = retryPause
			}
			if flags.Changed("timeout") {
				cfg.Timeout = timeout
			}
			if flags.Changed("workers") {
				cfg.Workers = workers
			}
			if flags.Changed("base-url") {
				cfg.BaseURL = baseURL
			}
			if flags.Changed("store") {
				cfg.StorePath = storePath
			}
			if flags.Changed("tables") {
				cfg.TablesPath = tablesPath
			}
			if flags.Changed("catalog") {
				cfg.CatalogPath = catalogPath
			}
			if flags.Changed("archive") {
				cfg.Archive = archive
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}

			logger := utils.SetupLogging(cfg.LogLevel)

			if err := cfg.Validate(); err != nil {
				logger.Error(err)
				os.Exit(1)
			}

			// Resolve the endpoint before touching the network
			if endpoint != "" {
				ep, err := registry.Lookup(endpoint)
				if err != nil {
					fmt.Printf("Error: Endpoint '%s' not found\n", endpoint)
					fmt.Println("Use --list to see available endpoints")
					os.Exit(1)
				}
				endpoint = ep.Name
			}

			tables, err := catalog.LoadTables(cfg.TablesPath)
			if err != nil {
				logger.Errorf("Failed to load fallback tables: %v", err)
				os.Exit(1)
			}
			parameterCatalog, err := catalog.LoadParameterCatalog(cfg.CatalogPath)
			if err != nil {
				logger.Errorf("Failed to load parameter catalog: %v", err)
				os.Exit(1)
			}

			parameterStore := store.NewParameterStore(cfg.StorePath, tables, logger)
			statsConnector := connector.NewStatsConnector(cfg.BaseURL, cfg.Timeout, logger)
			statsConnector.Paths = registry.Paths()

			opts := analyzer.Options{
				RetryAttempts: cfg.RetryAttempts,
				PauseTime:     cfg.RetryPause,
				Timeout:       cfg.Timeout,
			}
			runner := batch.NewBatchRunner(statsConnector, parameterStore, parameterCatalog, opts, logger)
			runner.Pause = cfg.EndpointPause
			runner.Workers = cfg.Workers
			runner.SkipValidated = skipValidated

			if cfg.Archive {
				if resultArchive := connectArchive(logger); resultArchive != nil {
					defer resultArchive.Disconnect()
					runner.Archive = resultArchive
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if endpoint != "" {
				result, err := runner.AnalyzeEndpoint(ctx, endpoint)
				if err != nil {
					logger.Errorf("Failed to analyze %s: %v", endpoint, err)
					return
				}

				if output != "" {
					if err := utils.SaveJSON(output, map[string]interface{}{endpoint: result}); err != nil {
						logger.Errorf("Failed to write %s: %v", output, err)
					}
					return
				}
				if err := utils.WriteJSON(os.Stdout, result); err != nil {
					logger.Errorf("Failed to print result: %v", err)
				}
				return
			}

			endpoints, err := registry.Select(nil)
			if err != nil {
				logger.Errorf("Failed to list endpoints: %v", err)
				return
			}

			logger.Infof("Analyzing all %d endpoints (run %s)...", len(endpoints), runner.RunID)
			summary := runner.Run(ctx, endpoints)

			if output != "" {
				if err := utils.SaveJSON(output, runner.Results); err != nil {
					logger.Errorf("Failed to write %s: %v", output, err)
					output = ""
				}
			}
			utils.PrintSummary(os.Stdout, summary, output)
		},
	}

	// Define flags
	rootCmd.Flags().StringVar(&endpoint, "endpoint", "", "Name of the endpoint to analyze")
	rootCmd.Flags().BoolVar(&all, "all", false, "Analyze all endpoints")
	rootCmd.Flags().BoolVar(&list, "list", false, "List all available endpoints")
	rootCmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	rootCmd.Flags().Float64Var(&pause, "pause", 1, "Pause between endpoints in seconds")
	rootCmd.Flags().IntVar(&retry, "retry", connector.DefaultRetryAttempts, "Number of attempts per request")
	rootCmd.Flags().DurationVar(&retryPause, "retry-pause", connector.DefaultRetryPause, "Pause between attempts of a request")
	rootCmd.Flags().DurationVar(&timeout, "timeout", connector.DefaultTimeout, "Timeout of a single request")
	rootCmd.Flags().IntVarP(&workers, "workers", "w", 1, "Number of endpoints analyzed concurrently")
	rootCmd.Flags().StringVar(&baseURL, "base-url", connector.DefaultBaseURL, "Stats API base URL")
	rootCmd.Flags().StringVarP(&storePath, "store", "s", store.DefaultPath, "Path to the parameter store file")
	rootCmd.Flags().StringVar(&tablesPath, "tables", "", "Path to a fallback tables YAML file (default: built in)")
	rootCmd.Flags().StringVar(&catalogPath, "catalog", "", "Path to a parameter catalog YAML file (default: built in)")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ~/.config/nba-endpoint-analyzer/config.toml)")
	rootCmd.Flags().StringVarP(&envFile, "env-file", "e", ".env", "Path to .env file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&archive, "archive", false, "Also store every analysis in MySQL (MYSQL_* environment)")
	rootCmd.Flags().BoolVar(&skipValidated, "skip-validated", false, "Reuse stored results for endpoints already marked success or deprecated")

	// Execute
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// connectArchive opens the MySQL archive; failures leave archiving off
func connectArchive(logger *logrus.Logger) *connector.ResultArchive {
	ra := connector.NewResultArchive("", "", "", "", "", logger)
	if !utils.ValidateConnectionParams(ra.Host, ra.User, ra.Password, ra.Database, ra.Port, logger) {
		logger.Warning("Archive disabled: incomplete MySQL settings")
		return nil
	}
	if err := ra.Connect(); err != nil {
		logger.Warningf("Archive disabled: %v", err)
		return nil
	}
	return ra
}
