package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Daylily-Informatics/daylily-omics-references/internal/config"
	"github.com/Daylily-Informatics/daylily-omics-references/internal/copylog"
	"github.com/Daylily-Informatics/daylily-omics-references/internal/logging"
	"github.com/Daylily-Informatics/daylily-omics-references/internal/manager"
	"github.com/Daylily-Informatics/daylily-omics-references/internal/metrics"
	"github.com/Daylily-Informatics/daylily-omics-references/internal/refdata"
	"github.com/Daylily-Informatics/daylily-omics-references/internal/s3gate"
	"github.com/Daylily-Informatics/daylily-omics-references/internal/transfer"
)

// Version information (set via ldflags)
var (
	Version = "v0.1.0"
	GitSHA  = "unknown"
)

var (
	flagConfig      string
	flagProfile     string
	flagRegion      string
	flagLogLevel    string
	flagLogFormat   string
	flagMetricsAddr string

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "dayrefs",
	Short: "Manage Daylily omics analysis reference buckets",
	Long: `dayrefs clones, verifies and ensures versioned genomic reference
buckets in S3. Clone copies the canonical reference data into a new
regional bucket, verify checks an existing bucket against an expected
version and structure, and ensure converges on the expected state.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.Version = Version

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Path to a YAML config file")
	pf.StringVar(&flagProfile, "profile", "", "AWS profile for SDK and AWS CLI calls")
	pf.StringVar(&flagRegion, "region", "", "Default AWS region to target")
	pf.StringVar(&flagLogLevel, "log-level", "", "Logging level (debug|info|warn|error)")
	pf.StringVar(&flagLogFormat, "log-format", "", "Logging format (text|json)")
	pf.StringVar(&flagMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
}

// setup layers flags over the config file and environment, then wires
// logging and metrics.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(flagConfig)
	if err != nil {
		return err
	}

	if flagProfile != "" {
		cfg.AWS.Profile = flagProfile
	}
	if flagRegion != "" {
		cfg.AWS.Region = flagRegion
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.Log.Format = flagLogFormat
	}
	if flagMetricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Address = flagMetricsAddr
	}

	logging.Setup(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	metrics.Init("dayrefs")

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.StartServer(cfg.Metrics.Address); err != nil {
				slog.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	slog.Debug("dayrefs starting", "version", Version, "git_sha", GitSHA)
	return nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// newManager wires the gateway, copy executor and lifecycle manager for
// one command invocation.
func newManager(ctx context.Context, logFile string) (*manager.Manager, error) {
	gateway, err := s3gate.New(ctx, cfg.AWS.Profile, cfg.AWS.Region)
	if err != nil {
		return nil, err
	}
	executor := transfer.NewExecutor(cfg.AWS.Profile, copylog.New(logFile))
	return manager.New(gateway, executor, cfg.Copy.Workers), nil
}

// requireRegion enforces that a region was supplied globally or through
// configuration before an operation that derives a bucket name from it.
func requireRegion() error {
	if cfg.AWS.Region == "" {
		return errors.New("--region must be specified (flag, config file, or AWS_REGION)")
	}
	return nil
}

// selection converts the exclude flags of a command into the prefix group
// selection.
func selection(excludeHG38, excludeB37, excludeGIAB bool) refdata.Selection {
	return refdata.Selection{
		HG38: !excludeHG38,
		B37:  !excludeB37,
		GIAB: !excludeGIAB,
	}
}
