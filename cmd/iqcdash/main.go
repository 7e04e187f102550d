package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/internal/server"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/columnar"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/config"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/datamanager"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/logger"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/observability"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/render"
)

var version = "0.1.0"

// cliFlags holds flags that override the loaded configuration when set
type cliFlags struct {
	configFile string
	addr       string
	data       []string
	workDir    string
	logLevel   string
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	root := &cobra.Command{
		Use:   "iqcdash",
		Short: "IQC Dashboard - explore computational chemistry results",
		Long: `IQC Dashboard serves summary statistics, filtered tables and 3D structure
views over a set of Parquet result files.`,
		SilenceUsage: true,
	}

	flags := &cliFlags{}
	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "Path to YAML configuration file (optional)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("IQC Dashboard v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard HTTP server",
		Long: `Run the dashboard HTTP server. Source files may be given with --data
(repeatable, globs allowed) or uploaded later through POST /api/files.

Example:
  iqcdash serve --data 'results/*.parquet' --addr :8501`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), flags)
		},
	}
	serveCmd.Flags().StringVar(&flags.addr, "addr", "", "Listen address (overrides server.addr)")
	serveCmd.Flags().StringSliceVarP(&flags.data, "data", "d", nil, "Parquet files or glob patterns to load at startup")
	serveCmd.Flags().StringVar(&flags.workDir, "workdir", "", "Directory receiving uploaded files (overrides data.work_dir)")
	root.AddCommand(serveCmd)

	root.AddCommand(&cobra.Command{
		Use:   "stats FILE...",
		Short: "Print summary statistics for Parquet files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return stats(cmd.Context(), flags, args)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration file and applies command line overrides
func loadConfig(flags *cliFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return nil, err
	}
	if flags.addr != "" {
		cfg.Server.Addr = flags.addr
	}
	if len(flags.data) > 0 {
		cfg.Data.Paths = flags.data
	}
	if flags.workDir != "" {
		cfg.Data.WorkDir = flags.workDir
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Encoding:    cfg.Logging.Encoding,
	}); err != nil {
		return nil, err
	}
	return logger.Get(), nil
}

// openData builds the connector and data manager and registers the
// configured source files
func openData(cfg *config.Config, log *zap.Logger) (*columnar.Connector, *datamanager.Manager, error) {
	conn := columnar.NewConnector(columnar.Options{
		DSN:       cfg.Engine.DSN,
		BatchSize: cfg.Engine.BatchSize,
		MemoryMap: cfg.Engine.MemoryMap,
		Logger:    log.Named("columnar"),
	})

	dm, err := datamanager.New(cfg.Data.WorkDir, conn, log.Named("data"))
	if err != nil {
		return nil, nil, err
	}

	paths, err := config.ExpandPaths(cfg.Data.Paths)
	if err != nil {
		return nil, nil, err
	}
	dm.SetPaths(paths...)
	return conn, dm, nil
}

func serve(ctx context.Context, flags *cliFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	log, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := observability.Init(cfg.Tracing, version, nil)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	conn, dm, err := openData(cfg, log)
	if err != nil {
		return err
	}
	defer closeEngine(conn, log)

	caps := render.Probe(cfg.Viewer)
	if missing := caps.Missing(); missing != "" {
		log.Warn("structure viewer degraded", zap.String("missing", missing))
	}

	log.Info("starting dashboard",
		zap.String("version", version),
		zap.Int("files", len(dm.Paths())),
		zap.String("work_dir", dm.WorkDir()),
		zap.String("fingerprint", dm.Fingerprint()))

	return server.New(cfg, dm, caps, log.Named("http")).ListenAndServe(ctx)
}

// closeEngine closes the columnar engine, logging rather than returning a
// failure since it runs on the way out.
func closeEngine(c io.Closer, log *zap.Logger) {
	if err := c.Close(); err != nil {
		log.Warn("failed to close columnar engine", zap.Error(err))
	}
}

func stats(ctx context.Context, flags *cliFlags, files []string) error {
	flags.data = files
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	log, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	conn, dm, err := openData(cfg, log)
	if err != nil {
		return err
	}
	defer closeEngine(conn, log)

	fp := dm.Fingerprint()
	summary, err := dm.Summary(ctx, fp)
	if err != nil {
		return err
	}

	fmt.Printf("Files:               %d\n", len(dm.Paths()))
	fmt.Printf("Fingerprint:         %s\n", fp)
	fmt.Printf("Total rows:          %d\n", summary.TotalRows)
	fmt.Printf("Unique formulas:     %d\n", summary.UniqueFormulas)
	fmt.Printf("Converged:           %d\n", summary.ConvergedCount)
	fmt.Printf("Not converged:       %d\n", summary.NotConvergedCount)
	return nil
}
