package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/atinylittleshell/dyncomplete/internal/config"
	"github.com/atinylittleshell/dyncomplete/internal/core"
	"github.com/atinylittleshell/dyncomplete/internal/engine"
	"github.com/atinylittleshell/dyncomplete/internal/styles"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var BUILD_VERSION = "dev"

// app holds what the persistent pre-run sets up for every subcommand.
type app struct {
	configPath string
	logLevel   string
	logFile    string

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styles.ERROR(err.Error()))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "dyncomplete",
		Short: "Aggregate completions from pluggable providers",
		Long: `dyncomplete collects completion candidates from word lists, word files,
the current buffer, executables on PATH, the document directory and recorded
history, picking the providers to ask from the scope at the cursor.`,
		Version:       BUILD_VERSION,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default is $DYNCOMPLETE_HOME/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level, overrides the config file")
	rootCmd.PersistentFlags().StringVar(&a.logFile, "log-file", "", "log file (default is $DYNCOMPLETE_HOME/dyncomplete.log)")

	rootCmd.AddCommand(
		a.newCompleteCmd(),
		a.newCategoriesCmd(),
		a.newHistoryCmd(),
		a.newServeCmd(),
	)
	return rootCmd
}

func (a *app) setup() error {
	configPath := a.configPath
	if configPath == "" {
		configPath = core.ConfigFile()
	}

	result, err := config.NewLoader(nil).LoadFromFile(configPath)
	if err != nil {
		return err
	}
	a.cfg = result.Config

	level := a.cfg.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	logFile := a.logFile
	if logFile == "" {
		logFile = core.LogFile()
	}

	logger, err := initializeLogger(level, logFile)
	if err != nil {
		return err
	}
	a.logger = logger

	a.logger.Info("-------- new dyncomplete session --------",
		zap.String("version", BUILD_VERSION),
		zap.String("config", result.Path),
	)
	return nil
}

func (a *app) engine() (*engine.Engine, error) {
	return engine.New(engine.Options{Config: a.cfg, Logger: a.logger})
}

func initializeLogger(level string, logFile string) (*zap.Logger, error) {
	logLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}
	if BUILD_VERSION == "dev" {
		logLevel.SetLevel(zap.DebugLevel)
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create log directory")
	}

	rotator := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(rotator),
		logLevel,
	)
	return zap.New(logCore), nil
}
