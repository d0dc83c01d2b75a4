package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Dhwanijoshi3/nestle-chatbot/internal/backend"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/config"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/sources"
)

// cli carries the configuration shared by every subcommand.
type cli struct {
	v       *viper.Viper
	cfgFile string
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.New()}

	root := &cobra.Command{
		Use:          "widget",
		Short:        "Nestlé chat widget server and answer tools",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", os.Getenv("WIDGET_CONFIG"), "optional YAML config file (env WIDGET_CONFIG)")
	flags.String("backend-url", "", "assistant backend base URL")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: json or console")
	flags.String("brands-file", "", "YAML brand table for source labels")
	_ = c.v.BindPFlag("backend.url", flags.Lookup("backend-url"))
	_ = c.v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = c.v.BindPFlag("logging.format", flags.Lookup("log-format"))
	_ = c.v.BindPFlag("sources.brands_file", flags.Lookup("brands-file"))

	root.AddCommand(
		newServeCmd(c),
		newAskCmd(c),
		newFormatCmd(),
		newNormalizeCmd(c),
		newMCPCmd(c),
	)
	return root
}

// load resolves the configuration and builds the logger for a command run.
func (c *cli) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(c.v, c.cfgFile)
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newLogger(lc config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if lc.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// loadNormalizer reads the configured brand table once. Commands that run
// for the life of the process use a BrandWatcher instead.
func loadNormalizer(cfg *config.Config) (*sources.Normalizer, error) {
	if cfg.Sources.BrandsFile == "" {
		return sources.NewNormalizer(nil), nil
	}
	brands, err := sources.LoadBrands(cfg.Sources.BrandsFile)
	if err != nil {
		return nil, err
	}
	return sources.NewNormalizer(brands), nil
}

func newBackendClient(cfg *config.Config, logger *zap.Logger) *backend.Client {
	return backend.NewClient(cfg.Backend.URL,
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithBreakerSettings(cfg.Breaker),
		backend.WithLogger(logger),
		backend.WithUserAgent("nestle-chat-widget/"+version),
	)
}
