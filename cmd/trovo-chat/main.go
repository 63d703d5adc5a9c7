package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/omochice/trovo-chat/internal/config"
	"github.com/omochice/trovo-chat/pkg/api"
)

// app carries what every subcommand needs once the configuration is loaded.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	api    *api.Client
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "trovo-chat",
		Short: "Read and send Trovo chat from the terminal",
		Long: `trovo-chat connects to the Trovo chat socket and prints chat events
as they arrive. It can also send chat messages and look up users.

Configuration is read from the environment and an optional .env file:
TROVO_CLIENT_ID, TROVO_ACCESS_TOKEN, TROVO_CHAT_URL, TROVO_API_URL,
LOG_LEVEL, METRICS_ADDR and HTTP_TIMEOUT.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(envFile)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path of the .env file")

	rootCmd.AddCommand(
		listenCmd(a),
		sendCmd(a),
		userCmd(a),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func (a *app) setup(envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.api = api.NewClient(a.auth(),
		api.WithBaseURL(cfg.APIURL),
		api.WithLogger(logger.Named("api")),
		api.WithHTTPClient(newHTTPClient(cfg.HTTPTimeout)),
	)
	return nil
}

func (a *app) auth() api.ClientIDProvider {
	if a.cfg.AccessToken == "" {
		return api.ClientID(a.cfg.ClientID)
	}
	return api.AccessTokenOnly{ID: a.cfg.ClientID, Token: a.cfg.AccessToken}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.LogLevel == zap.DebugLevel {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}
