package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yakoovad/scrapyard-registration/internal/config"
	"github.com/yakoovad/scrapyard-registration/internal/db"
	"github.com/yakoovad/scrapyard-registration/pkg/logger"
	"go.uber.org/zap"
)

var version = "dev"

var configFile string

var rootCmd = &cobra.Command{
	Use:           "registration",
	Short:         "Scrapyard team registration service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a config file (env vars override it)")
	rootCmd.AddCommand(serveCmd, migrateCmd, resetCheckInCmd, staffCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// bootstrap reads configuration and builds the logger shared by every command.
func bootstrap() (*viper.Viper, *zap.Logger, error) {
	v, err := config.New(configFile)
	if err != nil {
		return nil, nil, err
	}

	l, err := logger.NewLogger(v.GetString("log.level"), v.GetBool("log.development"))
	if err != nil {
		return nil, nil, errors.Wrap(err, "create logger")
	}
	return v, l, nil
}

// connect opens the database for maintenance commands, which need nothing but database.url.
func connect(ctx context.Context, v *viper.Viper) (*pgxpool.Pool, error) {
	url := v.GetString("database.url")
	if url == "" {
		return nil, errors.Wrap(config.ErrConfigurationMissing, "database.url")
	}
	return db.Connect(ctx, url)
}
