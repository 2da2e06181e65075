// main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ViniZap4/notes-server/auth"
	"github.com/ViniZap4/notes-server/config"
	httpapi "github.com/ViniZap4/notes-server/http"
	"github.com/ViniZap4/notes-server/repository"
	"github.com/ViniZap4/notes-server/store"
	"github.com/ViniZap4/notes-server/ws"
)

var (
	configPath string
	dbDSN      string
	dbDriver   string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "notes",
		Short:         "Folder and note server with trash and recursive copy",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default $NOTES_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&dbDSN, "db", "", "database DSN, overrides the config")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "driver", "", "database driver: sqlite3, postgres or mysql")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(treeCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(copyCmd())
	rootCmd.AddCommand(moveCmd())
	rootCmd.AddCommand(hashPasswordCmd())
	return rootCmd
}

// app bundles what every command needs.
type app struct {
	cfg   config.Config
	log   zerolog.Logger
	store *store.Store
}

func setup() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbDSN != "" {
		cfg.DB.DSN = dbDSN
	}
	if dbDriver != "" {
		cfg.DB.Driver = dbDriver
	}

	log, err := config.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}

	s, err := store.Open(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		version, err := s.Migrate()
		if err != nil {
			s.Close()
			return nil, err
		}
		log.Debug().Uint("version", version).Msg("schema up to date")
	}
	return &app{cfg: cfg, log: log, store: s}, nil
}

func (a *app) repo(opts ...repository.Option) *repository.Repository {
	return repository.New(a.store, append([]repository.Option{repository.WithLogger(a.log)}, opts...)...)
}

func (a *app) Close() error {
	return a.store.Close()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			hub := ws.NewHub(a.log)
			go hub.Run(ctx)

			authn, err := auth.New(auth.Config{
				Token:        a.cfg.Auth.Token,
				PasswordHash: a.cfg.Auth.PasswordHash,
				Secret:       a.cfg.Auth.JWTSecret,
				TTL:          a.cfg.Auth.TokenTTL,
			})
			if err != nil {
				return err
			}

			server := httpapi.NewServer(a.repo(repository.WithNotifier(hub)), hub, authn, a.log)

			errc := make(chan error, 1)
			go func() { errc <- server.Listen(a.cfg.Addr()) }()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			a.log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}
