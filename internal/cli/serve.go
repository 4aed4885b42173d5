package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmcdole/kinosync/internal/backend"
)

func newServeCmd(o *options) *cobra.Command {
	var addr, dbPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference remote store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = o.cfg.Server.Addr
			}
			if dbPath == "" {
				dbPath = o.cfg.Server.DBPath
			}

			db := backend.NewSQLiteStore(dbPath)
			if err := db.Init(); err != nil {
				return fmt.Errorf("failed to open %s: %w", dbPath, err)
			}
			defer db.Close()

			srv := backend.NewServer(db, o.cfg.Server.Token, o.logger)

			ctx, stop := signal.NotifyContext(o.context(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(addr) }()
			fmt.Fprintf(cmd.OutOrStdout(), "serving on %s (db %s)\n", addr, dbPath)

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			o.logger.Info("shutting down backend")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default: server.db_path)")
	return cmd
}
