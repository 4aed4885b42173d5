// Package cli implements the kinosync command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmcdole/kinosync/internal/config"
	"github.com/mmcdole/kinosync/internal/domain"
	"github.com/mmcdole/kinosync/internal/engine"
	"github.com/mmcdole/kinosync/internal/events"
	"github.com/mmcdole/kinosync/internal/log"
	"github.com/mmcdole/kinosync/internal/remote"
	"github.com/mmcdole/kinosync/internal/store"
)

// Version is set at build time via -ldflags
var Version = "dev"

// options holds the global flags and the state built from them.
type options struct {
	configPath string
	user       string
	verbose    bool
	jsonOut    bool

	cfg     *config.Config
	logger  *slog.Logger
	closers []io.Closer
	engine  *engine.Engine
}

// NewRootCmd builds the command tree. Callers must run the returned cleanup
// once the command has finished.
func NewRootCmd() (*cobra.Command, func()) {
	o := &options{}

	root := &cobra.Command{
		Use:           "kinosync",
		Short:         "kinosync: keep watch progress, favorites and search history in sync",
		Long:          `A command-line utility for inspecting and editing the per-user collections kept in sync between this device and the remote store.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.setup(cmd)
		},
	}

	// Persistent flags available to all commands
	root.PersistentFlags().StringVar(&o.configPath, "config", "", "Config file (default: search ~/.config/kinosync and .)")
	root.PersistentFlags().StringVarP(&o.user, "user", "u", "", "Act as this user (overrides session.username)")
	root.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "Verbose debug output to stderr")
	root.PersistentFlags().BoolVar(&o.jsonOut, "json", false, "Emit JSON instead of tables")

	root.AddCommand(
		newStatusCmd(o),
		newPreloadCmd(o),
		newSweepCmd(o),
		newLogoutCmd(o),
		newProgressCmd(o),
		newFavoritesCmd(o),
		newHistoryCmd(o),
		newServeCmd(o),
		newTUICmd(o),
	)
	return root, o.teardown
}

// Run executes the command line given by args.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root, cleanup := NewRootCmd()
	defer cleanup()

	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

// Execute runs the process command line and exits non-zero on failure.
func Execute() {
	if err := Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (o *options) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if o.user != "" {
		cfg.Session.Username = o.user
	}
	o.cfg = cfg

	if o.verbose {
		o.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
	} else {
		logger, closer, err := log.SetupLogger(&cfg.Logging)
		if err != nil {
			// Fall back to null logger if file logging fails
			logger = log.NullLogger()
		} else {
			o.closers = append(o.closers, closer)
		}
		o.logger = logger
	}
	slog.SetDefault(o.logger)
	return nil
}

func (o *options) teardown() {
	if o.engine != nil {
		o.engine.Wait()
		o.engine.Close()
		o.engine = nil
	}
	for i := len(o.closers) - 1; i >= 0; i-- {
		o.closers[i].Close()
	}
	o.closers = nil
}

// openEngine builds the engine described by the loaded config.
func (o *options) openEngine() (*engine.Engine, error) {
	if o.engine != nil {
		return o.engine, nil
	}

	device, err := store.NewDeviceStore(o.cfg.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open device store: %w", err)
	}
	device.SetLogger(o.logger)
	o.closers = append(o.closers, device)

	user := o.cfg.Session.Username
	opts := engine.Options{
		Mode:   o.cfg.Mode(),
		Device: device,
		Bus:    events.NewBus(),
		User:   domain.StaticUser(user),
		Codec:  o.cfg.Codec(),
		Logger: o.logger,
	}
	if opts.Mode == engine.ModeRemoteBacked {
		switch o.cfg.Remote.Backend {
		case config.BackendMemory:
			opts.Remote = remote.NewMemory()
		default:
			opts.Remote = remote.NewHTTPClient(o.cfg.Remote.URL, o.cfg.Remote.Token, user, o.cfg.Remote.Timeout, o.logger)
		}
	}

	e, err := engine.New(opts)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("engine ready", "mode", opts.Mode, "user", user)
	o.engine = e
	return e, nil
}

func (o *options) printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (o *options) context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
