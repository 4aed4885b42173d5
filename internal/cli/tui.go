package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mmcdole/kinosync/internal/tui"
)

func newTUICmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse and edit the collections interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return errors.New("tui requires an interactive terminal")
			}

			e, err := o.openEngine()
			if err != nil {
				return err
			}
			e.ScheduleSweep(o.cfg.Cache.SweepDelay)
			e.Preload(o.context(cmd))

			return tui.Run(e, o.logger)
		},
	}
}
