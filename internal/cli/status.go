package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmcdole/kinosync/internal/domain"
)

func newStatusCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current user's cache state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.openEngine()
			if err != nil {
				return err
			}
			st := e.Status()
			if o.jsonOut {
				return o.printJSON(cmd, st)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mode: %s\n", st.Mode)
			if !st.HasUser {
				fmt.Fprintln(out, "user: (anonymous)")
				return nil
			}
			fmt.Fprintf(out, "user: %s\n", st.Username)
			for _, d := range domain.AllDomains {
				state := "missing or expired"
				if st.Domains[d] {
					state = "cached"
				}
				fmt.Fprintf(out, "  %-15s %s\n", d, state)
			}
			return nil
		},
	}
}

func newPreloadCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "preload",
		Short: "Warm the cache for the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.openEngine()
			if err != nil {
				return err
			}
			if !e.Preload(o.context(cmd)) {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to preload")
				return nil
			}
			e.Wait()
			fmt.Fprintln(cmd.OutOrStdout(), "preloaded")
			return nil
		},
	}
}

func newSweepCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired user caches from this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.openEngine()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired cache(s)\n", e.Sweep())
			return nil
		},
	}
}

func newLogoutCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout [user]",
		Short: "Delete a user's cached data from this device",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.openEngine()
			if err != nil {
				return err
			}
			user := o.cfg.Session.Username
			if len(args) == 1 {
				user = args[0]
			}
			if user == "" {
				return fmt.Errorf("no user to log out")
			}
			if err := e.Logout(user); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged out %s\n", user)
			return nil
		},
	}
}
