package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newHistoryCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and edit search history",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List search keywords, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.openEngine()
			if err != nil {
				return err
			}
			return o.printKeywords(cmd, e.SearchHistory().GetAll(o.context(cmd)))
		},
	}

	add := &cobra.Command{
		Use:   "add [keyword]",
		Short: "Record a search keyword",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.openEngine()
			if err != nil {
				return err
			}
			kw := strings.Join(args, " ")
			if err := e.SearchHistory().Add(o.context(cmd), kw); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %q\n", strings.TrimSpace(kw))
			return nil
		},
	}

	rm := &cobra.Command{
		Use:     "rm [keyword]",
		Aliases: []string{"remove", "delete"},
		Short:   "Remove a search keyword",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.openEngine()
			if err != nil {
				return err
			}
			kw := strings.Join(args, " ")
			if err := e.SearchHistory().Remove(o.context(cmd), kw); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %q\n", strings.TrimSpace(kw))
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all search keywords",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.openEngine()
			if err != nil {
				return err
			}
			if err := e.SearchHistory().Clear(o.context(cmd)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cleared search history")
			return nil
		},
	}

	var limit int
	suggest := &cobra.Command{
		Use:   "suggest [prefix]",
		Short: "Suggest keywords from history matching a prefix",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.openEngine()
			if err != nil {
				return err
			}
			return o.printKeywords(cmd, e.SearchHistory().Suggest(o.context(cmd), strings.Join(args, " "), limit))
		},
	}
	suggest.Flags().IntVarP(&limit, "limit", "n", 5, "Maximum number of suggestions")

	cmd.AddCommand(list, add, rm, clearCmd, suggest)
	return cmd
}

func (o *options) printKeywords(cmd *cobra.Command, keywords []string) error {
	if o.jsonOut {
		return o.printJSON(cmd, keywords)
	}
	for _, kw := range keywords {
		fmt.Fprintln(cmd.OutOrStdout(), kw)
	}
	return nil
}
