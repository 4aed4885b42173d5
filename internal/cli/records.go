package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmcdole/kinosync/internal/domain"
	"github.com/mmcdole/kinosync/internal/engine"
)

// itemFlags are the descriptive fields shared by both record kinds.
type itemFlags struct {
	title       string
	source      string
	year        string
	cover       string
	searchTitle string
	episodes    int
}

func (f *itemFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Display title")
	cmd.Flags().StringVar(&f.source, "source-name", "", "Display name of the video source")
	cmd.Flags().StringVar(&f.year, "year", "", "Release year")
	cmd.Flags().StringVar(&f.cover, "cover", "", "Cover image URL")
	cmd.Flags().StringVar(&f.searchTitle, "search-title", "", "Title used when searching for the item")
	cmd.Flags().IntVar(&f.episodes, "episodes", 0, "Total number of episodes")
	_ = cmd.MarkFlagRequired("title")
}

func newProgressCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "progress",
		Aliases: []string{"playrecords"},
		Short:   "Inspect and edit watch progress",
	}

	var item itemFlags
	var index, playTime, totalTime int
	set := &cobra.Command{
		Use:   "set [source+id]",
		Short: "Record the playback position of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.openEngine()
			if err != nil {
				return err
			}
			wp := domain.WatchProgress{
				Title:         item.title,
				SourceName:    item.source,
				Year:          item.year,
				Cover:         item.cover,
				Index:         index,
				TotalEpisodes: item.episodes,
				PlayTime:      playTime,
				TotalTime:     totalTime,
				SaveTime:      time.Now().UnixMilli(),
				SearchTitle:   item.searchTitle,
			}
			if err := e.WatchProgress().Upsert(o.context(cmd), args[0], wp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", args[0])
			return nil
		},
	}
	item.register(set)
	set.Flags().IntVar(&index, "index", 1, "Episode index (1-based)")
	set.Flags().IntVar(&playTime, "play", 0, "Playback position in seconds")
	set.Flags().IntVar(&totalTime, "total", 0, "Episode duration in seconds")

	cmd.AddCommand(
		newListCmd(o, "watch progress", (*engine.Engine).WatchProgress, writeProgress),
		set,
		newRemoveCmd(o, (*engine.Engine).WatchProgress),
		newClearCmd(o, "watch progress", (*engine.Engine).WatchProgress),
	)
	return cmd
}

func newFavoritesCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"fav"},
		Short:   "Inspect and edit favorites",
	}

	var item itemFlags
	add := &cobra.Command{
		Use:   "add [source+id]",
		Short: "Bookmark an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.openEngine()
			if err != nil {
				return err
			}
			f := domain.Favorite{
				Title:         item.title,
				SourceName:    item.source,
				Year:          item.year,
				Cover:         item.cover,
				TotalEpisodes: item.episodes,
				SaveTime:      time.Now().UnixMilli(),
				SearchTitle:   item.searchTitle,
			}
			if err := e.Favorites().Upsert(o.context(cmd), args[0], f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", args[0])
			return nil
		},
	}
	item.register(add)

	cmd.AddCommand(
		newListCmd(o, "favorites", (*engine.Engine).Favorites, writeFavorites),
		add,
		newRemoveCmd(o, (*engine.Engine).Favorites),
		newClearCmd(o, "favorites", (*engine.Engine).Favorites),
	)
	return cmd
}

func newListCmd[V domain.Record](o *options, what string, of func(*engine.Engine) *engine.Keyed[V], write func(*tabwriter.Writer, engine.Item[V])) *cobra.Command {
	return &cobra.Command{
		Use:   "list [query]",
		Short: "List " + what + ", optionally filtered by title",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.openEngine()
			if err != nil {
				return err
			}
			items := of(e).Filter(o.context(cmd), strings.Join(args, " "))
			if o.jsonOut {
				records := make(map[string]V, len(items))
				for _, item := range items {
					records[item.Key] = item.Value
				}
				return o.printJSON(cmd, records)
			}
			if len(items) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no %s\n", what)
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, item := range items {
				write(tw, item)
			}
			return tw.Flush()
		},
	}
}

func newRemoveCmd[V domain.Record](o *options, of func(*engine.Engine) *engine.Keyed[V]) *cobra.Command {
	return &cobra.Command{
		Use:     "rm [source+id]...",
		Aliases: []string{"remove", "delete"},
		Short:   "Remove records by key",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.openEngine()
			if err != nil {
				return err
			}
			for _, key := range args {
				if err := of(e).Delete(o.context(cmd), key); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", key)
			}
			return nil
		},
	}
}

func newClearCmd[V domain.Record](o *options, what string, of func(*engine.Engine) *engine.Keyed[V]) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all " + what,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.openEngine()
			if err != nil {
				return err
			}
			if err := of(e).Clear(o.context(cmd)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", what)
			return nil
		},
	}
}

func writeProgress(tw *tabwriter.Writer, item engine.Item[domain.WatchProgress]) {
	wp := item.Value
	episode := "-"
	if wp.TotalEpisodes > 1 {
		episode = fmt.Sprintf("%d/%d", wp.Index, wp.TotalEpisodes)
	}
	state := fmt.Sprintf("%3.0f%%", wp.Progress()*100)
	if wp.Completed() {
		state = "done"
	}
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", item.Key, wp.Title, wp.Year, episode, state, formatSaved(wp.SaveTime))
}

func writeFavorites(tw *tabwriter.Writer, item engine.Item[domain.Favorite]) {
	f := item.Value
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", item.Key, f.Title, f.Year, f.SourceName, formatSaved(f.SaveTime))
}

func formatSaved(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}
