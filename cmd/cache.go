package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/teemow/gmailplayground/internal/cache"
	"github.com/teemow/gmailplayground/internal/output"
	"github.com/teemow/gmailplayground/internal/report"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the local thread cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show the number of cached threads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCacheStore()
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return output.NewTablePrinter(cmd.OutOrStdout()).Print(
				[]string{"Path", "Threads", "Oldest fetch", "Newest fetch"},
				[][]string{{stats.Path, strconv.Itoa(stats.Threads), formatFetch(stats, true), formatFetch(stats, false)}},
			)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete all cached threads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCacheStore()
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Purge(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d cached threads\n", n)
			return nil
		},
	})

	return cmd
}

func openCacheStore() (*cache.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return cache.NewStore(cacheDir(cfg))
}

func formatFetch(stats cache.Stats, oldest bool) string {
	if stats.Threads == 0 {
		return "-"
	}
	if oldest {
		return stats.OldestFetch.Format(report.DateLayout)
	}
	return stats.NewestFetch.Format(report.DateLayout)
}
