package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bgdnvk/topicguard/internal/querylog"
)

var rejectedCmd = &cobra.Command{
	Use:   "rejected",
	Short: "List queries that were redirected as off-topic",
	Long: `Show the rejected-query log, newest first. Queries are recorded when
querylog.enabled is true. Review them to grow the lexicon, then mark them done.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		all, _ := cmd.Flags().GetBool("all")
		asJSON, _ := cmd.Flags().GetBool("json")
		ctx := cmd.Context()

		store, err := querylog.Open(ctx, settings.QueryLog.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.List(ctx, querylog.ListOptions{Limit: limit, IncludeProcessed: all})
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), entries)
		}
		printEntries(cmd.OutOrStdout(), entries)
		return nil
	},
}

var rejectedDoneCmd = &cobra.Command{
	Use:   "done [id...]",
	Short: "Mark rejected queries as reviewed",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := querylog.Open(ctx, settings.QueryLog.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		for _, arg := range args {
			id, err := strconv.ParseInt(arg, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", arg, err)
			}
			if err := store.MarkProcessed(ctx, id); err != nil {
				return fmt.Errorf("mark %d: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %d as reviewed\n", id)
		}
		return nil
	},
}

func printEntries(w io.Writer, entries []querylog.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No rejected queries.")
		return
	}
	for _, e := range entries {
		status := ""
		if e.Processed {
			status = " [reviewed]"
		}
		fmt.Fprintf(w, "#%d %s%s\n", e.ID, e.At.Local().Format("2006-01-02 15:04"), status)
		fmt.Fprintf(w, "  %q (confidence %.2f)\n", e.Query, e.Confidence)
		if e.Reason != "" {
			fmt.Fprintf(w, "  %s\n", e.Reason)
		}
	}
}

func init() {
	rootCmd.AddCommand(rejectedCmd)
	rejectedCmd.AddCommand(rejectedDoneCmd)

	rejectedCmd.Flags().Int("limit", 20, "maximum number of entries (0 for all)")
	rejectedCmd.Flags().Bool("all", false, "include reviewed entries")
	rejectedCmd.Flags().Bool("json", false, "print entries as JSON")
}
