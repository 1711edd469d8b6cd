package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rtzll/notebuddy/internal"
)

// historyCmd lists saved notes
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved notes",
	Example: `  # List saved notes, newest first
  notebuddy history

  # Show saved notes by ID or ID prefix
  notebuddy history show 3f2a9c

  # Export saved notes as HTML
  notebuddy history show 3f2a9c --html -o notes.html

  # Delete saved notes
  notebuddy history rm 3f2a9c`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := internal.NewNoteStore(config.NotesDir).List()
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Fprintln(os.Stderr, "No saved notes yet")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDATE\tVIDEO\tTITLE")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", shortID(r.ID), r.CreatedAt.Local().Format("2006-01-02 15:04"), r.VideoID, r.Title)
		}
		return w.Flush()
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var historyShowCmd = &cobra.Command{
	Use:   "show [ID]",
	Short: "Print saved notes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		record, err := internal.NewNoteStore(config.NotesDir).Load(args[0])
		if err != nil {
			return err
		}
		return outputNotes(cmd, record)
	},
}

var historyRmCmd = &cobra.Command{
	Use:   "rm [ID]",
	Short: "Delete saved notes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := internal.NewNoteStore(config.NotesDir)
		record, err := store.Load(args[0])
		if err != nil {
			return err
		}
		if err := store.Delete(record.ID); err != nil {
			return err
		}
		if !config.Quiet {
			fmt.Fprintf(os.Stderr, "Deleted %s\n", record.ID)
		}
		return nil
	},
}

func init() {
	historyShowCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	historyShowCmd.Flags().Bool("html", false, "Render the notes as a standalone HTML page")
	historyCmd.AddCommand(historyShowCmd, historyRmCmd)
	rootCmd.AddCommand(historyCmd)
}
