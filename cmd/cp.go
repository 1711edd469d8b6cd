package cmd

import (
	"fmt"
	"os"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/rtzll/notebuddy/internal"
)

// cpCmd copies the transcript, or saved notes, to the system clipboard
var cpCmd = &cobra.Command{
	Use:   "cp [URL or note ID]",
	Short: "Copy a transcript or saved notes to the clipboard",
	Example: `  # Copy transcript from YouTube captions
  notebuddy cp "https://www.youtube.com/watch?v=tAP1eZYEuKA"
  notebuddy cp tAP1eZYEuKA

  # Copy saved notes (see 'notebuddy history')
  notebuddy cp --notes 3f2a9c

  # Transcribe the audio if no captions are available
  notebuddy cp tAP1eZYEuKA --fallback-whisper`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		what := "Transcript"
		var content string

		if notes, _ := cmd.Flags().GetBool("notes"); notes {
			record, err := internal.NewNoteStore(config.NotesDir).Load(args[0])
			if err != nil {
				return err
			}
			what, content = "Notes", record.Notes
		} else {
			transcript, err := fetchTranscript(cmd, args[0])
			if err != nil {
				return err
			}
			content = transcript.FullText
		}

		if err := clipboard.WriteAll(content); err != nil {
			return fmt.Errorf("copying to clipboard: %w", err)
		}

		if !config.Quiet {
			fmt.Fprintf(os.Stderr, "%s copied to clipboard\n", what)
		}
		return nil
	},
}

func init() {
	internal.AddTranscriptionFlags(cpCmd)
	cpCmd.Flags().Bool("notes", false, "Treat the argument as a saved note ID and copy its notes")
	rootCmd.AddCommand(cpCmd)
}
