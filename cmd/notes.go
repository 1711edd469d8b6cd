package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rtzll/notebuddy/internal"
)

// notesCmd represents the notes command
var notesCmd = &cobra.Command{
	Use:   "notes [YouTube URL or ID]",
	Short: "Generate study notes from a YouTube video",
	Long: `Generate structured markdown study notes from a YouTube video.

Transcripts longer than chunk_size characters are processed in sections.
Each section is labelled "Section N Notes". If a section cannot be generated
it is left out and the following sections are renumbered, so section numbers
count generated sections rather than positions in the video.`,
	Example: `  # Generate notes
  notebuddy notes "https://www.youtube.com/watch?v=tAP1eZYEuKA"
  notebuddy notes tAP1eZYEuKA

  # Save the notes as markdown without storing them in the history
  notebuddy notes tAP1eZYEuKA -o notes.md --no-save

  # Render an HTML page
  notebuddy notes tAP1eZYEuKA --html -o notes.html`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNotes(cmd, args[0])
	},
}

func addNoteOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().Bool("html", false, "Render the notes as a standalone HTML page")
	cmd.Flags().Bool("no-save", false, "Do not store the notes in the history")
}

func runNotes(cmd *cobra.Command, arg string) error {
	id, err := videoID(arg)
	if err != nil {
		return err
	}

	app, err := newApp(cmd)
	if err != nil {
		return err
	}

	noSave, _ := cmd.Flags().GetBool("no-save")
	record, err := app.GenerateNotes(cmd.Context(), id, !noSave)
	if err != nil {
		return err
	}

	if record.ID != "" {
		app.UI().Printf("Saved notes as %s\n", record.ID)
	}
	return outputNotes(cmd, record)
}

// outputNotes writes a record according to --html and --output
func outputNotes(cmd *cobra.Command, record *internal.NoteRecord) error {
	asHTML, _ := cmd.Flags().GetBool("html")
	outputFile, _ := cmd.Flags().GetString("output")

	if asHTML {
		page, err := internal.RenderHTML(record.Title, record.Notes)
		if err != nil {
			return err
		}
		return writeOutput(cmd, page)
	}

	if outputFile != "" {
		return writeOutput(cmd, record.Notes)
	}
	return printMarkdown(record.Notes)
}

func init() {
	internal.AddTranscriptionFlags(notesCmd)
	internal.AddModelFlags(notesCmd)
	addNoteOutputFlags(notesCmd)
	rootCmd.AddCommand(notesCmd)
}
