package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// pathsCmd shows where notebuddy reads and writes
var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Show the directories notebuddy uses",
	Long: `Show the XDG directories notebuddy uses.

Transcripts and video metadata are cached in the transcripts directory, saved
notes live in the notes directory and audio chunks are written to the
temporary directory while a video is transcribed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		rows := [][2]string{
			{"config", config.ConfigDir},
			{"data", config.DataDir},
			{"cache", config.CacheDir},
			{"transcripts", config.TranscriptsDir},
			{"notes", config.NotesDir},
			{"temp", config.TempDir},
		}
		if config.ConfigFile != "" {
			rows = append(rows, [2]string{"config file", config.ConfigFile})
		}
		for _, row := range rows {
			fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(pathsCmd)
}
