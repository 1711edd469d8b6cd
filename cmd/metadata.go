package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rtzll/notebuddy/internal"
)

// metadataCmd represents the metadata command
var metadataCmd = &cobra.Command{
	Use:   "metadata [YouTube URL or ID]",
	Short: "Get metadata from YouTube video",
	Example: `  # Get metadata from YouTube video
  notebuddy metadata "https://www.youtube.com/watch?v=tAP1eZYEuKA"
  notebuddy metadata tAP1eZYEuKA

  # Save metadata to file
  notebuddy metadata tAP1eZYEuKA -o metadata.json

  # Format output as pretty JSON
  notebuddy metadata tAP1eZYEuKA --pretty

  # Print a readable summary instead of JSON
  notebuddy metadata tAP1eZYEuKA --text`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := videoID(args[0])
		if err != nil {
			return err
		}

		internal.EnsureYtDlp(cmd.Context())
		metadata, err := internal.NewApp(config).Metadata(cmd.Context(), id)
		if err != nil {
			return err
		}

		if text, _ := cmd.Flags().GetBool("text"); text {
			return writeOutput(cmd, internal.FormatMetadata(metadata))
		}

		var jsonData []byte
		if pretty, _ := cmd.Flags().GetBool("pretty"); pretty {
			jsonData, err = json.MarshalIndent(metadata, "", "  ")
		} else {
			jsonData, err = json.Marshal(metadata)
		}
		if err != nil {
			return fmt.Errorf("converting metadata to JSON: %w", err)
		}

		return writeOutput(cmd, string(jsonData))
	},
}

func init() {
	metadataCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	metadataCmd.Flags().Bool("pretty", false, "Format output as pretty JSON")
	metadataCmd.Flags().Bool("text", false, "Print a human readable summary")
	rootCmd.AddCommand(metadataCmd)
}
