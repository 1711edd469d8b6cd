package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rtzll/notebuddy/internal"
)

// transcribeCmd represents the transcribe command
var transcribeCmd = &cobra.Command{
	Use:   "transcribe [YouTube URL or ID]",
	Short: "Get transcript from YouTube (cached or downloaded)",
	Example: `  # Get transcript from YouTube captions
  notebuddy transcribe "https://www.youtube.com/watch?v=tAP1eZYEuKA"
  notebuddy transcribe tAP1eZYEuKA

  # Save transcript to file
  notebuddy transcribe tAP1eZYEuKA -o transcript.txt

  # Include segment timestamps
  notebuddy transcribe tAP1eZYEuKA --timestamps

  # Transcribe the audio if no captions are available
  notebuddy transcribe tAP1eZYEuKA --fallback-whisper`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		transcript, err := fetchTranscript(cmd, args[0])
		if err != nil {
			return err
		}

		timestamps, _ := cmd.Flags().GetBool("timestamps")
		if timestamps {
			return writeOutput(cmd, formatSegments(transcript.Segments))
		}
		return writeOutput(cmd, transcript.FullText)
	},
}

func formatSegments(segments []internal.TranscriptSegment) string {
	var sb strings.Builder
	for i, seg := range segments {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "[%s] %s", internal.FormatTimestamp(seg.Start), seg.Text)
	}
	return sb.String()
}

func init() {
	internal.AddTranscriptionFlags(transcribeCmd)
	transcribeCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	transcribeCmd.Flags().Bool("timestamps", false, "Print one timestamped line per segment")
	rootCmd.AddCommand(transcribeCmd)
}
