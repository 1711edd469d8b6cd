package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rtzll/notebuddy/internal"
)

// videoID extracts the video ID from a URL or ID argument
func videoID(arg string) (string, error) {
	_, id := internal.ParseArg(arg)
	if id == "" {
		return "", fmt.Errorf("%w: %q", internal.ErrInvalidVideoID, arg)
	}
	return id, nil
}

// newApp builds the app after applying --model, --fallback-whisper and --prompt
func newApp(cmd *cobra.Command) (*internal.App, error) {
	if err := internal.ValidateModelRequirements(cmd, config); err != nil {
		return nil, err
	}
	internal.EnsureYtDlp(cmd.Context())

	app := internal.NewApp(config)
	if err := internal.HandlePromptFlag(cmd, app); err != nil {
		return nil, err
	}
	return app, nil
}

// fetchTranscript retrieves a transcript, transcribing the audio only when
// --fallback-whisper is set
func fetchTranscript(cmd *cobra.Command, arg string) (*internal.Transcript, error) {
	id, err := videoID(arg)
	if err != nil {
		return nil, err
	}
	internal.EnsureYtDlp(cmd.Context())

	fallback, _ := cmd.Flags().GetBool("fallback-whisper")
	if !fallback {
		return internal.NewApp(config).CaptionTranscript(cmd.Context(), id)
	}

	if err := internal.ValidateAPIKey(config.APIKey); err != nil {
		return nil, err
	}
	config.AutoFallback = true
	return internal.NewApp(config).ResolveTranscript(cmd.Context(), id)
}

// writeOutput writes content to --output when set, otherwise to stdout
func writeOutput(cmd *cobra.Command, content string) error {
	outputFile, _ := cmd.Flags().GetString("output")
	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(content), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", outputFile, err)
		}
		if !config.Quiet {
			fmt.Fprintf(os.Stderr, "Wrote %s\n", outputFile)
		}
		return nil
	}

	fmt.Println(content)
	return nil
}

// printMarkdown renders markdown with glamour on a terminal and prints it raw otherwise
func printMarkdown(content string) error {
	if !internal.IsTerminal(os.Stdout) {
		fmt.Println(content)
		return nil
	}

	rendered, err := internal.RenderMarkdown(content)
	if err != nil {
		return err
	}
	fmt.Print(rendered)
	return nil
}
