package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rtzll/notebuddy/internal"
)

var (
	config *internal.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "notebuddy [YouTube URL or ID]",
	Short: "Turn YouTube lectures into study notes",
	Long: `NoteBuddy turns YouTube videos into structured educational notes.

It uses the video's captions when available, or downloads the audio and
transcribes it chunk by chunk when they are not. Long transcripts are split
into sections and each section gets its own notes.

Notes are generated through an OpenAI-compatible API (Groq by default).`,
	Example: `  # Generate notes for a video (default behavior)
  notebuddy "https://www.youtube.com/watch?v=tAP1eZYEuKA"
  notebuddy tAP1eZYEuKA

  # Use a specific model
  notebuddy tAP1eZYEuKA --model llama-3.1-8b-instant

  # Write the notes as an HTML page
  notebuddy tAP1eZYEuKA --html -o notes.html

  # Transcribe the audio without asking if there are no captions
  notebuddy tAP1eZYEuKA --fallback-whisper`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		cfg, err := internal.InitConfig(configFile)
		if err != nil {
			return err
		}
		if err := internal.HandleOutputFlags(cmd, cfg); err != nil {
			return err
		}
		config = cfg

		if err := internal.EnsureDirs(config.ConfigDir, config.DataDir, config.CacheDir); err != nil {
			return fmt.Errorf("creating XDG directories: %w", err)
		}
		if created, err := internal.EnsureDefaultConfig(config.ConfigDir); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to ensure default config: %v\n", err)
		} else if created && !config.Quiet {
			fmt.Fprintf(os.Stderr, "Created default configuration in %s\n", config.ConfigDir)
		}
		if _, err := internal.EnsureDefaultPrompt(config.ConfigDir); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to ensure default prompt: %v\n", err)
		}
		return nil
	},
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		arg := args[0]
		if internal.IsLikelyCommand(arg) {
			return unknownCommandError(arg)
		}
		return runNotes(cmd, arg)
	},
}

func unknownCommandError(arg string) error {
	var suggestions []string
	for _, c := range rootCmd.Commands() {
		name := c.Name()
		if strings.Contains(name, arg) || strings.HasPrefix(name, arg) {
			suggestions = append(suggestions, name)
		}
	}

	if len(suggestions) > 0 {
		return fmt.Errorf("'%s' doesn't look like a YouTube URL or video ID. Did you mean: %s?", arg, strings.Join(suggestions, ", "))
	}
	return fmt.Errorf("'%s' doesn't look like a YouTube URL or video ID. Use --help to see available commands", arg)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal. Cleaning up and shutting down...")
		cancel()

		// give the pipeline a moment to unwind, then purge whatever is left
		time.Sleep(500 * time.Millisecond)
		if config != nil {
			if err := internal.CleanupTempDir(config.TempDir); err != nil {
				fmt.Fprintf(os.Stderr, "Error cleaning up temporary files: %v\n", err)
			}
		}
		os.Exit(130)
	}()

	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

func init() {
	internal.AddTranscriptionFlags(rootCmd)
	internal.AddModelFlags(rootCmd)
	addNoteOutputFlags(rootCmd)
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for debugging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Only print results and errors")
	rootCmd.PersistentFlags().String("config", "", "Config file (default is $XDG_CONFIG_HOME/notebuddy/config.toml)")
}
