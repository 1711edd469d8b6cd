package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AddTranscriptionFlags adds flags related to transcription functionality
func AddTranscriptionFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("fallback-whisper", false, "Transcribe the audio without asking when no captions are available")
}

// AddModelFlags adds flags related to note generation
func AddModelFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("model", "m", "", "Model to use for notes and chat")
	cmd.Flags().StringP("prompt", "p", "", "Custom prompt (string or file path)")
}

// HandlePromptFlag processes the --prompt flag to set custom prompt
func HandlePromptFlag(cmd *cobra.Command, app *App) error {
	promptFlag := cmd.Flags().Lookup("prompt")
	if promptFlag == nil || !promptFlag.Changed {
		return nil
	}

	prompt, err := cmd.Flags().GetString("prompt")
	if err != nil {
		return fmt.Errorf("failed to get prompt flag: %w", err)
	}
	if prompt == "" {
		return nil
	}

	app.SetPromptManager(NewPromptManager(app.config.ConfigDir, prompt))

	if IsLikelyFilePath(prompt) && FileExists(prompt) {
		app.log.Debug().Str("file", prompt).Msg("using custom prompt file")
	} else {
		app.log.Debug().Msg("using custom prompt string")
	}
	return nil
}

// HandleOutputFlags copies --verbose and --quiet into config
func HandleOutputFlags(cmd *cobra.Command, config *Config) error {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return fmt.Errorf("failed to get verbose flag: %w", err)
	}
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}

	config.Verbose = config.Verbose || verbose
	config.Quiet = quiet
	if quiet {
		config.Verbose = false
	}
	return nil
}

// ValidateModelRequirements checks the API key and applies the --model and
// --fallback-whisper flags to config
func ValidateModelRequirements(cmd *cobra.Command, config *Config) error {
	if err := ValidateAPIKey(config.APIKey); err != nil {
		return err
	}

	if modelFlag, _ := cmd.Flags().GetString("model"); modelFlag != "" {
		config.Model = modelFlag
	}
	if config.Model == "" {
		return fmt.Errorf("no model configured - set model in config.toml or pass --model")
	}

	if fallback, _ := cmd.Flags().GetBool("fallback-whisper"); fallback {
		config.AutoFallback = true
	}
	return nil
}
