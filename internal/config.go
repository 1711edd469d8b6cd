package internal

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/lrstanley/go-ytdlp"
	"github.com/spf13/viper"
)

const appName = "notebuddy"

// CommandRunner executes external commands
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// DefaultCommandRunner implements CommandRunner
type DefaultCommandRunner struct{}

func (r *DefaultCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// Config holds application settings
type Config struct {
	// Provider
	BaseURL            string
	APIKey             string
	Model              string
	VisionModel        string
	TranscriptionModel string
	Temperature        float64

	// Note generation
	ChunkSize         int
	ChunkOverlap      int
	MaxRetries        int
	RetryDelay        time.Duration
	PacingDelay       time.Duration
	CompletionTimeout time.Duration

	// Audio fallback
	AutoFallback         bool
	AudioChunkDuration   time.Duration
	AudioBitrate         int
	AudioQuality         string
	TranscriptionTimeout time.Duration

	Prompt         string
	TranscriptsDir string
	NotesDir       string
	Verbose        bool
	Quiet          bool
	MCPLogEnabled  bool

	// ConfigFile is the file that was loaded, empty when running on defaults
	ConfigFile string

	// Fixed XDG paths (not configurable)
	ConfigDir string
	DataDir   string
	CacheDir  string
	TempDir   string
}

// RetryPolicy returns the retry policy configured for provider calls
func (c *Config) RetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: c.MaxRetries, BaseDelay: c.RetryDelay}
}

//go:embed config.toml prompt.txt
var defaultFS embed.FS

// ensureDefaultFile writes the embedded default of embedFilename into configDir
// unless the file already exists
func ensureDefaultFile(configDir, embedFilename, description string) (bool, error) {
	filePath := filepath.Join(configDir, embedFilename)
	if FileExists(filePath) {
		return false, nil
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return false, fmt.Errorf("creating config directory: %w", err)
	}

	defaultContent, err := defaultFS.ReadFile(embedFilename)
	if err != nil {
		return false, fmt.Errorf("reading embedded default %s: %w", description, err)
	}

	if err := os.WriteFile(filePath, defaultContent, 0644); err != nil {
		return false, fmt.Errorf("writing default %s: %w", description, err)
	}
	return true, nil
}

// EnsureDefaultConfig creates config.toml in configDir from the embedded default
func EnsureDefaultConfig(configDir string) (bool, error) {
	return ensureDefaultFile(configDir, "config.toml", "configuration")
}

// EnsureDefaultPrompt creates prompt.txt in configDir from the embedded default
func EnsureDefaultPrompt(configDir string) (bool, error) {
	return ensureDefaultFile(configDir, "prompt.txt", "prompt template")
}

// EnsureYtDlp installs yt-dlp into the cache when it is not on PATH
func EnsureYtDlp(ctx context.Context) {
	ytdlp.MustInstall(ctx, nil)
}

// InitConfig loads .env, the config file (configFile or the XDG default) and
// NOTEBUDDY_ environment variables, in increasing order of precedence.
func InitConfig(configFile string) (*Config, error) {
	// a missing .env is normal
	_ = godotenv.Load()

	configDir := filepath.Join(xdg.ConfigHome, appName)
	dataDir := filepath.Join(xdg.DataHome, appName)
	cacheDir := filepath.Join(xdg.CacheHome, appName)

	v := viper.New()
	setDefaults(v, dataDir)

	if configFile != "" {
		if !FileExists(configFile) {
			return nil, fmt.Errorf("reading config file: %s does not exist", configFile)
		}
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("NOTEBUDDY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("api_key", "NOTEBUDDY_API_KEY", "GROQ_API_KEY", "OPENAI_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	config := &Config{
		BaseURL:            v.GetString("base_url"),
		APIKey:             v.GetString("api_key"),
		Model:              v.GetString("model"),
		VisionModel:        v.GetString("vision_model"),
		TranscriptionModel: v.GetString("transcription_model"),
		Temperature:        v.GetFloat64("temperature"),

		ChunkSize:         v.GetInt("chunk_size"),
		ChunkOverlap:      v.GetInt("chunk_overlap"),
		MaxRetries:        v.GetInt("max_retries"),
		RetryDelay:        v.GetDuration("retry_delay"),
		PacingDelay:       v.GetDuration("pacing_delay"),
		CompletionTimeout: v.GetDuration("completion_timeout"),

		AutoFallback:         v.GetBool("auto_fallback"),
		AudioChunkDuration:   v.GetDuration("audio_chunk_duration"),
		AudioBitrate:         v.GetInt("audio_bitrate"),
		AudioQuality:         v.GetString("audio_quality"),
		TranscriptionTimeout: v.GetDuration("transcription_timeout"),

		Prompt:         v.GetString("prompt"),
		TranscriptsDir: v.GetString("transcripts_dir"),
		NotesDir:       v.GetString("notes_dir"),
		Verbose:        v.GetBool("verbose"),
		MCPLogEnabled:  v.GetBool("mcp_log"),

		ConfigFile: v.ConfigFileUsed(),
		ConfigDir:  configDir,
		DataDir:    dataDir,
		CacheDir:   cacheDir,
		TempDir:    filepath.Join(cacheDir, "temp_chunks"),
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects settings the note and transcription pipeline cannot run with
func (c *Config) Validate() error {
	switch {
	case c.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidConfig, c.ChunkSize)
	case c.ChunkOverlap < 0:
		return fmt.Errorf("%w: chunk_overlap must not be negative, got %d", ErrInvalidConfig, c.ChunkOverlap)
	case c.ChunkOverlap >= c.ChunkSize:
		return fmt.Errorf("%w: chunk_overlap (%d) must be smaller than chunk_size (%d)", ErrInvalidConfig, c.ChunkOverlap, c.ChunkSize)
	case c.MaxRetries < 0:
		return fmt.Errorf("%w: max_retries must not be negative, got %d", ErrInvalidConfig, c.MaxRetries)
	case c.RetryDelay < 0:
		return fmt.Errorf("%w: retry_delay must not be negative, got %s", ErrInvalidConfig, c.RetryDelay)
	}
	return nil
}

func setDefaults(v *viper.Viper, dataDir string) {
	v.SetDefault("base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("model", "llama-3.3-70b-versatile")
	v.SetDefault("vision_model", "meta-llama/llama-4-scout-17b-16e-instruct")
	v.SetDefault("transcription_model", "whisper-large-v3")
	v.SetDefault("temperature", 0.7)

	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("chunk_overlap", DefaultChunkOverlap)
	v.SetDefault("max_retries", DefaultRetryPolicy.MaxRetries)
	v.SetDefault("retry_delay", DefaultRetryPolicy.BaseDelay)
	v.SetDefault("pacing_delay", time.Second)
	v.SetDefault("completion_timeout", 2*time.Minute)

	v.SetDefault("auto_fallback", true)
	v.SetDefault("audio_chunk_duration", DefaultAudioChunkDuration)
	v.SetDefault("audio_bitrate", DefaultAudioBitrate)
	v.SetDefault("audio_quality", "192K")
	v.SetDefault("transcription_timeout", 10*time.Minute)

	v.SetDefault("prompt", "")
	v.SetDefault("transcripts_dir", filepath.Join(dataDir, "transcripts"))
	v.SetDefault("notes_dir", filepath.Join(dataDir, "notes"))
	v.SetDefault("verbose", false)
	v.SetDefault("mcp_log", false)
}
