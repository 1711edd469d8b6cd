package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"

	"github.com/rtzll/notebuddy/internal"
)

const mcpServerName = "notebuddy"

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP server exposing NoteBuddy as tools",
	Long: `Run a Model Context Protocol (MCP) server that exposes NoteBuddy as tools.

Tools:
- get_youtube_metadata: video details as formatted text
- get_youtube_transcript: the video's official captions
- transcribe_youtube_audio: transcribe the audio track chunk by chunk
- generate_study_notes: educational notes for a video
- ask_assistant: a single question to the chat assistant

Transport options:
- stdio (default): Standard MCP transport via stdin/stdout
- http: HTTP transport on specified port (use --port to configure)

Set mcp_log = true in config.toml to log requests to the cache directory.`,
	Example: `  # Run MCP server with stdio transport (e.g. for Claude Desktop)
  notebuddy mcp

  # Run MCP server with HTTP transport on port 8080
  notebuddy mcp --transport=http --port=8080

  # Set up Claude Desktop integration
  notebuddy mcp setup-claude`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// stdout belongs to the protocol
		config.Verbose = false
		config.Quiet = true
		// there is nobody to answer a prompt
		config.AutoFallback = true
		return internal.ValidateAPIKey(config.APIKey)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")
		if transport != "stdio" && transport != "http" {
			return fmt.Errorf("unknown transport %q (use stdio or http)", transport)
		}

		logger, closer, err := internal.NewMCPLogger(config.MCPLogEnabled, config.CacheDir)
		if err != nil {
			return err
		}
		defer closer.Close()

		internal.EnsureYtDlp(cmd.Context())

		app := internal.NewApp(config, internal.WithLogger(logger))
		server := internal.NewMCPServer(app, version, logger)

		if transport == "http" {
			fmt.Fprintf(os.Stderr, "Starting NoteBuddy MCP server on HTTP port %d...\n", port)
		}
		return server.Start(cmd.Context(), transport, port)
	},
}

// setupClaudeCmd represents the setup-claude subcommand
var setupClaudeCmd = &cobra.Command{
	Use:   "setup-claude",
	Short: "Configure Claude Desktop to use the NoteBuddy MCP server",
	Long: `Add NoteBuddy to the mcpServers section of claude_desktop_config.json.

Existing MCP server entries are preserved. The entry carries the current XDG
base directories so the server finds the same config, cache and notes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		printOnly, _ := cmd.Flags().GetBool("print")
		return setupClaudeDesktop(printOnly)
	},
}

// ClaudeDesktopConfig represents the claude_desktop_config.json structure.
// Keys other than mcpServers are kept as they are.
type ClaudeDesktopConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
	Other      map[string]json.RawMessage `json:"-"`
}

// MCPServerConfig represents an individual MCP server configuration
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env,omitempty"`
}

func (c *ClaudeDesktopConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if servers, ok := raw["mcpServers"]; ok {
		if err := json.Unmarshal(servers, &c.MCPServers); err != nil {
			return fmt.Errorf("parsing mcpServers: %w", err)
		}
		delete(raw, "mcpServers")
	}
	c.Other = raw
	return nil
}

func (c ClaudeDesktopConfig) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Other)+1)
	for k, v := range c.Other {
		out[k] = v
	}
	out["mcpServers"] = c.MCPServers
	return json.Marshal(out)
}

// serverEntry describes how Claude Desktop should launch this binary
func serverEntry() (MCPServerConfig, error) {
	execPath, err := os.Executable()
	if err != nil {
		return MCPServerConfig{}, fmt.Errorf("getting executable path: %w", err)
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return MCPServerConfig{}, fmt.Errorf("resolving executable path: %w", err)
	}

	return MCPServerConfig{
		Command: execPath,
		Args:    []string{"mcp"},
		Env: map[string]string{
			"XDG_DATA_HOME":   xdg.DataHome,
			"XDG_CONFIG_HOME": xdg.ConfigHome,
			"XDG_CACHE_HOME":  xdg.CacheHome,
		},
	}, nil
}

func setupClaudeDesktop(printOnly bool) error {
	entry, err := serverEntry()
	if err != nil {
		return err
	}

	if printOnly {
		data, err := json.MarshalIndent(ClaudeDesktopConfig{
			MCPServers: map[string]MCPServerConfig{mcpServerName: entry},
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	configPath, err := getClaudeDesktopConfigPath()
	if err != nil {
		return fmt.Errorf("getting Claude Desktop config path: %w", err)
	}

	if err := addServerToConfig(configPath, mcpServerName, entry); err != nil {
		return err
	}

	fmt.Printf("Successfully configured Claude Desktop MCP server in %s\n", configPath)
	fmt.Printf("Restart Claude Desktop to use the NoteBuddy MCP server\n")
	return nil
}

// addServerToConfig adds or replaces one mcpServers entry in an existing config file
func addServerToConfig(configPath, name string, entry MCPServerConfig) error {
	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("config for Claude Desktop not found at %s", configPath)
	}
	if err != nil {
		return fmt.Errorf("reading existing config: %w", err)
	}

	var desktopConfig ClaudeDesktopConfig
	if err := json.Unmarshal(data, &desktopConfig); err != nil {
		return fmt.Errorf("parsing existing config: %w", err)
	}
	if desktopConfig.MCPServers == nil {
		desktopConfig.MCPServers = make(map[string]MCPServerConfig)
	}
	desktopConfig.MCPServers[name] = entry

	data, err = json.MarshalIndent(desktopConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// getClaudeDesktopConfigPath returns the platform-specific config path for Claude Desktop
func getClaudeDesktopConfigPath() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(homeDir, "Library", "Application Support", "Claude", "claude_desktop_config.json"), nil

	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		return filepath.Join(appData, "Claude", "claude_desktop_config.json"), nil

	case "linux":
		return filepath.Join(xdg.ConfigHome, "Claude", "claude_desktop_config.json"), nil

	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

func init() {
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol (stdio or http)")
	mcpCmd.Flags().Int("port", 8080, "Port for HTTP transport (only used with --transport=http)")
	setupClaudeCmd.Flags().Bool("print", false, "Print the server entry instead of editing the config file")
	mcpCmd.AddCommand(setupClaudeCmd)
	rootCmd.AddCommand(mcpCmd)
}
