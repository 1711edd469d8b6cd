package internal

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

// MCPServer exposes the note pipeline as MCP tools
type MCPServer struct {
	app       *App
	mcpServer *server.MCPServer
	log       zerolog.Logger
}

// NewMCPServer creates a new MCP server instance
func NewMCPServer(app *App, version string, logger zerolog.Logger) *MCPServer {
	mcpServer := server.NewMCPServer(
		"notebuddy",
		version,
		server.WithToolCapabilities(true),
	)

	s := &MCPServer{
		app:       app,
		mcpServer: mcpServer,
		log:       logger,
	}
	s.registerTools()

	return s
}

func (s *MCPServer) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_youtube_metadata",
		mcp.WithDescription("Extract video metadata including caption availability. Check 'Has Captions' to decide between get_youtube_transcript and transcribe_youtube_audio."),
		mcp.WithString("url",
			mcp.Description("YouTube video URL or ID"),
			mcp.Required(),
		),
	), s.handleGetMetadata)

	s.mcpServer.AddTool(mcp.NewTool("get_youtube_transcript",
		mcp.WithDescription("Get the existing YouTube captions of a video. Fails if the video has no captions."),
		mcp.WithString("url",
			mcp.Description("YouTube video URL or ID"),
			mcp.Required(),
		),
	), s.handleGetTranscript)

	s.mcpServer.AddTool(mcp.NewTool("transcribe_youtube_audio",
		mcp.WithDescription("Create a transcript by downloading the audio and transcribing it chunk by chunk. Slow and uses the transcription API quota; only use when the video has no captions."),
		mcp.WithString("url",
			mcp.Description("YouTube video URL or ID"),
			mcp.Required(),
		),
	), s.handleTranscribeAudio)

	s.mcpServer.AddTool(mcp.NewTool("generate_study_notes",
		mcp.WithDescription("Generate structured markdown study notes for a video. Long lectures are processed in sections labelled 'Section N Notes'; sections that fail are left out and the remaining ones renumbered."),
		mcp.WithString("url",
			mcp.Description("YouTube video URL or ID"),
			mcp.Required(),
		),
		mcp.WithBoolean("save",
			mcp.Description("Store the notes in the local notes history (default true)"),
		),
	), s.handleGenerateNotes)

	s.mcpServer.AddTool(mcp.NewTool("ask_assistant",
		mcp.WithDescription("Ask the study assistant a follow-up question and return its full answer."),
		mcp.WithString("message",
			mcp.Description("The question to ask"),
			mcp.Required(),
		),
	), s.handleAsk)
}

// videoIDArg reads the "url" argument and extracts its video ID
func videoIDArg(request mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	arg, err := request.RequireString("url")
	if err != nil {
		return "", mcp.NewToolResultError("url parameter is required and must be a string")
	}
	_, videoID := ParseArg(arg)
	if videoID == "" {
		return "", mcp.NewToolResultError(fmt.Sprintf("could not find a YouTube video ID in %q", arg))
	}
	return videoID, nil
}

func (s *MCPServer) handleGetMetadata(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	videoID, errResult := videoIDArg(request)
	if errResult != nil {
		return errResult, nil
	}
	s.log.Info().Str("tool", "get_youtube_metadata").Str("video_id", videoID).Msg("tool called")

	metadata, err := s.app.Metadata(ctx, videoID)
	if err != nil {
		s.log.Error().Err(err).Msg("metadata failed")
		return mcp.NewToolResultErrorFromErr("metadata error", err), nil
	}

	return mcp.NewToolResultText(FormatMetadata(metadata)), nil
}

func (s *MCPServer) handleGetTranscript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	videoID, errResult := videoIDArg(request)
	if errResult != nil {
		return errResult, nil
	}
	s.log.Info().Str("tool", "get_youtube_transcript").Str("video_id", videoID).Msg("tool called")

	transcript, err := s.app.CaptionTranscript(ctx, videoID)
	if err != nil {
		s.log.Error().Err(err).Msg("caption transcript failed")
		return mcp.NewToolResultErrorFromErr("no captions available - consider transcribe_youtube_audio", err), nil
	}

	return mcp.NewToolResultText(transcript.FullText), nil
}

func (s *MCPServer) handleTranscribeAudio(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	videoID, errResult := videoIDArg(request)
	if errResult != nil {
		return errResult, nil
	}
	s.log.Info().Str("tool", "transcribe_youtube_audio").Str("video_id", videoID).Msg("tool called")

	transcript, err := s.app.AudioTranscript(ctx, videoID)
	if err != nil {
		s.log.Error().Err(err).Msg("audio transcription failed")
		return mcp.NewToolResultErrorFromErr("failed to transcribe audio", err), nil
	}

	return mcp.NewToolResultText(transcript.FullText), nil
}

func (s *MCPServer) handleGenerateNotes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	videoID, errResult := videoIDArg(request)
	if errResult != nil {
		return errResult, nil
	}
	save := request.GetBool("save", true)
	s.log.Info().Str("tool", "generate_study_notes").Str("video_id", videoID).Bool("save", save).Msg("tool called")

	record, err := s.app.GenerateNotes(ctx, videoID, save)
	if err != nil {
		s.log.Error().Err(err).Msg("note generation failed")
		return mcp.NewToolResultErrorFromErr("failed to generate notes", err), nil
	}

	return mcp.NewToolResultText(record.Notes), nil
}

func (s *MCPServer) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError("message parameter is required and must be a string"), nil
	}
	s.log.Info().Str("tool", "ask_assistant").Msg("tool called")

	var answer strings.Builder
	for delta := range s.app.StreamChat(ctx, message, nil) {
		answer.WriteString(delta)
	}

	return mcp.NewToolResultText(answer.String()), nil
}

// FormatMetadata renders metadata as "Key: value" lines
func FormatMetadata(metadata *VideoMetadata) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Title: %s\n", metadata.Title)
	fmt.Fprintf(&buf, "Channel: %s\n", metadata.Channel)
	fmt.Fprintf(&buf, "Duration: %.0f seconds\n", metadata.Duration)
	fmt.Fprintf(&buf, "Description: %s\n", metadata.Description)
	fmt.Fprintf(&buf, "Has Captions: %t\n", metadata.HasCaptions)

	if len(metadata.Tags) > 0 {
		fmt.Fprintf(&buf, "Tags: %s\n", strings.Join(metadata.Tags, ", "))
	}
	if len(metadata.Categories) > 0 {
		fmt.Fprintf(&buf, "Categories: %s\n", strings.Join(metadata.Categories, ", "))
	}
	for _, ch := range metadata.Chapters {
		fmt.Fprintf(&buf, "Chapter (%s-%s): %s\n", FormatTimestamp(ch.StartTime), FormatTimestamp(ch.EndTime), ch.Title)
	}

	return buf.String()
}

// FormatTimestamp renders seconds as m:ss or h:mm:ss
func FormatTimestamp(seconds float64) string {
	total := int(seconds)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// Start starts the MCP server using the specified transport
func (s *MCPServer) Start(ctx context.Context, transport string, port int) error {
	s.log.Info().Str("transport", transport).Msg("starting MCP server")

	if transport == "http" {
		httpServer := server.NewStreamableHTTPServer(s.mcpServer)
		errCh := make(chan error, 1)
		go func() {
			errCh <- httpServer.Start(fmt.Sprintf(":%d", port))
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			s.log.Info().Msg("shutting down MCP server")
			return httpServer.Shutdown(context.Background())
		}
	}

	return server.ServeStdio(s.mcpServer)
}
