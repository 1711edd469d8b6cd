package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/lrstanley/go-ytdlp"
	"github.com/rs/zerolog"
)

// VideoMetadata contains YouTube video information
type VideoMetadata struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Channel     string         `json:"channel"`
	Uploader    string         `json:"uploader"`
	Duration    float64        `json:"duration"`
	Categories  []string       `json:"categories"`
	Tags        []string       `json:"tags"`
	Chapters    []VideoChapter `json:"chapters"`
	HasCaptions bool           `json:"has_captions"`
}

// VideoChapter represents a video chapter marker
type VideoChapter struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Title     string  `json:"title"`
}

// CaptionSource fetches official or auto-generated captions for a video
type CaptionSource interface {
	Captions(ctx context.Context, videoID string) ([]TranscriptSegment, error)
}

// YouTube fetches captions, audio and metadata through yt-dlp
type YouTube struct {
	tempDir       string
	captionTries  uint
	captionDelay  time.Duration
	audioQuality  string
	subtitleLangs string
	log           zerolog.Logger
}

// YouTubeOption customizes a YouTube source
type YouTubeOption func(*YouTube)

// WithCaptionRetry sets how often and how far apart caption downloads are attempted
func WithCaptionRetry(tries uint, delay time.Duration) YouTubeOption {
	return func(yt *YouTube) {
		yt.captionTries = tries
		yt.captionDelay = delay
	}
}

// WithAudioQuality sets the yt-dlp audio quality for downloads, e.g. "192K"
func WithAudioQuality(quality string) YouTubeOption {
	return func(yt *YouTube) {
		yt.audioQuality = quality
	}
}

// WithYouTubeLogger sets the logger
func WithYouTubeLogger(logger zerolog.Logger) YouTubeOption {
	return func(yt *YouTube) {
		yt.log = logger
	}
}

// NewYouTube creates a yt-dlp backed source using tempDir for subtitle files
func NewYouTube(tempDir string, options ...YouTubeOption) *YouTube {
	yt := &YouTube{
		tempDir:       tempDir,
		captionTries:  2,
		captionDelay:  time.Second,
		audioQuality:  "192K",
		subtitleLangs: "en.*,en",
		log:           zerolog.Nop(),
	}
	for _, option := range options {
		option(yt)
	}
	return yt
}

// VideoURL returns the canonical watch URL for a video ID
func VideoURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// Metadata fetches video details using go-ytdlp
func (yt *YouTube) Metadata(ctx context.Context, videoID string) (*VideoMetadata, error) {
	yt.log.Debug().Str("video_id", videoID).Msg("extracting video metadata")

	dl := ytdlp.New().
		DumpSingleJSON().
		NoPlaylist().
		SkipDownload()

	result, err := dl.Run(ctx, VideoURL(videoID))
	if err != nil {
		if result != nil {
			yt.log.Debug().Str("stderr", result.Stderr).Msg("yt-dlp metadata failed")
		}
		return nil, fmt.Errorf("extracting video metadata: %w", err)
	}

	return parseMetadata([]byte(result.Stdout))
}

func parseMetadata(data []byte) (*VideoMetadata, error) {
	// subtitle maps are only needed for HasCaptions
	var rawData map[string]any
	if err := json.Unmarshal(data, &rawData); err != nil {
		return nil, fmt.Errorf("parsing video metadata: %w", err)
	}

	var metadata VideoMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("parsing video metadata: %w", err)
	}
	metadata.HasCaptions = extractSubtitleInfo(rawData)

	return &metadata, nil
}

// Captions downloads English subtitles (manual or automatic) as SRT and parses them
// into timestamped segments. A failed download is retried once after captionDelay.
func (yt *YouTube) Captions(ctx context.Context, videoID string) ([]TranscriptSegment, error) {
	if err := EnsureDirs(yt.tempDir); err != nil {
		return nil, fmt.Errorf("creating temp directory: %w", err)
	}
	subsDir, err := os.MkdirTemp(yt.tempDir, "subs-*")
	if err != nil {
		return nil, fmt.Errorf("creating subtitle directory: %w", err)
	}
	defer os.RemoveAll(subsDir)

	download := func() (string, error) {
		return yt.downloadSubtitles(ctx, videoID, subsDir)
	}
	srtFile, err := backoff.Retry(ctx, download,
		backoff.WithBackOff(backoff.NewConstantBackOff(yt.captionDelay)),
		backoff.WithMaxTries(max(yt.captionTries, 1)),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrNoCaptions, err)
	}

	content, err := os.ReadFile(srtFile)
	if err != nil {
		return nil, fmt.Errorf("reading SRT file: %w", err)
	}

	segments := removeDuplicates(parseSRT(string(content)))
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: subtitle file for %s is empty", ErrNoCaptions, videoID)
	}

	yt.log.Debug().Str("video_id", videoID).Int("segments", len(segments)).Msg("captions parsed")
	return segments, nil
}

func (yt *YouTube) downloadSubtitles(ctx context.Context, videoID, dir string) (string, error) {
	dl := ytdlp.New().
		WriteSubs().
		WriteAutoSubs().
		SubLangs(yt.subtitleLangs).
		ConvertSubs("srt").
		SkipDownload().
		NoPlaylist().
		Output(filepath.Join(dir, "%(id)s"))

	result, err := dl.Run(ctx, VideoURL(videoID))
	if err != nil {
		if ctx.Err() != nil {
			return "", backoff.Permanent(ctx.Err())
		}
		if result != nil {
			yt.log.Debug().Str("stderr", result.Stderr).Msg("yt-dlp subtitle download failed")
		}
		return "", fmt.Errorf("downloading subtitles: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, videoID+"*.srt"))
	if err != nil || len(files) == 0 {
		// the video simply has no English captions; retrying will not help
		return "", backoff.Permanent(fmt.Errorf("no subtitle files found for %s", videoID))
	}
	return preferredSubtitle(files), nil
}

// preferredSubtitle picks plain "en" over regional or translated variants
func preferredSubtitle(files []string) string {
	for _, f := range files {
		if strings.HasSuffix(f, ".en.srt") {
			return f
		}
	}
	return files[0]
}

// DownloadAudio fetches the best audio stream as mp3 into dir
func (yt *YouTube) DownloadAudio(ctx context.Context, videoID, dir string) (string, error) {
	yt.log.Debug().Str("video_id", videoID).Str("quality", yt.audioQuality).Msg("downloading audio")

	dl := ytdlp.New().
		Format("bestaudio/best").
		ExtractAudio().
		AudioFormat("mp3").
		AudioQuality(yt.audioQuality).
		NoPlaylist().
		Output(filepath.Join(dir, "%(id)s.%(ext)s"))

	result, err := dl.Run(ctx, VideoURL(videoID))
	if err != nil {
		stderr := ""
		if result != nil {
			stderr = result.Stderr
		}
		return "", fmt.Errorf("yt-dlp failed: %w\nOutput: %s", err, stderr)
	}

	return filepath.Join(dir, videoID+".mp3"), nil
}

var (
	srtTimestamp = regexp.MustCompile(`^(\d{1,2}):(\d{2}):(\d{2})[,.](\d{3})\s*-->`)
	markupTag    = regexp.MustCompile(`<[^>]+>|\{\\[^}]*\}`)
)

// parseSRT extracts timestamped text blocks from SRT content
func parseSRT(content string) []TranscriptSegment {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	var segments []TranscriptSegment
	for block := range strings.SplitSeq(content, "\n\n") {
		blockLines := strings.Split(strings.TrimSpace(block), "\n")

		// find the timing line; the sequence number before it is optional
		timing := -1
		for i, line := range blockLines {
			if srtTimestamp.MatchString(strings.TrimSpace(line)) {
				timing = i
				break
			}
		}
		if timing < 0 {
			continue
		}

		var text []string
		for _, line := range blockLines[timing+1:] {
			line = strings.TrimSpace(markupTag.ReplaceAllString(line, ""))
			if line != "" {
				text = append(text, line)
			}
		}
		if len(text) == 0 {
			continue
		}

		segments = append(segments, TranscriptSegment{
			Start: parseSRTTimestamp(strings.TrimSpace(blockLines[timing])),
			Text:  strings.Join(text, " "),
		})
	}

	return segments
}

func parseSRTTimestamp(line string) float64 {
	m := srtTimestamp.FindStringSubmatch(line)
	if m == nil {
		return 0
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	millis, _ := strconv.Atoi(m[4])
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000
}

// removeDuplicates collapses the repeats produced by auto-generated rolling captions.
// A segment equal to the previous text or to its trailing words is dropped; one
// that starts with the previous text and continues it at a word boundary replaces
// the previous text and keeps its start. Matches inside a word never count.
func removeDuplicates(segments []TranscriptSegment) []TranscriptSegment {
	result := make([]TranscriptSegment, 0, len(segments))

	for _, seg := range segments {
		if n := len(result); n > 0 {
			prev := result[n-1].Text
			if seg.Text == prev || strings.HasSuffix(prev, " "+seg.Text) {
				continue
			}
			if strings.HasPrefix(seg.Text, prev+" ") {
				result[n-1].Text = seg.Text
				continue
			}
		}
		result = append(result, seg)
	}

	return result
}

// extractSubtitleInfo extracts subtitle availability from yt-dlp JSON output
func extractSubtitleInfo(rawData map[string]any) bool {
	if subtitles, ok := rawData["subtitles"].(map[string]any); ok && len(subtitles) > 0 {
		return true
	}
	if autoCaptions, ok := rawData["automatic_captions"].(map[string]any); ok && len(autoCaptions) > 0 {
		return true
	}
	return false
}
