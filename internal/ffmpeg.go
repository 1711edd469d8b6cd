package internal

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// TranscriptionSizeLimit is the largest file the transcription endpoint accepts
	TranscriptionSizeLimit int64 = 25 * 1024 * 1024

	DefaultAudioChunkDuration = 15 * time.Minute
	DefaultAudioBitrate       = 64

	minAudioBitrate = 16
)

// AudioDownloader fetches the best audio stream for a video into dir
type AudioDownloader interface {
	DownloadAudio(ctx context.Context, videoID, dir string) (string, error)
}

// AudioSegmenter downloads audio and slices it into normalized mono chunks with ffmpeg
type AudioSegmenter struct {
	downloader    AudioDownloader
	cmdRunner     CommandRunner
	chunkDuration time.Duration
	bitrate       int
	sizeLimit     int64
	log           zerolog.Logger
}

// SegmenterOption customizes an AudioSegmenter
type SegmenterOption func(*AudioSegmenter)

// WithChunkDuration sets the length of each audio chunk
func WithChunkDuration(d time.Duration) SegmenterOption {
	return func(s *AudioSegmenter) {
		if d > 0 {
			s.chunkDuration = d
		}
	}
}

// WithBitrate sets the chunk bitrate in kbit/s
func WithBitrate(kbps int) SegmenterOption {
	return func(s *AudioSegmenter) {
		if kbps > 0 {
			s.bitrate = kbps
		}
	}
}

// WithSizeLimit sets the per-chunk size ceiling
func WithSizeLimit(limit int64) SegmenterOption {
	return func(s *AudioSegmenter) {
		s.sizeLimit = limit
	}
}

// WithSegmenterLogger sets the segmenter's logger
func WithSegmenterLogger(logger zerolog.Logger) SegmenterOption {
	return func(s *AudioSegmenter) {
		s.log = logger
	}
}

// NewAudioSegmenter creates a segmenter that shells out through cmdRunner
func NewAudioSegmenter(downloader AudioDownloader, cmdRunner CommandRunner, options ...SegmenterOption) *AudioSegmenter {
	s := &AudioSegmenter{
		downloader:    downloader,
		cmdRunner:     cmdRunner,
		chunkDuration: DefaultAudioChunkDuration,
		bitrate:       DefaultAudioBitrate,
		sizeLimit:     TranscriptionSizeLimit,
		log:           zerolog.Nop(),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Download fetches audio for videoID into dir
func (s *AudioSegmenter) Download(ctx context.Context, videoID, dir string) (string, error) {
	s.log.Debug().Str("video_id", videoID).Msg("downloading audio")

	audioFile, err := s.downloader.DownloadAudio(ctx, videoID, dir)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	if !FileExists(audioFile) {
		return "", fmt.Errorf("%w: audio file %s missing after download", ErrDownloadFailed, audioFile)
	}
	return audioFile, nil
}

// Duration returns the audio file duration in seconds
func (s *AudioSegmenter) Duration(ctx context.Context, audioFile string) (float64, error) {
	output, err := s.cmdRunner.Run(ctx, "ffprobe",
		"-i", audioFile,
		"-show_entries", "format=duration",
		"-v", "quiet",
		"-of", "csv=p=0")
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w\nOutput: %s", err, string(output))
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing duration: %w", err)
	}
	return duration, nil
}

// Segment slices audioFile into ceil(duration/chunkDuration) chunks written to dir.
// On failure every chunk file it wrote is removed.
func (s *AudioSegmenter) Segment(ctx context.Context, audioFile, dir string) ([]AudioChunk, error) {
	duration, err := s.Duration(ctx, audioFile)
	if err != nil {
		return nil, fmt.Errorf("getting audio duration: %w", err)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("audio file %s has no duration", filepath.Base(audioFile))
	}

	chunkSeconds := s.chunkDuration.Seconds()
	count := int(math.Ceil(duration / chunkSeconds))
	chunks := make([]AudioChunk, 0, count)

	s.log.Debug().Float64("duration", duration).Int("chunks", count).Msg("segmenting audio")

	for i := range count {
		if err := ctx.Err(); err != nil {
			s.removeChunks(chunks)
			return nil, err
		}

		start := float64(i) * chunkSeconds
		length := min(chunkSeconds, duration-start)
		output := filepath.Join(dir, fmt.Sprintf("chunk_%d.mp3", i))

		if err := s.encodeChunk(ctx, audioFile, start, length, output); err != nil {
			removeFile(output, s.log)
			s.removeChunks(chunks)
			return nil, fmt.Errorf("creating chunk %d: %w", i, err)
		}

		chunks = append(chunks, AudioChunk{
			Path:    output,
			Index:   i,
			StartMS: int64(start * 1000),
		})
	}

	return chunks, nil
}

// encodeChunk encodes one chunk and halves the bitrate until it fits the size limit
func (s *AudioSegmenter) encodeChunk(ctx context.Context, audioFile string, start, length float64, output string) error {
	bitrate := s.bitrate
	for {
		if err := s.Chunk(ctx, audioFile, start, length, bitrate, output); err != nil {
			return err
		}

		info, err := os.Stat(output)
		if err != nil {
			return fmt.Errorf("checking chunk size: %w", err)
		}
		if s.sizeLimit <= 0 || info.Size() <= s.sizeLimit {
			return nil
		}

		next := bitrate / 2
		if next < minAudioBitrate {
			return fmt.Errorf("%w: %s is %d bytes at %dk", ErrChunkTooLarge, filepath.Base(output), info.Size(), bitrate)
		}
		s.log.Warn().
			Str("chunk", filepath.Base(output)).
			Int64("size", info.Size()).
			Int("bitrate", next).
			Msg("chunk over size limit, re-encoding")
		bitrate = next
	}
}

// Chunk extracts, loudness-normalizes and re-encodes one mono segment
func (s *AudioSegmenter) Chunk(ctx context.Context, audioFile string, start, length float64, bitrate int, output string) error {
	cmdOutput, err := s.cmdRunner.Run(ctx, "ffmpeg",
		"-v", "quiet",
		"-y",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(length),
		"-i", audioFile,
		"-af", "loudnorm",
		"-ac", "1",
		"-b:a", fmt.Sprintf("%dk", bitrate),
		output)
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w\nOutput: %s", err, string(cmdOutput))
	}
	return nil
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 3, 64)
}

func (s *AudioSegmenter) removeChunks(chunks []AudioChunk) {
	for _, chunk := range chunks {
		removeFile(chunk.Path, s.log)
	}
}
