package internal

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// recordingSleep records requested waits instead of blocking
type recordingSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingSleep) Waits() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.waits...)
}

// fakeCompleter answers CreateChatCompletion from a scripted list of errors,
// then with reply
type fakeCompleter struct {
	errs     []error
	reply    string
	requests []ChatRequest
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req ChatRequest) (string, error) {
	f.requests = append(f.requests, req)
	if n := len(f.requests); n <= len(f.errs) {
		return "", f.errs[n-1]
	}
	return f.reply, nil
}

// fakeTextCompleter answers Complete with respond(call) where call is 1-based
type fakeTextCompleter struct {
	prompts []string
	systems []string
	respond func(call int) (string, error)
}

func (f *fakeTextCompleter) Complete(_ context.Context, content, systemPrompt string) (string, error) {
	f.prompts = append(f.prompts, content)
	f.systems = append(f.systems, systemPrompt)
	return f.respond(len(f.prompts))
}

// fakeTranscriber answers CreateTranscription from a scripted list of errors, then with text
type fakeTranscriber struct {
	errs  []error
	text  string
	files []string
}

func (f *fakeTranscriber) CreateTranscription(_ context.Context, audioFile string) (string, error) {
	f.files = append(f.files, audioFile)
	if n := len(f.files); n <= len(f.errs) {
		return "", f.errs[n-1]
	}
	return f.text, nil
}

// fakeStreamer streams deltas and then err, if set
type fakeStreamer struct {
	deltas   []string
	err      error
	requests []ChatRequest
}

func (f *fakeStreamer) StreamChatCompletion(_ context.Context, req ChatRequest) iter.Seq2[string, error] {
	f.requests = append(f.requests, req)
	return func(yield func(string, error) bool) {
		for _, d := range f.deltas {
			if !yield(d, nil) {
				return
			}
		}
		if f.err != nil {
			yield("", f.err)
		}
	}
}

// fakeLLM is a complete LLMClient
type fakeLLM struct {
	fakeCompleter
	fakeStreamer
	fakeTranscriber
}

// fakeCaptions returns fixed segments or an error
type fakeCaptions struct {
	segments []TranscriptSegment
	err      error
	calls    int
}

func (f *fakeCaptions) Captions(_ context.Context, _ string) ([]TranscriptSegment, error) {
	f.calls++
	return f.segments, f.err
}

// fakeSegmenter writes a fake audio file and count chunk files of 15 minutes each
type fakeSegmenter struct {
	count       int
	downloadErr error
	segmentErr  error
	downloads   int
	chunkPaths  []string
}

func (f *fakeSegmenter) Download(_ context.Context, videoID, dir string) (string, error) {
	f.downloads++
	if f.downloadErr != nil {
		return "", f.downloadErr
	}
	path := filepath.Join(dir, videoID+".mp3")
	return path, os.WriteFile(path, []byte("audio"), 0644)
}

func (f *fakeSegmenter) Segment(_ context.Context, _ string, dir string) ([]AudioChunk, error) {
	if f.segmentErr != nil {
		return nil, f.segmentErr
	}
	chunks := make([]AudioChunk, 0, f.count)
	for i := range f.count {
		path := filepath.Join(dir, fmt.Sprintf("chunk_%d.mp3", i))
		if err := os.WriteFile(path, []byte("chunk"), 0644); err != nil {
			return nil, err
		}
		f.chunkPaths = append(f.chunkPaths, path)
		chunks = append(chunks, AudioChunk{Path: path, Index: i, StartMS: int64(i) * 900_000})
	}
	return chunks, nil
}

// fakeChunkTranscriber returns texts[index], failing the indices in fail
type fakeChunkTranscriber struct {
	texts  map[int]string
	fail   map[int]bool
	chunks []AudioChunk
}

func (f *fakeChunkTranscriber) Transcribe(_ context.Context, chunk AudioChunk) (ChunkTranscription, error) {
	f.chunks = append(f.chunks, chunk)
	result := ChunkTranscription{Index: chunk.Index, Start: chunk.StartSeconds()}
	if f.fail[chunk.Index] {
		result.Err = fmt.Errorf("transcribing chunk %d: %w", chunk.Index+1, &StatusError{StatusCode: 500})
		return result, result.Err
	}
	result.Text = f.texts[chunk.Index]
	return result, nil
}

// fakeRunner fakes ffprobe and ffmpeg. ffmpeg writes the output file with
// bitrate*1000 bytes so size checks depend on the requested bitrate.
type fakeRunner struct {
	duration string
	ffmpeg   [][]string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	switch name {
	case "ffprobe":
		return []byte(f.duration), nil
	case "ffmpeg":
		f.ffmpeg = append(f.ffmpeg, args)
		var kbps int
		for i, a := range args {
			if a == "-b:a" {
				fmt.Sscanf(args[i+1], "%dk", &kbps)
			}
		}
		output := args[len(args)-1]
		return nil, os.WriteFile(output, make([]byte, kbps*1000), 0644)
	}
	return nil, fmt.Errorf("unexpected command %s", name)
}

// fakeDownloader writes an audio file named after the video
type fakeDownloader struct {
	err error
}

func (f *fakeDownloader) DownloadAudio(_ context.Context, videoID, dir string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(dir, videoID+".mp3")
	return path, os.WriteFile(path, []byte("audio"), 0644)
}

func writeTempFile(dir, name string, size int) string {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		panic(err)
	}
	return path
}

// recordingBar is a ProgressBar that remembers what it was told
type recordingBar struct {
	total, current int
	descriptions   []string
	finished       bool
}

func (b *recordingBar) Set(current int)              { b.current = current }
func (b *recordingBar) ChangeMax(total int)          { b.total = total }
func (b *recordingBar) Describe(description string) { b.descriptions = append(b.descriptions, description) }
func (b *recordingBar) Finish()                      { b.finished = true }
