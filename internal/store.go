package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotCached is returned when no cache entry exists for a video
var ErrNotCached = errors.New("not cached")

// ErrInvalidNoteID is returned for note IDs that are not UUIDs
var ErrInvalidNoteID = errors.New("invalid note id")

// SaveTranscript caches a resolved transcript as <id>.json in transcriptsDir
func SaveTranscript(videoID string, transcript *Transcript, transcriptsDir string) error {
	if err := EnsureDirs(transcriptsDir); err != nil {
		return fmt.Errorf("creating transcripts directory: %w", err)
	}
	return writeJSON(filepath.Join(transcriptsDir, videoID+".json"), transcript)
}

// LoadTranscript reads a cached transcript
func LoadTranscript(videoID, transcriptsDir string) (*Transcript, error) {
	var transcript Transcript
	if err := readJSON(filepath.Join(transcriptsDir, videoID+".json"), &transcript); err != nil {
		return nil, err
	}
	if transcript.FullText == "" || len(transcript.Segments) == 0 {
		return nil, fmt.Errorf("%w: cached transcript for %s is empty", ErrNotCached, videoID)
	}
	return &transcript, nil
}

// CachedVideoMetadata is VideoMetadata with the time it was cached
type CachedVideoMetadata struct {
	VideoMetadata
	CachedAt time.Time `json:"cached_at"`
}

// SaveMetadata saves video metadata to cache as JSON
func SaveMetadata(videoID string, metadata *VideoMetadata, transcriptsDir string) error {
	if err := EnsureDirs(transcriptsDir); err != nil {
		return fmt.Errorf("creating transcripts directory: %w", err)
	}
	cached := CachedVideoMetadata{
		VideoMetadata: *metadata,
		CachedAt:      time.Now(),
	}
	return writeJSON(filepath.Join(transcriptsDir, videoID+".meta.json"), cached)
}

// LoadCachedMetadata loads video metadata from cache
func LoadCachedMetadata(videoID, transcriptsDir string) (*VideoMetadata, error) {
	var cached CachedVideoMetadata
	if err := readJSON(filepath.Join(transcriptsDir, videoID+".meta.json"), &cached); err != nil {
		return nil, err
	}
	return &cached.VideoMetadata, nil
}

// NoteRecord is one saved set of notes
type NoteRecord struct {
	ID        string              `json:"id"`
	VideoID   string              `json:"video_id"`
	Title     string              `json:"title,omitempty"`
	Notes     string              `json:"notes"`
	Segments  []TranscriptSegment `json:"timestamps,omitempty"`
	CreatedAt time.Time           `json:"date"`
}

// NoteStore keeps saved notes as JSON files in one directory
type NoteStore struct {
	dir string
	now func() time.Time
}

// NewNoteStore creates a store rooted at dir
func NewNoteStore(dir string) *NoteStore {
	return &NoteStore{dir: dir, now: time.Now}
}

// Save writes a new record and returns it with its ID and timestamp filled in
func (s *NoteStore) Save(videoID, title, notes string, segments []TranscriptSegment) (*NoteRecord, error) {
	if err := EnsureDirs(s.dir); err != nil {
		return nil, fmt.Errorf("creating notes directory: %w", err)
	}

	record := &NoteRecord{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		Title:     title,
		Notes:     notes,
		Segments:  segments,
		CreatedAt: s.now().UTC(),
	}
	path, err := s.path(record.ID)
	if err != nil {
		return nil, err
	}
	if err := writeJSON(path, record); err != nil {
		return nil, fmt.Errorf("saving notes: %w", err)
	}
	return record, nil
}

// List returns all saved records, newest first
func (s *NoteStore) List() ([]NoteRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading notes directory: %w", err)
	}

	var records []NoteRecord
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var record NoteRecord
		if err := readJSON(filepath.Join(s.dir, entry.Name()), &record); err != nil {
			continue
		}
		records = append(records, record)
	}

	slices.SortFunc(records, func(a, b NoteRecord) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return records, nil
}

// Load returns the record with id, or the single record whose id starts with it
func (s *NoteStore) Load(id string) (*NoteRecord, error) {
	if path, err := s.path(id); err == nil {
		var record NoteRecord
		err := readJSON(path, &record)
		if err == nil {
			return &record, nil
		}
		if !errors.Is(err, ErrNotCached) {
			return nil, err
		}
	}

	records, err := s.List()
	if err != nil {
		return nil, err
	}
	var matches []NoteRecord
	for _, r := range records {
		if strings.HasPrefix(r.ID, id) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no saved notes with id %q", id)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("id %q is ambiguous (%d matches)", id, len(matches))
	}
}

// Delete removes the record with the exact id
func (s *NoteStore) Delete(id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no saved notes with id %q", id)
		}
		return fmt.Errorf("deleting notes: %w", err)
	}
	return nil
}

// path maps a full note ID to its file. Anything that is not a UUID is refused
// so an ID can never name a file outside the store.
func (s *NoteStore) path(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidNoteID, id)
	}
	return filepath.Join(s.dir, parsed.String()+".json"), nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotCached
		}
		return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}
