package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSRT(t *testing.T) {
	content := "1\r\n00:00:01,000 --> 00:00:03,500\r\n<c>Hello</c> there\r\nfriends\r\n\r\n" +
		"2\r\n00:01:02,250 --> 00:01:04,000\r\n<font color=\"#fff\">Second</font> line\r\n\r\n" +
		"3\r\n01:00:00,000 --> 01:00:01,000\r\n\r\n" +
		"garbage block\r\n"

	segments := parseSRT(content)

	assert.Equal(t, []TranscriptSegment{
		{Start: 1, Text: "Hello there friends"},
		{Start: 62.25, Text: "Second line"},
	}, segments)
}

func TestParseSRTTimestamp(t *testing.T) {
	assert.Equal(t, 3723.5, parseSRTTimestamp("01:02:03,500 --> 01:02:04,000"))
	assert.Equal(t, 0.0, parseSRTTimestamp("not a timestamp"))
}

func TestRemoveDuplicates(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		want  []TranscriptSegment
	}{
		{
			name:  "rolling captions",
			texts: []string{"so today we", "so today we will talk", "will talk", "about graphs", "about graphs"},
			want: []TranscriptSegment{
				{Start: 0, Text: "so today we will talk"},
				{Start: 3, Text: "about graphs"},
			},
		},
		{
			name:  "short words inside the previous text are kept",
			texts: []string{"I know the answer", "no", "a", "banana split"},
			want: []TranscriptSegment{
				{Start: 0, Text: "I know the answer"},
				{Start: 1, Text: "no"},
				{Start: 2, Text: "a"},
				{Start: 3, Text: "banana split"},
			},
		},
		{
			name:  "extension must continue at a word boundary",
			texts: []string{"graph", "graphs are fun"},
			want: []TranscriptSegment{
				{Start: 0, Text: "graph"},
				{Start: 1, Text: "graphs are fun"},
			},
		},
		{
			name:  "trailing words of the previous line",
			texts: []string{"the answer is no", "is no"},
			want:  []TranscriptSegment{{Start: 0, Text: "the answer is no"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments := make([]TranscriptSegment, len(tt.texts))
			for i, text := range tt.texts {
				segments[i] = TranscriptSegment{Start: float64(i), Text: text}
			}
			assert.Equal(t, tt.want, removeDuplicates(segments))
		})
	}
}

func TestExtractSubtitleInfo(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		want bool
	}{
		{"manual subtitles", map[string]any{"subtitles": map[string]any{"en": []any{}}}, true},
		{"automatic captions", map[string]any{"automatic_captions": map[string]any{"en": []any{}}}, true},
		{"empty maps", map[string]any{"subtitles": map[string]any{}, "automatic_captions": map[string]any{}}, false},
		{"missing", map[string]any{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractSubtitleInfo(tt.data))
		})
	}
}

func TestParseMetadata(t *testing.T) {
	data := []byte(`{
		"id": "dQw4w9WgXcQ",
		"title": "Intro to Algorithms",
		"channel": "MIT OpenCourseWare",
		"duration": 4980,
		"tags": ["algorithms", "lecture"],
		"chapters": [{"start_time": 0, "end_time": 120.5, "title": "Intro"}],
		"automatic_captions": {"en": [{"ext": "srt"}]}
	}`)

	metadata, err := parseMetadata(data)

	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", metadata.ID)
	assert.Equal(t, "Intro to Algorithms", metadata.Title)
	assert.Equal(t, 4980.0, metadata.Duration)
	assert.True(t, metadata.HasCaptions)
	require.Len(t, metadata.Chapters, 1)
	assert.Equal(t, 120.5, metadata.Chapters[0].EndTime)

	_, err = parseMetadata([]byte("not json"))
	assert.Error(t, err)
}

func TestPreferredSubtitle(t *testing.T) {
	assert.Equal(t, "/tmp/x.en.srt", preferredSubtitle([]string{"/tmp/x.en-GB.srt", "/tmp/x.en.srt"}))
	assert.Equal(t, "/tmp/x.en-US.srt", preferredSubtitle([]string{"/tmp/x.en-US.srt"}))
}
