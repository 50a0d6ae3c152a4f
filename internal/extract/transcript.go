package extract

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// ErrNoTranscript is returned when a video has no caption track.
var ErrNoTranscript = errors.New("no transcript available")

// DefaultTranscriptLanguages is the caption language preference.
var DefaultTranscriptLanguages = []string{"ko", "en"}

const defaultTimedTextURL = "https://www.youtube.com/api/timedtext"

// Transcripts fetches the caption text of a video.
type Transcripts interface {
	Transcript(ctx context.Context, videoID string) (string, error)
}

// TimedText reads captions from the YouTube timedtext endpoint.
type TimedText struct {
	client  *http.Client
	baseURL string
	langs   []string
}

// NewTimedText creates a caption reader. Empty baseURL selects the public endpoint,
// nil langs selects DefaultTranscriptLanguages.
func NewTimedText(client *http.Client, baseURL string, langs []string) *TimedText {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = defaultTimedTextURL
	}
	if len(langs) == 0 {
		langs = DefaultTranscriptLanguages
	}
	return &TimedText{client: client, baseURL: baseURL, langs: langs}
}

type captionTrack struct {
	Name string `xml:"name,attr"`
	Lang string `xml:"lang_code,attr"`
	Kind string `xml:"kind,attr"`
}

func (c captionTrack) generated() bool { return c.Kind == "asr" }

type trackList struct {
	Tracks []captionTrack `xml:"track"`
}

type transcriptDoc struct {
	Lines []string `xml:"text"`
}

// Transcript picks a track in language order, manual before generated, then any
// manual track, then any generated one, and returns its text one cue per line.
func (t *TimedText) Transcript(ctx context.Context, videoID string) (string, error) {
	var list trackList
	if err := t.get(ctx, url.Values{"type": {"list"}, "v": {videoID}}, &list); err != nil {
		return "", fmt.Errorf("list caption tracks: %w", err)
	}

	track, ok := pickTrack(list.Tracks, t.langs)
	if !ok {
		return "", ErrNoTranscript
	}

	q := url.Values{"v": {videoID}, "lang": {track.Lang}}
	if track.Name != "" {
		q.Set("name", track.Name)
	}
	if track.generated() {
		q.Set("kind", "asr")
	}
	var doc transcriptDoc
	if err := t.get(ctx, q, &doc); err != nil {
		return "", fmt.Errorf("fetch %s captions: %w", track.Lang, err)
	}

	lines := make([]string, 0, len(doc.Lines))
	for _, l := range doc.Lines {
		// Cue text arrives entity-escaped a second time.
		l = strings.TrimSpace(html.UnescapeString(l))
		if l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return "", ErrNoTranscript
	}
	return strings.Join(lines, "\n"), nil
}

func pickTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	for _, lang := range langs {
		for _, generated := range []bool{false, true} {
			for _, tr := range tracks {
				if tr.Lang == lang && tr.generated() == generated {
					return tr, true
				}
			}
		}
	}
	for _, generated := range []bool{false, true} {
		for _, tr := range tracks {
			if tr.generated() == generated {
				return tr, true
			}
		}
	}
	return captionTrack{}, false
}

func (t *TimedText) get(ctx context.Context, q url.Values, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return ErrNoTranscript
	}
	if err := xml.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode captions: %w", err)
	}
	return nil
}
