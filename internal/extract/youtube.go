package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/gomtr72/question-generator/internal/domain"
)

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:v=|/v/|/embed/|youtu\.be/)([^&?/]+)`),
	regexp.MustCompile(`(?:youtube\.com/watch\?v=)([^&?/]+)`),
	regexp.MustCompile(`(?:youtube\.com/shorts/)([^&?/]+)`),
}

// VideoID extracts the video id from a watch, embed, short or youtu.be URL.
func VideoID(rawURL string) (string, bool) {
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(rawURL); m != nil {
			return m[1], true
		}
	}
	return "", false
}

func isYouTubeURL(rawURL string) bool {
	return strings.Contains(rawURL, "youtube.com") || strings.Contains(rawURL, "youtu.be")
}

// YouTube reads video metadata through the YouTube Data API and appends the transcript.
type YouTube struct {
	videos      *youtube.VideosService
	transcripts Transcripts
}

// NewYouTube creates a YouTube extractor. An empty apiKey yields an extractor
// that reports every video as unavailable. nil transcripts returns metadata only.
func NewYouTube(ctx context.Context, apiKey string, transcripts Transcripts, opts ...option.ClientOption) (*YouTube, error) {
	if apiKey == "" {
		return &YouTube{transcripts: transcripts}, nil
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &YouTube{videos: svc.Videos, transcripts: transcripts}, nil
}

// Extract returns the video title, description and transcript. A video without
// a usable transcript yields the metadata and a note.
func (y *YouTube) Extract(ctx context.Context, src domain.Source) (string, error) {
	rawURL := strings.TrimSpace(src.Content)
	if !isYouTubeURL(rawURL) {
		return "", domain.NewContentError(domain.ContentYouTube, "not a youtube url", nil)
	}
	id, ok := VideoID(rawURL)
	if !ok {
		return "", domain.NewContentError(domain.ContentYouTube, "video id not found in url", nil)
	}
	if y.videos == nil {
		return "", domain.NewContentError(domain.ContentYouTube, "youtube api key is not configured", nil)
	}

	resp, err := y.videos.List([]string{"snippet"}).Id(id).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			switch gerr.Code {
			case http.StatusForbidden:
				return "", domain.NewContentError(domain.ContentYouTube, "youtube api key invalid or quota exceeded", err)
			case http.StatusNotFound:
				return "", domain.NewContentError(domain.ContentYouTube, "video not found", err)
			}
		}
		return "", domain.NewContentError(domain.ContentYouTube, "fetch video metadata", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return "", domain.NewContentError(domain.ContentYouTube, "video not found", nil)
	}

	sn := resp.Items[0].Snippet
	meta := fmt.Sprintf("Title: %s\nDescription: %s", sn.Title, sn.Description)
	if y.transcripts == nil {
		return meta, nil
	}

	transcript, err := y.transcripts.Transcript(ctx, id)
	switch {
	case err == nil:
		return meta + "\n\nTranscript:\n" + transcript, nil
	case ctx.Err() != nil:
		return "", ctx.Err()
	case errors.Is(err, ErrNoTranscript):
		return meta + "\n\nNote: this video has no transcript.", nil
	default:
		return meta + "\n\nNote: the transcript could not be retrieved.", nil
	}
}
