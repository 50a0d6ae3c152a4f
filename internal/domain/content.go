package domain

import (
	"net/url"
	"path/filepath"
	"strings"
)

// ContentType identifies the kind of source a pipeline run starts from.
type ContentType string

// Supported content types.
const (
	ContentText    ContentType = "text"
	ContentPDF     ContentType = "pdf"
	ContentImage   ContentType = "image"
	ContentYouTube ContentType = "youtube"
	ContentWebsite ContentType = "website"
)

// ContentTypes lists every supported content type.
var ContentTypes = []ContentType{ContentText, ContentPDF, ContentImage, ContentYouTube, ContentWebsite}

// allowedExtensions are the upload extensions accepted for file-backed sources.
var allowedExtensions = map[string]bool{
	"pdf":  true,
	"png":  true,
	"jpg":  true,
	"jpeg": true,
}

// ParseContentType validates a raw content type string.
func ParseContentType(s string) (ContentType, bool) {
	for _, t := range ContentTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// NeedsFile reports whether the source is an uploaded file rather than inline content.
func (t ContentType) NeedsFile() bool {
	return t == ContentPDF || t == ContentImage
}

// NeedsURL reports whether the inline content must be a URL.
func (t ContentType) NeedsURL() bool {
	return t == ContentYouTube || t == ContentWebsite
}

// File is an uploaded document.
type File struct {
	Name string
	Data []byte
}

// Extension returns the lower-cased extension without the dot.
func (f *File) Extension() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(f.Name), "."))
}

// AllowedExtension reports whether the upload extension is accepted.
func (f *File) AllowedExtension() bool {
	return allowedExtensions[f.Extension()]
}

// Source is the input of one pipeline run: inline content or an uploaded file.
type Source struct {
	Type    ContentType
	Content string
	File    *File
}

// Validate checks that the source carries what its type requires.
func (s Source) Validate() error {
	if s.Type == "" {
		return NewValidationError("type", "content type is required")
	}
	if _, ok := ParseContentType(string(s.Type)); !ok {
		return NewValidationError("type", "unsupported content type "+string(s.Type))
	}
	if s.Type.NeedsFile() {
		if s.File == nil || len(s.File.Data) == 0 {
			return NewValidationError("file", "file is required for "+string(s.Type))
		}
		if s.File.Name == "" {
			return NewValidationError("file", "file name is required")
		}
		if !s.File.AllowedExtension() {
			return NewValidationError("file", "unsupported file extension "+s.File.Extension())
		}
		return nil
	}
	if strings.TrimSpace(s.Content) == "" {
		return NewValidationError("content", "content is required for "+string(s.Type))
	}
	if s.Type.NeedsURL() && !isHTTPURL(strings.TrimSpace(s.Content)) {
		return NewValidationError("content", "content must be an http(s) URL for "+string(s.Type))
	}
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
