package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gomtr72/question-generator/internal/domain"
)

// InputPlaceholder in Command args is replaced with the temp file holding the upload.
const InputPlaceholder = "{input}"

// Command extracts text by running an external tool on the uploaded file
// and reading its standard output.
type Command struct {
	contentType domain.ContentType
	binary      string
	args        []string
}

// NewCommand creates a command extractor. args must contain InputPlaceholder.
func NewCommand(t domain.ContentType, binary string, args ...string) *Command {
	return &Command{contentType: t, binary: binary, args: args}
}

// NewPDF runs pdftotext, writing UTF-8 text to stdout.
func NewPDF(binary string) *Command {
	if binary == "" {
		binary = "pdftotext"
	}
	return NewCommand(domain.ContentPDF, binary, "-layout", "-enc", "UTF-8", InputPlaceholder, "-")
}

// NewImage runs tesseract OCR with the given languages (default kor+eng).
func NewImage(binary, languages string) *Command {
	if binary == "" {
		binary = "tesseract"
	}
	if languages == "" {
		languages = "kor+eng"
	}
	return NewCommand(domain.ContentImage, binary, InputPlaceholder, "stdout", "-l", languages)
}

// Extract writes the upload to a temp file and runs the tool on it.
func (c *Command) Extract(ctx context.Context, src domain.Source) (string, error) {
	if src.File == nil || len(src.File.Data) == 0 {
		return "", domain.NewContentError(c.contentType, "file is empty", nil)
	}

	dir, err := os.MkdirTemp("", "questiongen-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	input := filepath.Join(dir, "upload."+src.File.Extension())
	if err := os.WriteFile(input, src.File.Data, 0o600); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}

	args := make([]string, len(c.args))
	for i, a := range c.args {
		args[i] = strings.ReplaceAll(a, InputPlaceholder, input)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.binary, args...) //nolint:gosec // binary and args come from config
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = c.binary + " failed"
		}
		return "", domain.NewContentError(c.contentType, msg, err)
	}

	text := strings.TrimSpace(stdout.String())
	if text == "" {
		return "", domain.NewContentError(c.contentType, "no text could be extracted", nil)
	}
	return text, nil
}
