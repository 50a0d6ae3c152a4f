package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gomtr72/question-generator/internal/domain"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run the pipeline once and print the quiz as JSON",
	Example: `  questiongen generate --type text --file notes.txt
  questiongen generate --type website --content https://example.com/article
  questiongen generate --type pdf --file lecture.pdf`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		typ, _ := cmd.Flags().GetString("type")
		content, _ := cmd.Flags().GetString("content")
		path, _ := cmd.Flags().GetString("file")
		pretty, _ := cmd.Flags().GetBool("pretty")

		src, err := sourceFromFlags(typ, content, path, cmd.InOrStdin())
		if err != nil {
			return err
		}

		cfg, _, logger, cleanup, err := setup(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		a, err := buildApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, usage := domain.NewContextWithUsage(cmd.Context())
		quiz, err := a.pipeline.Process(ctx, src)
		if err != nil {
			return fmt.Errorf("generate: %w", err)
		}
		logger.Info("LLM usage",
			zap.Int("calls", usage.Calls()),
			zap.Int("tokens", usage.TotalTokens()),
		)

		return writeJSON(cmd.OutOrStdout(), quiz, pretty)
	},
}

func init() {
	generateCmd.Flags().String("type", string(domain.ContentText), "Content type: text, pdf, image, youtube, website")
	generateCmd.Flags().String("content", "", "Inline text or URL")
	generateCmd.Flags().String("file", "", "Input file; - reads stdin")
	generateCmd.Flags().Bool("pretty", false, "Indent the JSON output")
}

// sourceFromFlags builds a pipeline source. For pdf and image the file is
// uploaded as-is; for the other types its contents become the inline content.
func sourceFromFlags(typ, content, path string, stdin io.Reader) (domain.Source, error) {
	src := domain.Source{Type: domain.ContentType(typ), Content: content}
	if path == "" {
		return src, nil
	}
	if content != "" {
		return domain.Source{}, fmt.Errorf("use either --content or --file, not both")
	}

	var (
		data []byte
		err  error
		name = filepath.Base(path)
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
		name = "stdin." + typ
	} else {
		data, err = os.ReadFile(filepath.Clean(path))
	}
	if err != nil {
		return domain.Source{}, fmt.Errorf("read %s: %w", path, err)
	}

	if src.Type.NeedsFile() {
		src.File = &domain.File{Name: name, Data: data}
		return src, nil
	}
	src.Content = string(data)
	return src, nil
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
