package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	tests := []struct {
		env     string
		level   string
		want    zapcore.Level
		wantErr bool
	}{
		{env: "prod", want: zapcore.InfoLevel},
		{env: "local", want: zapcore.DebugLevel},
		{env: "docker", want: zapcore.DebugLevel},
		{env: "prod", level: "warn", want: zapcore.WarnLevel},
		{env: "staging", wantErr: true},
		{env: "local", level: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.env+"/"+tt.level, func(t *testing.T) {
			l, cleanup, err := New(Options{Env: tt.env, Level: tt.level})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer cleanup()
			if l.Level() != tt.want {
				t.Errorf("level = %v, want %v", l.Level(), tt.want)
			}
		})
	}
}

func TestNew_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questiongen.log")
	l, cleanup, err := New(Options{
		Env:   "prod",
		Level: "info",
		File:  FileConfig{Path: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.Warn("Chunk summary skipped", zap.Int("chunk_index", 9), zap.String("reason", "malformed_json"))
	l.Debug("Merged chunk summaries")
	cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"Chunk summary skipped"`) || !strings.Contains(out, `"chunk_index":9`) {
		t.Errorf("log file = %s", out)
	}
	if strings.Contains(out, "Merged chunk summaries") {
		t.Error("debug line must be filtered at info level")
	}
}

func TestNew_NoFileSink(t *testing.T) {
	dir := t.TempDir()
	l, cleanup, err := New(Options{Env: "local"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info("Quiz generated")
	cleanup()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("no files expected, got %d", len(entries))
	}
}

func TestContextLogger(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected a nop logger")
	}
	l := zap.NewExample()
	if FromContext(ContextWithLogger(context.Background(), l)) != l {
		t.Error("expected the stored logger")
	}
	if FromContext(ContextWithLogger(context.Background(), nil)) == nil {
		t.Error("a stored nil logger must fall back to nop")
	}
}

func TestWith(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := ContextWithLogger(context.Background(), zap.New(core).With(zap.String("request_id", "r-1")))

	ctx = With(ctx, zap.String("content_type", "pdf"))
	FromContext(ctx).Info("Content extracted")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "r-1" || fields["content_type"] != "pdf" {
		t.Errorf("fields = %v", fields)
	}

	bare := context.Background()
	if With(bare, zap.String("k", "v")) != bare {
		t.Error("context without a logger must be returned unchanged")
	}
}
