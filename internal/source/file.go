package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/everstacklabs/modelsync/internal/httpclient"
)

// File reads a catalog document saved on disk.
type File struct {
	path string
}

// NewFile creates a File source.
func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Name() string { return f.path }

func (f *File) Fetch(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Source: f.path, Err: err}
	}

	body, err := os.ReadFile(f.path)
	if err != nil {
		return nil, &FetchError{Source: f.path, Err: fmt.Errorf("reading catalog file: %w", err)}
	}

	records, err := decode(f.path, body)
	if err != nil {
		return nil, err
	}

	slog.Info("catalog loaded from file", "path", f.path, "models", len(records))
	return records, nil
}

// Kinds accepted by New.
const (
	KindHTTP = "http"
	KindFile = "file"
)

// New selects a source by kind.
func New(kind, url, path string, client *httpclient.Client) (Source, error) {
	switch kind {
	case "", KindHTTP:
		return NewHTTP(url, client), nil
	case KindFile:
		if path == "" {
			return nil, fmt.Errorf("source.file is required when source.kind=%s", KindFile)
		}
		return NewFile(path), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}
}
