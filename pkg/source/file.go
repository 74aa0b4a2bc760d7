package source

import (
	"context"
	"fmt"
	"os"
	"time"
)

// FileSource reads order workbooks from the local filesystem.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) FetchLatest(ctx context.Context) (*Batch, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	rows, err := parseWorkbook(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	return &Batch{
		Rows:      rows,
		FetchedAt: time.Now().UTC(),
		Name:      s.path,
	}, nil
}

func (s *FileSource) Close() error { return nil }
