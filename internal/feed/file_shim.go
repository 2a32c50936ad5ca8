package feed

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bcnelson/ioc-dashboard/internal/domain"
)

// FileShim is a development and testing Fetcher that reads the feed from a
// local file.
type FileShim struct {
	filePath string
	format   Format
}

// Ensure FileShim implements Fetcher.
var _ Fetcher = (*FileShim)(nil)

// NewFileShim creates a file-based fetcher. FormatAuto chooses by extension
// and then by content.
func NewFileShim(filePath string, format Format) *FileShim {
	if format == FormatAuto || format == "" {
		format = FormatFor("", filePath)
	}
	return &FileShim{filePath: filePath, format: format}
}

// Name returns the file path.
func (f *FileShim) Name() string {
	return f.filePath
}

// Fetch reads and decodes the file. A missing file is a fetch failure.
func (f *FileShim) Fetch(ctx context.Context) ([]domain.IOC, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}

	data, err := os.ReadFile(f.filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading feed file: %v", domain.ErrFetchFailed, err)
	}

	records, err := Decode(data, f.format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}

	slog.Debug("feed file read", "path", f.filePath, "records", len(records))
	return records, nil
}
