package loader

import (
	"context"
	"path/filepath"
	"strings"
)

type TableFormat string

const (
	TableFormatCSV TableFormat = "csv"
	TableFormatTSV TableFormat = "tsv"
)

// TableFile is an uploaded cell metadata table. The raw bytes are fetched
// through the associated TableFileLoader.
//
// IndexColumn names the header of the cell id column; when empty the first
// column is used.
type TableFile struct {
	ID          string
	FilePath    string
	Format      TableFormat
	IndexColumn string
	Loader      TableFileLoader
}

// NewTableFileParams defines the input parameters for creating a new
// TableFile.
type NewTableFileParams struct {
	ID          string
	FilePath    string
	IndexColumn string
	Loader      TableFileLoader
}

// NewTableFile creates a TableFile, deriving its format from the file
// extension. Unknown extensions are treated as CSV.
func NewTableFile(params NewTableFileParams) TableFile {
	return TableFile{
		ID:          params.ID,
		FilePath:    params.FilePath,
		Format:      FormatFromPath(params.FilePath),
		IndexColumn: params.IndexColumn,
		Loader:      params.Loader,
	}
}

// GetBytes retrieves the raw file content using its Loader.
//
// Example:
//
//	data, err := file.GetBytes(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
func (f *TableFile) GetBytes(ctx context.Context) ([]byte, error) {
	return f.Loader.GetFileBytes(ctx, *f)
}

// TableFileLoader loads the contents of a TableFile. Implementations may load
// files from disk, object storage, or other sources.
type TableFileLoader interface {
	GetFileBytes(ctx context.Context, file TableFile) ([]byte, error)
}

// FormatFromPath maps .tsv and .tab files to TableFormatTSV and everything
// else to TableFormatCSV.
func FormatFromPath(path string) TableFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".tab":
		return TableFormatTSV
	default:
		return TableFormatCSV
	}
}

// CacheKey identifies a file in loader caches.
func CacheKey(file TableFile) string {
	return file.ID + ":" + file.FilePath
}
