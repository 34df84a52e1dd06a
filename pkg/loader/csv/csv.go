package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/cellannotation/cas/pkg/loader"
	"github.com/cellannotation/cas/pkg/obs"

	"golang.org/x/sync/singleflight"
)

var (
	ErrEmptyTable   = errors.New("table is empty or contains no valid data")
	ErrIndexColumn  = errors.New("index column not found")
	ErrDuplicateCol = errors.New("duplicate column header")
	ErrRowWidth     = errors.New("row has more fields than the header")
)

// CSVTableLoader loads uploaded cell metadata files and parses them into
// obs tables.
type CSVTableLoader struct {
	loader loader.TableFileLoader

	cache   map[string]*obs.Table
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewCSVTableLoader creates a new CSVTableLoader reading raw bytes through
// the given loader.
func NewCSVTableLoader(loader loader.TableFileLoader) *CSVTableLoader {
	return &CSVTableLoader{
		loader: loader,
		cache:  make(map[string]*obs.Table),
	}
}

// GetTable retrieves and parses the file. Parsed tables are cached and must
// be treated as read-only.
func (l *CSVTableLoader) GetTable(ctx context.Context, file loader.TableFile) (*obs.Table, error) {
	key := loader.CacheKey(file)

	l.cacheMu.RLock()
	if cached, ok := l.cache[key]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(key, func() (any, error) {
		content, err := l.loader.GetFileBytes(ctx, file)
		if err != nil {
			return nil, err
		}

		table, err := ParseTable(content, Delimiter(file.Format, content), file.IndexColumn)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file.FilePath, err)
		}

		l.cacheMu.Lock()
		l.cache[key] = table
		l.cacheMu.Unlock()

		return table, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*obs.Table), nil
}

// Delimiter picks the field separator. TSV files always use tabs; for
// anything else a header line with tabs but no commas is read as TSV too.
func Delimiter(format loader.TableFormat, content []byte) rune {
	if format == loader.TableFormatTSV {
		return '\t'
	}
	header, _, _ := bytes.Cut(content, []byte("\n"))
	if bytes.IndexByte(header, '\t') >= 0 && bytes.IndexByte(header, ',') < 0 {
		return '\t'
	}
	return ','
}

// ParseTable reads a delimited table with a header row. The column named
// indexColumn, or the first column when indexColumn is empty, holds the cell
// ids; every other column becomes a table column. Blank lines are skipped
// and short rows are padded with empty values.
func ParseTable(content []byte, delimiter rune, indexColumn string) (*obs.Table, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyTable
	}
	if err != nil {
		return nil, err
	}

	indexPos := 0
	if indexColumn != "" {
		indexPos = -1
		for i, name := range header {
			if strings.TrimSpace(name) == indexColumn {
				indexPos = i
				break
			}
		}
		if indexPos < 0 {
			return nil, fmt.Errorf("%w: %q", ErrIndexColumn, indexColumn)
		}
	}

	seen := make(map[string]struct{}, len(header))
	for _, name := range header {
		name = strings.TrimSpace(name)
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateCol, name)
		}
		seen[name] = struct{}{}
	}

	var index []string
	columns := make([][]string, len(header))

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if blank(record) {
			continue
		}

		if len(record) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d has %d fields, header has %d", ErrRowWidth, line, len(record), len(header))
		}
		for len(record) < len(header) {
			record = append(record, "")
		}

		index = append(index, strings.TrimSpace(record[indexPos]))
		for i := range header {
			columns[i] = append(columns[i], record[i])
		}
	}

	if len(index) == 0 {
		return nil, ErrEmptyTable
	}

	table, err := obs.NewTable(index)
	if err != nil {
		return nil, err
	}
	for i, name := range header {
		if i == indexPos {
			continue
		}
		if err := table.AddColumn(strings.TrimSpace(name), columns[i]); err != nil {
			return nil, err
		}
	}

	return table, nil
}

// WriteTable writes the table as CSV with the cell ids in the first column,
// headed by indexName.
func WriteTable(w io.Writer, table *obs.Table, indexName string) error {
	cw := csv.NewWriter(w)

	names := table.Columns()
	columns := make([][]string, len(names))
	for i, name := range names {
		col, err := table.Column(name)
		if err != nil {
			return err
		}
		columns[i] = col
	}

	if err := cw.Write(append([]string{indexName}, names...)); err != nil {
		return err
	}

	row := make([]string, len(names)+1)
	for r, id := range table.CellIDs() {
		row[0] = id
		for i, col := range columns {
			row[i+1] = col[r]
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func blank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
