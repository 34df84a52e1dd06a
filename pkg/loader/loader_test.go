package loader

import "testing"

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want TableFormat
	}{
		{"obs.csv", TableFormatCSV},
		{"obs.TSV", TableFormatTSV},
		{"dir/obs.tab", TableFormatTSV},
		{"obs", TableFormatCSV},
		{"obs.txt", TableFormatCSV},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			if got := FormatFromPath(tc.path); got != tc.want {
				t.Fatalf("FormatFromPath(%q) = %q, want %q", tc.path, got, tc.want)
			}
		})
	}
}

func TestNewTableFile(t *testing.T) {
	f := NewTableFile(NewTableFileParams{ID: "abc", FilePath: "uploads/obs.tsv", IndexColumn: "cell_id"})
	if f.Format != TableFormatTSV {
		t.Fatalf("format = %q", f.Format)
	}
	if CacheKey(f) != "abc:uploads/obs.tsv" {
		t.Fatalf("cache key = %q", CacheKey(f))
	}
}
