package csv

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/cellannotation/cas/pkg/loader"
	"github.com/cellannotation/cas/pkg/obs"
)

func TestParseTable(t *testing.T) {
	content := []byte("\xef\xbb\xbfcell_id,Class,Cluster\n" +
		"c1,Neuron,\"IT, L2\"\n" +
		"\n" +
		"c2,Neuron\n" +
		" c3 ,Glia,Astro\n")

	table, err := ParseTable(content, ',', "")
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}

	if got := table.CellIDs(); !reflect.DeepEqual(got, []string{"c1", "c2", "c3"}) {
		t.Fatalf("cell ids = %v", got)
	}
	if got := table.Columns(); !reflect.DeepEqual(got, []string{"Class", "Cluster"}) {
		t.Fatalf("columns = %v", got)
	}
	cluster, _ := table.Column("Cluster")
	if !reflect.DeepEqual(cluster, []string{"IT, L2", "", "Astro"}) {
		t.Fatalf("Cluster = %q", cluster)
	}
}

func TestParseTableIndexColumn(t *testing.T) {
	content := []byte("Class\tbarcode\nNeuron\tAAAC\nGlia\tAAAG\n")

	table, err := ParseTable(content, '\t', "barcode")
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}
	if got := table.CellIDs(); !reflect.DeepEqual(got, []string{"AAAC", "AAAG"}) {
		t.Fatalf("cell ids = %v", got)
	}
	if _, err := table.Column("barcode"); !errors.Is(err, obs.ErrColumnNotFound) {
		t.Fatalf("index column kept as data column: %v", err)
	}
}

func TestParseTableErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		index   string
		wantErr error
	}{
		{"empty", "", "", ErrEmptyTable},
		{"header only", "cell_id,Class\n", "", ErrEmptyTable},
		{"missing index", "cell_id,Class\nc1,A\n", "barcode", ErrIndexColumn},
		{"duplicate header", "cell_id,Class,Class\nc1,A,B\n", "", ErrDuplicateCol},
		{"duplicate cell", "cell_id,Class\nc1,A\nc1,B\n", "", obs.ErrDuplicateCell},
		{"extra fields", "cell_id,Class\nc1,A\nc2,B,extra\n", "", ErrRowWidth},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseTable([]byte(tc.content), ',', tc.index)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestParseTableRowWidthNamesLine(t *testing.T) {
	_, err := ParseTable([]byte("cell_id,Class\nc1,A\n\nc2,B,extra\n"), ',', "")
	if !errors.Is(err, ErrRowWidth) {
		t.Fatalf("expected ErrRowWidth, got %v", err)
	}
	if !strings.Contains(err.Error(), "line 4") {
		t.Fatalf("error does not name the line: %v", err)
	}
}

func TestParseTableShortRowsArePadded(t *testing.T) {
	table, err := ParseTable([]byte("cell_id,Class,Cluster\nc1,A\n"), ',', "")
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}
	col, _ := table.Column("Cluster")
	if len(col) != 1 || col[0] != "" {
		t.Fatalf("Cluster = %q", col)
	}
}

func TestDelimiter(t *testing.T) {
	tests := []struct {
		name    string
		format  loader.TableFormat
		content string
		want    rune
	}{
		{"csv", loader.TableFormatCSV, "a,b\n1,2\n", ','},
		{"tsv format", loader.TableFormatTSV, "a,b\n", '\t'},
		{"sniffed tabs", loader.TableFormatCSV, "a\tb\n1\t2\n", '\t'},
		{"mixed header", loader.TableFormatCSV, "a\tb,c\n", ','},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Delimiter(tc.format, []byte(tc.content)); got != tc.want {
				t.Fatalf("Delimiter = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestWriteTable(t *testing.T) {
	table, err := obs.NewTable([]string{"c1", "c2"})
	if err != nil {
		t.Fatal(err)
	}
	if err := table.AddColumn("Class--cell_label", []string{"Neuron", ""}); err != nil {
		t.Fatal(err)
	}
	if err := table.AddColumn("Class--cell_fullname", []string{"Neuron, cortical", ""}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteTable(&buf, table, "cell_id"); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}

	want := "cell_id,Class--cell_label,Class--cell_fullname\n" +
		"c1,Neuron,\"Neuron, cortical\"\n" +
		"c2,,\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

type countingLoader struct {
	calls   atomic.Int32
	content []byte
}

func (c *countingLoader) GetFileBytes(ctx context.Context, file loader.TableFile) ([]byte, error) {
	c.calls.Add(1)
	return c.content, nil
}

func TestCSVTableLoaderCaches(t *testing.T) {
	raw := &countingLoader{content: []byte("cell_id\tClass\nc1\tNeuron\n")}
	l := NewCSVTableLoader(raw)
	file := loader.NewTableFile(loader.NewTableFileParams{ID: "f1", FilePath: "obs.tsv", Loader: raw})

	for i := 0; i < 3; i++ {
		table, err := l.GetTable(context.Background(), file)
		if err != nil {
			t.Fatalf("GetTable: %v", err)
		}
		if table.Len() != 1 {
			t.Fatalf("rows = %d", table.Len())
		}
	}
	if n := raw.calls.Load(); n != 1 {
		t.Fatalf("underlying loader called %d times, want 1", n)
	}
}
