package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cellannotation/cas/pkg/common"
)

const obsCSV = `cell_id,Class,Cluster,cell_type_ontology_term_id,cell_type
c1,Neuron,IT_1,CL:0000540,neuron
c2,Neuron,IT_1,CL:0000540,neuron
c3,Neuron,Sst_1,CL:4023017,sst interneuron
c4,Glia,,CL:0000125,glial cell
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := New()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestBuildCommand(t *testing.T) {
	table := writeFile(t, "obs.csv", obsCSV)

	out, err := run(t, "build", table, "--labelsets", "Class,Cluster", "--id", "brain", "--namespace", "BRAIN", "--title", "Brain")
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	var tax common.Taxonomy
	if err := json.Unmarshal([]byte(out), &tax); err != nil {
		t.Fatalf("Unmarshal: %v\n%s", err, out)
	}
	if tax.ID != "CAS:brain" || tax.Title != "Brain" {
		t.Fatalf("id/title = %q/%q", tax.ID, tax.Title)
	}
	if len(tax.Labelsets) != 2 || tax.Labelsets[1].ID != "BRAIN:Cluster" || tax.Labelsets[1].Rank != 0 {
		t.Fatalf("labelsets = %+v", tax.Labelsets)
	}
	if len(tax.Annotations) != 4 {
		t.Fatalf("got %d annotations, want 4", len(tax.Annotations))
	}
}

func TestBuildCommandWritesFile(t *testing.T) {
	table := writeFile(t, "obs.tsv", strings.ReplaceAll(obsCSV, ",", "\t"))
	output := filepath.Join(t.TempDir(), "out.json")

	out, err := run(t, "build", table, "--labelsets", "Class", "-o", output)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if out != "" {
		t.Fatalf("unexpected stdout: %s", out)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), `"cell_label": "Glia"`) {
		t.Fatalf("document missing Glia:\n%s", data)
	}
}

func TestBuildCommandErrors(t *testing.T) {
	table := writeFile(t, "obs.csv", obsCSV)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no labelsets", []string{"build", table}, "labelset"},
		{"unknown labelset", []string{"build", table, "--labelsets", "Subclass"}, "Subclass"},
		{"missing table", []string{"build", filepath.Join(t.TempDir(), "none.csv"), "--labelsets", "Class"}, "loading table"},
		{"no table argument", []string{"build", "--labelsets", "Class"}, "arg"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := run(t, tc.args...)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error = %v, want containing %q", err, tc.want)
			}
		})
	}
}

func TestFlattenCommand(t *testing.T) {
	table := writeFile(t, "obs.csv", obsCSV)
	doc, err := run(t, "build", table, "--labelsets", "Class,Cluster")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	docPath := writeFile(t, "tax.json", doc)

	out, err := run(t, "flatten", table, "--taxonomy", docPath)
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "cell_id,") || !strings.Contains(lines[0], "Class--cell_label") {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.Contains(lines[4], "Glia") || strings.Contains(lines[4], "IT_1") {
		t.Fatalf("c4 row = %q", lines[4])
	}
}

func TestFlattenCommandRequiresTaxonomy(t *testing.T) {
	table := writeFile(t, "obs.csv", obsCSV)
	if _, err := run(t, "flatten", table); err == nil {
		t.Fatal("expected error without --taxonomy")
	}
}

func TestSchemaCommand(t *testing.T) {
	out, err := run(t, "schema")
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if !strings.Contains(out, "cell_set_accession") {
		t.Fatalf("annotation schema missing cell_set_accession:\n%s", out)
	}

	out, err = run(t, "schema", "--document")
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if !strings.Contains(out, "labelsets") {
		t.Fatalf("document schema missing labelsets:\n%s", out)
	}
}

func TestParseS3Ref(t *testing.T) {
	tests := []struct {
		ref    string
		bucket string
		key    string
		ok     bool
	}{
		{"s3://atlas/brain/obs.csv", "atlas", "brain/obs.csv", true},
		{"s3://atlas", "", "", false},
		{"s3:///obs.csv", "", "", false},
		{"./obs.csv", "", "", false},
	}

	for _, tc := range tests {
		bucket, key, ok := parseS3Ref(tc.ref)
		if bucket != tc.bucket || key != tc.key || ok != tc.ok {
			t.Fatalf("parseS3Ref(%q) = %q, %q, %v", tc.ref, bucket, key, ok)
		}
	}
}
