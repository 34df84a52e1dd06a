// Package cli implements the cas command line tool. It runs the taxonomy
// pipeline over local or S3 hosted tables without the server.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cellannotation/cas/internal/metrics"
	"github.com/cellannotation/cas/internal/util"
	"github.com/cellannotation/cas/pkg/accession"
	"github.com/cellannotation/cas/pkg/common"
	"github.com/cellannotation/cas/pkg/loader"
	"github.com/cellannotation/cas/pkg/loader/csv"
	ioloader "github.com/cellannotation/cas/pkg/loader/io"
	s3loader "github.com/cellannotation/cas/pkg/loader/s3"
	"github.com/cellannotation/cas/pkg/logger"
	"github.com/cellannotation/cas/pkg/logger/console"
	"github.com/cellannotation/cas/pkg/obs"
	"github.com/cellannotation/cas/pkg/taxonomy"

	"github.com/spf13/cobra"
)

const (
	FlagDebug      = "debug"
	FlagLabelsets  = "labelsets"
	FlagIndex      = "index"
	FlagOutput     = "output"
	FlagNamespace  = "namespace"
	FlagID         = "id"
	FlagTitle      = "title"
	FlagStrict     = "strict-ontology"
	FlagParallel   = "parallel"
	FlagDigestSize = "digest-size"
	FlagTaxonomy   = "taxonomy"
	FlagDocument   = "document"
)

// New creates the root command.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cas",
		Short: "Build cell annotation taxonomies from cell metadata tables",
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			debug, _ := cmd.Flags().GetBool(FlagDebug)
			logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
				Debug:  debug || util.GetEnvBool("DEBUG", false),
				Writer: cmd.ErrOrStderr(),
			}))
		},
		SilenceUsage:      true,
		DisableAutoGenTag: true,
	}
	cmd.PersistentFlags().Bool(FlagDebug, false, "enable debug logging")

	cmd.AddCommand(newBuildCmd(), newFlattenCmd(), newSchemaCmd())
	return cmd
}

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build {table}",
		Short: "Build a taxonomy document from a CSV or TSV table",
		Long: `Build a taxonomy document from a CSV or TSV table.

The table holds one row per cell. Labelsets name the annotation columns and
must be listed from the coarsest to the finest. Tables may be local paths or
s3://bucket/key references.`,
		Example: strings.TrimSpace(`
cas build obs.csv --labelsets Class,Subclass,Cluster
cas build s3://atlas/brain/obs.tsv --labelsets Class,Cluster --index barcode -o brain.json
`),
		Args: cobra.ExactArgs(1),
		RunE: runBuild,
	}

	cmd.Flags().StringSlice(FlagLabelsets, util.GetEnvList("CAS_LABELSETS", nil), "labelset columns from coarsest to finest")
	cmd.Flags().String(FlagIndex, "", "name of the cell id column (default: first column)")
	cmd.Flags().StringP(FlagOutput, "o", "", "write the document to this file instead of stdout")
	cmd.Flags().String(FlagNamespace, "", "namespace used for labelset ids")
	cmd.Flags().String(FlagID, "", "ontology id of the taxonomy, stored as CAS:<id>")
	cmd.Flags().String(FlagTitle, "", "title of the taxonomy")
	cmd.Flags().Bool(FlagStrict, util.GetEnvBool("CAS_STRICT_ONTOLOGY", false), "fail when rows sharing a label disagree on the ontology term")
	cmd.Flags().Int(FlagParallel, util.GetEnvInt("CAS_PARALLEL_LABELSETS", 4), "labelsets grouped concurrently")
	cmd.Flags().Int(FlagDigestSize, util.GetEnvInt("CAS_ACCESSION_DIGEST", accession.DefaultDigestSize), "accession digest size in bytes")

	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	labelsets, err := cmd.Flags().GetStringSlice(FlagLabelsets)
	if err != nil {
		return fmt.Errorf("getting labelsets flag failed: %w", err)
	}
	if len(labelsets) == 0 {
		return fmt.Errorf("at least one labelset is required")
	}
	index, _ := cmd.Flags().GetString(FlagIndex)
	strict, _ := cmd.Flags().GetBool(FlagStrict)
	parallel, _ := cmd.Flags().GetInt(FlagParallel)
	digest, _ := cmd.Flags().GetInt(FlagDigestSize)
	namespace, _ := cmd.Flags().GetString(FlagNamespace)
	id, _ := cmd.Flags().GetString(FlagID)
	title, _ := cmd.Flags().GetString(FlagTitle)

	ctx := cmd.Context()
	table, err := loadTable(ctx, args[0], index)
	if err != nil {
		return err
	}

	client := taxonomy.NewClient(taxonomy.NewClientParams{
		Accession:          accession.NewCachedHashFactory(digest),
		OntologyIDColumn:   util.GetEnv("CAS_ONTOLOGY_ID_COLUMN"),
		OntologyTermColumn: util.GetEnv("CAS_ONTOLOGY_TERM_COLUMN"),
		StrictOntology:     strict,
		ParallelLabelsets:  parallel,
	})

	start := time.Now()
	tax, err := client.Build(ctx, table, labelsets)
	if err != nil {
		metrics.ObserveBuild("cli", "failed", time.Since(start).Seconds(), 0)
		return err
	}
	metrics.ObserveBuild("cli", "success", time.Since(start).Seconds(), len(tax.Annotations))

	tax.Title = title
	if id != "" {
		taxonomy.PopulateIDs(tax, namespace, id)
	}

	return writeOutput(cmd, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tax)
	})
}

func newFlattenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flatten {table}",
		Short: "Project a taxonomy document back onto the cells of a table",
		Long: `Project a taxonomy document back onto the cells of a table.

Every annotation field except cell_ids becomes a column named
<labelset>--<field>. Cells outside an annotation get empty values.`,
		Example: strings.TrimSpace(`
cas flatten obs.csv --taxonomy brain.json -o cells.csv
`),
		Args: cobra.ExactArgs(1),
		RunE: runFlatten,
	}

	cmd.Flags().String(FlagTaxonomy, "", "taxonomy document produced by build")
	cmd.Flags().String(FlagIndex, "", "name of the cell id column (default: first column)")
	cmd.Flags().StringP(FlagOutput, "o", "", "write the CSV to this file instead of stdout")
	_ = cmd.MarkFlagRequired(FlagTaxonomy)

	return cmd
}

func runFlatten(cmd *cobra.Command, args []string) error {
	docPath, _ := cmd.Flags().GetString(FlagTaxonomy)
	index, _ := cmd.Flags().GetString(FlagIndex)

	data, err := os.ReadFile(docPath)
	if err != nil {
		return fmt.Errorf("reading taxonomy: %w", err)
	}
	var tax common.Taxonomy
	if err := json.Unmarshal(data, &tax); err != nil {
		return fmt.Errorf("decoding taxonomy: %w", err)
	}

	table, err := loadTable(cmd.Context(), args[0], index)
	if err != nil {
		return err
	}

	flat, err := taxonomy.Flatten(table.CellIDs(), tax.Annotations)
	if err != nil {
		return err
	}

	indexName := index
	if indexName == "" {
		indexName = "cell_id"
	}
	return writeOutput(cmd, func(w io.Writer) error {
		return csv.WriteTable(w, flat, indexName)
	})
}

func newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of annotation records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			document, _ := cmd.Flags().GetBool(FlagDocument)
			schema := taxonomy.AnnotationSchema()
			if document {
				schema = taxonomy.DocumentSchema()
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(schema)
		},
	}
	cmd.Flags().Bool(FlagDocument, false, "print the schema of the whole taxonomy document")
	return cmd
}

// loadTable reads a local path or s3://bucket/key reference.
func loadTable(ctx context.Context, ref, index string) (*obs.Table, error) {
	var (
		src  loader.TableFileLoader
		path = ref
	)

	if bucket, key, ok := parseS3Ref(ref); ok {
		s3, err := s3loader.NewS3TableFileLoader(ctx, s3loader.NewS3TableFileLoaderParams{
			Bucket:    bucket,
			Endpoint:  util.GetEnv("AWS_ENDPOINT"),
			Region:    util.GetEnvString("AWS_REGION", "us-east-1"),
			AccessKey: util.GetEnv("AWS_ACCESS_KEY"),
			SecretKey: util.GetEnv("AWS_SECRET_KEY"),
		})
		if err != nil {
			return nil, fmt.Errorf("creating s3 loader: %w", err)
		}
		src, path = s3, key
	} else {
		src = ioloader.NewIOTableFileLoader()
	}

	file := loader.NewTableFile(loader.NewTableFileParams{
		ID:          ref,
		FilePath:    path,
		IndexColumn: index,
		Loader:      src,
	})
	table, err := csv.NewCSVTableLoader(src).GetTable(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("loading table %s: %w", ref, err)
	}
	logger.Debug("[CLI] Loaded table", "path", ref, "cells", table.Len(), "columns", len(table.Columns()))
	return table, nil
}

func parseS3Ref(ref string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(ref, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

func writeOutput(cmd *cobra.Command, write func(io.Writer) error) error {
	path, _ := cmd.Flags().GetString(FlagOutput)
	if path == "" {
		return write(cmd.OutOrStdout())
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
