package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/cellfie-mapper/internal/pipeline"
	"github.com/inodb/cellfie-mapper/internal/rewrite"
)

func newConvertCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		inputPath       string
		outputPath      string
		inPlace         bool
		phenotypeInput  string
		phenotypeOutput string
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert an expression matrix to HGNC IDs",
		Long: `Convert a comma separated gene expression matrix into CellFie input.

The leading gene symbol of every line is replaced by its HGNC ID and the
line is written tab separated with quotes removed. The header line is
skipped. Genes outside the chosen model are dropped.

Files are written to a temporary file next to the destination and renamed
over it on success, so a failed run never leaves a partial output.`,
		Example: `  # Convert to a new file
  cellfie-mapper convert -i expression.csv -o expression.tsv

  # Rewrite in place, using a different model
  cellfie-mapper convert -i expression.csv --in-place -m MT_iHsa

  # Also drop the id column of the phenotype matrix (in place)
  cellfie-mapper convert -i expression.csv -o expression.tsv --phenotype-input pheno.csv

  # Resolve symbols missing from the model tables against HGNC
  cellfie-mapper convert -i expression.csv -o expression.tsv --resolver escalate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" {
				return &usageError{err: fmt.Errorf("--input is required")}
			}

			cfg, err := pipelineConfig()
			if err != nil {
				return err
			}
			cfg.Input = inputPath
			cfg.InPlace = inPlace
			cfg.Output = outputPath
			if inPlace && !cmd.Flags().Changed("output") {
				cfg.Output = ""
			}
			if phenotypeInput != "" {
				cfg.Phenotype = pipeline.PhenotypeConfig{
					Input:   phenotypeInput,
					Output:  phenotypeOutput,
					InPlace: phenotypeOutput == "",
				}
			}

			logger, err := newLogger(stderr)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			p := pipeline.New(cfg, logger)
			p.SetStdout(stdout)
			res, err := p.Run(cmd.Context())
			if err != nil {
				return err
			}

			logger.Debug("expression rewrite",
				zap.Int("read", res.Expression.Read),
				zap.Int("empty", res.Expression.Empty))
			fmt.Fprintf(stderr, "Converted %d genes for %s (%d dropped) in %s\n",
				res.Expression.Written, res.Model, res.Expression.Dropped, res.Duration.Round(time.Millisecond))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&inputPath, "input", "i", "", "Input expression matrix (use '-' for stdin, may be gzipped)")
	f.StringVarP(&outputPath, "output", "o", "-", "Output file (default: stdout)")
	f.BoolVar(&inPlace, "in-place", false, "Replace the input file with the converted matrix")
	f.StringVar(&phenotypeInput, "phenotype-input", "", "Phenotype matrix whose leading column is dropped")
	f.StringVar(&phenotypeOutput, "phenotype-output", "", "Phenotype output file (default: rewrite the phenotype input in place)")
	addMappingFlags(cmd)
	f.String("substitution", string(rewrite.SubstitutionField), "How the ID is written: field or first-match")
	f.String("delimiter", ",", "Input delimiter, or 'auto' to detect it")
	f.String("output-delimiter", `\t`, "Output delimiter")

	return cmd
}

// addMappingFlags registers the flags shared by commands that resolve symbols.
func addMappingFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("model", "m", pipeline.DefaultModel, "Metabolic model whose genes are kept")
	f.String("resolver", string(pipeline.ResolverStatic), "Symbol resolver: static, escalate or api")
	f.Bool("strict", false, "Fail when a remote lookup fails instead of dropping the gene")
	f.String("filter-table", "", "Model filter table CSV (default: embedded)")
	f.String("gene-table", "", "Gene nomenclature CSV (default: embedded)")
	f.String("hgnc-url", "", "HGNC REST base URL")
	f.Duration("timeout", 0, "HGNC request timeout (default 10s)")
	f.String("cache", "", "DuckDB file caching HGNC lookups (default: no cache)")
}

// pipelineConfig assembles a pipeline.Config from flags, environment and the
// config file, falling back to defaults for unset keys.
func pipelineConfig() (pipeline.Config, error) {
	cfg := pipeline.DefaultConfig()

	if viper.IsSet("model") {
		cfg.Model = viper.GetString("model")
	}
	if viper.IsSet("resolver") {
		mode, err := pipeline.ParseResolverMode(viper.GetString("resolver"))
		if err != nil {
			return cfg, err
		}
		cfg.Resolver = mode
	}
	if viper.IsSet("substitution") {
		s, err := rewrite.ParseSubstitution(viper.GetString("substitution"))
		if err != nil {
			return cfg, err
		}
		cfg.Substitution = s
	}
	if viper.IsSet("input_delimiter") {
		cfg.InputDelimiter = viper.GetString("input_delimiter")
	}
	if viper.IsSet("output_delimiter") {
		cfg.OutputDelimiter = viper.GetString("output_delimiter")
	}
	cfg.Strict = viper.GetBool("strict")

	cfg.FilterTable = viper.GetString("reference.filter_table")
	cfg.GeneTable = viper.GetString("reference.gene_table")

	if viper.IsSet("remote.base_url") && viper.GetString("remote.base_url") != "" {
		cfg.Remote.BaseURL = viper.GetString("remote.base_url")
	}
	if d := viper.GetDuration("remote.timeout"); d > 0 {
		cfg.Remote.Timeout = d
	}
	if n := viper.GetInt("remote.chunk_size"); n > 0 {
		cfg.Remote.ChunkSize = n
	}
	if r := viper.GetFloat64("remote.rate_limit"); r > 0 {
		cfg.Remote.RateLimit = r
	}
	cfg.CachePath = viper.GetString("remote.cache")

	return cfg, nil
}
