package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/inodb/cellfie-mapper/internal/pipeline"
)

func newLookupCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup <symbol>...",
		Short: "Print the HGNC IDs of gene symbols",
		Long: `Resolve gene symbols the way convert would and print symbol and HGNC ID
tab separated. Symbols that cannot be resolved are reported on stderr.`,
		Example: `  cellfie-mapper lookup HK1 GAPDH
  cellfie-mapper lookup --resolver escalate --model MT_iHsa TP53`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := pipelineConfig()
			if err != nil {
				return err
			}

			logger, err := newLogger(stderr)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			hits, err := pipeline.New(cfg, logger).Lookup(cmd.Context(), args)
			if err != nil {
				return err
			}

			for _, sym := range args {
				if id, ok := hits[sym]; ok {
					fmt.Fprintf(stdout, "%s\t%s\n", sym, id)
				} else {
					fmt.Fprintf(stderr, "%s: not found\n", sym)
				}
			}
			return nil
		},
	}
	addMappingFlags(cmd)
	return cmd
}
