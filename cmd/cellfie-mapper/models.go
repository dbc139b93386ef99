package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/cellfie-mapper/internal/mapper"
	"github.com/inodb/cellfie-mapper/internal/pipeline"
	"github.com/inodb/cellfie-mapper/internal/reference"
)

func newModelsCmd(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the metabolic models in the filter table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := reference.LoadFiles(
				viper.GetString("reference.filter_table"),
				viper.GetString("reference.gene_table"))
			if err != nil {
				return err
			}

			def := mapper.StripModelSuffix(pipeline.DefaultModel)
			if viper.IsSet("model") {
				def = mapper.StripModelSuffix(viper.GetString("model"))
			}

			green := color.New(color.FgGreen)
			for _, m := range tables.Models() {
				set, err := mapper.ResolveFilter(m, tables.FilterHeader, tables.FilterRows)
				if err != nil {
					return err
				}
				if m == def {
					fmt.Fprintf(stdout, "%s %s\t%d genes %s\n", green.Sprint("*"), m, set.Len(), green.Sprint("(default)"))
					continue
				}
				fmt.Fprintf(stdout, "  %s\t%d genes\n", m, set.Len())
			}
			return nil
		},
	}
	cmd.Flags().String("filter-table", "", "Model filter table CSV (default: embedded)")
	cmd.Flags().String("gene-table", "", "Gene nomenclature CSV (default: embedded)")
	return cmd
}
