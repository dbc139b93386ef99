// Package main provides the cellfie-mapper command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/cellfie-mapper/internal/mapper"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	configName = ".cellfie-mapper"
	envPrefix  = "CELLFIE_MAPPER"
)

// flagKeys binds command flags to configuration keys, so a flag given on the
// command line overrides the config file and environment.
var flagKeys = map[string]string{
	"model":            "model",
	"resolver":         "resolver",
	"substitution":     "substitution",
	"strict":           "strict",
	"delimiter":        "input_delimiter",
	"output-delimiter": "output_delimiter",
	"filter-table":     "reference.filter_table",
	"gene-table":       "reference.gene_table",
	"hgnc-url":         "remote.base_url",
	"timeout":          "remote.timeout",
	"cache":            "remote.cache",
}

// usageError marks errors caused by how the command was invoked.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	viper.Reset()

	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		printError(stderr, err)
		var ue *usageError
		if errors.As(err, &ue) || mapper.IsKind(err, mapper.KindConfig) {
			return ExitUsage
		}
		return ExitError
	}
	return ExitSuccess
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		cfgFile string
		verbose bool
	)

	root := &cobra.Command{
		Use:   "cellfie-mapper",
		Short: "Convert ImmuneSpace gene matrices for CellFie",
		Long: `cellfie-mapper rewrites gene expression matrices exported from ImmuneSpace
into the HGNC ID keyed, tab separated format read by CellFie. Gene symbols
are mapped through the gene list of a metabolic model and, optionally, the
HGNC REST service.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(cfgFile); err != nil {
				return err
			}
			for name, key := range flagKeys {
				if f := cmd.Flags().Lookup(name); f != nil {
					if err := viper.BindPFlag(key, f); err != nil {
						return fmt.Errorf("binding flag %s: %w", name, err)
					}
				}
			}
			if verbose {
				viper.Set("log.level", "debug")
			}
			return nil
		},
	}
	root.SetVersionTemplate("cellfie-mapper version {{.Version}}\n")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/.cellfie-mapper.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newConvertCmd(stdout, stderr))
	root.AddCommand(newModelsCmd(stdout))
	root.AddCommand(newLookupCmd(stdout, stderr))
	root.AddCommand(newConfigCmd(stdout))

	return root
}

// initConfig reads the config file and environment. A missing default config
// file is not an error.
func initConfig(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return mapper.E(mapper.KindConfig, "read config", err)
	}
	return nil
}

// configPath returns the file config set writes to.
func configPath() (string, error) {
	if f := viper.ConfigFileUsed(); f != "" {
		return f, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, configName+".yaml"), nil
}

// newLogger builds a console logger on w at the configured level.
func newLogger(w io.Writer) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if s := viper.GetString("log.level"); s != "" {
		if err := level.UnmarshalText([]byte(s)); err != nil {
			return nil, mapper.Errorf(mapper.KindConfig, "parse log level", "invalid log level %q", s)
		}
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core), nil
}

func printError(w io.Writer, err error) {
	red := color.New(color.FgRed, color.Bold)
	fmt.Fprintf(w, "%s %v\n", red.Sprint("Error:"), err)

	switch {
	case mapper.IsKind(err, mapper.KindConfig):
		fmt.Fprintf(w, "Hint: run 'cellfie-mapper models' to list models, or 'cellfie-mapper --help' for usage\n")
	case mapper.IsKind(err, mapper.KindNetwork):
		fmt.Fprintf(w, "Hint: check network access to the HGNC REST service, or use --resolver static\n")
	}
}
