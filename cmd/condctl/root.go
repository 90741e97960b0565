package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"condition-builder/internal/builder"
	"condition-builder/internal/condition"
	"condition-builder/internal/metadata"
)

// AppFs is swapped for an in-memory filesystem in tests.
var AppFs = afero.NewOsFs()

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
)

type globalFlags struct {
	schema    string
	table     string
	noCombine bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "condctl",
		Short:         "Compile query conditions against a table schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.schema, "schema", "schema.json", "builder seed file with databaseSchema and fieldOptions")
	root.PersistentFlags().StringVar(&flags.table, "table", "", "table the condition applies to")
	root.PersistentFlags().BoolVar(&flags.noCombine, "no-combine", false, "reject AND/OR groups")

	root.AddCommand(newCompileCmd(flags))
	root.AddCommand(newParseCmd(flags))
	root.AddCommand(newMatchCmd(flags))
	return root
}

// run executes fn and reports its error in color on stderr.
func run(cmd *cobra.Command, fn func() error) error {
	if err := fn(); err != nil {
		errorColor.Fprintf(cmd.ErrOrStderr(), "✗ %v\n", err)
		return err
	}
	return nil
}

func (f *globalFlags) newBuilder() (*builder.Builder, error) {
	if f.table == "" {
		return nil, fmt.Errorf("--table is required")
	}
	seed, err := metadata.LoadFile(AppFs, f.schema)
	if err != nil {
		return nil, err
	}
	return builder.New(builder.Config{
		Schema:                   seed.DatabaseSchema,
		FieldOptions:             seed.FieldOptions,
		AllowCombiningConditions: !f.noCombine,
	})
}

// readInput returns the named file, or stdin for "" and "-".
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := afero.ReadFile(AppFs, args[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", args[0], err)
	}
	return data, nil
}

func printCompiled(w io.Writer, compiled *condition.Compiled, asJSON bool) error {
	if asJSON {
		out, err := json.MarshalIndent(compiled, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(out))
		return nil
	}
	successColor.Fprint(w, "SQL:    ")
	fmt.Fprintln(w, compiled.SQL)
	params, err := json.Marshal(compiled.Params)
	if err != nil {
		return err
	}
	infoColor.Fprint(w, "Params: ")
	fmt.Fprintln(w, string(params))
	infoColor.Fprint(w, "JSON:   ")
	fmt.Fprintln(w, string(compiled.JSON))
	return nil
}
