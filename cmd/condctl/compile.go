package main

import (
	"github.com/spf13/cobra"

	"condition-builder/internal/condition"
)

func newCompileCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "compile [condition.json|-]",
		Short: "Compile a JSON condition tree to SQL",
		Long: `Compile a JSON condition tree, as produced by the condition builder,
into a parameterized WHERE fragment. Reads stdin when no file is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func() error {
				b, err := flags.newBuilder()
				if err != nil {
					return err
				}
				data, err := readInput(cmd, args)
				if err != nil {
					return err
				}
				tree, err := condition.UnmarshalNode(data)
				if err != nil {
					return err
				}
				compiled, err := b.Compile(flags.table, tree)
				if err != nil {
					return err
				}
				return printCompiled(cmd.OutOrStdout(), compiled, asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full compiled condition as JSON")
	return cmd
}
