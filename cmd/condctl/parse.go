package main

import (
	"github.com/spf13/cobra"

	"condition-builder/internal/condition"
)

func newParseCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "parse <filter>",
		Short: "Parse a text filter and compile it",
		Long: `Parse a filter written as an expression, for example

    status == "active" && (id > 100 || name.startsWith("A"))

and compile the resulting condition tree.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func() error {
				b, err := flags.newBuilder()
				if err != nil {
					return err
				}
				tree, err := condition.ParseCEL(args[0], b.Schema(), flags.table)
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
