package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"condition-builder/internal/condition"
)

func newMatchCmd(flags *globalFlags) *cobra.Command {
	var recordsPath string

	cmd := &cobra.Command{
		Use:   "match [condition.json|-] --records records.json",
		Short: "Evaluate a condition against JSON records",
		Args:  cobra.MaximumNArgs(1),
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
				m, err := b.Matcher(flags.table, tree)
				if err != nil {
					return err
				}

				raw, err := afero.ReadFile(AppFs, recordsPath)
				if err != nil {
					return fmt.Errorf("read records: %w", err)
				}
				var records []map[string]any
				if err := json.Unmarshal(raw, &records); err != nil {
					return fmt.Errorf("parse records: %w", err)
				}

				w := cmd.OutOrStdout()
				matched := 0
				for i, rec := range records {
					ok, err := m.Match(rec)
					if err != nil {
						return fmt.Errorf("record %d: %w", i, err)
					}
					if ok {
						matched++
						line, _ := json.Marshal(rec)
						fmt.Fprintln(w, string(line))
					}
				}
				successColor.Fprintf(cmd.ErrOrStderr(), "%d of %d records matched\n", matched, len(records))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&recordsPath, "records", "", "JSON array of records to evaluate")
	_ = cmd.MarkFlagRequired("records")
	return cmd
}
