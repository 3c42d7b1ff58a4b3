package main

import (
	"encoding/csv"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/qbimport/internal/core"
)

func newTemplateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "template",
		Short: "Print the CSV header row expected by run",
		// No configuration is needed to print headers.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := csv.NewWriter(cmd.OutOrStdout())
			if err := w.Write(core.Headers); err != nil {
				return err
			}
			w.Flush()
			return w.Error()
		},
	}
}
