package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/qbimport/internal/core"
	"github.com/JonMunkholm/qbimport/internal/logging"
	"github.com/JonMunkholm/qbimport/internal/store"
)

type runOptions struct {
	File   string
	Output string
	Quiet  bool
	Strict bool
}

func newRunCmd(global *globalOptions) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run --file <questions.csv|questions.xlsx>",
		Short: "Import one file synchronously and print the run report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(opts.File) == "" {
				return errors.New("--file is required")
			}
			format, err := parseFormat(opts.Output)
			if err != nil {
				return err
			}

			f, err := os.Open(opts.File)
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer f.Close()

			ctx := cmd.Context()
			entities, err := store.Open(ctx, global.cfg.Store)
			if err != nil {
				return err
			}
			defer entities.Close()

			runID := uuid.NewString()
			ctx = logging.WithRunID(ctx, runID)

			var progress core.ProgressCallback
			if !opts.Quiet {
				progress = progressPrinter(cmd.ErrOrStderr())
			}

			importer := core.NewImporter(entities, nil)
			result := importer.Run(ctx, runID, filepath.Base(opts.File), f, progress)

			if err := writeReport(cmd.OutOrStdout(), result, format); err != nil {
				return err
			}

			if result.Phase == core.PhaseFailed {
				return fmt.Errorf("import failed: %s", core.FormatUserError(errors.New(result.Error)))
			}
			if opts.Strict && result.Failed > 0 {
				return fmt.Errorf("%d of %d rows failed", result.Failed, result.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "input file (.csv or .xlsx)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", string(formatText), "report format: text, json or yaml")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "do not print per-row progress")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "exit non-zero when any row fails")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
