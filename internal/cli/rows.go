package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuongbtq/employee-ingest/internal/ingest"
)

func countRowsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count-rows <file>",
		Short: "Print the number of data rows in a CSV file",
		Long: `Print the number of data rows in a CSV file, excluding the header.

This is the same pre-pass the worker runs to compute progress percentages.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			total, err := ingest.CountRows(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), total)
			return nil
		},
	}
}

func validateCmd() *cobra.Command {
	var maxErrors int

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a CSV file without importing it",
		Long: `Check a CSV file without importing it.

Every row is decoded and validated the way the worker would. Decoding stops at
the first malformed row; field validation errors are listed per line.

Examples:
  employeectl validate employees.csv
  employeectl validate employees.csv --max-errors 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0], maxErrors)
		},
	}

	cmd.Flags().IntVar(&maxErrors, "max-errors", 20, "stop listing invalid rows after this many (0 lists all)")

	return cmd
}

func runValidate(cmd *cobra.Command, path string, maxErrors int) error {
	f, err := os.Open(path)
	if err != nil {
		return &ingest.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	out := cmd.OutOrStdout()
	parser := ingest.NewParser(f)

	var rows, invalid int
	for {
		record, err := parser.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to decode %s after %d rows: %w", path, rows, err)
		}

		rows++
		if _, err := record.ToInput(); err != nil {
			invalid++
			if maxErrors == 0 || invalid <= maxErrors {
				fmt.Fprintln(out, err)
			}
		}
	}

	fmt.Fprintf(out, "rows=%d valid=%d invalid=%d\n", rows, rows-invalid, invalid)
	if invalid > 0 {
		return fmt.Errorf("%d of %d rows are invalid", invalid, rows)
	}
	return nil
}
