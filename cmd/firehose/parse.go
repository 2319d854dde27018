package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bft-labs/firehose/internal/columns"
	"github.com/bft-labs/firehose/pkg/log"
)

func newParseCmd(c *cli) *cobra.Command {
	var fields []string

	cmd := &cobra.Command{
		Use:   "parse <input> <output>",
		Short: "Extract selected fields from an output file into CSV",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(cmd); err != nil {
				return err
			}
			if err := c.cfg.ValidateDownload(); err != nil {
				return err
			}
			logger := c.cfg.Logger()

			in, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer in.Close()

			out, err := os.Create(args[1])
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}

			stats, err := columns.Convert(in, out, columns.NewExtractor(fields...), logger)
			if err != nil {
				_ = out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return fmt.Errorf("close output: %w", err)
			}

			logger.Info("parse complete",
				log.Int("lines", stats.Lines),
				log.Int("rows", stats.Rows),
				log.Int("skipped", stats.Skipped))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&fields, "fields", columns.DefaultFields, "record fields to extract, in column order")
	return cmd
}
