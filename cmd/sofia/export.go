package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var (
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export expert feedback as JSON or CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := loggerFromViper()
			if err != nil {
				return err
			}
			st, err := storeFromViper()
			if err != nil {
				return err
			}
			defer st.Close()

			w := os.Stdout
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			var n int
			switch strings.ToLower(format) {
			case "json":
				n, err = st.ExportFeedbackJSON(cmd.Context(), w)
			case "csv":
				n, err = st.ExportFeedbackCSV(cmd.Context(), w)
			default:
				return fmt.Errorf("unknown format %q (want json or csv)", format)
			}
			if err != nil {
				return err
			}
			logger.Info("export_done", "format", format, "records", n, "out", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "export format: json or csv")
	cmd.Flags().StringVar(&out, "out", "", "output file (default stdout)")
	return cmd
}
