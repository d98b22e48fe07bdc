package main

import (
	"fmt"
	"os"

	"github.com/dgallion1/docnav/internal/source"
	"github.com/spf13/cobra"
)

func newBuildCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "build [content-dir]",
		Short: "Write the structure document for a content directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.ContentDir
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				return fmt.Errorf("no content dir: pass one or set DOCNAV_CONTENT_DIR")
			}

			b := source.NewBuilder(dir,
				source.WithRoutePrefix(a.cfg.DocsPrefix),
				source.WithWorkers(a.cfg.BuildWorkers),
				source.WithBuildLogger(a.log),
			)
			data, err := b.BuildJSON(cmd.Context())
			if err != nil {
				return err
			}
			data = append(data, '\n')

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			a.log.Info("structure written", "path", output, "bytes", len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}
