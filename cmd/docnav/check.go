package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dgallion1/docnav/internal/query"
	"github.com/dgallion1/docnav/internal/schema"
	"github.com/dgallion1/docnav/internal/sorter"
	"github.com/spf13/cobra"
)

func newCheckCmd(a *app) *cobra.Command {
	var printSorted bool
	cmd := &cobra.Command{
		Use:   "check <file|->",
		Short: "Validate a structure document and report every violation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			nodes, err := schema.Decode(data)
			var verr *schema.ValidationError
			if errors.As(err, &verr) {
				for _, v := range verr.Violations {
					fmt.Fprintln(cmd.ErrOrStderr(), v.String())
				}
				return fmt.Errorf("%s: %d violation(s)", args[0], len(verr.Violations))
			}
			if err != nil {
				return err
			}

			sorted := sorter.Sort(nodes)
			if printSorted {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sorted)
			}
			snap := query.New(sorted, query.WithPrefix(a.cfg.DocsPrefix))
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d nodes, %d files\n", snap.Len(), len(snap.AllFiles()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&printSorted, "print", false, "print the sorted tree instead of a summary")
	return cmd
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}
