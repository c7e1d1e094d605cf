package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"taxoncore/internal/core"
	"taxoncore/internal/importer"
)

func (a *app) importCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "import <file|dir>",
		Short: "Import repository entries, resolving and storing each entry's taxon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := core.Open(cmd.Context(), a.cfg, core.Dependencies{Logger: a.logger, Metrics: a.metrics})
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			policy := importer.PolicySkip
			if strict {
				policy = importer.PolicyAbort
			}
			report, runErr := importer.New(svc, importer.WithPolicy(policy), importer.WithLogger(a.logger)).
				Run(cmd.Context(), args[0])
			enc := json.NewEncoder(a.stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "abort on the first entry whose taxid does not resolve")
	return cmd
}
