package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"taxoncore/internal/core"
	"taxoncore/internal/taxonomy"
)

func (a *app) lookupCmd() *cobra.Command {
	var (
		useCache bool
		trace    bool
	)
	cmd := &cobra.Command{
		Use:   "lookup <taxid> [taxid...]",
		Short: "Print the lineage of one or more taxids as JSON",
		Long: `Resolve taxids against the lineage dump. A single taxid is resolved with one
streaming pass and no merged-id fallback. Several taxids, or --cache, load the
lineage dump into memory once and also follow merged-id redirections.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("taxid %q is not an integer", arg)
				}
				ids = append(ids, id)
			}
			deps := core.Dependencies{Logger: a.logger, Metrics: a.metrics}
			if trace {
				deps.Tracer = core.NewJSONTracer(a.stderr)
			}
			resolver, err := core.NewResolver(cmd.Context(), a.cfg, deps)
			if err != nil {
				return err
			}
			svc := core.NewService(resolver, nil, core.WithLogger(a.logger), core.WithTracer(deps.Tracer))

			var cache *taxonomy.Cache
			if useCache || len(ids) > 1 {
				cache = taxonomy.NewCache()
			}
			enc := json.NewEncoder(a.stdout)
			enc.SetIndent("", "  ")
			for _, id := range ids {
				lineage, err := svc.Resolve(cmd.Context(), id, cache)
				if err != nil {
					return err
				}
				if err := enc.Encode(lineage); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&useCache, "cache", false, "load the lineage dump once and follow merged ids")
	cmd.Flags().BoolVar(&trace, "trace", false, "write JSON trace spans to stderr")
	return cmd
}
