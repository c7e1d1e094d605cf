package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"taxoncore/internal/blob"
)

func (a *app) dumpsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dumps",
		Short: "Stage taxonomy dumps in the blob store",
		Long: `Stage dumps in the configured blob store so they can be referenced as
blob://<key> in TAXONCORE_LINEAGE_DUMP and TAXONCORE_MERGED_DUMP.`,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "put <local-file> [key]",
		Short: "Upload a dump; the key defaults to the file name",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := filepath.Base(args[0])
			if len(args) == 2 {
				key = args[1]
			}
			store, err := blob.Open(cmd.Context(), a.cfg.Blob.Store())
			if err != nil {
				return err
			}
			// #nosec G304 -- operator supplied dump path
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open dump: %w", err)
			}
			defer func() { _ = f.Close() }()
			info, err := store.Put(cmd.Context(), key, f, blob.PutOptions{
				ContentType: "text/plain",
				Metadata:    map[string]string{"source": filepath.Base(args[0])},
			})
			if err != nil {
				return err
			}
			a.logger.Info("dump staged", "driver", store.Driver(), "key", info.Key, "bytes", info.Size)
			fmt.Fprintf(a.stdout, "blob://%s\t%d\n", info.Key, info.Size)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list [prefix]",
		Short: "List staged dumps",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			store, err := blob.Open(cmd.Context(), a.cfg.Blob.Store())
			if err != nil {
				return err
			}
			infos, err := store.List(cmd.Context(), prefix)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tSIZE\tMODIFIED")
			for _, info := range infos {
				fmt.Fprintf(w, "%s\t%d\t%s\n", info.Key, info.Size, info.LastModified.UTC().Format(time.RFC3339))
			}
			return w.Flush()
		},
	})
	return cmd
}
