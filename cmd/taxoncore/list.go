package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"taxoncore/internal/core"
)

func (a *app) taxaCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "taxa", Short: "Inspect stored taxa"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored taxa",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := core.OpenTaxonStore(cmd.Context(), a.cfg.Storage)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			taxa, err := store.ListTaxa(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNCBI TAXID\tNAME\tGENUS\tFAMILY\tSUPERKINGDOM")
			for _, t := range taxa {
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\n", t.ID, t.TaxID, t.Name, t.Genus, t.Family, t.Superkingdom)
			}
			return w.Flush()
		},
	})
	return cmd
}

func (a *app) entriesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "entries", Short: "Inspect imported entries"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List imported entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := core.OpenTaxonStore(cmd.Context(), a.cfg.Storage)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			entries, err := store.ListEntries(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ACCESSION\tTAX ID\tMINIMAL\tORGANISM\tCLASSES")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%d\t%t\t%s\t%s\n", e.Accession, e.TaxonID, e.Minimal, e.OrganismName, strings.Join(e.BiosynClasses, ","))
			}
			return w.Flush()
		},
	})
	return cmd
}
