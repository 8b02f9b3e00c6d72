package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/Sternrassler/cin7-report-sync/pkg/report"
	"github.com/spf13/cobra"
)

func newVariantsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "variants",
		Short: "List the report variants",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tRESOURCE\tDATE FIELD\tFILE PREFIX\tDESCRIPTION")
			for _, v := range report.Variants() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", v.Name, v.Resource, v.DateField, v.FilePrefix, v.Description)
			}
			return w.Flush()
		},
	}
}
