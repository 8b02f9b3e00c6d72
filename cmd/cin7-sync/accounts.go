package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newAccountsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List configured accounts and whether their secrets are set",
		RunE: func(cmd *cobra.Command, _ []string) error {
			names := a.cfg.Names()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ACCOUNT\tDISPLAY\tSECRET ENV\tSECRET")
			for _, acct := range a.cfg.Accounts {
				state := "missing"
				if os.Getenv(acct.SecretEnv()) != "" {
					state = "set"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", acct.Name, names.Display(acct.Name), acct.SecretEnv(), state)
			}
			return w.Flush()
		},
	}
}
