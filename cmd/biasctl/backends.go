package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var backendsJSON bool

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List model backends and whether they are configured",
	Args:  cobra.NoArgs,
	RunE:  runBackends,
}

func init() {
	rootCmd.AddCommand(backendsCmd)

	backendsCmd.Flags().BoolVar(&backendsJSON, "json", false, "Print JSON instead of a table")
}

func runBackends(cmd *cobra.Command, _ []string) error {
	components, err := loadComponents(cmd)
	if err != nil {
		return err
	}
	defer components.Close()

	statuses := components.Service.Backends()
	if backendsJSON {
		return writeJSON(cmd.OutOrStdout(), statuses, true)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFAMILY\tMODEL\tCONFIGURED\tDEFAULT")
	for _, st := range statuses {
		def := ""
		switch {
		case st.Default:
			def = "default"
		case st.FamilyDefault:
			def = "family"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", st.ID, st.Family, st.Model, st.Configured, def)
	}
	return tw.Flush()
}
