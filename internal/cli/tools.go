package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List registered tools",
	RunE:  runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	_, db, log, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()
	defer log.Close()

	defs, err := db.ListTools(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list tools: %w", err)
	}

	if len(defs) == 0 {
		fmt.Println("No tools registered.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPROVIDER\tAUTH\tVERIFIED")
	for _, def := range defs {
		auth := "-"
		if def.Authenticated() {
			auth = def.SecurityOption
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", def.ID, def.Name, def.UtilityProvider, auth, def.IsVerified)
	}
	return w.Flush()
}
