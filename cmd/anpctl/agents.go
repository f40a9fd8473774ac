package main

import (
	"context"
	"fmt"
	"net/http"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Inspect the agents registered on a server",
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every agent registered on the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newAPIClient(serverURL)
		var out struct {
			Agents []struct {
				DID          string
				Name         string
				Shared       bool
				Prefix       string
				PrimaryAgent bool
				Routes       int
			} `json:"agents"`
		}
		if err := c.doJSON(context.Background(), http.MethodGet, "/publisher/agents", nil, &out); err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DID\tNAME\tSHARED\tPREFIX\tPRIMARY\tROUTES")
		for _, a := range out.Agents {
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%t\t%d\n", a.DID, a.Name, a.Shared, a.Prefix, a.PrimaryAgent, a.Routes)
		}
		return w.Flush()
	},
}

func init() {
	agentsCmd.AddCommand(agentsListCmd)
}
