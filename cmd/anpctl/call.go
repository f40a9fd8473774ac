package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var (
	callBodyPath  string
	callCallerDID string
)

var callCmd = &cobra.Command{
	Use:   "call <did> <subpath>",
	Short: "Call an agent's API endpoint directly",
	Long: `call POSTs a JSON body to an agent's API endpoint, the same route a
framework or peer agent would use:

  anpctl call did:wba:example.com:9527:wba:user:alice hello --body request.json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		did, subpath := args[0], args[1]

		body := map[string]any{}
		if callBodyPath != "" {
			data, err := os.ReadFile(callBodyPath)
			if err != nil {
				return fmt.Errorf("read body: %w", err)
			}
			if err := json.Unmarshal(data, &body); err != nil {
				return fmt.Errorf("parse body: %w", err)
			}
		}
		if callCallerDID != "" {
			body["callerDID"] = callCallerDID
		}

		c := newAPIClient(serverURL)
		var out map[string]any
		if err := c.doJSON(context.Background(), http.MethodPost, "/agent/api/"+did+"/"+subpath, body, &out); err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	callCmd.Flags().StringVar(&callBodyPath, "body", "", "path to a JSON file to use as the request body")
	callCmd.Flags().StringVar(&callCallerDID, "caller-did", "", "DID to present as the caller (local/dev deployments only)")
}
