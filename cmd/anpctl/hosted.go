package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var hostedCmd = &cobra.Command{
	Use:   "hosted",
	Short: "Submit and track hosted-DID issuance requests",
}

var (
	hostedRequestDIDDocPath string
	hostedRequesterDID      string
)

var hostedRequestCmd = &cobra.Command{
	Use:   "request",
	Short: "Submit a hosted-DID issuance request",
	RunE: func(cmd *cobra.Command, args []string) error {
		var didDoc map[string]any
		if hostedRequestDIDDocPath != "" {
			data, err := os.ReadFile(hostedRequestDIDDocPath)
			if err != nil {
				return fmt.Errorf("read did document: %w", err)
			}
			if err := json.Unmarshal(data, &didDoc); err != nil {
				return fmt.Errorf("parse did document: %w", err)
			}
		}

		c := newAPIClient(serverURL)
		var out struct {
			Success                 bool   `json:"success"`
			RequestID               string `json:"requestID"`
			EstimatedProcessingTime int    `json:"estimatedProcessingTime"`
		}
		body := map[string]any{"didDocument": didDoc, "requesterDID": hostedRequesterDID}
		if err := c.doJSON(context.Background(), http.MethodPost, "/wba/hosted-did/request", body, &out); err != nil {
			return err
		}

		fmt.Printf("requestID: %s\nestimated: %ds\n", out.RequestID, out.EstimatedProcessingTime)
		return nil
	},
}

var hostedStatusCmd = &cobra.Command{
	Use:   "status <requestID>",
	Short: "Check the status of a hosted-DID issuance request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newAPIClient(serverURL)
		var out map[string]any
		if err := c.doJSON(context.Background(), http.MethodGet, "/wba/hosted-did/status/"+args[0], nil, &out); err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

var hostedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every hosted DID materialized on the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newAPIClient(serverURL)
		var out struct {
			HostedDIDs []string `json:"hostedDIDs"`
		}
		if err := c.doJSON(context.Background(), http.MethodGet, "/wba/hosted-did/list", nil, &out); err != nil {
			return err
		}
		for _, did := range out.HostedDIDs {
			fmt.Println(did)
		}
		return nil
	},
}

func init() {
	hostedRequestCmd.Flags().StringVar(&hostedRequestDIDDocPath, "did-document", "", "path to a JSON file containing the candidate DID document")
	hostedRequestCmd.Flags().StringVar(&hostedRequesterDID, "requester-did", "", "the requester's own DID")
	_ = hostedRequestCmd.MarkFlagRequired("requester-did")

	hostedCmd.AddCommand(hostedRequestCmd)
	hostedCmd.AddCommand(hostedStatusCmd)
	hostedCmd.AddCommand(hostedListCmd)
}
