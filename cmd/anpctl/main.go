package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

var serverURL string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "anpctl",
	Short: "Agent Network Protocol runtime CLI",
	Long: `anpctl is the command-line client for an anpd runtime.

It talks to a running server's public HTTP surface: submitting hosted-DID
requests, checking their status, listing the agents registered on a
domain, and calling an agent's API endpoints directly.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:9527"
		}
	},
}

func init() {
	viper.SetEnvPrefix("anpctl")
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "anpd server base URL (default http://localhost:9527)")

	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(hostedCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the anpctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("anpctl %s\n", version)
	},
}
