package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vishu3131/civisync/cmd/syncctl/client"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "syncctl",
	Short: "syncctl is a CLI tool to operate the identity sync engine",
	Long:  `A command-line interface for triggering syncs and inspecting the identity synchronization engine.`,
}

// apiClient builds a client for the configured server.
func apiClient() *client.Client {
	return client.New(serverURL)
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080",
		"base URL of the sync engine API")
}
