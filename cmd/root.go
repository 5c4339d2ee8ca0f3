/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	portFlag    int
	envFileFlag string
)

// rootCmd runs the API server; there are no subcommands.
var rootCmd = &cobra.Command{
	Use:   "resumeapi",
	Short: "Runs the resume API server",
	Long: `Runs the resume API server. Configuration is read from the environment
and, optionally, from an env file. Usage:

	resumeapi --port 8080 --env-file .env
`,
	SilenceUsage: true,
	RunE:         runServer,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "port to listen on (overrides SERVER_PORT)")
	rootCmd.Flags().StringVar(&envFileFlag, "env-file", "", "env file to load before reading the environment")
}
