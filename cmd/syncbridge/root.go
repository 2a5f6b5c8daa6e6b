package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:           "syncbridge",
	Short:         "Syncbridge extracts records from external APIs and delivers them to the platform.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd, syncCmd, testConnectionCmd)
}
