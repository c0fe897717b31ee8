package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dumptrack-api/internal/handler"
)

var rootCmd = &cobra.Command{
	Use:   "dumptrack-api",
	Short: "Dump inventory and container tracking API",
	Long:  `dumptrack-api serves the inventory, tracking and report endpoints of the dump dashboard.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of dumptrack-api",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dumptrack-api version %s\n", handler.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
