package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "navmeshctl",
	Short: "build and query tiled navigation meshes",
	Long: `navmeshctl builds a tiled, layered navigation mesh from a saved
world snapshot, persists it to a binary file, and answers path and
nearest-point queries against it.`,
}

// Execute adds all child commands to the root command and executes it.
// Called once from main.main.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
