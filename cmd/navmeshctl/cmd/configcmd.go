package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// configCmd writes a build settings file prefilled with defaults.
var configCmd = &cobra.Command{
	Use:   "config FILE",
	Short: "create a build settings file",
	Long: `Create a build settings file in YAML format, prefilled with
build.DefaultConfig() values.

If FILE is not provided, 'navmesh.yaml' is used.`,
	Run: func(cmd *cobra.Command, args []string) {
		path := "navmesh.yaml"
		if len(args) >= 1 {
			path = args[0]
		}
		if err := writeDefaultBuildConfig(path); err != nil {
			fmt.Println("could not write config:", err)
			return
		}
		fmt.Printf("build settings written to '%s'\n", path)
	},
}

func init() {
	RootCmd.AddCommand(configCmd)
}
