package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	navmesh "github.com/wtiles/navmesh"
)

var (
	buildWorldPath  string
	buildCollPath   string
	buildConfigPath string
)

// buildCmd builds a navigation mesh from a world snapshot and saves it.
var buildCmd = &cobra.Command{
	Use:   "build OUTFILE",
	Short: "build a navigation mesh from a world snapshot",
	Long: `Build scans the world snapshot for placements, voxelizes every
tile in parallel, and saves the resulting tiled navigation mesh to
OUTFILE.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		outPath := args[0]

		world, err := loadWorld(buildWorldPath, buildCollPath)
		if err != nil {
			fmt.Println("error:", err)
			os.Exit(1)
		}

		cfg, err := loadBuildConfig(buildConfigPath)
		if err != nil {
			fmt.Println("error loading build config:", err)
			os.Exit(1)
		}

		rt, err := navmesh.NewRuntime(world, cfg)
		if err != nil {
			fmt.Println("error creating runtime:", err)
			os.Exit(1)
		}

		n, err := rt.Build(context.Background())
		if err != nil {
			fmt.Println("build failed:", err)
			os.Exit(1)
		}
		fmt.Printf("built %d tiles\n", n)

		out, err := os.Create(outPath)
		if err != nil {
			fmt.Println("error creating output file:", err)
			os.Exit(1)
		}
		defer out.Close()
		if err := rt.Save(out); err != nil {
			fmt.Println("error saving navmesh:", err)
			os.Exit(1)
		}
		fmt.Printf("navmesh written to '%s'\n", outPath)
	},
}

func init() {
	RootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVar(&buildWorldPath, "world", "", "world placement snapshot (an empty world when omitted)")
	buildCmd.Flags().StringVar(&buildCollPath, "collisions", "", "collision library .col file")
	buildCmd.Flags().StringVar(&buildConfigPath, "config", "", "build settings YAML (defaults to build.DefaultConfig())")
}
