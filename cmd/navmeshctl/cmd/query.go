package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	navmesh "github.com/wtiles/navmesh"
	"github.com/wtiles/navmesh/internal/build"
	"github.com/wtiles/navmesh/internal/collision"
	"github.com/wtiles/navmesh/internal/geom"
	"github.com/wtiles/navmesh/internal/scene"
)

var (
	queryStart [3]float32
	queryEnd   [3]float32
)

// queryCmd loads a built navmesh and finds a path between two points.
var queryCmd = &cobra.Command{
	Use:   "query NAVMESHFILE",
	Short: "find a path between two points in a built navigation mesh",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		f, err := os.Open(args[0])
		if err != nil {
			fmt.Println("error:", err)
			os.Exit(1)
		}
		defer f.Close()

		// Load rebuilds the whole Runtime from the snapshot, but NewRuntime
		// still needs some world to bootstrap detour.NavMesh.Init's bounds
		// off of; an empty scene is fine, Load replaces it wholesale.
		empty := &scene.World{Collisions: collision.NewLibrary()}
		empty.Scene = scene.New(scene.DefaultWorldExtent, empty.Models, empty.Collisions, nil)
		rt, err := navmesh.NewRuntime(empty, build.DefaultConfig())
		if err != nil {
			fmt.Println("error creating runtime:", err)
			os.Exit(1)
		}
		if err := rt.Load(f); err != nil {
			fmt.Println("error loading navmesh:", err)
			os.Exit(1)
		}

		start := geom.Vec3{queryStart[0], queryStart[1], queryStart[2]}
		end := geom.Vec3{queryEnd[0], queryEnd[1], queryEnd[2]}
		path, err := rt.FindPath(start, end)
		if err != nil {
			fmt.Println("find path failed:", err)
			os.Exit(1)
		}

		fmt.Printf("path with %d points:\n", len(path))
		for _, p := range path {
			fmt.Printf("  (%.3f, %.3f, %.3f) flag=%s area=%d\n",
				p.Point[0], p.Point[1], p.Point[2], pathFlagString(p.Flag), p.AreaID)
		}
	},
}

func pathFlagString(f navmesh.PathFlag) string {
	switch f {
	case navmesh.PathStart:
		return "start"
	case navmesh.PathEnd:
		return "end"
	case navmesh.PathOffMesh:
		return "off-mesh"
	default:
		return "none"
	}
}

func init() {
	RootCmd.AddCommand(queryCmd)

	queryCmd.Flags().Float32Var(&queryStart[0], "sx", 0, "start x")
	queryCmd.Flags().Float32Var(&queryStart[1], "sy", 0, "start y")
	queryCmd.Flags().Float32Var(&queryStart[2], "sz", 0, "start z")
	queryCmd.Flags().Float32Var(&queryEnd[0], "ex", 0, "end x")
	queryCmd.Flags().Float32Var(&queryEnd[1], "ey", 0, "end y")
	queryCmd.Flags().Float32Var(&queryEnd[2], "ez", 0, "end z")
}
