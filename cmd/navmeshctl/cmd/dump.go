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
	dumpOut          string
	dumpTriangulated bool
	dumpMin, dumpMax [3]float32
	dumpBounded      bool
)

// dumpCmd writes a built navigation mesh to an OBJ file, optionally
// restricted to a bounding box and optionally triangulated rather than
// wireframe.
var dumpCmd = &cobra.Command{
	Use:   "dump NAVMESHFILE",
	Short: "export a built navigation mesh to an OBJ file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		f, err := os.Open(args[0])
		if err != nil {
			fmt.Println("error:", err)
			os.Exit(1)
		}
		defer f.Close()

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

		var bounds *geom.AABB
		if dumpBounded {
			bounds = &geom.AABB{
				Min: geom.Vec3{dumpMin[0], dumpMin[1], dumpMin[2]},
				Max: geom.Vec3{dumpMax[0], dumpMax[1], dumpMax[2]},
			}
		}
		if err := rt.Dump(dumpOut, dumpTriangulated, bounds); err != nil {
			fmt.Println("dump failed:", err)
			os.Exit(1)
		}
		fmt.Println("wrote", dumpOut)
	},
}

func init() {
	RootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().StringVar(&dumpOut, "out", "navmesh.obj", "output OBJ path")
	dumpCmd.Flags().BoolVar(&dumpTriangulated, "triangulated", false, "emit detail-mesh triangles instead of polygon-edge wireframe")
	dumpCmd.Flags().BoolVar(&dumpBounded, "bounded", false, "restrict the dump to the --min/--max box")
	dumpCmd.Flags().Float32Var(&dumpMin[0], "min-x", 0, "bounds min x")
	dumpCmd.Flags().Float32Var(&dumpMin[1], "min-y", 0, "bounds min y")
	dumpCmd.Flags().Float32Var(&dumpMin[2], "min-z", 0, "bounds min z")
	dumpCmd.Flags().Float32Var(&dumpMax[0], "max-x", 0, "bounds max x")
	dumpCmd.Flags().Float32Var(&dumpMax[1], "max-y", 0, "bounds max y")
	dumpCmd.Flags().Float32Var(&dumpMax[2], "max-z", 0, "bounds max z")
}
