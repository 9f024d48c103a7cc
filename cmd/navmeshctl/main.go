// Command navmeshctl builds, queries, and inspects tiled navigation
// meshes produced by the navmesh module.
package main

import "github.com/wtiles/navmesh/cmd/navmeshctl/cmd"

func main() {
	cmd.Execute()
}
