// Package build runs the per-tile voxelization pipeline (geometry gather,
// rasterization, region partitioning, contour/polygon extraction) and the
// parallel orchestrator that drives it across a tile grid.
//
// Grounded on original_source/source/navigation/DynamicNavigationMesh.h/.cpp
// (BuildTile, Build/BuildTiles, the thread-pool + scratch-file staging it
// does when building the whole mesh) and on internal/recast's own pipeline
// stages (which go-detour never wired end to end — see
// internal/recast/compact.go).
package build

// Partition selects the region-partitioning strategy. Only Monotone is
// wired (see DESIGN.md): the watershed path needs a distance-field pass
// (rcBuildDistanceField) that has no counterpart in the vendored recast
// port, same gap class as the one compact.go fills. Wiring a second,
// larger missing stage was judged out of scope; Monotone is what the
// original defaults to for the common case regardless.
type Partition int

const (
	PartitionMonotone Partition = iota
)

// Config mirrors DynamicNavigationMesh's build parameters (cellSize_,
// cellHeight_, agentHeight_, agentMaxClimb_, agentRadius_, agentMaxSlope_,
// edgeMaxLength_, edgeMaxError_, regionMinSize_, regionMergeSize_,
// tileSize_, detailSampleDistance_, detailSampleMaxError_, maxLayers_).
type Config struct {
	CellSize   float32
	CellHeight float32

	AgentHeight   float32
	AgentMaxClimb float32
	AgentRadius   float32
	AgentMaxSlope float32

	EdgeMaxLength float32
	EdgeMaxError  float32

	RegionMinSize   float32
	RegionMergeSize float32

	TileSize int32

	DetailSampleDistance float32
	DetailSampleMaxError float32

	MaxLayers  int32
	Partition  Partition
	MaxVertsPerPoly int32
}

// DefaultConfig returns the original source's documented defaults
// (DynamicNavigationMesh ctor / NavigationMesh base class).
func DefaultConfig() Config {
	return Config{
		CellSize:             0.3,
		CellHeight:           0.2,
		AgentHeight:          2.0,
		AgentMaxClimb:        0.9,
		AgentRadius:          0.6,
		AgentMaxSlope:        45.0,
		EdgeMaxLength:        12.0,
		EdgeMaxError:         1.3,
		RegionMinSize:        8.0,
		RegionMergeSize:      20.0,
		TileSize:             64,
		DetailSampleDistance: 6.0,
		DetailSampleMaxError: 1.0,
		MaxLayers:            1,
		Partition:            PartitionMonotone,
		MaxVertsPerPoly:      6,
	}
}
