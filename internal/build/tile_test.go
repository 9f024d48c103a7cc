package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wtiles/navmesh/internal/collision"
	"github.com/wtiles/navmesh/internal/geom"
	"github.com/wtiles/navmesh/internal/scene"
)

// flatQuadMesh builds a flat quad of half-extent halfWorldUnits, packed
// at collision.Vertex's fixed 1/128 scale (mirrors scene_test.go's own
// flatQuadMesh, generalized to a caller-chosen size).
func flatQuadMesh(halfWorldUnits float32) *collision.Mesh {
	h := int16(halfWorldUnits * 128)
	return &collision.Mesh{
		Name: "quad",
		Vertices: []collision.Vertex{
			{-h, 0, -h}, {h, 0, -h}, {h, 0, h}, {-h, 0, h},
		},
		Faces: []collision.Face{{A: 0, B: 1, C: 2}, {A: 0, B: 2, C: 3}},
		AABB: geom.AABB{
			Min: geom.Vec3{-halfWorldUnits, 0, -halfWorldUnits},
			Max: geom.Vec3{halfWorldUnits, 0, halfWorldUnits},
		},
	}
}

func newSingleQuadWorld(t *testing.T, half float32) *scene.World {
	t.Helper()
	lib := collision.NewLibrary()
	lib.Put(flatQuadMesh(half))
	models := map[uint32]*scene.Model{1: {Name: "quad", MeshRef: "quad"}}
	s := scene.New(scene.DefaultWorldExtent, models, lib, nil)
	n := s.AddNode(scene.Placement{ModelID: 1, Transform: geom.Identity4()})
	require.NotNil(t, n)
	return &scene.World{Models: models, Collisions: lib, Scene: s}
}

func TestNumTilesForEmptyWorldIsZero(t *testing.T) {
	lib := collision.NewLibrary()
	s := scene.New(scene.DefaultWorldExtent, nil, lib, nil)
	world := &scene.World{Collisions: lib, Scene: s}

	b := New(DefaultConfig(), world)
	numX, numZ := b.NumTiles()
	assert.Equal(t, int32(0), numX)
	assert.Equal(t, int32(0), numZ)
}

func TestNumTilesForSingleQuadIsAtLeastOne(t *testing.T) {
	world := newSingleQuadWorld(t, 10)
	b := New(DefaultConfig(), world)
	numX, numZ := b.NumTiles()
	assert.True(t, numX >= 1)
	assert.True(t, numZ >= 1)
}

func TestBuildTileOnEmptyTileReturnsNoLayers(t *testing.T) {
	world := newSingleQuadWorld(t, 10)
	b := New(DefaultConfig(), world)

	// A tile far outside the quad's footprint has no geometry to gather.
	layers, err := b.BuildTile(1000, 1000)
	require.NoError(t, err)
	assert.Empty(t, layers)
}

func TestBuildTileOnFlatQuadProducesOneLayer(t *testing.T) {
	world := newSingleQuadWorld(t, 10)
	b := New(DefaultConfig(), world)

	layers, err := b.BuildTile(0, 0)
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.Equal(t, int32(0), layers[0].Key.TX)
	assert.Equal(t, int32(0), layers[0].Key.TY)
	assert.NotEmpty(t, layers[0].Data)
}

func TestTileBoundsGrowsWithTileCoordinate(t *testing.T) {
	world := newSingleQuadWorld(t, 10)
	b := New(DefaultConfig(), world)

	b0 := b.TileBounds(0, 0)
	b1 := b.TileBounds(1, 0)
	assert.True(t, b1.Min[0] > b0.Min[0])
}
