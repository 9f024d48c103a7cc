package scene

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wtiles/navmesh/internal/collision"
	"github.com/wtiles/navmesh/internal/geom"
)

func flatQuadMesh() *collision.Mesh {
	return &collision.Mesh{
		Name: "quad",
		Vertices: []collision.Vertex{
			{-1280, 0, -1280}, {1280, 0, -1280}, {1280, 0, 1280}, {-1280, 0, 1280},
		},
		Faces: []collision.Face{{A: 0, B: 1, C: 2}, {A: 0, B: 2, C: 3}},
		AABB: geom.AABB{
			Min: geom.Vec3{-10, 0, -10},
			Max: geom.Vec3{10, 0, 10},
		},
	}
}

func newTestScene() (*Scene, *collision.Library) {
	lib := collision.NewLibrary()
	models := map[uint32]*Model{
		1: {Name: "quad", MeshRef: "quad"},
		2: {Name: "noMesh", MeshRef: ""},
	}
	s := New(DefaultWorldExtent, models, lib, nil)
	return s, lib
}

func TestAddNodeRejectsModelWithoutMesh(t *testing.T) {
	s, _ := newTestScene()
	n := s.AddNode(Placement{ModelID: 2, Transform: geom.Identity4()})
	assert.Nil(t, n)
	assert.True(t, s.Empty())
}

func TestAddNodeAdmitsAndQueries(t *testing.T) {
	s, lib := newTestScene()
	injectMesh(lib, flatQuadMesh())

	n := s.AddNode(Placement{ModelID: 1, Transform: geom.Identity4()})
	require.NotNil(t, n)
	assert.False(t, s.Empty())

	got := s.Query(geom.AABB{Min: geom.Vec3{-20, -20, -20}, Max: geom.Vec3{20, 20, 20}})
	assert.Len(t, got, 1)

	got = s.Query(geom.AABB{Min: geom.Vec3{100, 100, 100}, Max: geom.Vec3{200, 200, 200}})
	assert.Empty(t, got)
}

func TestApplyPlacementModifierFiltersAndIsCounted(t *testing.T) {
	s, lib := newTestScene()
	injectMesh(lib, flatQuadMesh())

	for i := 0; i < 5; i++ {
		s.AddNode(Placement{ModelID: 1, Transform: geom.Identity4(), Interior: int32(i % 2)})
	}

	removed := s.ApplyPlacementModifier(PlacementModifier{
		ExcludedInteriors: map[int32]struct{}{1: {}},
	})
	assert.Equal(t, 2, removed)
}

func TestLODFlaggedPlacementsAreFiltered(t *testing.T) {
	s, lib := newTestScene()
	injectMesh(lib, flatQuadMesh())

	s.AddNode(Placement{ModelID: 1, Transform: geom.Identity4(), Flags: LODFlag})
	s.AddNode(Placement{ModelID: 1, Transform: geom.Identity4()})

	removed := s.ApplyPlacementModifier(PlacementModifier{})
	assert.Equal(t, 1, removed)
	assert.Len(t, s.Nodes(), 1)
}

func TestWorldSaveLoadRoundtrip(t *testing.T) {
	lib := collision.NewLibrary()
	injectMesh(lib, flatQuadMesh())
	models := map[uint32]*Model{1: {Name: "quad", MeshRef: "quad"}}
	s := New(DefaultWorldExtent, models, lib, nil)
	s.AddNode(Placement{ModelID: 1, Transform: geom.Identity4()})

	wd := &World{Models: models, Collisions: lib, Scene: s}

	var buf bytes.Buffer
	require.NoError(t, wd.Save(&buf))

	wd2 := &World{Models: map[uint32]*Model{}, Collisions: lib}
	require.NoError(t, wd2.Load(&buf))

	assert.Len(t, wd2.Scene.Nodes(), 1)
}

// injectMesh bypasses Library.Load (which expects the binary wire format)
// to seed a mesh directly for unit tests that only need AddNode's AABB
// logic exercised, not the loader itself (covered separately).
func injectMesh(lib *collision.Library, m *collision.Mesh) {
	lib.Put(m)
}
