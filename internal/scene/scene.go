// Package scene holds placements (model instances) indexed through a
// quadtree, plus the dynamic entities (obstacles, off-mesh connections,
// nav areas) the builder and query runtime consult.
//
// Grounded on original_source/source/scene/Scene.h/.cpp and
// original_source/source/scene/World.h/.cpp.
package scene

import (
	"github.com/wtiles/navmesh/internal/collision"
	"github.com/wtiles/navmesh/internal/geom"
	"github.com/wtiles/navmesh/internal/navlog"
	"github.com/wtiles/navmesh/internal/quadtree"
)

// LODFlag marks a placement as a low-detail duplicate that the builder
// must skip. Resolution of the "excludeLODs_" open question
// (SPEC_FULL.md §9): the flag IS honored here.
const LODFlag uint32 = 1 << 31

// Placement is immutable after insertion into the scene.
type Placement struct {
	ModelID   uint32
	Transform geom.Mat4
	Interior  int32
	Flags     uint32
}

// Model resolves a model id to a display name and its collision mesh.
type Model struct {
	Name    string
	MeshRef string // key into a collision.Library; empty means no mesh
}

// Obstacle is a dynamic cylinder that invalidates overlapping tiles.
type Obstacle struct {
	Position geom.Vec3
	Radius   float32
	Height   float32
	Enabled  bool
	CacheID  uint32 // assigned by the tile cache on insertion; 0 = unset
}

// OffMeshConnection links two world-space endpoints that would otherwise
// be unreachable through the polygon mesh.
type OffMeshConnection struct {
	Start, End    geom.Vec3
	Radius        float32
	AreaID        uint8
	Mask          uint16
	Bidirectional bool
	Enabled       bool
}

// NewOffMeshConnection returns a connection with the original source's
// documented defaults (OffMeshConnection.h).
func NewOffMeshConnection(start, end geom.Vec3) OffMeshConnection {
	return OffMeshConnection{
		Start: start, End: end,
		Radius: 1.0, AreaID: 1, Mask: 1,
		Bidirectional: true, Enabled: true,
	}
}

// NavArea is a labeled AABB used to tag polygons and path points.
type NavArea struct {
	Bounds  geom.AABB
	AreaID  uint8
	Enabled bool
}

// SceneNode is a placement after admission to the scene.
type SceneNode struct {
	Placement
	AABB     geom.AABB
	Footprint geom.Rect
	Dirty    bool
}

// Bounds implements quadtree.Value.
func (n *SceneNode) Bounds() geom.Rect { return n.Footprint }

// DefaultWorldExtent is the world rect used when the caller doesn't
// supply one, matching original_source's Scene ctor
// ([-5000,-5000]..[5000,5000]).
var DefaultWorldExtent = geom.NewRect(-5000, -5000, 5000, 5000)

// Scene holds the insertion-ordered list of admitted nodes plus the
// quadtree spatial index over their XZ footprints.
type Scene struct {
	nodes   []*SceneNode
	tree    *quadtree.Quadtree
	bounds  geom.AABB
	models  map[uint32]*Model
	collLib *collision.Library
	log     navlog.Logger

	obstacles    []Obstacle
	offMeshCons  []OffMeshConnection
	navAreas     []NavArea
}

// New creates an empty scene over worldExtent, backed by models/collLib
// for AddNode's mesh lookups.
func New(worldExtent geom.Rect, models map[uint32]*Model, collLib *collision.Library, log navlog.Logger) *Scene {
	if log == nil {
		log = navlog.Default{}
	}
	return &Scene{
		tree:    quadtree.New(worldExtent),
		bounds:  geom.NewAABB(),
		models:  models,
		collLib: collLib,
		log:     log,
	}
}

// AddNode computes the world-space AABB of p's model under p.Transform,
// rejects the placement if the model has no collision mesh, merges the
// AABB into the scene AABB, and inserts the node into both the node
// list and the quadtree.
func (s *Scene) AddNode(p Placement) *SceneNode {
	model := s.models[p.ModelID]
	if model == nil || model.MeshRef == "" {
		s.log.Warnf("scene.AddNode: model %d has no mesh reference, skipping", p.ModelID)
		return nil
	}
	mesh := s.collLib.Get(model.MeshRef)
	if mesh == nil || mesh.Empty() {
		s.log.Warnf("scene.AddNode: model %d (%s) has no collision mesh, skipping", p.ModelID, model.Name)
		return nil
	}

	worldAABB := geom.TransformAABB(mesh.AABB, p.Transform)
	node := &SceneNode{
		Placement: p,
		AABB:      worldAABB,
		Footprint: geom.RectFromAABB(worldAABB),
		Dirty:     false,
	}

	s.bounds.Merge(worldAABB)
	s.nodes = append(s.nodes, node)
	s.tree.Add(node)
	return node
}

// RemoveNode removes node from both the list and the quadtree. The
// original source's RemoveNode is an empty stub (SPEC_FULL.md §4.2); we
// implement it properly since a Go library cannot silently no-op a named
// method.
func (s *Scene) RemoveNode(node *SceneNode) bool {
	removed := s.tree.Remove(node, func(a, b quadtree.Value) bool { return a == b })
	if !removed {
		return false
	}
	for i, n := range s.nodes {
		if n == node {
			s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)
			break
		}
	}
	return true
}

// Query delegates to the quadtree using the XZ projection of bounds.
func (s *Scene) Query(bounds geom.AABB) []*SceneNode {
	values := s.tree.Query(geom.RectFromAABB(bounds))
	out := make([]*SceneNode, 0, len(values))
	for _, v := range values {
		out = append(out, v.(*SceneNode))
	}
	return out
}

// Bounds returns the union of all admitted node AABBs.
func (s *Scene) Bounds() geom.AABB { return s.bounds }

// Empty reports whether the scene has no admitted nodes. The original
// source's Empty() always returns false (SPEC_FULL.md §4.2); we return
// the correct answer.
func (s *Scene) Empty() bool { return len(s.nodes) == 0 }

// Nodes returns the insertion-ordered list of admitted nodes.
func (s *Scene) Nodes() []*SceneNode { return s.nodes }

// PlacementModifier describes the bulk filters applied to the scene.
type PlacementModifier struct {
	IgnoredModels     map[uint32]struct{}
	ExcludedInteriors map[int32]struct{}
}

// ApplyPlacementModifier erases nodes matching either set (or carrying
// the LOD flag) and returns the removal count.
func (s *Scene) ApplyPlacementModifier(m PlacementModifier) int {
	kept := s.nodes[:0]
	removed := 0
	for _, n := range s.nodes {
		_, ignoredModel := m.IgnoredModels[n.ModelID]
		_, excludedInterior := m.ExcludedInteriors[n.Interior]
		isLOD := n.Flags&LODFlag != 0
		if ignoredModel || excludedInterior || isLOD {
			s.tree.Remove(n, func(a, b quadtree.Value) bool { return a == b })
			removed++
			continue
		}
		kept = append(kept, n)
	}
	s.nodes = kept
	return removed
}

// AddObstacle, AddOffMeshConnection, AddNavArea register dynamic entities
// read by the builder/query runtime.
func (s *Scene) AddObstacle(o Obstacle) { s.obstacles = append(s.obstacles, o) }

func (s *Scene) AddOffMeshConnection(c OffMeshConnection) {
	s.offMeshCons = append(s.offMeshCons, c)
}

func (s *Scene) AddNavArea(a NavArea) { s.navAreas = append(s.navAreas, a) }

// Obstacles, OffMeshConnections, NavAreas expose read-only iteration.
func (s *Scene) Obstacles() []Obstacle                   { return s.obstacles }
func (s *Scene) OffMeshConnections() []OffMeshConnection { return s.offMeshCons }
func (s *Scene) NavAreas() []NavArea                     { return s.navAreas }
