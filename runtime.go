// Package navmesh is the embedded query surface over the tiled,
// layered navigation mesh: build a mesh from a scene, persist it, and
// answer path/nearest-point/dump queries against it.
//
// Grounded on original_source/source/navigation/DynamicNavigationMesh.h
// (the Build/FindPath/FindNearestPoint/Serialize/Deserialize surface) —
// Runtime is the Go realization of that class, minus the AngelScript/
// Urho3D component plumbing spec.md §1 scopes out.
package navmesh

import (
	"bufio"
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/wtiles/navmesh/internal/build"
	"github.com/wtiles/navmesh/internal/collision"
	"github.com/wtiles/navmesh/internal/detour"
	"github.com/wtiles/navmesh/internal/geom"
	"github.com/wtiles/navmesh/internal/naverr"
	"github.com/wtiles/navmesh/internal/navcache"
	"github.com/wtiles/navmesh/internal/scene"
	"github.com/wtiles/navmesh/internal/tilecache"
)

// State reports the runtime's build lifecycle stage, mirroring
// DynamicNavigationMesh's own coarse "has Build ever completed" check.
type State int

const (
	// StateEmpty: no world scanned, nothing built.
	StateEmpty State = iota
	// StateScanned: a world is loaded but Build has not run (or ran and
	// was invalidated by a subsequent ScanWorld).
	StateScanned
	// StateBuilt: at least one successful Build has completed.
	StateBuilt
)

const maxNodes = 2048
const maxPathPolys = 256

// Runtime is the process-owned navmesh instance (spec.md §9's "one
// constructible struct instead of a process-wide singleton").
type Runtime struct {
	world   *scene.World
	cfg     build.Config
	builder *build.TileBuilder
	nav     *detour.NavMesh
	query   *detour.NavMeshQuery
	cache   *tilecache.Cache
	cacheLRU *navcache.Cache
	state   State
}

// NewRuntime returns a Runtime over world using cfg (zero Config uses
// build.DefaultConfig()).
func NewRuntime(world *scene.World, cfg build.Config) (*Runtime, error) {
	if cfg == (build.Config{}) {
		cfg = build.DefaultConfig()
	}

	rt := &Runtime{
		world:    world,
		cfg:      cfg,
		cacheLRU: navcache.New(256),
		state:    StateScanned,
	}
	rt.builder = build.New(cfg, world)

	nav := &detour.NavMesh{}
	numX, numZ := rt.builder.NumTiles()
	maxTiles := uint32(numX * numZ * cfg.MaxLayers)
	if maxTiles == 0 {
		maxTiles = 1
	}
	bounds := world.Scene.Bounds()
	params := &detour.NavMeshParams{
		TileWidth:  float32(cfg.TileSize) * cfg.CellSize,
		TileHeight: float32(cfg.TileSize) * cfg.CellSize,
		MaxTiles:   maxTiles,
		MaxPolys:   1 << 16,
	}
	copy(params.Orig[:], bounds.Min)
	if st := nav.Init(params); detour.StatusFailed(st) {
		return nil, naverr.New(naverr.PreconditionViolation, "navmesh.NewRuntime",
			fmt.Errorf("detour NavMesh.Init failed: status %v", st))
	}
	rt.nav = nav

	st, q := detour.NewNavMeshQuery(nav, maxNodes)
	if detour.StatusFailed(st) {
		return nil, naverr.New(naverr.PreconditionViolation, "navmesh.NewRuntime",
			fmt.Errorf("detour NewNavMeshQuery failed: status %v", st))
	}
	rt.query = q

	rt.cache = tilecache.New(nav, rt.builder, cfg.MaxLayers)
	return rt, nil
}

// State reports the current build lifecycle stage.
func (rt *Runtime) State() State { return rt.state }

// Rescan rebuilds the tile builder's view of world, invalidating the
// cached "built" state since tile bounds may have shifted. Distinct from
// the external ScanWorld query below: this is internal lifecycle
// housekeeping, not spec.md §6's scan_world(min, max) operation.
func (rt *Runtime) Rescan() {
	rt.builder = build.New(rt.cfg, rt.world)
	rt.cache = tilecache.New(rt.nav, rt.builder, rt.cfg.MaxLayers)
	rt.cacheLRU.Clear()
	if rt.state == StateBuilt {
		rt.state = StateScanned
	}
}

// ScanWorld returns the distinct model ids of every placement whose AABB
// overlaps [min,max] (external Y-up), spec.md §6's scan_world(min, max)
// external query operation.
func (rt *Runtime) ScanWorld(min, max geom.Vec3) []uint32 {
	bounds := geom.AABB{Min: geom.SwapYZ(min), Max: geom.SwapYZ(max)}

	seen := make(map[uint32]struct{})
	var out []uint32
	for _, node := range rt.world.Scene.Query(bounds) {
		if _, ok := seen[node.ModelID]; ok {
			continue
		}
		seen[node.ModelID] = struct{}{}
		out = append(out, node.ModelID)
	}
	return out
}

// Build runs the parallel tile-build orchestrator over the whole world
// and installs every produced tile into the live mesh.
func (rt *Runtime) Build(ctx context.Context) (int, error) {
	orch := build.NewOrchestrator(rt.builder, rt.cache)
	n, err := orch.BuildAll(ctx)
	if err != nil {
		return n, err
	}
	rt.state = StateBuilt
	rt.cacheLRU.Clear()
	return n, nil
}

// PathFlag classifies a FindPath waypoint's role, matching spec.md
// §4.8's find_path flag enum.
type PathFlag uint8

const (
	// PathNone marks an ordinary straight-path vertex.
	PathNone PathFlag = iota
	// PathStart marks the first point (the projected start position).
	PathStart
	// PathEnd marks the last point (the projected, possibly clamped, end
	// position).
	PathEnd
	// PathOffMesh marks a point on an off-mesh connection.
	PathOffMesh
)

// PathPoint is one FindPath waypoint (external Y-up), tagged with its
// role and the id of the NavArea that contains it with minimum
// center-to-point distance, or 0 if none does (spec.md §4.8).
type PathPoint struct {
	Point  geom.Vec3
	Flag   PathFlag
	AreaID uint8
}

func pathFlagFrom(raw uint8) PathFlag {
	switch {
	case raw&detour.StraightPathStart != 0:
		return PathStart
	case raw&detour.StraightPathEnd != 0:
		return PathEnd
	case raw&detour.StraightPathOffMeshConnection != 0:
		return PathOffMesh
	default:
		return PathNone
	}
}

// areaIDAt scans every enabled NavArea whose AABB contains p (internal
// coordinates) and returns the AreaID of the one whose center is closest
// to p, or 0 if none contains it.
func areaIDAt(areas []scene.NavArea, p geom.Vec3) uint8 {
	var best *scene.NavArea
	var bestDist float32
	for i := range areas {
		a := &areas[i]
		if !a.Enabled || !a.Bounds.Contains(p) {
			continue
		}
		if d := a.Bounds.DistSqrToPoint(p); best == nil || d < bestDist {
			best, bestDist = a, d
		}
	}
	if best == nil {
		return 0
	}
	return best.AreaID
}

// FindPath finds a path from start to end (external Y-up coordinates)
// and returns it as a list of PathPoints, caching on the (start,end)
// argument tuple.
func (rt *Runtime) FindPath(start, end geom.Vec3) ([]PathPoint, error) {
	key := navcache.Key{Op: "FindPath", Args: [6]float32{
		start[0], start[1], start[2], end[0], end[1], end[2],
	}}
	if v, ok := rt.cacheLRU.Get(key); ok {
		return v.([]PathPoint), nil
	}

	if rt.state != StateBuilt {
		return nil, naverr.New(naverr.PreconditionViolation, "navmesh.FindPath",
			fmt.Errorf("no tiles built yet"))
	}

	startZup := geom.SwapYZ(start)
	endZup := geom.SwapYZ(end)
	extents := geom.Vec3{2, 4, 2}

	filter := detour.NewStandardQueryFilter()

	stStart, startRef, startPt := rt.query.FindNearestPoly(startZup, extents, filter)
	if detour.StatusFailed(stStart) || startRef == 0 {
		return nil, naverr.New(naverr.InputInvalid, "navmesh.FindPath",
			fmt.Errorf("no polygon near start point"))
	}
	stEnd, endRef, endPt := rt.query.FindNearestPoly(endZup, extents, filter)
	if detour.StatusFailed(stEnd) || endRef == 0 {
		return nil, naverr.New(naverr.InputInvalid, "navmesh.FindPath",
			fmt.Errorf("no polygon near end point"))
	}

	polys := make([]detour.PolyRef, maxPathPolys)
	pathCount, st := rt.query.FindPath(startRef, endRef, startPt, endPt, filter, polys)
	if detour.StatusFailed(st) || pathCount == 0 {
		return nil, naverr.New(naverr.IO, "navmesh.FindPath",
			fmt.Errorf("find path failed: status %v", st))
	}
	polys = polys[:pathCount]

	straightPath := make([]geom.Vec3, maxPathPolys)
	straightFlags := make([]uint8, maxPathPolys)
	straightRefs := make([]detour.PolyRef, maxPathPolys)
	spCount, st := rt.query.FindStraightPath(startPt, endPt, polys, straightPath, straightFlags, straightRefs, 0)
	if detour.StatusFailed(st) {
		return nil, naverr.New(naverr.IO, "navmesh.FindPath",
			fmt.Errorf("find straight path failed: status %v", st))
	}

	areas := rt.world.Scene.NavAreas()
	out := make([]PathPoint, spCount)
	for i := 0; i < spCount; i++ {
		out[i] = PathPoint{
			Point:  geom.SwapYZ(straightPath[i]),
			Flag:   pathFlagFrom(straightFlags[i]),
			AreaID: areaIDAt(areas, straightPath[i]),
		}
	}

	rt.cacheLRU.Put(key, out)
	return out, nil
}

// NearestPoint finds the nearest navigable point to p (external Y-up),
// returning ok=false if nothing is within range.
func (rt *Runtime) NearestPoint(p geom.Vec3, rangeXZ, rangeY float32) (geom.Vec3, bool) {
	if rt.state != StateBuilt {
		return geom.Vec3{}, false
	}
	zup := geom.SwapYZ(p)
	filter := detour.NewStandardQueryFilter()
	st, ref, pt := rt.query.FindNearestPoly(zup, geom.Vec3{rangeXZ, rangeY, rangeXZ}, filter)
	if detour.StatusFailed(st) || ref == 0 {
		return geom.Vec3{}, false
	}
	return geom.SwapYZ(pt), true
}

// CollisionMesh gathers the raw collision geometry of every scene
// placement whose AABB overlaps [min,max] (external Y-up) and returns it
// as a flat (x,y,z) triple list, one triple per triangle vertex. bias
// offsets every point along the external up axis, for debug overlays
// that draw the collision mesh slightly above/below the surface it
// represents to avoid z-fighting — spec.md §6's collision_mesh(min,
// max, bias).
func (rt *Runtime) CollisionMesh(min, max geom.Vec3, bias float32) []float32 {
	bounds := geom.AABB{Min: geom.SwapYZ(min), Max: geom.SwapYZ(max)}

	var verts []float32
	var indices []int32
	for _, node := range rt.world.Scene.Query(bounds) {
		mesh := rt.world.GetModelCollision(node.ModelID)
		if mesh == nil || mesh.Empty() {
			continue
		}
		collision.Unpack(mesh, node.Transform, len(verts)/3, &verts, &indices, false)
	}

	out := make([]float32, 0, len(indices)*3)
	for _, idx := range indices {
		p := geom.SwapYZ(geom.Vec3{verts[idx*3], verts[idx*3+1], verts[idx*3+2]})
		p[1] += bias
		out = append(out, p[0], p[1], p[2])
	}
	return out
}

// detailVertex resolves detail-mesh vertex index j of poly's detail
// entry dm to an internal-space point: indices below poly.VertCount
// reuse the tile's shared polygon verts, the rest index into the tile's
// own detail-only verts (standard Detour detail-mesh convention).
func detailVertex(tile *detour.MeshTile, poly *detour.Poly, dm *detour.PolyDetail, j uint8) geom.Vec3 {
	if j < poly.VertCount {
		vi := uint32(poly.Verts[j])
		return geom.Vec3{tile.Verts[vi*3], tile.Verts[vi*3+1], tile.Verts[vi*3+2]}
	}
	vi := dm.VertBase + uint32(j) - uint32(poly.VertCount)
	return geom.Vec3{tile.DetailVerts[vi*3], tile.DetailVerts[vi*3+1], tile.DetailVerts[vi*3+2]}
}

// tileTriangles returns tile's detail mesh as a flat triangle soup, 3
// consecutive points per triangle, internal space.
func tileTriangles(tile *detour.MeshTile) []geom.Vec3 {
	var out []geom.Vec3
	for pi := range tile.Polys {
		poly := &tile.Polys[pi]
		dm := &tile.DetailMeshes[pi]
		for t := uint8(0); t < dm.TriCount; t++ {
			tri := tile.DetailTris[(dm.TriBase+uint32(t))*4:]
			out = append(out,
				detailVertex(tile, poly, dm, tri[0]),
				detailVertex(tile, poly, dm, tri[1]),
				detailVertex(tile, poly, dm, tri[2]))
		}
	}
	return out
}

// tileEdges returns tile's polygon boundaries as (a,b) segment pairs,
// internal space, for a wireframe-style dump.
func tileEdges(tile *detour.MeshTile) [][2]geom.Vec3 {
	var out [][2]geom.Vec3
	for pi := range tile.Polys {
		poly := &tile.Polys[pi]
		n := int(poly.VertCount)
		for i := 0; i < n; i++ {
			a := uint32(poly.Verts[i])
			b := uint32(poly.Verts[(i+1)%n])
			va := geom.Vec3{tile.Verts[a*3], tile.Verts[a*3+1], tile.Verts[a*3+2]}
			vb := geom.Vec3{tile.Verts[b*3], tile.Verts[b*3+1], tile.Verts[b*3+2]}
			out = append(out, [2]geom.Vec3{va, vb})
		}
	}
	return out
}

// tileBounds returns tile's header AABB, internal space.
func tileBounds(tile *detour.MeshTile) geom.AABB {
	return geom.AABB{
		Min: geom.Vec3{tile.Header.Bmin[0], tile.Header.Bmin[1], tile.Header.Bmin[2]},
		Max: geom.Vec3{tile.Header.Bmax[0], tile.Header.Bmax[1], tile.Header.Bmax[2]},
	}
}

// NavigationMesh gathers every built tile's detail mesh whose bounds
// overlap [min,max] (external Y-up) and returns it as a flat (x,y,z)
// triple list, one triple per triangle vertex, biased along the
// external up axis like CollisionMesh — spec.md §6's
// navigation_mesh(min, max, bias).
func (rt *Runtime) NavigationMesh(min, max geom.Vec3, bias float32) []float32 {
	bounds := geom.AABB{Min: geom.SwapYZ(min), Max: geom.SwapYZ(max)}

	var out []float32
	for i := range rt.nav.Tiles {
		tile := &rt.nav.Tiles[i]
		if tile.Header == nil || tile.Header.PolyCount == 0 {
			continue
		}
		if !tileBounds(tile).Overlaps(bounds) {
			continue
		}
		for _, v := range tileTriangles(tile) {
			v = geom.SwapYZ(v)
			v[1] += bias
			out = append(out, v[0], v[1], v[2])
		}
	}
	return out
}

// Dump writes every built tile to an OBJ file at path, optionally
// restricted to tiles whose bounds overlap bounds (external Y-up, nil
// means every tile). With triangulated set it emits each tile's detail
// mesh as faces; otherwise it emits the polygon edges as OBJ two-point
// "l" lines, grounded on original_source's debug-dump
// console command, which offered the same triangulated-vs-wireframe
// choice — spec.md §4.8/§6's dump(out, triangulated?, bounds?).
func (rt *Runtime) Dump(path string, triangulated bool, bounds *geom.AABB) error {
	f, err := os.Create(path)
	if err != nil {
		return naverr.New(naverr.IO, "navmesh.Dump", err)
	}
	defer f.Close()

	var internalBounds *geom.AABB
	if bounds != nil {
		b := geom.AABB{Min: geom.SwapYZ(bounds.Min), Max: geom.SwapYZ(bounds.Max)}
		internalBounds = &b
	}

	w := bufio.NewWriter(f)
	vertCount := 0
	for i := range rt.nav.Tiles {
		tile := &rt.nav.Tiles[i]
		if tile.Header == nil || tile.Header.PolyCount == 0 {
			continue
		}
		if internalBounds != nil && !tileBounds(tile).Overlaps(*internalBounds) {
			continue
		}
		if triangulated {
			vertCount, err = dumpTileTriangles(w, tile, vertCount)
		} else {
			vertCount, err = dumpTileEdges(w, tile, vertCount)
		}
		if err != nil {
			return naverr.New(naverr.IO, "navmesh.Dump", err)
		}
	}
	if err := w.Flush(); err != nil {
		return naverr.New(naverr.IO, "navmesh.Dump", err)
	}
	return nil
}

// dumpTileTriangles writes tile's detail mesh as OBJ "f" faces, one per
// triangle, returning the updated running vertex count (OBJ face
// indices are 1-based and file-global).
func dumpTileTriangles(w *bufio.Writer, tile *detour.MeshTile, vertCount int) (int, error) {
	tris := tileTriangles(tile)
	for _, v := range tris {
		v = geom.SwapYZ(v)
		if _, err := fmt.Fprintf(w, "v %f %f %f\n", v[0], v[1], v[2]); err != nil {
			return vertCount, err
		}
	}
	for i := 0; i+2 < len(tris); i += 3 {
		a, b, c := vertCount+i+1, vertCount+i+2, vertCount+i+3
		if _, err := fmt.Fprintf(w, "f %d %d %d\n", a, b, c); err != nil {
			return vertCount, err
		}
	}
	return vertCount + len(tris), nil
}

// dumpTileEdges writes tile's polygon boundaries as OBJ two-point "l"
// lines, returning the updated running vertex count.
func dumpTileEdges(w *bufio.Writer, tile *detour.MeshTile, vertCount int) (int, error) {
	edges := tileEdges(tile)
	for _, e := range edges {
		for _, v := range e {
			v = geom.SwapYZ(v)
			if _, err := fmt.Fprintf(w, "v %f %f %f\n", v[0], v[1], v[2]); err != nil {
				return vertCount, err
			}
		}
	}
	for i := range edges {
		a, b := vertCount+i*2+1, vertCount+i*2+2
		if _, err := fmt.Fprintf(w, "l %d %d\n", a, b); err != nil {
			return vertCount, err
		}
	}
	return vertCount + len(edges)*2, nil
}

// snapshot is the persisted format: the tile grid size, the build config,
// the world placements and every tile-cache layer, stored as its
// uncompressed detour tile blob (not LZ4-compressed), grounded on
// DynamicNavigationMesh::Serialize/Deserialize + WriteTiles/ReadTiles.
type snapshot struct {
	NumTilesX, NumTilesZ int32
	Config               build.Config
	WorldBlob            []byte
	Tiles                []tilecache.TileCacheData
}

// Save persists the world and every built tile to w.
func (rt *Runtime) Save(w io.Writer) error {
	var worldBuf bytes.Buffer
	if err := rt.world.Save(&worldBuf); err != nil {
		return naverr.New(naverr.IO, "navmesh.Save", err)
	}

	numX, numZ := rt.builder.NumTiles()
	snap := snapshot{
		NumTilesX: numX,
		NumTilesZ: numZ,
		Config:    rt.cfg,
		WorldBlob: worldBuf.Bytes(),
		Tiles:     rt.cache.Dump(),
	}
	if err := gob.NewEncoder(w).Encode(snap); err != nil {
		return naverr.New(naverr.IO, "navmesh.Save", err)
	}
	return nil
}

// Load replaces the runtime's world and tile cache with what r encodes.
func (rt *Runtime) Load(r io.Reader) error {
	var snap snapshot
	if err := gob.NewDecoder(r).Decode(&snap); err != nil {
		return naverr.New(naverr.InputInvalid, "navmesh.Load", err)
	}

	// World.Load only restores the model registry and placements; the
	// collision library is a separate artifact it deliberately doesn't
	// serialize (DESIGN.md), so the caller's existing one carries over.
	world := &scene.World{Collisions: rt.world.Collisions}
	if err := world.Load(bytes.NewReader(snap.WorldBlob)); err != nil {
		return naverr.New(naverr.InputInvalid, "navmesh.Load", err)
	}

	fresh, err := NewRuntime(world, snap.Config)
	if err != nil {
		return err
	}
	for _, t := range snap.Tiles {
		if _, err := fresh.cache.AddTile(t.Key, t.Data); err != nil {
			return naverr.New(naverr.IO, "navmesh.Load", err)
		}
		if err := fresh.cache.BuildNavMeshTilesAt(t.Key.TX, t.Key.TY); err != nil {
			return naverr.New(naverr.IO, "navmesh.Load", err)
		}
	}
	*rt = *fresh
	if len(snap.Tiles) > 0 {
		rt.state = StateBuilt
	}
	return nil
}
