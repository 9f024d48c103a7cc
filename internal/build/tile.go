package build

import (
	"fmt"
	"math"

	"github.com/wtiles/navmesh/internal/collision"
	"github.com/wtiles/navmesh/internal/detour"
	"github.com/wtiles/navmesh/internal/geom"
	"github.com/wtiles/navmesh/internal/naverr"
	"github.com/wtiles/navmesh/internal/recast"
	"github.com/wtiles/navmesh/internal/scene"
	"github.com/wtiles/navmesh/internal/tilecache"
)

// TileBuilder runs the voxelization pipeline for one tile at a time,
// grounded on DynamicNavigationMesh::BuildTile.
type TileBuilder struct {
	cfg   Config
	world *scene.World
}

// New returns a builder over world using cfg.
func New(cfg Config, world *scene.World) *TileBuilder {
	return &TileBuilder{cfg: cfg, world: world}
}

// NumTiles returns the tile grid dimensions spanning the world's current
// bounds, matching GetNumTiles's ceil-division.
func (b *TileBuilder) NumTiles() (numX, numZ int32) {
	bounds := b.world.Scene.Bounds()
	if bounds.Min[0] > bounds.Max[0] {
		// Still the inverted box geom.NewAABB() starts from: nothing has
		// ever been encapsulated into it.
		return 0, 0
	}
	tileWorldSize := float32(b.cfg.TileSize) * b.cfg.CellSize
	width := bounds.Max[0] - bounds.Min[0]
	depth := bounds.Max[2] - bounds.Min[2]
	numX = int32(math.Ceil(float64(width / tileWorldSize)))
	numZ = int32(math.Ceil(float64(depth / tileWorldSize)))
	if numX < 1 {
		numX = 1
	}
	if numZ < 1 {
		numZ = 1
	}
	return numX, numZ
}

// TileBounds returns the un-padded world-space bounding box of tile (tx,ty).
func (b *TileBuilder) TileBounds(tx, ty int32) geom.AABB {
	bounds := b.world.Scene.Bounds()
	tileWorldSize := float32(b.cfg.TileSize) * b.cfg.CellSize
	min := geom.Vec3{
		bounds.Min[0] + float32(tx)*tileWorldSize,
		bounds.Min[1],
		bounds.Min[2] + float32(ty)*tileWorldSize,
	}
	max := geom.Vec3{
		min[0] + tileWorldSize,
		bounds.Max[1],
		min[2] + tileWorldSize,
	}
	return geom.AABB{Min: min, Max: max}
}

// BuildTile runs the full pipeline for tile (tx,ty) and returns its
// tile-cache layers. Contours and polygons are built from the whole
// compact heightfield and returned as a single layer (Layer 0);
// BuildHeightfieldLayers only decides whether any walkable layer exists.
// Further height-field layers are neither polygonized nor reported (see
// DESIGN.md).
func (b *TileBuilder) BuildTile(tx, ty int32) ([]tilecache.TileCacheData, error) {
	return b.buildTile(tx, ty, nil)
}

// RebuildTile implements tilecache.Rebuilder, letting the cache's Update
// invalidation path drive the same per-tile pipeline the whole-mesh
// Orchestrator uses, with the cache's current obstacles excluded from the
// rebuilt geometry.
func (b *TileBuilder) RebuildTile(tx, ty int32, obstacles []tilecache.Obstacle) ([]tilecache.TileCacheData, error) {
	return b.buildTile(tx, ty, obstacles)
}

func (b *TileBuilder) buildTile(tx, ty int32, obstacles []tilecache.Obstacle) ([]tilecache.TileCacheData, error) {
	cfg := b.toRecastConfig(tx, ty)

	verts, indices := b.gatherGeometry(cfg.BMin, cfg.BMax)
	if len(verts) == 0 || len(indices) == 0 {
		return nil, nil
	}

	ctx := recast.NewBuildContext(false)

	hf := recast.NewHeightfield()
	if !hf.Create(ctx, cfg.Width, cfg.Height, cfg.BMin[:], cfg.BMax[:], cfg.Cs, cfg.Ch) {
		return nil, naverr.New(naverr.ResourceExhaustion, "build.BuildTile", fmt.Errorf("could not create heightfield"))
	}

	numTriangles := int32(len(indices) / 3)
	triAreas := make([]uint8, numTriangles)
	recast.MarkWalkableTriangles(ctx, cfg.WalkableSlopeAngle, verts, int32(len(verts)/3), indices, numTriangles, triAreas)
	if !recast.RasterizeTriangles(ctx, verts, int32(len(verts)/3), indices, triAreas, numTriangles, hf, cfg.WalkableClimb) {
		return nil, naverr.New(naverr.IO, "build.BuildTile", fmt.Errorf("could not rasterize triangles"))
	}

	recast.FilterLowHangingWalkableObstacles(ctx, cfg.WalkableClimb, hf)
	recast.FilterLedgeSpans(ctx, cfg.WalkableHeight, cfg.WalkableClimb, hf)
	recast.FilterWalkableLowHeightSpans(ctx, cfg.WalkableHeight, hf)

	chf := &recast.CompactHeightfield{}
	if !recast.BuildCompactHeightfield(ctx, cfg.WalkableHeight, cfg.WalkableClimb, hf, chf) {
		return nil, naverr.New(naverr.ResourceExhaustion, "build.BuildTile", fmt.Errorf("could not build compact heightfield"))
	}
	if !recast.ErodeWalkableArea(ctx, cfg.WalkableRadius, chf) {
		return nil, naverr.New(naverr.IO, "build.BuildTile", fmt.Errorf("could not erode walkable area"))
	}

	for _, area := range b.world.Scene.NavAreas() {
		if !area.Enabled {
			continue
		}
		corners := xzFootprintOf(area.Bounds)
		recast.MarkConvexPolyArea(ctx, corners, 4, area.Bounds.Min[1], area.Bounds.Max[1], area.AreaID, chf)
	}

	// Obstacles carve RC_NULL_AREA out of the compact heightfield so a
	// rebuilt tile actually excludes their footprint from the walkable
	// surface, rather than just tracking them as bookkeeping (DESIGN.md).
	for _, o := range obstacles {
		footprint := obstacleFootprint(o)
		recast.MarkConvexPolyArea(ctx, footprint, obstaclePolySides, o.Position[1], o.Position[1]+o.Height, recast.RC_NULL_AREA, chf)
	}

	if !recast.BuildRegionsMonotone(ctx, chf, cfg.BorderSize, int32(cfg.MinRegionArea), int32(cfg.MergeRegionArea)) {
		return nil, naverr.New(naverr.IO, "build.BuildTile", fmt.Errorf("could not build regions"))
	}

	lset := &recast.HeightfieldLayerSet{}
	if !recast.BuildHeightfieldLayers(ctx, chf, cfg.BorderSize, cfg.WalkableHeight, lset) {
		return nil, naverr.New(naverr.IO, "build.BuildTile", fmt.Errorf("could not build height field layers"))
	}
	if len(lset.Layers) == 0 {
		return nil, nil
	}

	cset := &recast.ContourSet{}
	if !recast.BuildContours(ctx, chf, cfg.MaxSimplificationError, cfg.MaxEdgeLen, cset, recast.RC_CONTOUR_TESS_WALL_EDGES) {
		return nil, naverr.New(naverr.IO, "build.BuildTile", fmt.Errorf("could not build contours"))
	}

	pmesh, ok := recast.BuildPolyMesh(ctx, cset, cfg.MaxVertsPerPoly)
	if !ok || pmesh.NVerts == 0 {
		return nil, nil
	}

	dmesh, ok := recast.BuildPolyMeshDetail(ctx, pmesh, chf, cfg.DetailSampleDist, cfg.DetailSampleMaxError)
	if !ok {
		return nil, naverr.New(naverr.IO, "build.BuildTile", fmt.Errorf("could not build detail mesh"))
	}

	for i := int32(0); i < pmesh.NPolys; i++ {
		if pmesh.Areas[i] != recast.RC_NULL_AREA {
			pmesh.Flags[i] = 1 // walkable
		}
	}

	params := &detour.NavMeshCreateParams{
		Verts:            pmesh.Verts,
		VertCount:        pmesh.NVerts,
		Polys:            pmesh.Polys,
		PolyAreas:        pmesh.Areas,
		PolyFlags:        pmesh.Flags,
		PolyCount:        pmesh.NPolys,
		Nvp:              pmesh.Nvp,
		DetailMeshes:     dmesh.Meshes,
		DetailVerts:      dmesh.Verts,
		DetailVertsCount: dmesh.NVerts,
		DetailTris:       dmesh.Tris,
		DetailTriCount:   dmesh.NTris,
		WalkableHeight:   b.cfg.AgentHeight,
		WalkableRadius:   b.cfg.AgentRadius,
		WalkableClimb:    b.cfg.AgentMaxClimb,
		TileX:            tx,
		TileY:            ty,
		BMin:             pmesh.BMin,
		BMax:             pmesh.BMax,
		Cs:               pmesh.Cs,
		Ch:               pmesh.Ch,
		BuildBvTree:      true,
	}
	appendOffMeshConnections(params, b.world.Scene.OffMeshConnections())

	data, err := detour.CreateNavMeshData(params)
	if err != nil {
		return nil, naverr.New(naverr.IO, "build.BuildTile", err)
	}

	return []tilecache.TileCacheData{{
		Key:  tilecache.TileKey{TX: tx, TY: ty, Layer: 0},
		Data: data,
	}}, nil
}

func (b *TileBuilder) toRecastConfig(tx, ty int32) recast.Config {
	tileBounds := b.TileBounds(tx, ty)

	cfg := recast.Config{
		Cs:                     b.cfg.CellSize,
		Ch:                     b.cfg.CellHeight,
		WalkableSlopeAngle:     b.cfg.AgentMaxSlope,
		WalkableHeight:         int32(math.Ceil(float64(b.cfg.AgentHeight / b.cfg.CellHeight))),
		WalkableClimb:          int32(math.Floor(float64(b.cfg.AgentMaxClimb / b.cfg.CellHeight))),
		WalkableRadius:         int32(math.Ceil(float64(b.cfg.AgentRadius / b.cfg.CellSize))),
		MaxEdgeLen:             int32(b.cfg.EdgeMaxLength / b.cfg.CellSize),
		MaxSimplificationError: b.cfg.EdgeMaxError,
		MinRegionArea:          int32(b.cfg.RegionMinSize * b.cfg.RegionMinSize),
		MergeRegionArea:        int32(b.cfg.RegionMergeSize * b.cfg.RegionMergeSize),
		MaxVertsPerPoly:        b.cfg.MaxVertsPerPoly,
		TileSize:               b.cfg.TileSize,
		DetailSampleDist: func() float32 {
			if b.cfg.DetailSampleDistance < 0.9 {
				return 0
			}
			return b.cfg.CellSize * b.cfg.DetailSampleDistance
		}(),
		DetailSampleMaxError: b.cfg.CellHeight * b.cfg.DetailSampleMaxError,
	}
	cfg.BorderSize = cfg.WalkableRadius + 3
	cfg.Width = cfg.TileSize + cfg.BorderSize*2
	cfg.Height = cfg.TileSize + cfg.BorderSize*2

	copy(cfg.BMin[:], tileBounds.Min)
	copy(cfg.BMax[:], tileBounds.Max)
	cfg.BMin[0] -= float32(cfg.BorderSize) * cfg.Cs
	cfg.BMin[2] -= float32(cfg.BorderSize) * cfg.Cs
	cfg.BMax[0] += float32(cfg.BorderSize) * cfg.Cs
	cfg.BMax[2] += float32(cfg.BorderSize) * cfg.Cs

	return cfg
}

// gatherGeometry walks the scene for every node whose AABB overlaps
// [bmin,bmax] and unpacks its collision mesh into a single triangle soup.
func (b *TileBuilder) gatherGeometry(bmin, bmax [3]float32) ([]float32, []int32) {
	bounds := geom.AABB{Min: geom.Vec3{bmin[0], bmin[1], bmin[2]}, Max: geom.Vec3{bmax[0], bmax[1], bmax[2]}}

	var verts []float32
	var indices []int32
	for _, node := range b.world.Scene.Query(bounds) {
		// spec.md §3: LOD-flagged placements must be skipped by the
		// builder. ApplyPlacementModifier is an optional bulk filter a
		// caller may run first; this check makes the invariant hold
		// regardless of whether that filter was ever applied.
		if node.Flags&scene.LODFlag != 0 {
			continue
		}
		mesh := b.world.GetModelCollision(node.ModelID)
		if mesh == nil || mesh.Empty() {
			continue
		}
		collision.Unpack(mesh, node.Transform, len(verts)/3, &verts, &indices, false)
	}
	return verts, indices
}

// obstaclePolySides is the number of vertices used to approximate an
// obstacle's circular footprint. The vendored recast port has no
// MarkCylinderArea-style distance test (DESIGN.md), so a cylinder is
// approximated as a convex polygon and routed through MarkConvexPolyArea,
// the same trick xzFootprintOf uses for axis-aligned NavArea boxes.
const obstaclePolySides = 8

// obstacleFootprint returns the XZ polygon approximating o's circular
// footprint, as a flat (x,y,z)*obstaclePolySides array.
func obstacleFootprint(o tilecache.Obstacle) []float32 {
	verts := make([]float32, 0, obstaclePolySides*3)
	for i := 0; i < obstaclePolySides; i++ {
		angle := float64(i) / obstaclePolySides * 2 * math.Pi
		x := o.Position[0] + o.Radius*float32(math.Cos(angle))
		z := o.Position[2] + o.Radius*float32(math.Sin(angle))
		verts = append(verts, x, o.Position[1], z)
	}
	return verts
}

// xzFootprintOf returns the 4 XZ corners of bounds' footprint, in the
// winding MarkConvexPolyArea/pointInPoly expects, as a flat (x,y,z)*4
// array — degenerate convex-polygon form of rcMarkBoxArea, which has no
// counterpart in the vendored recast port (see DESIGN.md).
func xzFootprintOf(bounds geom.AABB) []float32 {
	y := bounds.Min[1]
	return []float32{
		bounds.Min[0], y, bounds.Min[2],
		bounds.Max[0], y, bounds.Min[2],
		bounds.Max[0], y, bounds.Max[2],
		bounds.Min[0], y, bounds.Max[2],
	}
}

func appendOffMeshConnections(params *detour.NavMeshCreateParams, cons []scene.OffMeshConnection) {
	for _, c := range cons {
		if !c.Enabled {
			continue
		}
		params.OffMeshConVerts = append(params.OffMeshConVerts,
			c.Start[0], c.Start[1], c.Start[2],
			c.End[0], c.End[1], c.End[2])
		params.OffMeshConRad = append(params.OffMeshConRad, c.Radius)
		params.OffMeshConFlags = append(params.OffMeshConFlags, c.Mask)
		params.OffMeshConAreas = append(params.OffMeshConAreas, c.AreaID)
		dir := uint8(0)
		if c.Bidirectional {
			dir = 1
		}
		params.OffMeshConDir = append(params.OffMeshConDir, dir)
		params.OffMeshConUserID = append(params.OffMeshConUserID, uint32(len(params.OffMeshConUserID)))
	}
	params.OffMeshConCount = int32(len(params.OffMeshConRad))
}
