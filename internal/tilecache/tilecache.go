// Package tilecache is the compressed, layered store of built tile data
// that sits between the tile builder and the live detour.NavMesh, plus the
// obstacle queue that invalidates tiles as dynamic cylinders come and go.
//
// Grounded on original_source/source/navigation/DynamicNavigationMesh.h/.cpp
// (TileCacheData, the Obstacle/AddObstacle/RemoveObstacle pair, BuildTile)
// and on upstream DetourTileCache's own division of labor: a compressor, a
// mesh processor run before a tile is installed, and a bounded queue of
// pending obstacle add/remove requests drained by Update. Our compressed
// payload is simpler than upstream's: rather than caching raw height-field
// layers and re-deriving contours/polygons at install time, the tile
// builder (internal/build) already ran the full recast pipeline once per
// layer, so what we compress and cache is the detour-ready tile blob
// (MeshHeader + polygon/detail data, as produced by
// detour.CreateNavMeshData) itself. An obstacle add/remove doesn't patch
// that blob incrementally — it marks the tiles the obstacle's footprint
// overlaps dirty, and Update asks the registered Rebuilder to redo them
// from scratch. Reproducing DetourTileCache's own incremental
// contour/region rebuild around a single cylinder was judged out of scope
// (see DESIGN.md): the external contract (add/remove/update/queue-full) is
// preserved, only the rebuild strategy is coarser.
package tilecache

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/wtiles/navmesh/internal/detour"
	"github.com/wtiles/navmesh/internal/geom"
	"github.com/wtiles/navmesh/internal/naverr"
)

// TILECACHE_MAXLAYERS is the hard ceiling on layers stacked at one (x,y)
// tile column, carried over from upstream's dtTileCache sizing constant.
const TILECACHE_MAXLAYERS = 255

// DefaultMaxLayers is the layer budget used when a caller doesn't build a
// layered destination mesh (the common single-floor case).
const DefaultMaxLayers = 1

// TileKey addresses one compressed layer slot.
type TileKey struct {
	TX, TY, Layer int32
}

// Ref is an opaque handle returned by AddTile, analogous to dtCompressedTileRef.
type Ref uint32

// compressedTile is one stored layer: its key, the LZ4-compressed detour
// tile blob, and whether it has been installed into a live NavMesh.
type compressedTile struct {
	key       TileKey
	data      []byte // lz4-compressed detour.CreateNavMeshData output
	rawSize   int
	installed detour.TileRef
}

// Obstacle is a dynamic cylinder tracked by the cache, mirroring
// DynamicNavigationMesh's Obstacle class closely enough to drive dirty-tile
// invalidation.
type Obstacle struct {
	ID       uint32
	Position geom.Vec3
	Radius   float32
	Height   float32
}

type requestKind int

const (
	requestAdd requestKind = iota
	requestRemove
)

type obstacleRequest struct {
	kind     requestKind
	obstacle Obstacle
}

const maxPendingRequests = 64

// Rebuilder rebuilds every layer at (tx,ty) from scratch and returns fresh
// TileCacheData ready for AddTile. obstacles is the cache's current active
// set, passed through so the rebuilt geometry excludes their footprints.
// The tile builder implements this.
type Rebuilder interface {
	RebuildTile(tx, ty int32, obstacles []Obstacle) ([]TileCacheData, error)
}

// TileCacheData is one layer's uncompressed detour tile blob plus the key
// it belongs under, the unit AddTile/RebuildTile exchange.
type TileCacheData struct {
	Key  TileKey
	Data []byte
}

// Cache is the compressed, layered tile store. The zero value is not
// usable; use New.
type Cache struct {
	tiles      map[Ref]*compressedTile
	byKey      map[TileKey]Ref
	nextRef    Ref
	maxLayers  int32
	nav        *detour.NavMesh
	rebuilder  Rebuilder
	obstacles  map[uint32]*Obstacle
	nextObsID  uint32
	requests   []obstacleRequest
	dirtyTiles map[[2]int32]struct{}
}

// New returns an empty cache bound to nav (tiles are installed into nav as
// they're built) with up to maxLayers layers per (tx,ty) column.
func New(nav *detour.NavMesh, rebuilder Rebuilder, maxLayers int32) *Cache {
	if maxLayers <= 0 {
		maxLayers = DefaultMaxLayers
	}
	if maxLayers > TILECACHE_MAXLAYERS {
		maxLayers = TILECACHE_MAXLAYERS
	}
	return &Cache{
		tiles:      make(map[Ref]*compressedTile),
		byKey:      make(map[TileKey]Ref),
		maxLayers:  maxLayers,
		nav:        nav,
		rebuilder:  rebuilder,
		obstacles:  make(map[uint32]*Obstacle),
		dirtyTiles: make(map[[2]int32]struct{}),
	}
}

// AddTile compresses data and stores it under key, replacing whatever was
// cached there before. Returns the new ref.
func (c *Cache) AddTile(key TileKey, data []byte) (Ref, error) {
	if key.Layer >= c.maxLayers {
		return 0, naverr.New(naverr.ResourceExhaustion, "tilecache.AddTile",
			fmt.Errorf("layer %d exceeds max layers %d", key.Layer, c.maxLayers))
	}

	if old, ok := c.byKey[key]; ok {
		c.removeTileRef(old)
	}

	compressed, err := compress(data)
	if err != nil {
		return 0, naverr.New(naverr.IO, "tilecache.AddTile", err)
	}

	c.nextRef++
	ref := c.nextRef
	c.tiles[ref] = &compressedTile{key: key, data: compressed, rawSize: len(data)}
	c.byKey[key] = ref
	return ref, nil
}

// RemoveTile evicts the stored layer and, if it had been installed into
// the live NavMesh, removes it there too.
func (c *Cache) RemoveTile(ref Ref) error {
	return c.removeTileRef(ref)
}

func (c *Cache) removeTileRef(ref Ref) error {
	t, ok := c.tiles[ref]
	if !ok {
		return naverr.New(naverr.PreconditionViolation, "tilecache.RemoveTile",
			fmt.Errorf("unknown tile ref %d", ref))
	}
	if t.installed != 0 && c.nav != nil {
		if _, st := c.nav.RemoveTile(t.installed); detour.StatusFailed(st) {
			return naverr.New(naverr.IO, "tilecache.RemoveTile",
				fmt.Errorf("detour RemoveTile failed: status %v", st))
		}
	}
	delete(c.tiles, ref)
	delete(c.byKey, t.key)
	return nil
}

// GetTilesAt returns every ref cached at tile column (tx,ty), across all
// layers.
func (c *Cache) GetTilesAt(tx, ty int32) []Ref {
	var out []Ref
	for key, ref := range c.byKey {
		if key.TX == tx && key.TY == ty {
			out = append(out, ref)
		}
	}
	return out
}

// BuildNavMeshTile decompresses ref's payload and installs it into nav.
func (c *Cache) BuildNavMeshTile(ref Ref) error {
	t, ok := c.tiles[ref]
	if !ok {
		return naverr.New(naverr.PreconditionViolation, "tilecache.BuildNavMeshTile",
			fmt.Errorf("unknown tile ref %d", ref))
	}
	if c.nav == nil {
		return naverr.New(naverr.PreconditionViolation, "tilecache.BuildNavMeshTile",
			fmt.Errorf("cache has no bound NavMesh"))
	}

	raw, err := decompress(t.data, t.rawSize)
	if err != nil {
		return naverr.New(naverr.IO, "tilecache.BuildNavMeshTile", err)
	}

	st, tileRef := c.nav.AddTile(raw, 0)
	if detour.StatusFailed(st) {
		return naverr.New(naverr.IO, "tilecache.BuildNavMeshTile",
			fmt.Errorf("detour AddTile failed: status %v", st))
	}
	t.installed = tileRef
	return nil
}

// BuildNavMeshTilesAt installs every cached layer at (tx,ty).
func (c *Cache) BuildNavMeshTilesAt(tx, ty int32) error {
	for _, ref := range c.GetTilesAt(tx, ty) {
		if err := c.BuildNavMeshTile(ref); err != nil {
			return err
		}
	}
	return nil
}

// AddObstacle enqueues an obstacle insertion request. The request is
// applied (and affected tiles marked dirty) on the next Update.
func (c *Cache) AddObstacle(o Obstacle) (uint32, error) {
	if len(c.requests) >= maxPendingRequests {
		return 0, naverr.New(naverr.ResourceExhaustion, "tilecache.AddObstacle",
			fmt.Errorf("obstacle request queue full (%d pending)", maxPendingRequests))
	}
	c.nextObsID++
	o.ID = c.nextObsID
	c.requests = append(c.requests, obstacleRequest{kind: requestAdd, obstacle: o})
	return o.ID, nil
}

// RemoveObstacle enqueues removal of a previously added obstacle.
func (c *Cache) RemoveObstacle(id uint32) error {
	o, ok := c.obstacles[id]
	if !ok {
		return naverr.New(naverr.PreconditionViolation, "tilecache.RemoveObstacle",
			fmt.Errorf("unknown obstacle %d", id))
	}
	if len(c.requests) >= maxPendingRequests {
		return naverr.New(naverr.ResourceExhaustion, "tilecache.RemoveObstacle",
			fmt.Errorf("obstacle request queue full (%d pending)", maxPendingRequests))
	}
	c.requests = append(c.requests, obstacleRequest{kind: requestRemove, obstacle: *o})
	return nil
}

// IsObstacleQueueFull reports whether AddObstacle/RemoveObstacle would
// currently be rejected.
func (c *Cache) IsObstacleQueueFull() bool {
	return len(c.requests) >= maxPendingRequests
}

// Update drains up to maxRequests pending obstacle requests, applying each
// to the obstacle set and marking the tiles its footprint overlaps dirty,
// then rebuilds every dirty tile through the bound Rebuilder. Returns the
// number of requests processed.
func (c *Cache) Update(tileWidth, tileHeight float32, maxRequests int) (int, error) {
	n := 0
	for n < maxRequests && len(c.requests) > 0 {
		req := c.requests[0]
		c.requests = c.requests[1:]
		switch req.kind {
		case requestAdd:
			o := req.obstacle
			c.obstacles[o.ID] = &o
			c.markDirty(o, tileWidth, tileHeight)
		case requestRemove:
			o := req.obstacle
			delete(c.obstacles, o.ID)
			c.markDirty(o, tileWidth, tileHeight)
		}
		n++
	}

	if c.rebuilder == nil {
		return n, nil
	}
	obstacles := c.Obstacles()
	for coord := range c.dirtyTiles {
		tiles, err := c.rebuilder.RebuildTile(coord[0], coord[1], obstacles)
		if err != nil {
			return n, naverr.New(naverr.IO, "tilecache.Update", err)
		}
		for _, td := range tiles {
			if _, err := c.AddTile(td.Key, td.Data); err != nil {
				return n, err
			}
		}
		if err := c.BuildNavMeshTilesAt(coord[0], coord[1]); err != nil {
			return n, err
		}
		delete(c.dirtyTiles, coord)
	}
	return n, nil
}

// Dump decompresses every stored layer back into TileCacheData form, for
// persistence (navmesh.Save writes these; navmesh.Load re-adds them via
// AddTile, which re-compresses).
func (c *Cache) Dump() []TileCacheData {
	out := make([]TileCacheData, 0, len(c.tiles))
	for _, t := range c.tiles {
		raw, err := decompress(t.data, t.rawSize)
		if err != nil {
			continue
		}
		out = append(out, TileCacheData{Key: t.key, Data: raw})
	}
	return out
}

func (c *Cache) markDirty(o Obstacle, tileWidth, tileHeight float32) {
	minTX := int32((o.Position[0] - o.Radius) / tileWidth)
	maxTX := int32((o.Position[0] + o.Radius) / tileWidth)
	minTY := int32((o.Position[2] - o.Radius) / tileHeight)
	maxTY := int32((o.Position[2] + o.Radius) / tileHeight)
	for ty := minTY; ty <= maxTY; ty++ {
		for tx := minTX; tx <= maxTX; tx++ {
			c.dirtyTiles[[2]int32{tx, ty}] = struct{}{}
		}
	}
}

// Obstacles returns the currently active (applied, not pending-removal)
// obstacle set.
func (c *Cache) Obstacles() []Obstacle {
	out := make([]Obstacle, 0, len(c.obstacles))
	for _, o := range c.obstacles {
		out = append(out, *o)
	}
	return out
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte, rawSize int) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))
	out := make([]byte, rawSize)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}
