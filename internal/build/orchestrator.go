package build

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wtiles/navmesh/internal/tilecache"
)

// Orchestrator drives TileBuilder across a whole tile grid, grounded on
// DynamicNavigationMesh::Build's worker pool: tiles are built concurrently
// in any order, then reassembled into the cache in deterministic
// tileIdx = z*numTilesX+x order so the resulting mesh never depends on
// goroutine scheduling.
type Orchestrator struct {
	builder *TileBuilder
	cache   *tilecache.Cache
}

// NewOrchestrator returns an orchestrator writing built tiles into cache.
func NewOrchestrator(builder *TileBuilder, cache *tilecache.Cache) *Orchestrator {
	return &Orchestrator{builder: builder, cache: cache}
}

// tileResult is the scratch-file equivalent: one worker's output for one
// tile index, held in memory rather than staged to temp{a}_{b}.bin since
// a Go process doesn't need the original's cross-process handoff.
type tileResult struct {
	tileIdx int32
	layers  []tilecache.TileCacheData
}

// BuildAll builds every tile in the numX*numZ grid and installs the
// results into the cache, returning the number of tiles that produced at
// least one layer.
func (o *Orchestrator) BuildAll(ctx context.Context) (int, error) {
	numX, numZ := o.builder.NumTiles()
	return o.BuildRange(ctx, 0, 0, numX-1, numZ-1)
}

// BuildRange builds the inclusive tile rectangle [fromX,fromZ]..[toX,toZ],
// mirroring BuildTiles(from, to)'s partial-rebuild path used by obstacle
// invalidation.
func (o *Orchestrator) BuildRange(ctx context.Context, fromX, fromZ, toX, toZ int32) (int, error) {
	numX, _ := o.builder.NumTiles()

	var coords []struct{ x, z int32 }
	for z := fromZ; z <= toZ; z++ {
		for x := fromX; x <= toX; x++ {
			coords = append(coords, struct{ x, z int32 }{x, z})
		}
	}

	results := make([]tileResult, len(coords))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range coords {
		i, c := i, c
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			layers, err := o.builder.BuildTile(c.x, c.z)
			if err != nil {
				return err
			}
			mu.Lock()
			results[i] = tileResult{tileIdx: c.z*numX + c.x, layers: layers}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	// Serial reassembly in deterministic tile order, same as the
	// original's post-pool block-sorted pass over temp files.
	sort.Slice(results, func(i, j int) bool { return results[i].tileIdx < results[j].tileIdx })

	built := 0
	for _, r := range results {
		if len(r.layers) == 0 {
			continue
		}
		for _, layer := range r.layers {
			// AddTile replaces whatever was cached under this key, so a
			// rebuilt tile never needs an explicit prior removal.
			if _, err := o.cache.AddTile(layer.Key, layer.Data); err != nil {
				return built, err
			}
		}
		built++
	}

	// Install the polygon data into the live NavMesh only after every
	// tile in the range has been re-added to the cache, so a mid-build
	// crash never leaves the query-time mesh split across old and new
	// tile generations.
	for _, r := range results {
		if len(r.layers) == 0 {
			continue
		}
		if err := o.cache.BuildNavMeshTilesAt(r.layers[0].Key.TX, r.layers[0].Key.TY); err != nil {
			return built, err
		}
	}

	return built, nil
}
