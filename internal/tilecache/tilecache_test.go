package tilecache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wtiles/navmesh/internal/geom"
)

// stubRebuilder hands back a caller-supplied layer for any (tx,ty) asked
// of it, counts how many times it was invoked, and records the obstacles
// it was last called with.
type stubRebuilder struct {
	calls         int
	data          []TileCacheData
	lastObstacles []Obstacle
}

func (s *stubRebuilder) RebuildTile(tx, ty int32, obstacles []Obstacle) ([]TileCacheData, error) {
	s.calls++
	s.lastObstacles = obstacles
	return s.data, nil
}

func TestAddTileThenGetTilesAt(t *testing.T) {
	c := New(nil, nil, DefaultMaxLayers)
	key := TileKey{TX: 1, TY: 2, Layer: 0}
	ref, err := c.AddTile(key, []byte{1, 2, 3})
	require.NoError(t, err)
	assert.NotZero(t, ref)

	refs := c.GetTilesAt(1, 2)
	assert.Equal(t, []Ref{ref}, refs)
	assert.Empty(t, c.GetTilesAt(9, 9))
}

func TestAddTileRejectsLayerBeyondMax(t *testing.T) {
	c := New(nil, nil, 1)
	_, err := c.AddTile(TileKey{TX: 0, TY: 0, Layer: 1}, []byte{1})
	assert.Error(t, err)
}

func TestAddTileReplacesExistingKey(t *testing.T) {
	c := New(nil, nil, DefaultMaxLayers)
	key := TileKey{TX: 0, TY: 0, Layer: 0}
	first, err := c.AddTile(key, []byte{1, 2, 3})
	require.NoError(t, err)

	second, err := c.AddTile(key, []byte{4, 5, 6, 7})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	refs := c.GetTilesAt(0, 0)
	require.Len(t, refs, 1)
	assert.Equal(t, second, refs[0])
}

func TestDumpRoundtripsCompressedData(t *testing.T) {
	c := New(nil, nil, DefaultMaxLayers)
	key := TileKey{TX: 3, TY: 4, Layer: 0}
	payload := []byte("a detour tile blob, padded out so lz4 has something to do with it")
	_, err := c.AddTile(key, payload)
	require.NoError(t, err)

	dump := c.Dump()
	require.Len(t, dump, 1)
	assert.Equal(t, key, dump[0].Key)
	assert.Equal(t, payload, dump[0].Data)
}

func TestObstacleQueueFillsAndDrainsOnUpdate(t *testing.T) {
	reb := &stubRebuilder{}
	c := New(nil, reb, DefaultMaxLayers)

	id, err := c.AddObstacle(Obstacle{Position: geom.Vec3{0, 0, 0}, Radius: 1, Height: 2})
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.False(t, c.IsObstacleQueueFull())

	n, err := c.Update(19.2, 19.2, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, c.Obstacles(), 1)
	require.Len(t, reb.lastObstacles, 1, "Rebuilder must see the obstacle that invalidated the tile")
	assert.Equal(t, id, reb.lastObstacles[0].ID)
}

func TestObstacleQueueRejectsWhenFull(t *testing.T) {
	c := New(nil, nil, DefaultMaxLayers)
	for i := 0; i < maxPendingRequests; i++ {
		_, err := c.AddObstacle(Obstacle{Position: geom.Vec3{0, 0, 0}, Radius: 1, Height: 1})
		require.NoError(t, err)
	}
	assert.True(t, c.IsObstacleQueueFull())
	_, err := c.AddObstacle(Obstacle{Position: geom.Vec3{0, 0, 0}, Radius: 1, Height: 1})
	assert.Error(t, err)
}

func TestRemoveObstacleOfUnknownIDFails(t *testing.T) {
	c := New(nil, nil, DefaultMaxLayers)
	err := c.RemoveObstacle(999)
	assert.Error(t, err)
}

func TestRemoveTileOfUnknownRefFails(t *testing.T) {
	c := New(nil, nil, DefaultMaxLayers)
	err := c.RemoveTile(Ref(42))
	assert.Error(t, err)
}
