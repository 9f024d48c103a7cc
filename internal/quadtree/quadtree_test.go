package quadtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wtiles/navmesh/internal/geom"
)

type point struct {
	id  int
	box geom.Rect
}

func (p point) Bounds() geom.Rect { return p.box }

func eqPoint(a, b Value) bool { return a.(point).id == b.(point).id }

func newPoint(id int, x, z float32) point {
	return point{id: id, box: geom.NewRect(x, z, x, z)}
}

func TestQuadtreeInsertAndQueryReturnsAll(t *testing.T) {
	world := geom.NewRect(-100, -100, 100, 100)
	q := New(world)

	var pts []point
	for i := 0; i < 64; i++ {
		x := float32(i%16) - 8
		z := float32(i/16) - 8
		p := newPoint(i, x, z)
		pts = append(pts, p)
		q.Add(p)
	}

	got := q.Query(world)
	assert.Len(t, got, len(pts))
}

func TestQuadtreeQueryExcludesDisjointRegion(t *testing.T) {
	world := geom.NewRect(-100, -100, 100, 100)
	q := New(world)
	q.Add(newPoint(1, -50, -50))
	q.Add(newPoint(2, 50, 50))

	got := q.Query(geom.NewRect(40, 40, 60, 60))
	assert.Len(t, got, 1)
	assert.Equal(t, 2, got[0].(point).id)
}

func TestQuadtreeRemove(t *testing.T) {
	world := geom.NewRect(-100, -100, 100, 100)
	q := New(world)
	p := newPoint(1, 10, 10)
	q.Add(p)

	ok := q.Remove(p, eqPoint)
	assert.True(t, ok)
	assert.Empty(t, q.Query(world))

	ok = q.Remove(p, eqPoint)
	assert.False(t, ok)
}

func TestQuadtreeSplitsAboveThreshold(t *testing.T) {
	world := geom.NewRect(-100, -100, 100, 100)
	q := New(world)
	for i := 0; i < Threshold+1; i++ {
		q.Add(newPoint(i, -90, -90))
	}
	assert.False(t, q.root.isLeaf())
}

func TestQuadtreeStraddlerStaysAtParent(t *testing.T) {
	world := geom.NewRect(-100, -100, 100, 100)
	q := New(world)
	for i := 0; i < Threshold+1; i++ {
		q.Add(newPoint(i, -90, -90))
	}
	straddler := point{id: 1000, box: geom.NewRect(-1, -1, 1, 1)}
	q.Add(straddler)
	assert.Contains(t, q.root.values, straddler)
}
