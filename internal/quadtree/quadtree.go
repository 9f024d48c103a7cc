// Package quadtree implements the fixed-depth XZ spatial index that backs
// the scene store's range queries over placement footprints.
//
// Ported from original_source/source/utils/Quadtree.h: a node holds up to
// Threshold values before splitting into four quadrants (NW/NE/SW/SE);
// values whose footprint doesn't fit entirely within one child quadrant
// stay at the current node ("straddlers"); siblings merge back together
// when a subtree's aggregate count drops to the threshold and all four
// children are leaves.
package quadtree

import "github.com/wtiles/navmesh/internal/geom"

const (
	// Threshold is the number of values a node holds before splitting.
	Threshold = 16
	// MaxDepth bounds how deep the tree may subdivide.
	MaxDepth = 8
)

// Value is anything that can be stored in the quadtree: it must expose its
// own XZ footprint.
type Value interface {
	Bounds() geom.Rect
}

type node struct {
	box      geom.Rect
	values   []Value
	children [4]*node // nil until split; order: NW, NE, SW, SE
}

func (n *node) isLeaf() bool {
	return n.children[0] == nil
}

// Quadtree is a fixed-depth spatial index over a configured world rect.
type Quadtree struct {
	root  *node
	world geom.Rect
}

// New creates an empty quadtree over the given world rect.
func New(world geom.Rect) *Quadtree {
	return &Quadtree{root: &node{box: world}, world: world}
}

// WorldRect returns the tree's configured world bounds.
func (q *Quadtree) WorldRect() geom.Rect {
	return q.world
}

// computeBox returns the i-th quadrant of box (0=NW, 1=NE, 2=SW, 3=SE).
func computeBox(box geom.Rect, i int) geom.Rect {
	c := box.Center()
	switch i {
	case 0: // NW
		return geom.NewRect(box.Min[0], box.Min[1], c[0], c[1])
	case 1: // NE
		return geom.NewRect(c[0], box.Min[1], box.Max[0], c[1])
	case 2: // SW
		return geom.NewRect(box.Min[0], c[1], c[0], box.Max[1])
	default: // SE
		return geom.NewRect(c[0], c[1], box.Max[0], box.Max[1])
	}
}

// getQuadrant returns the index of the child of box fully containing
// valueBox, or -1 if valueBox straddles more than one quadrant.
func getQuadrant(box geom.Rect, valueBox geom.Rect) int {
	c := box.Center()
	// valueBox fits entirely left (west) of center?
	west := valueBox.Max[0] < c[0]
	east := valueBox.Min[0] >= c[0]
	north := valueBox.Max[1] < c[1]
	south := valueBox.Min[1] >= c[1]

	switch {
	case west && north:
		return 0
	case east && north:
		return 1
	case west && south:
		return 2
	case east && south:
		return 3
	default:
		return -1
	}
}

// Add inserts v into the tree.
func (q *Quadtree) Add(v Value) {
	add(q.root, 0, v)
}

func add(n *node, depth int, v Value) {
	vb := v.Bounds()
	if depth < MaxDepth && !n.isLeaf() {
		if i := getQuadrant(n.box, vb); i != -1 {
			add(n.children[i], depth+1, v)
			return
		}
	}

	n.values = append(n.values, v)

	if n.isLeaf() && depth < MaxDepth && len(n.values) > Threshold {
		split(n)
	}
}

func split(n *node) {
	for i := 0; i < 4; i++ {
		n.children[i] = &node{box: computeBox(n.box, i)}
	}

	remaining := n.values[:0]
	for _, v := range n.values {
		vb := v.Bounds()
		if i := getQuadrant(n.box, vb); i != -1 {
			n.children[i].values = append(n.children[i].values, v)
		} else {
			remaining = append(remaining, v)
		}
	}
	n.values = remaining
}

// Remove deletes v (matched by identity via eq) from the tree. It reports
// whether a value was removed.
func (q *Quadtree) Remove(v Value, eq func(a, b Value) bool) bool {
	return remove(q.root, 0, v, eq)
}

func remove(n *node, depth int, v Value, eq func(a, b Value) bool) bool {
	vb := v.Bounds()
	if depth < MaxDepth && !n.isLeaf() {
		if i := getQuadrant(n.box, vb); i != -1 {
			if remove(n.children[i], depth+1, v, eq) {
				tryMerge(n)
				return true
			}
			return false
		}
	}

	return removeValue(n, v, eq)
}

func removeValue(n *node, v Value, eq func(a, b Value) bool) bool {
	for i, other := range n.values {
		if eq(other, v) {
			last := len(n.values) - 1
			n.values[i] = n.values[last]
			n.values = n.values[:last]
			return true
		}
	}
	return false
}

func tryMerge(n *node) {
	if n.isLeaf() {
		return
	}
	total := len(n.values)
	for _, c := range n.children {
		if !c.isLeaf() {
			return
		}
		total += len(c.values)
	}
	if total > Threshold {
		return
	}
	merged := n.values
	for _, c := range n.children {
		merged = append(merged, c.values...)
	}
	n.values = merged
	for i := range n.children {
		n.children[i] = nil
	}
}

// Query returns every value whose footprint is not entirely outside
// queryBox. Traversal order is unspecified.
func (q *Quadtree) Query(queryBox geom.Rect) []Value {
	var out []Value
	query(q.root, queryBox, &out)
	return out
}

func query(n *node, queryBox geom.Rect, out *[]Value) {
	for _, v := range n.values {
		if v.Bounds().Intersects(queryBox) {
			*out = append(*out, v)
		}
	}
	if n.isLeaf() {
		return
	}
	for _, c := range n.children {
		if !c.box.Outside(queryBox) {
			query(c, queryBox, out)
		}
	}
}
