// Package geom provides the axis-aligned box, 2D rect, and vector
// primitives shared by the scene store, quadtree, collision library, and
// tile builder.
package geom

import (
	"github.com/arl/gogeo/f32/d3"
	"github.com/arl/math32"
)

// Vec3 is a 3-component world-space point or direction.
type Vec3 = d3.Vec3

// AABB is an axis-aligned bounding box in world space (Z-up internally).
type AABB struct {
	Min, Max Vec3
}

// NewAABB returns the empty (inverted) box, ready to be grown with Encapsulate.
func NewAABB() AABB {
	return AABB{
		Min: d3.NewVec3XYZ(math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32),
		Max: d3.NewVec3XYZ(-math32.MaxFloat32, -math32.MaxFloat32, -math32.MaxFloat32),
	}
}

// Encapsulate grows the box, in place, to contain p.
func (b *AABB) Encapsulate(p Vec3) {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

// Merge grows the box, in place, to contain o.
func (b *AABB) Merge(o AABB) {
	b.Encapsulate(o.Min)
	b.Encapsulate(o.Max)
}

// Contains reports whether p lies within the box, inclusive of the boundary.
func (b AABB) Contains(p Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

// Overlaps reports whether b and o intersect.
func (b AABB) Overlaps(o AABB) bool {
	if b.Max[0] < o.Min[0] || b.Min[0] > o.Max[0] {
		return false
	}
	if b.Max[1] < o.Min[1] || b.Min[1] > o.Max[1] {
		return false
	}
	if b.Max[2] < o.Min[2] || b.Min[2] > o.Max[2] {
		return false
	}
	return true
}

// Center returns the box's midpoint.
func (b AABB) Center() Vec3 {
	return d3.NewVec3XYZ(
		(b.Min[0]+b.Max[0])*0.5,
		(b.Min[1]+b.Max[1])*0.5,
		(b.Min[2]+b.Max[2])*0.5,
	)
}

// DistSqrToPoint returns the squared distance from the box's center to p,
// the metric used to disambiguate overlapping NavAreas when tagging a
// path point.
func (b AABB) DistSqrToPoint(p Vec3) float32 {
	return b.Center().DistSqr(p)
}

// Corners returns the 8 corners of the box, in no particular order.
func (b AABB) Corners() [8]Vec3 {
	return [8]Vec3{
		d3.NewVec3XYZ(b.Min[0], b.Min[1], b.Min[2]),
		d3.NewVec3XYZ(b.Max[0], b.Min[1], b.Min[2]),
		d3.NewVec3XYZ(b.Min[0], b.Max[1], b.Min[2]),
		d3.NewVec3XYZ(b.Max[0], b.Max[1], b.Min[2]),
		d3.NewVec3XYZ(b.Min[0], b.Min[1], b.Max[2]),
		d3.NewVec3XYZ(b.Max[0], b.Min[1], b.Max[2]),
		d3.NewVec3XYZ(b.Min[0], b.Max[1], b.Max[2]),
		d3.NewVec3XYZ(b.Max[0], b.Max[1], b.Max[2]),
	}
}

// Mat4 is a column-major 4x4 transform, matching the placement/transform
// shape consumed throughout the scene store and collision unpacking.
type Mat4 [16]float32

// Identity4 returns the identity transform.
func Identity4() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Transform applies m to point p (w=1), returning the transformed point.
func (m Mat4) Transform(p Vec3) Vec3 {
	x, y, z := p[0], p[1], p[2]
	return d3.NewVec3XYZ(
		m[0]*x+m[4]*y+m[8]*z+m[12],
		m[1]*x+m[5]*y+m[9]*z+m[13],
		m[2]*x+m[6]*y+m[10]*z+m[14],
	)
}

// TransformAABB transforms all 8 corners of b through m and returns the
// AABB of the resulting point cloud. Grounded on the original source's
// Scene::ApplyTransform (original_source/source/scene/Scene.cpp).
func TransformAABB(b AABB, m Mat4) AABB {
	out := NewAABB()
	for _, c := range b.Corners() {
		out.Encapsulate(m.Transform(c))
	}
	return out
}

// Rect is a 2D axis-aligned rectangle on the XZ plane, the footprint type
// stored in the quadtree.
type Rect struct {
	Min, Max [2]float32 // [x, z]
}

// NewRect builds a rect from explicit bounds.
func NewRect(minX, minZ, maxX, maxZ float32) Rect {
	return Rect{Min: [2]float32{minX, minZ}, Max: [2]float32{maxX, maxZ}}
}

// RectFromAABB projects a 3D box onto the XZ plane.
func RectFromAABB(b AABB) Rect {
	return NewRect(b.Min[0], b.Min[2], b.Max[0], b.Max[2])
}

// Contains reports whether o lies entirely within r.
func (r Rect) Contains(o Rect) bool {
	return o.Min[0] >= r.Min[0] && o.Max[0] <= r.Max[0] &&
		o.Min[1] >= r.Min[1] && o.Max[1] <= r.Max[1]
}

// Intersects reports whether r and o share any area.
func (r Rect) Intersects(o Rect) bool {
	if r.Max[0] < o.Min[0] || r.Min[0] > o.Max[0] {
		return false
	}
	if r.Max[1] < o.Min[1] || r.Min[1] > o.Max[1] {
		return false
	}
	return true
}

// Outside reports whether r and o are entirely disjoint; the complement of
// Intersects, kept as a separate method since query pruning reads more
// naturally phrased as "is this child entirely outside the query box".
func (r Rect) Outside(o Rect) bool {
	return !r.Intersects(o)
}

// Center returns the rect's midpoint.
func (r Rect) Center() [2]float32 {
	return [2]float32{(r.Min[0] + r.Max[0]) / 2, (r.Min[1] + r.Max[1]) / 2}
}

// SwapYZ converts between the external Y-up convention and the internal
// Z-up convention. It is its own inverse and must be applied exactly once
// at each external boundary (spec.md design note on coordinate swaps).
func SwapYZ(p Vec3) Vec3 {
	return d3.NewVec3XYZ(p[0], p[2], p[1])
}
