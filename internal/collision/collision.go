// Package collision loads and unpacks the packed triangle-soup collision
// models that placements instantiate.
//
// Grounded on original_source/source/game/Collision.h/.cpp: a chained
// sequence of per-model blocks, each tagged with a 4-byte version ("COLL"
// is rejected, "COL2"/"COL3" are supported), a 22-byte fixed name field,
// bounding volumes, face/vertex arrays, and axis-aligned "col boxes" that
// get tessellated into 12 triangles apiece. Vertices are stored packed as
// int16 triples at a fixed 1/128 scale. Ingest swaps Y and Z on every
// vertex (and re-derives the AABB after the swap), establishing the
// Z-up internal convention from the Y-up on-disk format — this is the
// single coordinate-swap boundary spec.md §9 calls for.
package collision

import (
	"fmt"
	"io"

	"github.com/arl/gogeo/f32/d3"
	"github.com/wtiles/navmesh/internal/geom"
	"github.com/wtiles/navmesh/internal/naverr"
	"github.com/wtiles/navmesh/internal/streamio"
)

const (
	nameFieldSize   = 22
	vertexScale     = 1.0 / 128.0
	versionCOLL     = "COLL"
	versionCOL2     = "COL2"
	versionCOL3     = "COL3"
)

// Vertex is a packed, quantized vertex: int16 per axis at 1/128 scale.
type Vertex [3]int16

// Unpack returns the vertex as a float triple, unscaled.
func (v Vertex) Unpack() [3]float32 {
	return [3]float32{
		float32(v[0]) * vertexScale,
		float32(v[1]) * vertexScale,
		float32(v[2]) * vertexScale,
	}
}

// Face is a triangle: three vertex indices plus a material and a light byte.
type Face struct {
	A, B, C  uint16
	Material uint8
	Light    uint8
}

// Mesh is one named collision model's triangle soup.
type Mesh struct {
	Name     string
	Vertices []Vertex
	Faces    []Face
	AABB     geom.AABB
}

// Empty reports whether the mesh has no faces (e.g. after modifier
// filtering emptied it).
func (m *Mesh) Empty() bool {
	return len(m.Faces) == 0
}

// Library maps model name to its collision mesh; the file-level container
// ported from CollisionFile.
type Library struct {
	meshes map[string]*Mesh
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{meshes: make(map[string]*Mesh)}
}

// Get returns the mesh for name, or nil if not loaded.
func (l *Library) Get(name string) *Mesh {
	return l.meshes[name]
}

// Put registers mesh directly under its own name, bypassing Load's wire
// format. Used to build libraries programmatically (tests, or a
// collaborator that already has meshes in memory).
func (l *Library) Put(mesh *Mesh) {
	l.meshes[mesh.Name] = mesh
}

// Load reads a chain of per-model blocks from r until EOF, in the original
// source's scan loop: read a block, and if the stream isn't at EOF, seek
// back to just past the block's declared size and continue.
func (l *Library) Load(r streamio.Reader) error {
	for !r.EOF() {
		start, err := r.Tell()
		if err != nil {
			return naverr.New(naverr.IO, "collision.Load", err)
		}

		version, err := streamio.ReadFixedString(r, 4)
		if err != nil {
			return naverr.New(naverr.IO, "collision.Load", err)
		}
		fileSize, err := streamio.ReadI32(r)
		if err != nil {
			return naverr.New(naverr.IO, "collision.Load", err)
		}

		switch version {
		case versionCOLL:
			return naverr.New(naverr.InputInvalid, "collision.Load",
				fmt.Errorf("unsupported collision version %q", version))
		case versionCOL2, versionCOL3:
			mesh, err := loadMesh(r)
			if err != nil {
				return err
			}
			l.meshes[mesh.Name] = mesh
		default:
			return naverr.New(naverr.InputInvalid, "collision.Load",
				fmt.Errorf("unrecognized collision block tag %q", version))
		}

		if _, err := r.Seek(start+8+int64(fileSize), io.SeekStart); err != nil {
			return naverr.New(naverr.IO, "collision.Load", err)
		}
	}
	return nil
}

func loadMesh(r streamio.Reader) (*Mesh, error) {
	name, err := streamio.ReadFixedString(r, nameFieldSize)
	if err != nil {
		return nil, naverr.New(naverr.IO, "collision.loadMesh", err)
	}

	min, max, err := streamio.ReadAABB(r)
	if err != nil {
		return nil, naverr.New(naverr.IO, "collision.loadMesh", err)
	}

	// The "faces section present" flag is dead code in the original
	// source (always true at runtime; see SPEC_FULL.md §4.3) — we always
	// read it.
	numVerts, err := streamio.ReadI32(r)
	if err != nil {
		return nil, naverr.New(naverr.IO, "collision.loadMesh", err)
	}
	verts := make([]Vertex, numVerts)
	for i := range verts {
		var v Vertex
		for axis := 0; axis < 3; axis++ {
			c, err := streamio.ReadI16(r)
			if err != nil {
				return nil, naverr.New(naverr.IO, "collision.loadMesh", err)
			}
			v[axis] = c
		}
		verts[i] = v
	}

	numFaces, err := streamio.ReadI32(r)
	if err != nil {
		return nil, naverr.New(naverr.IO, "collision.loadMesh", err)
	}
	faces := make([]Face, 0, numFaces)
	for i := int32(0); i < numFaces; i++ {
		a, _ := streamio.ReadU32(r)
		b, _ := streamio.ReadU32(r)
		c, _ := streamio.ReadU32(r)
		mat, _ := streamio.ReadU8(r)
		light, err := streamio.ReadU8(r)
		if err != nil {
			return nil, naverr.New(naverr.IO, "collision.loadMesh", err)
		}
		faces = append(faces, Face{A: uint16(a), B: uint16(b), C: uint16(c), Material: mat, Light: light})
	}

	numBoxes, err := streamio.ReadI32(r)
	if err != nil {
		return nil, naverr.New(naverr.IO, "collision.loadMesh", err)
	}
	for i := int32(0); i < numBoxes; i++ {
		bmin, bmax, err := streamio.ReadAABB(r)
		if err != nil {
			return nil, naverr.New(naverr.IO, "collision.loadMesh", err)
		}
		pushCollisionBox(&verts, &faces, bmin, bmax)
	}

	mesh := &Mesh{Name: name, Vertices: verts, Faces: faces}
	mesh.AABB = geom.AABB{Min: d3.NewVec3XYZ(min[0], min[1], min[2]), Max: d3.NewVec3XYZ(max[0], max[1], max[2])}

	// Y-Z swap on ingest: external is Y-up, internal is Z-up. Applied here,
	// once, at the load boundary — never mid-pipeline.
	swapMeshYZ(mesh)

	return mesh, nil
}

// pushCollisionBox tessellates an AABB into 8 packed vertices and 12
// triangles (2 per face), appended to verts/faces.
func pushCollisionBox(verts *[]Vertex, faces *[]Face, bmin, bmax [3]float32) {
	base := uint16(len(*verts))
	corners := [8][3]float32{
		{bmin[0], bmin[1], bmin[2]}, {bmax[0], bmin[1], bmin[2]},
		{bmax[0], bmax[1], bmin[2]}, {bmin[0], bmax[1], bmin[2]},
		{bmin[0], bmin[1], bmax[2]}, {bmax[0], bmin[1], bmax[2]},
		{bmax[0], bmax[1], bmax[2]}, {bmin[0], bmax[1], bmax[2]},
	}
	for _, c := range corners {
		*verts = append(*verts, Vertex{
			int16(c[0] / vertexScale),
			int16(c[1] / vertexScale),
			int16(c[2] / vertexScale),
		})
	}

	// 6 faces * 2 triangles, CCW winding per face.
	quads := [6][4]uint16{
		{0, 1, 2, 3}, // bottom
		{4, 5, 6, 7}, // top
		{0, 1, 5, 4}, // front
		{2, 3, 7, 6}, // back
		{1, 2, 6, 5}, // right
		{3, 0, 4, 7}, // left
	}
	for _, q := range quads {
		*faces = append(*faces,
			Face{A: base + q[0], B: base + q[1], C: base + q[2]},
			Face{A: base + q[0], B: base + q[2], C: base + q[3]},
		)
	}
}

func swapMeshYZ(m *Mesh) {
	for i, v := range m.Vertices {
		m.Vertices[i] = Vertex{v[0], v[2], v[1]}
	}
	min, max := m.AABB.Min, m.AABB.Max
	m.AABB = geom.AABB{
		Min: d3.NewVec3XYZ(min[0], min[2], min[1]),
		Max: d3.NewVec3XYZ(max[0], max[2], max[1]),
	}
}

// ApplyModifier erases faces whose material byte is in ignoredMaterials,
// then empties any mesh left with zero faces. Returns the number of faces
// removed, for idempotence assertions (applying the same modifier twice
// removes zero the second time).
func (l *Library) ApplyModifier(ignoredMaterials map[uint8]struct{}) int {
	removed := 0
	for _, mesh := range l.meshes {
		kept := mesh.Faces[:0]
		for _, f := range mesh.Faces {
			if _, bad := ignoredMaterials[f.Material]; bad {
				removed++
				continue
			}
			kept = append(kept, f)
		}
		mesh.Faces = kept
	}
	return removed
}

// Unpack decodes mesh's packed vertices, applies transform, and appends
// the resulting float vertices/indices to dstVerts/dstIndices with indices
// offset by startIndex. This is the only bridge from packed collision
// storage to the float triangle soup the tile builder rasterizes. If
// clear is true, dstVerts/dstIndices are truncated to empty first.
func Unpack(mesh *Mesh, transform geom.Mat4, startIndex int, dstVerts *[]float32, dstIndices *[]int32, clear bool) {
	if clear {
		*dstVerts = (*dstVerts)[:0]
		*dstIndices = (*dstIndices)[:0]
	}
	for _, v := range mesh.Vertices {
		p := v.Unpack()
		tp := transform.Transform(d3.NewVec3XYZ(p[0], p[1], p[2]))
		*dstVerts = append(*dstVerts, tp[0], tp[1], tp[2])
	}
	for _, f := range mesh.Faces {
		*dstIndices = append(*dstIndices,
			int32(f.A)+int32(startIndex),
			int32(f.B)+int32(startIndex),
			int32(f.C)+int32(startIndex),
		)
	}
}
