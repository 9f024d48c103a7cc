package collision

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wtiles/navmesh/internal/geom"
	"github.com/wtiles/navmesh/internal/streamio"
)

func writeMeshBlock(t *testing.T, buf *bytes.Buffer, version, name string,
	verts []Vertex, faces []Face, boxes [][2][3]float32) {
	t.Helper()

	var body bytes.Buffer
	nameBytes := make([]byte, nameFieldSize)
	copy(nameBytes, name)
	body.Write(nameBytes)

	require.NoError(t, streamio.WriteVec3(streamio.NewFileWriter(&body), [3]float32{-1, -1, -1}))
	require.NoError(t, streamio.WriteVec3(streamio.NewFileWriter(&body), [3]float32{1, 1, 1}))

	require.NoError(t, streamio.WriteI32(streamio.NewFileWriter(&body), int32(len(verts))))
	for _, v := range verts {
		for _, c := range v {
			require.NoError(t, streamio.WriteI16(streamio.NewFileWriter(&body), c))
		}
	}

	require.NoError(t, streamio.WriteI32(streamio.NewFileWriter(&body), int32(len(faces))))
	for _, f := range faces {
		w := streamio.NewFileWriter(&body)
		require.NoError(t, streamio.WriteU32(w, uint32(f.A)))
		require.NoError(t, streamio.WriteU32(w, uint32(f.B)))
		require.NoError(t, streamio.WriteU32(w, uint32(f.C)))
		require.NoError(t, streamio.WriteU8(w, f.Material))
		require.NoError(t, streamio.WriteU8(w, f.Light))
	}

	require.NoError(t, streamio.WriteI32(streamio.NewFileWriter(&body), int32(len(boxes))))
	for _, b := range boxes {
		w := streamio.NewFileWriter(&body)
		require.NoError(t, streamio.WriteVec3(w, b[0]))
		require.NoError(t, streamio.WriteVec3(w, b[1]))
	}

	buf.WriteString(version)
	require.NoError(t, streamio.WriteI32(streamio.NewFileWriter(buf), int32(body.Len())))
	buf.Write(body.Bytes())
}

func TestLibraryLoadSingleMesh(t *testing.T) {
	var buf bytes.Buffer
	writeMeshBlock(t, &buf, versionCOL3, "box", nil, nil, [][2][3]float32{
		{{0, 0, 0}, {128, 128, 128}},
	})

	lib := NewLibrary()
	r := streamio.NewFileReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, lib.Load(r))

	mesh := lib.Get("box")
	require.NotNil(t, mesh)
	assert.Len(t, mesh.Vertices, 8)
	assert.Len(t, mesh.Faces, 12)
}

func TestLibraryRejectsUnsupportedVersion(t *testing.T) {
	var buf bytes.Buffer
	writeMeshBlock(t, &buf, versionCOLL, "old", nil, nil, nil)

	lib := NewLibrary()
	r := streamio.NewFileReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	err := lib.Load(r)
	assert.Error(t, err)
}

func TestApplyModifierIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	writeMeshBlock(t, &buf, versionCOL3, "m", []Vertex{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		[]Face{{A: 0, B: 1, C: 2, Material: 5}}, nil)

	lib := NewLibrary()
	r := streamio.NewFileReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, lib.Load(r))

	ignored := map[uint8]struct{}{5: {}}
	removedFirst := lib.ApplyModifier(ignored)
	removedSecond := lib.ApplyModifier(ignored)

	assert.Equal(t, 1, removedFirst)
	assert.Equal(t, 0, removedSecond)
	assert.True(t, lib.Get("m").Empty())
}

func TestUnpackProducesValidIndices(t *testing.T) {
	mesh := &Mesh{
		Name:     "m",
		Vertices: []Vertex{{0, 0, 0}, {128, 0, 0}, {0, 128, 0}},
		Faces:    []Face{{A: 0, B: 1, C: 2}},
	}

	var verts []float32
	var indices []int32
	Unpack(mesh, geom.Identity4(), 10, &verts, &indices, true)

	assert.Equal(t, 9, len(verts))
	assert.Equal(t, []int32{10, 11, 12}, indices)
}
