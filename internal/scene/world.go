package scene

import (
	"encoding/gob"
	"io"

	"github.com/wtiles/navmesh/internal/collision"
	"github.com/wtiles/navmesh/internal/naverr"
)

// World aggregates the model registry, the scene, and the collision
// library, mirroring original_source/source/scene/World.h/.cpp. The
// asset importer and its XML/archive formats are out of scope
// (spec.md §1); World.Load/Save here exist only so build products
// roundtrip across processes in tests, using a plain gob encoding
// rather than reimplementing the importer's pugixml format.
type World struct {
	Models     map[uint32]*Model
	Collisions *collision.Library
	Scene      *Scene
}

type worldSnapshot struct {
	Models     map[uint32]*Model
	Placements []Placement
}

// Save writes the model registry and current placements to w.
func (wd *World) Save(w io.Writer) error {
	snap := worldSnapshot{Models: wd.Models}
	for _, n := range wd.Scene.Nodes() {
		snap.Placements = append(snap.Placements, n.Placement)
	}
	if err := gob.NewEncoder(w).Encode(snap); err != nil {
		return naverr.New(naverr.IO, "World.Save", err)
	}
	return nil
}

// Load reads a model registry and placement list from r and re-populates
// a fresh scene over DefaultWorldExtent.
func (wd *World) Load(r io.Reader) error {
	var snap worldSnapshot
	if err := gob.NewDecoder(r).Decode(&snap); err != nil {
		return naverr.New(naverr.InputInvalid, "World.Load", err)
	}
	wd.Models = snap.Models
	wd.Scene = New(DefaultWorldExtent, wd.Models, wd.Collisions, nil)
	for _, p := range snap.Placements {
		wd.Scene.AddNode(p)
	}
	return nil
}

// GetModelCollision resolves model -> collision mesh via the model
// registry and collision library (World.GetModelCollision).
func (wd *World) GetModelCollision(modelID uint32) *collision.Mesh {
	model := wd.Models[modelID]
	if model == nil {
		return nil
	}
	return wd.Collisions.Get(model.MeshRef)
}
