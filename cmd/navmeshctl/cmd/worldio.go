package cmd

import (
	"fmt"
	"os"

	"github.com/wtiles/navmesh/internal/collision"
	"github.com/wtiles/navmesh/internal/scene"
	"github.com/wtiles/navmesh/internal/streamio"
)

// loadWorld assembles a scene.World from a gob-encoded placement
// snapshot (worldPath, written by scene.World.Save) and a binary
// collision library (collPath, the original source's .col wire format).
func loadWorld(worldPath, collPath string) (*scene.World, error) {
	lib := collision.NewLibrary()
	if collPath != "" {
		f, err := os.Open(collPath)
		if err != nil {
			return nil, fmt.Errorf("opening collision library: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("stat collision library: %w", err)
		}
		if err := lib.Load(streamio.NewFileReader(f, info.Size())); err != nil {
			return nil, fmt.Errorf("loading collision library: %w", err)
		}
	}

	world := &scene.World{Collisions: lib}
	if worldPath != "" {
		f, err := os.Open(worldPath)
		if err != nil {
			return nil, fmt.Errorf("opening world snapshot: %w", err)
		}
		defer f.Close()
		if err := world.Load(f); err != nil {
			return nil, fmt.Errorf("loading world snapshot: %w", err)
		}
	} else {
		world.Scene = scene.New(scene.DefaultWorldExtent, world.Models, lib, nil)
	}
	return world, nil
}
