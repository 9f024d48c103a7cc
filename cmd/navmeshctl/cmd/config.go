package cmd

import (
	"os"

	"gopkg.in/yaml.v2"

	"github.com/wtiles/navmesh/internal/build"
)

// buildSettings is the YAML-loadable form of build.Config.
type buildSettings struct {
	CellSize             float32 `yaml:"cell_size"`
	CellHeight           float32 `yaml:"cell_height"`
	AgentHeight          float32 `yaml:"agent_height"`
	AgentMaxClimb        float32 `yaml:"agent_max_climb"`
	AgentRadius          float32 `yaml:"agent_radius"`
	AgentMaxSlope        float32 `yaml:"agent_max_slope"`
	EdgeMaxLength        float32 `yaml:"edge_max_length"`
	EdgeMaxError         float32 `yaml:"edge_max_error"`
	RegionMinSize        float32 `yaml:"region_min_size"`
	RegionMergeSize      float32 `yaml:"region_merge_size"`
	TileSize             int32   `yaml:"tile_size"`
	DetailSampleDistance float32 `yaml:"detail_sample_distance"`
	DetailSampleMaxError float32 `yaml:"detail_sample_max_error"`
	MaxLayers            int32   `yaml:"max_layers"`
	MaxVertsPerPoly      int32   `yaml:"max_verts_per_poly"`
}

func settingsFromConfig(cfg build.Config) buildSettings {
	return buildSettings{
		CellSize:             cfg.CellSize,
		CellHeight:           cfg.CellHeight,
		AgentHeight:          cfg.AgentHeight,
		AgentMaxClimb:        cfg.AgentMaxClimb,
		AgentRadius:          cfg.AgentRadius,
		AgentMaxSlope:        cfg.AgentMaxSlope,
		EdgeMaxLength:        cfg.EdgeMaxLength,
		EdgeMaxError:         cfg.EdgeMaxError,
		RegionMinSize:        cfg.RegionMinSize,
		RegionMergeSize:      cfg.RegionMergeSize,
		TileSize:             cfg.TileSize,
		DetailSampleDistance: cfg.DetailSampleDistance,
		DetailSampleMaxError: cfg.DetailSampleMaxError,
		MaxLayers:            cfg.MaxLayers,
		MaxVertsPerPoly:      cfg.MaxVertsPerPoly,
	}
}

func (s buildSettings) toConfig() build.Config {
	return build.Config{
		CellSize:             s.CellSize,
		CellHeight:           s.CellHeight,
		AgentHeight:          s.AgentHeight,
		AgentMaxClimb:        s.AgentMaxClimb,
		AgentRadius:          s.AgentRadius,
		AgentMaxSlope:        s.AgentMaxSlope,
		EdgeMaxLength:        s.EdgeMaxLength,
		EdgeMaxError:         s.EdgeMaxError,
		RegionMinSize:        s.RegionMinSize,
		RegionMergeSize:      s.RegionMergeSize,
		TileSize:             s.TileSize,
		DetailSampleDistance: s.DetailSampleDistance,
		DetailSampleMaxError: s.DetailSampleMaxError,
		MaxLayers:            s.MaxLayers,
		Partition:            build.PartitionMonotone,
		MaxVertsPerPoly:      s.MaxVertsPerPoly,
	}
}

func loadBuildConfig(path string) (build.Config, error) {
	if path == "" {
		return build.DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return build.Config{}, err
	}
	var s buildSettings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return build.Config{}, err
	}
	return s.toConfig(), nil
}

func writeDefaultBuildConfig(path string) error {
	data, err := yaml.Marshal(settingsFromConfig(build.DefaultConfig()))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
