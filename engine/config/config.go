package config

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"runtime"

	"github.com/pelletier/go-toml/v2"
)

// ApplicationConfig carries everything the application host needs to come
// up: window placement, logging, asset location, and the tuning knobs of
// the resource pipeline.
type ApplicationConfig struct {
	Title     string `toml:"title"`
	StartPosX int    `toml:"start_pos_x"`
	StartPosY int    `toml:"start_pos_y"`
	Width     uint32 `toml:"width"`
	Height    uint32 `toml:"height"`

	LogLevel  string `toml:"log_level"`
	AssetRoot string `toml:"asset_root"`

	// Headless skips the platform window and renders into the counting
	// backend. Used by tests and CI.
	Headless bool `toml:"headless"`

	// LoaderWorkers is the async loader pool size; zero or negative means
	// one worker per CPU.
	LoaderWorkers int `toml:"loader_workers"`

	// UploadBudget caps how many completed load tasks the host finalizes
	// per frame.
	UploadBudget int `toml:"upload_budget"`

	// ResourceSweepFrames is how many consecutive frames a resource must
	// sit unreferenced before the cleanup sweep evicts it.
	ResourceSweepFrames uint64 `toml:"resource_sweep_frames"`

	TargetFPS int `toml:"target_fps"`
}

// Default returns the configuration the engine runs with when no file is
// given.
func Default() ApplicationConfig {
	return ApplicationConfig{
		Title:               "Penumbra",
		StartPosX:           100,
		StartPosY:           100,
		Width:               1280,
		Height:              720,
		LogLevel:            "info",
		AssetRoot:           "assets",
		LoaderWorkers:       runtime.NumCPU(),
		UploadBudget:        16,
		ResourceSweepFrames: 120,
		TargetFPS:           60,
	}
}

// Load reads a TOML configuration file. Missing fields fall back to the
// Default values; unknown keys are an error.
func Load(path string) (ApplicationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ApplicationConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return parse(data, path)
}

// LoadFS is Load over an fs.FS, mainly for tests.
func LoadFS(fsys fs.FS, path string) (ApplicationConfig, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return ApplicationConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return parse(data, path)
}

func parse(data []byte, path string) (ApplicationConfig, error) {
	var cfg ApplicationConfig
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return ApplicationConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults fills zero fields. Window position is left alone: zero is
// a valid placement.
func (c *ApplicationConfig) applyDefaults() {
	def := Default()
	if c.Title == "" {
		c.Title = def.Title
	}
	if c.Width == 0 {
		c.Width = def.Width
	}
	if c.Height == 0 {
		c.Height = def.Height
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.AssetRoot == "" {
		c.AssetRoot = def.AssetRoot
	}
	if c.LoaderWorkers <= 0 {
		c.LoaderWorkers = def.LoaderWorkers
	}
	if c.UploadBudget <= 0 {
		c.UploadBudget = def.UploadBudget
	}
	if c.ResourceSweepFrames == 0 {
		c.ResourceSweepFrames = def.ResourceSweepFrames
	}
	if c.TargetFPS <= 0 {
		c.TargetFPS = def.TargetFPS
	}
}
