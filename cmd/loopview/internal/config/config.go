package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/loopview/pkg/loopview"
	"github.com/go-drift/loopview/pkg/window"
)

// FileName is the optional configuration file read from the project root.
const FileName = "loopview.yaml"

// Backends accepted by host.backend.
const (
	BackendAuto   = "auto"
	BackendTerm   = "term"
	BackendEbiten = "ebiten"
	BackendRaster = "raster"
)

// Config represents the optional loopview.yaml configuration.
type Config struct {
	Window WindowConfig `yaml:"window"`
	Loop   LoopConfig   `yaml:"loop"`
	Host   HostConfig   `yaml:"host"`
}

// WindowConfig contains window defaults.
type WindowConfig struct {
	Title  string `yaml:"title,omitempty"`
	Width  uint32 `yaml:"width,omitempty"`
	Height uint32 `yaml:"height,omitempty"`
}

// LoopConfig contains event loop settings.
type LoopConfig struct {
	FrameInterval string `yaml:"frame_interval,omitempty"`
}

// HostConfig selects the host environment.
type HostConfig struct {
	Backend string `yaml:"backend,omitempty"`
}

// Resolved contains resolved configuration values.
type Resolved struct {
	Root          string
	ModulePath    string
	Title         string
	Width         uint32
	Height        uint32
	FrameInterval time.Duration
	Backend       string
}

// LoadOptional reads loopview.yaml if present.
func LoadOptional(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}

	return &cfg, nil
}

// Resolve loads loopview.yaml (if present) and resolves defaults. A missing
// go.mod is not an error; the title then falls back to the default.
func Resolve(dir string) (*Resolved, error) {
	modulePath, err := modulePath(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(cfg.Window.Title)
	if title == "" {
		title = defaultTitle(modulePath)
	}

	width := cfg.Window.Width
	if width == 0 {
		width = loopview.DefaultWidth
	}
	height := cfg.Window.Height
	if height == 0 {
		height = loopview.DefaultHeight
	}

	interval := window.DefaultFrameInterval
	if s := strings.TrimSpace(cfg.Loop.FrameInterval); s != "" {
		interval, err = time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("loop.frame_interval: %w", err)
		}
		if interval <= 0 {
			return nil, fmt.Errorf("loop.frame_interval must be positive (got %s)", s)
		}
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Host.Backend))
	if backend == "" {
		backend = BackendAuto
	}
	if err := ValidateBackend(backend); err != nil {
		return nil, err
	}

	return &Resolved{
		Root:          dir,
		ModulePath:    modulePath,
		Title:         title,
		Width:         width,
		Height:        height,
		FrameInterval: interval,
		Backend:       backend,
	}, nil
}

// ValidateBackend reports whether name is a known backend.
func ValidateBackend(name string) error {
	switch name {
	case BackendAuto, BackendTerm, BackendEbiten, BackendRaster:
		return nil
	default:
		return fmt.Errorf("unknown backend %q (use auto, term, ebiten or raster)", name)
	}
}

// FindProjectRoot walks up from the current directory to find go.mod. It
// returns the current directory when there is none.
func FindProjectRoot() (string, error) {
	start, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return start, nil
		}
		dir = parent
	}
}

func modulePath(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("failed to read go.mod: %w", err)
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("could not determine module path from go.mod")
	}
	return path, nil
}

func defaultTitle(modulePath string) string {
	if modulePath == "" {
		return loopview.DefaultAlt
	}
	prefix, _, ok := module.SplitPathVersion(modulePath)
	if !ok {
		prefix = modulePath
	}
	parts := strings.Split(prefix, "/")
	name := parts[len(parts)-1]
	if name == "" {
		return loopview.DefaultAlt
	}
	return name
}
