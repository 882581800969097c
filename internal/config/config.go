// Package config loads .classnav.hcl.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/sirupsen/logrus"

	"github.com/agentic-research/classnav/api"
	"github.com/agentic-research/classnav/internal/classtree"
	"github.com/agentic-research/classnav/internal/controller"
	"github.com/agentic-research/classnav/internal/host"
	"github.com/agentic-research/classnav/internal/writeback"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = ".classnav.hcl"

// Config is the resolved configuration.
type Config struct {
	Extensions []string
	Validate   bool
	Devices    classtree.Devices
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Extensions: append([]string(nil), host.DefaultExtensions...),
		Validate:   true,
		Devices:    classtree.DefaultDevices(),
	}
}

// Load reads the configuration at path. An empty path means DefaultFile,
// which may be missing; an explicit path must exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	src, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(path, src)
}

// Parse decodes HCL source. filename is used for diagnostics and must end in
// .hcl (or .json for the JSON variant).
func Parse(filename string, src []byte) (Config, error) {
	var raw api.Config
	if err := hclsimple.Decode(filename, src, nil, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default()
	if len(raw.HTMLExtensions) > 0 {
		cfg.Extensions = raw.HTMLExtensions
	}
	if raw.Validate != nil {
		cfg.Validate = *raw.Validate
	}
	if len(raw.Devices) > 0 {
		cfg.Devices = make(classtree.Devices, 0, len(raw.Devices))
		for _, d := range raw.Devices {
			if d.Prefix == "" {
				return Config{}, fmt.Errorf("parse config: device block needs a non-empty prefix")
			}
			cfg.Devices = append(cfg.Devices, classtree.Device{Prefix: d.Prefix, Label: d.Label, Priority: d.Priority})
		}
	}
	return cfg, nil
}

// ControllerOptions wires the configuration into a controller. With
// Validate set, edits that add HTML syntax errors are refused.
func (c Config) ControllerOptions(log *logrus.Logger) []controller.Option {
	opts := []controller.Option{
		controller.WithLogger(log),
		controller.WithDevices(c.Devices),
	}
	if c.Validate {
		opts = append(opts, controller.WithValidator(func(before, after []byte) error {
			return writeback.Validate(before, after, "")
		}))
	}
	return opts
}
