// Package config loads the flowc project file (flowc.toml).
//
// A project groups flows by platform:
//
//	[settings]
//	output_directory = "bundled"
//
//	[[platforms]]
//	name = "web"
//	description = "Browser flows"
//
//	  [[platforms.flows]]
//	  name = "Checkout"
//	  alias = "checkout"
//	  description = "Pays for the cart"
//	  path = "flows/checkout.lua"
//
// Relative paths in the file (flow paths, the output directory, definition
// files and the version file) are interpreted relative to the directory
// containing flowc.toml.
package config

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/flowc/pkg/errors"
	"github.com/matzehuels/flowc/pkg/paths"
)

// DefaultFile is the project file name looked up when --config is not set.
const DefaultFile = "flowc.toml"

// DefaultVersionFile is the gate table read when settings.version_file is
// not set.
const DefaultVersionFile = "version_file.json"

// BundleExtension is appended to a flow alias to form its bundle file name.
const BundleExtension = ".bundle.luau"

// Config is a parsed project file.
type Config struct {
	Settings  Settings   `toml:"settings"`
	Platforms []Platform `toml:"platforms"`

	dir string
}

// Settings holds project-wide options.
type Settings struct {
	OutputDirectory string   `toml:"output_directory"`
	DefinitionFiles []string `toml:"definition_files"`
	VersionFile     string   `toml:"version_file"`
}

// Platform is a named group of flows.
type Platform struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Flows       []Flow `toml:"flows"`
}

// Flow is one entry point that is bundled and versioned on its own.
type Flow struct {
	Name          string   `toml:"name"`
	Alias         string   `toml:"alias"`
	Description   string   `toml:"description"`
	MinSdkVersion string   `toml:"minSdkVersion"`
	Retrieves     []string `toml:"retrieves"`
	Path          string   `toml:"path"`
}

// FlowRef pairs a flow with the platform that declares it.
type FlowRef struct {
	Platform *Platform
	Flow     *Flow
}

// Load reads and validates the project file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "project file %s", path)
		}
		return nil, err
	}
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	return Parse(data, abs)
}

// Parse decodes a project file whose relative paths resolve against dir.
func Parse(data []byte, dir string) (*Config, error) {
	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode project file")
	}
	c.dir = dir
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks required settings and flow identity. Every problem found
// is reported in one INVALID_CONFIG error.
func (c *Config) Validate() error {
	var errs []error
	if c.Settings.OutputDirectory == "" {
		errs = append(errs, errors.New(errors.ErrCodeInvalidConfig, "settings.output_directory is required"))
	}

	seen := make(map[string]string)
	for _, p := range c.Platforms {
		for _, f := range p.Flows {
			if err := errors.ValidateAlias(f.Alias); err != nil {
				errs = append(errs, errors.Wrap(errors.ErrCodeInvalidConfig, err, "platform %q flow %q", p.Name, f.Name))
				continue
			}
			if prev, dup := seen[f.Alias]; dup {
				errs = append(errs, errors.New(errors.ErrCodeInvalidConfig,
					"alias %q used by platform %q and platform %q", f.Alias, prev, p.Name))
			}
			seen[f.Alias] = p.Name

			if err := errors.ValidatePath(f.Path); err != nil {
				errs = append(errs, errors.Wrap(errors.ErrCodeInvalidConfig, err, "flow %q", f.Alias))
			}
		}
	}
	return errors.Join(errors.ErrCodeInvalidConfig, "invalid project file", errs...)
}

// Dir returns the directory relative paths resolve against.
func (c *Config) Dir() string { return c.dir }

// Flows returns every flow in declaration order.
func (c *Config) Flows() []FlowRef {
	var out []FlowRef
	for i := range c.Platforms {
		p := &c.Platforms[i]
		for j := range p.Flows {
			out = append(out, FlowRef{Platform: p, Flow: &p.Flows[j]})
		}
	}
	return out
}

// Flow looks up a flow by alias.
func (c *Config) Flow(alias string) (FlowRef, bool) {
	for _, ref := range c.Flows() {
		if ref.Flow.Alias == alias {
			return ref, true
		}
	}
	return FlowRef{}, false
}

// FlowPaths returns the normalized, de-duplicated entry paths of every flow,
// relative to Dir, sorted.
func (c *Config) FlowPaths() []string {
	byPath := c.AliasesByPath()
	out := make([]string, 0, len(byPath))
	for p := range byPath {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// AliasesByPath maps each normalized flow path to the aliases declared for
// it. Several flows may share one source file.
func (c *Config) AliasesByPath() map[string][]string {
	out := make(map[string][]string)
	for _, ref := range c.Flows() {
		p := paths.Normalize(ref.Flow.Path)
		out[p] = append(out[p], ref.Flow.Alias)
	}
	return out
}

// OutputDir returns the absolute bundle output directory.
func (c *Config) OutputDir() string { return c.abs(c.Settings.OutputDirectory) }

// BundlePath returns where the bundle for alias is written.
func (c *Config) BundlePath(alias string) string {
	return filepath.Join(c.OutputDir(), alias+BundleExtension)
}

// VersionFilePath returns the gate table location.
func (c *Config) VersionFilePath() string {
	if c.Settings.VersionFile != "" {
		return c.abs(c.Settings.VersionFile)
	}
	return filepath.Join(c.dir, DefaultVersionFile)
}

// DefinitionFiles returns the type definition files with absolute paths.
func (c *Config) DefinitionFiles() []string {
	out := make([]string, len(c.Settings.DefinitionFiles))
	for i, f := range c.Settings.DefinitionFiles {
		out[i] = c.abs(f)
	}
	return out
}

// LockPath returns the path of a lock file (versions.lock, hashes.lock)
// beside the project file.
func (c *Config) LockPath(name string) string {
	return filepath.Join(c.dir, name)
}

func (c *Config) abs(p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.dir, p)
}
