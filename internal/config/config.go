// Package config handles loading patcher configuration from files.
//
// Configuration can be specified in glslpatch.json, .glslpatchrc (JSON),
// glslpatch.toml or glslpatch.yaml. The config file is searched for in the
// current directory and parent directories.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/HugoDaniel/glslpatch/internal/params"
	"github.com/HugoDaniel/glslpatch/internal/patcher"
)

// Config represents the configuration file structure.
// All fields are optional and will use default values if not specified.
type Config struct {
	// MinifyWhitespace removes unnecessary whitespace and newlines
	MinifyWhitespace *bool `json:"minifyWhitespace,omitempty" toml:"minifyWhitespace" yaml:"minifyWhitespace"`

	// Validate reports legacy residue in patched output (default true)
	Validate *bool `json:"validate,omitempty" toml:"validate" yaml:"validate"`

	// StrictValidation fails a patch when validation finds anything
	StrictValidation *bool `json:"strictValidation,omitempty" toml:"strictValidation" yaml:"strictValidation"`

	// CacheSize bounds the injected fragment cache
	CacheSize *int `json:"cacheSize,omitempty" toml:"cacheSize" yaml:"cacheSize"`

	// Parallelism bounds concurrent jobs when patching a shader pack
	Parallelism *int `json:"parallelism,omitempty" toml:"parallelism" yaml:"parallelism"`

	// Defaults apply to every program
	Defaults Program `json:"defaults,omitempty" toml:"defaults" yaml:"defaults"`

	// Programs override Defaults per program name, e.g. "gbuffers_terrain"
	Programs map[string]Program `json:"programs,omitempty" toml:"programs" yaml:"programs"`
}

// Program describes how the stages of one program are patched.
type Program struct {
	// Patch is the patch kind ("attributes", "sodium-terrain", "vanilla",
	// "composite", "compute")
	Patch string `json:"patch,omitempty" toml:"patch" yaml:"patch"`

	// Attributes lists the vertex inputs the mesh provides
	Attributes []string `json:"attributes,omitempty" toml:"attributes" yaml:"attributes"`

	// AlphaTest is a function and reference, e.g. "GREATER 0.1"
	AlphaTest string `json:"alphaTest,omitempty" toml:"alphaTest" yaml:"alphaTest"`

	// ChunkOffset folds the chunk offset into the vertex position
	ChunkOffset *bool `json:"chunkOffset,omitempty" toml:"chunkOffset" yaml:"chunkOffset"`

	// TextureRenames maps sampler names to the names bound by the host
	TextureRenames map[string]string `json:"textureRenames,omitempty" toml:"textureRenames" yaml:"textureRenames"`
}

// DefaultParallelism is used when no parallelism is configured.
const DefaultParallelism = 4

// ConfigFileNames are the names searched for config files, in order of preference.
var ConfigFileNames = []string{
	"glslpatch.json",
	".glslpatchrc",
	".glslpatchrc.json",
	"glslpatch.toml",
	"glslpatch.yaml",
	"glslpatch.yml",
}

// Load searches for a config file starting from the given directory
// and walking up to parent directories. Returns nil if no config file is found.
func Load(startDir string) (*Config, string, error) {
	dir := startDir
	for {
		for _, name := range ConfigFileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				cfg, err := LoadFile(path)
				return cfg, path, err
			}
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root, no config found
			return nil, "", nil
		}
		dir = parent
	}
}

// LoadFile loads configuration from a specific file path. The format is
// chosen by extension; anything else is read as JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// ToOptions converts a Config to patcher.Options, using defaults for unset fields.
func (c *Config) ToOptions() patcher.Options {
	opts := patcher.DefaultOptions()
	if c == nil {
		return opts
	}

	if c.MinifyWhitespace != nil {
		opts.MinifyWhitespace = *c.MinifyWhitespace
	}
	if c.Validate != nil {
		opts.Validate = *c.Validate
	}
	if c.StrictValidation != nil {
		opts.StrictValidation = *c.StrictValidation
	}
	if c.CacheSize != nil {
		opts.CacheSize = *c.CacheSize
	}
	return opts
}

// ParallelismOrDefault returns the configured pack parallelism.
func (c *Config) ParallelismOrDefault() int {
	if c == nil || c.Parallelism == nil || *c.Parallelism <= 0 {
		return DefaultParallelism
	}
	return *c.Parallelism
}

// MergeOptions are CLI flags that override the config file.
type MergeOptions struct {
	// CLI flags (nil means not specified on CLI)
	MinifyWhitespace *bool
	StrictValidation *bool
	NoValidate       bool
	CacheSize        int
}

// Merge merges CLI options with config file options.
// CLI options override config file options when specified.
func (c *Config) Merge(cli MergeOptions) patcher.Options {
	opts := c.ToOptions()

	if cli.MinifyWhitespace != nil {
		opts.MinifyWhitespace = *cli.MinifyWhitespace
	}
	if cli.StrictValidation != nil {
		opts.StrictValidation = *cli.StrictValidation
	}
	if cli.NoValidate {
		opts.Validate = false
		opts.StrictValidation = false
	}
	if cli.CacheSize > 0 {
		opts.CacheSize = cli.CacheSize
	}
	return opts
}

// ----------------------------------------------------------------------------
// Programs
// ----------------------------------------------------------------------------

// Program returns the settings for a program: its entry in Programs
// layered over Defaults.
func (c *Config) Program(name string) Program {
	if c == nil {
		return Program{}
	}
	p := c.Defaults
	o, ok := c.Programs[name]
	if !ok {
		return p
	}
	if o.Patch != "" {
		p.Patch = o.Patch
	}
	if o.Attributes != nil {
		p.Attributes = o.Attributes
	}
	if o.AlphaTest != "" {
		p.AlphaTest = o.AlphaTest
	}
	if o.ChunkOffset != nil {
		p.ChunkOffset = o.ChunkOffset
	}
	if len(o.TextureRenames) > 0 {
		merged := make(map[string]string, len(p.TextureRenames)+len(o.TextureRenames))
		for k, v := range p.TextureRenames {
			merged[k] = v
		}
		for k, v := range o.TextureRenames {
			merged[k] = v
		}
		p.TextureRenames = merged
	}
	return p
}

// Parameters builds the job descriptor for one stage of this program. An
// empty patch kind selects fallback.
func (p Program) Parameters(stage params.Stage, fallback params.PatchKind) (params.Parameters, error) {
	kind := fallback
	if p.Patch != "" {
		k, err := params.ParsePatchKind(p.Patch)
		if err != nil {
			return params.Parameters{}, err
		}
		kind = k
	}

	opts := []params.Option{params.WithTextureRenames(p.TextureRenames)}
	if p.Attributes != nil {
		attrs, err := params.ParseAttributes(p.Attributes)
		if err != nil {
			return params.Parameters{}, err
		}
		opts = append(opts, params.WithAttributes(attrs))
	} else {
		opts = append(opts, params.WithAttributes(params.AttrAll))
	}
	if p.AlphaTest != "" {
		at, err := params.ParseAlphaTest(p.AlphaTest)
		if err != nil {
			return params.Parameters{}, err
		}
		opts = append(opts, params.WithAlphaTest(at))
	}
	if p.ChunkOffset != nil {
		opts = append(opts, params.WithChunkOffset(*p.ChunkOffset))
	}
	return params.New(stage, kind, opts...), nil
}
