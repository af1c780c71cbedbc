// Command glslpatch rewrites legacy GLSL shaders into core-profile GLSL.
//
// Usage:
//
//	glslpatch [options] <input.{vsh,tcs,tes,gsh,fsh,csh}>
//	cat input.fsh | glslpatch -stage fragment [options]
//	glslpatch -pack <dir> -out <dir> [options]
//
// Config file:
//
//	glslpatch looks for glslpatch.json, .glslpatchrc, glslpatch.toml or
//	glslpatch.yaml in the input directory and its parents. Config file
//	options are overridden by CLI flags.
//
// Example glslpatch.toml:
//
//	strictValidation = true
//
//	[defaults]
//	attributes = ["texcoord", "lightmap", "color", "normal"]
//
//	[programs.gbuffers_terrain]
//	patch = "sodium-terrain"
//	chunkOffset = true
//	alphaTest = "GREATER 0.1"
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/HugoDaniel/glslpatch/internal/config"
	"github.com/HugoDaniel/glslpatch/internal/pack"
	"github.com/HugoDaniel/glslpatch/internal/params"
	"github.com/HugoDaniel/glslpatch/internal/patcher"

	_ "github.com/tliron/commonlog/simple"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	if err := run(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

// flags holds the parsed command line.
type flags struct {
	outputFile  string
	configFile  string
	noConfig    bool
	stage       string
	patch       string
	attributes  string
	alphaTest   string
	chunkOffset bool
	renames     string
	minify      bool
	strict      bool
	noValidate  bool
	reflectFile string
	mapFile     string
	packDir     string
	outDir      string
	parallelism int
	verbose     int
	quiet       bool
	showVersion bool
	showHelp    bool
}

func parseFlags() *flags {
	f := &flags{}
	flag.StringVar(&f.outputFile, "o", "", "Write output to `file`")
	flag.StringVar(&f.configFile, "config", "", "Use specific config `file`")
	flag.BoolVar(&f.noConfig, "no-config", false, "Ignore config files")
	flag.StringVar(&f.stage, "stage", "", "Shader `stage` (vertex, fragment, ... or vsh, fsh, ...)")
	flag.StringVar(&f.patch, "patch", "", "Patch `kind`: attributes, sodium-terrain, vanilla, composite, compute")
	flag.StringVar(&f.attributes, "attributes", "", "Comma-separated vertex `attributes` the mesh provides")
	flag.StringVar(&f.alphaTest, "alpha-test", "", "Emulated alpha `test`, e.g. \"GREATER 0.1\"")
	flag.BoolVar(&f.chunkOffset, "chunk-offset", false, "Add the terrain chunk offset to vertex positions")
	flag.StringVar(&f.renames, "texture-rename", "", "Comma-separated sampler `renames` (from=to)")
	flag.BoolVar(&f.minify, "minify-whitespace", false, "Remove unnecessary whitespace")
	flag.BoolVar(&f.strict, "strict", false, "Fail if any legacy construct survives patching")
	flag.BoolVar(&f.noValidate, "no-validate", false, "Skip validation of the patched output")
	flag.StringVar(&f.reflectFile, "reflect", "", "Write the reflected interface as JSON to `file`")
	flag.StringVar(&f.mapFile, "source-map", "", "Write a source map of the patched output to `file`")
	flag.StringVar(&f.packDir, "pack", "", "Patch every stage of the shader pack in `dir`")
	flag.StringVar(&f.outDir, "out", "", "Write patched pack stages to `dir`")
	flag.IntVar(&f.parallelism, "j", 0, "Stages patched concurrently in pack mode")
	flag.IntVar(&f.verbose, "v", 0, "Log `verbosity` (0-2)")
	flag.BoolVar(&f.quiet, "q", false, "Do not print warnings")
	flag.BoolVar(&f.showVersion, "version", false, "Print version and exit")
	flag.BoolVar(&f.showHelp, "help", false, "Print help and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "glslpatch - legacy GLSL to core profile v%s\n\n", version)
		fmt.Fprintf(os.Stderr, "Usage: glslpatch [options] <input.fsh>\n")
		fmt.Fprintf(os.Stderr, "       cat input.fsh | glslpatch -stage fragment [options]\n")
		fmt.Fprintf(os.Stderr, "       glslpatch -pack <dir> -out <dir> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nConfig file:\n")
		fmt.Fprintf(os.Stderr, "  Searches for glslpatch.json, .glslpatchrc, glslpatch.toml or glslpatch.yaml\n")
		fmt.Fprintf(os.Stderr, "  in the input directory and its parents. CLI flags override config file settings.\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  glslpatch gbuffers_terrain.vsh -o patched.vsh\n")
		fmt.Fprintf(os.Stderr, "  glslpatch -patch composite -stage fsh < composite.fsh\n")
		fmt.Fprintf(os.Stderr, "  glslpatch -pack shaders -out build/shaders -j 8\n")
	}

	flag.Parse()
	return f
}

func run() error {
	f := parseFlags()

	if f.showHelp {
		flag.Usage()
		return nil
	}
	if f.showVersion {
		fmt.Printf("glslpatch v%s (%s)\n", version, commit)
		return nil
	}

	commonlog.Configure(f.verbose, nil)

	startDir, _ := os.Getwd()
	switch {
	case f.packDir != "":
		startDir = f.packDir
	case flag.NArg() > 0:
		startDir = filepath.Dir(flag.Arg(0))
	}
	cfg, err := loadConfig(f, startDir)
	if err != nil {
		return err
	}

	cli := config.MergeOptions{NoValidate: f.noValidate}
	if f.minify {
		cli.MinifyWhitespace = &f.minify
	}
	if f.strict {
		cli.StrictValidation = &f.strict
	}
	opts := cfg.Merge(cli)
	opts.Reflect = f.reflectFile != ""
	opts.SourceMap = f.mapFile != ""

	p, err := patcher.New(opts)
	if err != nil {
		return err
	}

	if f.packDir != "" {
		return runPack(f, cfg, p)
	}
	return runFile(f, cfg, p)
}

func loadConfig(f *flags, startDir string) (*config.Config, error) {
	if f.noConfig {
		return nil, nil
	}
	if f.configFile != "" {
		cfg, err := config.LoadFile(f.configFile)
		if err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", f.configFile, err)
		}
		return cfg, nil
	}
	cfg, path, err := config.Load(startDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if path != "" {
		printInfo("config", path)
	}
	return cfg, nil
}

// applyFlags layers the job flags over a program's configured settings.
func applyFlags(f *flags, p config.Program) (config.Program, error) {
	if f.patch != "" {
		p.Patch = f.patch
	}
	if f.attributes != "" {
		p.Attributes = splitList(f.attributes)
	}
	if f.alphaTest != "" {
		p.AlphaTest = f.alphaTest
	}
	if f.chunkOffset {
		p.ChunkOffset = &f.chunkOffset
	}
	if f.renames != "" {
		merged := make(map[string]string, len(p.TextureRenames))
		for k, v := range p.TextureRenames {
			merged[k] = v
		}
		for _, pair := range splitList(f.renames) {
			from, to, ok := strings.Cut(pair, "=")
			if !ok || from == "" || to == "" {
				return p, fmt.Errorf("invalid texture rename %q (want from=to)", pair)
			}
			merged[strings.TrimSpace(from)] = strings.TrimSpace(to)
		}
		p.TextureRenames = merged
	}
	return p, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ----------------------------------------------------------------------------
// Single file
// ----------------------------------------------------------------------------

func runFile(f *flags, cfg *config.Config, p *patcher.Patcher) error {
	var source []byte
	var err error
	name := "stdin"

	if flag.NArg() > 0 {
		name = flag.Arg(0)
		source, err = os.ReadFile(name)
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
	} else {
		// Check if stdin is a pipe
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) != 0 {
			flag.Usage()
			return fmt.Errorf("no input file specified")
		}
		source, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
	}

	stageName := f.stage
	if stageName == "" {
		stageName = filepath.Ext(name)
	}
	stage, err := params.ParseStage(stageName)
	if err != nil {
		return fmt.Errorf("%w (use -stage)", err)
	}

	program := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	settings, err := applyFlags(f, cfg.Program(program))
	if err != nil {
		return err
	}
	pr, err := settings.Parameters(stage, pack.DefaultKind(program, stage))
	if err != nil {
		return err
	}

	result, err := p.Patch(string(source), pr)
	if err != nil {
		return &sourceError{name: name, source: string(source), err: err}
	}
	if !f.quiet {
		printWarnings(name, result.Warnings)
	}

	var output io.Writer = os.Stdout
	if f.outputFile != "" {
		out, err := os.Create(f.outputFile)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer out.Close()
		output = out
	}
	if _, err := io.WriteString(output, result.Code); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if f.reflectFile != "" {
		data, err := json.MarshalIndent(result.Interface, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding interface: %w", err)
		}
		if err := os.WriteFile(f.reflectFile, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("writing interface: %w", err)
		}
	}

	if f.mapFile != "" {
		sm := result.SourceMap
		sm.File = filepath.Base(f.outputFile)
		sm.Sources = []string{filepath.Base(name)}
		if err := os.WriteFile(f.mapFile, []byte(sm.ToJSON()), 0o644); err != nil {
			return fmt.Errorf("writing source map: %w", err)
		}
	}

	// Print stats to stderr if output is to file
	if f.outputFile != "" {
		printInfo("patched", fmt.Sprintf("%s: %d -> %d bytes, %d passes, %d rewrites in %s",
			pr, result.Stats.OriginalSize, result.Stats.PatchedSize,
			len(result.Stats.PassesRun), result.Stats.Rewrites, result.Stats.Duration))
	}
	return nil
}

// ----------------------------------------------------------------------------
// Shader pack
// ----------------------------------------------------------------------------

func runPack(f *flags, cfg *config.Config, p *patcher.Patcher) error {
	pk, err := pack.Discover(f.packDir)
	if err != nil {
		return err
	}
	if len(pk.Programs) == 0 {
		return fmt.Errorf("no shader stages found in %s", f.packDir)
	}

	parallelism := f.parallelism
	if parallelism <= 0 {
		parallelism = cfg.ParallelismOrDefault()
	}
	resolve := func(program string, stage params.Stage) (params.Parameters, error) {
		settings, err := applyFlags(f, cfg.Program(program))
		if err != nil {
			return params.Parameters{}, err
		}
		return settings.Parameters(stage, pack.DefaultKind(program, stage))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	patched, err := pack.NewLoader(p, resolve, parallelism).Load(ctx, pk)
	if err != nil {
		return packError(f.packDir, pk, err)
	}

	for _, prog := range pk.Programs {
		for _, src := range prog.Stages {
			result, _ := patched.Result(prog.Name, src.Stage)
			if !f.quiet {
				printWarnings(src.Path, result.Warnings)
			}
			if f.outDir == "" {
				continue
			}
			path := filepath.Join(f.outDir, filepath.FromSlash(src.Path))
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(result.Code), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
		}
	}

	printInfo("patched", fmt.Sprintf("%s: %d programs, %d stages, %d warnings in %s (generation %s)",
		pk.Name, len(pk.Programs), pk.Stages(), patched.Warnings(), patched.Duration, patched.Generation))
	return nil
}

// packError attaches the failing stage's source to a pack load error.
func packError(dir string, pk pack.Pack, err error) error {
	le, ok := err.(*pack.LoadError)
	if !ok {
		return err
	}
	for _, prog := range pk.Programs {
		if prog.Name != le.Program {
			continue
		}
		for _, src := range prog.Stages {
			if src.Stage == le.Stage {
				return &sourceError{name: filepath.Join(dir, filepath.FromSlash(src.Path)), source: src.Code, err: le.Err}
			}
		}
	}
	return err
}
