package pack

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"github.com/HugoDaniel/glslpatch/internal/params"
	"github.com/HugoDaniel/glslpatch/internal/patcher"
)

var log = commonlog.GetLogger("glslpatch.pack")

// Patched is a fully patched pack. It is immutable once published.
type Patched struct {
	// Generation identifies this load.
	Generation uuid.UUID
	Pack       string
	Programs   map[string]map[params.Stage]patcher.Result
	Duration   time.Duration
}

// Result returns the patched output of one stage.
func (p *Patched) Result(program string, stage params.Stage) (patcher.Result, bool) {
	if p == nil {
		return patcher.Result{}, false
	}
	r, ok := p.Programs[program][stage]
	return r, ok
}

// Warnings counts the warnings over every stage.
func (p *Patched) Warnings() int {
	n := 0
	for _, stages := range p.Programs {
		for _, r := range stages {
			n += len(r.Warnings)
		}
	}
	return n
}

// LoadError reports the first stage of a pack that failed to patch.
type LoadError struct {
	Pack    string
	Program string
	Stage   params.Stage
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("pack %s: program %s: stage %s: %v", e.Pack, e.Program, e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Loader patches packs and holds the most recent successful result.
type Loader struct {
	patcher     *patcher.Patcher
	resolve     Resolver
	parallelism int
	current     atomic.Pointer[Patched]
}

// NewLoader creates a loader. A parallelism below one patches one stage
// at a time.
func NewLoader(p *patcher.Patcher, resolve Resolver, parallelism int) *Loader {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Loader{patcher: p, resolve: resolve, parallelism: parallelism}
}

// Current returns the live pack, or nil before the first successful load.
func (l *Loader) Current() *Patched {
	return l.current.Load()
}

// Load patches every stage of pk. On success the result replaces the live
// pack. On failure the error is logged, the live pack is left in place and
// a *LoadError is returned.
func (l *Loader) Load(ctx context.Context, pk Pack) (*Patched, error) {
	start := time.Now()
	out := &Patched{
		Generation: uuid.New(),
		Pack:       pk.Name,
		Programs:   make(map[string]map[params.Stage]patcher.Result, len(pk.Programs)),
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.parallelism)
	for _, prog := range pk.Programs {
		prog := prog
		stages := make(map[params.Stage]patcher.Result, len(prog.Stages))
		out.Programs[prog.Name] = stages
		for _, src := range prog.Stages {
			src := src
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				r, err := l.patchStage(prog.Name, src)
				if err != nil {
					return &LoadError{Pack: pk.Name, Program: prog.Name, Stage: src.Stage, Err: err}
				}
				mu.Lock()
				stages[src.Stage] = r
				mu.Unlock()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		if le, ok := err.(*LoadError); ok {
			log.Errorf("pack %s: program %s: stage %s: %v", le.Pack, le.Program, le.Stage, le.Err)
		} else {
			log.Errorf("pack %s: %v", pk.Name, err)
		}
		if prev := l.current.Load(); prev != nil {
			log.Noticef("pack %s: keeping generation %s", pk.Name, prev.Generation)
		}
		return nil, err
	}

	out.Duration = time.Since(start)
	l.current.Store(out)
	log.Infof("pack %s: patched %d stages as generation %s in %s",
		pk.Name, pk.Stages(), out.Generation, out.Duration)
	fragments, templates := l.patcher.CacheStats()
	log.Debugf("pack %s: fragment cache %d entries, %d hits, %d misses, %d evictions; template cache %d entries",
		pk.Name, fragments.Entries, fragments.Hits, fragments.Misses, fragments.Evictions, templates.Entries)
	return out, nil
}

func (l *Loader) patchStage(program string, src Source) (patcher.Result, error) {
	pr, err := l.resolve(program, src.Stage)
	if err != nil {
		return patcher.Result{}, err
	}
	return l.patcher.Patch(src.Code, pr)
}
