package transform

import (
	"fmt"
	"sort"
	"strings"

	"github.com/HugoDaniel/glslpatch/internal/diagnostic"
)

// ----------------------------------------------------------------------------
// Schedule
// ----------------------------------------------------------------------------

// Registration declares a pass and the passes it must run after.
type Registration struct {
	Pass  Pass
	After []string
}

// Schedule is a fixed topological order of passes, computed once when the
// pipeline is built and shared by every job.
type Schedule struct {
	order []Pass
}

// NewSchedule orders regs so that every pass follows the passes named in its
// After list. Passes with no constraint between them keep registration
// order. Duplicate names, unknown dependencies and cycles are errors.
func NewSchedule(regs []Registration) (*Schedule, error) {
	index := make(map[string]int, len(regs))
	for i, r := range regs {
		name := r.Pass.Name()
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("pass %q registered twice", name)
		}
		index[name] = i
	}

	indegree := make([]int, len(regs))
	successors := make([][]int, len(regs))
	for i, r := range regs {
		for _, dep := range r.After {
			d, ok := index[dep]
			if !ok {
				return nil, fmt.Errorf("pass %q depends on unknown pass %q", r.Pass.Name(), dep)
			}
			successors[d] = append(successors[d], i)
			indegree[i]++
		}
	}

	// Kahn's algorithm, always taking the earliest registered ready pass.
	var ready []int
	for i := range regs {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}
	order := make([]Pass, 0, len(regs))
	for len(ready) > 0 {
		sort.Ints(ready)
		next := ready[0]
		ready = ready[1:]
		order = append(order, regs[next].Pass)
		for _, s := range successors[next] {
			indegree[s]--
			if indegree[s] == 0 {
				ready = append(ready, s)
			}
		}
	}

	if len(order) != len(regs) {
		var stuck []string
		for i, r := range regs {
			if indegree[i] > 0 {
				stuck = append(stuck, r.Pass.Name())
			}
		}
		return nil, fmt.Errorf("pass dependency cycle among %s", strings.Join(stuck, ", "))
	}
	return &Schedule{order: order}, nil
}

// Order returns the pass names in execution order.
func (s *Schedule) Order() []string {
	names := make([]string, len(s.order))
	for i, p := range s.order {
		names[i] = p.Name()
	}
	return names
}

// Execute runs the active passes of the schedule over job, in order. Each
// pass's activation is decided just before it would run, so it can depend
// on flags set by earlier passes. The first error aborts the job.
func (s *Schedule) Execute(job *Job) error {
	for _, p := range s.order {
		if !p.Active(job.Params, job.Flags) {
			log.Debugf("%s: skipping %s", job.Params, p.Name())
			continue
		}
		job.pass = p.Name()
		if err := p.Run(job); err != nil {
			if se, ok := diagnostic.AsSemantic(err); ok {
				if se.Stage == "" {
					se.Stage = job.Params.Stage().String()
					se.Patch = job.Params.Kind().String()
				}
				return se
			}
			return fmt.Errorf("pass %s: %w", p.Name(), err)
		}
		job.Stats.PassesRun = append(job.Stats.PassesRun, p.Name())
	}
	job.pass = ""
	return nil
}
