// Package lifecycle reconciles declared project configuration against
// engine-observed container state: it plans dependency-ordered operations,
// applies them fail-fast, and classifies project status.
package lifecycle

import (
	"fmt"
	"sort"

	"dockhand/internal/project"
)

// Action is the desired direction of a plan.
type Action uint8

const (
	ActionUp Action = iota
	ActionDown
)

func (a Action) String() string {
	if a == ActionDown {
		return "down"
	}
	return "up"
}

// Plan is an ordered sequence of per-service operations, grouped into tiers.
// Services within one tier have no dependency relationship and may be handled
// in any order; tiers execute strictly in sequence.
type Plan struct {
	Project string
	Action  Action
	Tiers   [][]string
}

// Services flattens the tiers into execution order.
func (p Plan) Services() []string {
	var out []string
	for _, tier := range p.Tiers {
		out = append(out, tier...)
	}
	return out
}

// BuildPlan computes dependency tiers for the project via topological sort.
// ActionUp orders dependencies before dependents; ActionDown reverses the
// tiers so dependents come down first.
//
// A cyclic graph fails with project.ErrCyclicDependency before any engine
// call is issued.
func BuildPlan(p project.Project, action Action) (Plan, error) {
	tiers, err := topologicalTiers(p.Services)
	if err != nil {
		return Plan{}, err
	}
	if action == ActionDown {
		for i, j := 0, len(tiers)-1; i < j; i, j = i+1, j-1 {
			tiers[i], tiers[j] = tiers[j], tiers[i]
		}
	}
	return Plan{Project: p.Name, Action: action, Tiers: tiers}, nil
}

// topologicalTiers runs Kahn's algorithm, emitting equal-depth services as
// one tier, alphabetical within each tier.
func topologicalTiers(services []project.Service) ([][]string, error) {
	if len(services) == 0 {
		return nil, nil
	}

	known := make(map[string]bool, len(services))
	inDegree := make(map[string]int, len(services))
	dependents := make(map[string][]string, len(services))

	for _, svc := range services {
		if known[svc.Name] {
			return nil, fmt.Errorf("plan: duplicate service %q", svc.Name)
		}
		known[svc.Name] = true
		inDegree[svc.Name] = 0
	}

	for _, svc := range services {
		for _, dep := range svc.DependsOn {
			if dep == svc.Name {
				return nil, fmt.Errorf("%w: service %q depends on itself", project.ErrCyclicDependency, svc.Name)
			}
			if !known[dep] {
				return nil, fmt.Errorf("plan: service %q depends on unknown service %q", svc.Name, dep)
			}
			dependents[dep] = append(dependents[dep], svc.Name)
			inDegree[svc.Name]++
		}
	}

	ready := make([]string, 0, len(services))
	for name, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	processed := 0
	var tiers [][]string
	for len(ready) > 0 {
		tier := append([]string(nil), ready...)
		ready = ready[:0]

		for _, name := range tier {
			processed++
			for _, dependent := range dependents[name] {
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					ready = append(ready, dependent)
				}
			}
		}
		sort.Strings(ready)
		tiers = append(tiers, tier)
	}

	if processed != len(services) {
		remaining := make([]string, 0, len(services)-processed)
		for name, degree := range inDegree {
			if degree > 0 {
				remaining = append(remaining, name)
			}
		}
		sort.Strings(remaining)
		return nil, fmt.Errorf("%w: cycle among services %v", project.ErrCyclicDependency, remaining)
	}

	return tiers, nil
}
