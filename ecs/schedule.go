package ecs

import (
	"fmt"
	"strings"
)

// phasePlan is the resolved execution order of one phase, cut into batches of
// systems that may run concurrently.
type phasePlan struct {
	order   []*systemNode
	batches [][]*systemNode
}

// buildPhase orders the systems of one phase and groups them into batches.
// Among systems whose dependencies are satisfied, the one registered first runs
// first, so the result is deterministic.
func buildPhase(nodes []*systemNode) (*phasePlan, error) {
	byName := make(map[string]*systemNode, len(nodes))
	for _, n := range nodes {
		if prev, ok := byName[n.name]; ok {
			return nil, fmt.Errorf("%w: %q registered twice in %s phase (#%d and #%d)",
				ErrDuplicateSystem, n.name, n.phase, prev.index, n.index)
		}
		byName[n.name] = n
	}

	deps := make(map[*systemNode][]*systemNode, len(nodes))
	dependents := make(map[*systemNode][]*systemNode, len(nodes))
	indegree := make(map[*systemNode]int, len(nodes))
	for _, n := range nodes {
		for _, name := range n.after {
			dep, ok := byName[name]
			if !ok {
				return nil, fmt.Errorf("%w: %q runs after %q, which is not registered in the %s phase",
					ErrUnknownDependency, n.name, name, n.phase)
			}
			if containsNode(deps[n], dep) {
				continue
			}
			deps[n] = append(deps[n], dep)
			dependents[dep] = append(dependents[dep], n)
			indegree[n]++
		}
	}

	order := make([]*systemNode, 0, len(nodes))
	done := make(map[*systemNode]bool, len(nodes))
	for len(order) < len(nodes) {
		var next *systemNode
		for _, n := range nodes {
			if !done[n] && indegree[n] == 0 {
				next = n
				break
			}
		}
		if next == nil {
			return nil, fmt.Errorf("%w: %s", ErrDependencyCycle, describeCycle(nodes, deps, done))
		}
		done[next] = true
		order = append(order, next)
		for _, d := range dependents[next] {
			indegree[d]--
		}
	}

	plan := &phasePlan{order: order}
	var current []*systemNode
	for _, n := range order {
		if !fitsBatch(current, n, deps[n]) {
			plan.batches = append(plan.batches, current)
			current = nil
		}
		n.batch = len(plan.batches)
		current = append(current, n)
	}
	if len(current) > 0 {
		plan.batches = append(plan.batches, current)
	}
	return plan, nil
}

// fitsBatch reports whether n can join batch: none of its dependencies is in
// the batch and it conflicts with no member.
func fitsBatch(batch []*systemNode, n *systemNode, deps []*systemNode) bool {
	if len(batch) == 0 {
		return true
	}
	for _, member := range batch {
		if containsNode(deps, member) || member.access.conflicts(n.access) {
			return false
		}
	}
	return true
}

// describeCycle walks dependency edges among the unsorted systems until a
// system repeats, and formats the loop in execution order.
func describeCycle(nodes []*systemNode, deps map[*systemNode][]*systemNode, done map[*systemNode]bool) string {
	var start *systemNode
	for _, n := range nodes {
		if !done[n] {
			start = n
			break
		}
	}

	var path []*systemNode
	seen := map[*systemNode]int{}
	for cur := start; cur != nil; {
		if at, ok := seen[cur]; ok {
			path = path[at:]
			break
		}
		seen[cur] = len(path)
		path = append(path, cur)

		var next *systemNode
		for _, d := range deps[cur] {
			if !done[d] {
				next = d
				break
			}
		}
		cur = next
	}

	// path follows dependencies backwards; report it forwards, starting from
	// the earliest registered system
	loop := make([]*systemNode, len(path))
	first := 0
	for i := range path {
		loop[i] = path[len(path)-1-i]
		if loop[i].index < loop[first].index {
			first = i
		}
	}

	names := make([]string, 0, len(loop)+1)
	for i := range loop {
		names = append(names, loop[(first+i)%len(loop)].name)
	}
	names = append(names, loop[first].name)
	return strings.Join(names, " -> ")
}

func containsNode(nodes []*systemNode, n *systemNode) bool {
	for _, have := range nodes {
		if have == n {
			return true
		}
	}
	return false
}
