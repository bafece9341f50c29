package relations

import (
	"sort"
	"strings"
)

const (
	white = iota
	grey
	black
)

type frame struct {
	node string
	next int
}

// DetectCycles finds the cycles of a directed graph with an iterative DFS
// using grey/black colouring. Each cycle is rotated so its smallest member
// comes first and is reported once per distinct member set.
func DetectCycles(adj map[string][]string) [][]string {
	if len(adj) == 0 {
		return nil
	}

	neighbors := make(map[string][]string, len(adj))
	for k, vs := range adj {
		neighbors[k] = uniqueSorted(vs)
	}

	color := make(map[string]int)
	var cycles [][]string
	seen := make(map[string]bool)

	for _, start := range sortedKeys(neighbors) {
		if color[start] != white {
			continue
		}
		color[start] = grey
		stack := []frame{{node: start}}
		depth := map[string]int{start: 0}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			next := neighbors[top.node]
			if top.next >= len(next) {
				color[top.node] = black
				delete(depth, top.node)
				stack = stack[:len(stack)-1]
				continue
			}
			v := next[top.next]
			top.next++

			switch color[v] {
			case grey:
				// Back edge: the cycle is the stack from v to the top.
				cycle := make([]string, 0, len(stack)-depth[v])
				for _, f := range stack[depth[v]:] {
					cycle = append(cycle, f.node)
				}
				cycle = normalizeCycle(cycle)
				members := append([]string(nil), cycle...)
				sort.Strings(members)
				key := strings.Join(members, "\x00")
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, cycle)
				}
			case white:
				color[v] = grey
				depth[v] = len(stack)
				stack = append(stack, frame{node: v})
			}
		}
	}
	return cycles
}

// normalizeCycle rotates a cycle so the lexicographically smallest element is first.
func normalizeCycle(cycle []string) []string {
	if len(cycle) == 0 {
		return cycle
	}
	minIdx := 0
	for i, s := range cycle {
		if s < cycle[minIdx] {
			minIdx = i
		}
	}
	result := make([]string, len(cycle))
	for i := range cycle {
		result[i] = cycle[(minIdx+i)%len(cycle)]
	}
	return result
}

func uniqueSorted(items []string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, s := range items {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
