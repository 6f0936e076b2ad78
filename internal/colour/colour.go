// Package colour assigns colour indices to regions so that neighbouring
// regions never share one.
package colour

import (
	"sort"
)

// Assign colours codes greedily. Regions are processed once, in order of
// descending neighbour count with ties broken by code, and each takes the
// smallest index not already used by a coloured neighbour. The result is a
// valid colouring with at most maxDegree+1 colours, not a minimum one.
//
// neighbours is symmetrised before use. Self references and codes not in
// codes are ignored. Duplicate codes are coloured once.
func Assign(codes []string, neighbours map[string][]string) map[string]int {
	adj := Symmetrise(codes, neighbours)

	order := make([]string, 0, len(adj))
	for code := range adj {
		order = append(order, code)
	}
	sort.Slice(order, func(i, j int) bool {
		di, dj := len(adj[order[i]]), len(adj[order[j]])
		if di != dj {
			return di > dj
		}
		return order[i] < order[j]
	})

	colours := make(map[string]int, len(order))
	for _, code := range order {
		used := make(map[int]bool, len(adj[code]))
		for _, n := range adj[code] {
			if c, ok := colours[n]; ok {
				used[c] = true
			}
		}
		c := 0
		for used[c] {
			c++
		}
		colours[code] = c
	}
	return colours
}

// Symmetrise returns the adjacency of codes as sorted, de-duplicated
// neighbour lists in which a neighbours b iff b neighbours a. Every code
// has an entry, possibly empty.
func Symmetrise(codes []string, neighbours map[string][]string) map[string][]string {
	known := make(map[string]bool, len(codes))
	for _, c := range codes {
		known[c] = true
	}
	sets := make(map[string]map[string]bool, len(known))
	for c := range known {
		sets[c] = make(map[string]bool)
	}
	for a, ns := range neighbours {
		if !known[a] {
			continue
		}
		for _, b := range ns {
			if b == a || !known[b] {
				continue
			}
			sets[a][b] = true
			sets[b][a] = true
		}
	}

	adj := make(map[string][]string, len(sets))
	for c, set := range sets {
		list := make([]string, 0, len(set))
		for n := range set {
			list = append(list, n)
		}
		sort.Strings(list)
		adj[c] = list
	}
	return adj
}

// GroupNeighbours lifts member adjacency to group adjacency: two groups
// neighbour each other when any of their members do. groupOf maps member
// code to group id; members with no group are ignored.
func GroupNeighbours(groupOf map[string]string, neighbours map[string][]string) map[string][]string {
	sets := make(map[string]map[string]bool)
	for _, g := range groupOf {
		if g != "" && sets[g] == nil {
			sets[g] = make(map[string]bool)
		}
	}
	for a, ns := range neighbours {
		ga := groupOf[a]
		if ga == "" {
			continue
		}
		for _, b := range ns {
			gb := groupOf[b]
			if gb == "" || gb == ga {
				continue
			}
			sets[ga][gb] = true
			sets[gb][ga] = true
		}
	}

	out := make(map[string][]string, len(sets))
	for g, set := range sets {
		list := make([]string, 0, len(set))
		for n := range set {
			list = append(list, n)
		}
		sort.Strings(list)
		out[g] = list
	}
	return out
}

// LiftNeighbours lifts container adjacency to the groups found in the
// containers, for groups that span several containers. Two groups
// neighbour each other when they share a container or sit in neighbouring
// containers. members maps container code to group ids; blank ids are
// ignored. Every group has an entry, possibly empty.
func LiftNeighbours(members map[string][]string, neighbours map[string][]string) map[string][]string {
	sets := make(map[string]map[string]bool)
	link := func(a, b string) {
		if a == "" || b == "" || a == b {
			return
		}
		sets[a][b] = true
		sets[b][a] = true
	}
	for _, gs := range members {
		for _, g := range gs {
			if g != "" && sets[g] == nil {
				sets[g] = make(map[string]bool)
			}
		}
	}
	for c, gs := range members {
		for i, a := range gs {
			for _, b := range gs[i+1:] {
				link(a, b)
			}
		}
		for _, n := range neighbours[c] {
			for _, a := range gs {
				for _, b := range members[n] {
					link(a, b)
				}
			}
		}
	}

	out := make(map[string][]string, len(sets))
	for g, set := range sets {
		list := make([]string, 0, len(set))
		for n := range set {
			list = append(list, n)
		}
		sort.Strings(list)
		out[g] = list
	}
	return out
}

// Count returns the number of distinct colours used.
func Count(colours map[string]int) int {
	seen := make(map[int]bool)
	for _, c := range colours {
		seen[c] = true
	}
	return len(seen)
}

// Valid reports whether no two neighbours share a colour. Neighbours
// missing from colours are skipped.
func Valid(colours map[string]int, neighbours map[string][]string) bool {
	for a, ns := range neighbours {
		ca, ok := colours[a]
		if !ok {
			continue
		}
		for _, b := range ns {
			if cb, ok := colours[b]; ok && a != b && ca == cb {
				return false
			}
		}
	}
	return true
}
