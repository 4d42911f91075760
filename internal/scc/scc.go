// Package scc implements the SCC labeler (C10, spec.md §4.6): it builds
// a directed graph over EdgeBasedNodeIds (every allowed turn, plus a
// symmetric edge between each node-based edge's forward/reverse
// EdgeBasedNode pair so a road and its opposite direction always land in
// the same component), then labels every node with a 1-based strongly
// connected component id and a `tiny` flag. Grounded on the teacher's
// `network_node_macroscopic.go`/`network.go` adjacency-table idiom,
// generalized from the teacher's (unused-for-SCC) adjacency bookkeeping
// into an explicit iterative Tarjan run, since recursive Tarjan would
// blow the stack on a real extract's component sizes.
package scc

import (
	"sort"

	"github.com/LdDl/mapextract/internal/model"
)

// DefaultSmallComponentThreshold is the spec.md §4.6 default: a
// component with fewer than this many nodes is flagged tiny.
const DefaultSmallComponentThreshold = 1000

// Label runs Tarjan's algorithm over nodes/edges/segments and writes
// ComponentID (1-based) and Tiny back onto each entry of nodes in place.
func Label(nodes []model.EdgeBasedNode, edges []model.EdgeBasedEdge, segments []model.EdgeBasedNodeSegment, threshold int) {
	if threshold <= 0 {
		threshold = DefaultSmallComponentThreshold
	}
	adj := buildAdjacency(len(nodes), edges, segments)
	comp := tarjanSCC(adj)

	sizes := make(map[int32]int)
	for _, c := range comp {
		sizes[c]++
	}
	for i := range nodes {
		nodes[i].ComponentID = uint32(comp[i] + 1)
		nodes[i].Tiny = sizes[comp[i]] < threshold
	}
}

func buildAdjacency(n int, edges []model.EdgeBasedEdge, segments []model.EdgeBasedNodeSegment) [][]int32 {
	adj := make([][]int32, n)
	for _, e := range edges {
		adj[e.Source] = append(adj[e.Source], int32(e.Target))
	}
	for _, seg := range segments {
		if seg.ReverseID == model.InvalidEdgeBasedNodeID {
			continue
		}
		adj[seg.ForwardID] = append(adj[seg.ForwardID], int32(seg.ReverseID))
		adj[seg.ReverseID] = append(adj[seg.ReverseID], int32(seg.ForwardID))
	}
	for u := range adj {
		adj[u] = dedupSortInt32(adj[u])
	}
	return adj
}

func dedupSortInt32(s []int32) []int32 {
	if len(s) < 2 {
		return s
	}
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
	out := s[:1]
	for _, v := range s[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// tarjanFrame is one level of the explicit call stack standing in for
// recursive Tarjan: node being visited, plus how far through its
// adjacency list the simulated call has progressed.
type tarjanFrame struct {
	node       int32
	childIndex int
}

// tarjanSCC labels every node 0..n-1 with a 0-based component id via an
// iterative (non-recursive) Tarjan's algorithm.
func tarjanSCC(adj [][]int32) []int32 {
	n := len(adj)
	const unvisited = -1
	indices := make([]int32, n)
	lowlink := make([]int32, n)
	onStack := make([]bool, n)
	comp := make([]int32, n)
	for i := range indices {
		indices[i] = unvisited
	}

	var tstack []int32
	var nextIndex int32
	var nextComp int32

	for s := 0; s < n; s++ {
		if indices[s] != unvisited {
			continue
		}
		work := []tarjanFrame{{node: int32(s)}}
		for len(work) > 0 {
			top := &work[len(work)-1]
			v := top.node

			if top.childIndex == 0 {
				indices[v] = nextIndex
				lowlink[v] = nextIndex
				nextIndex++
				tstack = append(tstack, v)
				onStack[v] = true
			}

			descended := false
			for top.childIndex < len(adj[v]) {
				w := adj[v][top.childIndex]
				top.childIndex++
				if indices[w] == unvisited {
					work = append(work, tarjanFrame{node: w})
					descended = true
					break
				}
				if onStack[w] && indices[w] < lowlink[v] {
					lowlink[v] = indices[w]
				}
			}
			if descended {
				continue
			}

			if lowlink[v] == indices[v] {
				for {
					w := tstack[len(tstack)-1]
					tstack = tstack[:len(tstack)-1]
					onStack[w] = false
					comp[w] = nextComp
					if w == v {
						break
					}
				}
				nextComp++
			}

			work = work[:len(work)-1]
			if len(work) > 0 {
				parent := &work[len(work)-1]
				if lowlink[v] < lowlink[parent.node] {
					lowlink[parent.node] = lowlink[v]
				}
			}
		}
	}

	return comp
}
