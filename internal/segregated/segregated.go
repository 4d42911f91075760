// Package segregated implements the Segregated-edge detector (C8,
// spec.md §4.4): it marks node-based edges that form one half of a dual
// carriageway; C9 copies the flag onto the matching EdgeBasedNode.
// Grounded on the teacher's intersection/movement bookkeeping in
// connect_intersection.go and movement.go (both build per-node
// neighbor-edge sets to reason about junction geometry), generalized
// from the teacher's movement-capacity analysis into the five-condition
// name/class/length test spec.md §4.4 defines — a check the teacher
// itself never performs.
package segregated

import "github.com/LdDl/mapextract/internal/model"

// classThresholdMeters returns the per-side segregation-length threshold
// for the highest-priority class present in mask, using classNames as
// the bit-index -> class-name mapping the active profile declared
// (profile.Adapter.ClassNames()).
func classThresholdMeters(mask uint32, classNames []string) float64 {
	best := 5.0
	found := false
	for i, name := range classNames {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		t := thresholdForClassName(name)
		if !found || t > best {
			best = t
			found = true
		}
	}
	return best
}

func thresholdForClassName(name string) float64 {
	switch name {
	case "motorway", "trunk":
		return 30
	case "primary":
		return 20
	case "secondary", "tertiary":
		return 10
	default:
		return 5
	}
}

type neighborInfo struct {
	neighbor  model.InternalNodeID
	nameID    model.NameID
	classMask uint32
}

// Detect runs the five-condition test of spec.md §4.4 over every
// directed edge of g and sets Segregated in place on the ones that
// qualify. classNames is the profile's declared class-name order, used
// to resolve a class mask to a segregation-length threshold.
func Detect(g *model.NodeBasedGraph, classNames []string) {
	incoming := buildIncoming(g)

	for u := range g.Adjacency {
		for i := range g.Adjacency[u] {
			e := &g.Adjacency[u][i]
			v := e.Target
			ann := g.Annotations[e.AnnotationID]

			nu := neighborhood(g, incoming, model.InternalNodeID(u), v)
			nv := neighborhood(g, incoming, v, model.InternalNodeID(u))
			if len(nu) < 2 || len(nv) < 2 {
				continue
			}

			if ann.NameID != 0 && !nameAppearsIn(ann.NameID, nu) && !nameAppearsIn(ann.NameID, nv) {
				continue
			}

			sharedNames, sharedWithClass := sharedNamePairs(nu, nv)
			if sharedNames < 2 {
				continue
			}
			if sharedWithClass < 2 {
				continue
			}

			threshold := classThresholdMeters(ann.ClassMask, classNames) * 2
			if e.LengthMeters > threshold {
				continue
			}

			e.Segregated = true
		}
	}
}

func buildIncoming(g *model.NodeBasedGraph) [][]neighborInfo {
	incoming := make([][]neighborInfo, g.NumNodes())
	for u, edges := range g.Adjacency {
		for _, e := range edges {
			ann := g.Annotations[e.AnnotationID]
			incoming[e.Target] = append(incoming[e.Target], neighborInfo{
				neighbor:  model.InternalNodeID(u),
				nameID:    ann.NameID,
				classMask: ann.ClassMask,
			})
		}
	}
	return incoming
}

// neighborhood builds node x's other-incident-edge set per spec.md
// §4.4 condition 1: every edge touching x except the one under test
// (identified by its other endpoint, exclude), deduped by neighbor node
// so a bidirectional pair of edges between x and the same neighbor
// counts once.
func neighborhood(g *model.NodeBasedGraph, incoming [][]neighborInfo, x, exclude model.InternalNodeID) []neighborInfo {
	byNeighbor := make(map[model.InternalNodeID]neighborInfo)
	for _, e := range g.Adjacency[x] {
		if e.Target == exclude {
			continue
		}
		ann := g.Annotations[e.AnnotationID]
		mergeNeighbor(byNeighbor, e.Target, ann.NameID, ann.ClassMask)
	}
	for _, in := range incoming[x] {
		if in.neighbor == exclude {
			continue
		}
		mergeNeighbor(byNeighbor, in.neighbor, in.nameID, in.classMask)
	}
	out := make([]neighborInfo, 0, len(byNeighbor))
	for n, info := range byNeighbor {
		info.neighbor = n
		out = append(out, info)
	}
	return out
}

func mergeNeighbor(m map[model.InternalNodeID]neighborInfo, neighbor model.InternalNodeID, nameID model.NameID, classMask uint32) {
	existing, ok := m[neighbor]
	if !ok {
		m[neighbor] = neighborInfo{neighbor: neighbor, nameID: nameID, classMask: classMask}
		return
	}
	if existing.nameID == 0 {
		existing.nameID = nameID
	}
	existing.classMask |= classMask
	m[neighbor] = existing
}

func nameAppearsIn(name model.NameID, neighbors []neighborInfo) bool {
	for _, n := range neighbors {
		if n.nameID == name {
			return true
		}
	}
	return false
}

// sharedNamePairs counts, over all (a in nu, b in nv) pairs, how many
// have an equal non-empty name (condition 3), and among those, how many
// also share at least one class bit (condition 4).
func sharedNamePairs(nu, nv []neighborInfo) (sharedNames, sharedWithClass int) {
	for _, a := range nu {
		if a.nameID == 0 {
			continue
		}
		for _, b := range nv {
			if b.nameID != a.nameID {
				continue
			}
			sharedNames++
			if a.classMask&b.classMask != 0 {
				sharedWithClass++
			}
		}
	}
	return sharedNames, sharedWithClass
}
