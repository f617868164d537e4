// Package versions lays out the history of a workflow and compares two of
// its versions.
package versions

import (
	"sort"
	"time"

	"github.com/flexinfer/scrapeflow/pkg/types"
)

// Layout constants for the top-to-bottom timeline.
const (
	NodeWidth  = 220.0
	NodeHeight = 72.0
	RankSep    = 60.0
	NodeSep    = 40.0
)

// TimelineNode is one version placed on the timeline.
type TimelineNode struct {
	ID            string         `json:"id"`
	VersionNumber int            `json:"versionNumber"`
	CreatedBy     string         `json:"createdBy,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	IsActive      bool           `json:"isActive"`
	IsRoot        bool           `json:"isRoot"`
	Rank          int            `json:"rank"`
	Position      types.Position `json:"position"`
}

// TimelineEdge links a parent version to a child version.
type TimelineEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Timeline is the laid-out version graph.
type Timeline struct {
	Nodes []TimelineNode `json:"nodes"`
	Edges []TimelineEdge `json:"edges"`
}

// BuildTimeline turns a page of versions into a layered graph. Versions
// without a parent, or whose parent is not in the page, become roots. A
// malformed parent cycle is broken at the first cycle member reached.
// Rank is the distance from the version's root; within a rank versions are
// ordered by their parent's position, then by version number.
func BuildTimeline(versions []types.WorkflowVersion) Timeline {
	tl := Timeline{Nodes: []TimelineNode{}, Edges: []TimelineEdge{}}
	if len(versions) == 0 {
		return tl
	}

	byID := make(map[string]*types.WorkflowVersion, len(versions))
	var order []string
	for i := range versions {
		v := &versions[i]
		if _, dup := byID[v.ID]; dup {
			continue
		}
		byID[v.ID] = v
		order = append(order, v.ID)
	}

	parent := resolveParents(byID, order)

	children := make(map[string][]string, len(order))
	var roots []string
	for _, id := range order {
		if p, ok := parent[id]; ok {
			children[p] = append(children[p], id)
		} else {
			roots = append(roots, id)
		}
	}

	byVersion := func(ids []string) {
		sort.SliceStable(ids, func(i, j int) bool {
			a, b := byID[ids[i]], byID[ids[j]]
			if a.VersionNumber != b.VersionNumber {
				return a.VersionNumber < b.VersionNumber
			}
			return a.ID < b.ID
		})
	}

	byVersion(roots)
	rank := roots
	for r := 0; len(rank) > 0; r++ {
		place(&tl, byID, rank, r)

		var next []string
		for _, id := range rank {
			kids := append([]string(nil), children[id]...)
			byVersion(kids)
			for _, kid := range kids {
				next = append(next, kid)
				tl.Edges = append(tl.Edges, TimelineEdge{
					ID:     id + "->" + kid,
					Source: id,
					Target: kid,
				})
			}
		}
		rank = next
	}

	return tl
}

// resolveParents returns the effective parent of every version that has one
// in the page. Cycles are cut by dropping the parent of the first cycle
// member reached while walking up from each version in page order.
func resolveParents(byID map[string]*types.WorkflowVersion, order []string) map[string]string {
	parent := make(map[string]string, len(order))
	for _, id := range order {
		v := byID[id]
		if !v.HasParent() {
			continue
		}
		if _, ok := byID[*v.ParentVersionID]; ok && *v.ParentVersionID != id {
			parent[id] = *v.ParentVersionID
		}
	}

	const (
		unvisited = iota
		walking
		done
	)
	state := make(map[string]int, len(order))
	for _, start := range order {
		var path []string
		id := start
		for state[id] == unvisited {
			state[id] = walking
			path = append(path, id)
			p, ok := parent[id]
			if !ok {
				break
			}
			id = p
		}
		if state[id] == walking {
			if _, ok := parent[id]; ok {
				delete(parent, id)
			}
		}
		for _, p := range path {
			state[p] = done
		}
	}
	return parent
}

// place appends one rank of nodes centered on x = 0.
func place(tl *Timeline, byID map[string]*types.WorkflowVersion, ids []string, r int) {
	width := float64(len(ids)-1) * (NodeWidth + NodeSep)
	for i, id := range ids {
		v := byID[id]
		tl.Nodes = append(tl.Nodes, TimelineNode{
			ID:            v.ID,
			VersionNumber: v.VersionNumber,
			CreatedBy:     v.CreatedBy,
			CreatedAt:     v.CreatedAt,
			IsActive:      v.IsActive,
			IsRoot:        r == 0,
			Rank:          r,
			Position: types.Position{
				X: float64(i)*(NodeWidth+NodeSep) - width/2,
				Y: float64(r) * (NodeHeight + RankSep),
			},
		})
	}
}
