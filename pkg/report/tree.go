package report

import (
	"sort"

	"github.com/spazyCZ/ptop3/pkg/types"
)

// TreeNode is one process in a per-group forest. A node owns its children
// for the lifetime of one snapshot. The synthetic root has a nil Sample and
// owns every node whose recorded parent is absent from the group.
type TreeNode struct {
	Sample   *types.ProcessSample
	Children []*TreeNode
}

// TreeRow is one rendered line of a flattened tree.
type TreeRow struct {
	Sample *types.ProcessSample
	Depth  int
	Prefix string
}

// BuildProcessTree links the samples of one group into a tree under a
// synthetic root. A child attaches beneath its parent only when the parent
// pid is present in the group; orphans and reparented processes attach to
// the root. Any node whose parent chain revisits itself is redirected to
// the root, so the output never contains a cycle. Siblings are ordered by
// the active sort key descending, pid ascending on ties.
func BuildProcessTree(samples []types.ProcessSample, key types.SortKey) *TreeNode {
	byPID := make(map[int32]*types.ProcessSample, len(samples))
	for i := range samples {
		byPID[samples[i].PID] = &samples[i]
	}

	// parent[pid] == 0 means "attach to the synthetic root".
	parent := make(map[int32]int32, len(samples))
	for i := range samples {
		s := &samples[i]
		if s.PPID != s.PID {
			if _, ok := byPID[s.PPID]; ok {
				parent[s.PID] = s.PPID
				continue
			}
		}
		parent[s.PID] = 0
	}

	// Cycle breaker: a pid whose ancestor chain returns to itself is
	// reattached to the root.
	for pid := range parent {
		seen := map[int32]bool{pid: true}
		cur := parent[pid]
		for cur != 0 {
			if seen[cur] {
				parent[pid] = 0
				break
			}
			seen[cur] = true
			cur = parent[cur]
		}
	}

	nodes := make(map[int32]*TreeNode, len(samples))
	for pid, s := range byPID {
		nodes[pid] = &TreeNode{Sample: s}
	}
	root := &TreeNode{}
	for pid, ppid := range parent {
		if ppid == 0 {
			root.Children = append(root.Children, nodes[pid])
		} else {
			nodes[ppid].Children = append(nodes[ppid].Children, nodes[pid])
		}
	}

	var order func(n *TreeNode)
	order = func(n *TreeNode) {
		sort.Slice(n.Children, func(i, j int) bool {
			a, b := n.Children[i].Sample, n.Children[j].Sample
			ma, mb := SampleMetric(*a, key), SampleMetric(*b, key)
			if ma != mb {
				return ma > mb
			}
			return a.PID < b.PID
		})
		for _, c := range n.Children {
			order(c)
		}
	}
	order(root)
	return root
}

// FlattenTree walks the forest depth-first and produces the rows the detail
// view renders, with box-drawing prefixes marking sibling continuation.
func FlattenTree(root *TreeNode) []TreeRow {
	rows := make([]TreeRow, 0, 32)
	var walk func(n *TreeNode, depth int, continuation []bool)
	walk = func(n *TreeNode, depth int, continuation []bool) {
		prefix := ""
		if depth > 0 {
			for _, hasMore := range continuation[:len(continuation)-1] {
				if hasMore {
					prefix += "│   "
				} else {
					prefix += "    "
				}
			}
			if continuation[len(continuation)-1] {
				prefix += "├── "
			} else {
				prefix += "└── "
			}
		}
		rows = append(rows, TreeRow{Sample: n.Sample, Depth: depth, Prefix: prefix})
		for i, c := range n.Children {
			hasMore := i < len(n.Children)-1
			walk(c, depth+1, append(continuation, hasMore))
		}
	}
	// Each top-level process starts its own prefix chain.
	for _, c := range root.Children {
		walk(c, 0, nil)
	}
	return rows
}
