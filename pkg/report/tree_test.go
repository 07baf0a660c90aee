package report

import (
	"strings"
	"testing"

	"github.com/spazyCZ/ptop3/pkg/types"
)

func TestBuildProcessTreeParentLinks(t *testing.T) {
	samples := []types.ProcessSample{
		{PID: 1, PPID: 0, RSSMB: 10},
		{PID: 2, PPID: 1, RSSMB: 30},
		{PID: 3, PPID: 1, RSSMB: 20},
		{PID: 4, PPID: 2, RSSMB: 5},
		{PID: 9, PPID: 777, RSSMB: 1}, // parent outside the group
	}
	root := BuildProcessTree(samples, types.SortRSS)

	if len(root.Children) != 2 {
		t.Fatalf("root has %d children, want 2 (pid 1 and orphan 9)", len(root.Children))
	}
	// Every sample appears exactly once.
	seen := map[int32]int{}
	var count func(n *TreeNode)
	count = func(n *TreeNode) {
		if n.Sample != nil {
			seen[n.Sample.PID]++
		}
		for _, c := range n.Children {
			count(c)
		}
	}
	count(root)
	if len(seen) != len(samples) {
		t.Fatalf("tree holds %d pids, want %d", len(seen), len(samples))
	}
	for pid, n := range seen {
		if n != 1 {
			t.Fatalf("pid %d appears %d times", pid, n)
		}
	}

	// Siblings under pid 1 ordered by RSS descending: 2 (30) before 3 (20).
	var p1 *TreeNode
	for _, c := range root.Children {
		if c.Sample.PID == 1 {
			p1 = c
		}
	}
	if p1 == nil {
		t.Fatal("pid 1 not at root")
	}
	if p1.Children[0].Sample.PID != 2 || p1.Children[1].Sample.PID != 3 {
		t.Fatalf("sibling order wrong: %d, %d", p1.Children[0].Sample.PID, p1.Children[1].Sample.PID)
	}
}

func TestBuildProcessTreeBreaksCycles(t *testing.T) {
	// 5 -> 6 -> 7 -> 5 plus a self-parent.
	samples := []types.ProcessSample{
		{PID: 5, PPID: 7},
		{PID: 6, PPID: 5},
		{PID: 7, PPID: 6},
		{PID: 8, PPID: 8},
	}
	root := BuildProcessTree(samples, types.SortRSS)

	// The walk must terminate and visit each pid exactly once.
	seen := map[int32]bool{}
	var walk func(n *TreeNode, depth int)
	walk = func(n *TreeNode, depth int) {
		if depth > len(samples)+1 {
			t.Fatal("tree deeper than the sample count: cycle survived")
		}
		if n.Sample != nil {
			if seen[n.Sample.PID] {
				t.Fatalf("pid %d visited twice", n.Sample.PID)
			}
			seen[n.Sample.PID] = true
		}
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(root, 0)
	if len(seen) != len(samples) {
		t.Fatalf("visited %d pids, want %d", len(seen), len(samples))
	}
}

func TestFlattenTreePrefixes(t *testing.T) {
	samples := []types.ProcessSample{
		{PID: 1, PPID: 0, RSSMB: 100},
		{PID: 2, PPID: 1, RSSMB: 50},
		{PID: 3, PPID: 1, RSSMB: 40},
		{PID: 4, PPID: 3, RSSMB: 10},
	}
	rows := FlattenTree(BuildProcessTree(samples, types.SortRSS))

	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(rows))
	}
	if rows[0].Sample.PID != 1 || rows[0].Prefix != "" || rows[0].Depth != 0 {
		t.Fatalf("row 0 = %+v, want pid 1 at depth 0 with empty prefix", rows[0])
	}
	if rows[1].Sample.PID != 2 || rows[1].Prefix != "├── " {
		t.Fatalf("row 1 = pid %d prefix %q", rows[1].Sample.PID, rows[1].Prefix)
	}
	if rows[2].Sample.PID != 3 || rows[2].Prefix != "└── " {
		t.Fatalf("row 2 = pid %d prefix %q", rows[2].Sample.PID, rows[2].Prefix)
	}
	// Grandchild under the last sibling gets a blank continuation column.
	if rows[3].Sample.PID != 4 || rows[3].Prefix != "    └── " {
		t.Fatalf("row 3 = pid %d prefix %q", rows[3].Sample.PID, rows[3].Prefix)
	}
}

func TestFlattenTreeContinuationBar(t *testing.T) {
	// Grandchild under a non-last sibling keeps the vertical bar.
	samples := []types.ProcessSample{
		{PID: 1, PPID: 0, RSSMB: 100},
		{PID: 2, PPID: 1, RSSMB: 50},
		{PID: 3, PPID: 1, RSSMB: 40},
		{PID: 4, PPID: 2, RSSMB: 10},
	}
	rows := FlattenTree(BuildProcessTree(samples, types.SortRSS))
	var grand *TreeRow
	for i := range rows {
		if rows[i].Sample.PID == 4 {
			grand = &rows[i]
		}
	}
	if grand == nil {
		t.Fatal("pid 4 missing from rows")
	}
	if !strings.HasPrefix(grand.Prefix, "│   ") {
		t.Fatalf("grandchild prefix %q lacks continuation bar", grand.Prefix)
	}
}
