package crawlers

import (
	"errors"
	"slices"
	"testing"

	"github.com/RecoveryAshes/SiteGraph/internal/models"
)

func buildTestGraph(t *testing.T) *GraphBuilder {
	t.Helper()
	b := NewGraphBuilder()
	if err := b.AddRoot("https://a.com"); err != nil {
		t.Fatal(err)
	}
	pages := []struct {
		id, parent int
		url        string
	}{
		{1, 0, "https://a.com"},
		{2, 1, "https://a.com/x"},
		{4, 1, "https://a.com/z"},
		{3, 2, "https://a.com/x/y"},
	}
	for _, p := range pages {
		if err := b.AddPage(p.id, p.parent, p.url, "title"); err != nil {
			t.Fatalf("AddPage(%d) error = %v", p.id, err)
		}
	}
	return b
}

func TestGraphBuilder_Errors(t *testing.T) {
	b := buildTestGraph(t)

	if err := b.AddRoot("https://a.com"); !errors.Is(err, ErrRootExists) {
		t.Errorf("重复AddRoot error = %v", err)
	}
	if err := b.AddPage(2, 1, "https://a.com/dup", ""); !errors.Is(err, ErrDuplicatePage) {
		t.Errorf("重复ID error = %v", err)
	}
	if err := b.AddPage(9, 8, "https://a.com/orphan", ""); !errors.Is(err, ErrUnknownParent) {
		t.Errorf("未知父节点 error = %v", err)
	}

	b.Freeze()
	if err := b.AddPage(5, 1, "https://a.com/late", ""); !errors.Is(err, ErrGraphFrozen) {
		t.Errorf("冻结后写入 error = %v", err)
	}
}

func TestGraphBuilder_Freeze(t *testing.T) {
	b := buildTestGraph(t)
	g := b.Freeze()

	if g != b.Freeze() {
		t.Error("多次Freeze应返回同一个图")
	}
	if g.NodeCount() != 5 {
		t.Fatalf("NodeCount() = %d, want 5", g.NodeCount())
	}

	ids := make([]int, 0)
	for _, n := range g.Nodes() {
		ids = append(ids, n.ID)
	}
	if !slices.Equal(ids, []int{0, 1, 2, 3, 4}) {
		t.Errorf("节点顺序 = %v", ids)
	}

	// 除根以外每个节点恰好一条入边
	incoming := make(map[int]int)
	for _, e := range g.Edges() {
		incoming[e.Target]++
		if _, ok := g.Node(e.Source); !ok {
			t.Errorf("边的起点不存在: %+v", e)
		}
	}
	for _, n := range g.Nodes() {
		want := 1
		if n.ID == RootID {
			want = 0
		}
		if incoming[n.ID] != want {
			t.Errorf("节点%d入边数 = %d, want %d", n.ID, incoming[n.ID], want)
		}
	}

	if kids := g.Children(1); !slices.Equal(kids, []int{2, 4}) {
		t.Errorf("Children(1) = %v", kids)
	}
	if p, ok := g.Parent(3); !ok || p != 2 {
		t.Errorf("Parent(3) = %d, %v", p, ok)
	}
	if _, ok := g.Parent(RootID); ok {
		t.Error("根节点不应有父节点")
	}
}

func TestSiteGraph_Walk(t *testing.T) {
	g := buildTestGraph(t).Freeze()

	type visit struct{ id, level int }
	var got []visit
	g.Walk(func(n models.PageNode, level int) bool {
		got = append(got, visit{n.ID, level})
		return true
	})

	want := []visit{{0, 0}, {1, 1}, {2, 2}, {3, 3}, {4, 2}}
	if !slices.Equal(got, want) {
		t.Errorf("Walk() = %v, want %v", got, want)
	}

	count := 0
	g.Walk(func(models.PageNode, int) bool {
		count++
		return count < 2
	})
	if count != 2 {
		t.Errorf("返回false后应停止遍历, count = %d", count)
	}
}

func TestSiteGraph_WalkDeepChain(t *testing.T) {
	b := NewGraphBuilder()
	_ = b.AddRoot("https://a.com")
	const depth = 100000
	for i := 1; i <= depth; i++ {
		if err := b.AddPage(i, i-1, "https://a.com", ""); err != nil {
			t.Fatal(err)
		}
	}

	maxLevel := 0
	b.Freeze().Walk(func(_ models.PageNode, level int) bool {
		maxLevel = level
		return true
	})
	if maxLevel != depth {
		t.Errorf("最大层级 = %d, want %d", maxLevel, depth)
	}
}

func TestNewSiteGraph(t *testing.T) {
	nodes := []models.PageNode{{ID: 0, URL: "https://a.com"}, {ID: 1, URL: "https://a.com"}}

	g, err := NewSiteGraph(nodes, []models.Edge{{Source: 0, Target: 1}})
	if err != nil {
		t.Fatalf("NewSiteGraph() error = %v", err)
	}
	if g.NodeCount() != 2 {
		t.Errorf("NodeCount() = %d", g.NodeCount())
	}

	if _, err := NewSiteGraph(nodes, []models.Edge{{Source: 5, Target: 1}}); !errors.Is(err, ErrUnknownParent) {
		t.Errorf("悬空边 error = %v", err)
	}
	if _, err := NewSiteGraph(append(nodes, nodes[0]), nil); !errors.Is(err, ErrDuplicatePage) {
		t.Errorf("重复节点 error = %v", err)
	}
}
