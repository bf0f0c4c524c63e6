package crawlers

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/RecoveryAshes/SiteGraph/internal/models"
)

// 图构建错误
var (
	ErrGraphFrozen   = errors.New("站点图已冻结")
	ErrDuplicatePage = errors.New("页面ID重复")
	ErrUnknownParent = errors.New("父页面不存在")
	ErrRootExists    = errors.New("根节点已存在")
)

// RootID 种子页面的节点ID
const RootID = 0

// GraphBuilder 增量构建站点图
// 节点和边一旦写入不再修改
type GraphBuilder struct {
	mu     sync.Mutex
	nodes  map[int]models.PageNode
	edges  []models.Edge
	frozen *SiteGraph
}

// NewGraphBuilder 创建空的图构建器
func NewGraphBuilder() *GraphBuilder {
	return &GraphBuilder{nodes: make(map[int]models.PageNode)}
}

// AddRoot 写入根节点 (ID为0)
func (b *GraphBuilder) AddRoot(url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen != nil {
		return ErrGraphFrozen
	}
	if _, ok := b.nodes[RootID]; ok {
		return ErrRootExists
	}
	b.nodes[RootID] = models.PageNode{ID: RootID, URL: url}
	return nil
}

// AddPage 写入页面节点以及 parentID -> id 的边
func (b *GraphBuilder) AddPage(id, parentID int, url, title string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen != nil {
		return ErrGraphFrozen
	}
	if _, ok := b.nodes[id]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicatePage, id)
	}
	if _, ok := b.nodes[parentID]; !ok {
		return fmt.Errorf("%w: %d -> %d", ErrUnknownParent, parentID, id)
	}
	b.nodes[id] = models.PageNode{ID: id, URL: url, Title: title}
	b.edges = append(b.edges, models.Edge{Source: parentID, Target: id})
	return nil
}

// Len 当前节点数
func (b *GraphBuilder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.nodes)
}

// Freeze 冻结构建器并返回只读的站点图
// 多次调用返回同一个图
func (b *GraphBuilder) Freeze() *SiteGraph {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen != nil {
		return b.frozen
	}

	g := &SiteGraph{
		nodes:    make([]models.PageNode, 0, len(b.nodes)),
		index:    make(map[int]int, len(b.nodes)),
		edges:    slices.Clone(b.edges),
		children: make(map[int][]int),
		parent:   make(map[int]int, len(b.edges)),
	}
	for _, n := range b.nodes {
		g.nodes = append(g.nodes, n)
	}
	slices.SortFunc(g.nodes, func(a, c models.PageNode) int { return a.ID - c.ID })
	for i, n := range g.nodes {
		g.index[n.ID] = i
	}
	slices.SortFunc(g.edges, func(a, c models.Edge) int { return a.Target - c.Target })
	for _, e := range g.edges {
		g.children[e.Source] = append(g.children[e.Source], e.Target)
		g.parent[e.Target] = e.Source
	}
	for _, kids := range g.children {
		slices.Sort(kids)
	}

	b.frozen = g
	return g
}

// SiteGraph 冻结后的站点图,只读
type SiteGraph struct {
	nodes    []models.PageNode // 按ID升序
	index    map[int]int
	edges    []models.Edge // 按Target升序
	children map[int][]int
	parent   map[int]int
}

// NewSiteGraph 从节点和边重建站点图 (用于读取已保存的图)
func NewSiteGraph(nodes []models.PageNode, edges []models.Edge) (*SiteGraph, error) {
	b := NewGraphBuilder()
	for _, n := range nodes {
		if _, ok := b.nodes[n.ID]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicatePage, n.ID)
		}
		b.nodes[n.ID] = n
	}
	for _, e := range edges {
		if _, ok := b.nodes[e.Source]; !ok {
			return nil, fmt.Errorf("%w: %d -> %d", ErrUnknownParent, e.Source, e.Target)
		}
		if _, ok := b.nodes[e.Target]; !ok {
			return nil, fmt.Errorf("边指向不存在的节点: %d -> %d", e.Source, e.Target)
		}
		b.edges = append(b.edges, e)
	}
	return b.Freeze(), nil
}

// Nodes 所有节点,按ID升序
func (g *SiteGraph) Nodes() []models.PageNode {
	return slices.Clone(g.nodes)
}

// Edges 所有边
func (g *SiteGraph) Edges() []models.Edge {
	return slices.Clone(g.edges)
}

// Node 按ID查找节点
func (g *SiteGraph) Node(id int) (models.PageNode, bool) {
	i, ok := g.index[id]
	if !ok {
		return models.PageNode{}, false
	}
	return g.nodes[i], true
}

// Children 子节点ID,升序
func (g *SiteGraph) Children(id int) []int {
	return slices.Clone(g.children[id])
}

// Parent 父节点ID; 根节点返回false
func (g *SiteGraph) Parent(id int) (int, bool) {
	p, ok := g.parent[id]
	return p, ok
}

// NodeCount 节点数
func (g *SiteGraph) NodeCount() int {
	return len(g.nodes)
}

// Walk 从根节点先序遍历, fn返回false时停止
// 使用显式栈,不受站点深度限制; 已访问的节点不会重复进入
func (g *SiteGraph) Walk(fn func(node models.PageNode, level int) bool) {
	type frame struct{ id, level int }

	if _, ok := g.index[RootID]; !ok {
		return
	}
	visited := make(map[int]bool, len(g.nodes))
	stack := []frame{{RootID, 0}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[top.id] {
			continue
		}
		visited[top.id] = true

		node, _ := g.Node(top.id)
		if !fn(node, top.level) {
			return
		}

		kids := g.children[top.id]
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, frame{kids[i], top.level + 1})
		}
	}
}
