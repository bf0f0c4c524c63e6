package models

import (
	"maps"
	"slices"
)

// CrawlJob 待抓取任务
// ID 由Frontier在入队时分配,从1开始单调递增且永不复用
type CrawlJob struct {
	ID       int    `json:"id"`
	URL      string `json:"url"`
	ParentID int    `json:"parent_id"` // 发现该URL的页面ID,种子为0
	Depth    int    `json:"depth"`     // 距种子的跳数,种子为0
}

// PageNode 站点图中的页面节点
type PageNode struct {
	ID    int    `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Edge 父页面指向子页面的有向边
type Edge struct {
	Source int `json:"source"`
	Target int `json:"target"`
}

// ErrorTally 错误类型 -> 出现次数
type ErrorTally map[string]int

// Total 错误总数
func (t ErrorTally) Total() int {
	total := 0
	for _, n := range t {
		total += n
	}
	return total
}

// Kinds 按字典序返回所有错误类型
func (t ErrorTally) Kinds() []string {
	return slices.Sorted(maps.Keys(t))
}
