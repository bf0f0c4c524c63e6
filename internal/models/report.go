package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// GraphMeta 图级别的元数据
type GraphMeta struct {
	TaskID    string    `json:"task_id"`
	StartURL  string    `json:"start_url"`
	Host      string    `json:"host"`
	Mode      FetchMode `json:"mode"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// CrawlReport 爬取报告
// 采用node-link格式: nodes为页面, links为父子边
type CrawlReport struct {
	Directed   bool       `json:"directed"`
	Multigraph bool       `json:"multigraph"`
	Graph      GraphMeta  `json:"graph"`
	Nodes      []PageNode `json:"nodes"`
	Links      []Edge     `json:"links"`

	Errors ErrorTally  `json:"errors"`
	Stats  CrawlStats  `json:"stats"`
	Config CrawlConfig `json:"config"`
}

// ToJSON 序列化为JSON
func (r *CrawlReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON 从JSON反序列化
func (r *CrawlReport) FromJSON(data []byte) error {
	if err := json.Unmarshal(data, r); err != nil {
		return fmt.Errorf("解析图文件失败: %w", err)
	}
	if len(r.Nodes) == 0 {
		return fmt.Errorf("图文件中没有节点")
	}
	return nil
}
