// Package graphdb 把爬取得到的站点图写入Neo4j
package graphdb

import (
	"context"
	"fmt"

	"github.com/RecoveryAshes/SiteGraph/internal/models"
	"github.com/RecoveryAshes/SiteGraph/internal/utils"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// batchSize 单条UNWIND语句携带的最大行数
const batchSize = 500

// SessionRunner 抽象 neo4j.SessionWithContext
type SessionRunner interface {
	ExecuteWrite(ctx context.Context, work neo4j.ManagedTransactionWork, configurers ...func(*neo4j.TransactionConfig)) (any, error)
	Close(ctx context.Context) error
}

// DriverSessioner 抽象 neo4j.DriverWithContext
type DriverSessioner interface {
	NewSession(ctx context.Context, config neo4j.SessionConfig) SessionRunner
	Close(ctx context.Context) error
}

type neo4jDriver struct {
	driver neo4j.DriverWithContext
}

func (d *neo4jDriver) NewSession(ctx context.Context, config neo4j.SessionConfig) SessionRunner {
	return d.driver.NewSession(ctx, config)
}

func (d *neo4jDriver) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}

// Connect 连接Neo4j并验证连通性
func Connect(ctx context.Context, uri, user, password string) (DriverSessioner, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("创建Neo4j驱动失败: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("连接Neo4j失败 [%s]: %w", uri, err)
	}
	return &neo4jDriver{driver: driver}, nil
}

// Statement 一条带参数的Cypher语句
type Statement struct {
	Query  string
	Params map[string]any
}

const (
	runQuery = `MERGE (r:CrawlRun {id: $run_id})
SET r.start_url = $start_url, r.host = $host, r.mode = $mode,
    r.start_time = $start_time, r.end_time = $end_time`

	pagesQuery = `UNWIND $pages AS page
MERGE (p:Page {run_id: $run_id, id: page.id})
SET p.url = page.url, p.title = page.title`

	linksQuery = `UNWIND $links AS link
MATCH (a:Page {run_id: $run_id, id: link.source})
MATCH (b:Page {run_id: $run_id, id: link.target})
MERGE (a)-[:LINKS_TO]->(b)`

	rootQuery = `MATCH (r:CrawlRun {id: $run_id})
MATCH (p:Page {run_id: $run_id, id: $root_id})
MERGE (r)-[:STARTS_AT]->(p)`
)

// BuildStatements 生成写入一次爬取结果所需的语句
// 节点先于边写入, 大图按batchSize分批
func BuildStatements(report *models.CrawlReport) []Statement {
	runID := report.Graph.TaskID
	meta := report.Graph
	stmts := []Statement{{
		Query: runQuery,
		Params: map[string]any{
			"run_id":     runID,
			"start_url":  meta.StartURL,
			"host":       meta.Host,
			"mode":       string(meta.Mode),
			"start_time": meta.StartTime.Format("2006-01-02T15:04:05Z07:00"),
			"end_time":   meta.EndTime.Format("2006-01-02T15:04:05Z07:00"),
		},
	}}

	for start := 0; start < len(report.Nodes); start += batchSize {
		end := min(start+batchSize, len(report.Nodes))
		rows := make([]map[string]any, 0, end-start)
		for _, n := range report.Nodes[start:end] {
			rows = append(rows, map[string]any{"id": int64(n.ID), "url": n.URL, "title": n.Title})
		}
		stmts = append(stmts, Statement{Query: pagesQuery, Params: map[string]any{"run_id": runID, "pages": rows}})
	}

	for start := 0; start < len(report.Links); start += batchSize {
		end := min(start+batchSize, len(report.Links))
		rows := make([]map[string]any, 0, end-start)
		for _, e := range report.Links[start:end] {
			rows = append(rows, map[string]any{"source": int64(e.Source), "target": int64(e.Target)})
		}
		stmts = append(stmts, Statement{Query: linksQuery, Params: map[string]any{"run_id": runID, "links": rows}})
	}

	if len(report.Nodes) > 0 {
		stmts = append(stmts, Statement{Query: rootQuery, Params: map[string]any{"run_id": runID, "root_id": int64(0)}})
	}
	return stmts
}

// Exporter 把站点图写入Neo4j
type Exporter struct {
	driver   DriverSessioner
	database string
}

// NewExporter 创建导出器, database为空时使用服务端默认库
func NewExporter(driver DriverSessioner, database string) *Exporter {
	return &Exporter{driver: driver, database: database}
}

// Export 在一个写事务中写入整张图
func (e *Exporter) Export(ctx context.Context, report *models.CrawlReport) error {
	if report.Graph.TaskID == "" {
		return fmt.Errorf("缺少任务ID,无法导出")
	}
	stmts := BuildStatements(report)

	session := e.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: e.database,
	})
	defer func() {
		if err := session.Close(ctx); err != nil {
			utils.Warnf("关闭Neo4j会话失败: %v", err)
		}
	}()

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, stmt := range stmts {
			res, err := tx.Run(ctx, stmt.Query, stmt.Params)
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("写入Neo4j失败: %w", err)
	}

	utils.Infof("已导出到Neo4j: %d 个页面, %d 条边 (run_id=%s)",
		len(report.Nodes), len(report.Links), report.Graph.TaskID)
	return nil
}

// Close 关闭驱动
func (e *Exporter) Close(ctx context.Context) error {
	return e.driver.Close(ctx)
}
