package core

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/RecoveryAshes/SiteGraph/internal/crawlers"
	"github.com/RecoveryAshes/SiteGraph/internal/models"
	"github.com/RecoveryAshes/SiteGraph/internal/utils"
)

// GraphExporter 爬取结果的额外输出目标(如Neo4j)
type GraphExporter interface {
	Export(ctx context.Context, report *models.CrawlReport) error
}

// CrawlOutcome 单个站点的爬取结果
type CrawlOutcome struct {
	Task     *models.CrawlTask
	Report   *models.CrawlReport
	Graph    *crawlers.SiteGraph
	JSONPath string
	TreePath string
}

// CrawlerOption Crawler配置项
type CrawlerOption func(*Crawler)

// WithFetcherFactory 替换抓取器创建方式
func WithFetcherFactory(f FetcherFactory) CrawlerOption {
	return func(c *Crawler) { c.newFetcher = f }
}

// WithExporter 爬取完成后额外导出结果
func WithExporter(e GraphExporter) CrawlerOption {
	return func(c *Crawler) { c.exporter = e }
}

// WithConsole 摘要输出位置
func WithConsole(w io.Writer) CrawlerOption {
	return func(c *Crawler) { c.console = w }
}

// WithProgress 是否显示进度条
func WithProgress(show bool) CrawlerOption {
	return func(c *Crawler) { c.showProgress = show }
}

// Crawler 主爬取器协调器
// 负责选择抓取器、运行爬取引擎、写出结果文件和导出
type Crawler struct {
	config         *Config
	headerProvider models.HeaderProvider

	newFetcher   FetcherFactory
	exporter     GraphExporter
	console      io.Writer
	showProgress bool
}

// NewCrawler 创建主爬取器
func NewCrawler(config *Config, headerProvider models.HeaderProvider, opts ...CrawlerOption) *Crawler {
	c := &Crawler{
		config:         config,
		headerProvider: headerProvider,
		newFetcher:     NewFetcher,
		showProgress:   true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Crawl 爬取一个站点
// 执行流程:
//  1. 校验起始URL并创建任务
//  2. 创建抓取器
//  3. 运行爬取引擎直到队列耗尽
//  4. 写出 JSON 和树形文本
//  5. 可选导出到图数据库
func (c *Crawler) Crawl(ctx context.Context, startURL string) (*CrawlOutcome, error) {
	task, err := models.NewCrawlTask(startURL, c.config.Crawl, c.config.Fetch.Mode)
	if err != nil {
		return nil, fmt.Errorf("创建任务失败: %w", err)
	}

	headers, err := c.headerProvider.GetHeaders()
	if err != nil {
		return nil, fmt.Errorf("获取HTTP头部失败: %w", err)
	}

	fetcher, err := c.newFetcher(c.config.Fetch, headers, c.config.Crawl.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("创建抓取器失败: %w", err)
	}
	defer func() {
		if err := closeFetcher(fetcher); err != nil {
			utils.Error(err, "关闭抓取器失败")
		}
	}()

	utils.Infof("🚀 开始爬取任务 %s", task.ID)
	utils.Infof("目标URL: %s", task.StartURL)
	utils.Infof("抓取方式: %s", task.Mode)

	var opts []crawlers.EngineOption
	if c.showProgress {
		bar := utils.NewProgressBar(-1, "爬取页面")
		defer bar.Finish()
		opts = append(opts, crawlers.WithObserver(func(crawlers.Event) {
			_ = bar.Add(1)
		}))
	}

	task.Start()
	res, err := crawlers.NewEngine(c.config.Crawl, fetcher, opts...).Run(ctx, task.StartURL)
	task.Finish(err)
	if err != nil {
		return nil, err
	}
	task.Stats.LinksFound = res.Stats.LinksFound
	task.Stats.PagesCrawled = res.Stats.PagesCrawled
	task.Stats.Failed = res.Stats.Failed

	outcome := &CrawlOutcome{
		Task:   task,
		Report: buildReport(task, res),
		Graph:  res.Graph,
	}

	reporter := utils.NewReporter(c.config.Output.Dir, c.console)
	reporter.PrintSummary(task.StartURL, task.Stats, res.Errors)

	if res.Stats.PagesCrawled == 0 {
		utils.Warnf("没有成功抓取任何页面,不写出结果文件")
		return outcome, nil
	}

	prefix := utils.OutputPrefix(c.config.Output.Prefix, task.StartURL, time.Now())
	outcome.JSONPath, outcome.TreePath, err = reporter.SaveReport(prefix, outcome.Report, res.Graph)
	if err != nil {
		return outcome, fmt.Errorf("写出结果失败: %w", err)
	}
	utils.Infof("✅ 图数据已写入 %s", outcome.JSONPath)
	utils.Infof("✅ 链接树已写入 %s", outcome.TreePath)

	if c.exporter != nil {
		if err := c.exporter.Export(ctx, outcome.Report); err != nil {
			return outcome, fmt.Errorf("导出失败: %w", err)
		}
	}
	return outcome, nil
}

// buildReport 把引擎结果转换为node-link报告
func buildReport(task *models.CrawlTask, res *crawlers.Result) *models.CrawlReport {
	meta := models.GraphMeta{
		TaskID:   task.ID,
		StartURL: task.StartURL,
		Host:     task.Host,
		Mode:     task.Mode,
	}
	if task.StartedAt != nil {
		meta.StartTime = *task.StartedAt
	}
	if task.CompletedAt != nil {
		meta.EndTime = *task.CompletedAt
	}
	return &models.CrawlReport{
		Directed:   true,
		Multigraph: false,
		Graph:      meta,
		Nodes:      res.Graph.Nodes(),
		Links:      res.Graph.Edges(),
		Errors:     res.Errors,
		Stats:      task.Stats,
		Config:     task.Config,
	}
}
