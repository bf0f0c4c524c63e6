package crawlers

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/RecoveryAshes/SiteGraph/internal/models"
	"github.com/RecoveryAshes/SiteGraph/internal/utils"
	"golang.org/x/sync/errgroup"
)

// Fetcher 把URL转换为页面HTML或带类型的失败
// 超时由实现自行处理并转换为 timeout 失败
type Fetcher interface {
	Fetch(ctx context.Context, url string) models.FetchResult
}

// EventKind 爬取事件类型
type EventKind int

const (
	EventPageCrawled EventKind = iota // 页面抓取并写入图
	EventFetchFailed                  // 抓取失败
)

// Event 爬取过程中的事件,用于进度展示
type Event struct {
	Kind    EventKind
	Job     models.CrawlJob
	Title   string
	Failure *models.FetchFailure
}

// Result 一次爬取的结果
type Result struct {
	Graph  *SiteGraph
	Errors models.ErrorTally
	Stats  models.CrawlStats
}

// CrawlContext 单次爬取的共享状态
// 由Engine.Run创建并在结束时丢弃
type CrawlContext struct {
	StartURL string
	Frontier *Frontier
	Graph    *GraphBuilder
	Scope    *Scope

	mu       sync.Mutex
	expanded map[string]struct{}
	crawled  int
	tally    models.ErrorTally
}

func newCrawlContext(startURL string, scope *Scope) *CrawlContext {
	return &CrawlContext{
		StartURL: startURL,
		Frontier: NewFrontier(),
		Graph:    NewGraphBuilder(),
		Scope:    scope,
		expanded: make(map[string]struct{}),
		tally:    make(models.ErrorTally),
	}
}

// markExpanded 首次出现时登记并返回true
func (c *CrawlContext) markExpanded(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.expanded[url]; ok {
		return false
	}
	c.expanded[url] = struct{}{}
	return true
}

func (c *CrawlContext) recordFailure(kind string) {
	c.mu.Lock()
	c.tally[kind]++
	c.mu.Unlock()
}

func (c *CrawlContext) recordCrawled() {
	c.mu.Lock()
	c.crawled++
	c.mu.Unlock()
}

func (c *CrawlContext) result() *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	tally := make(models.ErrorTally, len(c.tally))
	for k, v := range c.tally {
		tally[k] = v
	}
	return &Result{
		Graph:  c.Graph.Freeze(),
		Errors: tally,
		Stats: models.CrawlStats{
			LinksFound:   c.Frontier.Submitted(),
			PagesCrawled: c.crawled,
			Failed:       tally.Total(),
		},
	}
}

// EngineOption Engine配置项
type EngineOption func(*Engine)

// WithParser 替换默认的页面解析器
func WithParser(p Parser) EngineOption {
	return func(e *Engine) { e.parser = p }
}

// WithObserver 注册事件回调; 回调会被多个worker并发调用
func WithObserver(fn func(Event)) EngineOption {
	return func(e *Engine) { e.observer = fn }
}

// Engine 固定数量worker的爬取引擎
type Engine struct {
	config   models.CrawlConfig
	fetcher  Fetcher
	parser   Parser
	observer func(Event)
}

// NewEngine 创建爬取引擎
func NewEngine(config models.CrawlConfig, fetcher Fetcher, opts ...EngineOption) *Engine {
	e := &Engine{
		config:  config,
		fetcher: fetcher,
		parser:  NewPageParser(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run 从startURL开始爬取,直到队列中所有任务完成
// ctx被取消时返回错误,不返回部分结果
func (e *Engine) Run(ctx context.Context, startURL string) (*Result, error) {
	if err := e.config.Validate(); err != nil {
		return nil, fmt.Errorf("爬取配置无效: %w", err)
	}
	seed := Normalize(startURL, "")
	scope, err := NewScope(seed, e.config)
	if err != nil {
		return nil, err
	}

	cc := newCrawlContext(seed, scope)
	if err := cc.Graph.AddRoot(seed); err != nil {
		return nil, err
	}
	cc.Frontier.Submit(seed, RootID, 0)

	utils.Infof("开始爬取: %s (并发: %d, 最大暂停: %.1fs)", seed, e.config.Concurrency, e.config.MaxPauseSeconds)

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(workerCtx)
	for i := 0; i < e.config.Concurrency; i++ {
		workerID := i
		g.Go(func() error {
			e.worker(gctx, cc, workerID)
			return nil
		})
	}

	joinErr := cc.Frontier.Join(ctx)
	cancel()
	_ = g.Wait()

	if joinErr != nil {
		return nil, fmt.Errorf("爬取中断: %w", joinErr)
	}

	res := cc.result()
	utils.Infof("爬取完成: %s (发现: %d, 成功: %d, 失败: %d)",
		seed, res.Stats.LinksFound, res.Stats.PagesCrawled, res.Stats.Failed)
	return res, nil
}

// worker 循环取任务直到ctx取消
// 每个取出的任务恰好MarkDone一次
func (e *Engine) worker(ctx context.Context, cc *CrawlContext, workerID int) {
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	for {
		job, err := cc.Frontier.Take(ctx)
		if err != nil {
			return
		}
		e.process(ctx, cc, job, rng, workerID)
		cc.Frontier.MarkDone()
	}
}

func (e *Engine) process(ctx context.Context, cc *CrawlContext, job models.CrawlJob, rng *rand.Rand, workerID int) {
	defer func() {
		if r := recover(); r != nil {
			utils.Errorf("Worker %d 处理页面panic [%s]: %v", workerID, job.URL, r)
		}
	}()

	if !e.pause(ctx, rng) {
		return
	}

	// 正在进行的抓取不随引擎停止而中断,但结果会被丢弃
	res := e.fetcher.Fetch(context.WithoutCancel(ctx), job.URL)
	if ctx.Err() != nil {
		return
	}

	if !res.OK() {
		cc.recordFailure(res.Failure.Kind)
		utils.Logger.Warn().
			Int("worker", workerID).
			Str("kind", res.Failure.Kind).
			Str("url", job.URL).
			Msg(res.Failure.Message)
		e.notify(Event{Kind: EventFetchFailed, Job: job, Failure: res.Failure})
		return
	}

	title, links := e.parser.Parse(res.HTML)
	if err := cc.Graph.AddPage(job.ID, job.ParentID, job.URL, title); err != nil {
		utils.Logger.Error().Err(err).Str("url", job.URL).Msg("写入站点图失败")
		return
	}
	cc.recordCrawled()
	utils.Debugf("Worker %d 已抓取: %s (ID: %d, 深度: %d, 链接: %d)", workerID, job.URL, job.ID, job.Depth, len(links))
	e.notify(Event{Kind: EventPageCrawled, Job: job, Title: title})

	if e.config.DepthBounded() && job.Depth >= e.config.MaxDepth {
		return
	}

	submitted := 0
	for link := range cc.Scope.FilterCandidates(links, job.URL, cc.Frontier.Seen) {
		if !cc.markExpanded(link) {
			continue
		}
		if cc.Frontier.Submit(link, job.ID, job.Depth+1) {
			submitted++
		}
	}
	if submitted > 0 {
		utils.Debugf("从 %s 提交了 %d 个新链接", job.URL, submitted)
	}
}

// pause 随机暂停 [0, maxPause]; ctx取消时返回false
func (e *Engine) pause(ctx context.Context, rng *rand.Rand) bool {
	maxPause := e.config.MaxPause()
	if maxPause <= 0 {
		return ctx.Err() == nil
	}
	d := time.Duration(rng.Int64N(int64(maxPause) + 1))
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (e *Engine) notify(ev Event) {
	if e.observer != nil {
		e.observer(ev)
	}
}
