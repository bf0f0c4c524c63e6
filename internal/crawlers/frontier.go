package crawlers

import (
	"context"
	"sync"

	"github.com/RecoveryAshes/SiteGraph/internal/models"
)

// jobQueue 无界FIFO队列
// 只负责存取,去重和编号由Frontier完成
type jobQueue struct {
	mu    sync.Mutex
	items []models.CrawlJob
	wake  chan struct{} // 容量1, 有新任务时投递一个信号
}

func newJobQueue() *jobQueue {
	return &jobQueue{wake: make(chan struct{}, 1)}
}

func (q *jobQueue) put(job models.CrawlJob) {
	q.mu.Lock()
	q.items = append(q.items, job)
	q.mu.Unlock()
	q.signal()
}

// get 阻塞直到取到任务或ctx取消
func (q *jobQueue) get(ctx context.Context) (models.CrawlJob, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			job := q.items[0]
			q.items[0] = models.CrawlJob{}
			q.items = q.items[1:]
			more := len(q.items) > 0
			q.mu.Unlock()
			if more {
				// 唤醒下一个等待者
				q.signal()
			}
			return job, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return models.CrawlJob{}, ctx.Err()
		case <-q.wake:
		}
	}
}

func (q *jobQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *jobQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Frontier 去重、分配编号的待抓取队列
// Submit 在同一把锁内完成查重、编号和登记,保证每个URL最多一个任务
type Frontier struct {
	queue *jobQueue

	mu          sync.Mutex
	visited     map[string]struct{}
	lastID      int
	outstanding int           // 已提交但尚未MarkDone的任务数
	drained     chan struct{} // outstanding归零时关闭
}

// NewFrontier 创建空队列
func NewFrontier() *Frontier {
	return &Frontier{
		queue:   newJobQueue(),
		visited: make(map[string]struct{}),
	}
}

// Submit 入队一个URL,已存在时返回false
func (f *Frontier) Submit(url string, parentID, depth int) bool {
	f.mu.Lock()
	if _, ok := f.visited[url]; ok {
		f.mu.Unlock()
		return false
	}
	f.visited[url] = struct{}{}
	f.lastID++
	f.outstanding++
	job := models.CrawlJob{ID: f.lastID, URL: url, ParentID: parentID, Depth: depth}
	// 持锁入队,保证编号顺序与出队顺序一致
	f.queue.put(job)
	f.mu.Unlock()
	return true
}

// Take 阻塞直到有任务可取或ctx取消
func (f *Frontier) Take(ctx context.Context) (models.CrawlJob, error) {
	return f.queue.get(ctx)
}

// MarkDone 标记一个已取出的任务处理完毕
// 调用次数多于提交数时panic
func (f *Frontier) MarkDone() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.outstanding == 0 {
		panic("crawlers: Frontier.MarkDone 调用次数超过已提交任务数")
	}
	f.outstanding--
	if f.outstanding == 0 && f.drained != nil {
		close(f.drained)
		f.drained = nil
	}
}

// Join 阻塞直到所有已提交任务都被MarkDone
func (f *Frontier) Join(ctx context.Context) error {
	f.mu.Lock()
	if f.outstanding == 0 {
		f.mu.Unlock()
		return nil
	}
	if f.drained == nil {
		f.drained = make(chan struct{})
	}
	drained := f.drained
	f.mu.Unlock()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Seen 是否已经提交过该URL
func (f *Frontier) Seen(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.visited[url]
	return ok
}

// Submitted 已接受的URL总数
func (f *Frontier) Submitted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastID
}

// Outstanding 尚未完成的任务数
func (f *Frontier) Outstanding() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outstanding
}

// Pending 队列中等待被取走的任务数
func (f *Frontier) Pending() int {
	return f.queue.len()
}
