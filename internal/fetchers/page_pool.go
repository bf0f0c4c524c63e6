package fetchers

import (
	"context"
	"errors"
	"sync"

	"github.com/RecoveryAshes/SiteGraph/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// ErrPoolClosed 标签页池已关闭
var ErrPoolClosed = errors.New("标签页池已关闭")

// PagePool 浏览器标签页池
// 按需创建标签页,数量不超过maxSize; 资源不足时等待已有标签页归还
type PagePool struct {
	monitor *ResourceMonitor
	maxSize int

	create  func() (*rod.Page, error)
	reset   func(*rod.Page) error
	destroy func(*rod.Page)

	available chan *rod.Page
	done      chan struct{}

	mu     sync.Mutex
	size   int
	closed bool
}

// NewPagePool 创建标签页池
func NewPagePool(browser *rod.Browser, monitor *ResourceMonitor, maxSize int) *PagePool {
	pp := newPagePool(monitor, maxSize)
	pp.create = func() (*rod.Page, error) {
		return browser.Page(proto.TargetCreateTarget{})
	}
	pp.reset = func(page *rod.Page) error {
		return page.Navigate("about:blank")
	}
	pp.destroy = func(page *rod.Page) {
		if err := page.Close(); err != nil {
			utils.Debugf("关闭标签页失败: %v", err)
		}
	}
	return pp
}

func newPagePool(monitor *ResourceMonitor, maxSize int) *PagePool {
	maxSize = max(maxSize, 1)
	return &PagePool{
		monitor:   monitor,
		maxSize:   maxSize,
		available: make(chan *rod.Page, maxSize),
		done:      make(chan struct{}),
	}
}

// AcquirePage 获取一个可用的标签页
func (pp *PagePool) AcquirePage(ctx context.Context) (*rod.Page, error) {
	select {
	case page := <-pp.available:
		return page, nil
	default:
	}

	if pp.reserveSlot() {
		page, err := pp.create()
		if err != nil {
			pp.releaseSlot()
			return nil, err
		}
		utils.Debugf("创建新标签页, 当前标签页数: %d, 最大限制: %d", pp.CurrentSize(), pp.maxSize)
		return page, nil
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-pp.done:
		return nil, ErrPoolClosed
	case page := <-pp.available:
		return page, nil
	}
}

// reserveSlot 占用一个新标签页名额
// 池内至少有一个标签页后才参考资源监控结果
func (pp *PagePool) reserveSlot() bool {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	if pp.closed || pp.size >= pp.maxSize {
		return false
	}
	if pp.size > 0 && pp.monitor != nil {
		if ok, reason := pp.monitor.CheckResourceAvailability(); !ok {
			utils.Warnf("资源不足,暂不创建新标签页: %s", reason)
			return false
		}
	}
	pp.size++
	return true
}

func (pp *PagePool) releaseSlot() {
	pp.mu.Lock()
	pp.size--
	pp.mu.Unlock()
}

// ReleasePage 归还标签页; 无法复位的标签页会被销毁
func (pp *PagePool) ReleasePage(page *rod.Page) {
	pp.mu.Lock()
	closed := pp.closed
	pp.mu.Unlock()

	if closed {
		pp.destroy(page)
		return
	}
	if err := pp.reset(page); err != nil {
		utils.Debugf("复位标签页失败,销毁: %v", err)
		pp.destroy(page)
		pp.releaseSlot()
		return
	}

	select {
	case pp.available <- page:
	default:
		pp.destroy(page)
		pp.releaseSlot()
	}
}

// CurrentSize 已创建的标签页数
func (pp *PagePool) CurrentSize() int {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return pp.size
}

// MaxSize 标签页上限
func (pp *PagePool) MaxSize() int {
	return pp.maxSize
}

// Close 关闭池并销毁空闲标签页
func (pp *PagePool) Close() {
	pp.mu.Lock()
	if pp.closed {
		pp.mu.Unlock()
		return
	}
	pp.closed = true
	close(pp.done)
	pp.mu.Unlock()

	for {
		select {
		case page := <-pp.available:
			pp.destroy(page)
		default:
			return
		}
	}
}
