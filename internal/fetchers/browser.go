package fetchers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/RecoveryAshes/SiteGraph/internal/models"
	"github.com/RecoveryAshes/SiteGraph/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// BrowserFetcher 使用本地无头浏览器渲染页面
// 标签页由PagePool复用,数量受资源监控器约束
type BrowserFetcher struct {
	browser    *rod.Browser
	pool       *PagePool
	timeout    time.Duration
	renderWait time.Duration
	pairs      []string
}

// NewBrowserFetcher 启动浏览器并创建标签页池
// concurrency 为worker数量, cfg.MaxTabs 为0时标签页上限取 min(concurrency, 资源上限)
func NewBrowserFetcher(cfg models.FetchConfig, headers http.Header, concurrency int) (*BrowserFetcher, error) {
	l := launcher.New().Headless(cfg.Headless)
	// 允许访问自签名、过期或主机名不匹配的HTTPS站点
	l = l.Set("ignore-certificate-errors")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}
	utils.Debugf("浏览器已启动: %s", controlURL)

	monitor := NewResourceMonitor(DefaultResourceMonitorConfig())
	maxTabs := cfg.MaxTabs
	if maxTabs <= 0 {
		maxTabs = min(max(concurrency, 1), monitor.CalculateMaxTabs())
	}
	utils.Infof("浏览器标签页上限: %d", maxTabs)

	return &BrowserFetcher{
		browser:    browser,
		pool:       NewPagePool(browser, monitor, maxTabs),
		timeout:    cfg.Timeout(),
		renderWait: time.Duration(cfg.RenderWait * float64(time.Second)),
		pairs:      headerPairs(headers),
	}, nil
}

// Fetch 实现crawlers.Fetcher接口
func (f *BrowserFetcher) Fetch(ctx context.Context, target string) models.FetchResult {
	page, err := f.pool.AcquirePage(ctx)
	if err != nil {
		return classifyError(err)
	}
	defer f.pool.ReleasePage(page)

	p := page.Context(ctx).Timeout(f.timeout)
	defer p.CancelTimeout()

	if len(f.pairs) > 0 {
		cleanup, err := p.SetExtraHeaders(f.pairs)
		if err != nil {
			return models.FetchFailed(models.FailureUnreachable, "设置请求头失败: %v", err)
		}
		defer cleanup()
	}

	// 只记录主文档的最终响应, 重定向中间响应不会触发该事件
	status := 0
	waitResponse := p.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument {
			return false
		}
		status = e.Response.Status
		return true
	})

	if err := p.Navigate(target); err != nil {
		return classifyError(err)
	}
	waitResponse()
	if err := p.GetContext().Err(); err != nil {
		return classifyError(err)
	}
	if failed, ok := classifyStatus(status, ""); ok {
		return failed
	}

	if err := p.WaitLoad(); err != nil {
		return classifyError(err)
	}
	if f.renderWait > 0 {
		select {
		case <-p.GetContext().Done():
			return classifyError(p.GetContext().Err())
		case <-time.After(f.renderWait):
		}
	}

	html, err := p.HTML()
	if err != nil {
		return classifyError(err)
	}
	return models.FetchedHTML(html)
}

// Close 关闭标签页池和浏览器
func (f *BrowserFetcher) Close() error {
	f.pool.Close()
	if err := f.browser.Close(); err != nil {
		return fmt.Errorf("关闭浏览器失败: %w", err)
	}
	utils.Debugf("浏览器已关闭")
	return nil
}
