package core

import (
	"fmt"
	"io"
	"net/http"

	"github.com/RecoveryAshes/SiteGraph/internal/crawlers"
	"github.com/RecoveryAshes/SiteGraph/internal/fetchers"
	"github.com/RecoveryAshes/SiteGraph/internal/models"
)

// FetcherFactory 根据抓取配置创建Fetcher
// 返回的Fetcher若实现io.Closer, 爬取结束后会被关闭
type FetcherFactory func(cfg models.FetchConfig, headers http.Header, concurrency int) (crawlers.Fetcher, error)

// NewFetcher 按 fetch.mode 创建抓取器
func NewFetcher(cfg models.FetchConfig, headers http.Header, concurrency int) (crawlers.Fetcher, error) {
	switch cfg.Mode {
	case models.ModeSplash:
		return fetchers.NewSplashFetcher(cfg, headers)
	case models.ModeDirect:
		return fetchers.NewDirectFetcher(cfg, headers), nil
	case models.ModeBrowser:
		return fetchers.NewBrowserFetcher(cfg, headers, concurrency)
	default:
		return nil, fmt.Errorf("未知的抓取方式: %q", cfg.Mode)
	}
}

// closeFetcher 关闭持有资源的抓取器
func closeFetcher(f crawlers.Fetcher) error {
	if c, ok := f.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
