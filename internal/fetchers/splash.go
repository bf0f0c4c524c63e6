package fetchers

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/RecoveryAshes/SiteGraph/internal/models"
	"github.com/RecoveryAshes/SiteGraph/internal/utils"
)

// maxBodySize 响应体读取上限
const maxBodySize = 20 * 1024 * 1024

// SplashFetcher 通过Splash的 render.html 接口抓取渲染后的页面
// 请求头发送给Splash本身
type SplashFetcher struct {
	client        *http.Client
	endpoint      *url.URL
	renderTimeout float64
	renderWait    float64
	headers       http.Header
}

// NewSplashFetcher 创建Splash抓取器
func NewSplashFetcher(cfg models.FetchConfig, headers http.Header) (*SplashFetcher, error) {
	base, err := url.Parse(strings.TrimRight(cfg.Renderer, "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("Splash地址无效: %q", cfg.Renderer)
	}
	endpoint := base.JoinPath("render.html")

	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
		Timeout: cfg.Timeout(),
	}

	utils.Debugf("Splash抓取器: %s (渲染超时: %gs, 等待: %gs, 请求超时: %ds)",
		endpoint, cfg.RenderTimeout, cfg.RenderWait, cfg.RequestTimeout)

	return &SplashFetcher{
		client:        client,
		endpoint:      endpoint,
		renderTimeout: cfg.RenderTimeout,
		renderWait:    cfg.RenderWait,
		headers:       headers.Clone(),
	}, nil
}

// RenderURL 目标URL对应的Splash请求地址
func (f *SplashFetcher) RenderURL(target string) string {
	q := url.Values{}
	q.Set("url", target)
	if f.renderTimeout > 0 {
		q.Set("timeout", strconv.FormatFloat(f.renderTimeout, 'f', -1, 64))
	}
	if f.renderWait > 0 {
		q.Set("wait", strconv.FormatFloat(f.renderWait, 'f', -1, 64))
	}
	u := *f.endpoint
	u.RawQuery = q.Encode()
	return u.String()
}

// Fetch 实现crawlers.Fetcher接口
func (f *SplashFetcher) Fetch(ctx context.Context, target string) models.FetchResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.RenderURL(target), nil)
	if err != nil {
		return models.FetchFailed(models.FailureUnreachable, "创建请求失败: %v", err)
	}
	for name, values := range f.headers {
		req.Header[name] = values
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return classifyError(err)
	}

	if failed, ok := classifyStatus(resp.StatusCode, resp.Status); ok {
		return failed
	}

	if encoding := resp.Header.Get("Content-Encoding"); encoding != "" {
		decompressed, err := decompressBody(encoding, body)
		if err != nil {
			utils.Warnf("解压响应失败 [%s] (编码=%s): %v", target, encoding, err)
		} else {
			body = decompressed
		}
	}

	utils.Debugf("Splash渲染完成: %s (%d bytes, %v)", target, len(body), time.Since(start).Round(time.Millisecond))
	return models.FetchedHTML(string(body))
}
