package fetchers

import (
	"context"
	"crypto/tls"
	"net/http"

	"github.com/RecoveryAshes/SiteGraph/internal/models"
	"github.com/gocolly/colly/v2"
)

const (
	ctxKeyBody   = "sitegraph_body"
	ctxKeyStatus = "sitegraph_status"
)

// DirectFetcher 基于Colly直接请求源站
// 请求同步执行,可被多个worker并发调用
type DirectFetcher struct {
	collector *colly.Collector
}

// NewDirectFetcher 创建直连抓取器
func NewDirectFetcher(cfg models.FetchConfig, headers http.Header) *DirectFetcher {
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.ParseHTTPErrorResponse(),
	)
	c.WithTransport(&http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	})
	c.SetRequestTimeout(cfg.Timeout())

	pairs := headerPairs(headers)
	c.OnRequest(func(r *colly.Request) {
		for i := 0; i+1 < len(pairs); i += 2 {
			r.Headers.Set(pairs[i], pairs[i+1])
		}
	})
	// 非2xx响应同样进入OnResponse, 由Fetch统一判断状态码
	c.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(ctxKeyStatus, r.StatusCode)
		r.Ctx.Put(ctxKeyBody, string(r.Body))
	})

	return &DirectFetcher{collector: c}
}

// Fetch 实现crawlers.Fetcher接口
func (f *DirectFetcher) Fetch(ctx context.Context, target string) models.FetchResult {
	if err := ctx.Err(); err != nil {
		return classifyError(err)
	}

	reqCtx := colly.NewContext()
	if err := f.collector.Request(http.MethodGet, target, nil, reqCtx, nil); err != nil {
		return classifyError(err)
	}

	code, _ := reqCtx.GetAny(ctxKeyStatus).(int)
	if failed, ok := classifyStatus(code, ""); ok {
		return failed
	}

	body, _ := reqCtx.GetAny(ctxKeyBody).(string)
	return models.FetchedHTML(body)
}
