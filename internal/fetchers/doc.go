// Package fetchers 实现页面抓取器
//
// 三种抓取方式都满足 crawlers.Fetcher 接口,返回带类型的抓取结果而不是error:
//
//   - SplashFetcher: 通过Splash渲染服务的 render.html 接口获取渲染后的HTML (默认)
//   - DirectFetcher: 基于Colly直接请求源站,不执行JavaScript
//   - BrowserFetcher: 基于go-rod驱动本地无头浏览器渲染,标签页数量由ResourceMonitor控制
//
// 失败类型统一为 unreachable、timeout 或HTTP状态码字符串 (如 "404")。
package fetchers
