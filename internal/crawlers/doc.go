// Package crawlers 实现站点页面图的并发爬取引擎
//
// # 概述
//
// 从一个起始URL出发,按广度优先顺序抓取同站页面,提取<title>和<a href>链接,
// 构建以父子关系为边的页面树,并按失败类型统计抓取错误。
//
// # 核心组件
//
// ## Frontier (待爬队列)
//
// 无界FIFO队列。Submit对URL去重并分配递增id(根页面为0,首个任务为1),
// Take阻塞直到有任务,MarkDone与Take一一对应,Join在所有已提交任务完成后返回。
//
//	f := NewFrontier()
//	f.Submit("https://example.com", 0, 0)
//	job, _ := f.Take(ctx)
//	defer f.MarkDone()
//
// ## Scope (范围过滤)
//
// 判断候选链接是否属于本次爬取:
//   - 主机: 与起始主机相同,或在允许子域名时属于同一可注册域
//   - 端口必须一致
//   - 扩展名黑名单(图片、脚本、样式、文档等)
//   - URL长度上限
//   - 查询参数: 不允许时去掉查询串; 相似度阈值大于0时,
//     与所在页面查询串过于相似的链接被丢弃
//
// ## Parser (页面解析)
//
// 默认实现PageParser基于goquery,返回首个<title>和去重后的href列表,
// 跳过 rel="nofollow" 的链接。
//
// ## GraphBuilder / SiteGraph
//
// GraphBuilder在爬取过程中追加节点和父子边,Freeze后得到只读的SiteGraph,
// 支持按层级遍历(Walk)用于输出树形文本。
//
// ## Engine (工作池)
//
// 固定数量的worker从Frontier取任务,每次抓取前随机暂停[0, max_pause)秒。
// 抓取失败只计入错误统计,不影响其他任务。取消上下文后,
// 正在进行的抓取会完成但结果被丢弃,Run返回取消错误。
//
//	engine := NewEngine(config, fetcher, WithObserver(onEvent))
//	result, err := engine.Run(ctx, "https://example.com")
//
// # 并发安全
//
//   - Frontier: sync.Mutex + 唤醒channel
//   - GraphBuilder: sync.Mutex
//   - Scope: 构造后只读
//   - CrawlContext: sync.Mutex 保护错误统计与已展开集合
package crawlers
