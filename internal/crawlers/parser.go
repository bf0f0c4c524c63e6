package crawlers

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Parser 把HTML解析为 (标题, 原始链接)
type Parser interface {
	Parse(html string) (title string, links []string)
}

// PageParser 基于goquery的页面解析器
// 标题取第一个<title>; 链接为 rel 不等于 "nofollow" 的 <a> 的非空 href, 按文档顺序去重
type PageParser struct{}

// NewPageParser 创建页面解析器
func NewPageParser() *PageParser {
	return &PageParser{}
}

// Parse 实现Parser接口
// 无法解析的HTML返回空标题和空链接
func (p *PageParser) Parse(html string) (string, []string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", nil
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		if rel, ok := a.Attr("rel"); ok && rel == "nofollow" {
			return
		}
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}
		links = append(links, href)
	})

	return title, links
}
