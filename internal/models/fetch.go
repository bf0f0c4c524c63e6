package models

import (
	"fmt"
	"strconv"
)

// 抓取失败类型
const (
	FailureUnreachable = "unreachable" // 渲染服务或源站无法连接
	FailureTimeout     = "timeout"     // 超过抓取器的截止时间
)

// FetchFailure 抓取失败
// Kind 为 unreachable、timeout 或十进制HTTP状态码
type FetchFailure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Error 实现error接口
func (f *FetchFailure) Error() string {
	return fmt.Sprintf("抓取失败 [%s]: %s", f.Kind, f.Message)
}

// FetchResult 抓取结果: 要么是HTML,要么是Failure
type FetchResult struct {
	HTML    string
	Failure *FetchFailure
}

// OK 是否抓取成功
func (r FetchResult) OK() bool {
	return r.Failure == nil
}

// FetchedHTML 构造成功结果
func FetchedHTML(html string) FetchResult {
	return FetchResult{HTML: html}
}

// FetchFailed 构造失败结果
func FetchFailed(kind, format string, args ...any) FetchResult {
	return FetchResult{Failure: &FetchFailure{Kind: kind, Message: fmt.Sprintf(format, args...)}}
}

// StatusFailure 非2xx响应对应的失败结果
func StatusFailure(code int, status string) FetchResult {
	return FetchFailed(strconv.Itoa(code), "%s", status)
}
