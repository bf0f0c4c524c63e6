package fetchers

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/RecoveryAshes/SiteGraph/internal/models"
)

// classifyError 把传输层错误转换为失败结果
// 超时归为 timeout, 其余归为 unreachable
func classifyError(err error) models.FetchResult {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return models.FetchFailed(models.FailureTimeout, "%v", err)
	}
	return models.FetchFailed(models.FailureUnreachable, "%v", err)
}

// classifyStatus 非2xx状态码转换为失败结果, 2xx返回false
func classifyStatus(code int, status string) (models.FetchResult, bool) {
	if code >= 200 && code < 300 {
		return models.FetchResult{}, false
	}
	if status == "" {
		status = http.StatusText(code)
	}
	return models.StatusFailure(code, status), true
}

// headerPairs 把请求头展开为 name, value 列表
// 传输层自行处理的 Accept-Encoding 会被跳过
func headerPairs(headers http.Header) []string {
	pairs := make([]string, 0, len(headers)*2)
	for name, values := range headers {
		if len(values) == 0 || http.CanonicalHeaderKey(name) == "Accept-Encoding" {
			continue
		}
		pairs = append(pairs, name, values[0])
	}
	return pairs
}
