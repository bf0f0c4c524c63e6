package crawlers

import (
	"fmt"
	"iter"
	"net"
	"net/url"
	"path"
	"strings"

	"github.com/RecoveryAshes/SiteGraph/internal/models"
	"github.com/RecoveryAshes/SiteGraph/internal/utils"
	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"golang.org/x/net/publicsuffix"
)

// Scope 判断链接是否属于被抓取的站点,并负责URL规范化
// 除配置外不持有状态,可被多个worker并发调用
type Scope struct {
	rootHost        string // 小写,含端口
	rootDomain      string // 可注册域名 (eTLD+1)
	rootPort        string
	allowSubdomains bool
	allowQueries    bool
	deniedExt       map[string]struct{}
	maxURLLength    int
	querySimilarity float64
	metric          strutil.StringMetric
}

// NewScope 根据种子URL和爬取配置创建Scope
func NewScope(startURL string, cfg models.CrawlConfig) (*Scope, error) {
	root, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("解析种子URL失败: %w", err)
	}
	if root.Host == "" {
		return nil, fmt.Errorf("种子URL缺少主机名: %q", startURL)
	}

	denied := make(map[string]struct{}, len(cfg.DeniedExtensions))
	for _, ext := range cfg.DeniedExtensions {
		denied[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}

	return &Scope{
		rootHost:        strings.ToLower(root.Host),
		rootDomain:      registrableDomain(root.Hostname()),
		rootPort:        root.Port(),
		allowSubdomains: cfg.AllowSubdomains,
		allowQueries:    cfg.AllowQueries,
		deniedExt:       denied,
		maxURLLength:    cfg.MaxURLLength,
		querySimilarity: cfg.QuerySimilarity,
		metric:          metrics.NewJaroWinkler(),
	}, nil
}

// registrableDomain 返回主机的可注册域名; IP和无法识别的主机原样返回
func registrableDomain(hostname string) string {
	hostname = strings.ToLower(strings.TrimSuffix(hostname, "."))
	if net.ParseIP(hostname) != nil {
		return hostname
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(hostname)
	if err != nil {
		return hostname
	}
	return domain
}

// IsInScope 判断candidate是否应被抓取
// discoveredOn 为发现该链接的页面URL
func (s *Scope) IsInScope(candidate, discoveredOn string) bool {
	ok, reason := s.Check(candidate, discoveredOn)
	if !ok {
		utils.Logger.Debug().Str("url", candidate).Str("reason", reason).Msg("链接已过滤")
	}
	return ok
}

// Check 与IsInScope相同,额外返回拒绝原因
func (s *Scope) Check(candidate, discoveredOn string) (bool, string) {
	switch {
	case candidate == "":
		return false, "空链接"
	case strings.HasPrefix(candidate, "#"):
		return false, "页内锚点"
	case strings.HasPrefix(candidate, "//"):
		return false, "协议相对链接"
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return false, "URL格式无效"
	}

	if !strings.HasPrefix(candidate, "/") {
		if !s.hostAllowed(parsed) {
			return false, "不在站点范围内"
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return false, "不支持的协议"
		}
	}

	if s.extensionDenied(parsed.Path) {
		return false, "扩展名在黑名单中"
	}

	if s.queryTooSimilar(parsed, discoveredOn) {
		return false, "查询参数与父页面过于相似"
	}

	if s.maxURLLength > 0 && len(Normalize(candidate, discoveredOn)) > s.maxURLLength {
		return false, "URL过长"
	}

	return true, ""
}

// hostAllowed 主机完全一致,或允许子域名时可注册域名与端口一致
func (s *Scope) hostAllowed(u *url.URL) bool {
	host := strings.ToLower(u.Host)
	if host == "" {
		return false
	}
	if host == s.rootHost {
		return true
	}
	if !s.allowSubdomains || u.Port() != s.rootPort {
		return false
	}
	return registrableDomain(u.Hostname()) == s.rootDomain
}

func (s *Scope) extensionDenied(p string) bool {
	if len(s.deniedExt) == 0 {
		return false
	}
	ext := strings.TrimPrefix(path.Ext(p), ".")
	if ext == "" {
		return false
	}
	_, denied := s.deniedExt[strings.ToLower(ext)]
	return denied
}

// queryTooSimilar 两边查询串都非空且Jaro-Winkler相似度达到阈值
func (s *Scope) queryTooSimilar(candidate *url.URL, discoveredOn string) bool {
	if s.querySimilarity <= 0 || candidate.RawQuery == "" {
		return false
	}
	parent, err := url.Parse(discoveredOn)
	if err != nil || parent.RawQuery == "" {
		return false
	}
	return strutil.Similarity(parent.RawQuery, candidate.RawQuery, s.metric) >= s.querySimilarity
}

// StripQuery 去掉查询部分,其余保持不变
func StripQuery(rawURL string) string {
	rest, fragment, hasFragment := strings.Cut(rawURL, "#")
	base, _, hasQuery := strings.Cut(rest, "?")
	if !hasQuery {
		return rawURL
	}
	if hasFragment {
		return base + "#" + fragment
	}
	return base
}

// Normalize 规范化链接
// 根相对链接基于base解析,去掉片段,去掉末尾的 "/"
func Normalize(link, base string) string {
	if strings.HasPrefix(link, "/") && !strings.HasPrefix(link, "//") {
		if resolved, err := resolve(link, base); err == nil {
			link = resolved
		}
	}
	link, _, _ = strings.Cut(link, "#")
	return strings.TrimRight(link, "/")
}

func resolve(link, base string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(link)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(ref).String(), nil
}

// FilterCandidates 依次过滤原始链接,产出规范化后尚未提交过的URL
// seen 判断URL是否已提交; 返回的序列只应消费一次
func (s *Scope) FilterCandidates(rawLinks []string, discoveredOn string, seen func(string) bool) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, link := range rawLinks {
			if !s.IsInScope(link, discoveredOn) {
				continue
			}
			if !s.allowQueries {
				link = StripQuery(link)
			}
			link = Normalize(link, discoveredOn)
			if link == "" || (seen != nil && seen(link)) {
				continue
			}
			if !yield(link) {
				return
			}
		}
	}
}
