package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"   // 待执行
	TaskStatusRunning   TaskStatus = "running"   // 执行中
	TaskStatusCompleted TaskStatus = "completed" // 已完成
	TaskStatusFailed    TaskStatus = "failed"    // 失败
	TaskStatusCancelled TaskStatus = "cancelled" // 已取消
)

// FetchMode 页面抓取方式
type FetchMode string

const (
	ModeSplash  FetchMode = "splash"  // 经由Splash渲染代理
	ModeDirect  FetchMode = "direct"  // 直接请求源站,不执行JS
	ModeBrowser FetchMode = "browser" // 本地无头浏览器渲染
)

// DefaultDeniedExtensions 默认不抓取的文件扩展名
var DefaultDeniedExtensions = []string{
	"7z", "apk", "avi", "bmp", "bz2", "css", "csv", "dmg", "doc", "docx", "eot",
	"exe", "flv", "gif", "gz", "ico", "iso", "jpeg", "jpg", "js", "json", "mkv",
	"mov", "mp3", "mp4", "msi", "ogg", "otf", "pdf", "png", "ppt", "pptx", "rar",
	"rss", "svg", "tar", "tgz", "tif", "tiff", "ttf", "wav", "webm", "webp", "wmv",
	"woff", "woff2", "xls", "xlsx", "xml", "xz", "zip",
}

// CrawlConfig 爬取配置
type CrawlConfig struct {
	AllowSubdomains  bool     `json:"allow_subdomains" mapstructure:"allow_subdomains"`   // 是否允许子域名 (默认:true)
	AllowQueries     bool     `json:"allow_queries" mapstructure:"allow_queries"`         // 是否保留查询参数 (默认:false)
	MaxDepth         int      `json:"max_depth" mapstructure:"max_depth"`                 // 最大深度, <=0 表示不限
	Concurrency      int      `json:"concurrency" mapstructure:"concurrency"`             // 并发worker数 (默认:5)
	MaxPauseSeconds  float64  `json:"max_pause" mapstructure:"max_pause"`                 // 每次抓取前随机暂停上限(秒) (默认:10)
	DeniedExtensions []string `json:"denied_extensions" mapstructure:"denied_extensions"` // 扩展名黑名单
	MaxURLLength     int      `json:"max_url_length" mapstructure:"max_url_length"`       // URL最大长度, <=0 表示不限
	QuerySimilarity  float64  `json:"query_similarity" mapstructure:"query_similarity"`   // 查询串相似度阈值, 0 表示关闭
}

// DefaultCrawlConfig 默认爬取配置
func DefaultCrawlConfig() CrawlConfig {
	return CrawlConfig{
		AllowSubdomains:  true,
		Concurrency:      5,
		MaxPauseSeconds:  10.0,
		DeniedExtensions: slices.Clone(DefaultDeniedExtensions),
		MaxURLLength:     2048,
		QuerySimilarity:  0.85,
	}
}

// Validate 验证配置
func (c *CrawlConfig) Validate() error {
	if c.Concurrency < 1 || c.Concurrency > 256 {
		return fmt.Errorf("并发数必须在1-256之间, 当前: %d", c.Concurrency)
	}
	if c.MaxPauseSeconds < 0 || c.MaxPauseSeconds > 3600 {
		return fmt.Errorf("暂停上限必须在0-3600秒之间, 当前: %g", c.MaxPauseSeconds)
	}
	if c.QuerySimilarity < 0 || c.QuerySimilarity > 1 {
		return fmt.Errorf("相似度阈值必须在0.0-1.0之间, 当前: %g", c.QuerySimilarity)
	}
	for _, ext := range c.DeniedExtensions {
		if strings.TrimPrefix(ext, ".") == "" {
			return fmt.Errorf("扩展名不能为空")
		}
	}
	return nil
}

// MaxPause 暂停上限
func (c *CrawlConfig) MaxPause() time.Duration {
	return time.Duration(c.MaxPauseSeconds * float64(time.Second))
}

// DepthBounded 是否配置了深度上限
func (c *CrawlConfig) DepthBounded() bool {
	return c.MaxDepth > 0
}

// FetchConfig 页面抓取配置
type FetchConfig struct {
	Mode           FetchMode         `json:"mode" mapstructure:"mode"`                       // splash / direct / browser
	Renderer       string            `json:"renderer" mapstructure:"renderer"`               // Splash地址
	RenderTimeout  float64           `json:"render_timeout" mapstructure:"render_timeout"`   // Splash渲染超时(秒)
	RenderWait     float64           `json:"render_wait" mapstructure:"render_wait"`         // 渲染后等待(秒)
	RequestTimeout int               `json:"request_timeout" mapstructure:"request_timeout"` // 单次请求超时(秒)
	Headless       bool              `json:"headless" mapstructure:"headless"`               // browser模式是否无头
	MaxTabs        int               `json:"max_tabs" mapstructure:"max_tabs"`               // browser模式标签页上限, 0 表示自动
	Headers        map[string]string `json:"-" mapstructure:"headers"`                       // 额外请求头
}

// DefaultFetchConfig 默认抓取配置
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		Mode:           ModeSplash,
		Renderer:       "http://localhost:8051",
		RenderTimeout:  30,
		RenderWait:     0.5,
		RequestTimeout: 60,
		Headless:       true,
	}
}

// Validate 验证配置
func (c *FetchConfig) Validate() error {
	switch c.Mode {
	case ModeSplash:
		if err := ValidateURL(c.Renderer); err != nil {
			return fmt.Errorf("Splash地址无效: %w", err)
		}
	case ModeDirect, ModeBrowser:
	default:
		return fmt.Errorf("未知的抓取方式: %q (可选: splash, direct, browser)", c.Mode)
	}
	if c.RequestTimeout < 1 {
		return fmt.Errorf("请求超时必须大于0秒")
	}
	if c.RenderTimeout < 0 || c.RenderWait < 0 {
		return fmt.Errorf("渲染时间参数不能为负数")
	}
	if c.MaxTabs < 0 {
		return fmt.Errorf("标签页上限不能为负数")
	}
	return nil
}

// Timeout 单次请求超时
func (c *FetchConfig) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// CrawlStats 爬取统计
type CrawlStats struct {
	LinksFound   int     `json:"links_found"`   // 被提交到队列的链接数(含种子)
	PagesCrawled int     `json:"pages_crawled"` // 抓取并解析成功的页面数
	Failed       int     `json:"failed"`        // 抓取失败数
	Duration     float64 `json:"duration"`      // 耗时(秒)
}

// CrawlTask 爬取任务
type CrawlTask struct {
	ID          string     `json:"id"`                     // 任务唯一ID (UUID)
	StartURL    string     `json:"start_url"`              // 种子URL(已规范化)
	Host        string     `json:"host"`                   // 根主机
	CreatedAt   time.Time  `json:"created_at"`             // 创建时间
	StartedAt   *time.Time `json:"started_at,omitempty"`   // 开始时间
	CompletedAt *time.Time `json:"completed_at,omitempty"` // 完成时间

	Config CrawlConfig `json:"config"`
	Mode   FetchMode   `json:"mode"`

	Status TaskStatus `json:"status"`
	Stats  CrawlStats `json:"stats"`

	ErrorMessage string `json:"error_message,omitempty"`
}

// NewCrawlTask 创建新任务
// 种子URL去掉首尾的 "/"
func NewCrawlTask(startURL string, config CrawlConfig, mode FetchMode) (*CrawlTask, error) {
	startURL = strings.Trim(strings.TrimSpace(startURL), "/")
	if err := ValidateURL(startURL); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	parsed, _ := url.Parse(startURL)

	return &CrawlTask{
		ID:        generateID(),
		StartURL:  startURL,
		Host:      strings.ToLower(parsed.Host),
		CreatedAt: time.Now(),
		Config:    config,
		Mode:      mode,
		Status:    TaskStatusPending,
	}, nil
}

// Start 标记任务开始
func (t *CrawlTask) Start() {
	now := time.Now()
	t.StartedAt = &now
	t.Status = TaskStatusRunning
}

// Finish 标记任务结束; err 非空时任务失败
func (t *CrawlTask) Finish(err error) {
	now := time.Now()
	t.CompletedAt = &now
	if t.StartedAt != nil {
		t.Stats.Duration = now.Sub(*t.StartedAt).Seconds()
	}
	switch {
	case err == nil:
		t.Status = TaskStatusCompleted
	case errors.Is(err, context.Canceled):
		t.Status = TaskStatusCancelled
		t.ErrorMessage = err.Error()
	default:
		t.Status = TaskStatusFailed
		t.ErrorMessage = err.Error()
	}
}

// ToJSON 序列化为JSON
func (t *CrawlTask) ToJSON() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// FromJSON 从JSON反序列化
func (t *CrawlTask) FromJSON(data []byte) error {
	return json.Unmarshal(data, t)
}

// BatchCrawlTask 批量爬取任务
type BatchCrawlTask struct {
	ID          string     `json:"id"`
	URLsFile    string     `json:"urls_file"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Status TaskStatus `json:"status"`

	TotalURLs      int `json:"total_urls"`
	SuccessfulURLs int `json:"successful_urls"`
	FailedURLs     int `json:"failed_urls"`
	TotalPages     int `json:"total_pages"`

	SubTasks []string `json:"sub_tasks"`
}

// NewBatchCrawlTask 创建批量任务
func NewBatchCrawlTask(urlsFile string, total int) *BatchCrawlTask {
	return &BatchCrawlTask{
		ID:        generateID(),
		URLsFile:  urlsFile,
		CreatedAt: time.Now(),
		Status:    TaskStatusPending,
		TotalURLs: total,
	}
}
