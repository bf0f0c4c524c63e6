package core

import (
	"net/http"

	"github.com/RecoveryAshes/SiteGraph/internal/config"
	"github.com/RecoveryAshes/SiteGraph/internal/models"
	"github.com/RecoveryAshes/SiteGraph/internal/utils"
)

const (
	// DefaultUserAgent 默认User-Agent
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/120.0.0.0 Safari/537.36"
)

// HeaderManager 合并各来源的HTTP请求头
// 优先级: 默认 < 配置文件 fetch.headers < 头部文件 < 命令行
// 实现 models.HeaderProvider 接口
type HeaderManager struct {
	defaults http.Header
	config   http.Header
	file     http.Header
	cli      http.Header

	validator  *utils.HeaderValidator
	redactor   *utils.HeaderRedactor
	fileLoader *config.HeaderFileLoader

	loaded bool
}

// NewHeaderManager 创建头部管理器
//   - configHeaders: 配置文件中的 fetch.headers
//   - headerFile: --header-file 路径, 可为空
//   - cliHeaders: -H 参数列表, 格式 "Name: Value"
func NewHeaderManager(configHeaders map[string]string, headerFile string, cliHeaders []string) (*HeaderManager, error) {
	cli, err := models.CliHeaders(cliHeaders).Parse()
	if err != nil {
		return nil, err
	}

	return &HeaderManager{
		defaults:   getDefaultHeaders(),
		config:     toHeader(configHeaders),
		cli:        cli,
		validator:  utils.NewHeaderValidator(),
		redactor:   utils.NewHeaderRedactor(),
		fileLoader: config.NewHeaderFileLoader(headerFile),
	}, nil
}

// getDefaultHeaders 返回系统默认头部
func getDefaultHeaders() http.Header {
	return http.Header{
		"User-Agent":      []string{DefaultUserAgent},
		"Accept":          []string{"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
		"Accept-Encoding": []string{"gzip, deflate, br"},
	}
}

func toHeader(m map[string]string) http.Header {
	h := make(http.Header, len(m))
	for name, value := range m {
		h.Set(name, value)
	}
	return h
}

// loadFile 加载头部文件, 只执行一次
func (hm *HeaderManager) loadFile() error {
	if hm.loaded {
		return nil
	}
	cfg, err := hm.fileLoader.Load()
	if err != nil {
		utils.Errorf("加载HTTP头部文件失败: %v", err)
		return err
	}
	hm.file = toHeader(cfg.Headers)
	hm.loaded = true

	if len(hm.file) > 0 {
		utils.Debugf("从 %s 加载了%d个HTTP头部: %v",
			hm.fileLoader.Path(), len(hm.file), hm.redactor.Redact(hm.file))
	}
	return nil
}

// Validate 验证所有来源的头部
func (hm *HeaderManager) Validate() error {
	sources := []struct {
		name    string
		headers http.Header
	}{
		{"默认", hm.defaults},
		{"配置文件", hm.config},
		{"头部文件", hm.file},
		{"命令行", hm.cli},
	}
	for _, src := range sources {
		if err := hm.validator.Validate(src.headers); err != nil {
			utils.Errorf("%s头部验证失败: %v", src.name, err)
			return err
		}
	}
	return nil
}

// GetMergedHeaders 按优先级合并头部
func (hm *HeaderManager) GetMergedHeaders() http.Header {
	result := make(http.Header)
	for _, src := range []http.Header{hm.defaults, hm.config, hm.file, hm.cli} {
		for name, values := range src {
			result[name] = values
		}
	}
	return result
}

// GetSafeHeaders 返回脱敏后的头部 (用于日志)
func (hm *HeaderManager) GetSafeHeaders() map[string]string {
	return hm.redactor.Redact(hm.GetMergedHeaders())
}

// GetHeaders 实现 HeaderProvider 接口
func (hm *HeaderManager) GetHeaders() (http.Header, error) {
	if err := hm.loadFile(); err != nil {
		return nil, err
	}
	if err := hm.Validate(); err != nil {
		return nil, err
	}
	return hm.GetMergedHeaders(), nil
}
