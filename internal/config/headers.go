package config

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/RecoveryAshes/SiteGraph/internal/models"
	"github.com/RecoveryAshes/SiteGraph/internal/utils"
	"github.com/spf13/viper"
)

// MaxHeaderFileSize 头部文件最大大小 (1MB)
const MaxHeaderFileSize = 1 * 1024 * 1024

// HeaderFileLoader 加载 --header-file 指定的YAML头部文件
//
// 文件格式:
//
//	headers:
//	  User-Agent: "Mozilla/5.0 ..."
//	  Cookie: "session=..."
type HeaderFileLoader struct {
	path string
}

// NewHeaderFileLoader 创建头部文件加载器, path为空表示不使用头部文件
func NewHeaderFileLoader(path string) *HeaderFileLoader {
	return &HeaderFileLoader{path: path}
}

// Path 头部文件路径
func (l *HeaderFileLoader) Path() string {
	return l.path
}

// checkSize 验证文件存在且大小在限制内
func (l *HeaderFileLoader) checkSize() error {
	info, err := os.Stat(l.path)
	if err != nil {
		return &models.ConfigError{FilePath: l.path, Cause: err}
	}
	if info.IsDir() {
		return &models.ConfigError{FilePath: l.path, Cause: errors.New("路径是目录")}
	}
	if info.Size() > MaxHeaderFileSize {
		return &models.ConfigError{
			FilePath: l.path,
			Cause:    fmt.Errorf("文件过大: %d 字节 (最大 %d 字节)", info.Size(), MaxHeaderFileSize),
		}
	}
	return nil
}

// Load 读取并解析头部文件
// 未指定文件时返回空配置; 文件被其他进程锁定时降级为空配置
func (l *HeaderFileLoader) Load() (*models.HeaderConfig, error) {
	empty := &models.HeaderConfig{Headers: make(map[string]string)}
	if l.path == "" {
		return empty, nil
	}
	if err := l.checkSize(); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(l.path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
			utils.Warnf("头部文件被锁定 [%s], 忽略", l.path)
			return empty, nil
		}
		return nil, &models.ConfigError{FilePath: l.path, Cause: err}
	}

	var cfg models.HeaderConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &models.ConfigError{
			FilePath: l.path,
			Cause:    fmt.Errorf("配置绑定失败: %w", err),
		}
	}
	if cfg.Headers == nil {
		cfg.Headers = make(map[string]string)
	}
	return &cfg, nil
}
