package utils

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func initTestLogger(t *testing.T, level string) string {
	t.Helper()
	tempDir := t.TempDir()
	err := InitLogger(LogConfig{
		Level:      level,
		LogDir:     tempDir,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Console:    io.Discard,
	})
	if err != nil {
		t.Fatalf("初始化日志器失败: %v", err)
	}
	t.Cleanup(func() {
		Logger = zerolog.Nop()
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	})
	return tempDir
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取日志文件失败: %v", err)
	}
	return string(content)
}

func TestInitLogger(t *testing.T) {
	tempDir := initTestLogger(t, "debug")

	Info("测试信息日志")
	Debugf("测试调试日志: %d", 1)

	content := readLog(t, filepath.Join(tempDir, MainLogFile))
	if !strings.Contains(content, "测试信息日志") || !strings.Contains(content, "测试调试日志: 1") {
		t.Errorf("主日志缺少内容: %s", content)
	}
}

func TestLogLevels(t *testing.T) {
	tempDir := initTestLogger(t, "info")

	Infof("格式化信息日志: %s", "测试")
	Warnf("格式化警告日志: %d", 123)
	Debugf("调试日志不应出现")

	content := readLog(t, filepath.Join(tempDir, MainLogFile))
	if !strings.Contains(content, "格式化信息日志: 测试") || !strings.Contains(content, "格式化警告日志: 123") {
		t.Errorf("主日志缺少内容: %s", content)
	}
	if strings.Contains(content, "调试日志不应出现") {
		t.Error("info级别下不应写入debug日志")
	}
}

func TestErrorLogOnlyContainsErrors(t *testing.T) {
	tempDir := initTestLogger(t, "info")

	Warn("只是警告")
	Errorf("出错了: %s", "连接失败")

	content := readLog(t, filepath.Join(tempDir, ErrorLogFile))
	if !strings.Contains(content, "出错了: 连接失败") {
		t.Errorf("错误日志缺少error级别内容: %s", content)
	}
	if strings.Contains(content, "只是警告") {
		t.Error("错误日志不应包含warn级别内容")
	}
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	tempDir := initTestLogger(t, "verbose")

	Debugf("不应出现")
	Info("应该出现")

	content := readLog(t, filepath.Join(tempDir, MainLogFile))
	if strings.Contains(content, "不应出现") || !strings.Contains(content, "应该出现") {
		t.Errorf("无效级别应回退为info: %s", content)
	}
}

func TestDefaultLogConfig(t *testing.T) {
	config := DefaultLogConfig()

	if config.Level != "info" {
		t.Errorf("默认日志级别错误: 期望 'info', 得到 '%s'", config.Level)
	}
	if config.LogDir != "logs" {
		t.Errorf("默认日志目录错误: 期望 'logs', 得到 '%s'", config.LogDir)
	}
	if config.MaxSize != 10 || config.MaxBackups != 3 || config.MaxAge != 28 {
		t.Errorf("默认轮转参数错误: %+v", config)
	}
	if !config.Compress {
		t.Error("默认应该启用压缩")
	}
}
