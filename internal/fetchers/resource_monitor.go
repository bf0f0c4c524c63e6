package fetchers

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/RecoveryAshes/SiteGraph/internal/utils"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ResourceSample 一次系统资源采样
type ResourceSample struct {
	AvailableMemory uint64  // 可用内存(字节)
	CPUPercent      float64 // CPU使用率(%)
}

// ResourceMonitorConfig 资源监控器配置
type ResourceMonitorConfig struct {
	SafetyReserveMemory uint64  // 保留给系统的内存(字节)
	TabMemoryUsage      uint64  // 单个标签页平均内存消耗(字节)
	CPULoadThreshold    float64 // CPU负载阈值(%), >=100 表示不检查
	MaxTabsLimit        int     // 绝对最大标签页数
}

// DefaultResourceMonitorConfig 默认配置
func DefaultResourceMonitorConfig() ResourceMonitorConfig {
	return ResourceMonitorConfig{
		SafetyReserveMemory: 1024 * 1024 * 1024, // 1GB
		TabMemoryUsage:      100 * 1024 * 1024,  // 100MB
		CPULoadThreshold:    90,
		MaxTabsLimit:        32,
	}
}

// ResourceMonitor 根据可用内存和CPU计算浏览器标签页上限
type ResourceMonitor struct {
	config ResourceMonitorConfig
	sample func() (ResourceSample, error)

	mu            sync.Mutex
	cachedMaxTabs int
	lastCacheTime time.Time
}

// NewResourceMonitor 创建资源监控器
func NewResourceMonitor(config ResourceMonitorConfig) *ResourceMonitor {
	if config.TabMemoryUsage == 0 {
		config.TabMemoryUsage = 100 * 1024 * 1024
	}
	if config.MaxTabsLimit < 1 {
		config.MaxTabsLimit = 1
	}
	return &ResourceMonitor{config: config, sample: systemSample}
}

// systemSample 通过gopsutil读取系统资源
func systemSample() (ResourceSample, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return ResourceSample{}, fmt.Errorf("获取系统内存失败: %w", err)
	}
	s := ResourceSample{AvailableMemory: vm.Available}
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}
	return s, nil
}

// CalculateMaxTabs 当前允许的最大标签页数, 至少为1
// 结果缓存1秒
func (rm *ResourceMonitor) CalculateMaxTabs() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.cachedMaxTabs > 0 && time.Since(rm.lastCacheTime) < time.Second {
		return rm.cachedMaxTabs
	}

	result := min(runtime.NumCPU(), rm.config.MaxTabsLimit)
	s, err := rm.sample()
	if err != nil {
		utils.Warnf("资源采样失败,标签页上限按CPU核数计算: %v", err)
	} else {
		byMemory := 1
		if s.AvailableMemory > rm.config.SafetyReserveMemory {
			byMemory = int((s.AvailableMemory - rm.config.SafetyReserveMemory) / rm.config.TabMemoryUsage)
		}
		result = min(result, byMemory)
	}
	result = max(result, 1)

	rm.cachedMaxTabs = result
	rm.lastCacheTime = time.Now()
	return result
}

// CheckResourceAvailability 是否还可以创建新标签页
func (rm *ResourceMonitor) CheckResourceAvailability() (bool, string) {
	s, err := rm.sample()
	if err != nil {
		return true, ""
	}
	if s.AvailableMemory < rm.config.SafetyReserveMemory {
		return false, fmt.Sprintf("内存不足(当前%dMB)", s.AvailableMemory/(1024*1024))
	}
	if rm.config.CPULoadThreshold < 100 && s.CPUPercent > rm.config.CPULoadThreshold {
		return false, fmt.Sprintf("CPU负载过高(当前%.1f%%)", s.CPUPercent)
	}
	return true, ""
}
