package crawlers

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ResourceMonitor 系统资源监控器
// 根据可用内存和CPU负载计算可同时运行的浏览器会话数
type ResourceMonitor struct {
	config ResourceMonitorConfig

	// 采样函数, 测试中可替换
	availableMemory func() (uint64, error)
	cpuPercent      func() (float64, error)

	cacheMu         sync.Mutex
	cachedMax       int
	lastCalculation time.Time
}

// ResourceMonitorConfig 资源监控器配置
type ResourceMonitorConfig struct {
	SafetyReserveMemory int64 // 系统预留内存(字节)
	SessionMemoryUsage  int64 // 单个浏览器会话的内存估算(字节)
	CPULoadThreshold    int   // CPU负载阈值(%), >= 200 视为关闭
	MaxSessionsLimit    int   // 绝对上限
}

// DefaultResourceMonitorConfig 默认配置
func DefaultResourceMonitorConfig() ResourceMonitorConfig {
	return ResourceMonitorConfig{
		SafetyReserveMemory: 1024 * 1024 * 1024, // 1GB
		SessionMemoryUsage:  300 * 1024 * 1024,  // 300MB
		CPULoadThreshold:    90,
		MaxSessionsLimit:    8,
	}
}

// NewResourceMonitor 创建资源监控器实例
func NewResourceMonitor(config ResourceMonitorConfig) *ResourceMonitor {
	if config.SessionMemoryUsage <= 0 {
		config.SessionMemoryUsage = 300 * 1024 * 1024
	}
	if config.MaxSessionsLimit < 1 {
		config.MaxSessionsLimit = 1
	}
	return &ResourceMonitor{
		config: config,
		availableMemory: func() (uint64, error) {
			vm, err := mem.VirtualMemory()
			if err != nil {
				return 0, err
			}
			return vm.Available, nil
		},
		cpuPercent: func() (float64, error) {
			// perCPU=false 返回所有核心的平均值
			percentages, err := cpu.Percent(100*time.Millisecond, false)
			if err != nil {
				return 0, err
			}
			if len(percentages) == 0 {
				return 0, fmt.Errorf("CPU使用率数据为空")
			}
			return percentages[0], nil
		},
	}
}

// CalculateMaxSessions 计算当前允许的最大并发会话数, 结果缓存1秒
func (rm *ResourceMonitor) CalculateMaxSessions() int {
	rm.cacheMu.Lock()
	defer rm.cacheMu.Unlock()

	if rm.cachedMax > 0 && time.Since(rm.lastCalculation) < time.Second {
		return rm.cachedMax
	}

	byMemory := rm.config.MaxSessionsLimit
	available, err := rm.availableMemory()
	if err != nil {
		log.Warn().Err(err).Msg("获取系统内存失败, 按配置上限计算")
	} else {
		surplus := int64(available) - rm.config.SafetyReserveMemory
		byMemory = int(surplus / rm.config.SessionMemoryUsage)
	}

	result := min(byMemory, runtime.NumCPU(), rm.config.MaxSessionsLimit)
	if result < 1 {
		result = 1
	}

	rm.cachedMax = result
	rm.lastCalculation = time.Now()
	log.Debug().Int("max_sessions", result).Uint64("available_mb", available/(1024*1024)).Msg("计算会话上限")
	return result
}

// CheckResourceAvailability 检查当前资源是否允许再启动一个浏览器
func (rm *ResourceMonitor) CheckResourceAvailability() (bool, string) {
	available, err := rm.availableMemory()
	if err == nil && int64(available) < rm.config.SafetyReserveMemory {
		return false, fmt.Sprintf("内存不足(当前%dMB)", available/(1024*1024))
	}

	if rm.config.CPULoadThreshold < 200 {
		usage, err := rm.cpuPercent()
		if err == nil && usage > float64(rm.config.CPULoadThreshold) {
			return false, fmt.Sprintf("CPU负载过高(当前%.1f%%)", usage)
		}
	}
	return true, ""
}
