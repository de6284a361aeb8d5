package crawlers

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/RecoveryAshes/ImgFIndcrack/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const mb = 1024 * 1024

// ResourceMonitor 系统资源监控器
// 职责: 在启动浏览器进程前检查可用内存和CPU负载
type ResourceMonitor struct {
	config ResourceMonitorConfig

	// 可替换的采样函数
	readMemory func() (total, available uint64, err error)
	readCPU    func() (float64, error)

	// 缓存的采样结果(1秒有效)
	cacheMu       sync.RWMutex
	lastSample    resourceSample
	lastCacheTime time.Time

	// 后台CPU采样
	cpuUsageMu   sync.RWMutex
	lastCPUUsage float64

	mu         sync.Mutex
	cancelFunc context.CancelFunc
	isRunning  bool
}

// ResourceMonitorConfig 资源监控器配置
type ResourceMonitorConfig struct {
	Enabled             bool
	SafetyReserveMemory int64 // 系统保留内存(字节)
	BrowserMemory       int64 // 单个浏览器进程平均内存消耗(字节)
	CPULoadThreshold    int   // CPU负载阈值(%), >=200视为禁用
}

// NewResourceMonitorConfig 从配置文件的MB单位转换
func NewResourceMonitorConfig(cfg models.ResourceConfig) ResourceMonitorConfig {
	return ResourceMonitorConfig{
		Enabled:             cfg.Enabled,
		SafetyReserveMemory: int64(cfg.SafetyReserveMemory) * mb,
		BrowserMemory:       int64(cfg.BrowserMemory) * mb,
		CPULoadThreshold:    cfg.CPULoadThreshold,
	}
}

// MemoryStatus 内存状态信息
type MemoryStatus struct {
	TotalMemory     uint64  `json:"total_memory"`     // 系统总内存(字节)
	AvailableMemory int64   `json:"available_memory"` // 扣除保留后的可用内存(字节)
	SafetyReserve   int64   `json:"safety_reserve"`
	CPUUsage        float64 `json:"cpu_usage"`
	MemoryPressure  string  `json:"memory_pressure"` // normal, warning, critical
}

type resourceSample struct {
	total     uint64
	available int64
}

// NewResourceMonitor 创建资源监控器实例
func NewResourceMonitor(config ResourceMonitorConfig) *ResourceMonitor {
	if config.BrowserMemory == 0 {
		config.BrowserMemory = 300 * mb
	}

	rm := &ResourceMonitor{
		config:     config,
		readMemory: readVirtualMemory,
		readCPU:    readCPUPercent,
	}

	if total, _, err := rm.readMemory(); err != nil {
		log.Warn().Err(err).Msg("获取系统内存失败,资源检查将放行")
	} else {
		log.Debug().Msgf("系统总内存: %.2f GB", float64(total)/(1024*mb))
	}

	return rm
}

func readVirtualMemory() (uint64, uint64, error) {
	vmStat, err := mem.VirtualMemory()
	if err != nil {
		return 0, 0, err
	}
	return vmStat.Total, vmStat.Available, nil
}

// readCPUPercent 100毫秒采样,所有核心的平均使用率
func readCPUPercent() (float64, error) {
	percentages, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		return 0, err
	}
	if len(percentages) == 0 {
		return 0, fmt.Errorf("CPU使用率数据为空")
	}
	return percentages[0], nil
}

// StartMonitoring 启动后台CPU采样,重复调用无副作用
func (rm *ResourceMonitor) StartMonitoring(interval time.Duration) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.isRunning {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	rm.cancelFunc = cancel
	rm.isRunning = true

	go rm.monitoringLoop(ctx, interval)
}

func (rm *ResourceMonitor) monitoringLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			usage, err := rm.readCPU()
			if err != nil {
				log.Warn().Err(err).Msg("获取CPU使用率失败")
				continue
			}
			rm.cpuUsageMu.Lock()
			rm.lastCPUUsage = usage
			rm.cpuUsageMu.Unlock()
		}
	}
}

// StopMonitoring 停止后台采样
func (rm *ResourceMonitor) StopMonitoring() {
	if rm == nil {
		return
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.isRunning && rm.cancelFunc != nil {
		rm.cancelFunc()
		rm.isRunning = false
		rm.cancelFunc = nil
	}
}

// sample 读取内存,结果缓存1秒
func (rm *ResourceMonitor) sample() (resourceSample, error) {
	rm.cacheMu.RLock()
	if time.Since(rm.lastCacheTime) < time.Second {
		cached := rm.lastSample
		rm.cacheMu.RUnlock()
		return cached, nil
	}
	rm.cacheMu.RUnlock()

	total, available, err := rm.readMemory()
	if err != nil {
		return resourceSample{}, err
	}

	s := resourceSample{
		total:     total,
		available: int64(available) - rm.config.SafetyReserveMemory,
	}

	rm.cacheMu.Lock()
	rm.lastSample = s
	rm.lastCacheTime = time.Now()
	rm.cacheMu.Unlock()

	return s, nil
}

func (rm *ResourceMonitor) cpuUsage() float64 {
	rm.cpuUsageMu.RLock()
	defer rm.cpuUsageMu.RUnlock()
	return rm.lastCPUUsage
}

// CanLaunchBrowser 检查当前资源是否允许再启动一个浏览器进程
// 返回canLaunch和不允许时的原因;无法采样时放行
func (rm *ResourceMonitor) CanLaunchBrowser() (bool, string) {
	if rm == nil || !rm.config.Enabled {
		return true, ""
	}

	s, err := rm.sample()
	if err != nil {
		log.Warn().Err(err).Msg("资源采样失败,跳过检查")
		return true, ""
	}

	if s.available < rm.config.BrowserMemory {
		availableMB := s.available / mb
		log.Warn().Msgf("可用内存不足(当前%dMB),暂不启动浏览器", availableMB)
		return false, fmt.Sprintf("内存不足(当前%dMB)", availableMB)
	}

	if rm.config.CPULoadThreshold < 200 {
		if usage := rm.cpuUsage(); usage > float64(rm.config.CPULoadThreshold) {
			return false, fmt.Sprintf("CPU负载过高(当前%.1f%%)", usage)
		}
	}

	return true, ""
}

// MaxBrowsers 按可用内存估算可同时运行的浏览器数量,至少为1
func (rm *ResourceMonitor) MaxBrowsers() int {
	limit := runtime.NumCPU()
	if rm == nil || !rm.config.Enabled {
		return limit
	}

	s, err := rm.sample()
	if err != nil {
		return limit
	}

	byMemory := int(s.available / rm.config.BrowserMemory)
	if byMemory < limit {
		limit = byMemory
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}

// GetMemoryStatus 获取当前内存状态
func (rm *ResourceMonitor) GetMemoryStatus() MemoryStatus {
	if rm == nil {
		return MemoryStatus{MemoryPressure: "unknown"}
	}

	status := MemoryStatus{
		SafetyReserve:  rm.config.SafetyReserveMemory,
		CPUUsage:       rm.cpuUsage(),
		MemoryPressure: "unknown",
	}

	s, err := rm.sample()
	if err != nil {
		return status
	}
	status.TotalMemory = s.total
	status.AvailableMemory = s.available

	switch {
	case s.available < rm.config.BrowserMemory:
		status.MemoryPressure = "critical"
	case s.available < 2*rm.config.BrowserMemory:
		status.MemoryPressure = "warning"
	default:
		status.MemoryPressure = "normal"
	}
	return status
}
