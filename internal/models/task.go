package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ScrapeMode 提取模式
type ScrapeMode string

const (
	ModeAll     ScrapeMode = "all"     // 静态,不足时升级动态
	ModeStatic  ScrapeMode = "static"  // 仅静态
	ModeDynamic ScrapeMode = "dynamic" // 仅动态
)

// ParseScrapeMode 解析模式字符串
func ParseScrapeMode(s string) (ScrapeMode, error) {
	switch ScrapeMode(s) {
	case ModeAll, ModeStatic, ModeDynamic:
		return ScrapeMode(s), nil
	case "":
		return ModeAll, nil
	default:
		return "", fmt.Errorf("无效的提取模式: %s (有效值: all, static, dynamic)", s)
	}
}

// StageResult 单个提取阶段的结果
type StageResult struct {
	Added          int    // 本阶段新增候选数
	ClientRendered bool   // 页面疑似客户端渲染
	HintReason     string // 判定依据
}

// StageStats 阶段统计
type StageStats struct {
	Name           string  `json:"name"`
	Added          int     `json:"added"`
	ClientRendered bool    `json:"client_rendered"`
	Error          string  `json:"error,omitempty"`
	Duration       float64 `json:"duration"` // 秒
}

// ScrapeStats 单次提取的统计
type ScrapeStats struct {
	RunID            string       `json:"run_id"`
	PageURL          string       `json:"page_url"`
	Stages           []StageStats `json:"stages"`
	Escalated        bool         `json:"escalated"`
	EscalationReason string       `json:"escalation_reason,omitempty"`
	TotalFound       int          `json:"total_found"`
	Returned         int          `json:"returned"`
	Duration         float64      `json:"duration"` // 秒
}

// NewScrapeStats 创建带运行ID的统计
func NewScrapeStats(pageURL string) *ScrapeStats {
	return &ScrapeStats{
		RunID:   newRunID(),
		PageURL: pageURL,
		Stages:  make([]StageStats, 0, 2),
	}
}

// ToJSON 序列化为JSON
func (s *ScrapeStats) ToJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// ScrapeConfig 编排器配置
type ScrapeConfig struct {
	Mode                ScrapeMode    `mapstructure:"mode" json:"mode"`
	EscalationThreshold int           `mapstructure:"escalation_threshold" json:"escalation_threshold"` // 默认3
	MaxImages           int           `mapstructure:"max_images" json:"max_images"`                     // 默认30
	MobileFallback      bool          `mapstructure:"mobile_fallback" json:"mobile_fallback"`
	PageTimeout         time.Duration `mapstructure:"page_timeout" json:"page_timeout"`
}

// Validate 验证配置
func (c *ScrapeConfig) Validate() error {
	if _, err := ParseScrapeMode(string(c.Mode)); err != nil {
		return err
	}
	if c.EscalationThreshold < 0 || c.EscalationThreshold > 100 {
		return fmt.Errorf("升级阈值必须在0-100之间")
	}
	if c.MaxImages < 1 || c.MaxImages > 500 {
		return fmt.Errorf("图片上限必须在1-500之间")
	}
	if c.PageTimeout < 0 {
		return fmt.Errorf("页面超时不能为负数")
	}
	return nil
}

// BrowserConfig 渲染浏览器配置
type BrowserConfig struct {
	Enabled        bool          `mapstructure:"enabled" json:"enabled"`
	Headless       bool          `mapstructure:"headless" json:"headless"`
	Bin            string        `mapstructure:"bin" json:"bin,omitempty"`
	NavTimeout     time.Duration `mapstructure:"nav_timeout" json:"nav_timeout"`   // 默认30s
	SettleDelay    time.Duration `mapstructure:"settle_delay" json:"settle_delay"` // 默认2s
	ScrollDelay    time.Duration `mapstructure:"scroll_delay" json:"scroll_delay"` // 默认1s
	ViewportWidth  int           `mapstructure:"viewport_width" json:"viewport_width"`
	ViewportHeight int           `mapstructure:"viewport_height" json:"viewport_height"`
	MinVisibleArea float64       `mapstructure:"min_visible_area" json:"min_visible_area"` // 像素面积
	MaxSessions    int           `mapstructure:"max_sessions" json:"max_sessions"`         // 0表示不限制
}

// Validate 验证配置
func (c *BrowserConfig) Validate() error {
	if c.NavTimeout <= 0 {
		return fmt.Errorf("导航超时必须大于0")
	}
	if c.SettleDelay < 0 || c.ScrollDelay < 0 {
		return fmt.Errorf("等待时间不能为负数")
	}
	if c.ViewportWidth < 320 || c.ViewportHeight < 240 {
		return fmt.Errorf("视口尺寸过小: %dx%d", c.ViewportWidth, c.ViewportHeight)
	}
	if c.MaxSessions < 0 || c.MaxSessions > 64 {
		return fmt.Errorf("浏览器会话上限必须在0-64之间")
	}
	return nil
}

// FetchConfig 网络请求配置
type FetchConfig struct {
	Timeout            time.Duration `mapstructure:"timeout" json:"timeout"`
	MaxBytes           int64         `mapstructure:"max_bytes" json:"max_bytes"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify" json:"insecure_skip_verify"`
}

// Validate 验证配置
func (c *FetchConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("请求超时必须大于0")
	}
	if c.MaxBytes <= 0 {
		return fmt.Errorf("图片大小上限必须大于0")
	}
	return nil
}

// ResourceConfig 资源门限配置,内存单位MB
type ResourceConfig struct {
	Enabled             bool `mapstructure:"enabled" json:"enabled"`
	SafetyReserveMemory int  `mapstructure:"safety_reserve_memory" json:"safety_reserve_memory"`
	BrowserMemory       int  `mapstructure:"browser_memory" json:"browser_memory"`
	CPULoadThreshold    int  `mapstructure:"cpu_load_threshold" json:"cpu_load_threshold"` // >=200视为禁用
}
