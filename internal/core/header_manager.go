package core

import (
	"net/http"
	"sync"

	"github.com/RecoveryAshes/ImgFIndcrack/internal/config"
	"github.com/RecoveryAshes/ImgFIndcrack/internal/crawlers"
	"github.com/RecoveryAshes/ImgFIndcrack/internal/models"
	"github.com/RecoveryAshes/ImgFIndcrack/internal/utils"
)

const (
	// DefaultUserAgent 默认伪装为桌面Chrome
	DefaultUserAgent = crawlers.DesktopUserAgent

	// DefaultAccept 页面请求的Accept头部,图片请求会单独覆盖
	DefaultAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
)

// HeaderManager 三层头部的合并与验证,优先级 defaults < config < cli
// 页面抓取、渲染和图片抓取共用同一个实例,实现 HeaderProvider 接口
type HeaderManager struct {
	defaults http.Header
	config   http.Header
	cli      http.Header

	validator    *utils.HeaderValidator
	redactor     *utils.HeaderRedactor
	configLoader *config.HeaderConfigLoader

	// 批量和服务模式下GetHeaders会被并发调用
	// 第一次成功后缓存合并结果,之后只返回副本
	mu     sync.Mutex
	loaded bool
	merged http.Header
}

// NewHeaderManager 创建头部管理器
// headersFile为空时使用configs/headers.yaml;cliHeaders格式为"Name: Value"
func NewHeaderManager(headersFile string, cliHeaders []string) (*HeaderManager, error) {
	cli, err := models.CliHeaders(cliHeaders).Parse()
	if err != nil {
		return nil, err
	}

	return &HeaderManager{
		defaults: http.Header{
			"User-Agent":      []string{DefaultUserAgent},
			"Accept":          []string{DefaultAccept},
			"Accept-Language": []string{"en-US,en;q=0.9"},
			"Accept-Encoding": []string{"gzip, deflate, br"},
		},
		cli:          cli,
		validator:    utils.NewHeaderValidator(),
		redactor:     utils.NewHeaderRedactor(),
		configLoader: config.NewHeaderConfigLoader(headersFile),
	}, nil
}

// LoadConfig 读取headers.yaml,只读一次
func (hm *HeaderManager) LoadConfig() error {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	return hm.loadLocked()
}

func (hm *HeaderManager) loadLocked() error {
	if hm.loaded {
		return nil
	}

	headers, err := hm.configLoader.LoadHeaders()
	if err != nil {
		utils.Errorf("加载HTTP头部配置失败 [%s]: %v", hm.configLoader.Path(), err)
		return err
	}
	hm.config = headers
	hm.loaded = true

	if len(headers) > 0 {
		utils.Debugf("加载%d个HTTP头部配置: %s", len(headers), hm.redactor.RedactToString(headers))
	}
	return nil
}

// Validate 依次验证默认、配置和命令行头部
func (hm *HeaderManager) Validate() error {
	layers := []struct {
		name    string
		headers http.Header
	}{
		{"默认", hm.defaults},
		{"配置文件", hm.config},
		{"命令行", hm.cli},
	}
	for _, layer := range layers {
		if err := hm.validator.Validate(layer.headers); err != nil {
			utils.Errorf("%s头部验证失败: %v", layer.name, err)
			return err
		}
	}
	return nil
}

// GetMergedHeaders 按优先级合并,返回的Header是副本
func (hm *HeaderManager) GetMergedHeaders() http.Header {
	result := make(http.Header)
	for _, layer := range []http.Header{hm.defaults, hm.config, hm.cli} {
		for name, values := range layer {
			result[name] = append([]string(nil), values...)
		}
	}
	return result
}

// GetSafeHeaders 脱敏后的合并头部,用于日志和--validate-config
func (hm *HeaderManager) GetSafeHeaders() map[string]string {
	return hm.redactor.Redact(hm.GetMergedHeaders())
}

// GetHeaders 实现 HeaderProvider 接口
func (hm *HeaderManager) GetHeaders() (http.Header, error) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	if hm.merged == nil {
		if err := hm.loadLocked(); err != nil {
			return nil, err
		}
		if err := hm.Validate(); err != nil {
			return nil, err
		}
		hm.merged = hm.GetMergedHeaders()
	}
	return hm.merged.Clone(), nil
}
