package config

import (
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/RecoveryAshes/ImgFIndcrack/internal/models"
	"github.com/RecoveryAshes/ImgFIndcrack/internal/utils"
	"github.com/spf13/viper"
)

const (
	// DefaultConfigFile 默认头部配置文件路径
	DefaultConfigFile = "configs/headers.yaml"

	// MaxConfigFileSize 配置文件最大大小 (1MB)
	MaxConfigFileSize = 1 * 1024 * 1024
)

//go:embed headers_template.yaml
var defaultHeaderTemplate string

// HeaderConfigLoader 头部配置文件加载器
// 页面抓取、浏览器渲染和图片抓取共用这份配置
type HeaderConfigLoader struct {
	configPath string
}

// NewHeaderConfigLoader 创建配置文件加载器
func NewHeaderConfigLoader(configPath string) *HeaderConfigLoader {
	if configPath == "" {
		configPath = DefaultConfigFile
	}
	return &HeaderConfigLoader{
		configPath: configPath,
	}
}

// Path 配置文件路径
func (hcl *HeaderConfigLoader) Path() string {
	return hcl.configPath
}

// EnsureConfigExists 配置文件不存在时写入模板
func (hcl *HeaderConfigLoader) EnsureConfigExists() error {
	if _, err := os.Stat(hcl.configPath); os.IsNotExist(err) {
		dir := filepath.Dir(hcl.configPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("无法创建配置目录 [%s]: %w", dir, err)
		}

		if err := os.WriteFile(hcl.configPath, []byte(defaultHeaderTemplate), 0644); err != nil {
			return fmt.Errorf("无法生成配置文件 [%s]: %w", hcl.configPath, err)
		}
		utils.Infof("已生成头部配置模板: %s", hcl.configPath)
	}
	return nil
}

// ValidateFileSize 验证配置文件大小
func (hcl *HeaderConfigLoader) ValidateFileSize() error {
	info, err := os.Stat(hcl.configPath)
	if err != nil {
		return fmt.Errorf("无法读取配置文件信息 [%s]: %w", hcl.configPath, err)
	}

	if info.Size() > MaxConfigFileSize {
		return &models.ConfigError{
			FilePath: hcl.configPath,
			Cause: fmt.Errorf("配置文件过大: %d 字节 (最大 %d 字节)",
				info.Size(), MaxConfigFileSize),
		}
	}

	return nil
}

// LoadConfig 加载并解析头部配置
// 文件缺失时先生成模板;文件被锁定时降级为空配置
func (hcl *HeaderConfigLoader) LoadConfig() (*models.HeaderConfig, error) {
	if err := hcl.EnsureConfigExists(); err != nil {
		return nil, err
	}

	if err := hcl.ValidateFileSize(); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(hcl.configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
			utils.Warnf("配置文件被锁定 [%s], 使用默认头部", hcl.configPath)
			return &models.HeaderConfig{
				Headers: make(map[string]string),
			}, nil
		}

		return nil, &models.ConfigError{
			FilePath: hcl.configPath,
			Cause:    err,
		}
	}

	var config models.HeaderConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, &models.ConfigError{
			FilePath: hcl.configPath,
			Cause:    fmt.Errorf("配置绑定失败: %w", err),
		}
	}

	// viper会把键名转为小写,空的headers段解析为nil
	if config.Headers == nil {
		config.Headers = make(map[string]string)
	}

	return &config, nil
}

// LoadHeaders 加载配置并转换为规范化的http.Header
// 空值和由客户端管理的头部会被丢弃
func (hcl *HeaderConfigLoader) LoadHeaders() (http.Header, error) {
	config, err := hcl.LoadConfig()
	if err != nil {
		return nil, err
	}

	headers := make(http.Header, len(config.Headers))
	for name, value := range config.Headers {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if isIgnoredHeader(name) {
			utils.Warnf("忽略头部配置 %s: 由HTTP客户端管理", http.CanonicalHeaderKey(name))
			continue
		}
		headers.Set(name, value)
	}
	return headers, nil
}

func isIgnoredHeader(name string) bool {
	for _, h := range utils.ForbiddenHeaders {
		if strings.EqualFold(h, name) {
			return true
		}
	}
	return false
}
