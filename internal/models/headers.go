package models

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// HeaderConfig headers.yaml的结构
// 页面抓取、浏览器渲染和图片抓取共用这一组头部
type HeaderConfig struct {
	Headers map[string]string `mapstructure:"headers" yaml:"headers"`
}

// CliHeaders 命令行 -H 参数,每项为 "Name: Value"
type CliHeaders []string

// Parse 解析为http.Header
// 同名头部后者覆盖前者,Cookie例外,多次指定时用"; "拼接
func (ch CliHeaders) Parse() (http.Header, error) {
	result := make(http.Header)
	for i, s := range ch {
		name, value, err := parseHeaderString(s)
		if err != nil {
			return nil, fmt.Errorf("参数 --header 第%d项格式错误: %w", i+1, err)
		}
		if strings.EqualFold(name, "Cookie") {
			if prev := result.Get(name); prev != "" {
				value = prev + "; " + value
			}
		}
		result.Set(name, value)
	}
	return result, nil
}

func parseHeaderString(s string) (string, string, error) {
	name, value, ok := strings.Cut(s, ":")
	if !ok {
		return "", "", errors.New("缺少冒号分隔符,应为 'Name: Value'")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", errors.New("头部名称不能为空")
	}
	return name, strings.TrimSpace(value), nil
}

// HeaderProvider 提供按优先级合并后的请求头部
// 返回的http.Header归调用方所有,可以修改
type HeaderProvider interface {
	GetHeaders() (http.Header, error)
}

// OverrideProvider 在底层提供者之上替换部分头部,如移动端UA
type OverrideProvider struct {
	Base      HeaderProvider
	Overrides http.Header
}

// GetHeaders 实现 HeaderProvider 接口
func (p *OverrideProvider) GetHeaders() (http.Header, error) {
	result := make(http.Header)
	if p.Base != nil {
		base, err := p.Base.GetHeaders()
		if err != nil {
			return nil, err
		}
		for name, values := range base {
			result[name] = values
		}
	}
	for name, values := range p.Overrides {
		result[name] = values
	}
	return result, nil
}

// StaticHeaders 固定头部集合
type StaticHeaders http.Header

// GetHeaders 实现 HeaderProvider 接口
func (h StaticHeaders) GetHeaders() (http.Header, error) {
	return http.Header(h).Clone(), nil
}

// ValidationError 头部验证错误
type ValidationError struct {
	Field      string // "name" 或 "value"
	HeaderName string
	Reason     string
	Suggestion string // 可选
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("头部验证失败 [%s]: %s", e.HeaderName, e.Reason)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (建议: %s)", e.Suggestion)
	}
	return msg
}

// ConfigError 配置文件读取或解析失败
type ConfigError struct {
	FilePath string
	Cause    error
}

func (e *ConfigError) Error() string {
	path := e.FilePath
	if path == "" {
		path = "<默认>"
	}
	return fmt.Sprintf("配置文件错误 [%s]: %v", path, e.Cause)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}
