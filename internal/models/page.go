package models

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrMissingPageURL = errors.New("缺少pageUrl")
	ErrInvalidPageURL = errors.New("pageUrl格式无效")
)

// PageReference 来源页面
// 既是相对URL解析的基准,也是图片请求的Referer
type PageReference struct {
	Raw string   // 调用方传入的原始值
	URL *url.URL // 补全协议后的绝对URL
}

// NewPageReference 解析页面URL,缺少协议时默认补全https://
func NewPageReference(raw string) (*PageReference, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, ErrMissingPageURL
	}

	candidate := trimmed
	switch {
	case strings.HasPrefix(candidate, "//"):
		candidate = "https:" + candidate
	case !strings.Contains(candidate, "://"):
		candidate = "https://" + candidate
	}

	parsed, err := parseAbsoluteHTTP(candidate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPageURL, err)
	}

	return &PageReference{Raw: trimmed, URL: parsed}, nil
}

// String 返回规范化后的页面URL
func (p *PageReference) String() string {
	return p.URL.String()
}

// Host 返回页面主机名
func (p *PageReference) Host() string {
	return p.URL.Host
}
