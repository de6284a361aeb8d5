package models

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// parseAbsoluteHTTP 解析带主机名的http(s) URL
func parseAbsoluteHTTP(raw string) (*url.URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("不支持的协议 %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("缺少主机名")
	}
	return parsed, nil
}

// ValidateURL 检查图片URL或Referer,不补全协议
func ValidateURL(raw string) error {
	if _, err := parseAbsoluteHTTP(strings.TrimSpace(raw)); err != nil {
		return fmt.Errorf("无效的URL: %w", err)
	}
	return nil
}

func newRunID() string {
	return uuid.NewString()
}
