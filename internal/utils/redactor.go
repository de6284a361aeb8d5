package utils

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// SensitiveKeywords 敏感头部名称和查询参数的关键字
var SensitiveKeywords = []string{
	"authorization",
	"token",
	"key",
	"secret",
	"password",
	"credential",
	"signature",
	"cookie",
	"session",
}

// maxLoggedDataURI data: URI在日志中保留的长度
const maxLoggedDataURI = 48

// HeaderRedactor 日志脱敏
// 覆盖请求头部,以及CDN签名URL里的凭证参数
type HeaderRedactor struct {
	sensitiveKeywords []string
}

// NewHeaderRedactor 创建脱敏器
func NewHeaderRedactor() *HeaderRedactor {
	return &HeaderRedactor{sensitiveKeywords: SensitiveKeywords}
}

// IsSensitiveHeader 名称包含敏感关键字
func (hr *HeaderRedactor) IsSensitiveHeader(name string) bool {
	lower := strings.ToLower(name)
	for _, keyword := range hr.sensitiveKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// RedactHeaderValue 脱敏单个头部值
func (hr *HeaderRedactor) RedactHeaderValue(name, value string) string {
	switch {
	case !hr.IsSensitiveHeader(name):
		return value
	case strings.Contains(strings.ToLower(name), "cookie"):
		return redactCookie(value)
	case strings.HasPrefix(value, "Bearer "):
		return "Bearer ***"
	}
	return maskSecret(value)
}

// Redact 脱敏后的头部,每个头部只取第一个值
func (hr *HeaderRedactor) Redact(headers http.Header) map[string]string {
	result := make(map[string]string, len(headers))
	for name, values := range headers {
		if len(values) > 0 {
			result[name] = hr.RedactHeaderValue(name, values[0])
		}
	}
	return result
}

// RedactToString 格式为 "A: 1, B: 2",按名称排序
func (hr *HeaderRedactor) RedactToString(headers http.Header) string {
	redacted := hr.Redact(headers)
	parts := make([]string, 0, len(redacted))
	for name, value := range redacted {
		parts = append(parts, name+": "+value)
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

// RedactURL 用于日志的图片或页面URL
// 签名参数(如X-Amz-Signature、token)的值被隐藏,data: URI只保留开头
func (hr *HeaderRedactor) RedactURL(raw string) string {
	if len(raw) >= 5 && strings.EqualFold(raw[:5], "data:") {
		if len(raw) > maxLoggedDataURI {
			return raw[:maxLoggedDataURI] + "..."
		}
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	query := u.Query()
	changed := false
	for name, values := range query {
		if !hr.IsSensitiveHeader(name) {
			continue
		}
		for i := range values {
			values[i] = "***"
		}
		changed = true
	}
	if !changed {
		return raw
	}
	u.RawQuery = query.Encode()
	return u.String()
}

var defaultRedactor = NewHeaderRedactor()

// RedactURL 使用默认关键字脱敏URL
func RedactURL(raw string) string {
	return defaultRedactor.RedactURL(raw)
}

// maskSecret 长值保留首尾4位,短值完全隐藏
func maskSecret(value string) string {
	if len(value) > 8 {
		return value[:4] + "***" + value[len(value)-4:]
	}
	return "***"
}

// redactCookie "a=1; b=2" 转为 "a=***; b=***"
func redactCookie(value string) string {
	pairs := strings.Split(value, ";")
	for i, pair := range pairs {
		if name, _, found := strings.Cut(strings.TrimSpace(pair), "="); found {
			pairs[i] = name + "=***"
		} else {
			pairs[i] = "***"
		}
	}
	return strings.Join(pairs, "; ")
}
