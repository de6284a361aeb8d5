// Package imgurl 候选图片URL的规范化、过滤与分辨率升级
package imgurl

import (
	"errors"
	"html"
	"net/url"
	"regexp"
	"strings"
)

var (
	ErrEmptyURL          = errors.New("空URL")
	ErrUnsupportedScheme = errors.New("不支持的URL协议")
	ErrInvalidBase       = errors.New("基准页面URL无效")
	ErrMalformedURL      = errors.New("URL格式无效")
)

var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

// jsonEscapes 内联脚本中常见的转义形式
var jsonEscapes = strings.NewReplacer(
	`\/`, `/`,
	`\u002F`, `/`,
	`\u002f`, `/`,
	`\u0026`, `&`,
)

// Normalize 将原始href/src转换为绝对URL
// 输出要么是绝对的http(s)/data URL,要么返回错误
func Normalize(raw string, base *url.URL) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrEmptyURL
	}

	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "data:"):
		return s, nil
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return checkAbsolute(s)
	case strings.HasPrefix(s, "//"):
		return checkAbsolute("https:" + s)
	case schemePattern.MatchString(s):
		return "", ErrUnsupportedScheme
	}

	origin, err := Origin(base)
	if err != nil {
		return "", err
	}

	if strings.HasPrefix(s, "/") {
		return checkAbsolute(origin + s)
	}
	return checkAbsolute(origin + "/" + strings.TrimPrefix(s, "./"))
}

// Origin 返回scheme://host
func Origin(base *url.URL) (string, error) {
	if base == nil || base.Scheme == "" || base.Host == "" {
		return "", ErrInvalidBase
	}
	return base.Scheme + "://" + base.Host, nil
}

// CleanRaw 还原从标记或脚本文本中截取的URL
func CleanRaw(raw string) string {
	return jsonEscapes.Replace(html.UnescapeString(raw))
}

func checkAbsolute(s string) (string, error) {
	parsed, err := url.Parse(s)
	if err != nil || parsed.Host == "" {
		return "", ErrMalformedURL
	}
	return s, nil
}
