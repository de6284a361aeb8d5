package utils

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/RecoveryAshes/ImgFIndcrack/internal/models"
)

// MaxHeaderValueLength 头部值最大长度 (8KB)
const MaxHeaderValueLength = 8192

var (
	// ForbiddenHeaders 由HTTP客户端管理,不允许用户配置
	ForbiddenHeaders = []string{
		"Host",
		"Content-Length",
		"Transfer-Encoding",
		"Connection",
	}

	// SupportedEncodings 页面抓取能解压的内容编码
	SupportedEncodings = []string{"gzip", "x-gzip", "deflate", "br", "identity", "*"}

	headerNameRegex  = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
	headerValueRegex = regexp.MustCompile(`^[\x20-\x7E\t]*$`)
)

// valueRule 针对单个头部的额外检查
type valueRule func(value string) *models.ValidationError

// HeaderValidator 头部验证器
// 通用规则之外,对影响抓取结果的头部做额外检查
type HeaderValidator struct {
	maxValueLength int
	forbidden      map[string]bool
	rules          map[string]valueRule // 键为规范化的头部名
}

// NewHeaderValidator 创建验证器
func NewHeaderValidator() *HeaderValidator {
	forbidden := make(map[string]bool, len(ForbiddenHeaders))
	for _, h := range ForbiddenHeaders {
		forbidden[http.CanonicalHeaderKey(h)] = true
	}

	return &HeaderValidator{
		maxValueLength: MaxHeaderValueLength,
		forbidden:      forbidden,
		rules: map[string]valueRule{
			"Accept-Encoding": validateAcceptEncoding,
			"Referer":         validateReferer,
			"User-Agent":      validateUserAgent,
		},
	}
}

// ValidateName 验证头部名称
func (hv *HeaderValidator) ValidateName(name string) error {
	if name == "" {
		return &models.ValidationError{Field: "name", Reason: "头部名称不能为空"}
	}
	if !headerNameRegex.MatchString(name) {
		return &models.ValidationError{
			Field:      "name",
			HeaderName: name,
			Reason:     "头部名称包含非法字符 (仅允许字母、数字和连字符)",
			Suggestion: "如 'User-Agent', 'X-Custom-Header'",
		}
	}
	return nil
}

// ValidateValue 验证头部值的长度和字符
func (hv *HeaderValidator) ValidateValue(name, value string) error {
	if len(value) > hv.maxValueLength {
		return &models.ValidationError{
			Field:      "value",
			HeaderName: name,
			Reason:     fmt.Sprintf("头部值过长: %d 字节 (最大 %d)", len(value), hv.maxValueLength),
		}
	}
	if !headerValueRegex.MatchString(value) {
		return &models.ValidationError{
			Field:      "value",
			HeaderName: name,
			Reason:     "头部值包含非法字符 (仅允许可打印ASCII字符)",
			Suggestion: "移除控制字符和非ASCII字符",
		}
	}
	return nil
}

// ValidateHeader 依次检查禁止列表、名称、值和头部专属规则
func (hv *HeaderValidator) ValidateHeader(name, value string) error {
	if hv.IsForbidden(name) {
		return &models.ValidationError{
			Field:      "name",
			HeaderName: name,
			Reason:     "此头部由HTTP客户端自动管理,不允许自定义",
			Suggestion: fmt.Sprintf("移除 '%s' 头部配置", name),
		}
	}
	if err := hv.ValidateName(name); err != nil {
		return err
	}
	if err := hv.ValidateValue(name, value); err != nil {
		return err
	}
	if rule, ok := hv.rules[http.CanonicalHeaderKey(name)]; ok {
		if verr := rule(value); verr != nil {
			verr.HeaderName = name
			return verr
		}
	}
	return nil
}

// validateAcceptEncoding 拒绝无法解压的编码,例如zstd
func validateAcceptEncoding(value string) *models.ValidationError {
	for _, part := range strings.Split(value, ",") {
		coding, _, _ := strings.Cut(part, ";")
		coding = strings.ToLower(strings.TrimSpace(coding))
		if coding == "" || containsFold(SupportedEncodings, coding) {
			continue
		}
		return &models.ValidationError{
			Field:      "value",
			Reason:     fmt.Sprintf("不支持的内容编码: %s", coding),
			Suggestion: "仅使用 gzip, deflate, br",
		}
	}
	return nil
}

// validateReferer 固定Referer必须是绝对http(s) URL
func validateReferer(value string) *models.ValidationError {
	if value == "" {
		return nil
	}
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &models.ValidationError{
			Field:      "value",
			Reason:     "Referer必须是绝对的http(s) URL",
			Suggestion: "如 'https://shop.example.com/'",
		}
	}
	return nil
}

// validateUserAgent 不允许空UA
func validateUserAgent(value string) *models.ValidationError {
	if strings.TrimSpace(value) == "" {
		return &models.ValidationError{
			Field:      "value",
			Reason:     "User-Agent不能为空",
			Suggestion: "删除该项以使用默认的桌面浏览器UA",
		}
	}
	return nil
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}

// IsForbidden 检查头部是否被禁止
func (hv *HeaderValidator) IsForbidden(name string) bool {
	return hv.forbidden[http.CanonicalHeaderKey(name)]
}

// Validate 按名称顺序验证所有头部,返回第一个错误
func (hv *HeaderValidator) Validate(headers http.Header) error {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, value := range headers[name] {
			if err := hv.ValidateHeader(name, value); err != nil {
				return err
			}
		}
	}
	return nil
}
