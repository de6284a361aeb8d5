package imgurl

import (
	"net/url"
	"regexp"
	"strings"
)

// Rewrite 路径正则替换
type Rewrite struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// SiteRule 按主机名子串匹配的改写规则
type SiteRule struct {
	Name     string
	Hosts    []string
	Rewrites []Rewrite
}

// Matches 判断主机名是否命中规则
func (r SiteRule) Matches(host string) bool {
	host = strings.ToLower(host)
	for _, h := range r.Hosts {
		if strings.Contains(host, h) {
			return true
		}
	}
	return false
}

// DefaultRule 无站点规则命中时使用
var DefaultRule = SiteRule{
	Name: "default",
	Rewrites: []Rewrite{
		{regexp.MustCompile(`[_-]\d{1,5}x\d{1,5}\.`), "."},
		{regexp.MustCompile(`/\d{1,5}x\d{1,5}/`), "/"},
	},
}

// SiteRules 站点规则,按顺序匹配,首个命中生效
var SiteRules = []SiteRule{
	{
		Name:  "zara",
		Hosts: []string{"zara.net"},
		Rewrites: []Rewrite{
			{regexp.MustCompile(`/w/\d+/`), "/w/1920/"},
		},
	},
	{
		Name:  "shopify",
		Hosts: []string{"shopify"},
		Rewrites: []Rewrite{
			{regexp.MustCompile(`(?i)_(?:\d+x\d*|x\d+|pico|icon|thumb|small|compact|medium|large|grande|original|master)(?:_crop_[a-z]+)?(?:@\dx)?\.`), "."},
		},
	},
	{
		Name:  "amazon",
		Hosts: []string{"media-amazon.com", "images-amazon.com"},
		Rewrites: []Rewrite{
			{regexp.MustCompile(`\._[A-Za-z0-9,_-]+_\.`), "."},
		},
	},
	{
		Name:  "cloudinary",
		Hosts: []string{"cloudinary.com"},
		Rewrites: []Rewrite{
			{regexp.MustCompile(`/upload/(?:[a-z]{1,3}_[^/]*/)+`), "/upload/"},
		},
	},
}

// ruleFor 返回主机对应的规则
func ruleFor(host string) SiteRule {
	for _, rule := range SiteRules {
		if rule.Matches(host) {
			return rule
		}
	}
	return DefaultRule
}

// Upgrade 改写为最大可用尺寸的规范形式
// 去掉查询参数与片段,再按站点规则改写路径;结果再次Upgrade不会变化
func Upgrade(u string) string {
	if len(u) >= 5 && strings.EqualFold(u[:5], "data:") {
		return u
	}

	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return u
	}

	parsed.RawQuery = ""
	parsed.ForceQuery = false
	parsed.Fragment = ""
	parsed.RawFragment = ""

	parsed.Host = strings.ToLower(parsed.Host)

	// 在编码形式上改写,保留%2F等转义
	rule := ruleFor(parsed.Hostname())
	escaped := parsed.EscapedPath()
	if rewritten := rewriteStable(escaped, rule.Rewrites); rewritten != escaped {
		path, err := url.PathUnescape(rewritten)
		if err != nil {
			return u
		}
		parsed.Path = path
		parsed.RawPath = rewritten
	}

	out := parsed.String()
	if out == "" {
		return u
	}
	return out
}

// rewriteStable 反复应用全部改写直到不再变化
func rewriteStable(s string, rewrites []Rewrite) string {
	for i := 0; i < 16; i++ {
		next := s
		for _, rw := range rewrites {
			next = rw.Pattern.ReplaceAllString(next, rw.Replacement)
		}
		if next == s {
			return s
		}
		s = next
	}
	return s
}
