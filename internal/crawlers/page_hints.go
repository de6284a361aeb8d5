package crawlers

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// MinBodyTextLength 可见文本少于该字符数时视为客户端渲染
const MinBodyTextLength = 200

// maxHintTextBytes 用于匹配验证页文案的可见文本上限
const maxHintTextBytes = 64 * 1024

// TitleChallengePatterns 验证页标题特征(小写),只匹配<title>
var TitleChallengePatterns = []string{
	"just a moment...",
	"attention required",
	"access denied",
	"pardon our interruption",
	"are you a robot",
}

// TextChallengePatterns 验证页正文特征(小写),匹配标题和可见文本
var TextChallengePatterns = []string{
	"checking your browser",
	"verify you are human",
	"verifying you are human",
	"complete the captcha",
	"are you a robot",
	"cloudflare ray id",
	"enable javascript and cookies to continue",
}

// challengeElementIDs 验证页容器的id
var challengeElementIDs = map[string]bool{
	"px-captcha":           true,
	"challenge-form":       true,
	"cf-challenge-running": true,
}

// frameworkMountIDs 客户端框架挂载点或数据块的id
var frameworkMountIDs = map[string]string{
	"root":          `id="root"`,
	"app":           `id="app"`,
	"__next_data__": "__next_data__",
}

// pageSignals 一次分词得到的页面特征
type pageSignals struct {
	title     string
	text      string
	noscript  string
	textLen   int
	framework string
	challenge string
}

// DetectClientRendered 判断原始HTML是否需要浏览器渲染
// 返回是否命中以及命中依据
func DetectClientRendered(body []byte) (bool, string) {
	sig := scanPage(body)

	if sig.challenge != "" {
		return true, "challenge: " + sig.challenge
	}
	for _, pattern := range TitleChallengePatterns {
		if strings.Contains(sig.title, pattern) {
			return true, "challenge: " + pattern
		}
	}
	for _, pattern := range TextChallengePatterns {
		if strings.Contains(sig.title, pattern) || strings.Contains(sig.text, pattern) {
			return true, "challenge: " + pattern
		}
	}

	if sig.framework == "" && strings.Contains(sig.noscript, "enable javascript to run this app") {
		sig.framework = "enable javascript to run this app"
	}
	if sig.framework != "" {
		return true, "framework: " + sig.framework
	}

	if sig.textLen < MinBodyTextLength {
		return true, fmt.Sprintf("short body text: %d", sig.textLen)
	}
	return false, ""
}

// visibleTextLength 统计body内可见文本的字符数,空白折叠为一个
func visibleTextLength(body []byte) int {
	return scanPage(body).textLen
}

// scanPage 遍历文档,收集标题、可见文本和标记属性
// 脚本、样式等元素的内容不计入可见文本
func scanPage(body []byte) pageSignals {
	z := html.NewTokenizer(bytes.NewReader(body))

	var (
		sig        pageSignals
		title      strings.Builder
		text       strings.Builder
		noscript   strings.Builder
		skipDepth  int
		inBody     bool
		inTitle    bool
		inScript   bool
		inNoscript bool
		lastSpace  = true
	)

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			sig.title = strings.ToLower(strings.TrimSpace(title.String()))
			sig.text = text.String()
			sig.noscript = strings.ToLower(noscript.String())
			return sig

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				sig.inspectAttr(string(key), strings.ToLower(string(val)))
			}
			if tt == html.SelfClosingTagToken {
				continue
			}
			switch tag {
			case "script", "style", "noscript", "template":
				skipDepth++
				inScript = tag == "script"
				inNoscript = tag == "noscript"
			case "title":
				inTitle = true
			case "body":
				inBody = true
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style", "noscript", "template":
				if skipDepth > 0 {
					skipDepth--
				}
				inScript, inNoscript = false, false
			case "title":
				inTitle = false
			}

		case html.TextToken:
			raw := z.Text()
			switch {
			case inTitle:
				title.Write(raw)
				continue
			case inScript:
				if sig.framework == "" && bytes.Contains(bytes.ToLower(raw), []byte("__nuxt__")) {
					sig.framework = "__nuxt__"
				}
				continue
			case inNoscript:
				noscript.Write(raw)
				continue
			}
			if !inBody || skipDepth > 0 {
				continue
			}
			for len(raw) > 0 {
				r, size := utf8.DecodeRune(raw)
				raw = raw[size:]
				if unicode.IsSpace(r) {
					if !lastSpace {
						sig.textLen++
						lastSpace = true
						if text.Len() < maxHintTextBytes {
							text.WriteByte(' ')
						}
					}
					continue
				}
				sig.textLen++
				lastSpace = false
				if text.Len() < maxHintTextBytes {
					text.WriteRune(unicode.ToLower(r))
				}
			}
		}
	}
}

// inspectAttr 按属性识别框架挂载点和验证页容器
func (sig *pageSignals) inspectAttr(key, val string) {
	switch key {
	case "id":
		if challengeElementIDs[val] && sig.challenge == "" {
			sig.challenge = "#" + val
		}
		if marker, ok := frameworkMountIDs[val]; ok && sig.framework == "" {
			sig.framework = marker
		}
	case "class":
		if strings.Contains(val, "cf-browser-verification") && sig.challenge == "" {
			sig.challenge = "cf-browser-verification"
		}
	case "data-reactroot", "ng-version":
		if sig.framework == "" {
			sig.framework = key
		}
	}
}
