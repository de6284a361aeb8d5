package crawlers

import (
	"strings"
	"testing"
)

func richBody(extra string) string {
	paragraph := strings.Repeat("This linen shirt is cut for a relaxed fit and finished with mother of pearl buttons. ", 4)
	return "<html><head><title>Shirt</title></head><body><main><h1>Linen Shirt</h1><p>" +
		paragraph + "</p>" + extra + "</main></body></html>"
}

// TestDetectClientRendered 客户端渲染提示
func TestDetectClientRendered(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		expected   bool
		wantReason string
	}{
		{
			name:     "服务端渲染的正常页面",
			body:     richBody(""),
			expected: false,
		},
		{
			name:       "Cloudflare验证页",
			body:       "<html><head><title>Just a moment...</title></head><body>" + strings.Repeat("x ", 300) + "</body></html>",
			expected:   true,
			wantReason: "challenge",
		},
		{
			name:       "验证码文本大小写无关",
			body:       richBody("<div>Please complete the CAPTCHA</div>"),
			expected:   true,
			wantReason: "challenge",
		},
		{
			name:       "React挂载点",
			body:       richBody(`<div id="root"></div>`),
			expected:   true,
			wantReason: "framework",
		},
		{
			name:       "Next.js数据",
			body:       richBody(`<script id="__NEXT_DATA__" type="application/json">{}</script>`),
			expected:   true,
			wantReason: "framework",
		},
		{
			name:       "标题为拒绝访问",
			body:       strings.Replace(richBody(""), "<title>Shirt</title>", "<title>Access Denied</title>", 1),
			expected:   true,
			wantReason: "challenge: access denied",
		},
		{
			name:       "验证码容器",
			body:       richBody(`<div id="px-captcha"></div>`),
			expected:   true,
			wantReason: "challenge: #px-captcha",
		},
		{
			name:     "页面引用recaptcha脚本",
			body:     richBody(`<script src="https://www.google.com/recaptcha/api.js"></script><div class="g-recaptcha"></div>`),
			expected: false,
		},
		{
			name:     "正文中出现access denied",
			body:     richBody("<p>If you see access denied when signing in, clear your cookies.</p>"),
			expected: false,
		},
		{
			name:     "脚本字符串中的挂载点",
			body:     richBody(`<script>var tpl = '<div id="root"></div>';</script>`),
			expected: false,
		},
		{
			name:       "React根属性",
			body:       richBody(`<div data-reactroot="">x</div>`),
			expected:   true,
			wantReason: "framework: data-reactroot",
		},
		{
			name:       "Nuxt状态脚本",
			body:       richBody(`<script>window.__NUXT__={}</script>`),
			expected:   true,
			wantReason: "framework: __nuxt__",
		},
		{
			name:       "正文过短",
			body:       "<html><body><div>Loading</div></body></html>",
			expected:   true,
			wantReason: "short body text",
		},
		{
			name:       "脚本内容不计入正文",
			body:       "<html><body><p>Hi</p><script>" + strings.Repeat("var x = 1;", 100) + "</script></body></html>",
			expected:   true,
			wantReason: "short body text",
		},
		{
			name:       "空内容",
			body:       "",
			expected:   true,
			wantReason: "short body text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := DetectClientRendered([]byte(tt.body))
			if got != tt.expected {
				t.Errorf("DetectClientRendered() = %v (%s), 期望 %v", got, reason, tt.expected)
			}
			if tt.wantReason != "" && !strings.HasPrefix(reason, tt.wantReason) {
				t.Errorf("命中依据 = %q, 期望前缀 %q", reason, tt.wantReason)
			}
		})
	}
}

func TestVisibleTextLength(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"折叠空白", "<body>a   b\n\nc</body>", 5},
		{"忽略head", "<head><title>long title here</title></head><body>ab</body>", 2},
		{"忽略样式和noscript", "<body><style>p{}</style><noscript>enable js</noscript>ok</body>", 2},
		{"多字节字符", "<body>衬衫</body>", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := visibleTextLength([]byte(tt.body)); got != tt.want {
				t.Errorf("visibleTextLength() = %d, 期望 %d", got, tt.want)
			}
		})
	}
}
