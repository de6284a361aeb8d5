package imgurl

import "strings"

// MinDataURILength 短于该长度的data URI视为占位像素
const MinDataURILength = 500

// DenyTokens 噪声图片的子串标记,均为小写
var DenyTokens = []string{
	// 图标
	"favicon", "icon", "logo", "sprite",
	// 追踪像素与占位
	"pixel", "spacer", "blank", "tracking", "1x1", "beacon",
	// 界面元素
	"badge", "button", "btn", "arrow", "spinner", "loader", "loading",
	"avatar", "emoji", "flag",
	// 社交
	"facebook", "twitter", "instagram", "pinterest", "youtube", "tiktok",
	"linkedin", "whatsapp", "social", "share",
	// 支付
	"visa", "mastercard", "paypal", "amex", "maestro", "klarna", "afterpay",
	"apple-pay", "applepay", "google-pay", "gpay",
	// 通用占位
	"placeholder", "gradient", "transparent",
}

// FilterReason 返回URL被拒绝的原因,空字符串表示通过
func FilterReason(u string) string {
	if u == "" {
		return "empty"
	}

	haystack := u
	if len(u) >= 5 && strings.EqualFold(u[:5], "data:") {
		if len(u) < MinDataURILength {
			return "short data uri"
		}
		// base64主体是随机字符,只检查头部
		if idx := strings.IndexByte(u, ','); idx >= 0 {
			haystack = u[:idx]
		}
	}

	lower := strings.ToLower(haystack)
	for _, token := range DenyTokens {
		if strings.Contains(lower, token) {
			return token
		}
	}
	return ""
}

// IsCandidate 判断URL是否可能是商品图片
func IsCandidate(u string) bool {
	return FilterReason(u) == ""
}
