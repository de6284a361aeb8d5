package crawlers

import "strings"

const srcsetSpace = " \t\n\r\f"

// splitSrcset 按描述符拆分srcset,返回URL列表
// URL一直延续到空白字符,因此URL内部的逗号会被保留
func splitSrcset(value string) []string {
	var urls []string
	s := value

	for {
		s = strings.TrimLeft(s, srcsetSpace+",")
		if s == "" {
			return urls
		}

		var candidate string
		if end := strings.IndexAny(s, srcsetSpace); end >= 0 {
			candidate, s = s[:end], s[end:]
		} else {
			candidate, s = s, ""
		}

		if strings.HasSuffix(candidate, ",") {
			// 没有描述符
			candidate = strings.TrimRight(candidate, ",")
		} else if idx := strings.IndexByte(s, ','); idx >= 0 {
			s = s[idx+1:]
		} else {
			s = ""
		}

		if candidate != "" {
			urls = append(urls, candidate)
		}
	}
}

// lastSrcsetCandidate 按惯例最后一项是最大尺寸
func lastSrcsetCandidate(value string) string {
	urls := splitSrcset(value)
	if len(urls) == 0 {
		return ""
	}
	return urls[len(urls)-1]
}
