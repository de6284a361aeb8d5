package models

// Source 候选图片的信号来源
type Source string

const (
	SourceOpenGraph      Source = "og"
	SourceTwitter        Source = "twitter"
	SourceJSONLD         Source = "jsonld"
	SourceLazyAttr       Source = "lazy"
	SourceImgTag         Source = "img"
	SourceSrcset         Source = "srcset"
	SourceInlineScript   Source = "script"
	SourceRenderedOG     Source = "rendered-og"
	SourceRenderedImg    Source = "rendered-img"
	SourceRenderedSrcset Source = "rendered-srcset"
)

const (
	// DefaultMaxImages 单次返回的图片上限
	DefaultMaxImages = 30

	// DefaultEscalationThreshold 静态阶段候选数低于该值时升级到动态阶段
	DefaultEscalationThreshold = 3
)

// ImageCandidate 一次提取中发现的候选图片
type ImageCandidate struct {
	URL    string `json:"url"`
	Source Source `json:"source"`
}

// ImageSet 有序去重的候选集合
// 插入顺序即发现优先级,仅在单次运行内使用,不做并发保护
type ImageSet struct {
	items []ImageCandidate
	seen  map[string]struct{}
}

// NewImageSet 创建空集合
func NewImageSet() *ImageSet {
	return &ImageSet{
		items: make([]ImageCandidate, 0),
		seen:  make(map[string]struct{}),
	}
}

// Add 插入候选URL,已存在或为空时返回false
func (s *ImageSet) Add(u string, src Source) bool {
	if u == "" {
		return false
	}
	if _, ok := s.seen[u]; ok {
		return false
	}
	s.seen[u] = struct{}{}
	s.items = append(s.items, ImageCandidate{URL: u, Source: src})
	return true
}

// Contains 判断URL是否已收录
func (s *ImageSet) Contains(u string) bool {
	_, ok := s.seen[u]
	return ok
}

// Len 截断前的候选总数
func (s *ImageSet) Len() int {
	return len(s.items)
}

// Candidates 返回全部候选(副本)
func (s *ImageSet) Candidates() []ImageCandidate {
	out := make([]ImageCandidate, len(s.items))
	copy(out, s.items)
	return out
}

// Capped 返回至多max个URL,max<=0表示不截断
func (s *ImageSet) Capped(max int) []string {
	n := len(s.items)
	if max > 0 && n > max {
		n = max
	}
	out := make([]string, 0, n)
	for _, item := range s.items[:n] {
		out = append(out, item.URL)
	}
	return out
}

// CountBySource 按来源统计候选数量
func (s *ImageSet) CountBySource() map[Source]int {
	counts := make(map[Source]int)
	for _, item := range s.items {
		counts[item.Source]++
	}
	return counts
}

// ExtractResult 提取接口的响应体
type ExtractResult struct {
	Images     []string `json:"images"`
	TotalFound int      `json:"totalFound"`
}

// NewExtractResult 从集合生成响应,images始终为非nil列表
func NewExtractResult(set *ImageSet, max int) *ExtractResult {
	if set == nil {
		return &ExtractResult{Images: []string{}}
	}
	return &ExtractResult{
		Images:     set.Capped(max),
		TotalFound: set.Len(),
	}
}
