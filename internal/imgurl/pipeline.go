package imgurl

import (
	"net/url"

	"github.com/RecoveryAshes/ImgFIndcrack/internal/models"
	"github.com/RecoveryAshes/ImgFIndcrack/internal/utils"
)

// PipelineStats 单个阶段内的处理统计
type PipelineStats struct {
	Offered   int
	Dropped   int // 规范化失败
	Filtered  int // 命中过滤表
	Duplicate int
	Added     int
}

// Pipeline 规范化 -> 过滤 -> 分辨率升级 -> 去重插入
// 每次提取运行独占一个实例
type Pipeline struct {
	base  *url.URL
	set   *models.ImageSet
	stats PipelineStats
}

// NewPipeline 创建候选管道
func NewPipeline(base *url.URL, set *models.ImageSet) *Pipeline {
	return &Pipeline{base: base, set: set}
}

// Offer 处理一个原始匹配,成功插入时返回true
func (p *Pipeline) Offer(raw string, src models.Source) bool {
	p.stats.Offered++

	normalized, err := Normalize(raw, p.base)
	if err != nil {
		p.stats.Dropped++
		return false
	}

	if reason := FilterReason(normalized); reason != "" {
		p.stats.Filtered++
		utils.Debugf("过滤候选 [%s] %s: %s", src, reason, truncate(normalized, 120))
		return false
	}

	if !p.set.Add(Upgrade(normalized), src) {
		p.stats.Duplicate++
		return false
	}

	p.stats.Added++
	return true
}

// Stats 返回统计快照
func (p *Pipeline) Stats() PipelineStats {
	return p.stats
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
