package core

import (
	"context"
	"fmt"
	"time"

	"github.com/RecoveryAshes/ImgFIndcrack/internal/crawlers"
	"github.com/RecoveryAshes/ImgFIndcrack/internal/models"
	"github.com/RecoveryAshes/ImgFIndcrack/internal/utils"
)

// Extractor 提取策略
// 每个策略向同一个ImageSet写入候选,集合负责跨策略去重
type Extractor interface {
	Name() string
	Extract(ctx context.Context, page *models.PageReference, set *models.ImageSet) (models.StageResult, error)
}

// Scraper 提取编排器
// 按顺序尝试策略,直到候选足够且页面没有客户端渲染迹象
type Scraper struct {
	config     models.ScrapeConfig
	extractors []Extractor
}

// NewScraper 创建编排器
func NewScraper(config models.ScrapeConfig, extractors ...Extractor) *Scraper {
	if config.MaxImages <= 0 {
		config.MaxImages = models.DefaultMaxImages
	}
	return &Scraper{
		config:     config,
		extractors: extractors,
	}
}

// NewScraperFromConfig 按配置的模式组装策略链
func NewScraperFromConfig(cfg *Config, headerProvider models.HeaderProvider, monitor *crawlers.ResourceMonitor) *Scraper {
	return NewScraper(cfg.Scrape, BuildExtractors(cfg, headerProvider, monitor)...)
}

// BuildExtractors 策略链: 静态 → (移动UA静态) → 浏览器渲染
func BuildExtractors(cfg *Config, headerProvider models.HeaderProvider, monitor *crawlers.ResourceMonitor) []Extractor {
	static := crawlers.NewStaticExtractor(cfg.Fetch, headerProvider)
	dynamic := crawlers.NewDynamicExtractor(cfg.Browser, headerProvider, monitor)

	switch cfg.Scrape.Mode {
	case models.ModeStatic:
		return []Extractor{static}
	case models.ModeDynamic:
		return []Extractor{dynamic}
	}

	chain := []Extractor{static}
	if cfg.Scrape.MobileFallback {
		chain = append(chain, crawlers.NewMobileStaticExtractor(cfg.Fetch, headerProvider))
	}
	return append(chain, dynamic)
}

// Stages 策略名称列表
func (s *Scraper) Stages() []string {
	names := make([]string, 0, len(s.extractors))
	for _, e := range s.extractors {
		names = append(names, e.Name())
	}
	return names
}

// Scrape 提取页面中的商品图片
// 只有pageUrl缺失或无效时返回错误;各阶段失败只记录日志,结果可能为空
func (s *Scraper) Scrape(ctx context.Context, rawPageURL string) (*models.ExtractResult, *models.ScrapeStats, error) {
	page, err := models.NewPageReference(rawPageURL)
	if err != nil {
		return nil, nil, err
	}

	if s.config.PageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.PageTimeout)
		defer cancel()
	}

	start := time.Now()
	stats := models.NewScrapeStats(page.String())
	logger := utils.RunLogger(stats.RunID)
	set := models.NewImageSet()

	logger.Info().Str("page", page.String()).Msg("开始提取")

	var prev models.StageResult
	for i, extractor := range s.extractors {
		if i > 0 {
			reason, escalate := s.shouldEscalate(set, prev)
			if !escalate {
				break
			}
			if ctx.Err() != nil {
				logger.Warn().Err(ctx.Err()).Str("stage", extractor.Name()).Msg("上下文已结束,跳过后续阶段")
				break
			}
			if !stats.Escalated {
				stats.Escalated = true
				stats.EscalationReason = reason
			}
			logger.Info().Str("stage", extractor.Name()).Str("reason", reason).Msg("升级到下一阶段")
		}

		stageStart := time.Now()
		result, err := extractor.Extract(ctx, page, set)
		stage := models.StageStats{
			Name:           extractor.Name(),
			Added:          result.Added,
			ClientRendered: result.ClientRendered,
			Duration:       time.Since(stageStart).Seconds(),
		}
		if err != nil {
			stage.Error = err.Error()
			logger.Warn().Err(err).Str("stage", extractor.Name()).Msg("提取阶段失败,按空结果处理")
		} else {
			logger.Debug().
				Str("stage", extractor.Name()).
				Int("added", result.Added).
				Bool("client_rendered", result.ClientRendered).
				Str("hint", result.HintReason).
				Msg("提取阶段完成")
		}
		stats.Stages = append(stats.Stages, stage)
		prev = result
	}

	extract := models.NewExtractResult(set, s.config.MaxImages)
	stats.TotalFound = extract.TotalFound
	stats.Returned = len(extract.Images)
	stats.Duration = time.Since(start).Seconds()

	logger.Info().
		Int("total_found", stats.TotalFound).
		Int("returned", stats.Returned).
		Float64("duration", stats.Duration).
		Msg("提取完成")

	return extract, stats, nil
}

// shouldEscalate 候选不足阈值,或上一阶段判定为客户端渲染时继续
func (s *Scraper) shouldEscalate(set *models.ImageSet, prev models.StageResult) (string, bool) {
	if n := set.Len(); n < s.config.EscalationThreshold {
		return fmt.Sprintf("候选不足: %d < %d", n, s.config.EscalationThreshold), true
	}
	if prev.ClientRendered {
		reason := prev.HintReason
		if reason == "" {
			reason = "客户端渲染"
		}
		return reason, true
	}
	return "", false
}
