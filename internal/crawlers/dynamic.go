package crawlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RecoveryAshes/ImgFIndcrack/internal/imgurl"
	"github.com/RecoveryAshes/ImgFIndcrack/internal/models"
	"github.com/RecoveryAshes/ImgFIndcrack/internal/utils"
	"golang.org/x/sync/semaphore"
)

var (
	ErrBrowserCrashed     = errors.New("浏览器崩溃")
	ErrBrowserUnavailable = errors.New("渲染浏览器不可用")
	ErrResourceLimited    = errors.New("系统资源不足,跳过渲染")
)

// DynamicExtractor 动态提取器(使用Rod)
// 每次提取启动独立的浏览器进程,结束时无论成败都会关闭
type DynamicExtractor struct {
	config         models.BrowserConfig
	headerProvider models.HeaderProvider
	monitor        *ResourceMonitor

	// 进程级会话上限,nil表示不限制
	sessions *semaphore.Weighted

	launch func(ctx context.Context) (renderSession, error)
}

// NewDynamicExtractor 创建动态提取器
func NewDynamicExtractor(config models.BrowserConfig, headerProvider models.HeaderProvider, monitor *ResourceMonitor) *DynamicExtractor {
	de := &DynamicExtractor{
		config:         config,
		headerProvider: headerProvider,
		monitor:        monitor,
	}
	if config.MaxSessions > 0 {
		de.sessions = semaphore.NewWeighted(int64(config.MaxSessions))
	}
	de.launch = func(ctx context.Context) (renderSession, error) {
		return launchSession(ctx, de.config, de.headerProvider)
	}
	return de
}

// Name 阶段名称
func (de *DynamicExtractor) Name() string {
	return "dynamic"
}

// Extract 渲染页面并扫描DOM中的图片
// 浏览器被禁用时返回空结果;后端不可用或崩溃时返回错误,由编排器降级处理
func (de *DynamicExtractor) Extract(ctx context.Context, page *models.PageReference, set *models.ImageSet) (models.StageResult, error) {
	var result models.StageResult

	if !de.config.Enabled {
		utils.Debugf("浏览器渲染已禁用,跳过动态阶段")
		return result, nil
	}

	if de.sessions != nil {
		if err := de.sessions.Acquire(ctx, 1); err != nil {
			return result, fmt.Errorf("等待浏览器会话失败: %w", err)
		}
		defer de.sessions.Release(1)
	}

	if ok, reason := de.monitor.CanLaunchBrowser(); !ok {
		return result, fmt.Errorf("%w: %s", ErrResourceLimited, reason)
	}

	start := time.Now()
	snap, err := de.render(ctx, page.String())
	if err != nil {
		return result, err
	}
	if snap == nil {
		snap = &renderedSnapshot{}
	}

	pipeline := imgurl.NewPipeline(page.URL, set)
	for _, c := range rankRendered(snap, de.config.MinVisibleArea) {
		pipeline.Offer(c.URL, c.Source)
	}

	stats := pipeline.Stats()
	result.Added = stats.Added
	utils.Debugf("[dynamic] %s: 渲染 %d 个img, 新增 %d 个候选, 耗时 %.2f秒",
		page.String(), len(snap.Images), stats.Added, time.Since(start).Seconds())

	return result, nil
}

// render 获取会话并保证释放
func (de *DynamicExtractor) render(ctx context.Context, pageURL string) (snap *renderedSnapshot, err error) {
	session, err := de.launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserUnavailable, err)
	}
	defer session.Close()

	defer func() {
		if r := recover(); r != nil {
			utils.Errorf("浏览器操作panic: URL=%s, 错误=%v", pageURL, r)
			snap, err = nil, fmt.Errorf("%w: %v", ErrBrowserCrashed, r)
		}
	}()

	return session.Render(ctx, pageURL)
}
