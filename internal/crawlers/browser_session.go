package crawlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/RecoveryAshes/ImgFIndcrack/internal/models"
	"github.com/RecoveryAshes/ImgFIndcrack/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// scrollScript 滚动到页面中部触发懒加载
const scrollScript = `() => window.scrollTo(0, Math.floor(document.body.scrollHeight / 2))`

// collectScript 一次性读取og图片和所有img的渲染尺寸
const collectScript = `() => {
	const meta = document.querySelector('meta[property="og:image"], meta[name="og:image"]');
	const images = Array.from(document.images).map((img) => {
		const rect = img.getBoundingClientRect();
		return {
			src: img.currentSrc || img.src || '',
			srcset: img.getAttribute('srcset') || img.getAttribute('data-srcset') || '',
			area: Math.max(0, rect.width) * Math.max(0, rect.height),
		};
	});
	return JSON.stringify({ og: meta ? (meta.getAttribute('content') || '') : '', images });
}`

// renderSession 一次渲染用的浏览器会话
// Close 必须在所有退出路径上调用
type renderSession interface {
	Render(ctx context.Context, pageURL string) (*renderedSnapshot, error)
	Close()
}

// browserSession 独立的Chromium进程及其唯一标签页
type browserSession struct {
	config       models.BrowserConfig
	extraHeaders []string

	launcher *launcher.Launcher
	launched bool
	browser  *rod.Browser
	page     *rod.Page
}

// launchSession 启动浏览器并打开空白页
// 任一步骤失败都会释放已获取的部分
func launchSession(ctx context.Context, config models.BrowserConfig, headerProvider models.HeaderProvider) (renderSession, error) {
	l := launcher.New().
		Context(ctx).
		Headless(config.Headless).
		Set("no-sandbox").
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("ignore-certificate-errors")
	if config.Bin != "" {
		l = l.Bin(config.Bin)
	}

	session := &browserSession{
		config:       config,
		extraHeaders: extraHeaderPairs(headerProvider),
		launcher:     l,
	}

	ok := false
	defer func() {
		if !ok {
			session.Close()
		}
	}()

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}
	session.launched = true

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}
	session.browser = browser

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("创建标签页失败: %w", err)
	}
	session.page = page

	utils.Debugf("浏览器已启动: %s", controlURL)
	ok = true
	return session, nil
}

// Close 关闭标签页和浏览器,并结束进程
func (s *browserSession) Close() {
	if s == nil {
		return
	}
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			utils.Debugf("关闭标签页失败: %v", err)
		}
		s.page = nil
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			utils.Debugf("关闭浏览器失败: %v", err)
		}
		s.browser = nil
	}
	// 只有启动成功后才能Kill和Cleanup,否则Cleanup会一直阻塞
	if s.launcher != nil && s.launched {
		s.launcher.Kill()
		s.launcher.Cleanup()
		s.launched = false
		utils.Debugf("浏览器已关闭")
	}
}

// Render 导航、等待、滚动并读取渲染后的DOM
func (s *browserSession) Render(ctx context.Context, pageURL string) (*renderedSnapshot, error) {
	page := s.page.Context(ctx)

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: DesktopUserAgent}); err != nil {
		return nil, fmt.Errorf("设置User-Agent失败: %w", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.config.ViewportWidth,
		Height:            s.config.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("设置视口失败: %w", err)
	}
	if len(s.extraHeaders) > 0 {
		cleanup, err := page.SetExtraHeaders(s.extraHeaders)
		if err != nil {
			utils.Warnf("设置自定义头部失败: %v", err)
		} else {
			defer cleanup()
		}
	}

	nav := page.Timeout(s.config.NavTimeout)
	defer nav.CancelTimeout()

	if err := nav.Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("页面导航失败: %w", err)
	}
	if err := nav.WaitLoad(); err != nil {
		return nil, fmt.Errorf("等待页面加载失败: %w", err)
	}
	// 网络未完全静默时仍然继续读取
	if err := nav.WaitStable(time.Second); err != nil {
		utils.Debugf("页面未完全稳定 [%s]: %v", pageURL, err)
	}

	if err := sleepCtx(ctx, s.config.SettleDelay); err != nil {
		return nil, err
	}
	if _, err := page.Eval(scrollScript); err != nil {
		utils.Debugf("滚动页面失败 [%s]: %v", pageURL, err)
	}
	if err := sleepCtx(ctx, s.config.ScrollDelay); err != nil {
		return nil, err
	}

	obj, err := page.Eval(collectScript)
	if err != nil {
		return nil, fmt.Errorf("读取渲染DOM失败: %w", err)
	}

	var snap renderedSnapshot
	if err := json.Unmarshal([]byte(obj.Value.Str()), &snap); err != nil {
		return nil, fmt.Errorf("解析渲染结果失败: %w", err)
	}
	return &snap, nil
}

// extraHeaderPairs 浏览器自己管理UA和编码,其余自定义头部透传
func extraHeaderPairs(headerProvider models.HeaderProvider) []string {
	if headerProvider == nil {
		return nil
	}
	headers, err := headerProvider.GetHeaders()
	if err != nil {
		utils.Warnf("获取HTTP头部失败: %v", err)
		return nil
	}

	var pairs []string
	for name, values := range headers {
		switch name {
		case "User-Agent", "Accept", "Accept-Encoding":
			continue
		}
		if len(values) > 0 {
			pairs = append(pairs, name, values[0])
		}
	}
	return pairs
}

// sleepCtx 可被取消的固定等待
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
