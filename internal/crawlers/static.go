package crawlers

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/RecoveryAshes/ImgFIndcrack/internal/models"
	"github.com/RecoveryAshes/ImgFIndcrack/internal/utils"
	"github.com/gocolly/colly/v2"
	"golang.org/x/net/publicsuffix"
)

const (
	// DesktopUserAgent 页面与图片请求默认使用的桌面浏览器UA
	DesktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/120.0.0.0 Safari/537.36"

	// MobileUserAgent 移动端回退阶段使用
	MobileUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) " +
		"AppleWebKit/605.1.15 (KHTML, like Gecko) " +
		"Version/17.2 Mobile/15E148 Safari/604.1"

	// maxPageBytes 页面HTML读取上限
	maxPageBytes = 10 * 1024 * 1024
)

var (
	ErrPageFetch  = errors.New("页面请求失败")
	ErrPageStatus = errors.New("页面返回非成功状态")
)

// StaticExtractor 静态提取器(使用Colly)
// 只读取原始HTML,不执行脚本
type StaticExtractor struct {
	name           string
	fetch          models.FetchConfig
	headerProvider models.HeaderProvider
	transport      *http.Transport
}

// NewStaticExtractor 创建静态提取器
func NewStaticExtractor(fetch models.FetchConfig, headerProvider models.HeaderProvider) *StaticExtractor {
	return &StaticExtractor{
		name:           "static",
		fetch:          fetch,
		headerProvider: headerProvider,
		transport:      newTransport(fetch.InsecureSkipVerify),
	}
}

// NewMobileStaticExtractor 使用移动端UA的静态提取器
// 部分站点对移动端返回服务端渲染的精简页面
func NewMobileStaticExtractor(fetch models.FetchConfig, headerProvider models.HeaderProvider) *StaticExtractor {
	se := NewStaticExtractor(fetch, &models.OverrideProvider{
		Base:      headerProvider,
		Overrides: http.Header{"User-Agent": []string{MobileUserAgent}},
	})
	se.name = "static-mobile"
	return se
}

// newTransport 页面与图片请求共享的连接池
func newTransport(insecure bool) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: insecure, // 允许自签名或过期证书
		},
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

// Name 阶段名称
func (se *StaticExtractor) Name() string {
	return se.name
}

// Extract 抓取页面并扫描全部静态信号源
// 请求失败时返回错误,已扫描到的候选仍保留在set中
func (se *StaticExtractor) Extract(ctx context.Context, page *models.PageReference, set *models.ImageSet) (models.StageResult, error) {
	var result models.StageResult

	body, finalURL, err := se.fetchHTML(ctx, page.String())
	if err != nil {
		return result, err
	}

	base := page.URL
	if finalURL != nil && finalURL.Host != "" {
		base = finalURL
	}

	stats := scanHTML(body, base, set)
	result.Added = stats.Added
	result.ClientRendered, result.HintReason = DetectClientRendered(body)

	utils.Debugf("[%s] %s: 新增 %d 个候选 (过滤 %d, 重复 %d, 丢弃 %d)",
		se.name, page.String(), stats.Added, stats.Filtered, stats.Duplicate, stats.Dropped)
	if result.ClientRendered {
		utils.Debugf("[%s] 页面疑似客户端渲染: %s", se.name, result.HintReason)
	}

	return result, nil
}

// fetchHTML 使用一次性collector请求页面
func (se *StaticExtractor) fetchHTML(ctx context.Context, pageURL string) ([]byte, *url.URL, error) {
	c := colly.NewCollector(
		colly.UserAgent(DesktopUserAgent),
		colly.StdlibContext(ctx),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	c.MaxBodySize = maxPageBytes

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, nil, fmt.Errorf("创建cookie jar失败: %w", err)
	}
	c.SetClient(&http.Client{
		Transport: se.transport,
		Timeout:   se.fetch.Timeout,
		Jar:       jar,
	})

	var (
		body     []byte
		finalURL *url.URL
		fetchErr error
	)

	c.OnRequest(func(r *colly.Request) {
		if se.headerProvider == nil {
			return
		}
		headers, err := se.headerProvider.GetHeaders()
		if err != nil {
			utils.Warnf("获取HTTP头部失败: %v", err)
			return
		}
		for name, values := range headers {
			if len(values) > 0 {
				r.Headers.Set(name, values[0])
			}
		}
	})

	c.OnResponse(func(r *colly.Response) {
		body = decodeBody(r.Headers.Get("Content-Encoding"), r.Body, pageURL)
		finalURL = r.Request.URL
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("%w: HTTP %d", ErrPageStatus, r.StatusCode)
			return
		}
		fetchErr = fmt.Errorf("%w: %v", ErrPageFetch, err)
	})

	utils.Debugf("[%s] 访问: %s", se.name, pageURL)
	if err := c.Visit(pageURL); err != nil && fetchErr == nil {
		fetchErr = fmt.Errorf("%w: %v", ErrPageFetch, err)
	}
	if fetchErr != nil {
		return nil, nil, fetchErr
	}
	if body == nil {
		return nil, nil, fmt.Errorf("%w: 空响应", ErrPageFetch)
	}

	return body, finalURL, nil
}
