package crawlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // 注册解码器
	_ "image/jpeg" // 注册解码器
	_ "image/png"  // 注册解码器
	"io"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/RecoveryAshes/ImgFIndcrack/internal/models"
	"github.com/RecoveryAshes/ImgFIndcrack/internal/utils"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp" // 注册解码器
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"
)

// ImageAccept 图片请求的Accept头部
const ImageAccept = "image/avif,image/webp,image/apng,image/*,*/*;q=0.8"

// FetchErrorKind 抓取失败分类
type FetchErrorKind string

const (
	KindInvalidURL  FetchErrorKind = "invalid_url"
	KindUnreachable FetchErrorKind = "unreachable"
	KindBadStatus   FetchErrorKind = "bad_status"
	KindNotImage    FetchErrorKind = "not_image"
	KindTooLarge    FetchErrorKind = "too_large"
)

var (
	ErrInvalidImageURL  = errors.New("invalid image URL")
	ErrImageUnreachable = errors.New("could not reach URL")
	ErrImageBadStatus   = errors.New("image URL returned an error status")
	ErrNotImage         = errors.New("URL does not point to an image")
	ErrImageTooLarge    = errors.New("image is too large")
)

// FetchError 图片抓取错误,Error()的文本可直接展示给调用方
type FetchError struct {
	Kind        FetchErrorKind
	URL         string
	Status      int
	ContentType string
	Limit       int64
	Cause       error
}

// Error 实现error接口
func (e *FetchError) Error() string {
	switch e.Kind {
	case KindUnreachable:
		return "could not reach URL"
	case KindBadStatus:
		return fmt.Sprintf("image URL returned HTTP %d", e.Status)
	case KindNotImage:
		got := e.ContentType
		if got == "" {
			got = "unknown content type"
		}
		return fmt.Sprintf("URL does not point to an image (got %s)", got)
	case KindTooLarge:
		return fmt.Sprintf("image exceeds the %d byte limit", e.Limit)
	default:
		return "invalid image URL"
	}
}

// Unwrap 支持errors.Unwrap
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Is 按分类匹配哨兵错误
func (e *FetchError) Is(target error) bool {
	switch e.Kind {
	case KindInvalidURL:
		return target == ErrInvalidImageURL
	case KindUnreachable:
		return target == ErrImageUnreachable
	case KindBadStatus:
		return target == ErrImageBadStatus
	case KindNotImage:
		return target == ErrNotImage
	case KindTooLarge:
		return target == ErrImageTooLarge
	}
	return false
}

// ImageFetcher 单张图片抓取
// 单次GET,不重试
type ImageFetcher struct {
	config         models.FetchConfig
	headerProvider models.HeaderProvider
	transport      http.RoundTripper

	// 合并同一URL的并发请求
	group singleflight.Group
}

// NewImageFetcher 创建图片抓取器
func NewImageFetcher(config models.FetchConfig, headerProvider models.HeaderProvider) *ImageFetcher {
	if config.MaxBytes <= 0 {
		config.MaxBytes = models.MaxImageSize
	}
	return &ImageFetcher{
		config:         config,
		headerProvider: headerProvider,
		transport:      newTransport(config.InsecureSkipVerify),
	}
}

// Fetch 抓取图片并编码为data URI
// referer为来源页面URL,为空时不发送
func (f *ImageFetcher) Fetch(ctx context.Context, imageURL, referer string) (*models.FetchedImage, error) {
	raw := strings.TrimSpace(imageURL)
	if raw == "" {
		return nil, &FetchError{Kind: KindInvalidURL, Cause: errors.New("空URL")}
	}

	if len(raw) >= 5 && strings.EqualFold(raw[:5], "data:") {
		return f.decodeDataURI(raw)
	}

	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, &FetchError{Kind: KindInvalidURL, URL: raw, Cause: err}
	}

	target := parsed.String()
	// 共享请求不跟随任何一个调用方的取消,各调用方只按自己的ctx放弃等待
	detached := context.WithoutCancel(ctx)
	ch := f.group.DoChan(target+"\x00"+referer, func() (interface{}, error) {
		return f.fetch(detached, target, referer)
	})

	select {
	case <-ctx.Done():
		return nil, &FetchError{Kind: KindUnreachable, URL: target, Cause: ctx.Err()}
	case res := <-ch:
		if res.Shared {
			utils.Debugf("合并并发图片请求: %s", utils.RedactURL(target))
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.FetchedImage), nil
	}
}

func (f *ImageFetcher) fetch(ctx context.Context, target, referer string) (*models.FetchedImage, error) {
	if f.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.config.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindInvalidURL, URL: target, Cause: err}
	}

	f.applyHeaders(req, referer)

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("创建cookie jar失败: %w", err)
	}
	client := &http.Client{Transport: f.transport, Timeout: f.config.Timeout, Jar: jar}

	resp, err := client.Do(req)
	if err != nil {
		utils.Debugf("图片请求失败 [%s]: %v", utils.RedactURL(target), err)
		return nil, &FetchError{Kind: KindUnreachable, URL: target, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Kind: KindBadStatus, URL: target, Status: resp.StatusCode}
	}

	declared := mediaType(resp.Header.Get("Content-Type"))
	if !isGenericType(declared) && !strings.HasPrefix(declared, "image/") {
		return nil, &FetchError{Kind: KindNotImage, URL: target, Status: resp.StatusCode, ContentType: declared}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes+1))
	if err != nil {
		return nil, &FetchError{Kind: KindUnreachable, URL: target, Cause: err}
	}
	if int64(len(body)) > f.config.MaxBytes {
		return nil, &FetchError{Kind: KindTooLarge, URL: target, Limit: f.config.MaxBytes}
	}
	body = decodeBody(resp.Header.Get("Content-Encoding"), body, target)

	return f.buildImage(target, declared, body)
}

// applyHeaders 自定义头部之上强制图片Accept与Referer
func (f *ImageFetcher) applyHeaders(req *http.Request, referer string) {
	if f.headerProvider != nil {
		headers, err := f.headerProvider.GetHeaders()
		if err != nil {
			utils.Warnf("获取HTTP头部失败: %v", err)
		} else {
			for name, values := range headers {
				if len(values) > 0 {
					req.Header.Set(name, values[0])
				}
			}
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", DesktopUserAgent)
	}
	req.Header.Set("Accept", ImageAccept)
	if referer != "" && models.ValidateURL(referer) == nil {
		req.Header.Set("Referer", referer)
	}
}

// buildImage 校验类型并生成结果,声明类型含糊时嗅探内容
func (f *ImageFetcher) buildImage(source, contentType string, body []byte) (*models.FetchedImage, error) {
	if len(body) == 0 {
		return nil, &FetchError{Kind: KindNotImage, URL: source, ContentType: "empty body"}
	}

	if isGenericType(contentType) {
		contentType = mediaType(mimetype.Detect(body).String())
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, &FetchError{Kind: KindNotImage, URL: source, ContentType: contentType}
	}

	img := models.NewFetchedImage(source, contentType, body)
	if err := img.ValidateSize(f.config.MaxBytes); err != nil {
		return nil, &FetchError{Kind: KindTooLarge, URL: source, Limit: f.config.MaxBytes, Cause: err}
	}

	if contentType != "image/svg+xml" {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(body)); err == nil {
			img.Width, img.Height = cfg.Width, cfg.Height
		}
	}

	utils.Debugf("图片抓取成功 [%s]: %s, %d bytes, %dx%d",
		utils.RedactURL(source), contentType, img.ByteSize, img.Width, img.Height)
	return img, nil
}

// decodeDataURI 本地解码内联图片,不发起网络请求
func (f *ImageFetcher) decodeDataURI(raw string) (*models.FetchedImage, error) {
	header, payload, ok := strings.Cut(raw[len("data:"):], ",")
	if !ok {
		return nil, &FetchError{Kind: KindInvalidURL, Cause: errors.New("data URI缺少逗号分隔")}
	}

	isBase64 := false
	if lower := strings.ToLower(header); strings.HasSuffix(lower, ";base64") {
		isBase64 = true
		header = header[:len(header)-len(";base64")]
	}

	var (
		body []byte
		err  error
	)
	if isBase64 {
		payload = strings.Map(func(r rune) rune {
			if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
				return -1
			}
			return r
		}, payload)
		body, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			body, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
	} else {
		var unescaped string
		unescaped, err = url.PathUnescape(payload)
		body = []byte(unescaped)
	}
	if err != nil {
		return nil, &FetchError{Kind: KindInvalidURL, Cause: fmt.Errorf("data URI解码失败: %w", err)}
	}
	if int64(len(body)) > f.config.MaxBytes {
		return nil, &FetchError{Kind: KindTooLarge, Limit: f.config.MaxBytes}
	}

	return f.buildImage("", mediaType(header), body)
}

// mediaType 去掉参数并转小写
func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// isGenericType 需要嗅探的声明类型
func isGenericType(contentType string) bool {
	switch contentType {
	case "", "application/octet-stream", "binary/octet-stream":
		return true
	}
	return false
}
