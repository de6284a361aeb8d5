package crawlers

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/ImgFIndcrack/internal/imgurl"
	"github.com/RecoveryAshes/ImgFIndcrack/internal/models"
	"github.com/RecoveryAshes/ImgFIndcrack/internal/utils"
)

// LazyAttributes 懒加载属性,按扫描顺序排列
var LazyAttributes = []string{
	"data-src",
	"data-lazy-src",
	"data-original",
	"data-zoom-image",
	"data-large-image",
	"data-image",
	"data-full-size-image-url",
}

// ProductPathTokens 内联脚本中的URL需包含其一
var ProductPathTokens = []string{"product", "media", "image", "photo", "catalog", "asset"}

const (
	ogSelector = `meta[property="og:image"], meta[property="og:image:url"], ` +
		`meta[property="og:image:secure_url"], meta[name="og:image"]`
	twitterSelector = `meta[name="twitter:image"], meta[name="twitter:image:src"], ` +
		`meta[property="twitter:image"]`
	jsonLDSelector = `script[type="application/ld+json"]`
	srcsetSelector = `img[srcset], img[data-srcset], source[srcset], source[data-srcset]`
)

var (
	imageExtPattern = regexp.MustCompile(`(?i)\.(?:jpe?g|png|webp|gif|avif)\b`)

	// 允许JSON转义的斜杠
	scriptURLPattern = regexp.MustCompile(
		`https?:(?:\\?/|\\u002[fF]){2}[^\s"'<>()]+?\.(?:jpe?g|png|webp|gif|avif)\b(?:\?[^\s"'<>()\\]*)?`)
)

// htmlScanner 单个信号源
type htmlScanner struct {
	name   string
	source models.Source
	scan   func(doc *goquery.Document, offer func(raw string))
}

// staticScanners 按优先级排列的信号源
var staticScanners = []htmlScanner{
	{"og", models.SourceOpenGraph, scanMetaContent(ogSelector)},
	{"twitter", models.SourceTwitter, scanMetaContent(twitterSelector)},
	{"jsonld", models.SourceJSONLD, scanJSONLD},
	{"lazy", models.SourceLazyAttr, scanLazyAttributes},
	{"img", models.SourceImgTag, scanImgTags},
	{"srcset", models.SourceSrcset, scanSrcsets},
	{"script", models.SourceInlineScript, scanInlineScripts},
}

// scanHTML 依次运行全部信号源,单个信号源失败不影响其他信号源
func scanHTML(body []byte, base *url.URL, set *models.ImageSet) imgurl.PipelineStats {
	pipeline := imgurl.NewPipeline(base, set)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		utils.Warnf("解析HTML失败: %v", err)
		return pipeline.Stats()
	}

	for _, scanner := range staticScanners {
		runScanner(scanner, doc, pipeline)
	}

	return pipeline.Stats()
}

// runScanner 带panic保护运行单个信号源
func runScanner(scanner htmlScanner, doc *goquery.Document, pipeline *imgurl.Pipeline) {
	defer func() {
		if r := recover(); r != nil {
			utils.Warnf("信号源 %s 扫描异常,已跳过: %v", scanner.name, r)
		}
	}()

	before := pipeline.Stats().Added
	scanner.scan(doc, func(raw string) {
		pipeline.Offer(raw, scanner.source)
	})
	if added := pipeline.Stats().Added - before; added > 0 {
		utils.Debugf("信号源 %s: 新增 %d 个候选", scanner.name, added)
	}
}

// scanMetaContent meta标签的content属性,属性顺序无关
func scanMetaContent(selector string) func(*goquery.Document, func(string)) {
	return func(doc *goquery.Document, offer func(string)) {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if content, ok := s.Attr("content"); ok {
				offer(content)
			}
		})
	}
}

func scanJSONLD(doc *goquery.Document, offer func(string)) {
	doc.Find(jsonLDSelector).Each(func(i int, s *goquery.Selection) {
		images, err := extractJSONLDImages([]byte(s.Text()))
		if err != nil {
			utils.Debugf("跳过第%d个JSON-LD块: %v", i+1, err)
			return
		}
		for _, img := range images {
			offer(img)
		}
	})
}

func scanLazyAttributes(doc *goquery.Document, offer func(string)) {
	selector := make([]string, len(LazyAttributes))
	for i, attr := range LazyAttributes {
		selector[i] = fmt.Sprintf("[%s]", attr)
	}

	doc.Find(strings.Join(selector, ", ")).Each(func(_ int, s *goquery.Selection) {
		for _, attr := range LazyAttributes {
			if value, ok := s.Attr(attr); ok && hasImageExtension(value) {
				offer(value)
			}
		}
	})
}

func scanImgTags(doc *goquery.Document, offer func(string)) {
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if hasImageExtension(src) || isDataImage(src) {
			offer(src)
		}
	})
}

func scanSrcsets(doc *goquery.Document, offer func(string)) {
	doc.Find(srcsetSelector).Each(func(_ int, s *goquery.Selection) {
		for _, attr := range []string{"srcset", "data-srcset"} {
			if value, ok := s.Attr(attr); ok {
				if last := lastSrcsetCandidate(value); last != "" {
					offer(last)
				}
			}
		}
	})
}

func scanInlineScripts(doc *goquery.Document, offer func(string)) {
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, external := s.Attr("src"); external {
			return
		}
		for _, match := range scriptURLPattern.FindAllString(s.Text(), -1) {
			cleaned := imgurl.CleanRaw(match)
			if hasProductToken(cleaned) {
				offer(cleaned)
			}
		}
	})
}

func hasImageExtension(u string) bool {
	return imageExtPattern.MatchString(u)
}

func isDataImage(u string) bool {
	return len(u) > 11 && strings.EqualFold(u[:11], "data:image/")
}

func hasProductToken(u string) bool {
	lower := strings.ToLower(u)
	for _, token := range ProductPathTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}
