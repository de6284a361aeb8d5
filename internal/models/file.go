package models

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	// MaxImageSize 单张图片最大字节数 15MB
	MaxImageSize = 15 * 1024 * 1024
)

// contentTypeExtensions Content-Type到扩展名的映射
var contentTypeExtensions = map[string]string{
	"image/jpeg":    ".jpg",
	"image/jpg":     ".jpg",
	"image/png":     ".png",
	"image/webp":    ".webp",
	"image/gif":     ".gif",
	"image/avif":    ".avif",
	"image/bmp":     ".bmp",
	"image/tiff":    ".tiff",
	"image/svg+xml": ".svg",
}

// FetchedImage 单张图片的抓取结果
// 只为调用方选中的那一个候选生成
type FetchedImage struct {
	URL         string `json:"-"`
	Payload     string `json:"payload"`     // data:<type>;base64,<body>
	ContentType string `json:"contentType"` // 不含参数的MIME类型
	ByteSize    int64  `json:"byteSize"`

	// 尽力解析的尺寸,未知时为0
	Width  int `json:"-"`
	Height int `json:"-"`

	FetchedAt time.Time `json:"-"`
}

// NewFetchedImage 编码图片字节为自描述payload
func NewFetchedImage(sourceURL, contentType string, body []byte) *FetchedImage {
	return &FetchedImage{
		URL:         sourceURL,
		Payload:     "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(body),
		ContentType: contentType,
		ByteSize:    int64(len(body)),
		FetchedAt:   time.Now(),
	}
}

// Bytes 解码payload得到原始字节
func (f *FetchedImage) Bytes() ([]byte, error) {
	idx := strings.Index(f.Payload, ";base64,")
	if idx < 0 {
		return nil, fmt.Errorf("payload不是base64格式")
	}
	return base64.StdEncoding.DecodeString(f.Payload[idx+len(";base64,"):])
}

// Extension 根据Content-Type推断扩展名
func (f *FetchedImage) Extension() string {
	if ext, ok := contentTypeExtensions[f.ContentType]; ok {
		return ext
	}
	return ".img"
}

// ValidateSize 验证图片大小
func (f *FetchedImage) ValidateSize(max int64) error {
	if f.ByteSize <= 0 {
		return fmt.Errorf("图片大小必须大于0")
	}
	if max > 0 && f.ByteSize > max {
		return fmt.Errorf("图片大小超过限制: %d > %d", f.ByteSize, max)
	}
	return nil
}

// ToJSON 序列化为JSON
func (f *FetchedImage) ToJSON() ([]byte, error) {
	return json.Marshal(f)
}
