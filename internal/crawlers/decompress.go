package crawlers

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/RecoveryAshes/ImgFIndcrack/internal/utils"
	"github.com/andybalholm/brotli"
)

// maxDecodedBody 解压后的页面上限
const maxDecodedBody = 64 << 20

type decoderFunc func(io.Reader) (io.ReadCloser, error)

var decoders = map[string]decoderFunc{
	"gzip":   newGzipReader,
	"x-gzip": newGzipReader,
	"deflate": func(r io.Reader) (io.ReadCloser, error) {
		return flate.NewReader(r), nil
	},
	"br": func(r io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(brotli.NewReader(r)), nil
	},
}

func newGzipReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

// decompressResponse 按Content-Encoding解压响应体
// 多个编码按应用顺序的逆序解开,未知编码原样返回
func decompressResponse(contentEncoding string, body []byte) ([]byte, error) {
	codings := strings.Split(contentEncoding, ",")
	for i := len(codings) - 1; i >= 0; i-- {
		coding := strings.ToLower(strings.TrimSpace(codings[i]))
		if coding == "" || coding == "identity" {
			continue
		}
		// 传输层可能已经解压,头部却保留了原值
		if (coding == "gzip" || coding == "x-gzip") && !hasGzipMagic(body) {
			continue
		}

		decoder, ok := decoders[coding]
		if !ok {
			utils.Warnf("未知的Content-Encoding: %s", coding)
			return body, nil
		}
		decoded, err := decodeWith(decoder, body)
		if err != nil {
			return nil, fmt.Errorf("%s解压失败: %w", coding, err)
		}
		body = decoded
	}
	return body, nil
}

func decodeWith(decoder decoderFunc, body []byte) ([]byte, error) {
	rc, err := decoder(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	out, err := io.ReadAll(io.LimitReader(rc, maxDecodedBody+1))
	if err != nil {
		return nil, err
	}
	if len(out) > maxDecodedBody {
		return nil, fmt.Errorf("解压后超过%d字节", maxDecodedBody)
	}
	return out, nil
}

func hasGzipMagic(body []byte) bool {
	return len(body) >= 2 && body[0] == 0x1f && body[1] == 0x8b
}

// decodeBody 解压失败时退回原始内容
func decodeBody(contentEncoding string, body []byte, source string) []byte {
	if contentEncoding == "" {
		return body
	}
	decompressed, err := decompressResponse(contentEncoding, body)
	if err != nil {
		utils.Warnf("解压响应失败 [%s] (编码=%s): %v", utils.RedactURL(source), contentEncoding, err)
		return body
	}
	if len(decompressed) != len(body) {
		utils.Debugf("解压响应 [%s]: %d → %d bytes", utils.RedactURL(source), len(body), len(decompressed))
	}
	return decompressed
}
