package utils

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/RecoveryAshes/ImgFIndcrack/internal/models"
)

func TestHeaderValidator_ValidateName(t *testing.T) {
	validator := NewHeaderValidator()

	tests := []struct {
		name        string
		headerName  string
		expectError bool
	}{
		{"合法名称-字母", "User-Agent", false},
		{"合法名称-数字", "X-Request-ID-123", false},
		{"非法名称-空格", "User Agent", true},
		{"非法名称-下划线", "User_Agent", true},
		{"非法名称-特殊字符", "User@Agent", true},
		{"非法名称-空字符串", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateName(tt.headerName)
			if (err != nil) != tt.expectError {
				t.Errorf("期望错误=%v, 实际错误=%v", tt.expectError, err)
			}
		})
	}
}

func TestHeaderValidator_ValidateValue(t *testing.T) {
	validator := NewHeaderValidator()

	tests := []struct {
		name        string
		headerValue string
		expectError bool
	}{
		{"合法值-ASCII", "Mozilla/5.0", false},
		{"合法值-空字符串", "", false},
		{"合法值-引号", `value "with" quotes`, false},
		{"合法值-长字符串", strings.Repeat(" ", 8000), false},
		{"非法值-超长", strings.Repeat("a", MaxHeaderValueLength+1), true},
		{"非法值-控制字符", "value\x00with\x01null", true},
		{"非法值-中文", "测试中文", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateValue("X-Test", tt.headerValue)
			if (err != nil) != tt.expectError {
				t.Errorf("期望错误=%v, 实际错误=%v", tt.expectError, err)
			}
		})
	}
}

func TestHeaderValidator_ValidateHeader(t *testing.T) {
	validator := NewHeaderValidator()

	tests := []struct {
		name        string
		headerName  string
		headerValue string
		expectError bool
	}{
		{"合法头部", "User-Agent", "Mozilla/5.0", false},
		{"禁止头部-Host", "Host", "shop.example.com", true},
		{"禁止头部-不区分大小写", "content-length", "123", true},
		{"非法名称", "User Agent", "value", true},
		{"非法值", "Referer", "value\x00bad", true},
		{"支持的编码", "Accept-Encoding", "gzip, deflate, br", false},
		{"带权重的编码", "Accept-Encoding", "br;q=1.0, gzip;q=0.8, *;q=0.1", false},
		{"不支持的编码", "Accept-Encoding", "gzip, zstd", true},
		{"合法Referer", "Referer", "https://shop.example.com/item", false},
		{"相对Referer", "referer", "/item/1", true},
		{"空User-Agent", "User-Agent", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateHeader(tt.headerName, tt.headerValue)
			if (err != nil) != tt.expectError {
				t.Errorf("期望错误=%v, 实际错误=%v", tt.expectError, err)
			}
		})
	}
}

func TestHeaderValidator_Validate(t *testing.T) {
	validator := NewHeaderValidator()

	if err := validator.Validate(http.Header{
		"User-Agent": []string{"Mozilla/5.0"},
		"Cookie":     []string{"session=abc"},
	}); err != nil {
		t.Errorf("期望无错误, 实际错误=%v", err)
	}

	err := validator.Validate(http.Header{"Host": []string{"shop.example.com"}})
	var ve *models.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("期望ValidationError, 实际 %v", err)
	}
	if ve.Suggestion == "" {
		t.Error("禁止头部应给出修复建议")
	}
}
