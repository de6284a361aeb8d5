package utils

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RecoveryAshes/ImgFIndcrack/internal/models"
)

func TestReporter_GenerateReport(t *testing.T) {
	dir := t.TempDir()
	report := &models.BatchReport{
		BatchID:      "batch-1",
		TotalURLs:    2,
		SuccessCount: 1,
		FailCount:    1,
		TotalImages:  3,
		Results: []models.BatchEntry{
			{PageURL: "https://shop.example.com/a", Images: []string{"https://cdn.example.com/1.jpg"}, TotalFound: 3},
			{PageURL: "https://shop.example.com/b", Images: []string{}, Error: "context canceled"},
		},
	}

	path, err := NewReporter(dir).GenerateReport(report)
	if err != nil {
		t.Fatalf("GenerateReport() 错误: %v", err)
	}
	if filepath.Base(path) != "batch_report_batch-1.json" {
		t.Errorf("报告文件名 = %s", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取报告失败: %v", err)
	}
	var loaded models.BatchReport
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("解析报告失败: %v", err)
	}
	if loaded.TotalImages != 3 || len(loaded.Results) != 2 {
		t.Errorf("报告内容不一致: %+v", loaded)
	}

	failed, err := os.ReadFile(filepath.Join(dir, "reports", "failed_urls_batch-1.txt"))
	if err != nil {
		t.Fatalf("读取失败URL列表失败: %v", err)
	}
	if strings.TrimSpace(string(failed)) != "https://shop.example.com/b" {
		t.Errorf("失败URL列表 = %q", failed)
	}
}

func TestNewProgressBar(t *testing.T) {
	bar := NewProgressBar(3, "提取中", io.Discard)
	for i := 0; i < 3; i++ {
		if err := bar.Add(1); err != nil {
			t.Fatalf("Add() 错误: %v", err)
		}
	}
	if !bar.IsFinished() {
		t.Error("进度条应已完成")
	}
}
