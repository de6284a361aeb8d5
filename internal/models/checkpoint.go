package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// BatchCheckpoint 批量提取检查点
type BatchCheckpoint struct {
	BatchID    string `json:"batch_id"`
	SourceFile string `json:"source_file"` // URL列表文件

	Completed []string `json:"completed"` // 已完成的页面URL
	Failed    []string `json:"failed"`    // 失败的页面URL

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	done map[string]struct{}
}

// NewBatchCheckpoint 创建检查点
func NewBatchCheckpoint(sourceFile string) *BatchCheckpoint {
	now := time.Now()
	return &BatchCheckpoint{
		BatchID:    newRunID(),
		SourceFile: sourceFile,
		Completed:  make([]string, 0),
		Failed:     make([]string, 0),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// CheckpointFilename 根据URL列表文件名生成检查点文件名
func CheckpointFilename(sourceFile string) string {
	base := filepath.Base(sourceFile)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." {
		base = "batch"
	}
	return fmt.Sprintf("checkpoint_%s.json", base)
}

// IsDone 页面是否已成功处理
func (c *BatchCheckpoint) IsDone(pageURL string) bool {
	if c.done == nil {
		c.done = make(map[string]struct{}, len(c.Completed))
		for _, u := range c.Completed {
			c.done[u] = struct{}{}
		}
	}
	_, ok := c.done[pageURL]
	return ok
}

// MarkDone 记录成功
func (c *BatchCheckpoint) MarkDone(pageURL string) {
	if c.IsDone(pageURL) {
		return
	}
	c.done[pageURL] = struct{}{}
	c.Completed = append(c.Completed, pageURL)
	c.UpdatedAt = time.Now()
}

// MarkFailed 记录失败,失败的页面在恢复时会重试
func (c *BatchCheckpoint) MarkFailed(pageURL string) {
	c.Failed = append(c.Failed, pageURL)
	c.UpdatedAt = time.Now()
}

// ToJSON 序列化为JSON
func (c *BatchCheckpoint) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// FromJSON 从JSON反序列化
func (c *BatchCheckpoint) FromJSON(data []byte) error {
	c.done = nil
	return json.Unmarshal(data, c)
}

// SaveToFile 保存到文件
func (c *BatchCheckpoint) SaveToFile(path string) error {
	data, err := c.ToJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadCheckpointFromFile 从文件加载
func LoadCheckpointFromFile(path string) (*BatchCheckpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cp BatchCheckpoint
	if err := cp.FromJSON(data); err != nil {
		return nil, err
	}

	return &cp, nil
}
