package collab

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingReference   = errors.New("missing reference image")
	ErrMissingOverlays    = errors.New("at least one overlay image is required")
	ErrMissingInstruction = errors.New("instruction must not be blank")

	// ErrCompositeRefused 合成服务拒绝或无法生成图片
	ErrCompositeRefused = errors.New("composite refused")
)

// CompositeRequest 合成请求,图片均为data URI payload
type CompositeRequest struct {
	Reference   string   `json:"reference"`
	Overlays    []string `json:"overlays"`
	Instruction string   `json:"instruction"`
}

// Validate 参考图、至少一张叠加图和非空指令缺一不可
func (r CompositeRequest) Validate() error {
	if strings.TrimSpace(r.Reference) == "" {
		return ErrMissingReference
	}
	if len(r.Overlays) == 0 {
		return ErrMissingOverlays
	}
	for i, overlay := range r.Overlays {
		if strings.TrimSpace(overlay) == "" {
			return fmt.Errorf("%w: overlay %d is empty", ErrMissingOverlays, i)
		}
	}
	if strings.TrimSpace(r.Instruction) == "" {
		return ErrMissingInstruction
	}
	return nil
}

// CompositeResult 合成结果
type CompositeResult struct {
	Image string `json:"image"` // data URI
}

// RefusalError 合成服务给出的拒绝说明
type RefusalError struct {
	Explanation string
}

// Error 实现error接口
func (e *RefusalError) Error() string {
	if e.Explanation == "" {
		return ErrCompositeRefused.Error()
	}
	return fmt.Sprintf("%s: %s", ErrCompositeRefused, e.Explanation)
}

// Is 匹配ErrCompositeRefused
func (e *RefusalError) Is(target error) bool {
	return target == ErrCompositeRefused
}

// Refused 构造带说明的拒绝错误
func Refused(explanation string) error {
	return &RefusalError{Explanation: strings.TrimSpace(explanation)}
}

// Compositor 图片合成器
type Compositor interface {
	Compose(ctx context.Context, req CompositeRequest) (CompositeResult, error)
}

// Compose 校验请求后调用合成器,空结果视为拒绝
func Compose(ctx context.Context, compositor Compositor, req CompositeRequest) (CompositeResult, error) {
	if err := req.Validate(); err != nil {
		return CompositeResult{}, err
	}
	if compositor == nil {
		return CompositeResult{}, Refused("no compositor configured")
	}

	result, err := compositor.Compose(ctx, req)
	if err != nil {
		return CompositeResult{}, err
	}
	if strings.TrimSpace(result.Image) == "" {
		return CompositeResult{}, Refused("compositor returned no image")
	}
	return result, nil
}
