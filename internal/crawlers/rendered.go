package crawlers

import (
	"sort"

	"github.com/RecoveryAshes/ImgFIndcrack/internal/models"
)

// DefaultMinVisibleArea 50x50像素
const DefaultMinVisibleArea = 2500

// renderedSnapshot 渲染后DOM的只读快照
type renderedSnapshot struct {
	OG     string          `json:"og"`
	Images []renderedImage `json:"images"`
}

type renderedImage struct {
	Src    string  `json:"src"`
	Srcset string  `json:"srcset"`
	Area   float64 `json:"area"`
}

type rankedCandidate struct {
	URL    string
	Source models.Source
}

// rankRendered og图片优先,其余按渲染面积从大到小
// 面积低于minArea的元素被丢弃
func rankRendered(snap *renderedSnapshot, minArea float64) []rankedCandidate {
	if snap == nil {
		return nil
	}
	if minArea <= 0 {
		minArea = DefaultMinVisibleArea
	}

	var out []rankedCandidate
	if snap.OG != "" {
		out = append(out, rankedCandidate{snap.OG, models.SourceRenderedOG})
	}

	visible := make([]renderedImage, 0, len(snap.Images))
	for _, img := range snap.Images {
		if img.Area >= minArea {
			visible = append(visible, img)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].Area > visible[j].Area
	})

	for _, img := range visible {
		if img.Src != "" {
			out = append(out, rankedCandidate{img.Src, models.SourceRenderedImg})
		}
		if last := lastSrcsetCandidate(img.Srcset); last != "" {
			out = append(out, rankedCandidate{last, models.SourceRenderedSrcset})
		}
	}
	return out
}
