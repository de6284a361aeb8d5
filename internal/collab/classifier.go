package collab

import (
	"context"
	"strings"

	"github.com/RecoveryAshes/ImgFIndcrack/internal/utils"
)

// Category 服装类别
type Category string

const (
	CategoryTop       Category = "top"
	CategoryBottom    Category = "bottom"
	CategoryDress     Category = "dress"
	CategoryOuterwear Category = "outerwear"
	CategoryShoes     Category = "shoes"
	CategoryAccessory Category = "accessory"

	// DefaultCategory 无法分类时的类别
	DefaultCategory = CategoryTop
)

// Categories 全部有效类别
var Categories = []Category{
	CategoryTop,
	CategoryBottom,
	CategoryDress,
	CategoryOuterwear,
	CategoryShoes,
	CategoryAccessory,
}

// categoryAliases 常见自由标签到类别的映射
var categoryAliases = map[string]Category{
	"shirt": CategoryTop, "t-shirt": CategoryTop, "tshirt": CategoryTop, "blouse": CategoryTop,
	"sweater": CategoryTop, "hoodie": CategoryTop, "tank": CategoryTop, "tops": CategoryTop,
	"pants": CategoryBottom, "trousers": CategoryBottom, "jeans": CategoryBottom, "shorts": CategoryBottom,
	"skirt": CategoryBottom, "leggings": CategoryBottom, "bottoms": CategoryBottom,
	"dresses": CategoryDress, "gown": CategoryDress, "jumpsuit": CategoryDress,
	"jacket": CategoryOuterwear, "coat": CategoryOuterwear, "blazer": CategoryOuterwear, "parka": CategoryOuterwear,
	"shoe": CategoryShoes, "sneakers": CategoryShoes, "boots": CategoryShoes, "sandals": CategoryShoes, "heels": CategoryShoes,
	"accessories": CategoryAccessory, "bag": CategoryAccessory, "hat": CategoryAccessory, "belt": CategoryAccessory,
	"scarf": CategoryAccessory, "jewelry": CategoryAccessory, "sunglasses": CategoryAccessory,
}

// Valid 是否为有效类别
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory 把分类器返回的自由标签映射为类别
// 无法识别时返回DefaultCategory和false
func ParseCategory(label string) (Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(label))
	normalized = strings.Trim(normalized, ".!\"'")

	if c := Category(normalized); c.Valid() {
		return c, true
	}
	if c, ok := categoryAliases[normalized]; ok {
		return c, true
	}
	return DefaultCategory, false
}

// Classification 分类结果
type Classification struct {
	Category    Category `json:"category"`
	Description string   `json:"description"`
}

// Classifier 图片分类器
// imageBase64为FetchedImage的payload
type Classifier interface {
	Classify(ctx context.Context, imageBase64 string) (Classification, error)
}

// ClassifyOrDefault 调用分类器,分类器缺失、失败或返回无效类别时降级为默认类别
func ClassifyOrDefault(ctx context.Context, classifier Classifier, imageBase64 string) Classification {
	if classifier == nil {
		return Classification{Category: DefaultCategory}
	}

	result, err := classifier.Classify(ctx, imageBase64)
	if err != nil {
		utils.Warnf("图片分类失败,使用默认类别%s: %v", DefaultCategory, err)
		return Classification{Category: DefaultCategory}
	}

	category, ok := ParseCategory(string(result.Category))
	if !ok {
		utils.Debugf("未知类别 %q,使用默认类别%s", result.Category, DefaultCategory)
	}
	result.Category = category
	return result
}
