package crawlers

import (
	"encoding/json"
	"fmt"
	"strings"
)

// maxJSONLDDepth 结构化数据遍历深度上限
const maxJSONLDDepth = 16

// extractJSONLDImages 从一个JSON-LD块中提取商品图片
// 支持Product、ProductGroup、ItemList以及@graph嵌套,顺序与文档一致
func extractJSONLDImages(raw []byte) ([]string, error) {
	var root interface{}
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("JSON-LD解析失败: %w", err)
	}

	var images []string
	walkJSONLD(root, 0, &images)
	return images, nil
}

func walkJSONLD(node interface{}, depth int, images *[]string) {
	if depth > maxJSONLDDepth {
		return
	}

	switch v := node.(type) {
	case []interface{}:
		for _, item := range v {
			walkJSONLD(item, depth+1, images)
		}

	case map[string]interface{}:
		if graph, ok := v["@graph"]; ok {
			walkJSONLD(graph, depth+1, images)
		}

		switch {
		case hasType(v, "Product"), hasType(v, "ProductGroup"):
			*images = append(*images, imageValues(v["image"])...)
			if variants, ok := v["hasVariant"]; ok {
				walkJSONLD(variants, depth+1, images)
			}
		case hasType(v, "ItemList"):
			walkItemList(v["itemListElement"], depth+1, images)
		}

		if entity, ok := v["mainEntity"]; ok {
			walkJSONLD(entity, depth+1, images)
		}
	}
}

// walkItemList ItemList的元素可能是ListItem包装,也可能直接是商品
func walkItemList(elements interface{}, depth int, images *[]string) {
	list, ok := elements.([]interface{})
	if !ok {
		if elements == nil {
			return
		}
		list = []interface{}{elements}
	}

	for _, element := range list {
		item, ok := element.(map[string]interface{})
		if !ok {
			continue
		}
		if inner, ok := item["item"]; ok {
			item, ok = inner.(map[string]interface{})
			if !ok {
				continue
			}
		}
		if typeOf(item) == nil || hasType(item, "ListItem") {
			*images = append(*images, imageValues(item["image"])...)
			continue
		}
		walkJSONLD(item, depth+1, images)
	}
}

// imageValues 图片字段可能是字符串、数组或带url的对象
func imageValues(field interface{}) []string {
	switch v := field.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	case []interface{}:
		var out []string
		for _, item := range v {
			out = append(out, imageValues(item)...)
		}
		return out
	case map[string]interface{}:
		for _, key := range []string{"url", "contentUrl"} {
			if found := imageValues(v[key]); len(found) > 0 {
				return found
			}
		}
	}
	return nil
}

func typeOf(node map[string]interface{}) []string {
	switch t := node["@type"].(type) {
	case string:
		return []string{t}
	case []interface{}:
		var out []string
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func hasType(node map[string]interface{}, want string) bool {
	for _, t := range typeOf(node) {
		// 兼容 "schema:Product" 与完整IRI
		if t == want || strings.HasSuffix(t, ":"+want) || strings.HasSuffix(t, "/"+want) {
			return true
		}
	}
	return false
}
