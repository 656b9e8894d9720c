package recipe

import (
	"pantrypal/internal/pkg/common"
)

// NormalizeIngredients 將異質的食材清單正規化為顯示字串。
// 輸出長度與順序永遠和輸入一致，且每個元素都有非 nil 的字串表示。
func NormalizeIngredients(raw []common.RawIngredient) []string {
	out := make([]string, 0, len(raw))
	for _, ing := range raw {
		out = append(out, ing.Display())
	}
	return out
}
