package common

import (
	"encoding/json"
	"strings"
)

// Ingredient 結構化食材：AI 回傳的 {item, amount} 形式
type Ingredient struct {
	Item   string `json:"item"`
	Amount string `json:"amount"`
}

// RawIngredient 食材的寬鬆表示。
// 模型回傳的 ingredients 陣列元素可能是純字串、{item, amount} 物件，
// 甚至其他任意值；這裡全部保留原始 JSON，交由 Display 決定顯示字串。
type RawIngredient struct {
	Text   string
	Record map[string]interface{}
	raw    json.RawMessage
}

// UnmarshalJSON 接受任何合法 JSON 值，不會失敗
func (r *RawIngredient) UnmarshalJSON(data []byte) error {
	r.raw = append(json.RawMessage(nil), data...)
	r.Text = ""
	r.Record = nil

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.Text = s
		return nil
	}

	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err == nil {
		r.Record = m
		return nil
	}

	// 數字、布林、陣列等其他值：保留原始 JSON 作為文字表示
	return nil
}

// MarshalJSON 原樣寫回
func (r RawIngredient) MarshalJSON() ([]byte, error) {
	if r.Record != nil {
		return json.Marshal(r.Record)
	}
	if r.Text != "" || len(r.raw) == 0 {
		return json.Marshal(r.Text)
	}
	return r.raw, nil
}

// Display 取得顯示字串。
// 結構化物件依 item → name → text 優先序取第一個非空字串；
// 找不到或值不是字串時退回整個物件的 JSON dump，確保不丟資料。
func (r RawIngredient) Display() string {
	if r.Record != nil {
		for _, key := range []string{"item", "name", "text"} {
			v, ok := r.Record[key]
			if !ok || v == nil || v == "" {
				continue
			}
			if s, ok := v.(string); ok {
				return s
			}
			break
		}
		if dump, err := json.Marshal(r.Record); err == nil {
			return string(dump)
		}
	}
	if r.Text != "" {
		return r.Text
	}
	if len(r.raw) > 0 {
		return string(r.raw)
	}
	return ""
}

// PlainIngredient 以純字串建立食材
func PlainIngredient(text string) RawIngredient {
	return RawIngredient{Text: text}
}

// PlainIngredients 將顯示字串清單轉回食材欄位
func PlainIngredients(items []string) []RawIngredient {
	out := make([]RawIngredient, 0, len(items))
	for _, item := range items {
		out = append(out, PlainIngredient(item))
	}
	return out
}

// Recipe AI 生成的食譜
type Recipe struct {
	Name         string            `json:"name"`
	Ingredients  []RawIngredient   `json:"ingredients"`
	Instructions []string          `json:"instructions"`
	Nutrition    map[string]string `json:"nutrition"`
	ShoppingList []string          `json:"shopping_list"`
}

// JoinOrNone 將字串清單轉為逗號分隔字串，空清單回傳 "None"（prompt 用）
func JoinOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}
