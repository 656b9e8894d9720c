package history

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// leadingNumber 營養值開頭的數字 token，例如 "320 kcal" 的 320
var leadingNumber = regexp.MustCompile(`^\s*([\d.]+)`)

// NutritionSample 一筆可量化的營養數據
type NutritionSample struct {
	Recipe string  `json:"recipe"`
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
}

// NutritionSamples 從歷史紀錄萃取可量化的營養數據。
// 值開頭若抓不出數字 token 就直接略過，不視為錯誤。
func NutritionSamples(entries []Entry) []NutritionSample {
	var samples []NutritionSample
	for _, entry := range entries {
		name := entry.Recipe.Name
		if name == "" {
			name = "Unknown"
		}
		metrics := make([]string, 0, len(entry.Recipe.Nutrition))
		for metric := range entry.Recipe.Nutrition {
			metrics = append(metrics, metric)
		}
		sort.Strings(metrics)
		for _, metric := range metrics {
			m := leadingNumber.FindStringSubmatch(entry.Recipe.Nutrition[metric])
			if m == nil {
				continue
			}
			value, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			samples = append(samples, NutritionSample{
				Recipe: name,
				Metric: metric,
				Value:  value,
			})
		}
	}
	return samples
}

// DailyCount 單日的食譜生成數量
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// CountsByDay 統計每天生成的食譜數。時間戳解析失敗的紀錄略過。
func CountsByDay(entries []Entry) []DailyCount {
	counts := make(map[string]int)
	for _, entry := range entries {
		ts, err := time.Parse(time.RFC3339, entry.Timestamp)
		if err != nil {
			continue
		}
		counts[ts.Format("2006-01-02")]++
	}

	out := make([]DailyCount, 0, len(counts))
	for date, count := range counts {
		out = append(out, DailyCount{Date: date, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// IngredientCount 食材的使用次數
type IngredientCount struct {
	Ingredient string `json:"ingredient"`
	Count      int    `json:"count"`
}

// TopIngredients 統計最常用的前 n 個食材（trim 後轉小寫比對）
func TopIngredients(entries []Entry, n int) []IngredientCount {
	counts := make(map[string]int)
	for _, entry := range entries {
		for _, ing := range entry.DisplayIngredients() {
			key := strings.ToLower(strings.TrimSpace(ing))
			if key == "" {
				continue
			}
			counts[key]++
		}
	}

	out := make([]IngredientCount, 0, len(counts))
	for ing, count := range counts {
		out = append(out, IngredientCount{Ingredient: ing, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Ingredient < out[j].Ingredient
	})

	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
