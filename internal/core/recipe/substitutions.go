package recipe

import (
	"context"
	"fmt"
	"strings"

	"pantrypal/internal/core/ai"
	"pantrypal/internal/pkg/common"

	"go.uber.org/zap"
)

const substitutionSystemPrompt = `You are a culinary expert. ` +
	`Given a list of missing ingredients, output _ONLY_ a JSON object ` +
	`where each key is the missing ingredient (string) and its value is an ` +
	`array of exactly two substitute ingredient names (strings). Example:
{ "Spaghetti": ["Linguine","Fettuccine"], "Tomato": ["Cherry tomatoes","Crushed tomatoes"] }
Do not wrap it in any other structure or text.`

// Substitutions 為缺少的食材查詢替代品。
// 替代建議不在關鍵路徑上：模型輸出壞掉時先嘗試從雜訊中撈出第一個
// JSON 物件，撈不到就回傳空映射，絕不回傳錯誤。
func (g *Generator) Substitutions(ctx context.Context, missing []string) map[string][]string {
	if len(missing) == 0 {
		return map[string][]string{}
	}

	prompt := fmt.Sprintf("Missing ingredients: %s.\nOutput _ONLY_ the JSON mapping.",
		strings.Join(missing, ", "))

	resp, err := g.ai.ProcessRequest(ctx, ai.TextRequest{
		System:      substitutionSystemPrompt,
		Prompt:      prompt,
		Temperature: 0.7,
		TopP:        0.9,
		TopK:        32,
		MaxTokens:   512,
		JSONOutput:  true,
	})
	if err != nil {
		common.LogWarn("Substitution lookup failed",
			zap.Error(err),
			zap.Int("missing_count", len(missing)),
		)
		return map[string][]string{}
	}

	subs, err := parseSubstitutions(resp.Content)
	if err != nil {
		common.LogWarn("Substitution response is not valid JSON",
			zap.Error(err),
			zap.Int("response_length", len(resp.Content)),
		)
		return map[string][]string{}
	}
	return subs
}

// parseSubstitutions 解析替代品映射，必要時從雜訊文字中搶救
func parseSubstitutions(content string) (map[string][]string, error) {
	content = strings.TrimSpace(content)

	var subs map[string][]string
	if err := common.ParseJSON(content, &subs); err != nil {
		salvaged, ok := common.ExtractJSONObject(content)
		if !ok {
			return nil, err
		}
		if err := common.ParseJSON(salvaged, &subs); err != nil {
			return nil, err
		}
	}

	// 每項最多保留兩個替代品
	for key, values := range subs {
		if len(values) > 2 {
			subs[key] = values[:2]
		}
	}
	return subs, nil
}
