package recipe

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"pantrypal/internal/core/ai"
	"pantrypal/internal/infrastructure/config"
	"pantrypal/internal/pkg/common"

	"go.uber.org/zap"
)

// TextService 文字生成服務的最小介面，測試時可替換
type TextService interface {
	ProcessRequest(ctx context.Context, req ai.TextRequest) (*ai.TextResponse, error)
}

// Generator 食譜生成服務
type Generator struct {
	ai     TextService
	config *config.Config
	mu     sync.Mutex
	rng    *rand.Rand
}

// NewGenerator 創建新的食譜生成服務
func NewGenerator(aiService TextService, cfg *config.Config) *Generator {
	return &Generator{
		ai:     aiService,
		config: cfg,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

const recipeSystemPrompt = `You are a world-class chef AI. ` +
	`Given ingredients, dietary restrictions, and number of servings, ` +
	`respond with _ONLY_ JSON with these keys:
  - name: string
  - ingredients: array of {item: string, amount: string}
  - instructions: array of strings
  - nutrition: object mapping nutrient names to strings
  - shopping_list: array of strings`

// surpriseCuisines 無食材生成時隨機挑一個菜系提示，避免模型每次都端出同一道菜
var surpriseCuisines = []string{
	"Thai", "Moroccan", "Peruvian", "Sicilian", "Korean",
	"Ethiopian", "Basque", "Lebanese", "Oaxacan", "Vietnamese",
}

// Generate 根據食材、飲食限制與份數生成食譜。
// surprise 模式允許空食材清單，並提高取樣溫度、加入隨機菜系與時間種子。
func (g *Generator) Generate(ctx context.Context, ingredients, restrictions []string, servings int, surprise bool) (*common.Recipe, error) {
	temperature := g.config.GenAI.Temperature

	var sb strings.Builder
	fmt.Fprintf(&sb, "Ingredients: %s\n", strings.Join(ingredients, ", "))
	fmt.Fprintf(&sb, "Restrictions: %s\n", common.JoinOrNone(restrictions))
	fmt.Fprintf(&sb, "Servings: %d\n\n", servings)

	if surprise {
		temperature = g.config.GenAI.SurpriseTemperature
		g.mu.Lock()
		cuisine := surpriseCuisines[g.rng.Intn(len(surpriseCuisines))]
		g.mu.Unlock()
		fmt.Fprintf(&sb, "Invent the dish freely. Lean towards %s cuisine and avoid obvious choices. Novelty seed: %d.\n\n",
			cuisine, time.Now().UnixNano())
	}

	sb.WriteString("Output _ONLY_ the JSON object.")

	resp, err := g.ai.ProcessRequest(ctx, ai.TextRequest{
		System:      recipeSystemPrompt,
		Prompt:      sb.String(),
		Temperature: temperature,
		TopP:        0.95,
		TopK:        64,
		MaxTokens:   g.config.GenAI.MaxTokens,
		JSONOutput:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("AI service error: %w", err)
	}
	if resp == nil || resp.Content == "" {
		return nil, common.NewUpstreamParseError("empty AI response", nil)
	}

	content := strings.TrimSpace(resp.Content)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start != -1 && end != -1 && end > start {
		content = content[start : end+1]
	}

	common.LogDebug("AI recipe response",
		zap.Int("ai_response_length", len(content)),
		zap.Bool("cache_hit", resp.CacheHit),
	)

	var result common.Recipe
	if err := common.ParseJSON(content, &result); err != nil {
		// 模型偶爾漏掉鍵的引號，補上後重試一次
		if retryErr := common.ParseJSON(common.QuoteJSONKeys(content), &result); retryErr != nil {
			return nil, common.NewUpstreamParseError("recipe response is not valid JSON", err)
		}
	}

	// 檢查並補充空值
	if result.Name == "" {
		result.Name = "Untitled Dish"
	}
	if result.Ingredients == nil {
		result.Ingredients = []common.RawIngredient{}
	}
	if result.Instructions == nil {
		result.Instructions = []string{}
	}
	if result.Nutrition == nil {
		result.Nutrition = map[string]string{}
	}
	if result.ShoppingList == nil {
		result.ShoppingList = []string{}
	}

	return &result, nil
}
