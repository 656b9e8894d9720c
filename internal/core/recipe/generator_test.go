package recipe

import (
	"context"
	"errors"
	"testing"

	"pantrypal/internal/core/ai"
	"pantrypal/internal/infrastructure/config"
	"pantrypal/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTextService 回放固定內容並記錄收到的請求
type fakeTextService struct {
	requests []ai.TextRequest
	content  string
	err      error
}

func (f *fakeTextService) ProcessRequest(_ context.Context, req ai.TextRequest) (*ai.TextResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &ai.TextResponse{Content: f.content}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		GenAI: config.GenAIConfig{
			APIKey:              "test-key",
			Model:               "gemini-1.5-flash",
			MaxTokens:           8192,
			Temperature:         0.8,
			SurpriseTemperature: 0.95,
		},
	}
}

const validRecipeJSON = `{
	"name": "Tomato Pasta",
	"ingredients": [{"item": "Tomato", "amount": "2"}, "Spaghetti"],
	"instructions": ["Boil pasta", "Add sauce"],
	"nutrition": {"Calories": "450 kcal"},
	"shopping_list": ["Parmesan"]
}`

func TestGenerateParsesRecipe(t *testing.T) {
	svc := &fakeTextService{content: validRecipeJSON}
	gen := NewGenerator(svc, testConfig())

	rec, err := gen.Generate(context.Background(), []string{"Tomato", "Spaghetti"}, nil, 2, false)
	require.NoError(t, err)

	assert.Equal(t, "Tomato Pasta", rec.Name)
	require.Len(t, rec.Ingredients, 2)
	assert.Equal(t, "Tomato", rec.Ingredients[0].Display())
	assert.Equal(t, "Spaghetti", rec.Ingredients[1].Display())
	assert.Equal(t, []string{"Boil pasta", "Add sauce"}, rec.Instructions)
	assert.Equal(t, []string{"Parmesan"}, rec.ShoppingList)
}

func TestGeneratePromptContents(t *testing.T) {
	svc := &fakeTextService{content: validRecipeJSON}
	gen := NewGenerator(svc, testConfig())

	_, err := gen.Generate(context.Background(), []string{"Egg", "Milk"}, []string{"vegetarian"}, 4, false)
	require.NoError(t, err)

	require.Len(t, svc.requests, 1)
	req := svc.requests[0]
	assert.Contains(t, req.Prompt, "Ingredients: Egg, Milk")
	assert.Contains(t, req.Prompt, "Restrictions: vegetarian")
	assert.Contains(t, req.Prompt, "Servings: 4")
	assert.InDelta(t, 0.8, req.Temperature, 1e-9)
	assert.True(t, req.JSONOutput)
}

func TestGenerateEmptyRestrictionsBecomeNone(t *testing.T) {
	svc := &fakeTextService{content: validRecipeJSON}
	gen := NewGenerator(svc, testConfig())

	_, err := gen.Generate(context.Background(), []string{"Egg"}, nil, 2, false)
	require.NoError(t, err)
	assert.Contains(t, svc.requests[0].Prompt, "Restrictions: None")
}

func TestGenerateSurpriseRaisesTemperature(t *testing.T) {
	svc := &fakeTextService{content: validRecipeJSON}
	gen := NewGenerator(svc, testConfig())

	_, err := gen.Generate(context.Background(), nil, nil, 2, true)
	require.NoError(t, err)

	require.Len(t, svc.requests, 1)
	req := svc.requests[0]
	assert.InDelta(t, 0.95, req.Temperature, 1e-9)
	assert.Contains(t, req.Prompt, "Novelty seed:")
	assert.Contains(t, req.Prompt, "cuisine")
}

func TestGenerateTrimsProseAroundJSON(t *testing.T) {
	svc := &fakeTextService{content: "Sure, here is your recipe:\n" + validRecipeJSON + "\nEnjoy!"}
	gen := NewGenerator(svc, testConfig())

	rec, err := gen.Generate(context.Background(), []string{"Tomato"}, nil, 2, false)
	require.NoError(t, err)
	assert.Equal(t, "Tomato Pasta", rec.Name)
}

func TestGenerateRecoversUnquotedKeys(t *testing.T) {
	svc := &fakeTextService{content: `{name: "Quick Soup", instructions: ["Simmer"]}`}
	gen := NewGenerator(svc, testConfig())

	rec, err := gen.Generate(context.Background(), []string{"Carrot"}, nil, 2, false)
	require.NoError(t, err)
	assert.Equal(t, "Quick Soup", rec.Name)
}

func TestGenerateInvalidJSONIsUpstreamParseError(t *testing.T) {
	svc := &fakeTextService{content: "I cannot produce a recipe today."}
	gen := NewGenerator(svc, testConfig())

	_, err := gen.Generate(context.Background(), []string{"Tomato"}, nil, 2, false)
	require.Error(t, err)
	assert.True(t, common.IsUpstreamParseError(err))
}

func TestGenerateEmptyResponseIsUpstreamParseError(t *testing.T) {
	svc := &fakeTextService{content: ""}
	gen := NewGenerator(svc, testConfig())

	_, err := gen.Generate(context.Background(), []string{"Tomato"}, nil, 2, false)
	require.Error(t, err)
	assert.True(t, common.IsUpstreamParseError(err))
}

func TestGenerateServiceErrorPropagates(t *testing.T) {
	svc := &fakeTextService{err: errors.New("boom")}
	gen := NewGenerator(svc, testConfig())

	_, err := gen.Generate(context.Background(), []string{"Tomato"}, nil, 2, false)
	require.Error(t, err)
	assert.False(t, common.IsUpstreamParseError(err))
}

func TestGenerateBackfillsMissingFields(t *testing.T) {
	svc := &fakeTextService{content: `{}`}
	gen := NewGenerator(svc, testConfig())

	rec, err := gen.Generate(context.Background(), []string{"Tomato"}, nil, 2, false)
	require.NoError(t, err)

	assert.Equal(t, "Untitled Dish", rec.Name)
	assert.NotNil(t, rec.Ingredients)
	assert.NotNil(t, rec.Instructions)
	assert.NotNil(t, rec.Nutrition)
	assert.NotNil(t, rec.ShoppingList)
}
