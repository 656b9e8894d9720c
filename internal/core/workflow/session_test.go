package workflow

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"pantrypal/internal/core/history"
	"pantrypal/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGenerator 回放固定食譜並記錄呼叫
type fakeGenerator struct {
	recipe       *common.Recipe
	err          error
	subs         map[string][]string
	generateArgs [][]string
	missingArgs  [][]string
	surpriseFlag []bool
}

func (f *fakeGenerator) Generate(_ context.Context, ingredients, _ []string, _ int, surprise bool) (*common.Recipe, error) {
	f.generateArgs = append(f.generateArgs, ingredients)
	f.surpriseFlag = append(f.surpriseFlag, surprise)
	if f.err != nil {
		return nil, f.err
	}
	rec := *f.recipe
	return &rec, nil
}

func (f *fakeGenerator) Substitutions(_ context.Context, missing []string) map[string][]string {
	f.missingArgs = append(f.missingArgs, missing)
	if f.subs == nil {
		return map[string][]string{}
	}
	return f.subs
}

// fakeImages 回放固定候選圖片清單
type fakeImages struct {
	urls    []string
	queries []string
}

func (f *fakeImages) FetchImages(_ context.Context, query string, _ int) []string {
	f.queries = append(f.queries, query)
	return f.urls
}

func pastaRecipe() *common.Recipe {
	return &common.Recipe{
		Name:         "Tomato Pasta",
		Ingredients:  common.PlainIngredients([]string{"Tomato", "Spaghetti", "Basil"}),
		Instructions: []string{"Boil pasta"},
		Nutrition:    map[string]string{"Calories": "450 kcal"},
		ShoppingList: []string{},
	}
}

func newTestSession(t *testing.T, gen Generator, images ImageFetcher) *Session {
	t.Helper()
	store := history.NewStore(filepath.Join(t.TempDir(), "history.json"))
	session, err := NewSession(gen, images, store, 5)
	require.NoError(t, err)
	return session
}

func TestGenerateEmptyIngredientsRejected(t *testing.T) {
	gen := &fakeGenerator{recipe: pastaRecipe()}
	session := newTestSession(t, gen, nil)

	_, err := session.Generate(context.Background(), nil, nil, 2)
	require.Error(t, err)
	assert.True(t, common.IsValidationError(err))

	// 驗證失敗前不得呼叫任何協作者
	assert.Empty(t, gen.generateArgs)
	assert.Equal(t, StateIdle, session.State())
}

func TestGenerateWithoutGeneratorIsConfigurationError(t *testing.T) {
	session := newTestSession(t, nil, nil)

	_, err := session.Generate(context.Background(), []string{"Tomato"}, nil, 2)
	require.Error(t, err)
	assert.True(t, common.IsConfigurationError(err))
	assert.Equal(t, StateIdle, session.State())
}

func TestGenerateStagesWithImageCandidates(t *testing.T) {
	gen := &fakeGenerator{recipe: pastaRecipe()}
	images := &fakeImages{urls: []string{"u1", "u2", "u3"}}
	session := newTestSession(t, gen, images)

	result, err := session.Generate(context.Background(), []string{"Tomato"}, nil, 2)
	require.NoError(t, err)

	assert.Equal(t, StateStaging, result.State)
	require.NotNil(t, result.Staging)
	assert.Nil(t, result.Entry)
	assert.Equal(t, []string{"u1", "u2", "u3"}, result.Staging.ImageOptions)
	assert.Equal(t, []string{"Tomato", "Spaghetti", "Basil"}, result.Staging.RecipeIngs)
	assert.Equal(t, []string{"Tomato Pasta"}, images.queries)

	// 暫存階段不寫入歷史
	assert.Empty(t, session.History())
}

func TestGenerateAutoFinalizesWithoutImages(t *testing.T) {
	gen := &fakeGenerator{recipe: pastaRecipe()}
	session := newTestSession(t, gen, nil)

	result, err := session.Generate(context.Background(), []string{"Tomato"}, nil, 2)
	require.NoError(t, err)

	assert.Equal(t, StateFinalized, result.State)
	assert.Nil(t, result.Staging)
	require.NotNil(t, result.Entry)
	assert.Empty(t, result.Entry.ImageURL)

	entries := session.History()
	require.Len(t, entries, 1)
	assert.Equal(t, result.Entry.ID, entries[0].ID)
}

func TestGenerateAutoFinalizesOnEmptySearchResults(t *testing.T) {
	gen := &fakeGenerator{recipe: pastaRecipe()}
	images := &fakeImages{urls: nil}
	session := newTestSession(t, gen, images)

	result, err := session.Generate(context.Background(), []string{"Tomato"}, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, StateFinalized, result.State)
	require.NotNil(t, result.Entry)
}

func TestConfirmImageFinalizes(t *testing.T) {
	gen := &fakeGenerator{recipe: pastaRecipe()}
	images := &fakeImages{urls: []string{"u1", "u2"}}
	session := newTestSession(t, gen, images)

	_, err := session.Generate(context.Background(), []string{"Tomato"}, nil, 2)
	require.NoError(t, err)

	entry, err := session.ConfirmImage(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "u2", entry.ImageURL)
	assert.Equal(t, StateFinalized, session.State())
	assert.Nil(t, session.StagedRecipe())

	current := session.Current()
	require.NotNil(t, current)
	assert.Equal(t, entry.ID, current.ID)
}

func TestConfirmImageWithoutStagingIsConflict(t *testing.T) {
	session := newTestSession(t, nil, nil)

	_, err := session.ConfirmImage(context.Background(), 0)
	require.Error(t, err)

	var customErr *common.CustomError
	require.True(t, errors.As(err, &customErr))
	assert.Equal(t, common.ErrCodeConflict, customErr.Code)
}

func TestConfirmImageChoiceOutOfRange(t *testing.T) {
	gen := &fakeGenerator{recipe: pastaRecipe()}
	images := &fakeImages{urls: []string{"u1"}}
	session := newTestSession(t, gen, images)

	_, err := session.Generate(context.Background(), []string{"Tomato"}, nil, 2)
	require.NoError(t, err)

	for _, choice := range []int{-1, 1, 99} {
		_, err := session.ConfirmImage(context.Background(), choice)
		require.Error(t, err)
		assert.True(t, common.IsValidationError(err))
	}

	// 失敗的確認不改變狀態
	assert.Equal(t, StateStaging, session.State())
	require.NotNil(t, session.StagedRecipe())
}

func TestConfirmTwiceIsConflict(t *testing.T) {
	gen := &fakeGenerator{recipe: pastaRecipe()}
	images := &fakeImages{urls: []string{"u1"}}
	session := newTestSession(t, gen, images)

	_, err := session.Generate(context.Background(), []string{"Tomato"}, nil, 2)
	require.NoError(t, err)

	_, err = session.ConfirmImage(context.Background(), 0)
	require.NoError(t, err)

	_, err = session.ConfirmImage(context.Background(), 0)
	require.Error(t, err)
}

func TestFinalizeComputesMissingIngredientsCaseInsensitive(t *testing.T) {
	gen := &fakeGenerator{
		recipe: &common.Recipe{
			Name:        "Cake",
			Ingredients: common.PlainIngredients([]string{"Flour", "Sugar", "Eggs"}),
		},
		subs: map[string][]string{"Eggs": {"Applesauce", "Flaxseed"}},
	}
	session := newTestSession(t, gen, nil)

	result, err := session.Generate(context.Background(), []string{"flour", "SUGAR"}, nil, 2)
	require.NoError(t, err)

	require.Len(t, gen.missingArgs, 1)
	assert.Equal(t, []string{"Eggs"}, gen.missingArgs[0])
	assert.Equal(t, []string{"Applesauce", "Flaxseed"}, result.Entry.Substitutions["Eggs"])
}

func TestFinalizeSkipsSubstitutionsWhenNothingMissing(t *testing.T) {
	gen := &fakeGenerator{
		recipe: &common.Recipe{
			Name:        "Salad",
			Ingredients: common.PlainIngredients([]string{"Tomato"}),
		},
	}
	session := newTestSession(t, gen, nil)

	result, err := session.Generate(context.Background(), []string{"Tomato"}, nil, 2)
	require.NoError(t, err)

	assert.Empty(t, gen.missingArgs)
	assert.NotNil(t, result.Entry.Substitutions)
	assert.Empty(t, result.Entry.Substitutions)
}

func TestSurpriseAllowsEmptyIngredients(t *testing.T) {
	gen := &fakeGenerator{recipe: pastaRecipe()}
	session := newTestSession(t, gen, nil)

	result, err := session.Surprise(context.Background(), nil, 2)
	require.NoError(t, err)

	require.Len(t, gen.surpriseFlag, 1)
	assert.True(t, gen.surpriseFlag[0])
	require.NotNil(t, result.Entry)
	assert.NotEmpty(t, result.Entry.Recipe.Name)
	assert.Empty(t, result.Entry.UserIngs)
}

func TestGenerateFailurePreservesState(t *testing.T) {
	gen := &fakeGenerator{recipe: pastaRecipe()}
	session := newTestSession(t, gen, nil)

	_, err := session.Generate(context.Background(), []string{"Tomato"}, nil, 2)
	require.NoError(t, err)
	require.Equal(t, StateFinalized, session.State())

	gen.err = errors.New("model unavailable")
	_, err = session.Generate(context.Background(), []string{"Egg"}, nil, 2)
	require.Error(t, err)

	// 失敗不影響先前的定稿與歷史
	assert.Equal(t, StateFinalized, session.State())
	assert.Len(t, session.History(), 1)
}

func TestDeleteCurrentEntryResetsState(t *testing.T) {
	gen := &fakeGenerator{recipe: pastaRecipe()}
	session := newTestSession(t, gen, nil)

	result, err := session.Generate(context.Background(), []string{"Tomato"}, nil, 2)
	require.NoError(t, err)

	require.NoError(t, session.Delete(result.Entry.ID))

	assert.Equal(t, StateIdle, session.State())
	assert.Nil(t, session.Current())
	assert.Empty(t, session.History())
}

func TestDeleteOtherEntryKeepsState(t *testing.T) {
	gen := &fakeGenerator{recipe: pastaRecipe()}
	session := newTestSession(t, gen, nil)

	first, err := session.Generate(context.Background(), []string{"Tomato"}, nil, 2)
	require.NoError(t, err)
	second, err := session.Generate(context.Background(), []string{"Egg"}, nil, 2)
	require.NoError(t, err)

	require.NoError(t, session.Delete(first.Entry.ID))

	assert.Equal(t, StateFinalized, session.State())
	require.NotNil(t, session.Current())
	assert.Equal(t, second.Entry.ID, session.Current().ID)
	assert.Len(t, session.History(), 1)
}

func TestClearResetsEverything(t *testing.T) {
	gen := &fakeGenerator{recipe: pastaRecipe()}
	images := &fakeImages{urls: []string{"u1"}}
	session := newTestSession(t, gen, images)

	_, err := session.Generate(context.Background(), []string{"Tomato"}, nil, 2)
	require.NoError(t, err)

	require.NoError(t, session.Clear())

	assert.Equal(t, StateIdle, session.State())
	assert.Nil(t, session.StagedRecipe())
	assert.Nil(t, session.Current())
	assert.Empty(t, session.History())
}

func TestNewSessionLoadsExistingHistory(t *testing.T) {
	dir := t.TempDir()
	store := history.NewStore(filepath.Join(dir, "history.json"))

	_, err := store.SaveRecipe(*pastaRecipe(), "", nil, nil)
	require.NoError(t, err)

	session, err := NewSession(nil, nil, store, 5)
	require.NoError(t, err)
	assert.Len(t, session.History(), 1)
	assert.Equal(t, StateIdle, session.State())
}

func TestMissingIngredients(t *testing.T) {
	tests := []struct {
		name       string
		recipeIngs []string
		userIngs   []string
		want       []string
	}{
		{"all covered", []string{"A", "B"}, []string{"a", "b"}, nil},
		{"some missing", []string{"Flour", "Sugar", "Eggs"}, []string{"flour"}, []string{"Sugar", "Eggs"}},
		{"no user ingredients", []string{"A"}, nil, []string{"A"}},
		{"empty recipe", nil, []string{"a"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MissingIngredients(tt.recipeIngs, tt.userIngs))
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "staging", StateStaging.String())
	assert.Equal(t, "finalized", StateFinalized.String())
}
