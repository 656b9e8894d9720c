package workflow

import (
	"context"
	"strings"
	"sync"

	"pantrypal/internal/core/history"
	"pantrypal/internal/core/recipe"
	"pantrypal/internal/pkg/common"

	"go.uber.org/zap"
)

// State 工作流程狀態
type State int

const (
	// StateIdle 尚無暫存或定稿中的食譜
	StateIdle State = iota
	// StateStaging 食譜已生成，等待使用者確認主圖
	StateStaging
	// StateFinalized 最近一次生成已存入歷史
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateStaging:
		return "staging"
	case StateFinalized:
		return "finalized"
	default:
		return "idle"
	}
}

// MarshalJSON 以字串輸出狀態
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Generator 食譜生成協作者。缺少 AI 憑證時為 nil。
type Generator interface {
	Generate(ctx context.Context, ingredients, restrictions []string, servings int, surprise bool) (*common.Recipe, error)
	Substitutions(ctx context.Context, missing []string) map[string][]string
}

// ImageFetcher 圖片搜尋協作者。缺少圖片憑證時為 nil。
type ImageFetcher interface {
	FetchImages(ctx context.Context, query string, n int) []string
}

// Staging 暫存狀態：剛生成、尚未定稿的食譜與其候選圖片。
// 只存在於行程記憶體，重啟即消失。
type Staging struct {
	Recipe       common.Recipe `json:"recipe"`
	RecipeIngs   []string      `json:"recipe_ings"`
	ImageOptions []string      `json:"image_options"`
	UserIngs     []string      `json:"user_ings"`
}

// Result 一次生成操作的結果：停在 Staging 等確認，
// 或（沒有候選圖片時）直接定稿。
type Result struct {
	State   State          `json:"state"`
	Staging *Staging       `json:"staging,omitempty"`
	Entry   *history.Entry `json:"entry,omitempty"`
}

// Session 生成工作流程狀態機。
// 歷史快取只是唯讀鏡像：每次寫入儲存後一定從檔案重新載入，
// 跨越任何一次變異的快取內容一律視為過期。
type Session struct {
	mu         sync.Mutex
	generator  Generator
	images     ImageFetcher
	store      *history.Store
	imageCount int

	state   State
	staging *Staging
	current *history.Entry
	entries []history.Entry
}

// NewSession 創建工作流程 session 並載入既有歷史
func NewSession(generator Generator, images ImageFetcher, store *history.Store, imageCount int) (*Session, error) {
	if imageCount <= 0 {
		imageCount = 5
	}

	s := &Session{
		generator:  generator,
		images:     images,
		store:      store,
		imageCount: imageCount,
		state:      StateIdle,
	}
	if err := s.reloadLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

// Generate 依使用者提供的食材生成食譜並進入暫存。
// 空食材清單在這條路徑上是驗證錯誤，不會觸發任何協作者呼叫。
func (s *Session) Generate(ctx context.Context, ingredients, restrictions []string, servings int) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ingredients) == 0 {
		return nil, common.NewValidationError("please add at least one ingredient")
	}
	return s.generateLocked(ctx, ingredients, restrictions, servings, false)
}

// Surprise 無食材生成：模型自由發揮，偏向更高的隨機性
func (s *Session) Surprise(ctx context.Context, restrictions []string, servings int) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.generateLocked(ctx, nil, restrictions, servings, true)
}

func (s *Session) generateLocked(ctx context.Context, ingredients, restrictions []string, servings int, surprise bool) (*Result, error) {
	if s.generator == nil {
		return nil, common.NewConfigurationError("ai",
			"GOOGLE_AI_API_KEY is not set, AI generation is disabled")
	}

	rec, err := s.generator.Generate(ctx, ingredients, restrictions, servings, surprise)
	if err != nil {
		// 生成失敗不改變任何狀態
		return nil, err
	}

	recipeIngs := recipe.NormalizeIngredients(rec.Ingredients)
	rec.Ingredients = common.PlainIngredients(recipeIngs)

	var options []string
	if s.images != nil {
		options = s.images.FetchImages(ctx, rec.Name, s.imageCount)
	}

	userIngs := make([]string, 0, len(ingredients))
	userIngs = append(userIngs, ingredients...)

	// 新的暫存食譜取代先前的暫存或定稿狀態
	s.staging = &Staging{
		Recipe:       *rec,
		RecipeIngs:   recipeIngs,
		ImageOptions: options,
		UserIngs:     userIngs,
	}
	s.current = nil
	s.state = StateStaging

	common.LogInfo("Recipe staged",
		zap.String("name", rec.Name),
		zap.Int("image_candidates", len(options)),
		zap.Bool("surprise", surprise),
	)

	// 沒有候選圖片時直接定稿，不需要多一次無意義的確認
	if len(options) == 0 {
		entry, err := s.finalizeLocked(ctx, "")
		if err != nil {
			return nil, err
		}
		return &Result{State: s.state, Entry: entry}, nil
	}

	return &Result{State: s.state, Staging: s.staging}, nil
}

// ConfirmImage 在 Staging 狀態下確認候選圖片並定稿。
// choice 是候選清單的索引；候選清單為空時忽略 choice 以空圖定稿。
func (s *Session) ConfirmImage(ctx context.Context, choice int) (*history.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateStaging || s.staging == nil {
		return nil, common.ErrNoStagedRecipe
	}

	imageURL := ""
	if opts := s.staging.ImageOptions; len(opts) > 0 {
		if choice < 0 || choice >= len(opts) {
			return nil, common.NewValidationError("image choice out of range")
		}
		imageURL = opts[choice]
	}

	return s.finalizeLocked(ctx, imageURL)
}

// finalizeLocked 計算缺少的食材、查替代品、存檔並切換到 Finalized
func (s *Session) finalizeLocked(ctx context.Context, imageURL string) (*history.Entry, error) {
	staging := s.staging

	missing := MissingIngredients(staging.RecipeIngs, staging.UserIngs)
	substitutions := map[string][]string{}
	if s.generator != nil && len(missing) > 0 {
		substitutions = s.generator.Substitutions(ctx, missing)
	}

	entry, err := s.store.SaveRecipe(staging.Recipe, imageURL, staging.UserIngs, substitutions)
	if err != nil {
		return nil, err
	}
	if err := s.reloadLocked(); err != nil {
		return nil, err
	}

	s.staging = nil
	s.current = entry
	s.state = StateFinalized

	common.LogInfo("Recipe finalized",
		zap.String("id", entry.ID),
		zap.String("name", entry.Recipe.Name),
		zap.Int("missing_ingredients", len(missing)),
	)

	return entry, nil
}

// MissingIngredients 回傳不在使用者食材中的食譜食材。
// 比對是大小寫不敏感的精確比對，不做模糊比對或單複數處理。
func MissingIngredients(recipeIngs, userIngs []string) []string {
	have := make(map[string]struct{}, len(userIngs))
	for _, ing := range userIngs {
		have[strings.ToLower(ing)] = struct{}{}
	}

	var missing []string
	for _, ing := range recipeIngs {
		if _, ok := have[strings.ToLower(ing)]; !ok {
			missing = append(missing, ing)
		}
	}
	return missing
}

// State 目前的工作流程狀態
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StagedRecipe 目前暫存中的食譜，不在 Staging 狀態時為 nil
func (s *Session) StagedRecipe() *Staging {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.staging
}

// Current 最近一次定稿的紀錄，沒有時為 nil
func (s *Session) Current() *history.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// History 歷史紀錄快照（插入順序，最舊在前）
func (s *Session) History() []history.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]history.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Delete 刪除一筆歷史紀錄並刷新快取
func (s *Session) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(id); err != nil {
		return err
	}
	if err := s.reloadLocked(); err != nil {
		return err
	}

	if s.current != nil && s.current.ID == id {
		s.current = nil
		s.state = StateIdle
	}
	return nil
}

// Clear 清空歷史並重設回 Idle，任何狀態下都可呼叫
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Clear(); err != nil {
		return err
	}
	if err := s.reloadLocked(); err != nil {
		return err
	}

	s.staging = nil
	s.current = nil
	s.state = StateIdle
	return nil
}

// reloadLocked 從儲存重新載入歷史快取
func (s *Session) reloadLocked() error {
	entries, err := s.store.Load()
	if err != nil {
		return err
	}
	s.entries = entries
	return nil
}
