package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"pantrypal/internal/core/recipe"
	"pantrypal/internal/pkg/common"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Entry 一筆已定稿的食譜紀錄。
// recipe_ings 是存檔當下的正規化快照；早期版本的紀錄沒有這個欄位，
// 讀取時由 DisplayIngredients 退回 recipe.ingredients。
type Entry struct {
	ID            string              `json:"id"`
	Timestamp     string              `json:"timestamp"`
	Recipe        common.Recipe       `json:"recipe"`
	RecipeIngs    []string            `json:"recipe_ings,omitempty"`
	ImageURL      string              `json:"image_url"`
	UserIngs      []string            `json:"user_ings"`
	Substitutions map[string][]string `json:"substitutions"`
}

// DisplayIngredients 取得顯示用的食材清單，舊紀錄退回 recipe.ingredients
func (e Entry) DisplayIngredients() []string {
	if len(e.RecipeIngs) > 0 {
		return e.RecipeIngs
	}
	return recipe.NormalizeIngredients(e.Recipe.Ingredients)
}

// Store 以單一 JSON 檔案為後端的歷史紀錄儲存。
// 所有操作都是整份文件的 load-modify-write，假設單一寫入者；
// 寫入一律先寫暫存檔再 rename，中斷時不會留下寫到一半的檔案。
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore 創建歷史紀錄儲存
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path 回傳後端檔案路徑
func (s *Store) Path() string {
	return s.path
}

// Load 載入全部歷史紀錄。檔案不存在時回傳空清單；
// 檔案存在但無法解析時回傳 StorageCorruptionError，不可吞掉。
func (s *Store) Load() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, common.NewStorageCorruptionError(s.path, err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// SaveRecipe 以新 id 與當前時間建立一筆紀錄並附加到檔尾
func (s *Store) SaveRecipe(rec common.Recipe, imageURL string, userIngs []string, substitutions map[string][]string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.loadLocked()
	if err != nil {
		return nil, err
	}

	if userIngs == nil {
		userIngs = []string{}
	}
	if substitutions == nil {
		substitutions = map[string][]string{}
	}

	entry := Entry{
		ID:            uuid.NewString(),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Recipe:        rec,
		RecipeIngs:    recipe.NormalizeIngredients(rec.Ingredients),
		ImageURL:      imageURL,
		UserIngs:      userIngs,
		Substitutions: substitutions,
	}

	entries = append(entries, entry)
	if err := s.writeLocked(entries); err != nil {
		return nil, err
	}

	common.LogInfo("Recipe saved to history",
		zap.String("id", entry.ID),
		zap.String("name", rec.Name),
		zap.Int("total_entries", len(entries)),
	)

	return &entry, nil
}

// Delete 刪除指定 id 的紀錄。id 不存在時是冪等的 no-op，不是錯誤。
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.loadLocked()
	if err != nil {
		return err
	}

	kept := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return nil
	}

	return s.writeLocked(kept)
}

// Clear 清空全部歷史紀錄
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked([]Entry{})
}

// writeLocked 原子性地覆寫整份文件，呼叫端必須持有鎖
func (s *Store) writeLocked(entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp history file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write history file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close history file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}
