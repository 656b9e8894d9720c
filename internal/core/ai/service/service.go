package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"pantrypal/internal/core/ai"
	"pantrypal/internal/core/ai/cache"
	"pantrypal/internal/infrastructure/config"
	"pantrypal/internal/pkg/common"
)

// Provider 文字生成模型供應商
type Provider interface {
	Generate(ctx context.Context, req ai.TextRequest) (string, error)
}

// Service AI 服務：供應商加上回應快取與最小間隔閘門
type Service struct {
	config      *config.Config
	provider    Provider
	cache       cache.Store
	mu          sync.Mutex
	lastRequest time.Time
}

// NewService 創建 AI 服務
func NewService(cfg *config.Config, provider Provider, store cache.Store) *Service {
	return &Service{
		config:   cfg,
		provider: provider,
		cache:    store,
	}
}

// ProcessRequest 統一對外方法
func (s *Service) ProcessRequest(ctx context.Context, req ai.TextRequest) (*ai.TextResponse, error) {
	if err := s.checkRequestRate(); err != nil {
		return nil, err
	}

	key := canonicalKey(req)

	if s.cache != nil {
		if val, ok := s.cache.Get(ctx, key); ok {
			return &ai.TextResponse{Content: val, CacheHit: true}, nil
		}
	}

	start := time.Now()
	content, err := s.provider.Generate(ctx, req)
	common.LogAICall(time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, key, content)
	}

	return &ai.TextResponse{Content: content}, nil
}

// canonicalKey 統一 prompt 格式，去除多餘空白與換行，確保快取 key 一致
func canonicalKey(req ai.TextRequest) string {
	flatten := func(s string) string {
		return strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
	}
	return flatten(req.System) + "\n" + flatten(req.Prompt)
}

// checkRequestRate 檢查請求頻率
func (s *Service) checkRequestRate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.config.GenAI.MinInterval > 0 && now.Sub(s.lastRequest) < s.config.GenAI.MinInterval {
		return errors.New("request rate limit exceeded")
	}

	s.lastRequest = now
	return nil
}
