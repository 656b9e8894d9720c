package service

import (
	"context"
	"testing"
	"time"

	"pantrypal/internal/core/ai"
	"pantrypal/internal/core/ai/cache"
	"pantrypal/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider 固定回應並計數
type fakeProvider struct {
	content string
	calls   int
}

func (f *fakeProvider) Generate(context.Context, ai.TextRequest) (string, error) {
	f.calls++
	return f.content, nil
}

func serviceConfig() *config.Config {
	return &config.Config{
		GenAI: config.GenAIConfig{APIKey: "test-key"},
		Cache: config.CacheConfig{
			Enabled:         true,
			Backend:         "memory",
			MaxSize:         10,
			TTL:             time.Minute,
			CleanupInterval: time.Minute,
		},
	}
}

func TestProcessRequestCachesResponses(t *testing.T) {
	cfg := serviceConfig()
	store := cache.NewManager(cfg)
	defer store.Close()

	provider := &fakeProvider{content: "cached answer"}
	svc := NewService(cfg, provider, store)

	req := ai.TextRequest{System: "sys", Prompt: "make pasta"}

	first, err := svc.ProcessRequest(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "cached answer", first.Content)
	assert.False(t, first.CacheHit)

	second, err := svc.ProcessRequest(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "cached answer", second.Content)
	assert.True(t, second.CacheHit)

	assert.Equal(t, 1, provider.calls)
}

func TestProcessRequestCanonicalizesWhitespace(t *testing.T) {
	cfg := serviceConfig()
	store := cache.NewManager(cfg)
	defer store.Close()

	provider := &fakeProvider{content: "answer"}
	svc := NewService(cfg, provider, store)

	_, err := svc.ProcessRequest(context.Background(), ai.TextRequest{Prompt: "make   pasta\nnow"})
	require.NoError(t, err)

	resp, err := svc.ProcessRequest(context.Background(), ai.TextRequest{Prompt: " make pasta now "})
	require.NoError(t, err)
	assert.True(t, resp.CacheHit)
	assert.Equal(t, 1, provider.calls)
}

func TestProcessRequestWithoutCache(t *testing.T) {
	cfg := serviceConfig()
	provider := &fakeProvider{content: "answer"}
	svc := NewService(cfg, provider, nil)

	for i := 0; i < 2; i++ {
		resp, err := svc.ProcessRequest(context.Background(), ai.TextRequest{Prompt: "hi"})
		require.NoError(t, err)
		assert.False(t, resp.CacheHit)
	}
	assert.Equal(t, 2, provider.calls)
}

func TestProcessRequestMinInterval(t *testing.T) {
	cfg := serviceConfig()
	cfg.GenAI.MinInterval = time.Hour

	provider := &fakeProvider{content: "answer"}
	svc := NewService(cfg, provider, nil)

	_, err := svc.ProcessRequest(context.Background(), ai.TextRequest{Prompt: "hi"})
	require.NoError(t, err)

	_, err = svc.ProcessRequest(context.Background(), ai.TextRequest{Prompt: "hi again"})
	require.Error(t, err)
	assert.Equal(t, 1, provider.calls)
}
