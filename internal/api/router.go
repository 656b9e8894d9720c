package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"pantrypal/internal/api/handlers/health"
	"pantrypal/internal/api/handlers/pantry"
	"pantrypal/internal/api/middleware"
	"pantrypal/internal/core/ai/cache"
	"pantrypal/internal/core/ai/gemini"
	"pantrypal/internal/core/ai/service"
	"pantrypal/internal/core/history"
	"pantrypal/internal/core/image"
	"pantrypal/internal/core/recipe"
	"pantrypal/internal/core/workflow"
	"pantrypal/internal/infrastructure/config"
	"pantrypal/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// 超時設置
	timeoutDuration = 120 * time.Second
	// 請求體大小限制 (1MB)，純文字 API 不需要更大
	maxBodySize = 1 << 20
)

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, cacheStore cache.Store) (*gin.Engine, error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New()) // 自動生成請求 ID

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(maxBodySize))

	// 請求去重
	router.Use(middleware.Deduplication(cfg))

	// 限流
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	common.LogInfo("Initializing services",
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.Bool("ai_enabled", cfg.GenAI.Enabled()),
		zap.Bool("image_search_enabled", cfg.Unsplash.Enabled()),
		zap.String("model", cfg.GenAI.Model),
		zap.Duration("timeout", timeoutDuration),
	)

	// 初始化生成服務。缺少 API Key 時功能停用但服務照常啟動。
	var generator workflow.Generator
	if cfg.GenAI.Enabled() {
		provider := gemini.NewClient(cfg)
		aiService := service.NewService(cfg, provider, cacheStore)
		generator = recipe.NewGenerator(aiService, cfg)
	} else {
		common.LogWarn("GOOGLE_AI_API_KEY not set, AI generation is disabled")
	}

	// 初始化圖片搜尋
	var images workflow.ImageFetcher
	if cfg.Unsplash.Enabled() {
		images = image.NewClient(cfg)
	} else {
		common.LogWarn("UNSPLASH_ACCESS_KEY not set, image selection is disabled")
	}

	// 初始化歷史儲存與工作流程
	store := history.NewStore(cfg.History.Path)
	session, err := workflow.NewSession(generator, images, store, cfg.Unsplash.Candidates)
	if err != nil {
		common.LogError("Failed to initialize workflow session", zap.Error(err))
		return nil, fmt.Errorf("failed to initialize workflow session: %w", err)
	}

	// 全局中間件：設置超時和配置
	router.Use(func(c *gin.Context) {
		// 設置請求超時
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)

		// 設置配置
		c.Set("config", cfg)

		// 處理請求
		c.Next()

		// 檢查是否超時
		if ctx.Err() == context.DeadlineExceeded {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetHeader("X-Request-ID")),
				zap.Duration("timeout", timeoutDuration),
			)
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  "REQUEST_TIMEOUT",
				"details": gin.H{
					"timeout": timeoutDuration.String(),
				},
			})
			c.Abort()
			return
		}
	})

	// 健康檢查路由
	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck(store))
	router.GET("/live", health.LivenessCheck)

	// API 路由組
	apiGroup := router.Group("/api/v1")
	{
		handler := pantry.NewHandler(session)

		// 食譜生成工作流程
		recipesGroup := apiGroup.Group("/recipes")
		{
			// 依食材生成
			recipesGroup.POST("/generate", handler.Generate)

			// 無食材的驚喜生成
			recipesGroup.POST("/surprise", handler.Surprise)

			// 確認候選圖片並定稿
			recipesGroup.POST("/confirm", handler.Confirm)

			// 目前的工作流程狀態
			recipesGroup.GET("/current", handler.Current)
		}

		// 歷史紀錄
		historyGroup := apiGroup.Group("/history")
		{
			historyGroup.GET("", handler.History)
			historyGroup.DELETE("", handler.Clear)
			historyGroup.DELETE("/:id", handler.Delete)
		}

		// 統計彙總
		apiGroup.GET("/analytics", handler.Analytics)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Bool("ai_enabled", generator != nil),
		zap.Bool("image_search_enabled", images != nil),
		zap.String("history_path", store.Path()),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router, nil
}
