package pantry

import (
	"errors"
	"net/http"

	"pantrypal/internal/core/history"
	"pantrypal/internal/core/workflow"
	"pantrypal/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 食譜工作流程處理器
type Handler struct {
	session *workflow.Session
}

// NewHandler 創建食譜工作流程處理器
func NewHandler(session *workflow.Session) *Handler {
	return &Handler{session: session}
}

// GenerateRequest 食譜生成請求
type GenerateRequest struct {
	Ingredients  []string `json:"ingredients"`
	Restrictions []string `json:"restrictions"`
	Servings     int      `json:"servings"`
}

// SurpriseRequest 驚喜生成請求
type SurpriseRequest struct {
	Restrictions []string `json:"restrictions"`
	Servings     int      `json:"servings"`
}

// ConfirmRequest 圖片確認請求
type ConfirmRequest struct {
	Choice int `json:"choice"`
}

// Generate 依食材生成食譜
func (h *Handler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body",
			"code":  common.ErrCodeInvalidRequest,
		})
		return
	}

	if req.Servings <= 0 {
		req.Servings = 2
	}

	result, err := h.session.Generate(c.Request.Context(), req.Ingredients, req.Restrictions, req.Servings)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Surprise 無食材的驚喜生成
func (h *Handler) Surprise(c *gin.Context) {
	var req SurpriseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body",
			"code":  common.ErrCodeInvalidRequest,
		})
		return
	}

	if req.Servings <= 0 {
		req.Servings = 2
	}

	result, err := h.session.Surprise(c.Request.Context(), req.Restrictions, req.Servings)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Confirm 確認候選圖片並定稿
func (h *Handler) Confirm(c *gin.Context) {
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body",
			"code":  common.ErrCodeInvalidRequest,
		})
		return
	}

	entry, err := h.session.ConfirmImage(c.Request.Context(), req.Choice)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"state": h.session.State(),
		"entry": entry,
	})
}

// Current 目前的工作流程狀態與最近定稿的紀錄
func (h *Handler) Current(c *gin.Context) {
	state := h.session.State()

	resp := gin.H{"state": state}
	if staging := h.session.StagedRecipe(); staging != nil {
		resp["staging"] = staging
	}
	if current := h.session.Current(); current != nil {
		resp["entry"] = current
	}

	c.JSON(http.StatusOK, resp)
}

// History 全部歷史紀錄
func (h *Handler) History(c *gin.Context) {
	entries := h.session.History()
	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

// Delete 刪除一筆歷史紀錄
func (h *Handler) Delete(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "missing history id",
			"code":  common.ErrCodeInvalidRequest,
		})
		return
	}

	if err := h.session.Delete(id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// Clear 清空全部歷史紀錄
func (h *Handler) Clear(c *gin.Context) {
	if err := h.session.Clear(); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

// Analytics 歷史紀錄的統計彙總
func (h *Handler) Analytics(c *gin.Context) {
	entries := h.session.History()

	c.JSON(http.StatusOK, gin.H{
		"total_recipes":   len(entries),
		"nutrition":       history.NutritionSamples(entries),
		"daily_counts":    history.CountsByDay(entries),
		"top_ingredients": history.TopIngredients(entries, 10),
	})
}

// respondError 把領域錯誤映射成 HTTP 回應
func respondError(c *gin.Context, err error) {
	requestID := c.GetHeader("X-Request-ID")

	var customErr *common.CustomError
	switch {
	case common.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
			"code":  common.ErrCodeInvalidRequest,
		})
	case common.IsConfigurationError(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": err.Error(),
			"code":  common.ErrCodeFeatureDisabled,
		})
	case common.IsUpstreamParseError(err):
		common.LogError("Upstream response could not be parsed",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadGateway, gin.H{
			"error": err.Error(),
			"code":  common.ErrCodeUpstreamParse,
		})
	case common.IsStorageCorruptionError(err):
		common.LogError("History storage is corrupted",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
			"code":  common.ErrCodeStorageCorrupted,
		})
	case errors.As(err, &customErr):
		c.JSON(customErr.Status, gin.H{
			"error": customErr.Message,
			"code":  customErr.Code,
		})
	default:
		common.LogError("Unhandled request error",
			zap.Error(err),
			zap.String("request_id", requestID),
			zap.String("path", c.Request.URL.Path),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "internal server error",
			"code":  common.ErrCodeInternalError,
		})
	}
}
