package common

import (
	"fmt"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"message"`           // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// ValidationError 表示驗證錯誤：使用者輸入不合法，警告後不改變任何狀態
type ValidationError struct {
	message string
}

func (e *ValidationError) Error() string {
	return e.message
}

// NewValidationError 創建新的驗證錯誤
func NewValidationError(message string) error {
	return &ValidationError{message: message}
}

// IsValidationError 檢查是否為驗證錯誤
func IsValidationError(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}

// ConfigurationError 表示缺少憑證：對應功能停用，警告後不中斷程序
type ConfigurationError struct {
	Feature string
	message string
}

func (e *ConfigurationError) Error() string {
	return e.message
}

// NewConfigurationError 創建新的設定錯誤
func NewConfigurationError(feature, message string) error {
	return &ConfigurationError{Feature: feature, message: message}
}

// IsConfigurationError 檢查是否為設定錯誤
func IsConfigurationError(err error) bool {
	_, ok := err.(*ConfigurationError)
	return ok
}

// UpstreamParseError 表示 AI 回應不是合法的結構化資料
type UpstreamParseError struct {
	Message string
	Err     error
}

func (e *UpstreamParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UpstreamParseError) Unwrap() error {
	return e.Err
}

// NewUpstreamParseError 創建新的上游解析錯誤
func NewUpstreamParseError(message string, err error) error {
	return &UpstreamParseError{Message: message, Err: err}
}

// IsUpstreamParseError 檢查是否為上游解析錯誤
func IsUpstreamParseError(err error) bool {
	_, ok := err.(*UpstreamParseError)
	return ok
}

// StorageCorruptionError 表示歷史檔案存在但無法解析。
// 這類錯誤意味著資料可能遺失，必須向呼叫端回報，不可吞掉。
type StorageCorruptionError struct {
	Path string
	Err  error
}

func (e *StorageCorruptionError) Error() string {
	return fmt.Sprintf("history file %s is corrupted: %v", e.Path, e.Err)
}

func (e *StorageCorruptionError) Unwrap() error {
	return e.Err
}

// NewStorageCorruptionError 創建新的儲存毀損錯誤
func NewStorageCorruptionError(path string, err error) error {
	return &StorageCorruptionError{Path: path, Err: err}
}

// IsStorageCorruptionError 檢查是否為儲存毀損錯誤
func IsStorageCorruptionError(err error) bool {
	_, ok := err.(*StorageCorruptionError)
	return ok
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest  = "INVALID_REQUEST"   // 400
	ErrCodeNotFound        = "NOT_FOUND"         // 404
	ErrCodeConflict        = "CONFLICT"          // 409
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS" // 429

	// 服務器錯誤 (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"       // 500
	ErrCodeUpstreamParse      = "UPSTREAM_PARSE_ERROR" // 502
	ErrCodeFeatureDisabled    = "FEATURE_DISABLED"     // 503
	ErrCodeStorageCorrupted   = "STORAGE_CORRUPTED"    // 500
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"  // 503
)

// 預定義錯誤
var (
	ErrInvalidRequest  = NewError(ErrCodeInvalidRequest, "invalid request", http.StatusBadRequest, nil)
	ErrNotFound        = NewError(ErrCodeNotFound, "resource not found", http.StatusNotFound, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "too many requests", http.StatusTooManyRequests, nil)
	ErrInternalError   = NewError(ErrCodeInternalError, "internal server error", http.StatusInternalServerError, nil)

	// 業務錯誤
	ErrNoStagedRecipe = NewError(ErrCodeConflict, "no staged recipe awaiting image confirmation", http.StatusConflict, nil)
	ErrNoCurrentEntry = NewError(ErrCodeNotFound, "no finalized recipe to show", http.StatusNotFound, nil)
	ErrCacheDisabled  = NewError("CACHE_DISABLED", "response cache is disabled", http.StatusServiceUnavailable, nil)
	ErrCacheFull      = NewError("CACHE_FULL", "response cache is full", http.StatusServiceUnavailable, nil)
)
