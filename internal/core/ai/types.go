package ai

// TextRequest 對文字生成模型的單次請求
type TextRequest struct {
	System      string  // system instruction
	Prompt      string  // 使用者 prompt
	Temperature float64 // 取樣溫度，0 表示使用模型預設
	TopP        float64
	TopK        int
	MaxTokens   int
	JSONOutput  bool // 要求模型只輸出 JSON
}

// TextResponse 模型回應
type TextResponse struct {
	Content  string
	CacheHit bool
}
