package image

import (
	"context"
	"net/http"
	"strconv"

	"pantrypal/internal/infrastructure/config"
	"pantrypal/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const baseURL = "https://api.unsplash.com"

// Client Unsplash 圖片搜尋客戶端
type Client struct {
	client *resty.Client
}

// NewClient 創建 Unsplash 客戶端
func NewClient(cfg *config.Config) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.Unsplash.Timeout).
		SetHeader("Authorization", "Client-ID "+cfg.Unsplash.AccessKey).
		SetHeader("Accept-Version", "v1")

	return &Client{client: client}
}

type searchResponse struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
		} `json:"urls"`
	} `json:"results"`
}

// FetchImages 以查詢字串搜尋最多 n 張候選圖片。
// 圖片是 best-effort：任何失敗或零結果都回傳空清單，不回傳錯誤。
func (c *Client) FetchImages(ctx context.Context, query string, n int) []string {
	if n <= 0 {
		return nil
	}

	var result searchResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":    query,
			"per_page": strconv.Itoa(n),
		}).
		SetResult(&result).
		Get("/search/photos")

	if err != nil {
		common.LogWarn("Image search request failed",
			zap.Error(err),
			zap.String("query", query),
		)
		return nil
	}

	if resp.StatusCode() != http.StatusOK {
		common.LogWarn("Image search returned error status",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("query", query),
		)
		return nil
	}

	urls := make([]string, 0, n)
	for _, r := range result.Results {
		if r.URLs.Regular == "" {
			continue
		}
		urls = append(urls, r.URLs.Regular)
		if len(urls) == n {
			break
		}
	}

	common.LogInfo("Image search completed",
		zap.String("query", query),
		zap.Int("candidates", len(urls)),
	)

	return urls
}
