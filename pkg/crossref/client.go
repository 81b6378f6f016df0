// Package crossref 提供了访问 Crossref works API 的客户端，用于解析论文的出版年份。
package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"needle-go/internal/config"
	"needle-go/pkg/log"
)

// Client 是 Crossref API 的客户端。
type Client struct {
	baseURL string
	mailto  string
	client  *http.Client
}

// NewClient 创建一个新的 Crossref 客户端实例。
func NewClient(cfg config.CitationsConfig) *Client {
	return &Client{
		baseURL: cfg.CrossrefBaseURL,
		mailto:  cfg.CrossrefMailto,
		client:  &http.Client{},
	}
}

type worksResponse struct {
	Message map[string]json.RawMessage `json:"message"`
}

type dateField struct {
	DateParts [][]int `json:"date-parts"`
}

// 出版日期字段按可信度排序，取第一个带年份的
var dateFieldPriority = []string{"published-print", "published-online", "published", "issued", "created"}

// Year 查询一个 DOI 在 Crossref 登记的出版年份。
// 返回 0 表示登记库中没有该记录或记录不含年份，调用方应回退到图谱侧的日期。
func (c *Client) Year(ctx context.Context, doi string) (int, error) {
	queryURL := fmt.Sprintf("%s/works/%s", c.baseURL, url.PathEscape(doi))
	if c.mailto != "" {
		queryURL += "?mailto=" + url.QueryEscape(c.mailto)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", queryURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create crossref request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to call crossref api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, nil
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("crossref api returned non-200 status: %s", resp.Status)
	}

	var works worksResponse
	if err := json.NewDecoder(resp.Body).Decode(&works); err != nil {
		return 0, fmt.Errorf("failed to decode crossref response: %w", err)
	}

	for _, field := range dateFieldPriority {
		raw, ok := works.Message[field]
		if !ok {
			continue
		}
		var df dateField
		if err := json.Unmarshal(raw, &df); err != nil {
			continue
		}
		if len(df.DateParts) > 0 && len(df.DateParts[0]) > 0 && df.DateParts[0][0] > 0 {
			return df.DateParts[0][0], nil
		}
	}
	log.Warnf("[Crossref] 记录存在但不含出版年份, doi: %s", doi)
	return 0, nil
}
