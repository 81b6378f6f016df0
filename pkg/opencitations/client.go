// Package opencitations 提供了访问 OpenCitations Index API 的客户端。
package opencitations

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"needle-go/internal/config"
	"needle-go/pkg/log"
)

// CitationRow 是引文图谱中的一条入边：citing 引用了被查询的论文。
// Creation 是 citing 一方的出版日期字段，原样保留，由上层解析年份。
type CitationRow struct {
	Citing   string `json:"citing"`
	Creation string `json:"creation"`
}

// Client 是 OpenCitations API 的客户端。
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient 创建一个新的 OpenCitations 客户端实例。
func NewClient(cfg config.CitationsConfig) *Client {
	return &Client{
		baseURL: cfg.OpenCitationsBaseURL,
		token:   cfg.OpenCitationsToken,
		client:  &http.Client{},
	}
}

// Citations 查询一个 DOI 的全部入边。
// 图谱服务经常限流或暂时不可用，这类失败降级为空结果并告警，不向上冒泡。
func (c *Client) Citations(ctx context.Context, doi string) ([]CitationRow, error) {
	queryURL := fmt.Sprintf("%s/citations/%s", c.baseURL, url.PathEscape(doi))
	req, err := http.NewRequestWithContext(ctx, "GET", queryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create citations request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("authorization", c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Warnf("[OpenCitations] 调用失败, doi: %s, error: %v, 按空结果处理", doi, err)
		return []CitationRow{}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warnf("[OpenCitations] 返回非 200 状态码: %s, doi: %s, 按空结果处理", resp.Status, doi)
		return []CitationRow{}, nil
	}

	var rows []CitationRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode citations response: %w", err)
	}
	if rows == nil {
		rows = []CitationRow{}
	}
	log.Infof("[OpenCitations] 查询成功, doi: %s, citations: %d", doi, len(rows))
	return rows, nil
}
