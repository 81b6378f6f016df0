// Package arxiv 提供了访问 arXiv 开放 API 的客户端，用于按 id 拉取论文元数据和 PDF。
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"needle-go/internal/config"
	"needle-go/pkg/log"
)

// Metadata 是从 arXiv API 解析出的一篇论文的元数据。
type Metadata struct {
	ArxivID   string
	Title     string
	Authors   []string
	Abstract  string
	Published string
	DOI       string
	Category  string
	PDFURL    string
}

// Client 是 arXiv API 的客户端。
type Client struct {
	apiBaseURL string
	pdfBaseURL string
	client     *http.Client
}

// NewClient 创建一个新的 arXiv 客户端实例。
func NewClient(cfg config.ArxivConfig) *Client {
	return &Client{
		apiBaseURL: cfg.APIBaseURL,
		pdfBaseURL: cfg.PDFBaseURL,
		client:     &http.Client{},
	}
}

// Atom feed 的最小解析结构，只取需要的字段
type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	DOI             string `xml:"doi"`
	PrimaryCategory struct {
		Term string `xml:"term,attr"`
	} `xml:"primary_category"`
}

// FetchMetadata 按 arXiv id 查询论文元数据。
// 未命中任何条目时返回错误，由调用方决定如何提示。
func (c *Client) FetchMetadata(ctx context.Context, arxivID string) (*Metadata, error) {
	log.Infof("[ArxivClient] 开始查询论文元数据, id: %s", arxivID)

	queryURL := fmt.Sprintf("%s/query?id_list=%s&max_results=1", c.apiBaseURL, url.QueryEscape(arxivID))
	req, err := http.NewRequestWithContext(ctx, "GET", queryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create arxiv request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Errorf("[ArxivClient] 调用 arXiv API 失败, error: %v", err)
		return nil, fmt.Errorf("failed to call arxiv api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv api returned non-200 status: %s", resp.Status)
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to decode arxiv atom feed: %w", err)
	}
	if len(feed.Entries) == 0 {
		return nil, fmt.Errorf("arxiv api returned no entry for id %s", arxivID)
	}

	entry := feed.Entries[0]
	// entry.ID 形如 http://arxiv.org/abs/2101.00001v2，没有条目正文时视为未命中
	if strings.TrimSpace(entry.Title) == "" {
		return nil, fmt.Errorf("arxiv api returned empty entry for id %s", arxivID)
	}

	authors := make([]string, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		authors = append(authors, strings.TrimSpace(a.Name))
	}

	meta := &Metadata{
		ArxivID:   arxivID,
		Title:     normalizeWhitespace(entry.Title),
		Authors:   authors,
		Abstract:  normalizeWhitespace(entry.Summary),
		Published: strings.TrimSpace(entry.Published),
		DOI:       strings.TrimSpace(entry.DOI),
		Category:  entry.PrimaryCategory.Term,
		PDFURL:    c.PDFLink(arxivID),
	}
	log.Infof("[ArxivClient] 查询成功, id: %s, title: %s", arxivID, meta.Title)
	return meta, nil
}

// PDFLink 返回一篇论文的 PDF 下载地址。
func (c *Client) PDFLink(arxivID string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(c.pdfBaseURL, "/"), arxivID)
}

// DownloadPDF 下载一篇论文的 PDF 全文，调用方负责关闭返回的 reader。
func (c *Client) DownloadPDF(ctx context.Context, arxivID string) (io.ReadCloser, error) {
	pdfURL := c.PDFLink(arxivID)
	log.Infof("[ArxivClient] 开始下载 PDF, url: %s", pdfURL)

	req, err := http.NewRequestWithContext(ctx, "GET", pdfURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create pdf request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download pdf: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("arxiv pdf returned non-200 status: %s", resp.Status)
	}
	return resp.Body, nil
}

// normalizeWhitespace 把 Atom 字段中的换行和连续空白压成单个空格。
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
