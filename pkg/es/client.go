// Package es 实现了向量索引网关。
//
// 两个逻辑索引并存：语料库 papers 索引（读为主，由离线任务构建）与用户
// 文献库 library 索引（随用户添加文档增长）。索引中只保存 (id, vector)，
// 不保存任何描述性内容；同一个 id 的元数据由 MySQL 中的元数据表持有，
// 两边共用同一键空间，写入时必须保持同步（先写向量，再写元数据）。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"needle-go/internal/config"
	"needle-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
)

var (
	ESClient *elasticsearch.Client
	esCfg    config.ElasticsearchConfig
)

// LogicalIndex 标识一个逻辑向量索引。
type LogicalIndex int

const (
	// IndexPapers 是全量论文语料库索引，必须配置。
	IndexPapers LogicalIndex = iota
	// IndexLibrary 是用户文献库索引，允许未配置。
	IndexLibrary
)

// ErrLibraryNotConfigured 表示文献库索引未配置；读路径应降级为空结果，写路径应报错。
var ErrLibraryNotConfigured = errors.New("library index is not configured")

// Datapoint 是向量索引中的一条数据点，只有 id 和特征向量。
type Datapoint struct {
	ID     string
	Vector []float32
}

// Neighbor 是近邻查询返回的一条命中，只含 id 和相似度得分。
type Neighbor struct {
	ID    string
	Score float64
}

// InitES 初始化 Elasticsearch 客户端并确保索引存在。
func InitES(cfg config.ElasticsearchConfig) error {
	esCfg = cfg
	c := elasticsearch.Config{
		Addresses: []string{cfg.Addresses},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(c)
	if err != nil {
		return err
	}
	ESClient = client

	if cfg.PapersIndex == "" {
		return errors.New("papers 索引名不能为空")
	}
	if err := createIndexIfNotExists(cfg.PapersIndex, cfg.Dimensions); err != nil {
		return err
	}
	if cfg.LibraryIndex == "" {
		log.Warnf("library 索引未配置，文献库查询将返回空结果")
		return nil
	}
	return createIndexIfNotExists(cfg.LibraryIndex, cfg.Dimensions)
}

// resolveIndex 将逻辑索引解析为实际索引名。
func resolveIndex(idx LogicalIndex) (string, error) {
	switch idx {
	case IndexPapers:
		return esCfg.PapersIndex, nil
	case IndexLibrary:
		if esCfg.LibraryIndex == "" {
			return "", ErrLibraryNotConfigured
		}
		return esCfg.LibraryIndex, nil
	default:
		return "", fmt.Errorf("未知的逻辑索引: %d", idx)
	}
}

// createIndexIfNotExists 检查索引是否存在，如果不存在则创建它
func createIndexIfNotExists(indexName string, dims int) error {
	res, err := ESClient.Indices.Exists([]string{indexName})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	// 如果 res.StatusCode 是 200，说明索引已存在
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		log.Errorf("检查索引 '%s' 是否存在时收到意外的状态码: %d", indexName, res.StatusCode)
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	// 索引里只有向量字段，描述性内容一律放在元数据库
	mapping := fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				}
			}
		}
	}`, dims)

	res, err = ESClient.Indices.Create(
		indexName,
		ESClient.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", indexName, err)
		return err
	}
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", indexName)
	return nil
}

// UpsertDatapoints 将 (id, vector) 批量写入指定逻辑索引。
// 这是写路径：索引不可用或写入失败时直接报错，由调用方处理。
func UpsertDatapoints(ctx context.Context, idx LogicalIndex, points []Datapoint) error {
	if len(points) == 0 {
		return nil
	}
	indexName, err := resolveIndex(idx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	for _, p := range points {
		meta := map[string]interface{}{"index": map[string]interface{}{"_index": indexName, "_id": p.ID}}
		doc := map[string]interface{}{"vector": p.Vector}
		if err := json.NewEncoder(&buf).Encode(meta); err != nil {
			return fmt.Errorf("序列化 bulk 元信息失败: %w", err)
		}
		if err := json.NewEncoder(&buf).Encode(doc); err != nil {
			return fmt.Errorf("序列化 bulk 文档失败: %w", err)
		}
	}

	res, err := ESClient.Bulk(bytes.NewReader(buf.Bytes()),
		ESClient.Bulk.WithContext(ctx),
		ESClient.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("bulk 写入失败: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("bulk 写入 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to upsert datapoints")
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("解析 bulk 响应失败: %w", err)
	}
	if bulkResp.Errors {
		return errors.New("bulk 响应中包含条目级错误")
	}
	log.Infof("[ES] 已向索引 '%s' 写入 %d 个 datapoint", indexName, len(points))
	return nil
}

// QueryNearest 用向量在指定逻辑索引上做 kNN 查询，只返回 id 和得分。
// 文献库索引未配置时返回空结果而不是错误。
func QueryNearest(ctx context.Context, idx LogicalIndex, vector []float32, topK int) ([]Neighbor, error) {
	indexName, err := resolveIndex(idx)
	if err != nil {
		if errors.Is(err, ErrLibraryNotConfigured) {
			return []Neighbor{}, nil
		}
		return nil, err
	}

	var buf bytes.Buffer
	query := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   vector,
			"k":              topK,
			"num_candidates": topK * 10,
		},
		"size":    topK,
		"_source": false,
	}
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("序列化 knn 查询失败: %w", err)
	}

	res, err := ESClient.Search(
		ESClient.Search.WithContext(ctx),
		ESClient.Search.WithIndex(indexName),
		ESClient.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("[ES] knn 查询返回错误, index: %s, body: %s", indexName, res.String())
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.Status())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				ID    string  `json:"_id"`
				Score float64 `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	neighbors := make([]Neighbor, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		neighbors = append(neighbors, Neighbor{ID: hit.ID, Score: hit.Score})
	}
	return neighbors, nil
}

// DeleteDatapoints 按 id 批量删除指定逻辑索引中的数据点。
func DeleteDatapoints(ctx context.Context, idx LogicalIndex, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	indexName, err := resolveIndex(idx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	for _, id := range ids {
		meta := map[string]interface{}{"delete": map[string]interface{}{"_index": indexName, "_id": id}}
		if err := json.NewEncoder(&buf).Encode(meta); err != nil {
			return fmt.Errorf("序列化 bulk 删除失败: %w", err)
		}
	}

	res, err := ESClient.Bulk(bytes.NewReader(buf.Bytes()),
		ESClient.Bulk.WithContext(ctx),
		ESClient.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("bulk 删除失败: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("bulk 删除 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to delete datapoints")
	}
	log.Infof("[ES] 已从索引 '%s' 删除 %d 个 datapoint", indexName, len(ids))
	return nil
}

// allIDsQuery 构造 id 扫描的一页查询体。
// _shard_doc 排序只在 point-in-time 上下文中可用，这里按 _doc 配合 search_after 分页。
func allIDsQuery(searchAfter []interface{}) map[string]interface{} {
	body := map[string]interface{}{
		"size":    1000,
		"_source": false,
		"sort":    []map[string]interface{}{{"_doc": map[string]interface{}{"order": "asc"}}},
	}
	if searchAfter != nil {
		body["search_after"] = searchAfter
	}
	return body
}

// AllIDs 遍历返回指定逻辑索引中的全部 id，供对账扫描使用。
// 文献库索引未配置时返回空集合。
func AllIDs(ctx context.Context, idx LogicalIndex) ([]string, error) {
	indexName, err := resolveIndex(idx)
	if err != nil {
		if errors.Is(err, ErrLibraryNotConfigured) {
			return []string{}, nil
		}
		return nil, err
	}

	var ids []string
	var searchAfter []interface{}
	for {
		body := allIDsQuery(searchAfter)
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("序列化 id 扫描查询失败: %w", err)
		}

		res, err := ESClient.Search(
			ESClient.Search.WithContext(ctx),
			ESClient.Search.WithIndex(indexName),
			ESClient.Search.WithBody(&buf),
		)
		if err != nil {
			return nil, fmt.Errorf("elasticsearch search failed: %w", err)
		}
		var page struct {
			Hits struct {
				Hits []struct {
					ID   string        `json:"_id"`
					Sort []interface{} `json:"sort"`
				} `json:"hits"`
			} `json:"hits"`
		}
		if res.IsError() {
			res.Body.Close()
			return nil, fmt.Errorf("elasticsearch returned an error: %s", res.Status())
		}
		if err := json.NewDecoder(res.Body).Decode(&page); err != nil {
			res.Body.Close()
			return nil, fmt.Errorf("failed to decode es response: %w", err)
		}
		res.Body.Close()

		if len(page.Hits.Hits) == 0 {
			break
		}
		for _, hit := range page.Hits.Hits {
			ids = append(ids, hit.ID)
		}
		searchAfter = page.Hits.Hits[len(page.Hits.Hits)-1].Sort
	}
	return ids, nil
}
