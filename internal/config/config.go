// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Tika          TikaConfig          `mapstructure:"tika"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Chunking      ChunkingConfig      `mapstructure:"chunking"`
	Search        SearchConfig        `mapstructure:"search"`
	Arxiv         ArxivConfig         `mapstructure:"arxiv"`
	Citations     CitationsConfig     `mapstructure:"citations"`
	Indexer       IndexerConfig       `mapstructure:"indexer"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// TikaConfig 存储 Tika 服务器相关的配置。
type TikaConfig struct {
	ServerURL string `mapstructure:"server_url"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
// PapersIndex 是全量论文语料库索引，必须配置；
// LibraryIndex 是用户个人文献库索引，允许为空，为空时文献库查询返回空结果。
type ElasticsearchConfig struct {
	Addresses    string `mapstructure:"addresses"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	PapersIndex  string `mapstructure:"papers_index"`
	LibraryIndex string `mapstructure:"library_index"`
	Dimensions   int    `mapstructure:"dimensions"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// EmbeddingConfig 存储 Embedding 模型相关的配置。
// MaxBatchSize 限制单次调用的文本条数，MaxBatchChars 限制单次调用的字符总量，
// 两者同时生效，对应服务端的实例数与请求体大小两个独立上限。
type EmbeddingConfig struct {
	APIKey        string `mapstructure:"api_key"`
	BaseURL       string `mapstructure:"base_url"`
	Model         string `mapstructure:"model"`
	Dimensions    int    `mapstructure:"dimensions"`
	MaxBatchSize  int    `mapstructure:"max_batch_size"`
	MaxBatchChars int    `mapstructure:"max_batch_chars"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Model      string              `mapstructure:"model"`
	Generation LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig 配置生成相关参数（可选，零值表示不下发）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// ChunkingConfig 配置文本分块的窗口大小与重叠（按词计）。
type ChunkingConfig struct {
	MaxTokens int `mapstructure:"max_tokens"`
	Overlap   int `mapstructure:"overlap"`
}

// SearchConfig 配置检索相关参数。
type SearchConfig struct {
	PapersTopK  int `mapstructure:"papers_top_k"`
	LibraryTopK int `mapstructure:"library_top_k"`
	MaxPDFWords int `mapstructure:"max_pdf_words"`
}

// ArxivConfig 存储 arXiv 导出接口的配置。
type ArxivConfig struct {
	APIBaseURL string `mapstructure:"api_base_url"`
	PDFBaseURL string `mapstructure:"pdf_base_url"`
}

// CitationsConfig 存储引文分析依赖的外部服务配置。
type CitationsConfig struct {
	OpenCitationsBaseURL string `mapstructure:"opencitations_base_url"`
	OpenCitationsToken   string `mapstructure:"opencitations_token"`
	CrossrefBaseURL      string `mapstructure:"crossref_base_url"`
	CrossrefMailto       string `mapstructure:"crossref_mailto"`
}

// IndexerConfig 配置离线语料库导入任务（cmd/indexer）。
type IndexerConfig struct {
	JSONPath        string `mapstructure:"json_path"`
	MaxRows         int    `mapstructure:"max_rows"`
	StartOffset     int    `mapstructure:"start_offset"`
	MaxCharsPerText int    `mapstructure:"max_chars_per_text"`
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}
}
