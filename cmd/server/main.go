// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"needle-go/internal/config"
	"needle-go/internal/handler"
	"needle-go/internal/middleware"
	"needle-go/internal/pipeline"
	"needle-go/internal/repository"
	"needle-go/internal/service"
	"needle-go/pkg/arxiv"
	"needle-go/pkg/crossref"
	"needle-go/pkg/database"
	"needle-go/pkg/embedding"
	"needle-go/pkg/es"
	"needle-go/pkg/kafka"
	"needle-go/pkg/llm"
	"needle-go/pkg/log"
	"needle-go/pkg/opencitations"
	"needle-go/pkg/storage"
	"needle-go/pkg/tika"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis、对象存储与向量索引
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	if err := es.InitES(cfg.Elasticsearch); err != nil {
		log.Errorf("es 初始化失败 %s", err)
		return
	}
	kafka.InitProducer(cfg.Kafka)

	// 4. 初始化 Repository
	paperRepo := repository.NewPaperRepository(database.DB)
	chunkRepo := repository.NewChunkRepository(database.DB)
	conversationRepo := repository.NewConversationRepository(database.RDB)

	// 5. 初始化外部服务客户端
	tikaClient := tika.NewClient(cfg.Tika)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)
	arxivClient := arxiv.NewClient(cfg.Arxiv)
	ocClient := opencitations.NewClient(cfg.Citations)
	crossrefClient := crossref.NewClient(cfg.Citations)

	// 6. 初始化入库管道 (Processor)
	chunker, err := pipeline.NewChunker(cfg.Chunking.MaxTokens, cfg.Chunking.Overlap)
	if err != nil {
		log.Fatalf("分块配置不合法: %v", err)
	}
	batcher := pipeline.NewBatcher(embeddingClient, cfg.Embedding.MaxBatchSize, cfg.Embedding.MaxBatchChars)
	processor := pipeline.NewProcessor(
		arxivClient,
		tikaClient,
		chunker,
		batcher,
		chunkRepo,
		cfg.MinIO,
	)

	// 7. 初始化 Service (依赖注入)
	searchService := service.NewSearchService(embeddingClient, llmClient, paperRepo, chunkRepo, cfg.Search)
	chatService := service.NewChatService(searchService, llmClient, conversationRepo)
	libraryService := service.NewLibraryService(processor, chunkRepo, cfg.MinIO)
	citationService := service.NewCitationService(ocClient, crossrefClient)

	// 8. 启动后台 Kafka 消费者处理上传 PDF 的入库任务
	go kafka.StartConsumer(cfg.Kafka, processor)

	// 9. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 10. 注册路由
	searchHandler := handler.NewSearchHandler(searchService, tikaClient)
	libraryHandler := handler.NewLibraryHandler(libraryService)
	citationHandler := handler.NewCitationHandler(citationService)
	chatHandler := handler.NewChatHandler(chatService)

	apiV1 := r.Group("/api/v1")
	{
		// Search 路由组：论文检索的三种入口
		search := apiV1.Group("/search")
		{
			search.POST("/papers", searchHandler.SearchPapers)
			search.POST("/prompt", searchHandler.Prompt2Paper)
			search.POST("/pdf", searchHandler.PDF2Paper)
		}
		// 论文详情
		apiV1.GET("/papers/:id", searchHandler.GetPaper)

		// Library 路由组：文献库管理
		library := apiV1.Group("/library")
		{
			library.POST("/arxiv", libraryHandler.AddArxivPaper)
			library.POST("/upload", libraryHandler.UploadPDF)
			library.GET("/documents", libraryHandler.ListDocuments)
			library.DELETE("/documents/:docId", libraryHandler.DeleteDocument)
			library.DELETE("/documents", libraryHandler.ClearLibrary)
			library.GET("/reconcile", libraryHandler.Reconcile)
		}

		// Citations 路由组：引文图谱分析
		citations := apiV1.Group("/citations")
		{
			citations.GET("/year", citationHandler.CountForYear)
			citations.GET("/all", citationHandler.CountAllTime)
		}

		// Chat 路由组：文献问答
		chat := apiV1.Group("/chat")
		{
			chat.GET("/history", chatHandler.GetHistory)
			chat.DELETE("/history", chatHandler.ClearHistory)
		}
	}
	// Chat WebSocket 路由
	r.GET("/chat", chatHandler.Handle)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	// Kafka 消费者是一个阻塞循环，随进程退出自然结束。
	log.Info("服务已优雅关闭")
}
