package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"needle-go/internal/model"
	"needle-go/internal/repository"
	"needle-go/pkg/llm"
	"needle-go/pkg/log"

	"github.com/gorilla/websocket"
)

// 发给模型的历史最多带最近几轮，存储侧的历史不受此限制
const maxHistoryTurns = 6

// 单个上下文块的字符上限，超出部分截断
const maxContextBlockChars = 1200

// ChatService 定义了文献问答的操作接口。
type ChatService interface {
	StreamResponse(ctx context.Context, query string, sessionKey string, ws *websocket.Conn, shouldStop func() bool) error
	GetHistory(ctx context.Context, sessionKey string) ([]model.ChatMessage, error)
	ClearHistory(ctx context.Context, sessionKey string) error
}

type chatService struct {
	searchService    SearchService
	llmClient        llm.Client
	conversationRepo repository.ConversationRepository
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(searchService SearchService, llmClient llm.Client, conversationRepo repository.ConversationRepository) ChatService {
	return &chatService{
		searchService:    searchService,
		llmClient:        llmClient,
		conversationRepo: conversationRepo,
	}
}

// StreamResponse 协调检索增强问答流程并流式传输模型响应。
func (s *chatService) StreamResponse(ctx context.Context, query string, sessionKey string, ws *websocket.Conn, shouldStop func() bool) error {
	// 1. 检索阶段：在文献库中找相关分块
	log.Infof("[ChatService] 阶段: Retrieving, query: '%s'", query)
	matches, err := s.searchService.SearchLibrary(ctx, query, 0)
	if err != nil {
		return fmt.Errorf("failed to retrieve context: %w", err)
	}
	citations := buildCitations(matches)

	// 2. 组装 system 消息与历史
	contextText := buildContextBlocks(matches)
	systemMsg := buildSystemMessage(contextText)
	convID, err := s.conversationRepo.GetOrCreateConversationID(ctx, sessionKey)
	if err != nil {
		return fmt.Errorf("failed to get conversation id: %w", err)
	}
	history, err := s.conversationRepo.GetConversationHistory(ctx, convID)
	if err != nil {
		log.Errorf("Failed to load conversation history: %v", err)
		history = []model.ChatMessage{}
	}
	messages := composeMessages(systemMsg, history, query)

	// 拦截 websocket writer 以捕获完整答案，并包装为 JSON 分块
	answerBuilder := &strings.Builder{}
	interceptor := &wsWriterInterceptor{conn: ws, writer: answerBuilder, shouldStop: shouldStop}

	// 3. 生成阶段：流式调用模型
	log.Infof("[ChatService] 阶段: Generating, 上下文块: %d, 历史消息: %d", len(matches), len(history))
	err = s.llmClient.StreamChatMessages(ctx, messages, nil, interceptor)
	if err != nil {
		return err
	}

	// 4. 发送完成通知（含引用列表），并把本轮问答写入历史
	sendCompletion(ws, citations)
	fullAnswer := answerBuilder.String()
	if len(fullAnswer) > 0 {
		// 使用后台上下文，因为即使原始请求被取消，我们也希望保存成功生成的答案
		err = s.conversationRepo.AppendMessages(context.Background(), convID,
			model.ChatMessage{Role: "user", Content: query, Timestamp: time.Now()},
			model.ChatMessage{Role: "assistant", Content: fullAnswer, Citations: citations, Timestamp: time.Now()},
		)
		if err != nil {
			// 只记录错误，不返回给客户端，因为流式响应已经成功
			log.Errorf("Failed to save conversation history: %v", err)
		}
	}
	return nil
}

// GetHistory 返回一个会话的完整对话历史。
func (s *chatService) GetHistory(ctx context.Context, sessionKey string) ([]model.ChatMessage, error) {
	convID, err := s.conversationRepo.GetOrCreateConversationID(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	return s.conversationRepo.GetConversationHistory(ctx, convID)
}

// ClearHistory 清空一个会话的对话历史。
func (s *chatService) ClearHistory(ctx context.Context, sessionKey string) error {
	convID, err := s.conversationRepo.GetOrCreateConversationID(ctx, sessionKey)
	if err != nil {
		return err
	}
	return s.conversationRepo.ClearConversation(ctx, convID)
}

// buildContextBlocks 把检索命中拼成编号的上下文块，编号与引用列表一致。
func buildContextBlocks(matches []model.ChunkMatch) string {
	if len(matches) == 0 {
		return ""
	}
	var b strings.Builder
	for i, m := range matches {
		text := m.Chunk.Text
		// 按 rune 截断，避免把多字节字符切到一半
		if utf8.RuneCountInString(text) > maxContextBlockChars {
			text = string([]rune(text)[:maxContextBlockChars]) + "…"
		}
		header := m.Chunk.Title
		if m.Chunk.Authors != "" {
			header = header + " — " + m.Chunk.Authors
		}
		b.WriteString(fmt.Sprintf("[%d] %s\n%s\n\n", i+1, header, text))
	}
	return b.String()
}

// buildCitations 把检索命中转换成引用列表，同一篇文档只保留得分最高的一条。
func buildCitations(matches []model.ChunkMatch) []model.Citation {
	seen := make(map[string]struct{})
	citations := make([]model.Citation, 0, len(matches))
	for _, m := range matches {
		key := m.Chunk.Title + "|" + m.Chunk.Link
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		citations = append(citations, model.Citation{
			Title:   m.Chunk.Title,
			Authors: m.Chunk.Authors,
			Link:    m.Chunk.Link,
			Score:   m.Score,
		})
	}
	return citations
}

// groundingRules 约束模型只依据检索到的文献内容作答。
const groundingRules = "You are a research assistant answering questions about the user's paper library. " +
	"Answer only from the numbered excerpts between <<REF>> and <<END>>. " +
	"Cite the excerpts you used as [1], [2] and so on. " +
	"If the excerpts do not contain the answer, say you could not find it in the library."

func buildSystemMessage(contextText string) string {
	var sys strings.Builder
	sys.WriteString(groundingRules)
	sys.WriteString("\n\n<<REF>>\n")
	if contextText != "" {
		sys.WriteString(contextText)
	} else {
		sys.WriteString("（本轮无检索结果）\n")
	}
	sys.WriteString("<<END>>")
	return sys.String()
}

// composeMessages 组装发给模型的消息序列：system + 最近几轮历史 + 本轮提问。
func composeMessages(systemMsg string, history []model.ChatMessage, userInput string) []llm.Message {
	if len(history) > maxHistoryTurns*2 {
		history = history[len(history)-maxHistoryTurns*2:]
	}
	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: "system", Content: systemMsg})
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, llm.Message{Role: "user", Content: userInput})
	return msgs
}

// wsWriterInterceptor 是对 websocket.Conn 的封装，用于捕获写入的消息。
type wsWriterInterceptor struct {
	conn       *websocket.Conn
	writer     *strings.Builder
	shouldStop func() bool
}

// WriteMessage 满足 llm.MessageWriter 接口。
func (w *wsWriterInterceptor) WriteMessage(messageType int, data []byte) error {
	if w.shouldStop != nil && w.shouldStop() {
		// 停止标志生效：跳过下发
		return nil
	}
	w.writer.Write(data)
	// 将原始分块包装成 {"chunk":"..."}
	payload := map[string]string{"chunk": string(data)}
	b, _ := json.Marshal(payload)
	return w.conn.WriteMessage(messageType, b)
}

// sendCompletion 发送完成通知 JSON，携带本轮引用列表
func sendCompletion(ws *websocket.Conn, citations []model.Citation) {
	notif := map[string]interface{}{
		"type":      "completion",
		"status":    "finished",
		"citations": citations,
		"timestamp": time.Now().UnixMilli(),
	}
	b, _ := json.Marshal(notif)
	_ = ws.WriteMessage(websocket.TextMessage, b)
}
