package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"needle-go/internal/model"

	"github.com/go-redis/redis/v8"
)

// ConversationRepository 定义了对话历史记录的操作接口。
// 存储侧保留完整历史，发给模型时才做轮数截断。
type ConversationRepository interface {
	GetOrCreateConversationID(ctx context.Context, sessionKey string) (string, error)
	GetConversationHistory(ctx context.Context, conversationID string) ([]model.ChatMessage, error)
	AppendMessages(ctx context.Context, conversationID string, messages ...model.ChatMessage) error
	ClearConversation(ctx context.Context, conversationID string) error
}

type redisConversationRepository struct {
	redisClient *redis.Client
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。
func NewConversationRepository(redisClient *redis.Client) ConversationRepository {
	return &redisConversationRepository{redisClient: redisClient}
}

// GetOrCreateConversationID 获取或创建一个新的对话ID。
func (r *redisConversationRepository) GetOrCreateConversationID(ctx context.Context, sessionKey string) (string, error) {
	userKey := fmt.Sprintf("session:%s:current_conversation", sessionKey)
	convID, err := r.redisClient.Get(ctx, userKey).Result()
	if err == redis.Nil {
		// generate uuid-like using timestamp+session (avoid heavy deps)
		convID = fmt.Sprintf("%d-%s", time.Now().UnixNano(), sessionKey)
		if err := r.redisClient.Set(ctx, userKey, convID, 7*24*time.Hour).Err(); err != nil {
			return "", fmt.Errorf("failed to set conversation id: %w", err)
		}
		return convID, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get conversation id: %w", err)
	}
	return convID, nil
}

// GetConversationHistory 从 Redis 获取对话历史记录。
func (r *redisConversationRepository) GetConversationHistory(ctx context.Context, conversationID string) ([]model.ChatMessage, error) {
	key := fmt.Sprintf("conversation:%s", conversationID)
	jsonData, err := r.redisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		return []model.ChatMessage{}, nil // No history yet
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation history: %w", err)
	}
	var messages []model.ChatMessage
	err = json.Unmarshal([]byte(jsonData), &messages)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation history: %w", err)
	}
	return messages, nil
}

// AppendMessages 向对话历史追加消息。历史只追加不截断。
func (r *redisConversationRepository) AppendMessages(ctx context.Context, conversationID string, messages ...model.ChatMessage) error {
	history, err := r.GetConversationHistory(ctx, conversationID)
	if err != nil {
		return err
	}
	history = append(history, messages...)

	key := fmt.Sprintf("conversation:%s", conversationID)
	jsonData, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation history: %w", err)
	}
	if err := r.redisClient.Set(ctx, key, jsonData, 7*24*time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to set conversation history: %w", err)
	}
	return nil
}

// ClearConversation 删除一段对话的全部历史。
func (r *redisConversationRepository) ClearConversation(ctx context.Context, conversationID string) error {
	key := fmt.Sprintf("conversation:%s", conversationID)
	if err := r.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to clear conversation history: %w", err)
	}
	return nil
}
