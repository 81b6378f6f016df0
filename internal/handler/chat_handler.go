// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"needle-go/internal/service"
	"needle-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// ChatHandler 负责处理 WebSocket 问答连接。
type ChatHandler struct {
	chatService service.ChatService
	// 每连接停止标志
	stopFlags sync.Map // key: session pointer string, value: bool
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Handle 处理一个传入的 WebSocket 连接。
// 每条文本消息是一轮提问；JSON 消息 {"type":"stop"} 中断当前流式响应。
func (h *ChatHandler) Handle(c *gin.Context) {
	session := c.DefaultQuery("session", "default")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立, session: %s", session)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			break
		}
		log.Infof("收到 WebSocket 消息: %s", string(message))

		// JSON 停止指令: {"type":"stop"}
		if len(message) > 0 && message[0] == '{' {
			var ctrl map[string]interface{}
			if err := json.Unmarshal(message, &ctrl); err == nil {
				if t, ok := ctrl["type"].(string); ok && t == "stop" {
					h.stopFlags.Store(connKey(conn), true)
					resp := map[string]interface{}{
						"type":      "stop",
						"message":   "响应已停止",
						"timestamp": time.Now().UnixMilli(),
					}
					b, _ := json.Marshal(resp)
					_ = conn.WriteMessage(websocket.TextMessage, b)
					continue
				}
			}
		}

		shouldStop := func() bool {
			v, ok := h.stopFlags.Load(connKey(conn))
			return ok && v.(bool)
		}
		// 清除旧标志
		h.stopFlags.Delete(connKey(conn))
		err = h.chatService.StreamResponse(c.Request.Context(), string(message), session, conn, shouldStop)
		if err != nil {
			log.Errorf("处理流式响应失败: %v", err)
			errResp := map[string]string{"error": "问答服务暂时不可用，请稍后重试"}
			b, _ := json.Marshal(errResp)
			conn.WriteMessage(websocket.TextMessage, b)
			break
		}
	}
}

// GetHistory 返回一个会话的完整对话历史。
func (h *ChatHandler) GetHistory(c *gin.Context) {
	session := c.DefaultQuery("session", "default")
	history, err := h.chatService.GetHistory(c.Request.Context(), session)
	if err != nil {
		log.Errorf("[ChatHandler] 获取对话历史失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取对话历史失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": history, "message": "success"})
}

// ClearHistory 清空一个会话的对话历史。
func (h *ChatHandler) ClearHistory(c *gin.Context) {
	session := c.DefaultQuery("session", "default")
	if err := h.chatService.ClearHistory(c.Request.Context(), session); err != nil {
		log.Errorf("[ChatHandler] 清空对话历史失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "清空对话历史失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": nil, "message": "success"})
}

func connKey(conn *websocket.Conn) string {
	return fmt.Sprintf("%p", conn)
}
