package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sello-bot/luna-data-science-chatbot/internal/service"
)

// ChatHandler 聊天处理器
type ChatHandler struct {
	svc *service.Services
}

// NewChatHandler 创建聊天处理器
func NewChatHandler(svc *service.Services) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// getPagination 获取分页参数
func getPagination(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ = strconv.Atoi(c.DefaultQuery("size", "20"))
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return
}

// SendMessageRequest 发送消息请求
type SendMessageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message" binding:"required"`
}

// SendMessage 发送消息
// 会话不存在时自动创建，回复包含本轮执行的操作结果。
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	reply, err := h.svc.Orchestrator.HandleMessage(c.Request.Context(), req.SessionID, req.Message)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, reply)
}

// ListSessions 列出会话
func (h *ChatHandler) ListSessions(c *gin.Context) {
	page, size := getPagination(c)
	userID := c.Query("user_id")

	sessions, err := h.svc.Orchestrator.ListSessions(userID, (page-1)*size, size)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, PaginationData{Items: sessions, Page: page, Size: size})
}

// GetMessages 获取会话消息
func (h *ChatHandler) GetMessages(c *gin.Context) {
	id := c.Param("id")

	messages, err := h.svc.Orchestrator.SessionMessages(id)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, messages)
}

// DeleteSession 删除会话
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	id := c.Param("id")

	if err := h.svc.Orchestrator.DeleteSession(id); err != nil {
		Error(c, err)
		return
	}

	NoContent(c)
}
