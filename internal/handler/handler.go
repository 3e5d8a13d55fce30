// Package handler HTTP 请求处理
package handler

import (
	"github.com/sello-bot/luna-data-science-chatbot/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Chat    *ChatHandler
	Dataset *DatasetHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Chat:    NewChatHandler(svc),
		Dataset: NewDatasetHandler(svc),
	}
}
