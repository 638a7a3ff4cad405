package handler

import (
	"github.com/ashwinyue/chat2sql/internal/database"
	"github.com/ashwinyue/chat2sql/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Chatbot *ChatbotHandler
	System  *SystemHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services, db *database.DB) *Handlers {
	return &Handlers{
		Chatbot: NewChatbotHandler(svc),
		System:  NewSystemHandler(db),
	}
}
