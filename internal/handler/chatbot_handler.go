package handler

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/chat2sql/internal/service"
)

// ChatbotHandler 问答处理器
type ChatbotHandler struct {
	svc *service.Services
}

// NewChatbotHandler 创建问答处理器
func NewChatbotHandler(svc *service.Services) *ChatbotHandler {
	return &ChatbotHandler{svc: svc}
}

// QueryRequest 问答请求
type QueryRequest struct {
	Query     string `json:"query" binding:"required"`
	UserID    string `json:"userId" binding:"required"`
	SessionID string `json:"sessionId" binding:"required"`
}

// RegenerateRequest 重新生成请求
type RegenerateRequest struct {
	Query     string `json:"query" binding:"required"`
	UserID    string `json:"userId" binding:"required"`
	SessionID string `json:"sessionId" binding:"required"`
	MessageID string `json:"messageId" binding:"required"`
}

// ReactionRequest 反馈请求
type ReactionRequest struct {
	UserID       string `json:"userId" binding:"required"`
	SessionID    string `json:"sessionId" binding:"required"`
	MessageID    string `json:"messageId" binding:"required"`
	Rating       string `json:"rating"`
	FeedbackText string `json:"feedbackText"`
}

// QueryResponse 问答响应
type QueryResponse struct {
	System    string `json:"system"`
	UserID    string `json:"userId"`
	MessageID string `json:"messageId"`
	SessionID string `json:"sessionId"`
	Timestamp string `json:"timestamp"`
}

// RegenerateResponse 重新生成响应，额外带上一次回答与反馈
type RegenerateResponse struct {
	QueryResponse
	SystemOutput string `json:"system_output"`
	FeedbackText string `json:"feedbackText"`
}

// ReactionResponse 反馈响应
type ReactionResponse struct {
	UserID       string `json:"userId"`
	Rating       string `json:"rating"`
	FeedbackText string `json:"feedbackText"`
	MessageID    string `json:"messageId"`
	SessionID    string `json:"sessionId"`
	Timestamp    string `json:"timestamp"`
}

// unableResponse 流水线失败时的统一兜底响应
func unableResponse() QueryResponse {
	return QueryResponse{System: "Unable to get response!"}
}

// Query 回答自然语言问题
func (h *ChatbotHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Code: -1, Message: err.Error()})
		return
	}

	answer, err := h.svc.Chatbot.Ask(c.Request.Context(), req.UserID, req.SessionID, req.Query)
	if err != nil {
		log.Printf("query failed for user %s: %v", req.UserID, err)
		c.JSON(http.StatusInternalServerError, unableResponse())
		return
	}

	c.JSON(http.StatusOK, QueryResponse{
		System:    answer.System,
		UserID:    answer.UserID,
		MessageID: answer.MessageID,
		SessionID: answer.SessionID,
		Timestamp: answer.Timestamp,
	})
}

// Regenerate 结合反馈重新生成回答
func (h *ChatbotHandler) Regenerate(c *gin.Context) {
	var req RegenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Code: -1, Message: err.Error()})
		return
	}

	regen, err := h.svc.Chatbot.Regenerate(c.Request.Context(), req.UserID, req.SessionID, req.MessageID, req.Query)
	if err != nil {
		log.Printf("regenerate failed for message %s: %v", req.MessageID, err)
		c.JSON(http.StatusInternalServerError, RegenerateResponse{QueryResponse: unableResponse()})
		return
	}

	c.JSON(http.StatusOK, RegenerateResponse{
		QueryResponse: QueryResponse{
			System:    regen.System,
			UserID:    regen.UserID,
			MessageID: regen.MessageID,
			SessionID: regen.SessionID,
			Timestamp: regen.Timestamp,
		},
		SystemOutput: regen.PreviousAnswer,
		FeedbackText: regen.Feedback,
	})
}

// Reaction 记录用户反馈
func (h *ChatbotHandler) Reaction(c *gin.Context) {
	var req ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Code: -1, Message: err.Error()})
		return
	}

	reaction, err := h.svc.Chatbot.React(c.Request.Context(), req.UserID, req.SessionID, req.MessageID, req.Rating, req.FeedbackText)
	if err != nil {
		log.Printf("reaction failed for message %s: %v", req.MessageID, err)
		c.JSON(http.StatusInternalServerError, ReactionResponse{
			UserID: fmt.Sprintf("Something went wrong! %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, ReactionResponse{
		UserID:       reaction.UserID,
		Rating:       reaction.Rating,
		FeedbackText: reaction.Feedback,
		MessageID:    reaction.MessageID,
		SessionID:    reaction.SessionID,
		Timestamp:    reaction.Timestamp,
	})
}

// Events 查看会话的流水线事件
func (h *ChatbotHandler) Events(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, Response{Code: -1, Message: "sessionId is required"})
		return
	}

	events, err := h.svc.Chatbot.Events(c.Request.Context(), sessionID)
	if err != nil {
		errorResponse(c, err)
		return
	}
	success(c, gin.H{"events": events})
}

// Suggestions 为用户推荐可以提问的问题
func (h *ChatbotHandler) Suggestions(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		userID = getUserID(c)
	}
	if userID == "" {
		c.JSON(http.StatusBadRequest, Response{Code: -1, Message: "userId is required"})
		return
	}

	text, err := h.svc.Chatbot.Suggestions(c.Request.Context(), userID)
	if err != nil {
		errorResponse(c, err)
		return
	}
	success(c, gin.H{"suggestions": text})
}
