package controllers

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shopwise/shopwise-api/config"
	"github.com/shopwise/shopwise-api/models"
	"github.com/shopwise/shopwise-api/services"
	"github.com/shopwise/shopwise-api/utils"
)

// Number of the caller's previous messages sent to the chat model as context
const chatContextSize = 5

// ChatRequest represents the request body for talking to the chatbot
type ChatRequest struct {
	Message string `json:"message" binding:"required,max=2000"`
}

// TranscriptionResponse is returned by the voice endpoint
type TranscriptionResponse struct {
	Transcript string             `json:"transcript"`
	Message    models.ChatMessage `json:"message"`
}

// Chat handles POST /api/v1/chatbot/chat
func Chat(c *gin.Context) {
	user, ok := requireCurrentUser(c)
	if !ok {
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	text := strings.TrimSpace(req.Message)
	if text == "" {
		respondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Message is required")
		return
	}

	message, err := converse(c.Request.Context(), config.GetDB(), user.ID, text)
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to save chat message")
		return
	}

	c.PureJSON(http.StatusOK, gin.H{
		"success": true,
		"data":    message,
	})
}

// TranscribeAndChat handles POST /api/v1/chatbot/transcribe.
// The body is raw audio; its transcript is answered like a typed message.
func TranscribeAndChat(c *gin.Context) {
	user, ok := requireCurrentUser(c)
	if !ok {
		return
	}

	audio, err := io.ReadAll(io.LimitReader(c.Request.Body, utils.MaxAudioSize+1))
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read audio")
		return
	}
	if err := utils.ValidateAudio(c.ContentType(), int64(len(audio))); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	transcript := strings.TrimSpace(services.GetAIService().Transcribe(ctx, audio, c.ContentType()))
	if transcript == "" {
		respondWithError(c, http.StatusUnprocessableEntity, "TRANSCRIPTION_FAILED", "Could not transcribe the audio")
		return
	}

	message, err := converse(ctx, config.GetDB(), user.ID, transcript)
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to save chat message")
		return
	}

	c.PureJSON(http.StatusOK, gin.H{
		"success": true,
		"data":    TranscriptionResponse{Transcript: transcript, Message: *message},
	})
}

// ChatHistory handles GET /api/v1/chatbot/history - the caller's messages, newest first
func ChatHistory(c *gin.Context) {
	user, ok := requireCurrentUser(c)
	if !ok {
		return
	}

	page, limit := utils.ParsePagination(c.Query("page"), c.Query("limit"), 20, services.MaxPageSize)
	db := config.GetDB()
	query := db.Model(&models.ChatMessage{}).Where("user_id = ?", user.ID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count chat messages")
		return
	}

	var messages []models.ChatMessage
	if err := db.Where("user_id = ?", user.ID).
		Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&messages).Error; err != nil {
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch chat messages")
		return
	}

	c.PureJSON(http.StatusOK, gin.H{
		"success": true,
		"data":    messages,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": utils.TotalPages(total, limit),
		},
	})
}

// converse asks the chat model for a reply using the user's recent messages
// as context and stores the exchange. The model never fails the request.
func converse(ctx context.Context, db *gorm.DB, userID uint, text string) (*models.ChatMessage, error) {
	var recent []models.ChatMessage
	if err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(chatContextSize).
		Find(&recent).Error; err != nil {
		return nil, err
	}

	history := make([]string, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		history = append(history, recent[i].Message)
	}

	message := models.ChatMessage{
		UserID:  userID,
		Message: text,
		Reply:   services.GetAIService().Chat(ctx, text, history),
	}
	if err := db.WithContext(ctx).Create(&message).Error; err != nil {
		return nil, err
	}
	return &message, nil
}
