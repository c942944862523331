package handlers

import (
	"errors"
	"net/http"

	"github.com/bass-society/secretary-backend/internal/agent"
	"github.com/bass-society/secretary-backend/internal/clients/openai"
	"github.com/bass-society/secretary-backend/internal/http/response"
	"github.com/bass-society/secretary-backend/internal/pkg/logger"
	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	dispatcher *agent.Dispatcher
	log        *logger.Logger
}

func NewChatHandler(dispatcher *agent.Dispatcher, baseLog *logger.Logger) *ChatHandler {
	return &ChatHandler{
		dispatcher: dispatcher,
		log:        baseLog.With("handler", "ChatHandler"),
	}
}

type chatTurnMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	ChatID  string            `json:"chat_id"`
	Message string            `json:"message" binding:"required"`
	History []chatTurnMessage `json:"history"`
}

type chatResponse struct {
	Answer string            `json:"answer"`
	Trace  []agent.ToolTrace `json:"trace,omitempty"`
}

// Chat runs one agent turn: POST /api/chat.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, response.CodeInvalidRequest, err)
		return
	}

	history := make([]openai.ChatMessage, 0, len(req.History))
	for _, m := range req.History {
		if m.Role != "user" && m.Role != "assistant" {
			continue
		}
		history = append(history, openai.ChatMessage{Role: m.Role, Content: m.Content})
	}

	result, err := h.dispatcher.HandleTurn(c.Request.Context(), req.ChatID, history, req.Message)
	if err != nil {
		// A blown tool budget is a user-visible outcome of the turn,
		// not a server fault.
		if errors.Is(err, agent.ErrToolBudgetExceeded) {
			response.RespondOK(c, chatResponse{
				Answer: "I could not finish answering that within my lookup limit. Could you ask something more specific?",
				Trace:  result.Trace,
			})
			return
		}
		h.log.Error("Chat turn failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, response.CodeChatFailed, err)
		return
	}

	response.RespondOK(c, chatResponse{Answer: result.Answer, Trace: result.Trace})
}
