package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/bass-society/secretary-backend/internal/http/response"
	pkgerrors "github.com/bass-society/secretary-backend/internal/pkg/errors"
	"github.com/bass-society/secretary-backend/internal/pkg/logger"
	"github.com/bass-society/secretary-backend/internal/transcript"
	"github.com/gin-gonic/gin"
)

type TranscriptHandler struct {
	integrator *transcript.Integrator
	log        *logger.Logger
}

func NewTranscriptHandler(integrator *transcript.Integrator, baseLog *logger.Logger) *TranscriptHandler {
	return &TranscriptHandler{
		integrator: integrator,
		log:        baseLog.With("handler", "TranscriptHandler"),
	}
}

type processTranscriptRequest struct {
	Text string `json:"text" binding:"required"`
	Type string `json:"type" binding:"required"`
	Date string `json:"date" binding:"required"`
	Name string `json:"name"`
	AsOf string `json:"as_of"`
}

// Process ingests one transcript: POST /api/transcripts.
func (h *TranscriptHandler) Process(c *gin.Context) {
	var req processTranscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, response.CodeInvalidRequest, err)
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, response.CodeInvalidDate, err)
		return
	}

	var asOf time.Time
	if req.AsOf != "" {
		asOf, err = time.Parse("2006-01-02", req.AsOf)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, response.CodeInvalidAsOf, err)
			return
		}
	}

	report, err := h.integrator.Process(c.Request.Context(), transcript.Request{
		Text: req.Text,
		Meeting: transcript.MeetingMeta{
			Type: req.Type,
			Date: date,
			Name: req.Name,
		},
		AsOf: asOf,
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrInvalidArgument) {
			response.RespondError(c, http.StatusBadRequest, response.CodeInvalidRequest, err)
			return
		}
		var exErr *transcript.ExtractionError
		if errors.As(err, &exErr) {
			response.RespondError(c, http.StatusUnprocessableEntity, response.CodeExtractionFailed, err)
			return
		}
		h.log.Error("Transcript processing failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, response.CodeProcessingFailed, err)
		return
	}

	response.RespondOK(c, report)
}
