package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes the API returns. Handlers pick from this set so clients
// can switch on code instead of parsing messages.
const (
	CodeInvalidRequest   = "invalid_request"
	CodeInvalidDate      = "invalid_date"
	CodeInvalidAsOf      = "invalid_as_of"
	CodeExtractionFailed = "extraction_failed"
	CodeProcessingFailed = "processing_failed"
	CodeChatFailed       = "chat_failed"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// DataEnvelope wraps every successful response so the top-level shape
// is the same for transcript reports and chat turns.
type DataEnvelope struct {
	Data any `json:"data"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, DataEnvelope{Data: payload})
}
