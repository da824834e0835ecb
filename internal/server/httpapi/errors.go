package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/filegroups/internal/common"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail maps err to a status and aborts the request. Internal errors are
// logged and their text is not sent to the client.
func (s *Server) fail(c *gin.Context, err error) {
	code := statusOf(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed", "route", c.FullPath(), "error", err)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(code, ErrorResponse{Error: http.StatusText(code), Message: msg})
}

func (s *Server) badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: http.StatusText(http.StatusBadRequest), Message: msg})
}
