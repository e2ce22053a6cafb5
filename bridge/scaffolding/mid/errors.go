package mid

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jrazmi/growlog/bridge/scaffolding/fopbridge"
	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/sdk/logger"
)

// Response codes for errors without a known request code.
const (
	CodeInvalidArgument = "invalid_argument"
	CodeNotFound        = "not_found"
	CodeUnimplemented   = "unimplemented"
	CodeUnavailable     = "unavailable"
	CodeDeadline        = "deadline_exceeded"
	CodeInternal        = "internal"
)

// StatusOf maps a delegate error onto an HTTP status and response body.
// Internal failures keep their detail out of the body.
func StatusOf(err error) (int, fopbridge.CodeResponse) {
	var (
		known *repositories.KnownRequestError
		valid *repositories.ValidationError
		init  *repositories.InitializationError
		eng   *repositories.EngineError
	)
	switch {
	case errors.As(err, &valid):
		return http.StatusBadRequest, fopbridge.CodeResponse{
			Code:    CodeInvalidArgument,
			Message: valid.Error(),
			Meta:    map[string]any{"path": valid.Path},
		}
	case errors.Is(err, repositories.ErrValidation):
		return http.StatusBadRequest, fopbridge.NewCodeResponse(CodeInvalidArgument, err.Error())
	case errors.As(err, &known):
		body := fopbridge.CodeResponse{Code: known.Code, Message: known.Message, Meta: known.Meta}
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return http.StatusNotFound, body
		case errors.Is(err, repositories.ErrUniqueViolation), errors.Is(err, repositories.ErrForeignKeyViolation):
			return http.StatusConflict, body
		case errors.Is(err, repositories.ErrTransactionTimeout):
			return http.StatusGatewayTimeout, body
		}
		return http.StatusConflict, body
	case errors.Is(err, repositories.ErrNotFound):
		return http.StatusNotFound, fopbridge.NewCodeResponse(CodeNotFound, err.Error())
	case errors.Is(err, repositories.ErrOperationNotSupported):
		return http.StatusNotImplemented, fopbridge.NewCodeResponse(CodeUnimplemented, err.Error())
	case errors.As(err, &init), errors.As(err, &eng):
		return http.StatusServiceUnavailable, fopbridge.NewCodeResponse(CodeUnavailable, "Service Unavailable")
	}
	return http.StatusInternalServerError, fopbridge.NewCodeResponse(CodeInternal, "Internal Server Error")
}

// Errors renders the last error a handler attached with c.Error.
func Errors(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		status, body := StatusOf(err)

		if status >= http.StatusInternalServerError {
			log.ErrorContext(c.Request.Context(), "handled error during request",
				"err", err,
				"route", c.FullPath(),
				"trace_id", GetRequestID(c))
		} else {
			log.DebugContext(c.Request.Context(), "request rejected",
				"err", err,
				"status", status,
				"trace_id", GetRequestID(c))
		}

		if c.Writer.Written() {
			return
		}
		c.AbortWithStatusJSON(status, body)
	}
}
