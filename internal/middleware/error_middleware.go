package middleware

import (
	"errors"
	"net/http"

	"storefront-support/internal/domain"
	"storefront-support/internal/locale"
	"storefront-support/internal/services"
	"storefront-support/internal/transport/httpdto"
	support_errors "storefront-support/pkg/errors"
	"storefront-support/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler renders the last error a handler attached with c.Error.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := services.HTTPStatus(err)
		if l == nil {
			l = logger.GetGlobalLogger()
		}
		if status >= http.StatusInternalServerError {
			l.ErrorCtx(c.Request.Context(), "request failed", zap.Error(err), zap.Int("status", status))
		} else {
			l.WarnCtx(c.Request.Context(), "request rejected", zap.Error(err), zap.Int("status", status))
		}

		message := err.Error()
		switch {
		case errors.Is(err, support_errors.ErrAuthenticationRequired):
			message = locale.Text(requestLanguage(c), locale.LoginRequired)
		case status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable:
			message = "internal error"
		}
		c.JSON(status, httpdto.NewErrorResponse(message, services.ErrorCode(err)))
	}
}

func requestLanguage(c *gin.Context) domain.LanguageCode {
	if lang := c.Query("language"); lang != "" {
		return domain.NormalizeLanguage(lang)
	}
	return domain.NormalizeLanguage(c.GetHeader("Accept-Language"))
}
