package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/service-marketplace/internal/http/response"
	"github.com/ignatzorin/service-marketplace/internal/logger"
	"github.com/ignatzorin/service-marketplace/internal/pkg/apperror"
)

// ErrorHandler отвечает клиенту по последней ошибке из c.Errors.
// Причина внутренних ошибок пишется в лог и наружу не попадает.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		code := apperror.CodeOf(err)
		entry := logger.Log.WithFields(logrus.Fields{
			"path":   c.FullPath(),
			"method": c.Request.Method,
			"code":   code,
		}).WithError(err)

		if code == apperror.ErrCodeInternal {
			entry.Error("ошибка обработки запроса")
		} else {
			entry.Debug("запрос отклонён")
		}

		if c.Writer.Written() {
			return
		}
		response.Error(c, err)
	}
}

// Recovery превращает panic в ответ 500 в общем формате.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger.Log.WithFields(logrus.Fields{
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
			"panic":  recovered,
		}).Error("panic при обработке запроса")
		response.Abort(c, apperror.Internal(nil))
	})
}
