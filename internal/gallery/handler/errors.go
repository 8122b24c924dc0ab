package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/narwhalmedia/gallery/pkg/errors"
	"github.com/narwhalmedia/gallery/pkg/interfaces"
	"github.com/narwhalmedia/gallery/pkg/logger"
)

// StatusCode maps an application error onto an HTTP status.
func StatusCode(err error) int {
	switch errors.TypeOf(err) {
	case errors.ErrorTypeBadRequest:
		return http.StatusBadRequest
	case errors.ErrorTypeNotFound:
		return http.StatusNotFound
	case errors.ErrorTypeConflict:
		return http.StatusConflict
	case errors.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrorTypeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// ErrorMiddleware renders the last error a handler attached with c.Error.
// Client errors carry their message, everything else a generic one; the
// details of server errors only reach the logs.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		code := StatusCode(err)
		if code >= http.StatusInternalServerError {
			logger.ForRequest(c.Request.Context()).Error("Request failed",
				interfaces.String("type", string(errors.TypeOf(err))),
				interfaces.Error(err),
			)
		}
		c.JSON(code, gin.H{"error": errors.PublicMessage(err)})
	}
}
