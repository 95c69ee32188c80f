package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/storefront-api/internal/apperror"
	"github.com/prperemyshlev/storefront-api/internal/domain"
	"go.uber.org/zap"
)

// Context keys set by RequireAccount
const (
	ctxAccount     = "account"
	ctxUserID      = "user_id"
	ctxRole        = "role"
	ctxAccessToken = "access_token"
)

// respond writes the {error, message, ...payload} envelope
func respond(c *gin.Context, status int, message string, payload gin.H) {
	body := gin.H{"error": false, "message": message}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

// respondError maps err to its status; causes of internal errors are logged, never returned
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	appErr := apperror.From(err)
	status := appErr.Status()

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}

	body := gin.H{
		"error":   true,
		"message": appErr.Message,
		"kind":    appErr.Kind,
	}
	if appErr.Details != nil {
		if details, ok := appErr.Details.(map[string]int); ok {
			for k, v := range details {
				body[k] = v
			}
		} else {
			body["details"] = appErr.Details
		}
	}

	c.AbortWithStatusJSON(status, body)
}

// currentAccount returns the account stored by RequireAccount
func currentAccount(c *gin.Context) *domain.Account {
	v, ok := c.Get(ctxAccount)
	if !ok {
		return nil
	}
	account, _ := v.(*domain.Account)
	return account
}
