package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/storefront-api/internal/apperror"
	"github.com/prperemyshlev/storefront-api/internal/domain"
	"github.com/prperemyshlev/storefront-api/internal/service"
	"go.uber.org/zap"
)

// RequireAccount validates the bearer token, reloads the account and gates it by role.
// Inactive accounts pass only when allowInactive is set, which is never the case for admins.
func RequireAccount(authService service.AuthService, role domain.Role, allowInactive bool, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			respondError(c, logger, apperror.ErrUnauthenticated)
			return
		}

		account, err := authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		if account.Role != role {
			respondError(c, logger, apperror.ErrForbidden)
			return
		}

		if !account.IsActive && (!allowInactive || role == domain.RoleAdmin) {
			respondError(c, logger, apperror.ErrAccountInactive)
			return
		}

		c.Set(ctxAccount, account)
		c.Set(ctxUserID, account.ID)
		c.Set(ctxRole, account.Role)
		c.Set(ctxAccessToken, token)

		c.Next()
	}
}

// bearerToken extracts the token from "Bearer <token>"
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
