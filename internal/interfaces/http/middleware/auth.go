package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/samvit-hq/guardrail/internal/config"
	"github.com/samvit-hq/guardrail/internal/domain/models"
	"github.com/samvit-hq/guardrail/internal/domain/service"
	"github.com/samvit-hq/guardrail/pkg/constants"
	apperrors "github.com/samvit-hq/guardrail/pkg/errors"
	"github.com/samvit-hq/guardrail/pkg/logger"
	"github.com/samvit-hq/guardrail/pkg/utils"
)

// extractBearer extracts the token from the Authorization header.
func extractBearer(authHeader string) string {
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// RequireAuth protects routes behind a valid access token. The token must be
// signed with the shared secret, carry type "access", not be individually
// revoked, and not predate a bulk revocation of its subject. On success the
// user, tenant and claims are placed in the request context for downstream
// handlers and per-user rate limit gates.
func RequireAuth(cfg *config.AuthConfig, store service.RevocationStore, log logger.Logger) gin.HandlerFunc {
	keyFunc := func(*jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}

	parseOpts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if cfg.Issuer != "" {
		parseOpts = append(parseOpts, jwt.WithIssuer(cfg.Issuer))
	}

	return func(c *gin.Context) {
		tokenStr := extractBearer(c.Request.Header.Get("Authorization"))
		if tokenStr == "" {
			abortUnauthorized(c, apperrors.ErrUnauthorized("missing bearer token"))
			return
		}

		claims := &models.AccessClaims{}
		if _, err := jwt.ParseWithClaims(tokenStr, claims, keyFunc, parseOpts...); err != nil {
			log.Warn(c.Request.Context(), "token verification failed",
				logger.String("token", utils.MaskToken(tokenStr)),
				logger.Error(err),
			)
			abortUnauthorized(c, apperrors.ErrUnauthorized("invalid token"))
			return
		}

		if claims.TokenType != constants.TokenTypeAccess {
			abortUnauthorized(c, apperrors.ErrUnauthorized("token is not an access token"))
			return
		}

		ctx := c.Request.Context()
		if store.IsRevoked(ctx, tokenStr) {
			log.Warn(ctx, "access attempt with revoked token",
				logger.String("user_id", claims.UserID()))
			abortUnauthorized(c, apperrors.ErrTokenRevoked())
			return
		}
		if store.IsIdentityRevokedSince(ctx, claims.UserID(), claims.IssuedAtUnix()) {
			log.Warn(ctx, "access attempt after bulk revocation",
				logger.String("user_id", claims.UserID()))
			abortUnauthorized(c, apperrors.ErrTokenRevoked())
			return
		}

		c.Set(string(constants.ContextKeyUserID), claims.UserID())
		c.Set(string(constants.ContextKeyTenantID), claims.TenantID)
		c.Set(string(constants.ContextKeyClaims), claims)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, err apperrors.AppError) {
	c.Header("WWW-Authenticate", `Bearer realm="guardrail"`)
	c.AbortWithStatusJSON(err.HTTPStatus(), apperrors.ToErrorResponse(err))
}
