package middleware

import (
	"log/slog"
	"stock-service/app/domain"
	"stock-service/app/handler/api/response"
	"stock-service/config"
	"stock-service/pkg"
	"stock-service/pkg/ctxutil"

	"github.com/gofiber/fiber/v2"
)

type AuthInternalHeader string

const (
	AuthInternalHeaderKey AuthInternalHeader = "X-Internal-Auth"
)

func AuthInternal(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(string(AuthInternalHeaderKey))
		if authHeader == "" || authHeader != cfg.InternalAuthHeader {
			slog.WarnContext(c.UserContext(), "[middleware] AuthInternal", "header", "invalid")
			return c.Status(fiber.StatusUnauthorized).JSON(response.Error(domain.ErrUnauthorized))
		}

		return c.Next()
	}
}

// Auth validates the bearer token and puts the tenant (sid claim) and actor (uid claim) on the user context.
func Auth(secretKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		token, err := pkg.GetTokenFromHeaders(c.Get("Authorization"))
		if err != nil {
			slog.ErrorContext(ctx, "[middleware] Auth", "GetTokenFromHeaders", err)
			return c.Status(fiber.StatusUnauthorized).JSON(response.Error(domain.ErrUnauthorized))
		}

		claims, err := pkg.ParseJwtToken(token, secretKey)
		if err != nil {
			slog.ErrorContext(ctx, "[middleware] Auth", "ParseJwtToken", err)
			return c.Status(fiber.StatusUnauthorized).JSON(response.Error(domain.ErrUnauthorized))
		}

		if claims.UID == 0 {
			slog.ErrorContext(ctx, "[middleware] Auth", "userID", "0")
			return c.Status(fiber.StatusUnauthorized).JSON(response.Error(domain.ErrUnauthorized))
		}

		if claims.SID == nil || *claims.SID == 0 {
			slog.ErrorContext(ctx, "[middleware] Auth", "tenantID", "nil")
			return c.Status(fiber.StatusUnauthorized).JSON(response.Error(domain.ErrUnauthorized))
		}

		ctx = ctxutil.WithActorID(ctx, claims.UID)
		ctx = ctxutil.WithTenantID(ctx, *claims.SID)
		c.SetUserContext(ctx)
		return c.Next()
	}
}
