package router

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/smartcargo-next/internal/authz"
	"github.com/smartcargo-next/internal/cache"
	"github.com/smartcargo-next/internal/config"
	"github.com/smartcargo-next/internal/http/response"
	"github.com/smartcargo-next/internal/logger"
	"github.com/smartcargo-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
	userIDKey       = "user_id"
	userRoleKey     = "user_role"
	usernameKey     = "username"
)

// tokenResolver 令牌解析与账号状态校验
type tokenResolver interface {
	ParseJWT(tokenString string) (*service.JWTClaims, error)
	ResolveAuthState(ctx context.Context, claims *service.JWTClaims) (*cache.UserAuthState, error)
}

// CORSMiddleware 跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	allowedMethods := cfg.AllowedMethods
	if len(allowedMethods) == 0 {
		allowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	allowedHeaders := cfg.AllowedHeaders
	if len(allowedHeaders) == 0 {
		allowedHeaders = []string{
			"Content-Type",
			"Content-Length",
			"Authorization",
			"X-Requested-With",
			requestIDHeader,
		}
	}
	methodsHeader := strings.Join(allowedMethods, ", ")
	headersHeader := strings.Join(allowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowedOrigin := resolveAllowedOrigin(origin, allowedOrigins, cfg.AllowCredentials)
		if allowedOrigin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			if allowedOrigin != "*" {
				c.Writer.Header().Add("Vary", "Origin")
			}
		}
		if cfg.AllowCredentials {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", headersHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", methodsHeader)
		if cfg.MaxAge > 0 {
			c.Writer.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func resolveAllowedOrigin(origin string, allowedOrigins []string, allowCredentials bool) string {
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			if allowCredentials && origin != "" {
				return origin
			}
			return "*"
		}
	}
	if origin == "" {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// RequestIDMiddleware 请求 ID 中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware 结构化请求日志中间件
func LoggerMiddleware(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.L()
	}
	sugar := log.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := sugar.With(
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if userID, ok := c.Get(userIDKey); ok {
			entry = entry.With("user_id", userID)
		}
		if len(c.Errors) > 0 {
			entry.Errorw("request", "errors", c.Errors.String())
			return
		}
		entry.Infow("request")
	}
}

// JWTAuthMiddleware 校验 Bearer 令牌并写入 user_id / user_role
// 角色取自账号当前状态快照，令牌版本不一致视为已吊销
func JWTAuthMiddleware(resolver tokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if resolver == nil {
			response.Unauthorized(c, service.ErrInvalidToken.Message)
			c.Abort()
			return
		}
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			response.Unauthorized(c, service.ErrUnauthenticated.Message)
			c.Abort()
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Unauthorized(c, "Authorization header must be Bearer token")
			c.Abort()
			return
		}

		claims, err := resolver.ParseJWT(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Unauthorized(c, service.ErrInvalidToken.Message)
			c.Abort()
			return
		}
		state, err := resolver.ResolveAuthState(c.Request.Context(), claims)
		if err != nil {
			if service.KindOf(err) == 0 && !service.IsTokenError(err) {
				logger.Errorw("auth_state_resolve_failed",
					"user_id", claims.UserID,
					"request_id", c.GetString(requestIDKey),
					"error", err,
				)
				response.Error(c, response.CodeInternal, "Internal server error")
				c.Abort()
				return
			}
			// 停用与待审核账号的旧令牌一律按未认证处理
			msg := service.ErrInvalidToken.Message
			var svcErr *service.Error
			if errors.As(err, &svcErr) {
				msg = svcErr.Message
			}
			response.Unauthorized(c, msg)
			c.Abort()
			return
		}

		c.Set(userIDKey, state.UserID)
		c.Set(userRoleKey, state.Role)
		c.Set(usernameKey, claims.Username)
		c.Next()
	}
}

// RoleAuthzMiddleware 基于 Casbin 的角色路由授权
func RoleAuthzMiddleware(authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authzService == nil {
			logger.Errorw("role_authz_service_unavailable")
			response.Forbidden(c, service.ErrForbidden.Message)
			c.Abort()
			return
		}
		role := strings.TrimSpace(c.GetString(userRoleKey))
		if role == "" {
			response.Unauthorized(c, service.ErrUnauthenticated.Message)
			c.Abort()
			return
		}

		resource := c.FullPath()
		if strings.TrimSpace(resource) == "" {
			resource = c.Request.URL.Path
		}

		allowed, err := authzService.EnforceRole(role, resource, c.Request.Method)
		if err != nil {
			logger.Errorw("role_authz_enforce_failed",
				"role", role,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", err,
			)
			response.Forbidden(c, service.ErrForbidden.Message)
			c.Abort()
			return
		}
		if !allowed {
			logger.Warnw("role_authz_permission_denied",
				"role", role,
				"user_id", c.Value(userIDKey),
				"method", c.Request.Method,
				"resource", authz.NormalizeObject(resource),
			)
			response.Forbidden(c, service.ErrForbidden.Message)
			c.Abort()
			return
		}

		c.Next()
	}
}
