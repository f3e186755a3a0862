package router

import (
	"crypto/subtle"
	"strconv"
	"strings"
	"time"

	"github.com/dujiao-next/checkout/internal/authz"
	"github.com/dujiao-next/checkout/internal/config"
	handlershared "github.com/dujiao-next/checkout/internal/http/handlers/shared"
	"github.com/dujiao-next/checkout/internal/http/response"
	"github.com/dujiao-next/checkout/internal/logger"
	"github.com/dujiao-next/checkout/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDKey = "request_id"
const requestIDHeader = "X-Request-ID"
const operatorKeyHeader = "X-Operator-Key"

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
			"Accept-Encoding",
			"Authorization",
			"Cache-Control",
			"X-Requested-With",
			handlershared.CartTokenHeader,
			operatorKeyHeader,
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
	if len(allowedOrigins) == 0 {
		return ""
	}
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
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.L()
	}
	sugar := logger.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log := sugar.With(
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"customer_id", handlershared.CustomerID(c),
			"operator", handlershared.OperatorName(c),
		)
		if len(c.Errors) > 0 {
			log.Errorw("request", "errors", c.Errors.String())
			return
		}
		if c.Writer.Status() >= 500 {
			log.Warnw("request")
			return
		}
		log.Infow("request")
	}
}

func getRequestID(c *gin.Context) string {
	value, ok := c.Get(requestIDKey)
	if !ok {
		return ""
	}
	if requestID, ok := value.(string); ok {
		return requestID
	}
	return ""
}

// CustomerAuthMiddleware 顾客 JWT 鉴权中间件
// required=false 时缺少令牌按游客放行，令牌存在但无效时仍拒绝。
func CustomerAuthMiddleware(authService *service.CustomerAuthService, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			if required {
				abortUnauthorized(c, "error.customer_required")
				return
			}
			c.Next()
			return
		}
		if authService == nil {
			abortUnauthorized(c, "error.token_invalid")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			abortUnauthorized(c, "error.auth_header_invalid")
			return
		}

		claims, err := authService.ParseCustomerJWT(strings.TrimSpace(parts[1]))
		if err != nil {
			abortUnauthorized(c, "error.token_invalid")
			return
		}
		c.Set(handlershared.CustomerIDKey, claims.CustomerID)
		c.Set(handlershared.CustomerEmailKey, claims.Email)
		c.Next()
	}
}

// OperatorAuthMiddleware 运营接口鉴权：密钥识别运营主体，再按角色策略授权
// 未配置任何密钥时全部拒绝
func OperatorAuthMiddleware(keys []config.OperatorKeyConfig, authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := matchOperatorKey(keys, strings.TrimSpace(c.GetHeader(operatorKeyHeader)))
		if name == "" {
			abortUnauthorized(c, "error.operator_key_invalid")
			return
		}
		c.Set(handlershared.OperatorNameKey, name)

		if authzService == nil {
			response.Forbidden(c, handlershared.Message("error.operator_forbidden"))
			c.Abort()
			return
		}
		allowed, err := authzService.EnforceOperator(name, c.Request.URL.Path, c.Request.Method)
		if err != nil {
			logger.Errorw("operator_authz_enforce_failed",
				"operator", name,
				"path", c.Request.URL.Path,
				"error", err,
			)
			response.Forbidden(c, handlershared.Message("error.operator_forbidden"))
			c.Abort()
			return
		}
		if !allowed {
			logger.Warnw("operator_authz_denied",
				"operator", name,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
			)
			response.Forbidden(c, handlershared.Message("error.operator_forbidden"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// matchOperatorKey 常量时间比较全部密钥，返回匹配的密钥名称
func matchOperatorKey(keys []config.OperatorKeyConfig, provided string) string {
	if provided == "" {
		return ""
	}
	matched := ""
	for _, item := range keys {
		expected := strings.TrimSpace(item.Key)
		if expected == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1 && matched == "" {
			matched = item.Name
		}
	}
	return matched
}

func abortUnauthorized(c *gin.Context, key string) {
	response.Unauthorized(c, handlershared.Message(key))
	c.Abort()
}
