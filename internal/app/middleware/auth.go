package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"inquiry-classifier/configs"
	"inquiry-classifier/pkg/logger"
	"inquiry-classifier/pkg/status"
)

// 认证信息在Context中的键名
const (
	UserIDKey = "auth_user_id"
	RoleKey   = "auth_role"
)

// RoleAdmin 管理员角色，统计等运维接口要求该角色
const RoleAdmin = "admin"

// AuthClaims JWT载荷。
// 签发方使用HS256，必须携带user_id；role缺省为普通用户。
type AuthClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware 返回JWT认证中间件。
// 认证禁用时直接放行（仅用于本地开发与测试）。
// 参数 cfg: 认证配置。
// 参数 log: 日志记录器。
func AuthMiddleware(cfg *configs.AuthConfig, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		token, err := extractBearerToken(c)
		if err != nil {
			log.WarnContext(c.Request.Context(), "认证失败：缺少或格式错误的令牌",
				"request_id", GetRequestID(c),
				"error", err.Error())
			abortWithAuthError(c, http.StatusUnauthorized, status.ErrCodeUnauthorized, "missing or malformed credentials")
			return
		}

		claims := &AuthClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !parsed.Valid {
			log.WarnContext(c.Request.Context(), "认证失败：令牌无效",
				"request_id", GetRequestID(c))
			abortWithAuthError(c, http.StatusUnauthorized, status.ErrCodeUnauthorized, "invalid or expired token")
			return
		}
		if claims.UserID == "" {
			abortWithAuthError(c, http.StatusUnauthorized, status.ErrCodeUnauthorized, "token missing user_id claim")
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

// RequireRole 返回角色校验中间件，须置于 AuthMiddleware 之后。
// 角色不符返回403。
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) != role {
			abortWithAuthError(c, http.StatusForbidden, status.ErrCodeForbidden, "insufficient permissions")
			return
		}
		c.Next()
	}
}

// GetUserID 从Context中获取认证用户ID，未认证返回空串
func GetUserID(c *gin.Context) string {
	if userID, exists := c.Get(UserIDKey); exists {
		return userID.(string)
	}
	return ""
}

// GetRole 从Context中获取认证角色
func GetRole(c *gin.Context) string {
	if role, exists := c.Get(RoleKey); exists {
		return role.(string)
	}
	return ""
}

// ClientKey 返回限流用的客户端标识。
// 认证启用时按用户隔离，否则退化为按来源IP隔离。
func ClientKey(c *gin.Context) string {
	if userID := GetUserID(c); userID != "" {
		return userID
	}
	return c.ClientIP()
}

// extractBearerToken 从Authorization头提取Bearer令牌
func extractBearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("authorization header is not a bearer token")
	}
	return parts[1], nil
}

// abortWithAuthError 以统一响应格式终止请求
func abortWithAuthError(c *gin.Context, httpStatus int, code status.StatusCode, message string) {
	c.AbortWithStatusJSON(httpStatus, gin.H{
		"success":    false,
		"code":       int(code),
		"message":    message,
		"request_id": GetRequestID(c),
		"timestamp":  time.Now().Unix(),
	})
}
