package shared

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// 上下文键与请求头
const (
	CustomerIDKey    = "customer_id"
	CustomerEmailKey = "customer_email"
	CartTokenHeader  = "X-Cart-Token"
	OperatorNameKey  = "operator_name"
)

// OperatorName 读取运营密钥名称
func OperatorName(c *gin.Context) string {
	return c.GetString(OperatorNameKey)
}

// CustomerID 读取已登录顾客 ID，游客返回 0
func CustomerID(c *gin.Context) uint {
	value, exists := c.Get(CustomerIDKey)
	if !exists {
		return 0
	}
	switch v := value.(type) {
	case uint:
		return v
	case int:
		if v > 0 {
			return uint(v)
		}
	case float64:
		if v > 0 {
			return uint(v)
		}
	}
	return 0
}

// CartToken 读取游客购物车令牌
func CartToken(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(CartTokenHeader))
}

// ParseUintParam 解析正整数路径参数
func ParseUintParam(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		return 0, false
	}
	return uint(value), true
}
