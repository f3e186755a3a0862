package service

import (
	"errors"
	"time"

	"github.com/dujiao-next/checkout/internal/config"
	"github.com/dujiao-next/checkout/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// ErrCustomerTokenInvalid 顾客令牌无效
var ErrCustomerTokenInvalid = errors.New("customer token invalid")

// CustomerAuthService 顾客令牌签发与校验（账号体系由外部维护）
type CustomerAuthService struct {
	cfg config.JWTConfig
}

// NewCustomerAuthService 创建顾客令牌服务
func NewCustomerAuthService(cfg config.JWTConfig) *CustomerAuthService {
	return &CustomerAuthService{cfg: cfg}
}

// CustomerJWTClaims 顾客 JWT 声明
type CustomerJWTClaims struct {
	CustomerID uint   `json:"customer_id"`
	Email      string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateCustomerJWT 生成顾客 JWT Token
func (s *CustomerAuthService) GenerateCustomerJWT(customer *models.Customer) (string, time.Time, error) {
	if customer == nil || customer.ID == 0 {
		return "", time.Time{}, ErrCustomerTokenInvalid
	}
	hours := s.cfg.ExpireHours
	if hours <= 0 {
		hours = 168
	}
	now := time.Now()
	expiresAt := now.Add(time.Duration(hours) * time.Hour)
	claims := CustomerJWTClaims{
		CustomerID: customer.ID,
		Email:      customer.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseCustomerJWT 解析顾客 JWT Token
func (s *CustomerAuthService) ParseCustomerJWT(tokenString string) (*CustomerJWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &CustomerJWTClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*CustomerJWTClaims); ok && token.Valid && claims.CustomerID != 0 {
		return claims, nil
	}
	return nil, ErrCustomerTokenInvalid
}
