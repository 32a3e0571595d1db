package auth

import "errors"

// 认证相关错误定义
var (
	// JWT Token 错误
	ErrMissingToken         = errors.New("missing authorization token")
	ErrInvalidTokenFormat   = errors.New("invalid token format")
	ErrInvalidToken         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token expired")
	ErrTokenRevoked         = errors.New("token revoked")
	ErrInvalidSigningMethod = errors.New("invalid signing method")
	ErrNotRefreshToken      = errors.New("not a refresh token")

	// 管理员认证错误
	ErrInvalidAdminToken = errors.New("invalid admin token")
	ErrAdminAuthDisabled = errors.New("admin authentication is disabled")
)
