package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username  string `json:"username"   binding:"required,min=3,max=30,notblank"`
	Password  string `json:"password"   binding:"required,min=8,max=64"`
	Email     string `json:"email"      binding:"omitempty,email"`
	FirstName string `json:"first_name" binding:"omitempty,max=30"`
	LastName  string `json:"last_name"  binding:"omitempty,max=30"`
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenResponse Token 对响应
type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"` // Access Token 有效期（秒）
	User         UserResponse `json:"user"`
}
