package dto

// ── 用户模块 DTO ──

// UserSearchRequest 用户搜索参数
type UserSearchRequest struct {
	Q string `form:"q" binding:"required,notblank,max=50"`
}

// UserResponse 用户信息响应（脱敏）
type UserResponse struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Website     string `json:"website,omitempty"`
	IsAdmin     bool   `json:"is_admin"`
	CreatedAt   string `json:"created_at"`
}

// UserBrief 嵌入其他响应中的用户摘要
type UserBrief struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}
