package dto

// ── 课程模块 DTO ──

// CreateLessonRequest 创建课程请求
type CreateLessonRequest struct {
	Name        string                 `json:"name"        binding:"required,notblank,max=60"`
	Description string                 `json:"description" binding:"omitempty,max=1000"`
	Data        map[string]interface{} `json:"data"`
}

// UpdateLessonRequest 更新课程请求，Version 为客户端持有的版本号
type UpdateLessonRequest struct {
	Name        *string                `json:"name"        binding:"omitempty,notblank,max=60"`
	Description *string                `json:"description" binding:"omitempty,max=1000"`
	Status      *string                `json:"status"      binding:"omitempty,oneof=active inactive"`
	Data        map[string]interface{} `json:"data"`
	Version     int                    `json:"version"     binding:"required,min=1"`
}

// LessonSearchRequest 课程搜索参数
type LessonSearchRequest struct {
	PaginationRequest
	Q string `form:"q" binding:"omitempty,max=60"`
}

// LessonResponse 课程响应
type LessonResponse struct {
	ID          int64                  `json:"id"`
	Teacher     *UserBrief             `json:"teacher,omitempty"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Status      string                 `json:"status"`
	Data        map[string]interface{} `json:"data,omitempty"`
	Version     int                    `json:"version"`
	NRegs       int64                  `json:"nregs"`
	CreatedAt   string                 `json:"created_at"`
}

// LessonBrief 嵌入其他响应中的课程摘要
type LessonBrief struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MyLessonsResponse 我教授与我学习的课程
type MyLessonsResponse struct {
	Teach []LessonResponse `json:"teach"`
	Study []LessonResponse `json:"study"`
}
