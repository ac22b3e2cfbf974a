package dto

// ── 课程消息模块 DTO ──

// PostMessageRequest 发布消息请求
type PostMessageRequest struct {
	Body      string                 `json:"body"       binding:"required,notblank,max=1024"`
	LessonIDs []int64                `json:"lesson_ids" binding:"required,min=1,max=50,dive,min=1"`
	Data      map[string]interface{} `json:"data"`
}

// MessageResponse 消息视图
type MessageResponse struct {
	ID        int64                  `json:"id"`
	Sender    UserBrief              `json:"sender"`
	Body      string                 `json:"body"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt string                 `json:"created_at"`
	Lessons   []LessonBrief          `json:"lessons"`
}
