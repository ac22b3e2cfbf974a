package dto

// ── 课程请求模块 DTO ──

// ActionRequest 课程请求动作
// 按 Action 使用不同字段：
//   - enroll: LessonIDs，StudentID 或 FirstName+LastName，Message/Daytimes/Data
//   - join: LessonID，Message/Daytimes
//   - deroll / quit: RegID，Message
//   - accept / reject / dismiss: RequestID
type ActionRequest struct {
	Action    string                 `json:"action"     binding:"required,oneof=enroll join deroll quit accept reject dismiss"`
	LessonIDs []int64                `json:"lesson_ids" binding:"omitempty,max=50,dive,min=1"`
	LessonID  int64                  `json:"lesson_id"  binding:"omitempty,min=1"`
	StudentID *int64                 `json:"student_id" binding:"omitempty,min=1"`
	FirstName string                 `json:"first_name" binding:"omitempty,max=30"`
	LastName  string                 `json:"last_name"  binding:"omitempty,max=30"`
	Message   string                 `json:"message"    binding:"omitempty,max=512"`
	Daytimes  string                 `json:"daytimes"   binding:"omitempty,max=256"`
	Data      map[string]interface{} `json:"data"`
	RegID     int64                  `json:"reg_id"     binding:"omitempty,min=1"`
	RequestID int64                  `json:"request_id" binding:"omitempty,min=1"`
}

// RequestResponse 课程请求视图，Actions 为当前查看者可执行的动作
type RequestResponse struct {
	ID        int64       `json:"id"`
	Sender    UserBrief   `json:"sender"`
	Receiver  UserBrief   `json:"receiver"`
	Lesson    LessonBrief `json:"lesson"`
	Message   string      `json:"message"`
	Status    string      `json:"status"`
	Daytimes  string      `json:"daytimes"`
	IsNew     bool        `json:"is_new"`
	CreatedAt string      `json:"created_at"`
	Actions   []string    `json:"actions"`
}

// ActionResult 动作结果：生成或变更的请求，或直接创建的注册
// dismiss 时两者皆空
type ActionResult struct {
	Requests      []RequestResponse      `json:"requests,omitempty"`
	Registrations []RegistrationResponse `json:"registrations,omitempty"`
}
