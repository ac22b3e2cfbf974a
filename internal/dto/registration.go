package dto

import "time"

// ── 注册与课时模块 DTO ──

// RegistrationResponse 注册视图
// Total/Unused 仅对课程管理者返回
type RegistrationResponse struct {
	ID          int64                  `json:"id"`
	LessonID    int64                  `json:"lesson_id"`
	Student     *UserBrief             `json:"student,omitempty"`
	FirstName   string                 `json:"first_name"`
	LastName    string                 `json:"last_name"`
	DisplayName string                 `json:"display_name"`
	Status      string                 `json:"status"`
	Daytimes    string                 `json:"daytimes"`
	Data        map[string]interface{} `json:"data,omitempty"`
	CreatedAt   string                 `json:"created_at"`
	Total       *int64                 `json:"total,omitempty"`
	Unused      *int64                 `json:"unused,omitempty"`
}

// CreateRegLogItem 新建课时记录
type CreateRegLogItem struct {
	UseTime *time.Time             `json:"use_time"`
	Data    map[string]interface{} `json:"data"`
}

// UpdateRegLogItem 批量更新中的单条课时记录
type UpdateRegLogItem struct {
	LogID        int64                  `json:"log_id"         binding:"required,min=1"`
	UseTime      *time.Time             `json:"use_time"`
	ClearUseTime bool                   `json:"clear_use_time"`
	Data         map[string]interface{} `json:"data"`
}

// RegLogChanges 注册更新中附带的课时变更
type RegLogChanges struct {
	Create []CreateRegLogItem `json:"create" binding:"omitempty,max=500,dive"`
	Update []UpdateRegLogItem `json:"update" binding:"omitempty,max=500,dive"`
	Delete []int64            `json:"delete" binding:"omitempty,max=500,dive,min=1"`
}

// UpdateRegistrationRequest 更新注册请求，学生与课程不可变
type UpdateRegistrationRequest struct {
	Daytimes *string                `json:"daytimes" binding:"omitempty,max=256"`
	Data     map[string]interface{} `json:"data"`
	Logs     *RegLogChanges         `json:"logs"`
}

// UpdateRegistrationResponse 更新后的注册及其全部课时
type UpdateRegistrationResponse struct {
	Registration RegistrationResponse `json:"registration"`
	Logs         []RegLogResponse     `json:"logs"`
}

// CreateRegLogsRequest 批量新建课时请求
type CreateRegLogsRequest struct {
	Logs []CreateRegLogItem `json:"logs" binding:"required,min=1,max=500,dive"`
}

// UpdateRegLogRequest 更新单条课时请求
type UpdateRegLogRequest struct {
	UseTime      *time.Time             `json:"use_time"`
	ClearUseTime bool                   `json:"clear_use_time"`
	Data         map[string]interface{} `json:"data"`
}

// RegLogResponse 课时记录视图
type RegLogResponse struct {
	ID          int64                  `json:"id"`
	LessonRegID int64                  `json:"lesson_reg_id"`
	UseTime     *string                `json:"use_time"`
	Data        map[string]interface{} `json:"data,omitempty"`
	CreatedAt   string                 `json:"created_at"`
}
