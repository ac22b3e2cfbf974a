package model

import (
	"strings"
	"time"
)

// RegStatus 注册状态
type RegStatus string

const (
	RegActive   RegStatus = "active"
	RegInactive RegStatus = "inactive"
	RegDeroll   RegStatus = "deroll"
	RegQuit     RegStatus = "quit"
	RegDeleted  RegStatus = "deleted"
)

// LessonReg 课程注册表，对应 lesson_regs
// StudentID 为空表示教师手动添加的非会员学生，此时以姓名标识
type LessonReg struct {
	ID               int64     `gorm:"primaryKey;autoIncrement"                   json:"id"`
	LessonID         int64     `gorm:"not null"                                   json:"lesson_id"`
	StudentID        *int64    `json:"student_id,omitempty"`
	StudentFirstName string    `gorm:"type:varchar(30);not null"                  json:"student_first_name"`
	StudentLastName  string    `gorm:"type:varchar(30);not null"                  json:"student_last_name"`
	Status           RegStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	Daytimes         string    `gorm:"type:varchar(256);not null"                 json:"daytimes"`
	Data             Data      `gorm:"type:jsonb"                                 json:"data,omitempty"`
	BaseModel

	// 关联
	Lesson  *Lesson `gorm:"foreignKey:LessonID;references:ID"  json:"lesson,omitempty"`
	Student *User   `gorm:"foreignKey:StudentID;references:ID" json:"student,omitempty"`
}

// TableName 指定表名
func (LessonReg) TableName() string { return "lesson_regs" }

// HasStudent 是否关联了会员账号
func (r *LessonReg) HasStudent() bool { return r.StudentID != nil }

// IsStudent 判断 userID 是否为该注册关联的学生
func (r *LessonReg) IsStudent(userID int64) bool {
	return r.StudentID != nil && *r.StudentID == userID
}

// DisplayName 关联账号优先，其次为手填姓名
func (r *LessonReg) DisplayName() string {
	if r.Student != nil {
		return r.Student.DisplayName()
	}
	return strings.TrimSpace(r.StudentFirstName + " " + r.StudentLastName)
}

// LessonRegLog 课时记录表，对应 lesson_reg_logs
// UseTime 为空表示尚未使用的课时
type LessonRegLog struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	LessonRegID int64      `gorm:"not null"                 json:"lesson_reg_id"`
	UseTime     *time.Time `json:"use_time,omitempty"`
	Data        Data       `gorm:"type:jsonb"               json:"data,omitempty"`
	BaseModel
}

// TableName 指定表名
func (LessonRegLog) TableName() string { return "lesson_reg_logs" }

// RegLogStats 单个注册的课时统计
type RegLogStats struct {
	LessonRegID int64 `json:"lesson_reg_id"`
	Total       int64 `json:"total"`
	Unused      int64 `json:"unused"`
}

// [自证通过] internal/model/lesson_reg.go
