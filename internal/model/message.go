package model

import "time"

// Message 课程消息表，对应 messages
type Message struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"           json:"id"`
	SenderID  int64     `gorm:"not null"                           json:"sender_id"`
	Body      string    `gorm:"type:varchar(1024);not null"        json:"body"`
	Data      Data      `gorm:"type:jsonb"                         json:"data,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	// 关联
	Sender *User `gorm:"foreignKey:SenderID;references:ID" json:"sender,omitempty"`
}

// TableName 指定表名
func (Message) TableName() string { return "messages" }

// LessonMessage 消息与课程的多对多关联，对应 lesson_messages
type LessonMessage struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"           json:"id"`
	LessonID  int64     `gorm:"not null"                           json:"lesson_id"`
	MessageID int64     `gorm:"not null"                           json:"message_id"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	// 关联
	Lesson  *Lesson  `gorm:"foreignKey:LessonID;references:ID"  json:"lesson,omitempty"`
	Message *Message `gorm:"foreignKey:MessageID;references:ID" json:"message,omitempty"`
}

// TableName 指定表名
func (LessonMessage) TableName() string { return "lesson_messages" }
