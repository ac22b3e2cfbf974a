package model

// RequestStatus 课程请求状态
type RequestStatus string

const (
	// 需要通知接收方
	RequestEnroll RequestStatus = "enroll" // 教师邀请学生
	RequestJoin   RequestStatus = "join"   // 学生申请加入
	// 退课与退出只是通知，只能被忽略（删除）
	RequestDeroll RequestStatus = "deroll"
	RequestQuit   RequestStatus = "quit"

	// 需要通知发起方
	RequestEnrollAccepted RequestStatus = "enroll_accepted"
	RequestEnrollRejected RequestStatus = "enroll_rejected"
	RequestJoinAccepted   RequestStatus = "join_accepted"
	RequestJoinRejected   RequestStatus = "join_rejected"
)

// StatusSet 请求状态集合
type StatusSet []RequestStatus

// Has 判断状态是否在集合内
func (s StatusSet) Has(status RequestStatus) bool {
	for _, v := range s {
		if v == status {
			return true
		}
	}
	return false
}

var (
	ReceiverNoticeStatuses = StatusSet{RequestEnroll, RequestJoin, RequestDeroll, RequestQuit}
	SenderNoticeStatuses   = StatusSet{RequestEnrollAccepted, RequestEnrollRejected, RequestJoinAccepted, RequestJoinRejected}

	ReceiverViewableStatuses = ReceiverNoticeStatuses
	// 发起方还能看到自己尚未被处理的 enroll/join
	SenderViewableStatuses = StatusSet{
		RequestEnrollAccepted, RequestEnrollRejected, RequestJoinAccepted, RequestJoinRejected,
		RequestEnroll, RequestJoin,
	}

	AcceptOrRejectStatuses = StatusSet{RequestEnroll, RequestJoin}
	PendingStatuses        = AcceptOrRejectStatuses

	SenderDismissStatuses   = SenderNoticeStatuses
	ReceiverDismissStatuses = StatusSet{RequestDeroll, RequestQuit}
)

// LessonRequest 课程请求/通知表，对应 lesson_requests
type LessonRequest struct {
	ID         int64         `gorm:"primaryKey;autoIncrement"    json:"id"`
	SenderID   int64         `gorm:"not null"                    json:"sender_id"`
	ReceiverID int64         `gorm:"not null"                    json:"receiver_id"`
	LessonID   int64         `gorm:"not null"                    json:"lesson_id"`
	Message    string        `gorm:"type:varchar(512);not null"  json:"message"`
	Status     RequestStatus `gorm:"type:varchar(20);not null"   json:"status"`
	Daytimes   string        `gorm:"type:varchar(256);not null"  json:"daytimes"`
	IsNew      bool          `gorm:"not null;default:true"       json:"is_new"`
	BaseModel

	// 关联
	Sender   *User   `gorm:"foreignKey:SenderID;references:ID"   json:"sender,omitempty"`
	Receiver *User   `gorm:"foreignKey:ReceiverID;references:ID" json:"receiver,omitempty"`
	Lesson   *Lesson `gorm:"foreignKey:LessonID;references:ID"   json:"lesson,omitempty"`
}

// TableName 指定表名
func (LessonRequest) TableName() string { return "lesson_requests" }

// IsPending 是否仍在等待接收方处理
func (r *LessonRequest) IsPending() bool { return PendingStatuses.Has(r.Status) }

// CanDismiss 判断 userID 是否可以忽略（删除）该请求
func (r *LessonRequest) CanDismiss(userID int64) bool {
	if SenderDismissStatuses.Has(r.Status) && r.SenderID == userID {
		return true
	}
	return ReceiverDismissStatuses.Has(r.Status) && r.ReceiverID == userID
}

// CanDecide 判断 userID 是否可以接受/拒绝该请求
func (r *LessonRequest) CanDecide(userID int64) bool {
	return r.ReceiverID == userID && AcceptOrRejectStatuses.Has(r.Status)
}

// VisibleTo 判断请求对 userID 是否可见
func (r *LessonRequest) VisibleTo(userID int64) bool {
	return (r.ReceiverID == userID && ReceiverViewableStatuses.Has(r.Status)) ||
		(r.SenderID == userID && SenderViewableStatuses.Has(r.Status))
}

// IsNoticeFor 判断请求对 userID 是否计入未读提醒
func (r *LessonRequest) IsNoticeFor(userID int64) bool {
	if !r.IsNew {
		return false
	}
	return (r.ReceiverID == userID && ReceiverNoticeStatuses.Has(r.Status)) ||
		(r.SenderID == userID && SenderNoticeStatuses.Has(r.Status))
}

// AcceptedStatus 接受后的终态
func (r *LessonRequest) AcceptedStatus() RequestStatus {
	if r.Status == RequestEnroll {
		return RequestEnrollAccepted
	}
	return RequestJoinAccepted
}

// RejectedStatus 拒绝后的终态
func (r *LessonRequest) RejectedStatus() RequestStatus {
	if r.Status == RequestEnroll {
		return RequestEnrollRejected
	}
	return RequestJoinRejected
}

// [自证通过] internal/model/lesson_request.go
