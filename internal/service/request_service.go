package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"levelhub/internal/dto"
	"levelhub/internal/model"
	"levelhub/internal/policy"
	"levelhub/internal/repository"
	pkgerrors "levelhub/pkg/errors"
)

// ── 课程请求模块业务错误 ──

var (
	ErrInvalidAction      = pkgerrors.BadRequest(40000, "无效的动作")
	ErrMissingLessons     = pkgerrors.BadRequest(40016, "缺少目标课程")
	ErrLessonNotActive    = pkgerrors.BadRequest(40010, "课程未开放报名")
	ErrAlreadyEnrolled    = pkgerrors.BadRequest(40011, "学生已在该课程中")
	ErrDuplicateRequest   = pkgerrors.BadRequest(40012, "已存在相同的待处理请求")
	ErrNotDecidable       = pkgerrors.BadRequest(40013, "该请求只能被忽略")
	ErrNotDismissible     = pkgerrors.BadRequest(40019, "待处理的请求只能接受或拒绝")
	ErrJoinOwnLesson      = pkgerrors.BadRequest(40014, "不能加入自己教授的课程")
	ErrMissingStudentName = pkgerrors.BadRequest(40015, "非会员学生必须填写姓和名")
	ErrRegNotActive       = pkgerrors.BadRequest(40017, "该注册已不在有效状态")
	ErrEnrollSelf         = pkgerrors.BadRequest(40018, "不能邀请自己或课程教师")
	ErrMissingTarget      = pkgerrors.BadRequest(40020, "缺少目标注册或请求")

	ErrStudentNotFound = pkgerrors.NotFound(40403, "学生不存在")
	ErrRequestNotFound = pkgerrors.NotFound(40402, "请求不存在")

	ErrNotRequestReceiver = pkgerrors.Forbidden(40302, "只有请求接收方可以处理该请求")
	ErrNotDismisser       = pkgerrors.Forbidden(40303, "无权忽略该请求")
	ErrNotRegStudent      = pkgerrors.Forbidden(40304, "只有注册学生本人可以退出")
)

// RequestService 课程请求生命周期
//
// 每个动作在单个事务中完成，事务开始即锁定相关课程行；
// 所有前置检查完成之后才会写入，任一检查失败不留下任何变更。
type RequestService interface {
	// Submit 按动作名分派
	Submit(ctx context.Context, ident Identity, req *dto.ActionRequest) (*dto.ActionResult, error)
	Enroll(ctx context.Context, ident Identity, req *dto.ActionRequest) (*dto.ActionResult, error)
	Join(ctx context.Context, ident Identity, req *dto.ActionRequest) (*dto.ActionResult, error)
	Deroll(ctx context.Context, ident Identity, req *dto.ActionRequest) (*dto.ActionResult, error)
	Quit(ctx context.Context, ident Identity, req *dto.ActionRequest) (*dto.ActionResult, error)
	Accept(ctx context.Context, ident Identity, requestID int64) (*dto.ActionResult, error)
	Reject(ctx context.Context, ident Identity, requestID int64) (*dto.ActionResult, error)
	Dismiss(ctx context.Context, ident Identity, requestID int64) error
	// List 列出可见请求并将其标记为已读（发起方仍在等待处理的请求除外）
	List(ctx context.Context, ident Identity) ([]dto.RequestResponse, error)
}

type requestService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewRequestService 创建 RequestService 实例
func NewRequestService(repo *repository.Repository, logger *zap.Logger) RequestService {
	return &requestService{repo: repo, logger: logger}
}

func (s *requestService) Submit(ctx context.Context, ident Identity, req *dto.ActionRequest) (*dto.ActionResult, error) {
	switch policy.Action(req.Action) {
	case policy.ActionEnroll:
		return s.Enroll(ctx, ident, req)
	case policy.ActionJoin:
		return s.Join(ctx, ident, req)
	case policy.ActionDeroll:
		return s.Deroll(ctx, ident, req)
	case policy.ActionQuit:
		return s.Quit(ctx, ident, req)
	case policy.ActionAccept:
		return s.Accept(ctx, ident, req.RequestID)
	case policy.ActionReject:
		return s.Reject(ctx, ident, req.RequestID)
	case policy.ActionDismiss:
		if err := s.Dismiss(ctx, ident, req.RequestID); err != nil {
			return nil, err
		}
		return &dto.ActionResult{}, nil
	default:
		return nil, ErrInvalidAction
	}
}

// ────────────────────── Enroll ──────────────────────

// Enroll 教师邀请学生
// 指定 student_id 时为每个课程创建 enroll 请求；否则直接为非会员学生创建有效注册
func (s *requestService) Enroll(ctx context.Context, ident Identity, req *dto.ActionRequest) (*dto.ActionResult, error) {
	ids := req.LessonIDs
	if len(ids) == 0 && req.LessonID > 0 {
		ids = []int64{req.LessonID}
	}
	ids = normalizeIDs(ids)
	if len(ids) == 0 {
		return nil, ErrMissingLessons
	}

	member := req.StudentID != nil
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	if !member && (firstName == "" || lastName == "") {
		return nil, ErrMissingStudentName
	}

	sender, err := s.repo.User.GetByID(ctx, ident.UserID)
	if err != nil {
		s.logger.Error("查询发起人失败", zap.Int64("user_id", ident.UserID), zap.Error(err))
		return nil, err
	}

	var student *model.User
	if member {
		if *req.StudentID == ident.UserID {
			return nil, ErrEnrollSelf
		}
		student, err = s.repo.User.GetByID(ctx, *req.StudentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrStudentNotFound
			}
			s.logger.Error("查询学生失败", zap.Int64("student_id", *req.StudentID), zap.Error(err))
			return nil, err
		}
	}

	result := &dto.ActionResult{}
	err = runInTx(ctx, s.repo, s.logger, func(tx *repository.Repository) error {
		// 第一阶段：逐课程检查，不做任何写入
		lessons := make([]*model.Lesson, 0, len(ids))
		for _, id := range ids {
			lesson, err := lockLesson(ctx, tx, id)
			if err != nil {
				return err
			}
			role, err := RoleOfLesson(ctx, tx, ident, lesson)
			if err != nil {
				return err
			}
			if !policy.Allow(policy.ActionEnroll, policy.Subject{Role: role}) {
				return ErrNotLessonManager
			}
			if member {
				if student.ID == lesson.TeacherID {
					return ErrEnrollSelf
				}
				if err := s.checkNotEnrolled(ctx, tx, lesson.ID, student.ID); err != nil {
					return err
				}
				if err := s.checkNoPending(ctx, tx, sender.ID, student.ID, lesson.ID); err != nil {
					return err
				}
			}
			lessons = append(lessons, lesson)
		}

		// 第二阶段：写入
		for _, lesson := range lessons {
			if !member {
				reg := &model.LessonReg{
					LessonID:         lesson.ID,
					StudentFirstName: firstName,
					StudentLastName:  lastName,
					Status:           model.RegActive,
					Daytimes:         req.Daytimes,
					Data:             req.Data,
				}
				if err := tx.LessonReg.Create(ctx, reg); err != nil {
					s.logger.Error("创建非会员注册失败", zap.Int64("lesson_id", lesson.ID), zap.Error(err))
					return err
				}
				reg.Lesson = lesson
				result.Registrations = append(result.Registrations, toRegistrationResponse(reg))
				continue
			}

			r := &model.LessonRequest{
				SenderID:   sender.ID,
				ReceiverID: student.ID,
				LessonID:   lesson.ID,
				Message:    req.Message,
				Status:     model.RequestEnroll,
				Daytimes:   req.Daytimes,
				IsNew:      true,
			}
			if err := tx.LessonRequest.Create(ctx, r); err != nil {
				if errors.Is(err, repository.ErrDuplicateKey) {
					return ErrDuplicateRequest
				}
				s.logger.Error("创建 enroll 请求失败", zap.Int64("lesson_id", lesson.ID), zap.Error(err))
				return err
			}
			r.Sender, r.Receiver, r.Lesson = sender, student, lesson
			result.Requests = append(result.Requests, toRequestResponse(r, ident.UserID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("enroll 完成",
		zap.Int64("sender_id", ident.UserID),
		zap.Int64s("lesson_ids", ids),
		zap.Bool("member", member),
	)
	return result, nil
}

// ────────────────────── Join ──────────────────────

// Join 学生申请加入课程，请求发往课程教师
func (s *requestService) Join(ctx context.Context, ident Identity, req *dto.ActionRequest) (*dto.ActionResult, error) {
	lessonID := req.LessonID
	if lessonID == 0 && len(req.LessonIDs) == 1 {
		lessonID = req.LessonIDs[0]
	}
	if lessonID <= 0 {
		return nil, ErrMissingLessons
	}

	sender, err := s.repo.User.GetByID(ctx, ident.UserID)
	if err != nil {
		s.logger.Error("查询发起人失败", zap.Int64("user_id", ident.UserID), zap.Error(err))
		return nil, err
	}

	var created *model.LessonRequest
	err = runInTx(ctx, s.repo, s.logger, func(tx *repository.Repository) error {
		lesson, err := lockLesson(ctx, tx, lessonID)
		if err != nil {
			return err
		}
		if lesson.Status != model.LessonActive {
			return ErrLessonNotActive
		}
		if lesson.TeacherID == ident.UserID {
			return ErrJoinOwnLesson
		}
		if err := s.checkNotEnrolled(ctx, tx, lesson.ID, ident.UserID); err != nil {
			return err
		}
		if err := s.checkNoPending(ctx, tx, ident.UserID, lesson.TeacherID, lesson.ID); err != nil {
			return err
		}

		teacher, err := tx.User.GetByID(ctx, lesson.TeacherID)
		if err != nil {
			s.logger.Error("查询课程教师失败", zap.Int64("lesson_id", lesson.ID), zap.Error(err))
			return err
		}

		r := &model.LessonRequest{
			SenderID:   ident.UserID,
			ReceiverID: lesson.TeacherID,
			LessonID:   lesson.ID,
			Message:    req.Message,
			Status:     model.RequestJoin,
			Daytimes:   req.Daytimes,
			IsNew:      true,
		}
		if err := tx.LessonRequest.Create(ctx, r); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return ErrDuplicateRequest
			}
			s.logger.Error("创建 join 请求失败", zap.Int64("lesson_id", lesson.ID), zap.Error(err))
			return err
		}
		r.Sender, r.Receiver, r.Lesson = sender, teacher, lesson
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("join 请求已创建",
		zap.Int64("request_id", created.ID),
		zap.Int64("lesson_id", created.LessonID),
		zap.Int64("sender_id", ident.UserID),
	)
	return &dto.ActionResult{Requests: []dto.RequestResponse{toRequestResponse(created, ident.UserID)}}, nil
}

// ────────────────────── Deroll / Quit ──────────────────────

// Deroll 教师将学生移出课程；关联了账号的学生会收到 deroll 通知
func (s *requestService) Deroll(ctx context.Context, ident Identity, req *dto.ActionRequest) (*dto.ActionResult, error) {
	if req.RegID <= 0 {
		return nil, ErrMissingTarget
	}

	result := &dto.ActionResult{}
	err := runInTx(ctx, s.repo, s.logger, func(tx *repository.Repository) error {
		reg, lesson, err := lockRegLesson(ctx, tx, req.RegID)
		if err != nil {
			return err
		}
		role, err := RoleOfLesson(ctx, tx, ident, lesson)
		if err != nil {
			return err
		}
		if !policy.Allow(policy.ActionDeroll, policy.Subject{Role: role}) {
			return ErrNotLessonManager
		}
		if reg.Status != model.RegActive {
			return ErrRegNotActive
		}

		if err := tx.LessonReg.UpdateStatus(ctx, reg.ID, model.RegDeroll); err != nil {
			s.logger.Error("更新注册状态失败", zap.Int64("reg_id", reg.ID), zap.Error(err))
			return err
		}
		reg.Status = model.RegDeroll
		result.Registrations = []dto.RegistrationResponse{toRegistrationResponse(reg)}

		if !reg.HasStudent() {
			return nil
		}
		r := &model.LessonRequest{
			SenderID:   ident.UserID,
			ReceiverID: *reg.StudentID,
			LessonID:   lesson.ID,
			Message:    req.Message,
			Status:     model.RequestDeroll,
			Daytimes:   reg.Daytimes,
			IsNew:      true,
		}
		if err := tx.LessonRequest.Create(ctx, r); err != nil {
			s.logger.Error("创建 deroll 通知失败", zap.Int64("reg_id", reg.ID), zap.Error(err))
			return err
		}
		r.Receiver, r.Lesson = reg.Student, lesson
		result.Requests = []dto.RequestResponse{toRequestResponse(r, ident.UserID)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("deroll 完成", zap.Int64("reg_id", req.RegID), zap.Int64("operator_id", ident.UserID))
	return result, nil
}

// Quit 学生本人退出课程，并通知课程教师
func (s *requestService) Quit(ctx context.Context, ident Identity, req *dto.ActionRequest) (*dto.ActionResult, error) {
	if req.RegID <= 0 {
		return nil, ErrMissingTarget
	}

	result := &dto.ActionResult{}
	err := runInTx(ctx, s.repo, s.logger, func(tx *repository.Repository) error {
		reg, lesson, err := lockRegLesson(ctx, tx, req.RegID)
		if err != nil {
			return err
		}
		subject := policy.Subject{}
		if reg.IsStudent(ident.UserID) {
			subject.Relations |= policy.RelRegStudent
		}
		if !policy.Allow(policy.ActionQuit, subject) {
			return ErrNotRegStudent
		}
		if reg.Status != model.RegActive {
			return ErrRegNotActive
		}

		if err := tx.LessonReg.UpdateStatus(ctx, reg.ID, model.RegQuit); err != nil {
			s.logger.Error("更新注册状态失败", zap.Int64("reg_id", reg.ID), zap.Error(err))
			return err
		}
		reg.Status = model.RegQuit

		r := &model.LessonRequest{
			SenderID:   ident.UserID,
			ReceiverID: lesson.TeacherID,
			LessonID:   lesson.ID,
			Message:    req.Message,
			Status:     model.RequestQuit,
			Daytimes:   reg.Daytimes,
			IsNew:      true,
		}
		if err := tx.LessonRequest.Create(ctx, r); err != nil {
			s.logger.Error("创建 quit 通知失败", zap.Int64("reg_id", reg.ID), zap.Error(err))
			return err
		}
		r.Sender, r.Lesson = reg.Student, lesson
		result.Registrations = []dto.RegistrationResponse{toRegistrationResponse(reg)}
		result.Requests = []dto.RequestResponse{toRequestResponse(r, ident.UserID)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("quit 完成", zap.Int64("reg_id", req.RegID), zap.Int64("student_id", ident.UserID))
	return result, nil
}

// ────────────────────── Accept / Reject ──────────────────────

func (s *requestService) Accept(ctx context.Context, ident Identity, requestID int64) (*dto.ActionResult, error) {
	return s.decide(ctx, ident, requestID, true)
}

func (s *requestService) Reject(ctx context.Context, ident Identity, requestID int64) (*dto.ActionResult, error) {
	return s.decide(ctx, ident, requestID, false)
}

// decide 接收方处理 enroll/join 请求
// 接受时为学生创建有效注册：enroll 的学生是接收方，join 的学生是发起方
// 无论接受或拒绝，请求都重新标记为新，以便发起方看到结果
func (s *requestService) decide(ctx context.Context, ident Identity, requestID int64, accept bool) (*dto.ActionResult, error) {
	if requestID <= 0 {
		return nil, ErrMissingTarget
	}
	action := policy.ActionReject
	if accept {
		action = policy.ActionAccept
	}

	result := &dto.ActionResult{}
	var to model.RequestStatus
	err := runInTx(ctx, s.repo, s.logger, func(tx *repository.Repository) error {
		r, lesson, err := s.lockRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}

		subject := policy.Subject{}
		if r.ReceiverID == ident.UserID {
			subject.Relations |= policy.RelReceiver
		}
		if !policy.Allow(action, subject) {
			return ErrNotRequestReceiver
		}
		if !r.CanDecide(ident.UserID) {
			return ErrNotDecidable
		}
		if lesson == nil {
			return ErrLessonNotFound
		}

		from := r.Status
		if accept {
			to = r.AcceptedStatus()
			studentID := r.SenderID
			if r.Status == model.RequestEnroll {
				studentID = r.ReceiverID
			}
			reg, err := s.createMemberReg(ctx, tx, lesson, studentID, r.Daytimes)
			if err != nil {
				return err
			}
			result.Registrations = []dto.RegistrationResponse{toRegistrationResponse(reg)}
		} else {
			to = r.RejectedStatus()
		}

		if err := tx.LessonRequest.Transition(ctx, r.ID, from, to); err != nil {
			if errors.Is(err, repository.ErrNoRowsAffected) {
				return ErrNotDecidable
			}
			s.logger.Error("更新请求状态失败", zap.Int64("request_id", r.ID), zap.Error(err))
			return err
		}
		r.Status, r.IsNew = to, true
		if r.Lesson == nil {
			r.Lesson = lesson
		}
		result.Requests = []dto.RequestResponse{toRequestResponse(r, ident.UserID)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("请求已处理",
		zap.Int64("request_id", requestID),
		zap.String("action", string(action)),
		zap.String("status", string(to)),
	)
	return result, nil
}

// createMemberReg 为会员学生创建有效注册，姓名取自账号
func (s *requestService) createMemberReg(ctx context.Context, tx *repository.Repository, lesson *model.Lesson, studentID int64, daytimes string) (*model.LessonReg, error) {
	if err := s.checkNotEnrolled(ctx, tx, lesson.ID, studentID); err != nil {
		return nil, err
	}
	student, err := tx.User.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}

	reg := &model.LessonReg{
		LessonID:         lesson.ID,
		StudentID:        &student.ID,
		StudentFirstName: student.FirstName,
		StudentLastName:  student.LastName,
		Status:           model.RegActive,
		Daytimes:         daytimes,
	}
	if err := tx.LessonReg.Create(ctx, reg); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrAlreadyEnrolled
		}
		s.logger.Error("创建注册失败", zap.Int64("lesson_id", lesson.ID), zap.Int64("student_id", studentID), zap.Error(err))
		return nil, err
	}
	reg.Lesson, reg.Student = lesson, student
	return reg, nil
}

// ────────────────────── Dismiss ──────────────────────

// Dismiss 删除通知或已处理的请求，这是请求唯一的删除途径
func (s *requestService) Dismiss(ctx context.Context, ident Identity, requestID int64) error {
	if requestID <= 0 {
		return ErrMissingTarget
	}

	err := runInTx(ctx, s.repo, s.logger, func(tx *repository.Repository) error {
		// 课程可能已删除，通知仍可忽略，因此只锁请求行
		r, err := tx.LessonRequest.GetByIDForUpdate(ctx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return err
		}

		subject := policy.Subject{}
		if r.CanDismiss(ident.UserID) {
			subject.Relations |= policy.RelDismisser
		}
		if !policy.Allow(policy.ActionDismiss, subject) {
			if r.ReceiverID == ident.UserID && r.IsPending() {
				return ErrNotDismissible
			}
			return ErrNotDismisser
		}

		if err := tx.LessonRequest.Delete(ctx, r.ID); err != nil {
			s.logger.Error("删除请求失败", zap.Int64("request_id", r.ID), zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("请求已忽略", zap.Int64("request_id", requestID), zap.Int64("user_id", ident.UserID))
	return nil
}

// ────────────────────── List ──────────────────────

func (s *requestService) List(ctx context.Context, ident Identity) ([]dto.RequestResponse, error) {
	reqs, err := s.repo.LessonRequest.ListVisible(ctx, ident.UserID)
	if err != nil {
		s.logger.Error("查询请求列表失败", zap.Int64("user_id", ident.UserID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.RequestResponse, 0, len(reqs))
	var seen []int64
	for i := range reqs {
		r := &reqs[i]
		result = append(result, toRequestResponse(r, ident.UserID))
		// 发起方在对方处理之前一直保留"新"标记
		if r.IsNew && !(r.SenderID == ident.UserID && r.IsPending()) {
			seen = append(seen, r.ID)
		}
	}

	if err := s.repo.LessonRequest.MarkRead(ctx, seen); err != nil {
		s.logger.Error("标记请求已读失败", zap.Int64("user_id", ident.UserID), zap.Error(err))
		return nil, err
	}
	return result, nil
}

// ────────────────────── 内部检查 ──────────────────────

func (s *requestService) checkNotEnrolled(ctx context.Context, tx *repository.Repository, lessonID, studentID int64) error {
	_, err := tx.LessonReg.GetActive(ctx, lessonID, studentID)
	if err == nil {
		return ErrAlreadyEnrolled
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	s.logger.Error("查询有效注册失败", zap.Int64("lesson_id", lessonID), zap.Error(err))
	return err
}

// checkNoPending 仅 enroll/join 视为重复；deroll/quit 通知与已处理结果不阻止新请求
func (s *requestService) checkNoPending(ctx context.Context, tx *repository.Repository, senderID, receiverID, lessonID int64) error {
	exists, err := tx.LessonRequest.ExistsPending(ctx, senderID, receiverID, lessonID)
	if err != nil {
		s.logger.Error("查询待处理请求失败", zap.Int64("lesson_id", lessonID), zap.Error(err))
		return err
	}
	if exists {
		return ErrDuplicateRequest
	}
	return nil
}

// lockRequest 先锁课程再锁请求，与其他生命周期动作的加锁顺序一致
// 课程已删除时 lesson 返回 nil，由调用方决定是否允许继续
func (s *requestService) lockRequest(ctx context.Context, tx *repository.Repository, requestID int64) (*model.LessonRequest, *model.Lesson, error) {
	r, err := tx.LessonRequest.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrRequestNotFound
		}
		return nil, nil, err
	}

	lesson, err := lockLesson(ctx, tx, r.LessonID)
	if err != nil && !errors.Is(err, ErrLessonNotFound) {
		return nil, nil, err
	}

	locked, err := tx.LessonRequest.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrRequestNotFound
		}
		return nil, nil, err
	}
	// 保留预加载的关联，状态以加锁后读取的为准
	r.Status, r.IsNew = locked.Status, locked.IsNew
	return r, lesson, nil
}
