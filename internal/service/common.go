package service

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"levelhub/internal/dto"
	"levelhub/internal/model"
	"levelhub/internal/policy"
	"levelhub/internal/repository"
	pkgerrors "levelhub/pkg/errors"
)

// Identity 已认证的调用者，由中间件从 Access Token 解析
type Identity struct {
	UserID   int64
	Username string
	IsAdmin  bool
}

// ── 课程通用业务错误 ──

var (
	ErrLessonNotFound   = pkgerrors.NotFound(40401, "课程不存在")
	ErrNotLessonManager = pkgerrors.Forbidden(40301, "仅课程教师或管理员可执行此操作")
	ErrNoLessonRole     = pkgerrors.Forbidden(40305, "你不是该课程的成员")
)

// RoleOfLesson 计算用户在课程中的角色
// 教师本人或管理员为 Manager；持有该课程有效注册的为 Student
func RoleOfLesson(ctx context.Context, repo *repository.Repository, ident Identity, lesson *model.Lesson) (policy.Role, error) {
	if ident.IsAdmin || lesson.TeacherID == ident.UserID {
		return policy.RoleManager, nil
	}
	if _, err := repo.LessonReg.GetActive(ctx, lesson.ID, ident.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return policy.RoleNone, nil
		}
		return policy.RoleNone, err
	}
	return policy.RoleStudent, nil
}

// loadLesson 读取未删除的课程
func loadLesson(ctx context.Context, repo *repository.Repository, id int64) (*model.Lesson, error) {
	lesson, err := repo.Lesson.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLessonNotFound
		}
		return nil, err
	}
	if lesson.IsDeleted() {
		return nil, ErrLessonNotFound
	}
	return lesson, nil
}

// lockLesson 在事务中锁定课程行，同一课程上的生命周期操作由此串行化
func lockLesson(ctx context.Context, tx *repository.Repository, id int64) (*model.Lesson, error) {
	lesson, err := tx.Lesson.GetByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLessonNotFound
		}
		return nil, err
	}
	if lesson.IsDeleted() {
		return nil, ErrLessonNotFound
	}
	return lesson, nil
}

// lockRegLesson 锁定注册所属课程后重新读取注册，保证读到的状态在事务内不变
func lockRegLesson(ctx context.Context, tx *repository.Repository, regID int64) (*model.LessonReg, *model.Lesson, error) {
	reg, err := tx.LessonReg.GetByID(ctx, regID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrRegNotFound
		}
		return nil, nil, err
	}
	lesson, err := lockLesson(ctx, tx, reg.LessonID)
	if err != nil {
		return nil, nil, err
	}
	if reg, err = tx.LessonReg.GetByID(ctx, regID); err != nil {
		return nil, nil, err
	}
	if reg.Status == model.RegDeleted {
		return nil, nil, ErrRegNotFound
	}
	return reg, lesson, nil
}

// loadReg 无锁读取未删除的注册及其课程，用于只读路径
func loadReg(ctx context.Context, repo *repository.Repository, regID int64) (*model.LessonReg, *model.Lesson, error) {
	reg, err := repo.LessonReg.GetByID(ctx, regID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrRegNotFound
		}
		return nil, nil, err
	}
	if reg.Status == model.RegDeleted {
		return nil, nil, ErrRegNotFound
	}
	lesson, err := loadLesson(ctx, repo, reg.LessonID)
	if err != nil {
		return nil, nil, err
	}
	return reg, lesson, nil
}

// runInTx 在事务中执行 fn
// Repository 未绑定数据库时 BeginTx 返回 nil，fn 直接在原 Repository 上执行
func runInTx(ctx context.Context, repo *repository.Repository, logger *zap.Logger, fn func(tx *repository.Repository) error) error {
	tx, err := repo.BeginTx(ctx)
	if err != nil {
		logger.Error("开启事务失败", zap.Error(err))
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	if err := fn(repo.WithTx(tx)); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			logger.Error("提交事务失败", zap.Error(err))
			return err
		}
	}
	return nil
}

// normalizeIDs 去重并升序排列，多课程加锁按固定顺序进行
func normalizeIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id > 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ── 视图转换 ──

func toUserBrief(u *model.User) dto.UserBrief {
	if u == nil {
		return dto.UserBrief{}
	}
	return dto.UserBrief{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName()}
}

func toLessonBrief(l *model.Lesson) dto.LessonBrief {
	if l == nil {
		return dto.LessonBrief{}
	}
	return dto.LessonBrief{ID: l.ID, Name: l.Name}
}

func toLessonResponse(l *model.Lesson, nregs int64) dto.LessonResponse {
	resp := dto.LessonResponse{
		ID:          l.ID,
		Name:        l.Name,
		Description: l.Description,
		Status:      string(l.Status),
		Data:        l.Data,
		Version:     l.Version,
		NRegs:       nregs,
		CreatedAt:   l.CreatedAt.UTC().Format(dto.TimeLayout),
	}
	if l.Teacher != nil {
		brief := toUserBrief(l.Teacher)
		resp.Teacher = &brief
	}
	return resp
}

// toRequestResponse 构造请求视图，actions 按查看者计算
func toRequestResponse(r *model.LessonRequest, viewerID int64) dto.RequestResponse {
	actions := []string{}
	if r.CanDecide(viewerID) {
		actions = append(actions, string(policy.ActionAccept), string(policy.ActionReject))
	}
	if r.CanDismiss(viewerID) {
		actions = append(actions, string(policy.ActionDismiss))
	}

	resp := dto.RequestResponse{
		ID:        r.ID,
		Sender:    toUserBrief(r.Sender),
		Receiver:  toUserBrief(r.Receiver),
		Lesson:    toLessonBrief(r.Lesson),
		Message:   r.Message,
		Status:    string(r.Status),
		Daytimes:  r.Daytimes,
		IsNew:     r.IsNew,
		CreatedAt: r.CreatedAt.UTC().Format(dto.TimeLayout),
		Actions:   actions,
	}
	// 未预加载关联时至少保留 id
	if r.Sender == nil {
		resp.Sender.ID = r.SenderID
	}
	if r.Receiver == nil {
		resp.Receiver.ID = r.ReceiverID
	}
	if r.Lesson == nil {
		resp.Lesson.ID = r.LessonID
	}
	return resp
}

func toRegistrationResponse(r *model.LessonReg) dto.RegistrationResponse {
	resp := dto.RegistrationResponse{
		ID:          r.ID,
		LessonID:    r.LessonID,
		FirstName:   r.StudentFirstName,
		LastName:    r.StudentLastName,
		DisplayName: r.DisplayName(),
		Status:      string(r.Status),
		Daytimes:    r.Daytimes,
		Data:        r.Data,
		CreatedAt:   r.CreatedAt.UTC().Format(dto.TimeLayout),
	}
	if r.Student != nil {
		brief := toUserBrief(r.Student)
		resp.Student = &brief
	}
	return resp
}

func toRegLogResponse(l *model.LessonRegLog) dto.RegLogResponse {
	resp := dto.RegLogResponse{
		ID:          l.ID,
		LessonRegID: l.LessonRegID,
		Data:        l.Data,
		CreatedAt:   l.CreatedAt.UTC().Format(dto.TimeLayout),
	}
	if l.UseTime != nil {
		t := l.UseTime.UTC().Format(dto.TimeLayout)
		resp.UseTime = &t
	}
	return resp
}
